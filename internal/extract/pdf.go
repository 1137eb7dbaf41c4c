// Package extract turns uploaded documents into plain text.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/jlcilliers/cvchat/internal/domain"
)

var pdfMagic = []byte("%PDF-")

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v\r]+`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
)

// PDFExtractor reads the text layer of a PDF. Scanned, image-only documents
// yield little or no text.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Extract returns the normalized plain text of data. Parse failures are
// reported as domain.ErrUnreadableDocument; a cancelled ctx is returned
// wrapped as is.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (text string, err error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), pdfMagic) {
		return "", fmt.Errorf("missing PDF header: %w", domain.ErrUnreadableDocument)
	}

	// the parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("pdf parser panic: %v: %w", r, domain.ErrUnreadableDocument)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, domain.ErrUnreadableDocument)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("pdf extraction interrupted: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, domain.ErrUnreadableDocument)
	}

	var buf strings.Builder
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("%v: %w", err, domain.ErrUnreadableDocument)
	}

	return Normalize(buf.String()), nil
}

// Normalize collapses runs of horizontal whitespace, drops NUL bytes and
// trims lines, keeping at most one blank line between paragraphs.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.ToValidUTF8(text, "")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(horizontalSpace.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
