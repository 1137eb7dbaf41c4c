package admin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jlcilliers/cvchat/internal/config"
	"github.com/jlcilliers/cvchat/internal/domain"
)

// IngestCmd indexes a local CV without going through the HTTP API.
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Index a CV from a PDF or text file",
		Long: `Replace the stored index with the content of a local file.

PDF files go through text extraction and are archived like an upload.
Other files are read as plain UTF-8 text.`,
		Args: cobra.ExactArgs(1),
		RunE: runIngest,
	}
	addOutputFlag(cmd.Flags())
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a, err := newApp(ctx, cfg, appOptions{migrate: true})
	if err != nil {
		return err
	}
	defer a.Close()

	var result *domain.IngestResult
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		result, err = a.uploads.IngestDocument(ctx, filepath.Base(path), data)
	} else {
		result, err = a.ingestion.Ingest(ctx, string(data))
	}
	if err != nil {
		return err
	}

	if jsonOutput(cmd) {
		return printJSON(cmd.OutOrStdout(), result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks (~%d tokens)\n", result.Chunks, result.Tokens)
	return nil
}
