package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeEmbedding     = "EMBEDDING_ERROR"
	ErrCodeStore         = "STORE_ERROR"
	ErrCodeTransport     = "TRANSPORT_ERROR"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeNotConfigured = "NOT_CONFIGURED"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// NewValidationError rejects caller input.
func NewValidationError(message string) *DomainError {
	return NewDomainError(ErrCodeValidation, message)
}

// NewEmbeddingError wraps a failure of the embedding service.
func NewEmbeddingError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeEmbedding, message, err)
}

// NewStoreError wraps a failure of the index store.
func NewStoreError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeStore, message, err)
}

// NewTransportError wraps a failure talking to a remote collaborator.
func NewTransportError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeTransport, message, err)
}

// CodeOf returns the code of the outermost DomainError in the chain, or ""
// when there is none.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// HasCode reports whether any DomainError in the chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		var de *DomainError
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Validation errors
var (
	ErrDocumentTooShort    = NewDomainError(ErrCodeValidation, "document text is too short to index")
	ErrMalformedText       = NewDomainError(ErrCodeValidation, "document text is not valid text")
	ErrUnsupportedFileType = NewDomainError(ErrCodeValidation, "only PDF files are supported")
	ErrFileTooLarge        = NewDomainError(ErrCodeValidation, "file too large (max 10MB)")
	ErrMissingFile         = NewDomainError(ErrCodeValidation, "no file provided")
	ErrUnreadableDocument  = NewDomainError(ErrCodeValidation, "failed to parse PDF")
	ErrInsufficientText    = NewDomainError(ErrCodeValidation, "could not extract sufficient text from the PDF; the file may be scanned or image-based")
	ErrMessagesRequired    = NewDomainError(ErrCodeValidation, "messages required")
	ErrEmptyMessage        = NewDomainError(ErrCodeValidation, "empty message")
	ErrEmptyQuery          = NewDomainError(ErrCodeValidation, "query is required")
	ErrNoChunks            = NewDomainError(ErrCodeValidation, "document text has no passage long enough to index")
)

// Store errors
var (
	ErrIndexCorrupt      = NewDomainError(ErrCodeStore, "stored index could not be decoded")
	ErrIndexInconsistent = NewDomainError(ErrCodeStore, "stored chunks and embeddings do not match; reindex required")
)

// Embedding errors
var (
	ErrEmptyEmbedding        = NewDomainError(ErrCodeEmbedding, "embedding service returned an empty vector")
	ErrEmbeddingDimensionMix = NewDomainError(ErrCodeEmbedding, "embedding dimensions differ between vectors")
)

// Authorization and configuration errors
var (
	ErrInvalidAdminToken = NewDomainError(ErrCodeUnauthorized, "unauthorized")
	ErrArchiveNotEnabled = NewDomainError(ErrCodeNotConfigured, "document archive not configured: S3_ENDPOINT required")
	ErrNoArchivedCV      = NewDomainError(ErrCodeNotFound, "no CV has been uploaded yet")
)
