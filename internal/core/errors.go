package core

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrFileTooLarge is returned for uploads over Options.MaxFileSize.
	ErrFileTooLarge = errors.New("file too large")

	// ErrEmptyFile is returned for uploads without content.
	ErrEmptyFile = errors.New("empty file")

	// ErrNoFile is returned by transports when a request carries no file.
	ErrNoFile = errors.New("no file provided")

	// ErrDocumentNotFound is returned for unknown document ids.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrTableNotFound matches every *TableNotFoundError.
	ErrTableNotFound = errors.New("table not found")

	// ErrStoreDisabled is returned by storage operations when no Store is
	// configured.
	ErrStoreDisabled = errors.New("document store not configured")

	// ErrUnknownFormat is returned for unsupported export formats.
	ErrUnknownFormat = errors.New("unknown export format")

	// ErrTableRequired is returned when a format needs a single table but
	// none was named.
	ErrTableRequired = errors.New("export format needs a table name")
)

// TableNotFoundError reports a table name missing from a document.
type TableNotFoundError struct {
	Document uuid.UUID
	Name     string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table not found: %q in document %s", e.Name, e.Document)
}

// Is makes errors.Is(err, ErrTableNotFound) match.
func (e *TableNotFoundError) Is(target error) bool {
	return target == ErrTableNotFound
}
