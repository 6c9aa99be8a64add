package efile

import (
	"fmt"

	"github.com/JonMunkholm/efile/internal/properties"
)

// ErrInvalidUTF8 is wrapped by FileReadError when a document is not UTF-8.
// It is the same value the properties loader uses, so errors.Is matches
// either source.
var ErrInvalidUTF8 = properties.ErrInvalidUTF8

// MissingFormatKeyError reports a format token that is absent or empty.
type MissingFormatKeyError struct {
	Key string
}

func (e *MissingFormatKeyError) Error() string {
	return fmt.Sprintf("missing format key %q", e.Key)
}

// FileReadError reports a document that could not be opened, read or
// decoded as UTF-8 text.
type FileReadError struct {
	Path string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("read efile %s: %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error {
	return e.Err
}

// RowWidthError is returned only by parsers built with WithStrictRowWidth,
// for the first data row whose cell count differs from its header.
type RowWidthError struct {
	Section string
	Line    int // 1-based
	Want    int
	Got     int
}

func (e *RowWidthError) Error() string {
	return fmt.Sprintf("section %q line %d: row has %d cells, header has %d columns",
		e.Section, e.Line, e.Got, e.Want)
}

// EncodeError reports a table value that cannot be written without changing
// its meaning when parsed back.
type EncodeError struct {
	Section string
	Row     int // -1 for the section name or header
	Column  int // -1 for the section name
	Reason  string
}

func (e *EncodeError) Error() string {
	switch {
	case e.Column < 0:
		return fmt.Sprintf("encode section %q: %s", e.Section, e.Reason)
	case e.Row < 0:
		return fmt.Sprintf("encode section %q column %d: %s", e.Section, e.Column, e.Reason)
	default:
		return fmt.Sprintf("encode section %q row %d column %d: %s", e.Section, e.Row, e.Column, e.Reason)
	}
}
