// Package properties loads the properties-style format files that describe
// how efile documents are tokenized.
//
// A properties file is line oriented:
//
//	# full-line comment
//	AttributeNameStarter = @          # trailing comment
//	AttributeBreaker     = \          # a lone backslash means "a space"
//	DataLineStarter      = \#         # escaped '#' is kept in the value
//
// Comments start at the first unescaped '#'. Values are decoded with a second,
// independent escape pass (see DecodeValue).
package properties

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned (wrapped in a LoadError) when a source is not
// valid UTF-8 text.
var ErrInvalidUTF8 = errors.New("invalid UTF-8 encoding")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Config is a flat key/value view of a properties file.
// Keys are unique; a later assignment replaces an earlier one.
type Config map[string]string

// Get returns the value for key, or "" when absent.
func (c Config) Get(key string) string {
	return c[key]
}

// Lookup returns the value for key and whether it was present.
func (c Config) Lookup(key string) (string, bool) {
	v, ok := c[key]
	return v, ok
}

// LoadError reports a properties source that could not be opened, read or
// decoded as text.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config load: %v", e.Err)
	}
	return fmt.Sprintf("config load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load reads and parses the properties file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	cfg, err := parseBytes(data)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return cfg, nil
}

// Parse reads a properties document from r.
func Parse(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &LoadError{Err: err}
	}

	cfg, err := parseBytes(data)
	if err != nil {
		return nil, &LoadError{Err: err}
	}
	return cfg, nil
}

// ParseString parses an in-memory properties document.
func ParseString(s string) (Config, error) {
	return Parse(strings.NewReader(s))
}

func parseBytes(data []byte) (Config, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, ErrInvalidUTF8
	}

	cfg := make(Config)
	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := parseLine(line)
		if !ok {
			continue
		}
		cfg[key] = value
	}
	return cfg, nil
}

// parseLine turns one physical line into a key/value pair.
// ok is false for blank lines, comments and lines without '='.
func parseLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] == '#' {
		return "", "", false
	}

	line = StripComment(line)

	key, value, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	return strings.TrimSpace(key), DecodeValue(strings.TrimSpace(value)), true
}

// StripComment truncates line at its first unescaped '#' and trims the
// whitespace left in front of it. A backslash and the character after it
// form one unit, so "\#" never starts a comment.
func StripComment(line string) string {
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			if i+1 < len(line) {
				i++
			}
		case '#':
			return strings.TrimRightFunc(line[:i], unicode.IsSpace)
		}
	}
	return line
}

// DecodeValue applies value escapes. A value that is exactly one backslash
// stands for a single space. Otherwise \# \n \t \\ decode to '#', newline,
// tab and backslash, and any other escaped character decodes to itself.
// A trailing lone backslash is kept as is.
func DecodeValue(value string) string {
	if value == `\` {
		return " "
	}
	if !strings.Contains(value, `\`) {
		return value
	}

	var b strings.Builder
	b.Grow(len(value))
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c != '\\' || i+1 >= len(value) {
			b.WriteByte(c)
			continue
		}
		i++
		switch next := value[i]; next {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		default:
			// '#', '\\' and everything else decode to the escaped character
			b.WriteByte(next)
		}
	}
	return b.String()
}
