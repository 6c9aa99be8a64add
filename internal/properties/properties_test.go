package properties

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "value", want: "value"},
		{name: "escaped hash", input: `a\#b`, want: "a#b"},
		{name: "newline", input: `\n`, want: "\n"},
		{name: "tab", input: `a\tb`, want: "a\tb"},
		{name: "escaped backslash", input: `a\\b`, want: `a\b`},
		{name: "unknown escape drops backslash", input: `\q`, want: "q"},
		{name: "lone backslash is a space", input: `\`, want: " "},
		{name: "trailing lone backslash kept", input: `ab\`, want: `ab\`},
		{name: "double backslash is not the space sentinel", input: `\\`, want: `\`},
		{name: "escaped multibyte", input: `\é`, want: "é"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeValue(tt.input); got != tt.want {
				t.Errorf("DecodeValue(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripComment(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "no comment", input: "key = value", want: "key = value"},
		{name: "trailing comment", input: "key = value   # note", want: "key = value"},
		{name: "escaped hash kept", input: `key = a\#b # note`, want: `key = a\#b`},
		{name: "escaped backslash then comment", input: `key = a\\# note`, want: `key = a\\`},
		{name: "comment right after separator", input: "key =# note", want: "key ="},
		{name: "trailing backslash", input: `key = \`, want: `key = \`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripComment(tt.input); got != tt.want {
				t.Errorf("StripComment(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseString(t *testing.T) {
	src := `# efile format
AttributeNameStarter = @
AttributeBreaker = \
DataLineStarter = \#      # rows start with a hash
DataBreaker = \   # a space

key = value \# not a comment # actual comment
   # indented comment
no separator here
dup = first
dup = second
empty =
eq = a=b
`
	cfg, err := ParseString(src)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}

	want := map[string]string{
		"AttributeNameStarter": "@",
		"AttributeBreaker":     " ",
		"DataLineStarter":      "#",
		"DataBreaker":          " ",
		"key":                  "value # not a comment",
		"dup":                  "second",
		"empty":                "",
		"eq":                   "a=b",
	}
	if len(cfg) != len(want) {
		t.Errorf("len(cfg) = %d, want %d (%v)", len(cfg), len(want), cfg)
	}
	for k, v := range want {
		got, ok := cfg.Lookup(k)
		if !ok {
			t.Errorf("key %q missing", k)
			continue
		}
		if got != v {
			t.Errorf("cfg[%q] = %q, want %q", k, got, v)
		}
	}
}

func TestParseString_CRLFAndBOM(t *testing.T) {
	src := "\uFEFFa = 1\r\nb = 2\r\n"
	cfg, err := ParseString(src)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	if cfg.Get("a") != "1" || cfg.Get("b") != "2" {
		t.Errorf("cfg = %v, want a=1 b=2", cfg)
	}
}

func TestParseString_InvalidUTF8(t *testing.T) {
	_, err := ParseString("a = \xff\xfe\n")
	if err == nil {
		t.Fatal("expected error for invalid UTF-8")
	}

	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("error type = %T, want *LoadError", err)
	}
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Errorf("error = %v, want wrapping ErrInvalidUTF8", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Eformat.properties")
	if err := os.WriteFile(path, []byte("DataBreaker = \\\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := cfg.Get("DataBreaker"); got != " " {
		t.Errorf("DataBreaker = %q, want %q", got, " ")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.properties")

	_, err := Load(path)
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("error type = %T, want *LoadError", err)
	}
	if loadErr.Path != path {
		t.Errorf("Path = %q, want %q", loadErr.Path, path)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error = %v, want wrapping fs.ErrNotExist", err)
	}
}
