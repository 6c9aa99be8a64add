package efile

import "github.com/JonMunkholm/efile/internal/properties"

// Property keys read from the format file.
const (
	KeyAttributeNameStarter = "AttributeNameStarter"
	KeyAttributeBreaker     = "AttributeBreaker"
	KeyDataLineStarter      = "DataLineStarter"
	KeyDataBreaker          = "DataBreaker"
)

// DefaultFormatFile is the conventional name of the format file.
const DefaultFormatFile = "Eformat.properties"

// FormatSpec holds the four tokens that tokenize header and data lines.
// It is a plain value and safe to share between parsers.
type FormatSpec struct {
	AttributeNameStarter string `json:"attributeNameStarter" yaml:"attributeNameStarter"`
	AttributeBreaker     string `json:"attributeBreaker" yaml:"attributeBreaker"`
	DataLineStarter      string `json:"dataLineStarter" yaml:"dataLineStarter"`
	DataBreaker          string `json:"dataBreaker" yaml:"dataBreaker"`
}

// DefaultFormatSpec returns the tokens used by the reference format file:
// '@' header lines and '#' data lines, both space separated.
func DefaultFormatSpec() FormatSpec {
	return FormatSpec{
		AttributeNameStarter: "@",
		AttributeBreaker:     " ",
		DataLineStarter:      "#",
		DataBreaker:          " ",
	}
}

// LoadFormatSpec reads the properties file at path and resolves a FormatSpec
// from it. Read failures are returned as *properties.LoadError.
func LoadFormatSpec(path string) (FormatSpec, error) {
	cfg, err := properties.Load(path)
	if err != nil {
		return FormatSpec{}, err
	}
	return ResolveFormatSpec(cfg)
}

// ResolveFormatSpec picks the four tokens out of cfg. The first missing or
// empty key is reported as a *MissingFormatKeyError.
func ResolveFormatSpec(cfg properties.Config) (FormatSpec, error) {
	spec := FormatSpec{
		AttributeNameStarter: cfg.Get(KeyAttributeNameStarter),
		AttributeBreaker:     cfg.Get(KeyAttributeBreaker),
		DataLineStarter:      cfg.Get(KeyDataLineStarter),
		DataBreaker:          cfg.Get(KeyDataBreaker),
	}
	if err := spec.Validate(); err != nil {
		return FormatSpec{}, err
	}
	return spec, nil
}

// Validate reports the first empty token as a *MissingFormatKeyError.
// An empty starter would match every line and an empty breaker cannot split.
func (s FormatSpec) Validate() error {
	for _, f := range s.fields() {
		if f.value == "" {
			return &MissingFormatKeyError{Key: f.key}
		}
	}
	return nil
}

type specField struct {
	key   string
	value string
}

func (s FormatSpec) fields() []specField {
	return []specField{
		{KeyAttributeNameStarter, s.AttributeNameStarter},
		{KeyAttributeBreaker, s.AttributeBreaker},
		{KeyDataLineStarter, s.DataLineStarter},
		{KeyDataBreaker, s.DataBreaker},
	}
}
