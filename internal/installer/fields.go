package installer

import (
	"github.com/kayz/appinstall/internal/validation"
)

// Kind selects how a field is prompted.
type Kind int

const (
	KindText Kind = iota
	KindSecret
	KindChoice
)

func (k Kind) String() string {
	switch k {
	case KindSecret:
		return "secret"
	case KindChoice:
		return "choice"
	default:
		return "text"
	}
}

// FieldSpec describes how one environment key is collected.
type FieldSpec struct {
	Key     string
	Kind    Kind
	Hint    string
	Choices []string
	Default string
	Rules   []validation.Rule
}

// Label is the prompt text.
func (f FieldSpec) Label() string {
	if f.Hint != "" {
		return f.Key + " (" + f.Hint + ")"
	}
	return f.Key
}

// DefaultFor returns the pre-filled answer for an existing value.
func (f FieldSpec) DefaultFor(existing string) string {
	if existing != "" {
		return existing
	}
	return f.Default
}

// ChoiceIndex returns the index to preselect for value, falling back to the
// field default and then to the first choice.
func (f FieldSpec) ChoiceIndex(value string) int {
	for _, candidate := range []string{value, f.Default} {
		for i, c := range f.Choices {
			if c == candidate {
				return i
			}
		}
	}
	return 0
}

// Required reports whether a blank answer is rejected.
func (f FieldSpec) Required() bool {
	for _, r := range f.Rules {
		if r == validation.Required {
			return true
		}
	}
	return false
}

// FieldTable maps recognized keys to their specs.
type FieldTable map[string]FieldSpec

// DefaultFields returns the recognized application and database keys.
func DefaultFields(appName string) FieldTable {
	required := []validation.Rule{validation.Required}
	nullable := []validation.Rule{validation.Nullable}

	specs := []FieldSpec{
		{Key: "APP_ENV", Kind: KindChoice, Choices: []string{"local", "production", "testing"}, Default: "local", Rules: required},
		{Key: "APP_DEBUG", Kind: KindChoice, Choices: []string{"true", "false"}, Default: "true", Rules: required},
		{Key: "APP_URL", Kind: KindText, Default: "http://localhost", Rules: []validation.Rule{validation.Required, validation.URL}},
		{Key: "APP_NAME", Kind: KindText, Default: appName, Rules: required},
		{Key: "APP_KEY", Kind: KindText, Hint: "leave blank to auto-generate", Rules: nullable},
		{Key: "DB_CONNECTION", Kind: KindChoice, Choices: []string{"mysql", "pgsql", "sqlite", "sqlsrv"}, Default: "mysql", Rules: required},
		{Key: "DB_HOST", Kind: KindText, Default: "localhost", Rules: required},
		{Key: "DB_PORT", Kind: KindText, Default: "3306", Rules: []validation.Rule{validation.Required, validation.Numeric}},
		{Key: "DB_DATABASE", Kind: KindText, Default: "forge", Rules: required},
		{Key: "DB_USERNAME", Kind: KindText, Default: "forge", Rules: required},
		{Key: "DB_PASSWORD", Kind: KindSecret, Rules: nullable},
	}

	table := make(FieldTable, len(specs))
	for _, s := range specs {
		table[s.Key] = s
	}
	return table
}

// Lookup returns the spec for key. With captureAll, unknown keys get a
// nullable free-text spec.
func (t FieldTable) Lookup(key string, captureAll bool) (FieldSpec, bool) {
	if spec, ok := t[key]; ok {
		return spec, true
	}
	if captureAll {
		return FieldSpec{Key: key, Kind: KindText, Rules: []validation.Rule{validation.Nullable}}, true
	}
	return FieldSpec{}, false
}
