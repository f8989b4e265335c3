// Package validation checks single field values against named rules.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Rule names a validation rule.
type Rule string

const (
	Required Rule = "required"
	Nullable Rule = "nullable"
	Numeric  Rule = "numeric"
	URL      Rule = "url"
)

// Validator validates one field value against a rule set and returns the
// first failure.
type Validator interface {
	Validate(field, value string, rules []Rule) error
}

// Error is a failed rule on a field.
type Error struct {
	Field string
	Rule  Rule
}

func (e *Error) Error() string {
	switch e.Rule {
	case Required:
		return fmt.Sprintf("The %s field is required.", e.Field)
	case Numeric:
		return fmt.Sprintf("The %s field must be a number.", e.Field)
	case URL:
		return fmt.Sprintf("The %s field must be a valid URL.", e.Field)
	default:
		return fmt.Sprintf("The %s field is invalid (%s).", e.Field, e.Rule)
	}
}

// Engine implements Validator on top of go-playground/validator.
type Engine struct {
	v *validator.Validate
}

func New() *Engine {
	return &Engine{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate applies rules in order. An empty value passes unless the field is
// required; the remaining rules only see non-empty values.
func (e *Engine) Validate(field, value string, rules []Rule) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		if hasRule(rules, Required) {
			return &Error{Field: field, Rule: Required}
		}
		return nil
	}

	for _, rule := range rules {
		switch rule {
		case Required, Nullable:
			continue
		case Numeric, URL:
			if err := e.v.Var(trimmed, string(rule)); err != nil {
				var verrs validator.ValidationErrors
				if errors.As(err, &verrs) && len(verrs) > 0 {
					return &Error{Field: field, Rule: Rule(verrs[0].Tag())}
				}
				return err
			}
		default:
			return fmt.Errorf("unknown validation rule %q", rule)
		}
	}
	return nil
}

func hasRule(rules []Rule, want Rule) bool {
	for _, r := range rules {
		if r == want {
			return true
		}
	}
	return false
}
