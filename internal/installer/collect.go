package installer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kayz/appinstall/internal/console"
	"github.com/kayz/appinstall/internal/logger"
	"github.com/kayz/appinstall/internal/prompt"
	"github.com/kayz/appinstall/internal/validation"
)

// ErrTooManyAttempts is returned when MaxAttempts answers failed validation.
var ErrTooManyAttempts = errors.New("too many invalid answers")

// Collector asks for a field until the answer validates. Invalid values are
// never accepted; the loop ends only on a valid answer, a prompt error,
// context cancellation or MaxAttempts.
type Collector struct {
	Prompter  prompt.Prompter
	Validator validation.Validator
	Out       *console.Output
	// MaxAttempts caps failed answers per field. Zero means no limit.
	MaxAttempts int
	// Prefill answers keys without prompting.
	Prefill map[string]string
	// NonInteractive accepts defaults without prompting.
	NonInteractive bool
}

// Collect returns a validated value for f, offering existing as the default.
func (c *Collector) Collect(ctx context.Context, f FieldSpec, existing string) (string, error) {
	def := f.DefaultFor(existing)

	// A blank prefill clears optional fields; required ones keep the default.
	if v, ok := c.Prefill[f.Key]; ok {
		v = strings.TrimSpace(v)
		if v == "" && f.Required() {
			v = def
		}
		if err := c.Validator.Validate(f.Key, v, f.Rules); err != nil {
			return "", fmt.Errorf("%s: %w", f.Key, err)
		}
		return v, nil
	}

	if c.NonInteractive {
		if err := c.Validator.Validate(f.Key, def, f.Rules); err != nil {
			return "", fmt.Errorf("%s: %w (provide with --set %s=...)", f.Key, err, f.Key)
		}
		return def, nil
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		v, err := c.ask(f, def)
		if err != nil {
			return "", err
		}

		err = c.Validator.Validate(f.Key, v, f.Rules)
		if err == nil {
			return v, nil
		}

		logger.Debug("[Collect] %s attempt %d rejected: %v", f.Key, attempt, err)
		if c.Out != nil {
			c.Out.Warn("Validation error: %s", err)
		}
		if c.MaxAttempts > 0 && attempt >= c.MaxAttempts {
			return "", fmt.Errorf("%s: %w", f.Key, ErrTooManyAttempts)
		}
	}
}

func (c *Collector) ask(f FieldSpec, def string) (string, error) {
	switch f.Kind {
	case KindChoice:
		return c.Prompter.Choice(f.Label(), f.Choices, f.ChoiceIndex(def))
	case KindSecret:
		return c.Prompter.Secret(f.Label(), def)
	default:
		return c.Prompter.Ask(f.Label(), def)
	}
}
