// Package prompt asks the operator for values.
//
// Two implementations exist: Line reads plain lines (works with pipes and
// scripted input), TUI renders small bubbletea widgets.
package prompt

import (
	"errors"
	"strings"
)

// ErrInterrupted is returned when the operator cancels a prompt.
var ErrInterrupted = errors.New("prompt interrupted")

// Prompter is a blocking request/response exchange with the operator.
type Prompter interface {
	// Ask reads free text. An empty answer yields def.
	Ask(label, def string) (string, error)
	// Secret reads text without echoing it. An empty answer yields def.
	Secret(label, def string) (string, error)
	// Choice picks one of choices, preselecting defaultIndex.
	Choice(label string, choices []string, defaultIndex int) (string, error)
	// Confirm asks a yes/no question.
	Confirm(label string, def bool) (bool, error)
}

// ParseBool accepts the usual yes/no spellings.
func ParseBool(v string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "y", "yes", "true", "1":
		return true, true
	case "n", "no", "false", "0":
		return false, true
	default:
		return false, false
	}
}

func clampIndex(i, n int) int {
	if i < 0 || i >= n {
		return 0
	}
	return i
}
