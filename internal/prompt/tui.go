package prompt

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// TUI prompts with bubbletea widgets, one short-lived program per question.
type TUI struct {
	in  io.Reader
	out io.Writer
}

func NewTUI(in io.Reader, out io.Writer) *TUI {
	return &TUI{in: in, out: out}
}

func (t *TUI) run(m tea.Model) (tea.Model, error) {
	p := tea.NewProgram(m, tea.WithInput(t.in), tea.WithOutput(t.out))
	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil, ErrInterrupted
		}
		return nil, err
	}
	return final, nil
}

func (t *TUI) Ask(label, def string) (string, error) {
	return t.text(label, def, false)
}

func (t *TUI) Secret(label, def string) (string, error) {
	return t.text(label, def, true)
}

func (t *TUI) text(label, def string, secret bool) (string, error) {
	final, err := t.run(newTextModel(label, def, secret))
	if err != nil {
		return "", err
	}
	m := final.(textModel)
	if m.cancelled {
		return "", ErrInterrupted
	}
	return m.value(), nil
}

func (t *TUI) Choice(label string, choices []string, defaultIndex int) (string, error) {
	if len(choices) == 0 {
		return "", errors.New("choice prompt without choices")
	}
	final, err := t.run(newChoiceModel(label, choices, defaultIndex))
	if err != nil {
		return "", err
	}
	m := final.(choiceModel)
	if m.cancelled {
		return "", ErrInterrupted
	}
	return m.choices[m.cursor], nil
}

func (t *TUI) Confirm(label string, def bool) (bool, error) {
	idx := 1
	if def {
		idx = 0
	}
	v, err := t.Choice(label, []string{"yes", "no"}, idx)
	if err != nil {
		return false, err
	}
	return v == "yes", nil
}

type textModel struct {
	label     string
	def       string
	secret    bool
	input     textinput.Model
	done      bool
	cancelled bool
}

func newTextModel(label, def string, secret bool) textModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 1024
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	} else {
		ti.Placeholder = def
	}
	ti.Focus()
	return textModel{label: label, def: def, secret: secret, input: ti}
}

func (m textModel) value() string {
	v := strings.TrimSpace(m.input.Value())
	if v == "" {
		return m.def
	}
	return v
}

func (m textModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m textModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.cancelled = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m textModel) View() string {
	if m.cancelled {
		return ""
	}
	if m.done {
		shown := m.value()
		if m.secret {
			shown = strings.Repeat("•", len([]rune(shown)))
		}
		return fmt.Sprintf("%s %s\n", labelStyle.Render(m.label+":"), shown)
	}
	hint := "enter to accept"
	if m.secret && m.def != "" {
		hint = "leave blank to keep current"
	}
	return fmt.Sprintf("%s\n%s\n%s\n", labelStyle.Render(m.label), m.input.View(), hintStyle.Render(hint))
}

type choiceModel struct {
	label     string
	choices   []string
	cursor    int
	done      bool
	cancelled bool
}

func newChoiceModel(label string, choices []string, defaultIndex int) choiceModel {
	return choiceModel{label: label, choices: choices, cursor: clampIndex(defaultIndex, len(choices))}
}

func (m choiceModel) Init() tea.Cmd { return nil }

func (m choiceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.choices)-1 {
			m.cursor++
		}
	case "enter":
		m.done = true
		return m, tea.Quit
	case "ctrl+c", "esc":
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

func (m choiceModel) View() string {
	if m.cancelled {
		return ""
	}
	if m.done {
		return fmt.Sprintf("%s %s\n", labelStyle.Render(m.label+":"), m.choices[m.cursor])
	}
	var b strings.Builder
	b.WriteString(labelStyle.Render(m.label))
	b.WriteString("\n")
	for i, c := range m.choices {
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + c))
		} else {
			b.WriteString(normalStyle.Render("  " + c))
		}
		b.WriteString("\n")
	}
	b.WriteString(hintStyle.Render("↑/↓ to move, enter to select"))
	b.WriteString("\n")
	return b.String()
}
