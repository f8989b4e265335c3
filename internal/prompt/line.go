package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// Line prompts on a line-oriented stream.
type Line struct {
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
}

func NewLine(in io.Reader, out io.Writer) *Line {
	return &Line{in: in, reader: bufio.NewReader(in), out: out}
}

func (l *Line) readLine() (string, error) {
	line, err := l.reader.ReadString('\n')
	if err != nil {
		// A final line without newline still counts.
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (l *Line) Ask(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(l.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(l.out, "%s: ", label)
	}
	v, err := l.readLine()
	if err != nil {
		return "", err
	}
	if v == "" {
		return def, nil
	}
	return v, nil
}

func (l *Line) Secret(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(l.out, "%s (leave blank to keep current): ", label)
	} else {
		fmt.Fprintf(l.out, "%s: ", label)
	}

	var v string
	if fd, ok := l.terminalFd(); ok {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(l.out)
		if err != nil {
			return "", err
		}
		v = strings.TrimSpace(string(b))
	} else {
		line, err := l.readLine()
		if err != nil {
			return "", err
		}
		v = line
	}

	if v == "" {
		return def, nil
	}
	return v, nil
}

func (l *Line) terminalFd() (int, bool) {
	f, ok := l.in.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

func (l *Line) Choice(label string, choices []string, defaultIndex int) (string, error) {
	if len(choices) == 0 {
		return "", errors.New("choice prompt without choices")
	}
	defaultIndex = clampIndex(defaultIndex, len(choices))

	for {
		fmt.Fprintf(l.out, "%s [%s]:\n", label, choices[defaultIndex])
		for i, c := range choices {
			fmt.Fprintf(l.out, "  [%d] %s\n", i, c)
		}
		fmt.Fprint(l.out, "> ")

		v, err := l.readLine()
		if err != nil {
			return "", err
		}
		if v == "" {
			return choices[defaultIndex], nil
		}
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n < len(choices) {
			return choices[n], nil
		}
		for _, c := range choices {
			if strings.EqualFold(c, v) {
				return c, nil
			}
		}
		fmt.Fprintf(l.out, "Value %q is invalid.\n", v)
	}
}

func (l *Line) Confirm(label string, def bool) (bool, error) {
	hint := "no"
	if def {
		hint = "yes"
	}
	for {
		fmt.Fprintf(l.out, "%s (yes/no) [%s]: ", label, hint)
		v, err := l.readLine()
		if err != nil {
			return false, err
		}
		if v == "" {
			return def, nil
		}
		if b, ok := ParseBool(v); ok {
			return b, nil
		}
		fmt.Fprintln(l.out, "Please answer yes or no.")
	}
}
