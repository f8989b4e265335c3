// Package envfile reads and rewrites KEY=VALUE environment files without
// disturbing lines it was not asked to change.
package envfile

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
)

var keyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// File is an environment file held as raw lines.
type File struct {
	path            string
	lines           []string
	trailingNewline bool
	perm            os.FileMode
}

// Entry is a parsed KEY=VALUE line. Value has surrounding quotes removed.
type Entry struct {
	Key    string
	Value  string
	Quoted bool
}

// Load reads the file at path.
func Load(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	f := Parse(path, data)
	f.perm = info.Mode().Perm()
	return f, nil
}

// Parse builds a File from raw bytes. Save writes back to path.
func Parse(path string, data []byte) *File {
	f := &File{path: path, perm: 0644}
	if len(data) == 0 {
		return f
	}
	s := string(data)
	f.trailingNewline = strings.HasSuffix(s, "\n")
	s = strings.TrimSuffix(s, "\n")
	f.lines = strings.Split(s, "\n")
	return f
}

func (f *File) Path() string { return f.path }

// Len returns the number of lines.
func (f *File) Len() int { return len(f.lines) }

// Line returns line i without its newline.
func (f *File) Line(i int) string { return f.lines[i] }

// Set replaces line i. A carriage return ending the old line is kept.
func (f *File) Set(i int, line string) {
	if strings.HasSuffix(f.lines[i], "\r") && !strings.HasSuffix(line, "\r") {
		line += "\r"
	}
	f.lines[i] = line
}

// Entry parses line i.
func (f *File) Entry(i int) (Entry, bool) {
	return ParseEntry(f.lines[i])
}

// Bytes renders the file.
func (f *File) Bytes() []byte {
	var buf bytes.Buffer
	buf.WriteString(strings.Join(f.lines, "\n"))
	if f.trailingNewline {
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// Save writes the file back to its path.
func (f *File) Save() error {
	if err := os.WriteFile(f.path, f.Bytes(), f.perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.path, err)
	}
	return nil
}

// Values resolves the file the way the application would read it at startup.
func (f *File) Values() (map[string]string, error) {
	return godotenv.Parse(bytes.NewReader(f.Bytes()))
}

// ReadValues loads and resolves the file at path.
func ReadValues(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return values, nil
}

// ParseEntry splits a KEY=VALUE line. Comments, blank lines and lines
// without a valid key are not entries.
func ParseEntry(line string) (Entry, bool) {
	line = strings.TrimSuffix(line, "\r")
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return Entry{}, false
	}
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return Entry{}, false
	}
	key = strings.TrimSpace(key)
	if !keyPattern.MatchString(key) {
		return Entry{}, false
	}
	value = strings.TrimSpace(value)
	unquoted := Unquote(value)
	return Entry{Key: key, Value: unquoted, Quoted: unquoted != value}, true
}

var (
	escaper   = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	unescaper = strings.NewReplacer(`\\`, `\`, `\"`, `"`)
)

// Unquote strips one pair of matching surrounding quotes. Double-quoted
// values also lose their backslash escapes for `\` and `"`.
func Unquote(v string) string {
	if len(v) >= 2 {
		first, last := v[0], v[len(v)-1]
		switch {
		case first == '\'' && last == '\'':
			return v[1 : len(v)-1]
		case first == '"' && last == '"':
			return unescaper.Replace(v[1 : len(v)-1])
		}
	}
	return v
}

// Format renders KEY=VALUE. Values with whitespace are double quoted. Values
// holding quotes, `$` or backslashes are single quoted so neither escapes nor
// interpolation apply; a value that contains a single quote itself is double
// quoted with `\` and `"` escaped.
func Format(key, value string) string {
	switch {
	case !strings.ContainsAny(value, " \t\n\r\v\f\"'$\\"):
		return key + "=" + value
	case !strings.ContainsAny(value, "\"'$\\"):
		return key + `="` + value + `"`
	case !strings.Contains(value, "'") && !strings.HasSuffix(value, `\`):
		return key + "='" + value + "'"
	default:
		return key + `="` + escaper.Replace(value) + `"`
	}
}

// Exists reports whether path is an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
