package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kayz/appinstall/internal/console"
	"github.com/kayz/appinstall/internal/host"
	"github.com/kayz/appinstall/internal/validation"
)

const sampleEnv = `APP_NAME=Laravel
APP_ENV=local
APP_KEY=
APP_DEBUG=true
APP_URL=http://localhost

LOG_CHANNEL=stack

# database
DB_CONNECTION=mysql
DB_HOST=127.0.0.1
DB_PORT=3306
DB_DATABASE=laravel
DB_USERNAME=root
DB_PASSWORD=
`

// scriptedPrompter answers by label. Labels without a scripted answer, and
// blank scripted answers, take the offered default. Unscripted confirmations
// are an error.
type scriptedPrompter struct {
	answers  map[string][]string
	confirms map[string]bool
	err      error

	asked     []string
	confirmed []string
}

func (p *scriptedPrompter) next(label, def string) (string, error) {
	p.asked = append(p.asked, label)
	if p.err != nil {
		return "", p.err
	}
	queue := p.answers[label]
	if len(queue) == 0 {
		return def, nil
	}
	p.answers[label] = queue[1:]
	if queue[0] == "" {
		return def, nil
	}
	return queue[0], nil
}

func (p *scriptedPrompter) Ask(label, def string) (string, error) { return p.next(label, def) }

func (p *scriptedPrompter) Secret(label, def string) (string, error) { return p.next(label, def) }

func (p *scriptedPrompter) Choice(label string, choices []string, defaultIndex int) (string, error) {
	return p.next(label, choices[defaultIndex])
}

func (p *scriptedPrompter) Confirm(label string, def bool) (bool, error) {
	p.confirmed = append(p.confirmed, label)
	if p.err != nil {
		return false, p.err
	}
	v, ok := p.confirms[label]
	if !ok {
		return false, fmt.Errorf("unexpected confirmation %q", label)
	}
	return v, nil
}

type fakeRunner struct {
	calls  []host.Request
	fail   map[host.Operation]error
	output map[host.Operation]string
}

func (r *fakeRunner) Run(_ context.Context, req host.Request) (host.Result, error) {
	r.calls = append(r.calls, req)
	if err := r.fail[req.Op]; err != nil {
		return host.Result{}, err
	}
	return host.Result{Output: r.output[req.Op]}, nil
}

func (r *fakeRunner) ops() []string {
	var out []string
	for _, c := range r.calls {
		out = append(out, c.String())
	}
	return out
}

type fakeProber struct {
	err   error
	calls int
}

func (p *fakeProber) Ping(context.Context, map[string]string) error {
	p.calls++
	return p.err
}

type fixture struct {
	dir      string
	paths    Paths
	prompter *scriptedPrompter
	runner   *fakeRunner
	prober   *fakeProber
	out      *bytes.Buffer
	caps     host.Capabilities
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir: dir,
		paths: Paths{
			Env:      filepath.Join(dir, ".env"),
			Template: filepath.Join(dir, ".env.example"),
		},
		prompter: &scriptedPrompter{answers: map[string][]string{}, confirms: map[string]bool{}},
		runner:   &fakeRunner{},
		prober:   &fakeProber{},
		out:      &bytes.Buffer{},
		caps:     host.Capabilities{},
	}
	writeFile(t, f.paths.Template, sampleEnv)
	return f
}

func (f *fixture) orchestrator(settings Settings) *Orchestrator {
	return New(f.paths, Deps{
		Prompter:     f.prompter,
		Validator:    validation.New(),
		Runner:       f.runner,
		Prober:       f.prober,
		Capabilities: f.caps,
		Out:          console.New(f.out),
		Now:          func() time.Time { return time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC) },
	}, settings)
}

func newCollector(p *scriptedPrompter, out io.Writer) *Collector {
	return &Collector{Prompter: p, Validator: validation.New(), Out: console.New(out)}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

type journalEntry struct {
	kind, stage, op, outcome string
	failed                   bool
}

type fakeJournal struct {
	entries []journalEntry
}

func (j *fakeJournal) StartRun(id string, options map[string]bool, at time.Time) error {
	j.entries = append(j.entries, journalEntry{kind: "start"})
	return nil
}

func (j *fakeJournal) RecordStep(id, stage, operation string, stepErr error, at time.Time, took time.Duration) error {
	j.entries = append(j.entries, journalEntry{kind: "step", stage: stage, op: operation, failed: stepErr != nil})
	return nil
}

func (j *fakeJournal) FinishRun(id, outcome, backupPath string, runErr error, at time.Time) error {
	j.entries = append(j.entries, journalEntry{kind: "finish", outcome: outcome, failed: runErr != nil})
	return errors.New("disk full")
}
