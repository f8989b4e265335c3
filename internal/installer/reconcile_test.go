package installer

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kayz/appinstall/internal/envfile"
	"github.com/kayz/appinstall/internal/prompt"
	"github.com/kayz/appinstall/internal/validation"
)

func TestReconcileRewritesRecognizedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	writeFile(t, path, sampleEnv)

	p := &scriptedPrompter{answers: map[string][]string{
		"APP_NAME":      {"My Shop"},
		"DB_CONNECTION": {"pgsql"},
		"DB_PORT":       {"5432"},
		"DB_PASSWORD":   {"p=ss"},
	}}
	r := &Reconciler{Fields: DefaultFields("Laravel"), Collector: newCollector(p, io.Discard)}

	if _, err := r.Reconcile(context.Background(), path); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	got := readFile(t, path)
	for _, want := range []string{
		`APP_NAME="My Shop"` + "\n",
		"DB_CONNECTION=pgsql\n",
		"DB_PORT=5432\n",
		"DB_PASSWORD=p=ss\n",
		"LOG_CHANNEL=stack\n",
		"# database\n",
		"APP_KEY=\n",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in:\n%s", want, got)
		}
	}
	if strings.Contains(strings.Join(p.asked, ","), "LOG_CHANNEL") {
		t.Fatalf("unrecognized key was prompted: %v", p.asked)
	}
	if len(p.asked) != 11 {
		t.Fatalf("expected 11 prompts, got %d: %v", len(p.asked), p.asked)
	}
}

func TestReconcileIsIdempotentOnAcceptedDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	original := "# app\r\nAPP_NAME=\"My Shop\"\r\nAPP_URL=https://shop.test\r\n\r\nDB_PASSWORD='secret'\r\nCUSTOM=value\r\n"
	writeFile(t, path, original)

	r := &Reconciler{
		Fields:    DefaultFields("Laravel"),
		Collector: newCollector(&scriptedPrompter{answers: map[string][]string{}}, io.Discard),
	}
	for i := 0; i < 2; i++ {
		if _, err := r.Reconcile(context.Background(), path); err != nil {
			t.Fatalf("Reconcile #%d: %v", i+1, err)
		}
	}

	want := "# app\r\nAPP_NAME=\"My Shop\"\r\nAPP_URL=https://shop.test\r\n\r\nDB_PASSWORD=secret\r\nCUSTOM=value\r\n"
	if got := readFile(t, path); got != want {
		t.Fatalf("unexpected content:\n%q\nwant\n%q", got, want)
	}
}

func TestReconcileQuotedAnswerStaysReadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	writeFile(t, path, sampleEnv)

	p := &scriptedPrompter{answers: map[string][]string{"APP_NAME": {`My "Best" Shop`}}}
	r := &Reconciler{Fields: DefaultFields("Laravel"), Collector: newCollector(p, io.Discard)}
	if _, err := r.Reconcile(context.Background(), path); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	values, err := envfile.ReadValues(path)
	if err != nil {
		t.Fatalf("ReadValues: %v\n%s", err, readFile(t, path))
	}
	if values["APP_NAME"] != `My "Best" Shop` {
		t.Fatalf("APP_NAME = %q", values["APP_NAME"])
	}

	first := readFile(t, path)
	again := &Reconciler{Fields: DefaultFields("Laravel"), Collector: newCollector(&scriptedPrompter{answers: map[string][]string{}}, io.Discard)}
	if _, err := again.Reconcile(context.Background(), path); err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if got := readFile(t, path); got != first {
		t.Fatalf("accepting defaults changed the file:\n%q\nwant\n%q", got, first)
	}
}

func TestReconcileCaptureAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	writeFile(t, path, "APP_NAME=Shop\nMAIL_HOST=smtp.test\n# MAIL_PORT=25\n")

	p := &scriptedPrompter{answers: map[string][]string{"MAIL_HOST": {"mail.example.com"}}}
	r := &Reconciler{Fields: DefaultFields("Laravel"), Collector: newCollector(p, io.Discard), CaptureAll: true}
	if _, err := r.Reconcile(context.Background(), path); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if got := readFile(t, path); got != "APP_NAME=Shop\nMAIL_HOST=mail.example.com\n# MAIL_PORT=25\n" {
		t.Fatalf("unexpected content %q", got)
	}
	if len(p.asked) != 2 {
		t.Fatalf("comments must not be prompted: %v", p.asked)
	}
}

func TestReconcileKeepsEarlierAnswersOnInterrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	writeFile(t, path, "APP_NAME=Old\nAPP_URL=http://localhost\n")

	p := &interruptAfter{scriptedPrompter: scriptedPrompter{answers: map[string][]string{"APP_NAME": {"New"}}}, remaining: 1}
	r := &Reconciler{Fields: DefaultFields("Laravel"), Collector: &Collector{Prompter: p, Validator: validation.New()}}

	_, err := r.Reconcile(context.Background(), path)
	if !errors.Is(err, prompt.ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got %v", err)
	}
	if got := readFile(t, path); got != "APP_NAME=New\nAPP_URL=http://localhost\n" {
		t.Fatalf("first answer not persisted: %q", got)
	}
}

func TestReconcileMissingFile(t *testing.T) {
	r := &Reconciler{Fields: DefaultFields("Laravel"), Collector: newCollector(&scriptedPrompter{}, io.Discard)}
	if _, err := r.Reconcile(context.Background(), filepath.Join(t.TempDir(), ".env")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

// interruptAfter answers `remaining` prompts, then reports an interrupt.
type interruptAfter struct {
	scriptedPrompter
	remaining int
}

func (p *interruptAfter) Ask(label, def string) (string, error) {
	if p.remaining == 0 {
		return "", prompt.ErrInterrupted
	}
	p.remaining--
	return p.scriptedPrompter.Ask(label, def)
}
