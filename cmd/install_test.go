package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kayz/appinstall/internal/config"
	"github.com/kayz/appinstall/internal/console"
	"github.com/kayz/appinstall/internal/envfile"
	"github.com/kayz/appinstall/internal/host"
	"github.com/kayz/appinstall/internal/persist"
)

func useAppDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prev := appDir
	appDir = dir
	t.Cleanup(func() { appDir = prev })
	return dir
}

func TestParseSetValues(t *testing.T) {
	got, err := parseSetValues([]string{"APP_URL=https://shop.test", " DB_PASSWORD = a=b ", "APP_KEY="})
	if err != nil {
		t.Fatalf("parseSetValues: %v", err)
	}
	want := map[string]string{"APP_URL": "https://shop.test", "DB_PASSWORD": "a=b", "APP_KEY": ""}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parseSetValues = %#v, want %#v", got, want)
	}

	for _, bad := range []string{"APP_URL", "=value"} {
		if _, err := parseSetValues([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestCommandOverrides(t *testing.T) {
	got, err := commandOverrides(map[string][]string{"seed-modules": {"module:seed", "--all"}})
	if err != nil {
		t.Fatalf("commandOverrides: %v", err)
	}
	if !reflect.DeepEqual(got[host.SeedModules], []string{"module:seed", "--all"}) {
		t.Fatalf("unexpected overrides %#v", got)
	}
	if _, err := commandOverrides(map[string][]string{"deploy": {"deploy"}}); err == nil {
		t.Fatalf("unknown operation should fail")
	}
	if _, err := commandOverrides(map[string][]string{"seed": nil}); err == nil {
		t.Fatalf("empty command should fail")
	}
}

func TestWatchInterruptWarnsOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stopped := 0
	var out bytes.Buffer

	release := watchInterrupt(ctx, func() { stopped++ }, console.New(&out))
	cancel()
	release()

	if stopped != 1 {
		t.Fatalf("stop called %d times, want 1", stopped)
	}
	if !strings.Contains(out.String(), "Ctrl+C again") {
		t.Fatalf("missing hint in %q", out.String())
	}
}

func TestWatchInterruptQuietOnNormalExit(t *testing.T) {
	stopped := 0
	var out bytes.Buffer

	release := watchInterrupt(context.Background(), func() { stopped++ }, console.New(&out))
	release()

	if stopped != 0 || out.Len() != 0 {
		t.Fatalf("unexpected interrupt handling: stopped=%d output=%q", stopped, out.String())
	}
}

func TestRestoreCommandRestoresNewestBackup(t *testing.T) {
	dir := useAppDir(t)
	envPath := filepath.Join(dir, ".env")
	writeTestFile(t, envPath, "APP_NAME=Broken\n")
	writeTestFile(t, envPath+".backup.2024-01-01_10-00-00", "APP_NAME=Old\n")
	writeTestFile(t, envPath+".backup.2024-02-01_10-00-00", "APP_NAME=Good\n")

	cmd := newRestoreCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--force"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute restore: %v\noutput=%s", err, out.String())
	}

	if got := readTestFile(t, envPath); got != "APP_NAME=Good\n" {
		t.Fatalf("restored content = %q", got)
	}
	backups, err := envfile.ListBackups(envPath)
	if err != nil || len(backups) != 3 {
		t.Fatalf("current file should be backed up first: %v %v", backups, err)
	}
	if readTestFile(t, backups[0]) != "APP_NAME=Broken\n" {
		t.Fatalf("newest backup should hold the replaced file")
	}
}

func TestRestoreCommandDeclined(t *testing.T) {
	dir := useAppDir(t)
	envPath := filepath.Join(dir, ".env")
	writeTestFile(t, envPath, "APP_NAME=Current\n")
	writeTestFile(t, envPath+".backup.2024-01-01_10-00-00", "APP_NAME=Old\n")

	cmd := newRestoreCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader("no\n"))
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute restore: %v", err)
	}
	if !strings.Contains(out.String(), "Aborted.") {
		t.Fatalf("expected abort, got %q", out.String())
	}
	if readTestFile(t, envPath) != "APP_NAME=Current\n" {
		t.Fatalf("env changed after decline")
	}
}

func TestRestoreCommandList(t *testing.T) {
	dir := useAppDir(t)
	envPath := filepath.Join(dir, ".env")
	writeTestFile(t, envPath+".backup.2024-01-01_10-00-00", "A=1\n")
	writeTestFile(t, envPath+".backup.2024-02-01_10-00-00", "A=2\n")

	cmd := newRestoreCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--list"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute restore --list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || !strings.HasSuffix(lines[0], "2024-02-01_10-00-00") {
		t.Fatalf("unexpected listing %q", out.String())
	}
}

func TestCheckCommandMissingEnv(t *testing.T) {
	useAppDir(t)

	cmd := newCheckCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); !errors.Is(err, errNeedsSetup) {
		t.Fatalf("expected errNeedsSetup, got %v", err)
	}
	if !strings.Contains(out.String(), "not found") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestCheckCommandSQLite(t *testing.T) {
	dir := useAppDir(t)
	if err := os.MkdirAll(filepath.Join(dir, "database"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeTestFile(t, filepath.Join(dir, "database", "database.sqlite"), "")
	writeTestFile(t, filepath.Join(dir, ".env"), "APP_KEY=base64:abc=\nDB_CONNECTION=sqlite\n")

	cmd := newCheckCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("check: %v\noutput=%s", err, out.String())
	}
	if !strings.Contains(out.String(), "Database connection OK (sqlite)") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestConfigInitAndShow(t *testing.T) {
	dir := useAppDir(t)

	initCmd := newConfigCommand()
	var out bytes.Buffer
	initCmd.SetOut(&out)
	initCmd.SetArgs([]string{"init", "--capability", "modules,auth-provisioning"})
	if err := initCmd.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}

	cfg, used, err := config.Load(dir)
	if err != nil || used == "" {
		t.Fatalf("load written config: %v %q", err, used)
	}
	if !reflect.DeepEqual(cfg.Capabilities, []string{"auth-provisioning", "modules"}) {
		t.Fatalf("capabilities = %#v", cfg.Capabilities)
	}

	again := newConfigCommand()
	again.SetOut(&out)
	again.SetErr(&out)
	again.SetArgs([]string{"init"})
	if err := again.Execute(); err == nil {
		t.Fatalf("init should refuse to overwrite without --force")
	}

	show := newConfigCommand()
	var shown bytes.Buffer
	show.SetOut(&shown)
	show.SetArgs([]string{"show"})
	if err := show.Execute(); err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(shown.String(), "- auth-provisioning") || !strings.Contains(shown.String(), "artisan") {
		t.Fatalf("unexpected show output:\n%s", shown.String())
	}
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readTestFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestHistoryCommandListsRuns(t *testing.T) {
	dir := useAppDir(t)
	store, err := persist.NewStore(filepath.Join(dir, ".appinstall", "history.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	start := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	if err := store.StartRun("abcd1234", map[string]bool{"force": true, "modules": false}, start); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := store.RecordStep("abcd1234", "migration", "migrate-fresh", nil, start, time.Second); err != nil {
		t.Fatalf("RecordStep: %v", err)
	}
	if err := store.FinishRun("abcd1234", "completed", "", nil, start.Add(time.Minute)); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	store.Close()

	cmd := newHistoryCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out.String(), "abcd1234") || !strings.Contains(out.String(), "completed  --force") {
		t.Fatalf("unexpected listing %q", out.String())
	}

	detail := newHistoryCommand()
	out.Reset()
	detail.SetOut(&out)
	detail.SetArgs([]string{"abcd1234"})
	if err := detail.Execute(); err != nil {
		t.Fatalf("history abcd1234: %v", err)
	}
	if !strings.Contains(out.String(), "migration  migrate-fresh  ok  1s") {
		t.Fatalf("unexpected detail %q", out.String())
	}
}

func TestHistoryCommandWithoutJournal(t *testing.T) {
	useAppDir(t)

	cmd := newHistoryCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out.String(), "No runs recorded yet.") {
		t.Fatalf("unexpected output %q", out.String())
	}
}
