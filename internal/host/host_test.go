package host

import (
	"bytes"
	"context"
	"reflect"
	"runtime"
	"strings"
	"testing"
)

func TestExecRunnerArgs(t *testing.T) {
	r := &ExecRunner{
		Command:  []string{"php", "artisan"},
		Commands: map[Operation][]string{SeedModules: {"modules:seed", "--all"}},
	}

	tests := []struct {
		req  Request
		want []string
	}{
		{req: Request{Op: Migrate}, want: []string{"php", "artisan", "migrate", "--force"}},
		{req: Request{Op: SeedModules}, want: []string{"php", "artisan", "modules:seed", "--all"}},
		{req: Request{Op: BackupDatabase, Flags: []string{FlagOnlyDB}}, want: []string{"php", "artisan", "backup:run", "--only-db"}},
		{req: Request{Op: CreateUser, Flags: []string{"-S"}}, want: []string{"php", "artisan", "make:user", "-S"}},
	}

	for _, tt := range tests {
		got, err := r.Args(tt.req)
		if err != nil {
			t.Fatalf("Args(%s) error: %v", tt.req, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("Args(%s) = %v, want %v", tt.req, got, tt.want)
		}
	}
}

func TestExecRunnerArgsErrors(t *testing.T) {
	if _, err := (&ExecRunner{}).Args(Request{Op: Migrate}); err == nil {
		t.Fatalf("expected error without host command")
	}
	r := &ExecRunner{Command: []string{"php", "artisan"}}
	if _, err := r.Args(Request{Op: "dance"}); err == nil {
		t.Fatalf("expected error for unknown operation")
	}
}

func TestExecRunnerCapturesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses echo")
	}
	var stdout bytes.Buffer
	r := &ExecRunner{
		Command: []string{"echo"},
		Stdout:  &stdout,
	}

	res, err := r.Run(context.Background(), Request{Op: InstallAuth, Flags: []string{FlagUUIDs}, Capture: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.TrimSpace(res.Output) != "passport:install --uuids" {
		t.Fatalf("captured output = %q", res.Output)
	}
	if stdout.String() != res.Output {
		t.Fatalf("stdout should mirror captured output, got %q", stdout.String())
	}
}

func TestExecRunnerReportsFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses false")
	}
	r := &ExecRunner{Command: []string{"false"}}
	if _, err := r.Run(context.Background(), Request{Op: Migrate}); err == nil {
		t.Fatalf("expected failure from false")
	}
}

func TestCapabilities(t *testing.T) {
	caps, err := NewCapabilities("modules", " Auth-Provisioning ", "")
	if err != nil {
		t.Fatalf("NewCapabilities: %v", err)
	}
	if !caps.Has(Modules) || !caps.Has(AuthProvisioning) || caps.Has(UserCreation) {
		t.Fatalf("unexpected registry %v", caps.Names())
	}
	if got := caps.Names(); !reflect.DeepEqual(got, []string{"auth-provisioning", "modules"}) {
		t.Fatalf("Names() = %v", got)
	}
	if _, err := NewCapabilities("passport"); err == nil {
		t.Fatalf("expected error for unknown capability")
	}

	var none Capabilities
	if none.Has(Modules) {
		t.Fatalf("nil registry should be empty")
	}
}

func TestParseOperation(t *testing.T) {
	if op, err := ParseOperation(" Migrate-Fresh "); err != nil || op != MigrateFresh {
		t.Fatalf("ParseOperation = %q, %v", op, err)
	}
	if _, err := ParseOperation("deploy"); err == nil {
		t.Fatalf("expected error")
	}
}
