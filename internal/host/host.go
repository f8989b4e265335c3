// Package host delegates named operations to the application's own console
// (for example `php artisan`) and tracks which optional packages the
// application has installed.
package host

import (
	"context"
	"fmt"
	"strings"
)

// Operation is a named host console operation.
type Operation string

const (
	GenerateKey    Operation = "generate-key"
	Migrate        Operation = "migrate"
	MigrateFresh   Operation = "migrate-fresh"
	Seed           Operation = "seed"
	SeedModules    Operation = "seed-modules"
	BackupDatabase Operation = "backup-database"
	InstallAuth    Operation = "install-auth-provisioning"
	CreateUser     Operation = "create-user"
)

// Operations lists every known operation.
var Operations = []Operation{
	GenerateKey, Migrate, MigrateFresh, Seed, SeedModules, BackupDatabase, InstallAuth, CreateUser,
}

// Flags understood by the default command table.
const (
	FlagOnlyDB        = "only-db"
	FlagUUIDs         = "uuids"
	FlagForce         = "force"
	FlagNoInteraction = "no-interaction"
)

// DefaultCommands maps operations to Laravel artisan arguments.
var DefaultCommands = map[Operation][]string{
	GenerateKey:    {"key:generate", "--force"},
	Migrate:        {"migrate", "--force"},
	MigrateFresh:   {"migrate:fresh", "--force"},
	Seed:           {"db:seed", "--force"},
	SeedModules:    {"module:seed"},
	BackupDatabase: {"backup:run"},
	InstallAuth:    {"passport:install"},
	CreateUser:     {"make:user"},
}

// Request is one operation invocation.
type Request struct {
	Op    Operation
	Flags []string
	// Capture asks the runner to return the command's standard output.
	Capture bool
}

func (r Request) String() string {
	if len(r.Flags) == 0 {
		return string(r.Op)
	}
	return fmt.Sprintf("%s --%s", r.Op, strings.Join(r.Flags, " --"))
}

// Result is what a finished operation reports back.
type Result struct {
	Output string
}

// Runner executes host operations synchronously.
type Runner interface {
	Run(ctx context.Context, req Request) (Result, error)
}

// ParseOperation validates an operation name.
func ParseOperation(name string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Operations {
		if op == known {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown host operation %q", name)
}
