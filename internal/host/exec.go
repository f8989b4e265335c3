package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/kayz/appinstall/internal/logger"
)

// ExecRunner runs operations as subprocesses of the host console.
type ExecRunner struct {
	// Command is the console entry point, e.g. ["php", "artisan"].
	Command []string
	// Dir is the working directory, normally the application root.
	Dir string
	// Commands overrides DefaultCommands per operation.
	Commands map[Operation][]string
	Stdout   io.Writer
	Stderr   io.Writer
	Stdin    io.Reader
}

// NewExecRunner creates a runner that streams to the process stdio.
func NewExecRunner(command []string, dir string, overrides map[Operation][]string) *ExecRunner {
	return &ExecRunner{
		Command:  command,
		Dir:      dir,
		Commands: overrides,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Stdin:    os.Stdin,
	}
}

// Args returns the argv for req.
func (r *ExecRunner) Args(req Request) ([]string, error) {
	if len(r.Command) == 0 {
		return nil, errors.New("host command is not configured")
	}
	opArgs, ok := r.Commands[req.Op]
	if !ok {
		opArgs, ok = DefaultCommands[req.Op]
	}
	if !ok {
		return nil, fmt.Errorf("no host command for operation %q", req.Op)
	}

	args := make([]string, 0, len(r.Command)+len(opArgs)+len(req.Flags))
	args = append(args, r.Command...)
	args = append(args, opArgs...)
	for _, flag := range req.Flags {
		if strings.HasPrefix(flag, "-") {
			args = append(args, flag)
			continue
		}
		args = append(args, "--"+flag)
	}
	return args, nil
}

// Run executes req and waits for it to finish.
func (r *ExecRunner) Run(ctx context.Context, req Request) (Result, error) {
	args, err := r.Args(req)
	if err != nil {
		return Result{}, err
	}

	logger.Debug("[Host] exec %s", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = r.Dir
	cmd.Stdin = r.Stdin
	cmd.Stderr = r.Stderr

	var captured bytes.Buffer
	switch {
	case req.Capture && r.Stdout != nil:
		cmd.Stdout = io.MultiWriter(r.Stdout, &captured)
	case req.Capture:
		cmd.Stdout = &captured
	default:
		cmd.Stdout = r.Stdout
	}

	if err := cmd.Run(); err != nil {
		return Result{Output: captured.String()}, fmt.Errorf("%s failed: %w", req, err)
	}
	return Result{Output: captured.String()}, nil
}
