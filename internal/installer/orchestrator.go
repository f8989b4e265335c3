// Package installer drives an application install: it rebuilds the
// environment file through validated prompts and then delegates key
// generation, migrations, seeding and optional package setup to the host.
package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kayz/appinstall/internal/console"
	"github.com/kayz/appinstall/internal/dbprobe"
	"github.com/kayz/appinstall/internal/envfile"
	"github.com/kayz/appinstall/internal/host"
	"github.com/kayz/appinstall/internal/logger"
	"github.com/kayz/appinstall/internal/prompt"
	"github.com/kayz/appinstall/internal/validation"
)

// Options are captured once at the start of a run.
type Options struct {
	// SetEnv forces the environment file to be reconciled.
	SetEnv bool
	// Modules makes module seeding eligible and runs it unprompted.
	Modules bool
	// Force answers yes to every confirmation, including destructive ones.
	Force bool
	// CaptureAll prompts for every KEY=VALUE line, not just recognized keys.
	CaptureAll bool
}

// Flags returns the options keyed by their command-line names.
func (o Options) Flags() map[string]bool {
	return map[string]bool{
		"set-env":       o.SetEnv,
		"modules":       o.Modules,
		"force":         o.Force,
		"all-variables": o.CaptureAll,
	}
}

type Outcome string

const (
	OutcomeCompleted  Outcome = "completed"
	OutcomeAborted    Outcome = "aborted"
	OutcomeEnvWritten Outcome = "env-written"
	OutcomeFailed     Outcome = "failed"
)

type Result struct {
	Outcome    Outcome
	BackupPath string
	AuthOutput string
	AppURL     string
}

// Stage names a step of the install sequence.
type Stage string

const (
	StageBootstrap        Stage = "bootstrap"
	StageBackup           Stage = "backup"
	StageEnvSetup         Stage = "env-setup"
	StageKeyGeneration    Stage = "key-generation"
	StageMigration        Stage = "migration"
	StageAuthProvisioning Stage = "auth-provisioning"
	StageSeeding          Stage = "seeding"
	StageModuleSeeding    Stage = "module-seeding"
	StageUserCreation     Stage = "user-creation"
	StageReport           Stage = "report"
)

// StageError reports a failed step. Backup is set when a backup of the
// environment file was written earlier in the run.
type StageError struct {
	Stage  Stage
	Op     host.Operation
	Backup string
	Err    error
}

func (e *StageError) Error() string {
	var b strings.Builder
	b.WriteString("stage ")
	b.WriteString(string(e.Stage))
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(string(e.Op))
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if e.Backup != "" {
		b.WriteString(" (previous environment saved at ")
		b.WriteString(e.Backup)
		b.WriteString(")")
	}
	return b.String()
}

func (e *StageError) Unwrap() error { return e.Err }

// Paths locates the environment file and the template it is created from.
type Paths struct {
	Env      string
	Template string
}

// Journal records runs and their delegated steps.
type Journal interface {
	StartRun(id string, options map[string]bool, at time.Time) error
	RecordStep(id, stage, operation string, stepErr error, at time.Time, took time.Duration) error
	FinishRun(id, outcome, backupPath string, runErr error, at time.Time) error
}

// Deps are the orchestrator's collaborators.
type Deps struct {
	Prompter     prompt.Prompter
	Validator    validation.Validator
	Runner       host.Runner
	Prober       dbprobe.Prober
	Capabilities host.Capabilities
	// Out receives operator messages. Defaults to discarding them.
	Out *console.Output
	// Journal is optional. Recording failures are logged, never fatal.
	Journal Journal
	// Now stamps backups and journal entries. Defaults to time.Now.
	Now func() time.Time
}

// Settings tune how answers are collected.
type Settings struct {
	AppName        string
	MaxAttempts    int
	Prefill        map[string]string
	NonInteractive bool
}

type Orchestrator struct {
	paths     Paths
	deps      Deps
	settings  Settings
	fields    FieldTable
	collector *Collector
	runID     string
}

func New(paths Paths, deps Deps, settings Settings) *Orchestrator {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Capabilities == nil {
		deps.Capabilities = host.Capabilities{}
	}
	if deps.Out == nil {
		deps.Out = console.New(io.Discard)
	}
	if settings.AppName == "" {
		settings.AppName = "Laravel"
	}
	return &Orchestrator{
		paths:    paths,
		deps:     deps,
		settings: settings,
		fields:   DefaultFields(settings.AppName),
		collector: &Collector{
			Prompter:       deps.Prompter,
			Validator:      deps.Validator,
			Out:            deps.Out,
			MaxAttempts:    settings.MaxAttempts,
			Prefill:        settings.Prefill,
			NonInteractive: settings.NonInteractive,
		},
		runID: uuid.NewString()[:8],
	}
}

// RunID identifies this orchestrator's run in logs and the journal.
func (o *Orchestrator) RunID() string { return o.runID }

// Run executes the install sequence. Declining a destructive step or
// interrupting a prompt ends the run with OutcomeAborted and a nil error.
// Any other failure returns OutcomeFailed together with the error.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{}
	logger.Info("[Install %s] starting (set-env=%v force=%v modules=%v capture-all=%v)",
		o.runID, opts.SetEnv, opts.Force, opts.Modules, opts.CaptureAll)
	o.journal("start", func(j Journal) error {
		return j.StartRun(o.runID, opts.Flags(), o.deps.Now())
	})

	err := o.run(ctx, opts, res)
	switch {
	case err == nil:
		logger.Info("[Install %s] finished: %s", o.runID, res.Outcome)
	case errors.Is(err, prompt.ErrInterrupted), errors.Is(err, context.Canceled):
		logger.Info("[Install %s] interrupted: %v", o.runID, err)
		o.deps.Out.Warn("Installation aborted.")
		res.Outcome = OutcomeAborted
		err = nil
	default:
		logger.Error("[Install %s] failed: %v", o.runID, err)
		res.Outcome = OutcomeFailed
	}

	o.journal("finish", func(j Journal) error {
		return j.FinishRun(o.runID, string(res.Outcome), res.BackupPath, err, o.deps.Now())
	})
	return res, err
}

func (o *Orchestrator) journal(what string, record func(Journal) error) {
	if o.deps.Journal == nil {
		return
	}
	if err := record(o.deps.Journal); err != nil {
		logger.Warn("[Install %s] journal %s: %v", o.runID, what, err)
	}
}

func (o *Orchestrator) run(ctx context.Context, opts Options, res *Result) error {
	exists, probeOK := o.bootstrap(ctx)
	if !exists || !probeOK {
		opts.SetEnv = true
	}

	if exists {
		proceed, err := o.confirmReinstall(opts)
		if err != nil {
			return &StageError{Stage: StageBackup, Err: err}
		}
		if !proceed {
			o.deps.Out.Warn("Installation aborted.")
			res.Outcome = OutcomeAborted
			return nil
		}
		if err := o.backup(ctx, probeOK, res); err != nil {
			return err
		}
	} else {
		o.deps.Out.Info("Installing the application...")
	}

	if opts.SetEnv {
		if err := o.setupEnv(ctx, exists, opts); err != nil {
			return &StageError{Stage: StageEnvSetup, Backup: res.BackupPath, Err: err}
		}
		res.Outcome = OutcomeEnvWritten
		o.deps.Out.Rule()
		o.deps.Out.Info("The environment file has been written.")
		o.deps.Out.Info("Run the installer again to generate the application key, migrate and seed the database.")
		return nil
	}

	values, err := envfile.ReadValues(o.paths.Env)
	if err != nil {
		return &StageError{Stage: StageKeyGeneration, Backup: res.BackupPath, Err: err}
	}
	res.AppURL = values["APP_URL"]

	steps := []func(context.Context, Options, map[string]string, *Result) error{
		o.generateKey,
		o.migrate,
		o.installAuth,
		o.seed,
		o.seedModules,
		o.createUser,
	}
	for _, step := range steps {
		if err := step(ctx, opts, values, res); err != nil {
			return err
		}
	}

	o.report(res)
	res.Outcome = OutcomeCompleted
	return nil
}

// bootstrap reports whether the env file exists and whether the database it
// points at is reachable.
func (o *Orchestrator) bootstrap(ctx context.Context) (exists, probeOK bool) {
	if !envfile.Exists(o.paths.Env) {
		logger.Info("[Install %s] %s not found, it will be created from %s", o.runID, o.paths.Env, o.paths.Template)
		return false, false
	}

	values, err := envfile.ReadValues(o.paths.Env)
	if err != nil {
		logger.Warn("[Install %s] cannot parse %s: %v", o.runID, o.paths.Env, err)
		return true, false
	}
	if o.deps.Prober == nil {
		return true, true
	}
	if err := o.deps.Prober.Ping(ctx, values); err != nil {
		logger.Warn("[Install %s] database not reachable, environment will be reconfigured: %v", o.runID, err)
		o.deps.Out.Warn("Could not connect to the database with the current settings.")
		return true, false
	}
	logger.Debug("[Install %s] database reachable", o.runID)
	return true, true
}

func (o *Orchestrator) confirmReinstall(opts Options) (bool, error) {
	o.deps.Out.Rule()
	if opts.Force {
		o.deps.Out.Warn("The environment file already exists.")
		o.deps.Out.Warn("Running with --force will destroy all data in the database.")
		o.deps.Out.Warn("A backup of the current environment file will be created. Cancel and run without --force to keep your data.")
	} else {
		o.deps.Out.Warn("The environment file already exists.")
		o.deps.Out.Warn("Re-installing will create a backup of the current environment file.")
	}
	return o.confirm(opts, "Are you sure you want to continue?", false)
}

func (o *Orchestrator) backup(ctx context.Context, probeOK bool, res *Result) error {
	o.deps.Out.Info("Creating a backup of the environment file...")
	path, err := envfile.Backup(o.paths.Env, o.deps.Now())
	if err != nil {
		return &StageError{Stage: StageBackup, Err: err}
	}
	res.BackupPath = path
	o.deps.Out.Info("Backup written to %s", path)
	logger.Info("[Install %s] env backup %s", o.runID, path)

	if !probeOK || !o.deps.Capabilities.Has(host.DatabaseBackup) {
		return nil
	}
	o.deps.Out.Info("Backing up the database...")
	_, err = o.delegate(ctx, StageBackup, host.Request{Op: host.BackupDatabase, Flags: []string{host.FlagOnlyDB}}, res)
	return err
}

func (o *Orchestrator) setupEnv(ctx context.Context, exists bool, opts Options) error {
	if !exists {
		if !envfile.Exists(o.paths.Template) {
			return fmt.Errorf("template %s not found", o.paths.Template)
		}
		if err := envfile.CopyFile(o.paths.Template, o.paths.Env); err != nil {
			return fmt.Errorf("failed to create %s: %w", o.paths.Env, err)
		}
		logger.Info("[Install %s] created %s from %s", o.runID, o.paths.Env, o.paths.Template)
	}

	o.deps.Out.Rule()
	o.deps.Out.Info("Setting up the environment...")

	r := &Reconciler{Fields: o.fields, Collector: o.collector, CaptureAll: opts.CaptureAll}
	_, err := r.Reconcile(ctx, o.paths.Env)
	return err
}

func (o *Orchestrator) generateKey(ctx context.Context, _ Options, values map[string]string, res *Result) error {
	if strings.TrimSpace(values["APP_KEY"]) != "" {
		logger.Debug("[Install %s] APP_KEY already set", o.runID)
		return nil
	}
	o.deps.Out.Info("Generating the application key...")
	_, err := o.delegate(ctx, StageKeyGeneration, host.Request{Op: host.GenerateKey}, res)
	return err
}

func (o *Orchestrator) migrate(ctx context.Context, opts Options, _ map[string]string, res *Result) error {
	ok, err := o.confirm(opts, "Do you want to migrate the database?", false)
	if err != nil || !ok {
		return err
	}
	fresh, err := o.confirm(opts, "Do you want to drop all tables first?", false)
	if err != nil {
		return err
	}

	op := host.Migrate
	if fresh {
		op = host.MigrateFresh
	}
	o.deps.Out.Info("Migrating the database...")
	_, err = o.delegate(ctx, StageMigration, host.Request{Op: op}, res)
	return err
}

func (o *Orchestrator) installAuth(ctx context.Context, opts Options, _ map[string]string, res *Result) error {
	if !o.deps.Capabilities.Has(host.AuthProvisioning) {
		return nil
	}
	ok, err := o.confirm(opts, "Do you want to install auth provisioning?", false)
	if err != nil || !ok {
		return err
	}

	var flags []string
	regen, err := o.confirm(opts, "Do you want to regenerate encryption keys?", false)
	if err != nil {
		return err
	}
	if regen {
		flags = append(flags, host.FlagUUIDs)
	}
	overwrite, err := o.confirm(opts, "Do you want to overwrite existing keys?", false)
	if err != nil {
		return err
	}
	if overwrite {
		flags = append(flags, host.FlagForce)
	}

	o.deps.Out.Info("Installing auth provisioning...")
	out, err := o.delegate(ctx, StageAuthProvisioning, host.Request{Op: host.InstallAuth, Flags: flags, Capture: true}, res)
	if err != nil {
		return err
	}
	res.AuthOutput = out
	return nil
}

func (o *Orchestrator) seed(ctx context.Context, opts Options, _ map[string]string, res *Result) error {
	ok, err := o.confirm(opts, "Do you want to seed the database?", false)
	if err != nil || !ok {
		return err
	}
	o.deps.Out.Info("Seeding the database...")
	_, err = o.delegate(ctx, StageSeeding, host.Request{Op: host.Seed}, res)
	return err
}

func (o *Orchestrator) seedModules(ctx context.Context, opts Options, _ map[string]string, res *Result) error {
	if !opts.Modules && !o.deps.Capabilities.Has(host.Modules) {
		return nil
	}
	if !opts.Modules {
		ok, err := o.confirm(opts, "Do you want to seed the modules?", false)
		if err != nil || !ok {
			return err
		}
	}
	o.deps.Out.Info("Seeding the modules...")
	_, err := o.delegate(ctx, StageModuleSeeding, host.Request{Op: host.SeedModules}, res)
	return err
}

func (o *Orchestrator) createUser(ctx context.Context, opts Options, _ map[string]string, res *Result) error {
	if !o.deps.Capabilities.Has(host.UserCreation) {
		return nil
	}
	ok, err := o.confirm(opts, "Do you want to create a user?", false)
	if err != nil || !ok {
		return err
	}
	o.deps.Out.Info("Creating a user...")
	_, err = o.delegate(ctx, StageUserCreation, host.Request{Op: host.CreateUser, Flags: []string{host.FlagNoInteraction}}, res)
	return err
}

func (o *Orchestrator) report(res *Result) {
	o.deps.Out.Rule()
	if res.AuthOutput != "" {
		o.deps.Out.Line("%s", strings.TrimRight(res.AuthOutput, "\n"))
		o.deps.Out.Rule()
	}
	url := res.AppURL
	if url == "" {
		url = "http://localhost"
	}
	o.deps.Out.Info("Installation complete. You can now run the application by visiting %s in your browser.", url)
}

// confirm asks a yes/no question. Force answers yes; non-interactive runs
// take the default.
func (o *Orchestrator) confirm(opts Options, question string, def bool) (bool, error) {
	if opts.Force {
		logger.Debug("[Install %s] --force: %q -> yes", o.runID, question)
		return true, nil
	}
	if o.settings.NonInteractive {
		logger.Debug("[Install %s] non-interactive: %q -> %v", o.runID, question, def)
		return def, nil
	}
	return o.deps.Prompter.Confirm(question, def)
}

func (o *Orchestrator) delegate(ctx context.Context, stage Stage, req host.Request, res *Result) (string, error) {
	logger.Info("[Install %s] %s: running %s", o.runID, stage, req)
	start := o.deps.Now()
	began := time.Now()
	out, err := o.deps.Runner.Run(ctx, req)
	took := time.Since(began)
	o.journal("step", func(j Journal) error {
		return j.RecordStep(o.runID, string(stage), string(req.Op), err, start, took)
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &StageError{Stage: stage, Op: req.Op, Backup: res.BackupPath, Err: err}
	}
	logger.Debug("[Install %s] %s finished in %s", o.runID, req.Op, took.Round(time.Millisecond))
	return out.Output, nil
}
