package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kayz/appinstall/internal/console"
	"github.com/kayz/appinstall/internal/dbprobe"
	"github.com/kayz/appinstall/internal/host"
	"github.com/kayz/appinstall/internal/installer"
	"github.com/kayz/appinstall/internal/logger"
	"github.com/kayz/appinstall/internal/persist"
	"github.com/kayz/appinstall/internal/prompt"
	"github.com/kayz/appinstall/internal/validation"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	installSetEnv         bool
	installModules        bool
	installForce          bool
	installAllVariables   bool
	installNonInteractive bool
	installTUI            bool
	installMaxAttempts    int
	installSetValues      []string
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the application",
	Long: `Install the application in --dir.

A missing .env is created from .env.example and every application and
database setting is asked for, then the installer stops so the new settings
take effect. Run it again to generate the application key, migrate and seed
the database and set up optional packages.

An existing .env is backed up before anything is changed.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)

	installCmd.Flags().BoolVar(&installSetEnv, "set-env", false, "Reconfigure the environment file even if it works")
	installCmd.Flags().BoolVar(&installModules, "modules", false, "Seed modules without asking")
	installCmd.Flags().BoolVarP(&installForce, "force", "f", false, "Answer yes to every question, including destructive ones")
	installCmd.Flags().BoolVar(&installAllVariables, "all-variables", false, "Ask for every variable in the environment file")
	installCmd.Flags().BoolVar(&installNonInteractive, "non-interactive", false, "Never prompt; use --set values and defaults")
	installCmd.Flags().BoolVar(&installTUI, "tui", false, "Use the interactive terminal UI for prompts")
	installCmd.Flags().IntVar(&installMaxAttempts, "max-attempts", 0, "Give up on a field after this many invalid answers (0 = never)")
	installCmd.Flags().StringArrayVar(&installSetValues, "set", nil, "Pre-fill answers as KEY=VALUE (repeatable); KEY= clears an optional value")
}

func runInstall(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir, err := appRoot()
	if err != nil {
		return err
	}

	prefill, err := parseSetValues(installSetValues)
	if err != nil {
		return err
	}
	caps, err := host.NewCapabilities(cfg.Capabilities...)
	if err != nil {
		return err
	}
	overrides, err := commandOverrides(cfg.Host.Commands)
	if err != nil {
		return err
	}

	maxAttempts := cfg.Prompt.MaxAttempts
	if cmd.Flags().Changed("max-attempts") {
		maxAttempts = installMaxAttempts
	}
	style := cfg.Prompt.Style
	if installTUI {
		style = "tui"
	}

	out := console.New(cmd.OutOrStdout())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer watchInterrupt(ctx, stop, out)()

	var journal installer.Journal
	if path := cfg.JournalPath(dir); path != "" {
		store, err := persist.NewStore(path)
		if err != nil {
			logger.Warn("[Install] run history disabled: %v", err)
		} else {
			defer store.Close()
			journal = store
		}
	}

	o := installer.New(
		installer.Paths{Env: cfg.EnvPath(dir), Template: cfg.TemplatePath(dir)},
		installer.Deps{
			Prompter:     newPrompter(style, os.Stdin, cmd.OutOrStdout()),
			Validator:    validation.New(),
			Runner:       host.NewExecRunner(cfg.Host.Command, dir, overrides),
			Prober:       &dbprobe.SQLProber{BaseDir: dir, Timeout: cfg.Probe.Timeout},
			Capabilities: caps,
			Out:          out,
			Journal:      journal,
		},
		installer.Settings{
			AppName:        cfg.App.DefaultName,
			MaxAttempts:    maxAttempts,
			Prefill:        prefill,
			NonInteractive: installNonInteractive,
		},
	)

	res, err := o.Run(ctx, installer.Options{
		SetEnv:     installSetEnv,
		Modules:    installModules,
		Force:      installForce,
		CaptureAll: installAllVariables,
	})
	if err != nil {
		return fmt.Errorf("installation failed (run %s): %w", o.RunID(), err)
	}
	logger.Debug("[Install] run %s outcome %s", o.RunID(), res.Outcome)
	return nil
}

// watchInterrupt reacts to the first signal: it restores default signal
// handling so a second one terminates, and tells the operator so, since a
// pending line prompt keeps waiting for input. The returned func stops the
// watch and waits for it to exit.
func watchInterrupt(ctx context.Context, stop func(), out *console.Output) func() {
	finished := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
		case <-finished:
		}
		if ctx.Err() != nil {
			stop()
			out.Warn("Interrupted. Press Enter to stop at the current step, or Ctrl+C again to quit immediately.")
		}
	}()
	return func() {
		close(finished)
		<-exited
	}
}

// newPrompter picks the prompt implementation. The TUI needs a terminal on
// stdin and falls back to plain line prompts otherwise.
func newPrompter(style string, in *os.File, out io.Writer) prompt.Prompter {
	if style == "tui" {
		if term.IsTerminal(int(in.Fd())) {
			return prompt.NewTUI(in, out)
		}
		logger.Warn("[Install] stdin is not a terminal, using line prompts")
	}
	return prompt.NewLine(in, out)
}

func parseSetValues(raw []string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, item := range raw {
		key, val, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --set value %q, expected KEY=VALUE", item)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("invalid --set value %q, empty key", item)
		}
		out[key] = strings.TrimSpace(val)
	}
	return out, nil
}

// commandOverrides converts host.commands from the config file.
func commandOverrides(raw map[string][]string) (map[host.Operation][]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[host.Operation][]string, len(raw))
	for name, args := range raw {
		op, err := host.ParseOperation(name)
		if err != nil {
			return nil, fmt.Errorf("host.commands: %w", err)
		}
		if len(args) == 0 {
			return nil, fmt.Errorf("host.commands.%s: empty command", name)
		}
		out[op] = args
	}
	return out, nil
}
