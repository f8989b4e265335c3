package cmd

import (
	"errors"
	"strings"

	"github.com/kayz/appinstall/internal/console"
	"github.com/kayz/appinstall/internal/dbprobe"
	"github.com/kayz/appinstall/internal/envfile"
	"github.com/spf13/cobra"
)

var errNeedsSetup = errors.New("the environment file needs to be rebuilt, run: appinstall install --set-env")

func init() {
	rootCmd.AddCommand(newCheckCommand())
}

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check whether the environment file works",
		Long: `Check whether .env exists and the database it points at is reachable.

Exits with status 1 when the installer would rebuild the environment file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			dir, err := appRoot()
			if err != nil {
				return err
			}
			out := console.New(cmd.OutOrStdout())
			envPath := cfg.EnvPath(dir)

			if !envfile.Exists(envPath) {
				out.Warn("%s not found", envPath)
				return errNeedsSetup
			}
			values, err := envfile.ReadValues(envPath)
			if err != nil {
				out.Warn("%v", err)
				return errNeedsSetup
			}
			if strings.TrimSpace(values["APP_KEY"]) == "" {
				out.Warn("APP_KEY is empty, the next install will generate it")
			}

			prober := &dbprobe.SQLProber{BaseDir: dir, Timeout: cfg.Probe.Timeout}
			target, err := prober.Resolve(values)
			if err != nil {
				out.Warn("%v", err)
				return errNeedsSetup
			}
			if err := prober.Ping(cmd.Context(), values); err != nil {
				out.Warn("Database connection failed: %v", err)
				return errNeedsSetup
			}
			out.Info("Database connection OK (%s)", target.Driver)
			return nil
		},
	}
}
