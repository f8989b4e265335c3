package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kayz/appinstall/internal/console"
	"github.com/kayz/appinstall/internal/envfile"
	"github.com/kayz/appinstall/internal/prompt"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newRestoreCommand())
}

func newRestoreCommand() *cobra.Command {
	var force bool
	var list bool

	cmd := &cobra.Command{
		Use:   "restore [backup]",
		Short: "Restore the environment file from a backup",
		Long: `Restore .env from one of the backups written by install.

Without an argument the newest backup is used. The current file is backed up
before it is replaced. Requires confirmation unless --force is used.`,
		Args: cobra.MaximumNArgs(1),
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

			backups, err := envfile.ListBackups(envPath)
			if err != nil && !(errors.Is(err, envfile.ErrNoBackups) && len(args) == 1) {
				return err
			}

			if list {
				for _, b := range backups {
					out.Line("%s", b)
				}
				return nil
			}

			source := ""
			if len(args) == 1 {
				source = resolveBackup(dir, args[0])
			} else {
				source = backups[0]
			}
			if !envfile.Exists(source) {
				return fmt.Errorf("backup %s not found", source)
			}

			if !force {
				out.Line("This will replace %s with %s.", envPath, source)
				ok, err := prompt.NewLine(cmd.InOrStdin(), cmd.OutOrStdout()).Confirm("Are you sure?", false)
				if err != nil {
					return err
				}
				if !ok {
					out.Line("Aborted.")
					return nil
				}
			}

			if envfile.Exists(envPath) {
				saved, err := envfile.Backup(envPath, time.Now())
				if err != nil {
					return err
				}
				out.Info("Current environment saved to %s", saved)
			}
			if err := envfile.CopyFile(source, envPath); err != nil {
				return fmt.Errorf("failed to restore %s: %w", envPath, err)
			}
			out.Info("Restored %s from %s", envPath, source)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")
	cmd.Flags().BoolVar(&list, "list", false, "List available backups, newest first")
	return cmd
}

// resolveBackup accepts a path as given or relative to the application dir.
func resolveBackup(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	if _, err := os.Stat(name); err == nil {
		return name
	}
	return filepath.Join(dir, name)
}
