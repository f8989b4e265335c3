package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/kayz/appinstall/internal/config"
	"github.com/kayz/appinstall/internal/host"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func init() {
	rootCmd.AddCommand(newConfigCommand())
}

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the installer configuration",
	}
	cmd.AddCommand(newConfigInitCommand(), newConfigShowCommand())
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var force bool
	var capabilities []string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default .appinstall.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := appRoot()
			if err != nil {
				return err
			}
			path := filepath.Join(dir, config.YAMLFile)
			if _, used, err := config.Load(dir); err == nil && used != "" && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", used)
			}

			caps, err := host.NewCapabilities(capabilities...)
			if err != nil {
				return err
			}
			cfg := config.DefaultConfig()
			cfg.Capabilities = caps.Names()
			if err := cfg.Save(dir); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return err
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")
	cmd.Flags().StringSliceVar(&capabilities, "capability", nil,
		"Installed optional package: auth-provisioning, user-creation, database-backup, modules (repeatable)")
	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
