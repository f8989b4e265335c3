package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kayz/appinstall/internal/config"
	"github.com/kayz/appinstall/internal/debug"
	"github.com/kayz/appinstall/internal/logger"
	"github.com/spf13/cobra"
)

var (
	logLevel   string
	appDir     string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "appinstall",
	Short: "Guided installer for Laravel applications",
	Long: `appinstall sets up a Laravel application in the current directory.

Commands:
  appinstall install    Configure .env, generate the key, migrate and seed
  appinstall check      Report whether .env needs to be rebuilt
  appinstall restore    Restore .env from a backup
  appinstall config     Manage .appinstall.yaml`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logger.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
		debug.Apply()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info",
		"Log level: trace, debug, info, warn, error, fatal, panic")
	rootCmd.PersistentFlags().StringVar(&appDir, "dir", ".",
		"Application directory")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file (default: .appinstall.yaml or .appinstall.toml in --dir)")
}

// appRoot returns the absolute application directory.
func appRoot() (string, error) {
	dir, err := filepath.Abs(appDir)
	if err != nil {
		return "", fmt.Errorf("invalid --dir %q: %w", appDir, err)
	}
	return dir, nil
}

// loadConfig reads the config for the application directory and applies its
// logging section. The --log flag wins over logging.level.
func loadConfig() (*config.Config, error) {
	dir, err := appRoot()
	if err != nil {
		return nil, err
	}

	var (
		cfg  *config.Config
		used string
	)
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
		used = configPath
	} else {
		cfg, used, err = config.Load(dir)
	}
	if err != nil {
		return nil, err
	}
	if used != "" {
		logger.Debug("[Config] loaded %s", used)
	}

	if !rootCmd.PersistentFlags().Changed("log") && cfg.Logging.Level != "" {
		level, err := logger.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("logging.level: %w", err)
		}
		logger.SetLevel(level)
		debug.Apply()
	}

	if path := cfg.LogFile(dir); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logger.AddOutput(f)
	}

	return cfg, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
