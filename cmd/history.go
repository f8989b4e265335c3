package cmd

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/kayz/appinstall/internal/console"
	"github.com/kayz/appinstall/internal/envfile"
	"github.com/kayz/appinstall/internal/persist"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newHistoryCommand())
}

func newHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past install runs",
		Args:  cobra.MaximumNArgs(1),
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

			path := cfg.JournalPath(dir)
			if path == "" {
				return errors.New("run history is disabled (journal.path is empty)")
			}
			if !envfile.Exists(path) {
				out.Line("No runs recorded yet.")
				return nil
			}

			store, err := persist.NewStore(path)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				run, err := store.GetRun(args[0])
				if err != nil {
					return err
				}
				printRun(out, run)
				for _, st := range run.Steps {
					line := "  " + st.Stage + "  " + st.Operation + "  " + st.Status + "  " + st.Duration.Round(time.Millisecond).String()
					if st.Error != "" {
						line += "  " + st.Error
					}
					out.Line("%s", line)
				}
				return nil
			}

			runs, err := store.RecentRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				out.Line("No runs recorded yet.")
				return nil
			}
			for _, run := range runs {
				printRun(out, run)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	return cmd
}

func printRun(out *console.Output, run *persist.Run) {
	outcome := run.Outcome
	if outcome == "" {
		outcome = "unfinished"
	}

	var flags []string
	for name, on := range run.Options {
		if on {
			flags = append(flags, "--"+name)
		}
	}
	sort.Strings(flags)

	line := run.ID + "  " + run.StartedAt.Local().Format("2006-01-02 15:04:05") + "  " + outcome
	if len(flags) > 0 {
		line += "  " + strings.Join(flags, " ")
	}
	if run.Error != "" {
		line += "  " + run.Error
	}
	out.Line("%s", line)
}
