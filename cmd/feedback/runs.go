package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deepak-highbeam/complaint-classifier/internal/report"
	"github.com/deepak-highbeam/complaint-classifier/internal/store"
)

func runsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the history of pipeline runs",
	}
	cmd.AddCommand(runsListCmd(a))
	cmd.AddCommand(runsShowCmd(a))
	return cmd
}

func runsListCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.openRunStore()
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			if runs == nil {
				runs = []store.Run{}
			}
			return a.print(cmd.OutOrStdout(), runs, report.FormatRuns(runs))
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show (0 = all)")
	return cmd
}

func runsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one run with its category counts and metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openRunStore()
			if err != nil {
				return err
			}
			defer s.Close()

			r, err := s.GetRun(args[0])
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), r, report.FormatRun(r))
		},
	}
}

// openRunStore opens the history database for reading. Unlike stage runs,
// the runs commands fail when history is unavailable.
func (a *app) openRunStore() (*store.Store, error) {
	if !a.cfg.History.Enabled {
		return nil, fmt.Errorf("run history is disabled (history.enabled = false)")
	}
	s, err := store.New(a.cfg.History.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}
	return s, nil
}
