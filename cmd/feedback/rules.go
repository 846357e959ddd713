package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deepak-highbeam/complaint-classifier/internal/labeler"
	"github.com/deepak-highbeam/complaint-classifier/internal/report"
)

func labelCmd(a *app) *cobra.Command {
	var narrative, issue, product string

	cmd := &cobra.Command{
		Use:   "label",
		Short: "Show which rule labels a single complaint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(narrative) == "" && strings.TrimSpace(issue) == "" {
				return fmt.Errorf("label: one of --narrative or --issue is required")
			}
			l, err := labeler.FromFile(a.cfg.Ingest.RulesFile)
			if err != nil {
				return fmt.Errorf("load rules: %w", err)
			}
			m := l.Explain(narrative, issue, product)
			return a.print(cmd.OutOrStdout(), m, report.FormatMatch(m))
		},
	}

	cmd.Flags().StringVar(&narrative, "narrative", "", "complaint narrative")
	cmd.Flags().StringVar(&issue, "issue", "", "issue field")
	cmd.Flags().StringVar(&product, "product", "", "product field")
	cmd.Flags().String("rules", "", "YAML rule file replacing the built-in rule sets")
	bindFlag(cmd, "rules", "ingest.rules_file")

	return cmd
}

func rulesCmd(a *app) *cobra.Command {
	var export bool

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Print the active labeling rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := labeler.FromFile(a.cfg.Ingest.RulesFile)
			if err != nil {
				return fmt.Errorf("load rules: %w", err)
			}
			sets := l.RuleSets()

			if export {
				data, err := labeler.MarshalRuleSets(sets)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return a.print(cmd.OutOrStdout(), sets, report.FormatRuleSets(sets))
		},
	}

	cmd.Flags().String("rules", "", "YAML rule file replacing the built-in rule sets")
	cmd.Flags().BoolVar(&export, "yaml", false, "print the rules as an editable YAML rule file")
	bindFlag(cmd, "rules", "ingest.rules_file")

	return cmd
}
