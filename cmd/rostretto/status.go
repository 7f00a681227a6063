package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kylemckinstry/rostretto/internal/models"
)

func newStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status [week]",
		Short: "Show cycle state, for one week or all tracked weeks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			week := ""
			if len(args) == 1 {
				week = args[0]
			}
			return runStatus(cmd, configPath, week)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "rostretto.yaml", "path to Rostretto config file")
	return cmd
}

func runStatus(cmd *cobra.Command, configPath, week string) error {
	out := cmd.OutOrStdout()

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	q := gormDB.Order("week_id")
	if week != "" {
		q = q.Where("week_id = ?", week)
	}
	var periods []models.Period
	if err := q.Find(&periods).Error; err != nil {
		return fmt.Errorf("load periods: %w", err)
	}
	if len(periods) == 0 {
		fmt.Fprintln(out, "No scheduling periods found.")
		return nil
	}

	for _, p := range periods {
		fmt.Fprintf(out, "%s  stage=%s", p.WeekID, p.Stage)
		if p.SolveStatus != "" {
			fmt.Fprintf(out, "  solve=%s", p.SolveStatus)
		}
		fmt.Fprintln(out)
		if p.Diagnostic != "" {
			fmt.Fprintf(out, "    %s\n", p.Diagnostic)
		}

		var open, flagged int64
		gormDB.Model(&models.Assignment{}).Where("week_id = ? AND resolved = ?", p.WeekID, false).Count(&open)
		gormDB.Model(&models.Assignment{}).Where("week_id = ? AND review_flag = ?", p.WeekID, true).Count(&flagged)
		if open > 0 || flagged > 0 {
			fmt.Fprintf(out, "    %d unresolved assignment(s), %d flagged for review\n", open, flagged)
		}
	}
	return nil
}
