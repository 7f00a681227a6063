package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kylemckinstry/rostretto/internal/cycle"
	"github.com/kylemckinstry/rostretto/internal/models"
	"github.com/kylemckinstry/rostretto/internal/notify"
	"github.com/kylemckinstry/rostretto/internal/timeplan"
)

func newGenerateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "generate [week]",
		Short: "Generate the schedule for a week",
		Long: `Runs the forward half of the cycle for an ISO week (e.g. 2025-W36):
aggregates skill vectors, builds and solves the assignment model, and stores
the resulting schedule. Defaults to next week.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			week := ""
			if len(args) == 1 {
				week = args[0]
			}
			return runGenerate(cmd, configPath, week)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "rostretto.yaml", "path to Rostretto config file")
	return cmd
}

func runGenerate(cmd *cobra.Command, configPath, week string) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if week == "" {
		week = timeplan.WeekID(time.Now().In(cfg.Location()).AddDate(0, 0, 7))
		fmt.Fprintf(out, "No week given, generating %s\n", week)
	}

	orch := &cycle.Orchestrator{
		DB:       gormDB,
		Cfg:      cfg,
		Out:      out,
		Notifier: notify.New(cfg.Notify),
	}
	period, err := orch.RunGeneration(cmd.Context(), week)
	if err != nil {
		return err
	}
	if period.Stage == models.StageInfeasible {
		return fmt.Errorf("week %s is infeasible: %s", week, period.Diagnostic)
	}
	return nil
}
