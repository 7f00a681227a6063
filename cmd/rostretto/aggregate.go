package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kylemckinstry/rostretto/internal/models"
	"github.com/kylemckinstry/rostretto/internal/skill"
)

func newAggregateCmd() *cobra.Command {
	var (
		configPath string
		workerID   uint
	)

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Recompute skill vectors from assignment history",
		Long:  "Recomputes every worker's skill vector from the trailing window of resolved assignments, or a single worker's with --worker.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAggregate(cmd, configPath, workerID)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "rostretto.yaml", "path to Rostretto config file")
	cmd.Flags().UintVar(&workerID, "worker", 0, "recompute a single worker")
	return cmd
}

func runAggregate(cmd *cobra.Command, configPath string, workerID uint) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	if workerID != 0 {
		v, err := skill.Aggregate(gormDB, workerID, cfg.Skills.Window, cfg.Skills.NeutralDefault, time.Now())
		if err != nil {
			return err
		}
		var w models.Worker
		if err := gormDB.First(&w, workerID).Error; err != nil {
			return fmt.Errorf("load worker %d: %w", workerID, err)
		}
		w.SetSkills(v)
		if err := gormDB.Save(&w).Error; err != nil {
			return fmt.Errorf("store worker %d: %w", workerID, err)
		}
		fmt.Fprintf(out, "Worker %d: coffee=%.1f sandwich=%.1f customer_service=%.1f speed=%.1f\n",
			workerID, v.Coffee, v.Sandwich, v.CustomerService, v.Speed)
		return nil
	}

	n, err := skill.AggregateAll(gormDB, cfg.Skills.Window, cfg.Skills.NeutralDefault, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Aggregated skill vectors for %d workers\n", n)
	return nil
}
