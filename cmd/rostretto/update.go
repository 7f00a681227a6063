package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/kylemckinstry/rostretto/internal/cycle"
	"github.com/kylemckinstry/rostretto/internal/models"
	"github.com/kylemckinstry/rostretto/internal/notify"
	"github.com/kylemckinstry/rostretto/internal/skill"
)

func newUpdateSkillsCmd() *cobra.Command {
	var (
		configPath string
		strategy   string
	)

	cmd := &cobra.Command{
		Use:   "update-skills",
		Short: "Score pending feedback and fold it into skill vectors",
		Long: `Runs the return half of the cycle: scores every pending feedback record
with the configured strategy, fills assignment skill points, and re-aggregates
worker skill vectors. Low-confidence scores are flagged for review instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdateSkills(cmd, configPath, strategy)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "rostretto.yaml", "path to Rostretto config file")
	cmd.Flags().StringVar(&strategy, "strategy", "", "scoring strategy: manual, rule or predictor (default from config)")
	return cmd
}

func runUpdateSkills(cmd *cobra.Command, configPath, strategy string) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if strategy == "" {
		strategy = cfg.Scoring.Strategy
	}
	scorer, err := skill.NewScorer(strategy, cfg.Skills.RoleDimension, nil)
	if err != nil {
		return err
	}

	orch := &cycle.Orchestrator{
		DB:       gormDB,
		Cfg:      cfg,
		Out:      out,
		Notifier: notify.New(cfg.Notify),
	}
	report, err := orch.RunSkillUpdate(cmd.Context(), scorer)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Processed %d: %d applied, %d absences, %d flagged, %d skipped, %d errors\n",
		report.Processed, report.Updated, report.Absences, report.Flagged, report.Skipped, report.Errors)
	return nil
}

func newReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Inspect and resolve assignments held for manual review",
	}

	cmd.AddCommand(newReviewListCmd())
	cmd.AddCommand(newReviewApproveCmd())
	return cmd
}

func newReviewListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assignments flagged for review",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReviewList(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "rostretto.yaml", "path to Rostretto config file")
	return cmd
}

func runReviewList(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	var flagged []models.Assignment
	if err := gormDB.Where("review_flag = ?", true).
		Order("week_id, shift_id, worker_id").Find(&flagged).Error; err != nil {
		return fmt.Errorf("load flagged assignments: %w", err)
	}
	if len(flagged) == 0 {
		fmt.Fprintln(out, "No assignments awaiting review.")
		return nil
	}
	for _, a := range flagged {
		fmt.Fprintf(out, "%s  shift=%d worker=%d role=%s\n", a.WeekID, a.ShiftID, a.WorkerID, a.Role)
	}
	return nil
}

func newReviewApproveCmd() *cobra.Command {
	var (
		configPath string
		dims       = map[string]*float64{}
	)
	for _, dim := range models.Dimensions {
		dims[dim] = new(float64)
	}

	cmd := &cobra.Command{
		Use:   "approve <shift-id> <worker-id>",
		Short: "Resolve a flagged assignment with operator-entered skill points",
		Long: `Fills the assignment's skill points from the given flags and clears its
review flag. Omitted dimensions stay unobserved and are excluded from
aggregation.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			points := models.SkillPoints{}
			for _, dim := range models.Dimensions {
				if cmd.Flags().Changed(flagName(dim)) {
					points.Set(dim, *dims[dim])
				}
			}
			return runReviewApprove(cmd, configPath, args[0], args[1], points)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "rostretto.yaml", "path to Rostretto config file")
	for _, dim := range models.Dimensions {
		cmd.Flags().Float64Var(dims[dim], flagName(dim), 0, fmt.Sprintf("%s skill points (0-100)", dim))
	}
	return cmd
}

func flagName(dim string) string {
	if dim == models.DimCustomerService {
		return "customer-service"
	}
	return dim
}

func runReviewApprove(cmd *cobra.Command, configPath, shiftArg, workerArg string, points models.SkillPoints) error {
	out := cmd.OutOrStdout()

	if points.Empty() {
		return fmt.Errorf("no skill points given; set at least one dimension flag")
	}
	shiftID, err := strconv.ParseUint(shiftArg, 10, 64)
	if err != nil {
		return fmt.Errorf("shift id %q: %w", shiftArg, err)
	}
	workerID, err := strconv.ParseUint(workerArg, 10, 64)
	if err != nil {
		return fmt.Errorf("worker id %q: %w", workerArg, err)
	}

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	var asgn models.Assignment
	err = gormDB.Where("shift_id = ? AND worker_id = ?", shiftID, workerID).First(&asgn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("no assignment for shift %d worker %d", shiftID, workerID)
	}
	if err != nil {
		return fmt.Errorf("load assignment: %w", err)
	}
	if asgn.Resolved {
		return fmt.Errorf("assignment for shift %d worker %d is already resolved", shiftID, workerID)
	}

	asgn.FillSkillPoints(points)
	asgn.ReviewFlag = false
	if err := gormDB.Save(&asgn).Error; err != nil {
		return fmt.Errorf("store assignment: %w", err)
	}
	fmt.Fprintf(out, "Resolved shift %d worker %d\n", shiftID, workerID)
	return nil
}
