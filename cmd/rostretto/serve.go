package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kylemckinstry/rostretto/internal/api"
	"github.com/kylemckinstry/rostretto/internal/cycle"
	"github.com/kylemckinstry/rostretto/internal/notify"
	"github.com/kylemckinstry/rostretto/internal/skill"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Rostretto HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "rostretto.yaml", "path to Rostretto config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return api.Start(ctx, api.StartOpts{
		DB:   gormDB,
		Cfg:  cfg,
		Port: port,
		Out:  cmd.OutOrStdout(),
	})
}

func newDaemonCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the cycle daemon",
		Long: `Runs the scheduling loop: keeps the upcoming week's schedule generated
and folds feedback into skill vectors on the configured cron.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "rostretto.yaml", "path to Rostretto config file")
	return cmd
}

func runDaemon(cmd *cobra.Command, configPath string) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	scorer, err := skill.NewScorer(cfg.Scoring.Strategy, cfg.Skills.RoleDimension, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch := &cycle.Orchestrator{
		DB:       gormDB,
		Cfg:      cfg,
		Out:      cmd.OutOrStdout(),
		Notifier: notify.New(cfg.Notify),
	}
	return orch.RunDaemon(ctx, scorer)
}
