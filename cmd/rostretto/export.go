package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kylemckinstry/rostretto/internal/csvio"
)

func newExportCmd() *cobra.Command {
	var (
		configPath string
		outPath    string
	)

	cmd := &cobra.Command{
		Use:   "export <week>",
		Short: "Export a week's schedule as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, configPath, args[0], outPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "rostretto.yaml", "path to Rostretto config file")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func runExport(cmd *cobra.Command, configPath, week, outPath string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
		defer f.Close()
		w = f
	}

	n, err := csvio.ExportAssignments(gormDB, w, week)
	if err != nil {
		return err
	}
	if outPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d assignments for %s to %s\n", n, week, outPath)
	}
	return nil
}
