package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/kylemckinstry/rostretto/internal/csvio"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import workers, shift slots or feedback from CSV",
	}

	cmd.AddCommand(newImportWorkersCmd())
	cmd.AddCommand(newImportSlotsCmd())
	cmd.AddCommand(newImportFeedbackCmd())
	return cmd
}

func newImportWorkersCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "workers <file>",
		Short: "Import or update workers from CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, configPath, args[0], "workers", csvio.ImportWorkers)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "rostretto.yaml", "path to Rostretto config file")
	return cmd
}

func newImportSlotsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "slots <file>",
		Short: "Import shift slots from CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, configPath, args[0], "slots", csvio.ImportSlots)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "rostretto.yaml", "path to Rostretto config file")
	return cmd
}

func newImportFeedbackCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "feedback <file>",
		Short: "Import post-shift feedback from CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, configPath, args[0], "feedback records",
				func(db *gorm.DB, r io.Reader) (int, error) {
					return csvio.ImportFeedback(db, r, time.Now())
				})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "rostretto.yaml", "path to Rostretto config file")
	return cmd
}

func runImport(cmd *cobra.Command, configPath, path, what string, load func(*gorm.DB, io.Reader) (int, error)) error {
	out := cmd.OutOrStdout()

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	n, err := load(gormDB, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Imported %d %s from %s\n", n, what, path)
	return nil
}
