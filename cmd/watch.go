package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bimmerbailey/ppmerge/internal/config"
	"github.com/bimmerbailey/ppmerge/internal/output"
	"github.com/bimmerbailey/ppmerge/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [flags] <file>",
	Short: "Regenerate a file every time it changes",
	Long: `Process a file once, then again whenever it is saved, until
interrupted. Errors are printed and watching continues.

Examples:
  ppmerge watch core.ppyx
  ppmerge watch -o build/core.c --verbose core.ppyx`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringP("output-file", "o", "", "generated file (default is the input with the output extension)")
	watchCmd.Flags().Bool("no-color", false, "disable colored diagnostics")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg)

	file := args[0]
	if _, err := os.Stat(file); err != nil {
		return err
	}
	// Fail early on an output path that can never work.
	outputFile, _ := cmd.Flags().GetString("output-file")
	if _, err := config.DerivePaths(file, outputFile, cfg); err != nil {
		return err
	}

	colorMode := output.ColorAuto
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		colorMode = output.ColorNever
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := watch.New(watch.Options{
		Path: file,
		OnChange: func(ctx context.Context) error {
			return processFile(ctx, cmd.ErrOrStderr(), file, outputFile, cfg, logger)
		},
		OnError: func(err error) {
			_ = output.WriteDiagnostic(cmd.ErrOrStderr(), err, colorMode)
		},
		Logger: logger,
	})
	return w.Run(ctx)
}
