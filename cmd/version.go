package cmd

import (
	"fmt"
	"runtime"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bimmerbailey/ppmerge/internal/config"
)

// Version information set via ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and the configured code generator",
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	gen := cfg.Generator
	if gen.Command == "" {
		gen = config.Default().Generator
	}
	argv, err := gen.Argv()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ppmerge %s (commit: %s, built: %s, %s %s/%s)\n",
		version, commit, date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	for _, dir := range gen.IncludeDirs {
		argv = append(argv, "-I", dir)
	}
	argv = append(argv, gen.Args...)
	fmt.Fprintf(out, "generator: %s\n", shellquote.Join(argv...))
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "config: %s\n", viper.ConfigFileUsed())
	}
	return nil
}
