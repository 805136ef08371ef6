package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bimmerbailey/ppmerge/internal/config"
	"github.com/bimmerbailey/ppmerge/internal/generator"
	"github.com/bimmerbailey/ppmerge/internal/output"
	"github.com/bimmerbailey/ppmerge/internal/pipeline"
)

var cfgFile string

// runner replaces the generator process in tests.
var runner generator.Runner

var rootCmd = &cobra.Command{
	Use:   "ppmerge [flags] <file>...",
	Short: "Preprocess a file under every configuration and merge the generated code",
	Long: `ppmerge expands the #define macros of a source file, finds every
combination of its #if/#ifdef conditions, runs a code generator (cython by
default) once per distinct combination, and merges the generated files into
one whose differing parts are wrapped in #if/#else/#endif.

Examples:
  ppmerge core.ppyx
  ppmerge -o build/core.c core.ppyx
  ppmerge --list core.ppyx
  ppmerge --ignore-cond core.ppyx
  ppmerge 'src/*.ppyx'`,
	Args:          cobra.MinimumNArgs(1),
	RunE:          runRoot,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute is called by main.main(). It runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ppmerge.yaml)")
	pf.StringP("format", "f", config.DefaultFormat, "listing format (text, json, table, yaml)")
	pf.BoolP("verbose", "v", false, "log progress to stderr")
	pf.Bool("debug", false, "log debug details to stderr")
	pf.String("log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	pf.IntP("workers", "j", 0, "parallel generator runs and merge workers, 0 for no limit (default is the number of CPUs)")
	pf.Bool("write-intermediate", false, "save the generator inputs and outputs of every configuration")
	pf.String("intermediate-dir", "", "directory for intermediate files (default is next to the output)")

	_ = viper.BindPFlag("format", pf.Lookup("format"))
	_ = viper.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = viper.BindPFlag("debug", pf.Lookup("debug"))
	_ = viper.BindPFlag("log_level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("workers", pf.Lookup("workers"))
	_ = viper.BindPFlag("write_intermediate", pf.Lookup("write-intermediate"))
	_ = viper.BindPFlag("intermediate_dir", pf.Lookup("intermediate-dir"))

	f := rootCmd.Flags()
	f.Bool("list-cond", false, "print the conditions used by the input")
	f.BoolP("list", "l", false, "print the configurations the input is generated for")
	f.Bool("ignore-cond", false, "print the input with macros expanded and every conditional branch skipped")
	f.StringP("output-file", "o", "", "generated file (default is the input with the output extension)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".ppmerge")
		viper.SetConfigType("yaml")
	}

	bindEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func bindEnv() {
	viper.SetEnvPrefix("PPMERGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func setDefaults() {
	d := config.Default()
	viper.SetDefault("format", d.Format)
	viper.SetDefault("verbose", d.Verbose)
	viper.SetDefault("debug", d.Debug)
	viper.SetDefault("log_level", d.LogLevel)
	viper.SetDefault("workers", d.Workers)
	viper.SetDefault("output_ext", d.OutputExt)
	viper.SetDefault("reference_ext", d.ReferenceExt)
	viper.SetDefault("write_intermediate", d.WriteIntermediate)
	viper.SetDefault("intermediate_dir", d.IntermediateDir)
	viper.SetDefault("generator.command", d.Generator.Command)
	viper.SetDefault("generator.args", d.Generator.Args)
	viper.SetDefault("generator.include_dirs", []string{})
	viper.SetDefault("generator.header_pattern", d.Generator.HeaderPattern)
}

// loadConfig decodes the merged flags, environment and config file.
func loadConfig() (config.Config, error) {
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.Level()}))
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg)

	files, err := config.ExpandGlobs(args)
	if err != nil {
		return err
	}

	listCond, _ := cmd.Flags().GetBool("list-cond")
	list, _ := cmd.Flags().GetBool("list")
	ignoreCond, _ := cmd.Flags().GetBool("ignore-cond")
	outputFile, _ := cmd.Flags().GetString("output-file")

	if outputFile != "" && len(files) > 1 {
		return fmt.Errorf("--output-file needs a single input, got %d", len(files))
	}

	out := output.New(cmd.OutOrStdout(), output.ParseFormat(cfg.Format))
	for _, file := range files {
		if len(files) > 1 && (listCond || list || ignoreCond) {
			fmt.Fprintf(cmd.OutOrStdout(), "==> %s <==\n", file)
		}

		run := true
		if listCond {
			run = false
			names, err := pipeline.ListConditions(file)
			if err != nil {
				return err
			}
			if err := out.WriteConditions(names); err != nil {
				return err
			}
		}
		if list {
			run = false
			confs, err := pipeline.ListConfigurations(file)
			if err != nil {
				return err
			}
			if err := out.WriteConfigurations(confs); err != nil {
				return err
			}
		}
		if ignoreCond {
			run = false
			if err := pipeline.ExpandOnly(file, cmd.OutOrStdout(), logger); err != nil {
				return err
			}
		}
		if !run {
			continue
		}

		if err := processFile(cmd.Context(), cmd.ErrOrStderr(), file, outputFile, cfg, logger); err != nil {
			return err
		}
	}
	return nil
}

func processFile(ctx context.Context, stderr io.Writer, file, outputFile string, cfg config.Config, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	paths, err := config.DerivePaths(file, outputFile, cfg)
	if err != nil {
		return err
	}
	r := runner
	if r == nil {
		r = generator.ExecRunner{Stdout: stderr, Stderr: stderr}
	}
	_, err = pipeline.Process(ctx, paths, pipeline.Options{
		Config: cfg,
		Runner: r,
		Logger: logger.With("file", file),
	})
	return err
}
