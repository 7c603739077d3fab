package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rgehrsitz/rptax/internal/calculation"
	"github.com/rgehrsitz/rptax/internal/config"
	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/internal/output"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rptax",
		Short: "Tax-aware savings and Roth conversion calculator",
		Long: `rptax computes federal and state income tax, contribution limits,
savings allocation, multi-year projections with RMDs, Roth conversion
break-even and asset location for a household described in YAML.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("regulatory-config", "", "Path to statutory tables YAML (default: embedded tables)")
	root.PersistentFlags().StringP("format", "f", "console", "Output format (console, csv, json)")
	root.PersistentFlags().Bool("debug", false, "Enable debug logging of calculations")

	root.AddCommand(
		taxCmd(),
		limitsCmd(),
		allocateCmd(),
		projectCmd(),
		rothCmd(),
		locateCmd(),
		compareCmd(),
		optimizeCmd(),
		validateCmd(),
		serveCmd(),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rptax %s (commit %s, built %s)\n", version, commit, date)
			if verbose, _ := cmd.Flags().GetBool("debug"); verbose {
				if info := buildInfo(); info != "" {
					fmt.Fprintln(cmd.OutOrStdout(), info)
				}
			}
		},
	}
}

func buildInfo() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
		return bi.String()
	}
	return ""
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [household-file]",
		Short: "Validate a household file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := config.NewInputParser().LoadFromFile(args[0])
			if err != nil {
				return err
			}
			tables, err := loadTables(cmd)
			if err != nil {
				return err
			}
			if _, err := tables.ForYear(h.TaxYear); err != nil {
				return fmt.Errorf("household %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Household file %s is valid (%d accounts, tax year %d)\n", args[0], len(h.Accounts), h.TaxYear)
			return nil
		},
	}
}

// newLogger builds the zap logger behind the engine. Without --debug only
// warnings and errors are written.
func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	debugMode, _ := cmd.Flags().GetBool("debug")
	if debugMode {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	cfg.Encoding = "console"
	return cfg.Build()
}

func loadTables(cmd *cobra.Command) (*domain.StatutoryTables, error) {
	loader := config.NewRegulatoryLoader()
	if path, _ := cmd.Flags().GetString("regulatory-config"); path != "" {
		return loader.LoadFromFile(path)
	}
	return loader.LoadDefault()
}

// newEngine loads the statutory tables and wires the engine to a zap logger.
func newEngine(cmd *cobra.Command) (*calculation.Engine, *zap.Logger, error) {
	tables, err := loadTables(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	engine := calculation.NewEngine(tables)
	engine.SetLogger(logger.Sugar())
	return engine, logger, nil
}

// setup loads the household named by the first argument and a ready engine.
func setup(cmd *cobra.Command, args []string) (*domain.Household, *calculation.Engine, func(), error) {
	h, err := config.NewInputParser().LoadFromFile(args[0])
	if err != nil {
		return nil, nil, nil, err
	}
	engine, logger, err := newEngine(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	return h, engine, func() { _ = logger.Sync() }, nil
}

func newReport(title string, h *domain.Household) *output.Report {
	return &output.Report{Title: title, Household: h.Name, TaxYear: h.TaxYear}
}

func render(cmd *cobra.Command, report *output.Report) error {
	format, _ := cmd.Flags().GetString("format")
	data, err := output.Render(report, format)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
