package main

import (
	"fmt"

	"github.com/rgehrsitz/rptax/internal/breakeven"
	"github.com/rgehrsitz/rptax/internal/compare"
	"github.com/rgehrsitz/rptax/internal/config"
	"github.com/rgehrsitz/rptax/internal/transform"
	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func compareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [household-file]",
		Short: "Compare the household against what-if scenarios",
		Long: `Compare the household's projection against alternatives built from
templates or transform specs.

Examples:
  rptax compare household.yaml --with work_1yr_longer,roth_ladder_5yr
  rptax compare household.yaml --with "set_return:rate=0.05+set_spending:amount=50000"
  rptax compare household.yaml --with max_contributions --format csv
  rptax compare household.yaml --list-templates`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, engine, done, err := setup(cmd, args)
			if err != nil {
				return err
			}
			defer done()

			compareEngine := compare.NewCompareEngine(engine)

			if list, _ := cmd.Flags().GetBool("list-templates"); list {
				templates, err := compareEngine.Templates(h)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), transform.GetTemplateHelp(templates))
				return nil
			}

			with, _ := cmd.Flags().GetString("with")
			alternatives := transform.ParseTemplateList(with)
			if len(alternatives) == 0 {
				return fmt.Errorf("--with is required (use --list-templates to see the templates)")
			}

			set, err := compareEngine.Compare(cmd.Context(), h, compare.CompareOptions{
				Alternatives: alternatives,
				ConfigPath:   args[0],
			})
			if err != nil {
				return fmt.Errorf("comparison failed: %w", err)
			}

			format, _ := cmd.Flags().GetString("format")
			out, err := compare.FormatAs(set, format)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().String("with", "", "Comma-separated templates or transform specs to compare")
	cmd.Flags().Bool("list-templates", false, "List the available scenario templates")
	return cmd
}

func optimizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize [household-file]",
		Short: "Search for the break-even conversion, tax rate or retirement age",
		Long: `Search one planning parameter for the value that best meets a goal.

Targets and goals:
  conversion_amount  maximize_savings, earliest_break_even
  retirement_rate    break_even
  retirement_age     maximize_wealth, minimize_taxes
  all                every target with every goal

Examples:
  rptax optimize household.yaml --target conversion_amount
  rptax optimize household.yaml --target retirement_age --goal minimize_taxes --min-age 55 --max-age 67
  rptax optimize household.yaml --target all --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := config.NewInputParser().LoadFromFile(args[0])
			if err != nil {
				return err
			}
			engine, logger, err := newEngine(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			constraints, err := constraintsFromFlags(cmd)
			if err != nil {
				return err
			}
			targetName, _ := cmd.Flags().GetString("target")
			goalName, _ := cmd.Flags().GetString("goal")
			format, _ := cmd.Flags().GetString("format")
			solver := breakeven.NewDefaultSolver(engine)

			if breakeven.OptimizationTarget(targetName) == breakeven.OptimizeAll {
				var goals []breakeven.OptimizationGoal
				if goalName != "" {
					goals = append(goals, breakeven.OptimizationGoal(goalName))
				}
				result, err := solver.OptimizeMultiDimensional(cmd.Context(), h, constraints, goals)
				if err != nil {
					return fmt.Errorf("optimization failed: %w", err)
				}
				out, err := formatMulti(result, format)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
				return nil
			}

			result, err := solver.Optimize(cmd.Context(), breakeven.OptimizationRequest{
				Household:   h,
				Target:      breakeven.OptimizationTarget(targetName),
				Goal:        breakeven.OptimizationGoal(goalName),
				Constraints: constraints,
			})
			if err != nil {
				return fmt.Errorf("optimization failed: %w", err)
			}
			out, err := formatSingle(result, format)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().String("target", string(breakeven.OptimizeConversionAmount), "Parameter to optimize (conversion_amount, retirement_rate, retirement_age, all)")
	cmd.Flags().String("goal", "", "Optimization goal (default: the target's first goal)")
	cmd.Flags().String("min-conversion", "", "Smallest conversion to consider")
	cmd.Flags().String("max-conversion", "", "Largest conversion to consider")
	cmd.Flags().String("min-rate", "", "Lowest retirement tax rate to search")
	cmd.Flags().String("max-rate", "", "Highest retirement tax rate to search")
	cmd.Flags().Int("min-age", 0, "Earliest retirement age to consider")
	cmd.Flags().Int("max-age", 0, "Latest retirement age to consider")
	cmd.Flags().String("target-savings", "", "Lifetime savings the break-even rate should produce")
	return cmd
}

func constraintsFromFlags(cmd *cobra.Command) (breakeven.Constraints, error) {
	c := breakeven.DefaultConstraints()
	moneyFlag := func(name string, dst **money.Money) error {
		s, _ := cmd.Flags().GetString(name)
		if s == "" {
			return nil
		}
		m, err := money.Parse(s)
		if err != nil {
			return fmt.Errorf("invalid --%s: %w", name, err)
		}
		*dst = &m
		return nil
	}
	rateFlag := func(name string, dst **decimal.Decimal) error {
		s, _ := cmd.Flags().GetString(name)
		if s == "" {
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("invalid --%s: %w", name, err)
		}
		*dst = &d
		return nil
	}
	ageFlag := func(name string, dst **int) {
		if cmd.Flags().Changed(name) {
			n, _ := cmd.Flags().GetInt(name)
			*dst = &n
		}
	}

	for _, err := range []error{
		moneyFlag("min-conversion", &c.MinConversion),
		moneyFlag("max-conversion", &c.MaxConversion),
		moneyFlag("target-savings", &c.TargetSavings),
		rateFlag("min-rate", &c.MinRetirementRate),
		rateFlag("max-rate", &c.MaxRetirementRate),
	} {
		if err != nil {
			return c, err
		}
	}
	ageFlag("min-age", &c.MinRetirementAge)
	ageFlag("max-age", &c.MaxRetirementAge)
	return c, nil
}

func formatSingle(result *breakeven.OptimizationResult, format string) (string, error) {
	switch format {
	case "", "console", "table":
		return (&breakeven.TableFormatter{}).Format(result), nil
	case "json":
		return (&breakeven.JSONFormatter{Pretty: true}).Format(result)
	}
	return "", fmt.Errorf("unsupported optimization format %q (use table or json)", format)
}

func formatMulti(result *breakeven.MultiDimensionalResult, format string) (string, error) {
	switch format {
	case "", "console", "table":
		return (&breakeven.TableFormatter{}).FormatMultiDimensional(result), nil
	case "json":
		return (&breakeven.JSONFormatter{Pretty: true}).FormatMultiDimensional(result)
	}
	return "", fmt.Errorf("unsupported optimization format %q (use table or json)", format)
}
