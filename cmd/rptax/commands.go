package main

import (
	"fmt"
	"strings"

	"github.com/rgehrsitz/rptax/internal/output"
	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/spf13/cobra"
)

func taxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tax [household-file]",
		Short: "Compute the household's federal and state income tax",
		Long: `Compute the household's income tax for its tax year.

Examples:
  rptax tax household.yaml
  rptax tax household.yaml --age 67
  rptax tax household.yaml --scenarios 80000,120000,200000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, engine, done, err := setup(cmd, args)
			if err != nil {
				return err
			}
			defer done()

			age := h.Facts.CurrentAge
			if cmd.Flags().Changed("age") {
				age, _ = cmd.Flags().GetInt("age")
			}
			wages, retirementIncome := h.Facts.IncomeAt(age)
			tax, err := engine.HouseholdTax(h.TaxYear, h.Facts, age, wages, retirementIncome)
			if err != nil {
				return fmt.Errorf("tax calculation failed: %w", err)
			}

			report := newReport("Income Tax", h)
			report.Tax = &tax

			scenarios, _ := cmd.Flags().GetString("scenarios")
			incomes, err := parseAmounts(scenarios)
			if err != nil {
				return err
			}
			if len(incomes) > 0 {
				results, err := engine.CompareTaxScenarios(cmd.Context(), h.TaxYear, h.Facts.FilingStatus, incomes)
				if err != nil {
					return fmt.Errorf("tax scenarios failed: %w", err)
				}
				for i, r := range results {
					report.TaxScenarios = append(report.TaxScenarios, output.TaxScenario{TaxableIncome: incomes[i], Result: r})
				}
			}
			return render(cmd, report)
		},
	}
	cmd.Flags().Int("age", 0, "Age to compute the tax at (default: current age)")
	cmd.Flags().String("scenarios", "", "Comma-separated taxable incomes to compare")
	return cmd
}

func limitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "limits [household-file]",
		Short: "Resolve contribution limits for every account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, engine, done, err := setup(cmd, args)
			if err != nil {
				return err
			}
			defer done()

			limits, err := engine.ResolveAll(h.Accounts, h.Facts, h.TaxYear)
			if err != nil {
				return fmt.Errorf("limit resolution failed: %w", err)
			}
			report := newReport("Contribution Limits", h)
			report.Limits = limits
			return render(cmd, report)
		},
	}
}

func allocateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allocate [household-file]",
		Short: "Allocate available cash across accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, engine, done, err := setup(cmd, args)
			if err != nil {
				return err
			}
			defer done()

			req := h.AllocationRequest()
			if cash, _ := cmd.Flags().GetString("cash"); cash != "" {
				if req.AvailableCash, err = money.Parse(cash); err != nil {
					return fmt.Errorf("invalid --cash: %w", err)
				}
			}
			result, err := engine.Allocate(req)
			if err != nil {
				return fmt.Errorf("allocation failed: %w", err)
			}
			report := newReport("Contribution Allocation", h)
			report.Allocation = &result
			return render(cmd, report)
		},
	}
	cmd.Flags().String("cash", "", "Cash to allocate (default: assumptions.available_cash)")
	return cmd
}

func projectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project [household-file]",
		Short: "Project balances year by year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, engine, done, err := setup(cmd, args)
			if err != nil {
				return err
			}
			defer done()

			req := h.ProjectionRequest()
			if cmd.Flags().Changed("years") {
				req.Years, _ = cmd.Flags().GetInt("years")
			}
			projection, err := engine.Project(req)
			if err != nil {
				return fmt.Errorf("projection failed: %w", err)
			}
			report := newReport("Projection", h)
			report.Projection = projection.Collect()
			return render(cmd, report)
		},
	}
	cmd.Flags().Int("years", 0, "Years to project (default: to life expectancy)")
	return cmd
}

func rothCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roth [household-file]",
		Short: "Analyze a Roth conversion",
		Long: `Analyze converting tax-deferred savings to Roth this year.

Without --amount the conversion fills the current bracket. --ladder spreads
conversions over several years.

Examples:
  rptax roth household.yaml
  rptax roth household.yaml --amount 50000
  rptax roth household.yaml --ladder 5 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, engine, done, err := setup(cmd, args)
			if err != nil {
				return err
			}
			defer done()

			req, err := h.RothRequest()
			if err != nil {
				return err
			}
			if amount, _ := cmd.Flags().GetString("amount"); amount != "" {
				m, err := money.Parse(amount)
				if err != nil {
					return fmt.Errorf("invalid --amount: %w", err)
				}
				req.ProposedAmount = &m
			}
			if cmd.Flags().Changed("ladder") {
				req.LadderYears, _ = cmd.Flags().GetInt("ladder")
			}
			scenario, err := engine.AnalyzeRoth(req)
			if err != nil {
				return fmt.Errorf("roth analysis failed: %w", err)
			}
			report := newReport("Roth Conversion", h)
			report.Roth = &scenario
			return render(cmd, report)
		},
	}
	cmd.Flags().String("amount", "", "Conversion amount (default: fill the current bracket)")
	cmd.Flags().Int("ladder", 0, "Spread conversions over this many years")
	return cmd
}

func locateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locate [household-file]",
		Short: "Recommend moving tax-inefficient holdings into sheltered accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, engine, done, err := setup(cmd, args)
			if err != nil {
				return err
			}
			defer done()

			recs, err := engine.OptimizeLocation(h.LocationRequest())
			if err != nil {
				return fmt.Errorf("asset location failed: %w", err)
			}
			report := newReport("Asset Location", h)
			report.Location = output.NewLocationReport(recs)
			return render(cmd, report)
		},
	}
}

// parseAmounts parses a comma-separated list of dollar amounts.
func parseAmounts(s string) ([]money.Money, error) {
	var amounts []money.Money
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		m, err := money.Parse(part)
		if err != nil {
			return nil, fmt.Errorf("invalid amount %q: %w", part, err)
		}
		amounts = append(amounts, m)
	}
	return amounts, nil
}
