package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	noteStyle    = lipgloss.NewStyle().Faint(true)
)

const ruleWidth = 80

// ConsoleFormatter renders the report as aligned text for a terminal.
type ConsoleFormatter struct{}

func (c ConsoleFormatter) Name() string { return "console" }

func (c ConsoleFormatter) Format(report *Report) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("report cannot be nil")
	}
	var buf bytes.Buffer

	title := report.Title
	if title == "" {
		title = "RPTAX REPORT"
	}
	fmt.Fprintln(&buf, titleStyle.Render(strings.ToUpper(title)))
	fmt.Fprintln(&buf, strings.Repeat("=", ruleWidth))
	if report.Household != "" {
		fmt.Fprintf(&buf, "Household: %s\n", report.Household)
	}
	if report.TaxYear != 0 {
		fmt.Fprintf(&buf, "Tax Year:  %d\n", report.TaxYear)
	}
	fmt.Fprintln(&buf)

	if report.Tax != nil {
		writeTax(&buf, report.Tax)
	}
	if len(report.TaxScenarios) > 0 {
		writeTaxScenarios(&buf, report.TaxScenarios)
	}
	if len(report.Limits) > 0 {
		writeLimits(&buf, report.Limits)
	}
	if report.Allocation != nil {
		writeAllocation(&buf, report.Allocation)
	}
	if len(report.Projection) > 0 {
		writeProjection(&buf, report.Projection)
	}
	if report.Roth != nil {
		writeRoth(&buf, report.Roth)
	}
	if report.Location != nil {
		writeLocation(&buf, report.Location)
	}

	return buf.Bytes(), nil
}

func section(buf *bytes.Buffer, name string) {
	fmt.Fprintln(buf, sectionStyle.Render(name))
	fmt.Fprintln(buf, strings.Repeat("-", ruleWidth))
}

func writeTax(buf *bytes.Buffer, t *domain.HouseholdTax) {
	section(buf, "INCOME TAX")
	fmt.Fprintf(buf, "Gross Income:        %s\n", t.GrossIncome.Format())
	fmt.Fprintf(buf, "Standard Deduction:  %s\n", t.StandardDeduction.Format())
	fmt.Fprintf(buf, "Taxable Income:      %s\n", t.Federal.TaxableIncome.Format())
	fmt.Fprintf(buf, "Federal Tax:         %s (marginal %s, effective %s)\n",
		t.Federal.TotalTax.Format(), money.Percent(t.Federal.MarginalRate), money.Percent(t.Federal.EffectiveRate))
	writeBrackets(buf, t.Federal.Breakdown)
	if t.State != nil {
		fmt.Fprintf(buf, "State Tax (%s):      %s\n", t.StateCode, t.State.TotalTax.Format())
	}
	fmt.Fprintf(buf, "Total Tax:           %s\n", t.TotalTax.Format())
	fmt.Fprintln(buf)
}

func writeBrackets(buf *bytes.Buffer, brackets []domain.BracketTax) {
	for _, b := range brackets {
		upper := "and up"
		if b.Upper != nil {
			upper = "to " + b.Upper.Format()
		}
		fmt.Fprintf(buf, "  %7s  %s %-18s taxed %14s  tax %12s\n",
			money.Percent(b.Rate), b.Lower.Format(), upper, b.TaxedAmount.Format(), b.Tax.Format())
	}
}

func writeTaxScenarios(buf *bytes.Buffer, scenarios []TaxScenario) {
	section(buf, "TAX SCENARIOS")
	fmt.Fprintf(buf, "%18s %16s %10s %10s\n", "Taxable Income", "Federal Tax", "Marginal", "Effective")
	for _, s := range scenarios {
		fmt.Fprintf(buf, "%18s %16s %10s %10s\n",
			s.TaxableIncome.Format(), s.Result.TotalTax.Format(),
			money.Percent(s.Result.MarginalRate), money.Percent(s.Result.EffectiveRate))
	}
	fmt.Fprintln(buf)
}

func writeLimits(buf *bytes.Buffer, limits map[string]domain.ContributionLimits) {
	section(buf, "CONTRIBUTION LIMITS")
	fmt.Fprintf(buf, "%-16s %-18s %12s %10s %12s %14s\n", "Account", "Type", "Base", "Catch-Up", "Total", "Room")
	for _, id := range sortedKeys(limits) {
		l := limits[id]
		if l.Unlimited {
			fmt.Fprintf(buf, "%-16s %-18s %12s %10s %12s %14s\n", truncate(id, 16), l.AccountType, "-", "-", "unlimited", "unlimited")
			continue
		}
		fmt.Fprintf(buf, "%-16s %-18s %12s %10s %12s %14s\n",
			truncate(id, 16), l.AccountType, l.BaseLimit.Format(), l.CatchUpLimit.Format(), l.TotalLimit.Format(), l.AvailableRoom.Format())
		if l.LimitGroup != "" {
			fmt.Fprintln(buf, noteStyle.Render(fmt.Sprintf("  shares the %s limit", l.LimitGroup)))
		}
	}
	fmt.Fprintln(buf)
}

func writeAllocation(buf *bytes.Buffer, a *domain.OptimizationResult) {
	section(buf, "CONTRIBUTION ALLOCATION")
	for _, id := range sortedKeys(a.AllocationByAccount) {
		line := fmt.Sprintf("%-20s %14s", truncate(id, 20), a.AllocationByAccount[id].Format())
		if match := a.EmployerMatchByAccount[id]; match.IsPositive() {
			line += fmt.Sprintf("  + %s match", match.Format())
		}
		fmt.Fprintln(buf, line)
	}
	fmt.Fprintf(buf, "Total Contribution:  %s\n", a.TotalContribution.Format())
	fmt.Fprintf(buf, "Tax Savings:         %s\n", a.TaxSavings.Format())
	fmt.Fprintf(buf, "Match Captured:      %s\n", a.EmployerMatchCaptured.Format())
	if a.Unallocated.IsPositive() {
		fmt.Fprintf(buf, "Unallocated:         %s\n", a.Unallocated.Format())
	}
	writeBullets(buf, a.Explanation)
	fmt.Fprintln(buf)
}

func writeProjection(buf *bytes.Buffer, rows []domain.ProjectionYear) {
	section(buf, "PROJECTION")
	fmt.Fprintf(buf, "%6s %4s %12s %12s %12s %12s %14s %14s\n",
		"Year", "Age", "Contrib", "Withdrawn", "RMD", "Taxes", "Net Worth", "After Tax")
	for _, r := range rows {
		fmt.Fprintf(buf, "%6d %4d %12s %12s %12s %12s %14s %14s\n",
			r.Year, r.Age,
			r.TotalContributions.Format(), r.TotalWithdrawals.Format(), r.RMD.Format(), r.TaxesPaid.Format(),
			r.NetWorth.Format(), r.AfterTaxValue.Format())
	}
	final := rows[len(rows)-1]
	fmt.Fprintln(buf)
	fmt.Fprintf(buf, "Final balances at age %d:\n", final.Age)
	for _, id := range sortedKeys(final.Balances) {
		fmt.Fprintf(buf, "  %-20s %14s\n", truncate(id, 20), final.Balances[id].Format())
	}
	fmt.Fprintln(buf)
}

func writeRoth(buf *bytes.Buffer, s *domain.ConversionScenario) {
	section(buf, "ROTH CONVERSION")
	fmt.Fprintf(buf, "Conversion Amount:   %s (%d)\n", s.ConversionAmount.Format(), s.ConversionYear)
	fmt.Fprintf(buf, "Taxable Income:      %s\n", s.TaxableIncome.Format())
	fmt.Fprintf(buf, "Tax Cost:            %s\n", s.TaxCost.Format())
	fmt.Fprintf(buf, "Marginal Rate After: %s\n", money.Percent(s.MarginalRateAfter))
	fmt.Fprintf(buf, "Lifetime Savings:    %s\n", s.LifetimeTaxSavings.Format())
	if s.BreakEvenAge != nil {
		fmt.Fprintf(buf, "Break-Even Age:      %d\n", *s.BreakEvenAge)
	} else {
		fmt.Fprintln(buf, "Break-Even Age:      not within horizon")
	}

	if len(s.Ladder) > 1 {
		fmt.Fprintln(buf)
		fmt.Fprintf(buf, "%6s %4s %14s %12s %9s %16s\n", "Year", "Age", "Amount", "Tax", "Marginal", "Remaining")
		for _, step := range s.Ladder {
			fmt.Fprintf(buf, "%6d %4d %14s %12s %9s %16s\n",
				step.Year, step.Age, step.Amount.Format(), step.TaxCost.Format(),
				money.Percent(step.MarginalRateAfter), step.RemainingBalance.Format())
		}
		fmt.Fprintf(buf, "Ladder Total:        %s (tax %s)\n", s.LadderTotal().Format(), s.LadderTaxCost.Format())
	}
	writeBullets(buf, s.Explanation)
	fmt.Fprintln(buf)
}

func writeLocation(buf *bytes.Buffer, l *LocationReport) {
	section(buf, "ASSET LOCATION")
	if len(l.Recommendations) == 0 {
		fmt.Fprintln(buf, "No moves recommended; holdings are already tax-efficiently placed.")
		fmt.Fprintln(buf)
		return
	}
	for i, r := range l.Recommendations {
		fmt.Fprintf(buf, "%d. Move %s of %s from %s to %s (saves %s/yr)\n",
			i+1, r.Amount.Format(), r.AssetClass, r.FromAccount, r.ToAccount, r.EstimatedTaxSavings.Format())
		if r.Rationale != "" {
			fmt.Fprintln(buf, noteStyle.Render("   "+r.Rationale))
		}
	}
	fmt.Fprintf(buf, "Estimated Annual Savings: %s\n", l.TotalSavings.Format())
	fmt.Fprintln(buf)
}

func writeBullets(buf *bytes.Buffer, lines []string) {
	for _, line := range lines {
		fmt.Fprintf(buf, "• %s\n", line)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
