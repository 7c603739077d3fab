package compare

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rgehrsitz/rptax/pkg/money"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
)

// TableFormatter formats comparison results as a console table
type TableFormatter struct{}

// Format generates a formatted table comparing scenarios
func (tf *TableFormatter) Format(compSet *ComparisonSet) string {
	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("HOUSEHOLD SCENARIO COMPARISON") + "\n")
	sb.WriteString(strings.Repeat("=", 90) + "\n")
	sb.WriteString(fmt.Sprintf("Base Scenario: %s (tax year %d)\n", compSet.BaseScenarioName, compSet.TaxYear))
	if compSet.ConfigPath != "" {
		sb.WriteString(fmt.Sprintf("Household: %s\n", compSet.ConfigPath))
	}
	sb.WriteString("\n")

	nameWidth := 28
	numWidth := 14

	sb.WriteString(fmt.Sprintf("%-*s %*s %*s %*s %*s\n",
		nameWidth, "Scenario",
		numWidth, "Retire Age",
		numWidth, "Lifetime Tax",
		numWidth, "Final Worth",
		numWidth, "After Tax"))
	sb.WriteString(strings.Repeat("-", 90) + "\n")

	if compSet.BaseResult != nil {
		sb.WriteString(tf.formatRow(compSet.BaseResult, nameWidth, numWidth, true))
	}

	if len(compSet.AlternativeResults) > 0 {
		sb.WriteString(strings.Repeat("-", 90) + "\n")
		for i := range compSet.AlternativeResults {
			sb.WriteString(tf.formatRow(&compSet.AlternativeResults[i], nameWidth, numWidth, false))
		}
	}

	sb.WriteString(strings.Repeat("=", 90) + "\n")

	// Comparison details (deltas from base)
	if len(compSet.AlternativeResults) > 0 {
		sb.WriteString("\n" + sectionStyle.Render("COMPARISON TO BASE") + "\n")

		for _, alt := range compSet.AlternativeResults {
			sb.WriteString(fmt.Sprintf("\n%s:\n", alt.ScenarioName))
			if alt.Description != "" {
				sb.WriteString(fmt.Sprintf("  %s\n", alt.Description))
			}

			sb.WriteString(fmt.Sprintf("  After-Tax Value:  %s (%s%%)\n",
				tf.signed(alt.AfterTaxDiffFromBase),
				alt.AfterTaxPctFromBase.StringFixed(1)))

			if !alt.NetWorthDiffFromBase.IsZero() {
				sb.WriteString(fmt.Sprintf("  Net Worth:        %s\n", tf.signed(alt.NetWorthDiffFromBase)))
			}

			if !alt.TaxDiffFromBase.IsZero() {
				sb.WriteString(fmt.Sprintf("  Tax Impact:       %s\n", tf.signed(alt.TaxDiffFromBase)))
			}
		}
		sb.WriteString("\n")
	}

	if len(compSet.Recommendations) > 0 {
		sb.WriteString("\n" + sectionStyle.Render("RECOMMENDATIONS") + "\n")
		for _, rec := range compSet.Recommendations {
			sb.WriteString(fmt.Sprintf("• %s\n", rec))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatRow formats a single scenario row
func (tf *TableFormatter) formatRow(result *ComparisonResult, nameWidth, numWidth int, isBase bool) string {
	name := result.ScenarioName
	if isBase {
		name += " (base)"
	}

	return fmt.Sprintf("%-*s %*d %*s %*s %*s\n",
		nameWidth, tf.truncate(name, nameWidth),
		numWidth, result.RetirementAge,
		numWidth, "$"+tf.formatMoney(result.LifetimeTaxes),
		numWidth, "$"+tf.formatMoney(result.FinalNetWorth),
		numWidth, "$"+tf.formatMoney(result.FinalAfterTaxValue))
}

// formatMoney formats an amount for display in thousands or millions
func (tf *TableFormatter) formatMoney(m money.Money) string {
	d := m.Decimal()
	switch abs := d.Abs(); {
	case abs.GreaterThanOrEqual(million):
		return d.Div(million).StringFixed(2) + "M"
	case abs.GreaterThanOrEqual(thousand):
		return d.Div(thousand).StringFixed(1) + "K"
	}
	return d.StringFixed(0)
}

// signed prefixes non-negative deltas with + so direction is always visible
func (tf *TableFormatter) signed(m money.Money) string {
	if m.IsNegative() {
		return "-$" + tf.formatMoney(-m)
	}
	return "+$" + tf.formatMoney(m)
}

// truncate truncates a string to maxLen
func (tf *TableFormatter) truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// FormatCompact creates a compact single-line summary for each scenario
func (tf *TableFormatter) FormatCompact(compSet *ComparisonSet) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Base: %s | ", compSet.BaseScenarioName))

	for i, alt := range compSet.AlternativeResults {
		if i > 0 {
			sb.WriteString(" | ")
		}
		change := "="
		if !alt.AfterTaxDiffFromBase.IsZero() {
			change = tf.signed(alt.AfterTaxDiffFromBase)
		}
		sb.WriteString(fmt.Sprintf("%s: %s", alt.ScenarioName, change))
	}

	return sb.String()
}
