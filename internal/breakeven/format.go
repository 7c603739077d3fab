package breakeven

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rgehrsitz/rptax/pkg/money"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
)

// TableFormatter formats optimization results as a console table
type TableFormatter struct{}

// Format generates a formatted table for optimization result
func (tf *TableFormatter) Format(result *OptimizationResult) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("BREAK-EVEN OPTIMIZATION RESULTS") + "\n")
	sb.WriteString(strings.Repeat("=", 80) + "\n")

	sb.WriteString(fmt.Sprintf("Optimization Target: %s\n", result.Request.Target))
	sb.WriteString(fmt.Sprintf("Optimization Goal:   %s\n", result.Request.Goal))
	if h := result.Request.Household; h != nil && h.Name != "" {
		sb.WriteString(fmt.Sprintf("Household:           %s\n", h.Name))
	}
	sb.WriteString(fmt.Sprintf("Status:              %s\n", tf.formatStatus(result.Success)))
	sb.WriteString(fmt.Sprintf("Iterations:          %d\n", result.Iterations))
	if result.ConvergenceInfo != "" {
		sb.WriteString(fmt.Sprintf("Convergence:         %s\n", result.ConvergenceInfo))
	}
	sb.WriteString("\n")

	sb.WriteString(sectionStyle.Render("OPTIMAL PARAMETERS") + "\n")
	sb.WriteString(strings.Repeat("-", 80) + "\n")
	if result.OptimalConversionAmount != nil {
		sb.WriteString(fmt.Sprintf("Conversion Amount:   %s\n", result.OptimalConversionAmount.Format()))
	}
	if result.OptimalRetirementRate != nil {
		sb.WriteString(fmt.Sprintf("Retirement Tax Rate: %s\n", money.Percent(*result.OptimalRetirementRate)))
	}
	if result.OptimalRetirementAge != nil {
		sb.WriteString(fmt.Sprintf("Retirement Age:      %d\n", *result.OptimalRetirementAge))
	}
	sb.WriteString("\n")

	sb.WriteString(sectionStyle.Render("PROJECTED RESULTS") + "\n")
	sb.WriteString(strings.Repeat("-", 80) + "\n")
	if c := result.Conversion; c != nil {
		sb.WriteString(fmt.Sprintf("Conversion Tax Cost:   %s\n", c.TaxCost.Format()))
		sb.WriteString(fmt.Sprintf("Lifetime Tax Savings:  %s\n", result.LifetimeTaxSavings.Format()))
		sb.WriteString(fmt.Sprintf("Break-Even Age:        %s\n", tf.formatAge(result.BreakEvenAge)))
	}
	if result.OptimalRetirementAge != nil {
		sb.WriteString(fmt.Sprintf("Final After-Tax Value: %s\n", result.FinalAfterTaxValue.Format()))
		sb.WriteString(fmt.Sprintf("Lifetime Taxes:        %s\n", result.LifetimeTaxes.Format()))
	}
	sb.WriteString("\n")

	if !result.AfterTaxDiffFromBase.IsZero() || !result.TaxDiffFromBase.IsZero() {
		sb.WriteString(sectionStyle.Render("COMPARISON TO CURRENT PLAN") + "\n")
		sb.WriteString(strings.Repeat("-", 80) + "\n")
		if !result.AfterTaxDiffFromBase.IsZero() {
			sb.WriteString(fmt.Sprintf("After-Tax Change:       %s\n", tf.signed(result.AfterTaxDiffFromBase)))
		}
		if !result.TaxDiffFromBase.IsZero() {
			sb.WriteString(fmt.Sprintf("Tax Impact:             %s\n", tf.signed(result.TaxDiffFromBase)))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatMultiDimensional formats results from multiple optimizations
func (tf *TableFormatter) FormatMultiDimensional(result *MultiDimensionalResult) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("MULTI-DIMENSIONAL OPTIMIZATION RESULTS") + "\n")
	sb.WriteString(strings.Repeat("=", 80) + "\n\n")

	sb.WriteString(sectionStyle.Render("SUMMARY OF ALL OPTIMIZATIONS") + "\n")
	sb.WriteString(strings.Repeat("-", 80) + "\n")
	sb.WriteString(fmt.Sprintf("%-20s %-20s %18s %18s\n", "Target", "Goal", "Optimum", "After-Tax Change"))
	sb.WriteString(strings.Repeat("-", 80) + "\n")
	for _, res := range result.Results {
		sb.WriteString(fmt.Sprintf("%-20s %-20s %18s %18s\n",
			tf.truncate(string(res.Request.Target), 20),
			tf.truncate(string(res.Request.Goal), 20),
			tf.optimum(&res),
			tf.signed(res.AfterTaxDiffFromBase)))
	}
	sb.WriteString("\n")

	sb.WriteString(sectionStyle.Render("BEST SCENARIOS") + "\n")
	sb.WriteString(strings.Repeat("-", 80) + "\n")
	if r := result.BestBySavings; r != nil {
		sb.WriteString(fmt.Sprintf("Best Conversion:  %s (%s savings)\n", tf.optimum(r), r.LifetimeTaxSavings.Format()))
	}
	if r := result.BreakEvenRate; r != nil {
		sb.WriteString(fmt.Sprintf("Break-Even Rate:  %s\n", tf.optimum(r)))
	}
	if r := result.BestByWealth; r != nil {
		sb.WriteString(fmt.Sprintf("Most Wealth:      %s via %s\n", tf.optimum(r), r.Request.Target))
	}
	if r := result.BestByTaxes; r != nil {
		sb.WriteString(fmt.Sprintf("Lowest Taxes:     %s (%s lifetime)\n", tf.optimum(r), r.LifetimeTaxes.Format()))
	}
	sb.WriteString("\n")

	if len(result.Failures) > 0 {
		sb.WriteString(sectionStyle.Render("SKIPPED") + "\n")
		for _, f := range result.Failures {
			sb.WriteString(fmt.Sprintf("• %s\n", f))
		}
		sb.WriteString("\n")
	}

	if len(result.Recommendations) > 0 {
		sb.WriteString(sectionStyle.Render("RECOMMENDATIONS") + "\n")
		sb.WriteString(strings.Repeat("-", 80) + "\n")
		for _, rec := range result.Recommendations {
			sb.WriteString(fmt.Sprintf("• %s\n", rec))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// JSONFormatter formats results as JSON
type JSONFormatter struct {
	Pretty bool
}

// Format generates JSON output
func (jf *JSONFormatter) Format(result *OptimizationResult) (string, error) {
	return jf.marshal(result)
}

// FormatMultiDimensional formats multi-dimensional results as JSON
func (jf *JSONFormatter) FormatMultiDimensional(result *MultiDimensionalResult) (string, error) {
	return jf.marshal(result)
}

func (jf *JSONFormatter) marshal(v any) (string, error) {
	var data []byte
	var err error

	if jf.Pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return "", err
	}

	return string(data), nil
}

// Helper methods

func (tf *TableFormatter) formatStatus(success bool) string {
	if success {
		return "✓ Converged"
	}
	return "⚠ Did not converge"
}

func (tf *TableFormatter) formatAge(age *int) string {
	if age == nil {
		return "not within horizon"
	}
	return fmt.Sprintf("%d", *age)
}

// optimum describes the value a result settled on.
func (tf *TableFormatter) optimum(r *OptimizationResult) string {
	switch {
	case r.OptimalRetirementRate != nil:
		return money.Percent(*r.OptimalRetirementRate)
	case r.OptimalRetirementAge != nil:
		return fmt.Sprintf("age %d", *r.OptimalRetirementAge)
	case r.OptimalConversionAmount != nil:
		return r.OptimalConversionAmount.Format()
	}
	return "-"
}

func (tf *TableFormatter) signed(m money.Money) string {
	if m.IsPositive() {
		return "+" + m.Format()
	}
	return m.Format()
}

func (tf *TableFormatter) truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
