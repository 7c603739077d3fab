package compare

import (
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	thousand = decimal.NewFromInt(1000)
	million  = decimal.NewFromInt(1000000)
)

// CSVFormatter formats comparison results as CSV
type CSVFormatter struct{}

// Format generates CSV output for comparison results
func (cf *CSVFormatter) Format(compSet *ComparisonSet) (string, error) {
	var sb strings.Builder
	writer := csv.NewWriter(&sb)

	header := []string{
		"Scenario",
		"Type",
		"Retirement Age",
		"First Year Tax",
		"Lifetime Taxes",
		"Lifetime Contributions",
		"Lifetime RMD",
		"Lifetime Conversions",
		"Final Net Worth",
		"Final After-Tax Value",
		"Depletion Age",
		"After-Tax Diff from Base",
		"After-Tax % Change",
		"Tax Diff from Base",
	}
	if err := writer.Write(header); err != nil {
		return "", err
	}

	if compSet.BaseResult != nil {
		if err := writer.Write(cf.formatRow(compSet.BaseResult, "base")); err != nil {
			return "", err
		}
	}

	for i := range compSet.AlternativeResults {
		if err := writer.Write(cf.formatRow(&compSet.AlternativeResults[i], "alternative")); err != nil {
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}

	return sb.String(), nil
}

// formatRow formats a comparison result as a CSV row
func (cf *CSVFormatter) formatRow(result *ComparisonResult, scenarioType string) []string {
	depletion := ""
	if result.DepletionAge != nil {
		depletion = strconv.Itoa(*result.DepletionAge)
	}
	return []string{
		result.ScenarioName,
		scenarioType,
		strconv.Itoa(result.RetirementAge),
		result.FirstYearTax.String(),
		result.LifetimeTaxes.String(),
		result.LifetimeContributions.String(),
		result.LifetimeRMD.String(),
		result.LifetimeConversions.String(),
		result.FinalNetWorth.String(),
		result.FinalAfterTaxValue.String(),
		depletion,
		result.AfterTaxDiffFromBase.String(),
		result.AfterTaxPctFromBase.StringFixed(2),
		result.TaxDiffFromBase.String(),
	}
}
