package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestReport() *Report {
	age := 47
	upper := money.FromDollars(23200)
	return &Report{
		Title:     "Household Report",
		Household: "Sample Household",
		TaxYear:   2024,
		Tax: &domain.HouseholdTax{
			TaxYear:           2024,
			GrossIncome:       money.FromDollars(100000),
			StandardDeduction: money.FromDollars(29200),
			Federal: domain.TaxResult{
				TaxableIncome: money.FromDollars(70800),
				TotalTax:      money.FromDollars(8032),
				MarginalRate:  decimal.NewFromFloat(0.12),
				EffectiveRate: decimal.NewFromFloat(0.1134),
				Breakdown: []domain.BracketTax{
					{Rate: decimal.NewFromFloat(0.10), Lower: 0, Upper: &upper, TaxedAmount: upper, Tax: money.FromDollars(2320)},
				},
			},
			TotalTax: money.FromDollars(8032),
		},
		Limits: map[string]domain.ContributionLimits{
			"work-401k": {AccountType: domain.Traditional401k, TaxYear: 2024, BaseLimit: money.FromDollars(23000),
				TotalLimit: money.FromDollars(23000), AvailableRoom: money.FromDollars(23000), LimitGroup: "elective_deferral"},
			"brokerage": {AccountType: domain.TaxableAccount, TaxYear: 2024, Unlimited: true},
		},
		Allocation: &domain.OptimizationResult{
			AllocationByAccount:    map[string]money.Money{"work-401k": money.FromDollars(15000), "roth-ira": money.FromDollars(5000)},
			EmployerMatchByAccount: map[string]money.Money{"work-401k": money.FromDollars(4500)},
			TotalContribution:      money.FromDollars(20000),
			TaxSavings:             money.FromDollars(3300),
			EmployerMatchCaptured:  money.FromDollars(4500),
			Explanation:            []string{"Captured the full employer match"},
		},
		Projection: []domain.ProjectionYear{
			{Year: 2024, Age: 45, Balances: map[string]money.Money{"work-401k": money.FromDollars(100000)}, NetWorth: money.FromDollars(100000), AfterTaxValue: money.FromDollars(78000)},
			{Year: 2025, Age: 46, Balances: map[string]money.Money{"work-401k": money.FromDollars(126000)}, TotalContributions: money.FromDollars(20000), NetWorth: money.FromDollars(126000), AfterTaxValue: money.FromDollars(98280)},
		},
		Roth: &domain.ConversionScenario{
			ConversionAmount:   money.FromDollars(130250),
			ConversionYear:     2024,
			TaxCost:            money.FromDollars(26305),
			LifetimeTaxSavings: money.FromDollars(12000),
			BreakEvenAge:       &age,
			BreakEven:          domain.BreakEvenFound,
			Ladder: []domain.ConversionStep{
				{Year: 2024, Age: 45, Amount: money.FromDollars(130250), TaxCost: money.FromDollars(26305)},
				{Year: 2025, Age: 46, Amount: money.FromDollars(120000), TaxCost: money.FromDollars(24000)},
			},
			LadderTaxCost: money.FromDollars(50305),
		},
		Location: NewLocationReport([]domain.LocationRecommendation{
			{AssetClass: "bonds", FromAccount: "brokerage", ToAccount: "work-401k", Amount: money.FromDollars(40000),
				TaxDragRate: decimal.NewFromFloat(0.0088), EstimatedTaxSavings: money.FromDollars(352)},
		}),
	}
}

func TestFormatterFunc_Format(t *testing.T) {
	called := false
	var received *Report

	formatter := FormatterFunc{
		ID: "test-formatter",
		F: func(report *Report) ([]byte, error) {
			called = true
			received = report
			return []byte("test output"), nil
		},
	}

	report := buildTestReport()
	out, err := formatter.Format(report)

	assert.NoError(t, err, "Should not error")
	assert.True(t, called, "Should call the function")
	assert.Same(t, report, received, "Should pass the report")
	assert.Equal(t, []byte("test output"), out, "Should return the function output")
	assert.Equal(t, "test-formatter", formatter.Name(), "Should return the ID")
}

func TestWriteFormatted(t *testing.T) {
	t.Chdir(t.TempDir())

	formatter := FormatterFunc{
		ID: "test-formatter",
		F: func(*Report) ([]byte, error) {
			return []byte("test output content"), nil
		},
	}

	filename, err := WriteFormatted(formatter, buildTestReport(), "txt")
	require.NoError(t, err, "Should not error")
	assert.True(t, strings.HasPrefix(filename, "rptax_report_"), "Should have correct prefix")
	assert.True(t, strings.HasSuffix(filename, ".txt"), "Should have correct extension")

	content, err := os.ReadFile(filename)
	require.NoError(t, err, "Should be able to read the file")
	assert.Equal(t, "test output content", string(content), "Should have correct content")
}

func TestWriteFormatted_FormatterError(t *testing.T) {
	formatter := FormatterFunc{
		ID: "error-formatter",
		F: func(*Report) ([]byte, error) {
			return nil, fmt.Errorf("formatter error")
		},
	}

	filename, err := WriteFormatted(formatter, buildTestReport(), "txt")
	assert.Error(t, err, "Should error when formatter fails")
	assert.Empty(t, filename, "Should return empty filename on error")
	assert.Contains(t, err.Error(), "formatter error", "Should propagate formatter error")
}

func TestConsoleFormatter_Format(t *testing.T) {
	out, err := ConsoleFormatter{}.Format(buildTestReport())
	require.NoError(t, err)

	content := string(out)
	for _, want := range []string{
		"HOUSEHOLD REPORT",
		"Household: Sample Household",
		"Taxable Income:      $70,800.00",
		"Federal Tax:         $8,032.00 (marginal 12.00%, effective 11.34%)",
		"CONTRIBUTION LIMITS",
		"unlimited",
		"shares the elective_deferral limit",
		"+ $4,500.00 match",
		"• Captured the full employer match",
		"Final balances at age 46:",
		"Break-Even Age:      47",
		"Ladder Total:        $250,250.00 (tax $50,305.00)",
		"1. Move $40,000.00 of bonds from brokerage to work-401k (saves $352.00/yr)",
	} {
		assert.Contains(t, content, want)
	}
}

func TestConsoleFormatter_EmptySections(t *testing.T) {
	out, err := ConsoleFormatter{}.Format(&Report{Location: NewLocationReport(nil)})
	require.NoError(t, err)

	content := string(out)
	assert.Contains(t, content, "RPTAX REPORT", "Should fall back to the default title")
	assert.Contains(t, content, "No moves recommended")
	assert.NotContains(t, content, "PROJECTION")

	_, err = ConsoleFormatter{}.Format(nil)
	assert.Error(t, err)
}

func TestCSVFormatter_Format(t *testing.T) {
	out, err := CSVFormatter{}.Format(buildTestReport())
	require.NoError(t, err)

	blocks := strings.Split(strings.TrimSpace(string(out)), "\n\n")
	require.Len(t, blocks, 6, "tax, limits, allocation, projection, ladder and location")

	projection, err := csv.NewReader(strings.NewReader(blocks[3])).ReadAll()
	require.NoError(t, err)
	require.Len(t, projection, 3)
	assert.Equal(t, "Balance work-401k", projection[0][len(projection[0])-1])
	assert.Equal(t, []string{"2025", "46", "20000.00"}, projection[2][:3])

	limits, err := csv.NewReader(strings.NewReader(blocks[1])).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "brokerage", limits[1][0], "Accounts should be sorted")
	assert.Equal(t, "true", limits[1][7])
}

func TestJSONFormatter_Format(t *testing.T) {
	out, err := JSONFormatter{Indent: true}.Format(buildTestReport())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "Sample Household", decoded["household"])
	assert.Contains(t, decoded, "projection")
	assert.Contains(t, decoded, "roth")

	out, err = JSONFormatter{}.Format(&Report{TaxYear: 2025})
	require.NoError(t, err)
	assert.Equal(t, `{"taxYear":2025}`+"\n", string(out), "Empty sections are omitted")
}

func TestAvailableFormatterNames(t *testing.T) {
	assert.Equal(t, []string{"console", "csv", "json"}, AvailableFormatterNames())

	aliases := AvailableFormatAliases()
	assert.Contains(t, aliases, "table")
	assert.Contains(t, aliases, "text")
}

func TestGetFormatterByName(t *testing.T) {
	formatter := GetFormatterByName("table")
	require.NotNil(t, formatter, "Should resolve aliases")
	assert.Equal(t, "console", formatter.Name())

	assert.Equal(t, "json", GetFormatterByName("JSON").Name(), "Should ignore case")
	assert.Nil(t, GetFormatterByName("html"), "Should return nil for unknown names")
}

func TestRender(t *testing.T) {
	out, err := Render(&Report{TaxYear: 2024}, "")
	require.NoError(t, err)
	assert.Contains(t, string(out), "Tax Year:  2024")

	_, err = Render(&Report{}, "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format: xml")
}
