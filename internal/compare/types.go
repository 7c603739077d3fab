package compare

import (
	"fmt"
	"math"

	"github.com/rgehrsitz/rptax/internal/calculation"
	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
)

// ComparisonResult represents a single household projection with calculated metrics
type ComparisonResult struct {
	ScenarioName string `json:"scenarioName"`
	Description  string `json:"description"`

	// Scenario specifics
	RetirementAge  int    `json:"retirementAge"`
	Years          int    `json:"years"`
	WithdrawalPlan string `json:"withdrawalPlan,omitempty"`

	// Key metrics
	FirstYearTax          money.Money `json:"firstYearTax"`
	LifetimeTaxes         money.Money `json:"lifetimeTaxes"`
	LifetimeContributions money.Money `json:"lifetimeContributions"`
	LifetimeEmployerMatch money.Money `json:"lifetimeEmployerMatch"`
	LifetimeRMD           money.Money `json:"lifetimeRmd"`
	LifetimeConversions   money.Money `json:"lifetimeConversions"`
	LifetimeWithdrawals   money.Money `json:"lifetimeWithdrawals"`
	FinalNetWorth         money.Money `json:"finalNetWorth"`
	FinalAfterTaxValue    money.Money `json:"finalAfterTaxValue"`
	DepletionAge          *int        `json:"depletionAge"` // nil when the portfolio outlives the projection

	// Comparison to base
	AfterTaxDiffFromBase money.Money     `json:"afterTaxDiffFromBase"`
	AfterTaxPctFromBase  decimal.Decimal `json:"afterTaxPctFromBase"`
	NetWorthDiffFromBase money.Money     `json:"netWorthDiffFromBase"`
	TaxDiffFromBase      money.Money     `json:"taxDiffFromBase"`
}

// ComparisonSet represents a collection of household comparisons
type ComparisonSet struct {
	BaseScenarioName   string             `json:"baseScenarioName"`
	TaxYear            int                `json:"taxYear"`
	BaseResult         *ComparisonResult  `json:"baseResult"`
	AlternativeResults []ComparisonResult `json:"alternativeResults"`
	Recommendations    []string           `json:"recommendations"`
	ConfigPath         string             `json:"configPath,omitempty"`
}

// MetricsCalculator extracts key metrics from projections
type MetricsCalculator struct{}

// NewMetricsCalculator creates a new metrics calculator
func NewMetricsCalculator() *MetricsCalculator {
	return &MetricsCalculator{}
}

// CalculateMetrics walks a projection once and computes its comparison metrics.
func (mc *MetricsCalculator) CalculateMetrics(name string, household *domain.Household, projection *calculation.Projection) ComparisonResult {
	req := projection.Request()
	result := ComparisonResult{
		ScenarioName:  name,
		RetirementAge: req.Facts.RetirementAge,
		Years:         req.Years,
	}
	if w := req.Options.Withdrawals; w != nil {
		result.WithdrawalPlan = w.Strategy
	}
	if household != nil && result.ScenarioName == "" {
		result.ScenarioName = household.Name
	}

	var last domain.ProjectionYear
	for year := range projection.Years() {
		last = year
		if year.Year == req.TaxYear {
			// starting state
			continue
		}
		if year.Year == req.TaxYear+1 {
			result.FirstYearTax = year.TaxesPaid
		}
		result.LifetimeTaxes += year.TaxesPaid
		result.LifetimeContributions += year.TotalContributions
		result.LifetimeEmployerMatch += year.EmployerMatch
		result.LifetimeRMD += year.RMD
		result.LifetimeConversions += year.Conversions
		result.LifetimeWithdrawals += year.TotalWithdrawals
		if result.DepletionAge == nil && req.Facts.IsRetiredAt(year.Age) && !year.NetWorth.IsPositive() {
			age := year.Age
			result.DepletionAge = &age
		}
	}
	result.FinalNetWorth = last.NetWorth
	result.FinalAfterTaxValue = last.AfterTaxValue

	return result
}

// CalculateComparison computes comparison metrics between a scenario and a base
func (mc *MetricsCalculator) CalculateComparison(scenario, base ComparisonResult) ComparisonResult {
	scenario.AfterTaxDiffFromBase = scenario.FinalAfterTaxValue - base.FinalAfterTaxValue
	scenario.AfterTaxPctFromBase = decimal.Zero
	if !base.FinalAfterTaxValue.IsZero() {
		scenario.AfterTaxPctFromBase = scenario.AfterTaxDiffFromBase.Ratio(base.FinalAfterTaxValue).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}
	scenario.NetWorthDiffFromBase = scenario.FinalNetWorth - base.FinalNetWorth
	scenario.TaxDiffFromBase = scenario.LifetimeTaxes - base.LifetimeTaxes
	return scenario
}

// fundedUntil orders depletion ages; a portfolio that never depletes beats any age.
func fundedUntil(r *ComparisonResult) int {
	if r.DepletionAge == nil {
		return math.MaxInt
	}
	return *r.DepletionAge
}

// GenerateRecommendations creates recommendations based on comparison results
func GenerateRecommendations(compSet *ComparisonSet) []string {
	recommendations := []string{}

	if compSet.BaseResult == nil || len(compSet.AlternativeResults) == 0 {
		return recommendations
	}
	base := compSet.BaseResult

	// Find best scenario by after-tax value
	best := base
	for i := range compSet.AlternativeResults {
		alt := &compSet.AlternativeResults[i]
		if alt.FinalAfterTaxValue > best.FinalAfterTaxValue {
			best = alt
		}
	}
	if best != base {
		recommendations = append(recommendations, fmt.Sprintf(
			"Best Outcome: %s ends with %s more after-tax wealth than the base plan",
			best.ScenarioName, (best.FinalAfterTaxValue - base.FinalAfterTaxValue).Format()))
	}

	// Find lowest tax burden
	lowestTax := base
	for i := range compSet.AlternativeResults {
		alt := &compSet.AlternativeResults[i]
		if alt.LifetimeTaxes < lowestTax.LifetimeTaxes {
			lowestTax = alt
		}
	}
	if lowestTax != base {
		recommendations = append(recommendations, fmt.Sprintf(
			"Lowest Taxes: %s saves %s in lifetime taxes",
			lowestTax.ScenarioName, (base.LifetimeTaxes - lowestTax.LifetimeTaxes).Format()))
	}

	// Find best longevity, only meaningful when the base plan runs out
	if base.DepletionAge != nil {
		longest := base
		for i := range compSet.AlternativeResults {
			alt := &compSet.AlternativeResults[i]
			if fundedUntil(alt) > fundedUntil(longest) {
				longest = alt
			}
		}
		if longest != base {
			if longest.DepletionAge == nil {
				recommendations = append(recommendations, fmt.Sprintf(
					"Best Longevity: %s keeps the portfolio funded for the whole plan (base runs out at %d)",
					longest.ScenarioName, *base.DepletionAge))
			} else {
				recommendations = append(recommendations, fmt.Sprintf(
					"Best Longevity: %s keeps the portfolio funded %d years longer",
					longest.ScenarioName, *longest.DepletionAge-*base.DepletionAge))
			}
		}
	}

	return recommendations
}
