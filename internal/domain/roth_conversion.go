package domain

import (
	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
)

// BreakEvenStatus tells whether a break-even age exists within the horizon.
type BreakEvenStatus string

const (
	BreakEvenFound         BreakEvenStatus = "found"
	BreakEvenIndeterminate BreakEvenStatus = "indeterminate"
)

// RothRequest holds the inputs of a Roth conversion analysis.
type RothRequest struct {
	TaxYear            int           `yaml:"tax_year" json:"taxYear"`
	Facts              PersonalFacts `yaml:"facts" json:"facts"`
	TraditionalBalance money.Money   `yaml:"traditional_balance" json:"traditionalBalance"`
	// CurrentMarginalRate selects the bracket to fill. Zero means the
	// bracket of the current taxable income.
	CurrentMarginalRate    decimal.Decimal `yaml:"current_marginal_rate" json:"currentMarginalRate"`
	ExpectedRetirementRate decimal.Decimal `yaml:"expected_retirement_rate" json:"expectedRetirementRate"`
	ExpectedReturn         decimal.Decimal `yaml:"expected_return" json:"expectedReturn"`
	// ProposedAmount overrides the bracket-fill amount when set.
	ProposedAmount *money.Money `yaml:"proposed_amount,omitempty" json:"proposedAmount,omitempty"`
	// Cap bounds the bracket-fill amount when set.
	Cap *money.Money `yaml:"cap,omitempty" json:"cap,omitempty"`
	// LadderYears is the number of consecutive conversion years to plan.
	LadderYears int `yaml:"ladder_years" json:"ladderYears"`
	// SideFundDrag is the annual tax drag on the taxable fund that holds the
	// tax money in the no-conversion path. Nil means expectedReturn × marginal rate.
	SideFundDrag *decimal.Decimal `yaml:"side_fund_drag,omitempty" json:"sideFundDrag,omitempty"`
}

// Validate checks the request before any analysis work happens.
func (r RothRequest) Validate() error {
	if err := r.Facts.Validate(); err != nil {
		return err
	}
	if r.TraditionalBalance.IsNegative() {
		return InvalidInput("traditional_balance", r.TraditionalBalance, "balance cannot be negative")
	}
	one := decimal.NewFromInt(1)
	if r.CurrentMarginalRate.IsNegative() || r.CurrentMarginalRate.GreaterThan(one) {
		return InvalidInput("current_marginal_rate", r.CurrentMarginalRate, "rate must be between 0 and 1")
	}
	if r.ExpectedRetirementRate.IsNegative() || r.ExpectedRetirementRate.GreaterThan(one) {
		return InvalidInput("expected_retirement_rate", r.ExpectedRetirementRate, "rate must be between 0 and 1")
	}
	if r.ExpectedReturn.LessThanOrEqual(one.Neg()) {
		return InvalidInput("expected_return", r.ExpectedReturn, "expected return must be greater than -100%%")
	}
	if p := r.ProposedAmount; p != nil {
		if p.IsNegative() {
			return InvalidInput("proposed_amount", *p, "conversion amount cannot be negative")
		}
		if *p > r.TraditionalBalance {
			return ConstraintViolation("proposed_amount", *p, "conversion exceeds traditional balance %s", r.TraditionalBalance.Format())
		}
	}
	if r.Cap != nil && r.Cap.IsNegative() {
		return InvalidInput("cap", *r.Cap, "cap cannot be negative")
	}
	if r.LadderYears < 0 {
		return InvalidInput("ladder_years", r.LadderYears, "ladder years cannot be negative")
	}
	if d := r.SideFundDrag; d != nil && (d.IsNegative() || d.GreaterThan(one)) {
		return InvalidInput("side_fund_drag", *d, "drag must be between 0 and 1")
	}
	return nil
}

// ConversionStep is one year of a conversion ladder.
type ConversionStep struct {
	Year                int             `json:"year"`
	Age                 int             `json:"age"`
	TaxableIncomeBefore money.Money     `json:"taxableIncomeBefore"`
	Amount              money.Money     `json:"amount"`
	TaxCost             money.Money     `json:"taxCost"`
	MarginalRateAfter   decimal.Decimal `json:"marginalRateAfter"`
	RemainingBalance    money.Money     `json:"remainingBalance"`
}

// ConversionScenario is the result of a Roth conversion analysis.
// BreakEvenAge is nil when no break-even exists within the horizon.
type ConversionScenario struct {
	ConversionAmount   money.Money      `json:"conversionAmount"`
	ConversionYear     int              `json:"conversionYear"`
	TaxableIncome      money.Money      `json:"taxableIncome"`
	TaxCost            money.Money      `json:"taxCost"`
	LifetimeTaxSavings money.Money      `json:"lifetimeTaxSavings"`
	BreakEvenAge       *int             `json:"breakEvenAge"`
	BreakEven          BreakEvenStatus  `json:"breakEven"`
	MarginalRateAfter  decimal.Decimal  `json:"marginalRateAfter"`
	Ladder             []ConversionStep `json:"ladder"`
	LadderTaxCost      money.Money      `json:"ladderTaxCost"`
	Explanation        []string         `json:"explanation,omitempty"`
}

// LadderTotal sums the ladder's conversion amounts.
func (s ConversionScenario) LadderTotal() money.Money {
	var total money.Money
	for _, step := range s.Ladder {
		total += step.Amount
	}
	return total
}
