package transform

import (
	"fmt"

	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
)

// SetExpectedReturn changes the nominal annual return of every account.
type SetExpectedReturn struct {
	Rate decimal.Decimal // e.g., 0.05 for 5%
}

func (ser *SetExpectedReturn) Name() string {
	return "set_return"
}

func (ser *SetExpectedReturn) Description() string {
	percentage := ser.Rate.Mul(decimal.NewFromInt(100))
	return fmt.Sprintf("Change expected return to %s%%", percentage.StringFixed(1))
}

func (ser *SetExpectedReturn) Validate(base *domain.Household) error {
	if ser.Rate.LessThan(decimal.NewFromFloat(-0.5)) || ser.Rate.GreaterThan(decimal.NewFromFloat(0.25)) {
		return NewTransformError(ser.Name(), "validate", fmt.Sprintf("return must be between -0.50 and 0.25, got %s", ser.Rate.String()), nil)
	}
	return requireBase(ser.Name(), base)
}

func (ser *SetExpectedReturn) Apply(base *domain.Household) (*domain.Household, error) {
	modified := base.Clone()
	modified.Assumptions.ExpectedReturn = ser.Rate
	return modified, nil
}

// validWithdrawalStrategies are the strategies the sequencing package knows.
var validWithdrawalStrategies = map[string]bool{
	"standard":      true,
	"tax_efficient": true,
	"bracket_fill":  true,
	"custom":        true,
}

// SetWithdrawalStrategy changes how retirement spending is sourced.
type SetWithdrawalStrategy struct {
	Strategy          string
	TargetBracketRate *decimal.Decimal // only used by bracket_fill
}

func (sws *SetWithdrawalStrategy) Name() string {
	return "set_withdrawals"
}

func (sws *SetWithdrawalStrategy) Description() string {
	if sws.TargetBracketRate != nil {
		percentage := sws.TargetBracketRate.Mul(decimal.NewFromInt(100))
		return fmt.Sprintf("Withdraw with %s up to the %s%% bracket", sws.Strategy, percentage.StringFixed(0))
	}
	return fmt.Sprintf("Withdraw with the %s strategy", sws.Strategy)
}

func (sws *SetWithdrawalStrategy) Validate(base *domain.Household) error {
	if !validWithdrawalStrategies[sws.Strategy] {
		return NewTransformError(sws.Name(), "validate", fmt.Sprintf("invalid strategy %s", sws.Strategy), nil)
	}
	if sws.Strategy == "custom" && (base == nil || base.Assumptions.Projection.Withdrawals == nil ||
		len(base.Assumptions.Projection.Withdrawals.CustomSequence) == 0) {
		return NewTransformError(sws.Name(), "validate", "custom strategy needs a custom_sequence in the household", nil)
	}
	return requireBase(sws.Name(), base)
}

func (sws *SetWithdrawalStrategy) Apply(base *domain.Household) (*domain.Household, error) {
	modified := base.Clone()
	opts := &modified.Assumptions.Projection
	if opts.Withdrawals == nil {
		opts.Withdrawals = &domain.WithdrawalSequencingConfig{}
	}
	opts.Withdrawals.Strategy = sws.Strategy
	if sws.TargetBracketRate != nil {
		rate := *sws.TargetBracketRate
		opts.Withdrawals.TargetBracketRate = &rate
	}
	return modified, nil
}

// SetAnnualSpending changes the gross spending drawn each retired year.
type SetAnnualSpending struct {
	Amount money.Money
}

func (sas *SetAnnualSpending) Name() string {
	return "set_spending"
}

func (sas *SetAnnualSpending) Description() string {
	return fmt.Sprintf("Spend %s a year in retirement", sas.Amount.Format())
}

func (sas *SetAnnualSpending) Validate(base *domain.Household) error {
	if sas.Amount.IsNegative() {
		return NewTransformError(sas.Name(), "validate", fmt.Sprintf("spending cannot be negative, got %s", sas.Amount), nil)
	}
	return requireBase(sas.Name(), base)
}

func (sas *SetAnnualSpending) Apply(base *domain.Household) (*domain.Household, error) {
	modified := base.Clone()
	modified.Assumptions.Projection.AnnualSpending = sas.Amount
	return modified, nil
}
