package calculation

import (
	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
)

// RMD assumptions:
//  - The Uniform Lifetime Table divisor is applied to the balance after the
//    year's growth and contributions.
//  - Ages past the end of the configured table are an error; the table is
//    never extrapolated.

// calculateRMD returns the required distribution of a balance at age. It is
// zero below the trigger age.
func calculateRMD(rules domain.RMDRules, balance money.Money, age int) (money.Money, error) {
	if age < rules.TriggerAge || !balance.IsPositive() {
		return 0, nil
	}
	factor, ok := rules.Factor(age)
	if !ok {
		return 0, domain.UnknownStatutoryYear("age", age, "no RMD factor for age %d (table ends at %d)", age, rules.MaxAge())
	}
	rmd := balance.DivFactor(factor)
	if rmd > balance {
		rmd = balance
	}
	return rmd, nil
}

// ComputeRMD returns the required minimum distribution of a tax-deferred
// balance for an owner of the given age.
func (e *Engine) ComputeRMD(taxYear int, age int, balance money.Money) (money.Money, error) {
	const op = "rmd"
	if balance.IsNegative() {
		return 0, domain.InvalidInput("balance", balance, "balance cannot be negative").WithOp(op)
	}
	rules, err := e.rules(op, taxYear)
	if err != nil {
		return 0, err
	}
	rmd, err := calculateRMD(rules.RMD, balance, age)
	if err != nil {
		return 0, withOp(op, err)
	}
	return rmd, nil
}
