package calculation

import (
	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
)

// TAX CALCULATION ASSUMPTIONS:
//
// 1. Federal brackets and standard deductions come from the statutory tables
//    of the requested tax year; the same year is applied to every projected
//    year (no inflation indexing).
// 2. Tax is computed exactly in decimal and floored to the cent once, so the
//    effective rate can never exceed the marginal rate.
// 3. State tax is a simplified schedule on gross income with no state
//    deduction. States flagged exempts_retirement_income tax wages only
//    (pensions, distributions and conversions are excluded).
// 4. No capital gains schedule is modeled; taxable account drag stands in
//    for taxes on dividends and turnover.

// ComputeTax runs taxable income through a bracket schedule. Income at or
// below zero yields a zero result.
func ComputeTax(taxableIncome money.Money, schedule domain.TaxBracketSchedule) domain.TaxResult {
	result := domain.TaxResult{
		TaxableIncome: taxableIncome,
		MarginalRate:  decimal.Zero,
		EffectiveRate: decimal.Zero,
		Breakdown:     []domain.BracketTax{},
	}
	if taxableIncome <= 0 || len(schedule.Brackets) == 0 {
		return result
	}

	type slice struct {
		bracket domain.TaxBracket
		amount  money.Money
		exact   decimal.Decimal
	}
	var touched []slice
	exactTotal := decimal.Zero
	last := len(schedule.Brackets) - 1
	for i, b := range schedule.Brackets {
		if taxableIncome <= b.Lower {
			break
		}
		top := taxableIncome
		// income above a bounded top bracket is taxed at the top rate
		if b.Upper != nil && i < last && *b.Upper < top {
			top = *b.Upper
		}
		amount := top - b.Lower
		exact := decimal.NewFromInt(amount.Cents()).Mul(b.Rate)
		touched = append(touched, slice{bracket: b, amount: amount, exact: exact})
		exactTotal = exactTotal.Add(exact)
		if top == taxableIncome {
			break
		}
	}

	total := money.Money(exactTotal.Floor().IntPart())
	allocated := money.Zero
	for i, s := range touched {
		tax := money.Money(s.exact.Floor().IntPart())
		if i == len(touched)-1 {
			tax = total - allocated
		}
		allocated += tax
		result.Breakdown = append(result.Breakdown, domain.BracketTax{
			Rate:        s.bracket.Rate,
			Lower:       s.bracket.Lower,
			Upper:       s.bracket.Upper,
			TaxedAmount: s.amount,
			Tax:         tax,
		})
	}

	result.TotalTax = total
	result.MarginalRate = touched[len(touched)-1].bracket.Rate
	result.EffectiveRate = total.Ratio(taxableIncome).Truncate(8)
	return result
}

// bracketIndexForRate returns the highest bracket whose rate does not exceed
// rate, or -1.
func bracketIndexForRate(schedule domain.TaxBracketSchedule, rate decimal.Decimal) int {
	idx := -1
	for i, b := range schedule.Brackets {
		if b.Rate.LessThanOrEqual(rate) {
			idx = i
		}
	}
	return idx
}

// BracketCeiling returns the upper bound of the highest bracket whose rate
// does not exceed rate. ok is false when that bracket is unbounded or no
// bracket qualifies.
func BracketCeiling(schedule domain.TaxBracketSchedule, rate decimal.Decimal) (ceiling money.Money, ok bool) {
	idx := bracketIndexForRate(schedule, rate)
	if idx < 0 || schedule.Brackets[idx].Upper == nil {
		return 0, false
	}
	return *schedule.Brackets[idx].Upper, true
}

// BracketHeadroom is the income that can be added before leaving the bracket
// taxed at rate. bounded is false when that bracket has no upper bound, in
// which case headroom is meaningless and returned as zero.
func BracketHeadroom(taxableIncome money.Money, schedule domain.TaxBracketSchedule, rate decimal.Decimal) (headroom money.Money, bounded bool) {
	idx := bracketIndexForRate(schedule, rate)
	if idx < 0 {
		return 0, true
	}
	upper := schedule.Brackets[idx].Upper
	if upper == nil {
		return 0, false
	}
	return (*upper - taxableIncome.NonNegative()).NonNegative(), true
}

// FederalTaxableIncome subtracts the standard deduction from gross income.
func FederalTaxableIncome(rules *domain.TaxYearRules, status domain.FilingStatus, age int, gross money.Money) money.Money {
	return (gross - rules.StandardDeduction(status, age)).NonNegative()
}

// StateTaxCalculator applies the simplified state schedules.
type StateTaxCalculator struct {
	rules *domain.TaxYearRules
}

// NewStateTaxCalculator creates a state calculator for one tax year.
func NewStateTaxCalculator(rules *domain.TaxYearRules) *StateTaxCalculator {
	return &StateTaxCalculator{rules: rules}
}

// CalculateTax taxes wages, plus retirement income unless the state exempts it.
// ok is false when the state has no configured schedule.
func (sc *StateTaxCalculator) CalculateTax(state string, status domain.FilingStatus, wages, retirementIncome money.Money) (domain.TaxResult, bool) {
	schedule, rules, ok := sc.rules.StateSchedule(state, status)
	if !ok {
		return domain.TaxResult{}, false
	}
	base := wages
	if !rules.ExemptsRetirementIncome {
		base += retirementIncome
	}
	return ComputeTax(base, schedule), true
}

// ComputeHouseholdTax combines federal and state tax for one year. wages is
// earned income net of deductible contributions; retirementIncome covers
// pensions, distributions and conversions.
func ComputeHouseholdTax(rules *domain.TaxYearRules, facts domain.PersonalFacts, age int, wages, retirementIncome money.Money) (domain.HouseholdTax, error) {
	schedule, err := rules.FederalSchedule(facts.FilingStatus)
	if err != nil {
		return domain.HouseholdTax{}, err
	}
	gross := wages.NonNegative() + retirementIncome.NonNegative()
	deduction := rules.StandardDeduction(facts.FilingStatus, age)
	federal := ComputeTax((gross - deduction).NonNegative(), schedule)

	result := domain.HouseholdTax{
		TaxYear:           rules.Year,
		GrossIncome:       gross,
		StandardDeduction: deduction,
		Federal:           federal,
		TotalTax:          federal.TotalTax,
	}
	if code := facts.State(); code != "" {
		if state, ok := NewStateTaxCalculator(rules).CalculateTax(code, facts.FilingStatus, wages.NonNegative(), retirementIncome.NonNegative()); ok {
			result.State = &state
			result.StateCode = code
			result.TotalTax += state.TotalTax
		}
	}
	return result, nil
}
