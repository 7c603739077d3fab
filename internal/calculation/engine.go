package calculation

import (
	"errors"

	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
)

// DefaultTripleAdvantageWeight is the benefit per dollar used to rank HSA
// contributions against other accounts. Raise it above the marginal rate to
// fund the HSA ahead of tax-deferred accounts.
var DefaultTripleAdvantageWeight = decimal.NewFromFloat(0.05)

// Engine binds the statutory tables and a logger to the calculation
// components. It holds no per-request state and is safe for concurrent use
// once configured.
type Engine struct {
	Tables                *domain.StatutoryTables
	Logger                Logger
	TripleAdvantageWeight decimal.Decimal
}

// NewEngine creates an engine over loaded statutory tables.
func NewEngine(tables *domain.StatutoryTables) *Engine {
	return &Engine{
		Tables:                tables,
		Logger:                NopLogger{},
		TripleAdvantageWeight: DefaultTripleAdvantageWeight,
	}
}

// SetLogger sets the logger; nil restores the no-op logger.
func (e *Engine) SetLogger(l Logger) {
	if l == nil {
		e.Logger = NopLogger{}
		return
	}
	e.Logger = l
}

// rules resolves the tables of a tax year and tags failures with op.
func (e *Engine) rules(op string, taxYear int) (*domain.TaxYearRules, error) {
	rules, err := e.Tables.ForYear(taxYear)
	if err != nil {
		return nil, withOp(op, err)
	}
	return rules, nil
}

// withOp tags engine errors with the operation that produced them.
func withOp(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return de.WithOp(op)
	}
	return err
}

// FederalSchedule resolves the federal bracket schedule of a year and status.
func (e *Engine) FederalSchedule(taxYear int, status domain.FilingStatus) (domain.TaxBracketSchedule, error) {
	rules, err := e.rules("tax", taxYear)
	if err != nil {
		return domain.TaxBracketSchedule{}, err
	}
	schedule, err := rules.FederalSchedule(status)
	if err != nil {
		return domain.TaxBracketSchedule{}, withOp("tax", err)
	}
	return schedule, nil
}

// ComputeTax runs taxable income through the federal schedule of a year.
func (e *Engine) ComputeTax(taxYear int, status domain.FilingStatus, taxableIncome money.Money) (domain.TaxResult, error) {
	if !status.Valid() {
		return domain.TaxResult{}, domain.InvalidInput("filing_status", status, "malformed filing status").WithOp("tax")
	}
	schedule, err := e.FederalSchedule(taxYear, status)
	if err != nil {
		return domain.TaxResult{}, err
	}
	result := ComputeTax(taxableIncome, schedule)
	e.Logger.Debugf("tax %d/%s on %s: total=%s marginal=%s", taxYear, status, taxableIncome.Format(), result.TotalTax.Format(), result.MarginalRate)
	return result, nil
}

// HouseholdTax computes federal and state tax on a year of income at age.
func (e *Engine) HouseholdTax(taxYear int, facts domain.PersonalFacts, age int, wages, retirementIncome money.Money) (domain.HouseholdTax, error) {
	if err := facts.Validate(); err != nil {
		return domain.HouseholdTax{}, withOp("household_tax", err)
	}
	rules, err := e.rules("household_tax", taxYear)
	if err != nil {
		return domain.HouseholdTax{}, err
	}
	result, err := ComputeHouseholdTax(rules, facts, age, wages, retirementIncome)
	if err != nil {
		return domain.HouseholdTax{}, withOp("household_tax", err)
	}
	return result, nil
}

// TaxableIncomeFor returns the federal taxable income of the person's
// current income: gross minus the standard deduction for their age.
func (e *Engine) TaxableIncomeFor(taxYear int, facts domain.PersonalFacts) (money.Money, error) {
	rules, err := e.rules("tax", taxYear)
	if err != nil {
		return 0, err
	}
	return FederalTaxableIncome(rules, facts.FilingStatus, facts.CurrentAge, facts.CurrentIncome), nil
}
