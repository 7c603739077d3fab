package calculation

import (
	"fmt"

	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
)

// Account ids of the two-path projection behind a conversion analysis.
const (
	conversionTraditionalID = "traditional"
	conversionRothID        = "roth"
	conversionReserveID     = "tax-reserve"
)

// ROTH CONVERSION ASSUMPTIONS:
//
// 1. The conversion happens at the start of the analysis year; its tax is
//    paid from money outside the accounts.
// 2. The no-conversion path keeps that tax money invested in a taxable
//    reserve that grows at the expected return less a drag, so the
//    comparison is net of the conversion's tax cost.
// 3. Tax-deferred balances are valued at (1 - expected retirement rate);
//    RMDs are reinvested net of the tax they add.
// 4. The bracket-fill amount is the headroom left in the bracket taxed at
//    the current marginal rate, bounded by the balance and the caller's cap.
// 5. Break-even is the first age after the conversion year at which the
//    conversion path is worth more; the conversion instant itself is skipped.

// AnalyzeRoth evaluates converting traditional savings to Roth this year
// and, when LadderYears > 1, over consecutive years.
func (e *Engine) AnalyzeRoth(req domain.RothRequest) (domain.ConversionScenario, error) {
	const op = "roth"
	if err := req.Validate(); err != nil {
		return domain.ConversionScenario{}, withOp(op, err)
	}
	rules, err := e.rules(op, req.TaxYear)
	if err != nil {
		return domain.ConversionScenario{}, err
	}
	schedule, err := rules.FederalSchedule(req.Facts.FilingStatus)
	if err != nil {
		return domain.ConversionScenario{}, withOp(op, err)
	}

	facts := req.Facts
	taxable := FederalTaxableIncome(rules, facts.FilingStatus, facts.CurrentAge, facts.CurrentIncome)
	rate := req.CurrentMarginalRate
	if rate.IsZero() {
		rate = ComputeTax(taxable, schedule).MarginalRate
	}

	amount := conversionAmount(req, taxable, schedule, rate, req.TraditionalBalance)
	before := ComputeTax(taxable, schedule)
	after := ComputeTax(taxable+amount, schedule)

	scenario := domain.ConversionScenario{
		ConversionAmount:  amount,
		ConversionYear:    req.TaxYear,
		TaxableIncome:     taxable,
		TaxCost:           after.TotalTax - before.TotalTax,
		MarginalRateAfter: after.MarginalRate,
		BreakEven:         domain.BreakEvenIndeterminate,
	}

	with, without, err := e.conversionPaths(req, rate, amount, scenario.TaxCost)
	if err != nil {
		return domain.ConversionScenario{}, withOp(op, err)
	}
	var lastWith, lastWithout money.Money
	for i, pair := range zipProjections(with, without) {
		lastWith, lastWithout = pair[0].AfterTaxValue, pair[1].AfterTaxValue
		if i > 0 && scenario.BreakEvenAge == nil && lastWith > lastWithout {
			age := facts.CurrentAge + i
			scenario.BreakEvenAge = &age
			scenario.BreakEven = domain.BreakEvenFound
		}
	}
	scenario.LifetimeTaxSavings = lastWith - lastWithout

	ladder, err := e.conversionLadder(req, rules, schedule, rate)
	if err != nil {
		return domain.ConversionScenario{}, withOp(op, err)
	}
	scenario.Ladder = ladder
	for _, step := range ladder {
		scenario.LadderTaxCost += step.TaxCost
	}
	scenario.Explanation = explainConversion(req, scenario, rate)

	e.Logger.Debugf("roth: convert %s at %s, cost %s, savings %s, break-even %s",
		amount.Format(), money.Percent(rate), scenario.TaxCost.Format(), scenario.LifetimeTaxSavings.Format(), scenario.BreakEven)
	return scenario, nil
}

// conversionAmount returns the proposed amount, or the bracket-fill amount
// bounded by the balance and cap.
func conversionAmount(req domain.RothRequest, taxable money.Money, schedule domain.TaxBracketSchedule, rate decimal.Decimal, balance money.Money) money.Money {
	if req.ProposedAmount != nil {
		return *req.ProposedAmount
	}
	amount := balance
	if headroom, bounded := BracketHeadroom(taxable, schedule, rate); bounded && headroom < amount {
		amount = headroom
	}
	if req.Cap != nil && *req.Cap < amount {
		amount = *req.Cap
	}
	return amount.NonNegative()
}

// conversionPaths projects the with- and without-conversion paths to life
// expectancy.
func (e *Engine) conversionPaths(req domain.RothRequest, rate decimal.Decimal, amount, taxCost money.Money) (*Projection, *Projection, error) {
	drag := req.ExpectedReturn.Mul(rate)
	if req.SideFundDrag != nil {
		drag = *req.SideFundDrag
	}
	if drag.IsNegative() {
		drag = decimal.Zero
	}
	retirementRate := req.ExpectedRetirementRate

	build := func(traditional, roth, reserve money.Money) domain.ProjectionRequest {
		age := req.Facts.CurrentAge
		return domain.ProjectionRequest{
			TaxYear: req.TaxYear,
			Accounts: []domain.Account{
				{ID: conversionTraditionalID, Type: domain.TraditionalIRA, CurrentBalance: traditional, OwnerAge: age},
				{ID: conversionRothID, Type: domain.RothIRA, CurrentBalance: roth, OwnerAge: age},
				{ID: conversionReserveID, Type: domain.TaxableAccount, CurrentBalance: reserve, CostBasis: reserve, OwnerAge: age},
			},
			Facts:          req.Facts,
			ExpectedReturn: req.ExpectedReturn,
			Years:          req.Facts.LifeExpectancy - age,
			Options: domain.ProjectionOptions{
				TaxDrag:               drag,
				RetirementTaxRate:     &retirementRate,
				ReinvestDistributions: true,
			},
		}
	}

	with, err := e.Project(build(req.TraditionalBalance-amount, amount, 0))
	if err != nil {
		return nil, nil, err
	}
	without, err := e.Project(build(req.TraditionalBalance, 0, taxCost))
	if err != nil {
		return nil, nil, err
	}
	return with, without, nil
}

// zipProjections pairs rows of two projections of equal length.
func zipProjections(a, b *Projection) [][2]domain.ProjectionYear {
	rowsA, rowsB := a.Collect(), b.Collect()
	n := min(len(rowsA), len(rowsB))
	out := make([][2]domain.ProjectionYear, n)
	for i := 0; i < n; i++ {
		out[i] = [2]domain.ProjectionYear{rowsA[i], rowsB[i]}
	}
	return out
}

// conversionLadder repeats the bracket fill for LadderYears consecutive
// years. Each year's income is wages while working, retirement income after,
// and the remaining balance grows at the expected return between years.
// Without a caller-fixed marginal rate, each year fills the bracket its own
// taxable income falls in.
func (e *Engine) conversionLadder(req domain.RothRequest, rules *domain.TaxYearRules, schedule domain.TaxBracketSchedule, rate decimal.Decimal) ([]domain.ConversionStep, error) {
	years := req.LadderYears
	if years == 0 {
		years = 1
	}
	facts := req.Facts
	balance := req.TraditionalBalance
	steps := make([]domain.ConversionStep, 0, years)
	for i := 0; i < years; i++ {
		age := facts.CurrentAge + i
		income := facts.CurrentIncome
		if facts.IsRetiredAt(age) {
			income = facts.RetirementIncome
		}
		if i > 0 {
			balance += balance.MulRate(req.ExpectedReturn)
			balance = balance.NonNegative()
			if age >= rules.RMD.TriggerAge {
				rmd, err := calculateRMD(rules.RMD, balance, age)
				if err != nil {
					return nil, err
				}
				balance -= rmd
				income += rmd
			}
		}
		taxable := FederalTaxableIncome(rules, facts.FilingStatus, age, income)

		yearRate := rate
		if req.CurrentMarginalRate.IsZero() {
			yearRate = ComputeTax(taxable, schedule).MarginalRate
		}
		amount := conversionAmount(req, taxable, schedule, yearRate, balance)
		if amount > balance {
			amount = balance
		}
		before := ComputeTax(taxable, schedule)
		after := ComputeTax(taxable+amount, schedule)
		balance -= amount
		steps = append(steps, domain.ConversionStep{
			Year:                req.TaxYear + i,
			Age:                 age,
			TaxableIncomeBefore: taxable,
			Amount:              amount,
			TaxCost:             after.TotalTax - before.TotalTax,
			MarginalRateAfter:   after.MarginalRate,
			RemainingBalance:    balance,
		})
	}
	return steps, nil
}

func explainConversion(req domain.RothRequest, s domain.ConversionScenario, rate decimal.Decimal) []string {
	var lines []string
	if req.ProposedAmount != nil {
		lines = append(lines, fmt.Sprintf("Converting the proposed %s", s.ConversionAmount.Format()))
	} else {
		lines = append(lines, fmt.Sprintf("Converting %s fills the %s bracket from taxable income of %s",
			s.ConversionAmount.Format(), money.Percent(rate), s.TaxableIncome.Format()))
	}
	lines = append(lines, fmt.Sprintf("Tax cost %s, marginal rate after conversion %s",
		s.TaxCost.Format(), money.Percent(s.MarginalRateAfter)))
	lines = append(lines, fmt.Sprintf("After-tax value at age %d differs by %s net of the tax cost (retirement rate %s)",
		req.Facts.LifeExpectancy, s.LifetimeTaxSavings.Format(), money.Percent(req.ExpectedRetirementRate)))
	if s.BreakEvenAge != nil {
		lines = append(lines, fmt.Sprintf("Conversion pulls ahead at age %d", *s.BreakEvenAge))
	} else {
		lines = append(lines, "No break-even age within the horizon")
	}
	return lines
}
