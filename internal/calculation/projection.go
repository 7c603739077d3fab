package calculation

import (
	"iter"
	"strconv"

	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/internal/sequencing"
	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
)

// ReinvestAccountID names the taxable account created to receive reinvested
// distributions when the request has no taxable account of its own.
const ReinvestAccountID = "reinvested-distributions"

var decimalOne = decimal.NewFromInt(1)

// Projection is a finite, lazily evaluated sequence of projection years.
// Every call to Years replays the sequence from the starting state, so two
// iterations always produce identical rows.
type Projection struct {
	req             domain.ProjectionRequest
	rules           *domain.TaxYearRules
	schedule        domain.TaxBracketSchedule
	accounts        []domain.Account
	limitRules      map[domain.AccountType]domain.ContributionLimitRule
	reinvestTarget  string
	workingMarginal decimal.Decimal
	retirementRate  decimal.Decimal
	tripleWeight    decimal.Decimal
	strategy        sequencing.SequencingStrategy
}

// Project validates a projection request and returns its lazy sequence.
// All statutory lookups the sequence will need are checked here, so
// iterating never fails.
func (e *Engine) Project(req domain.ProjectionRequest) (*Projection, error) {
	const op = "project"
	if err := req.Validate(); err != nil {
		return nil, withOp(op, err)
	}
	rules, err := e.rules(op, req.TaxYear)
	if err != nil {
		return nil, err
	}
	schedule, err := rules.FederalSchedule(req.Facts.FilingStatus)
	if err != nil {
		return nil, withOp(op, err)
	}

	p := &Projection{
		req:          req,
		rules:        rules,
		schedule:     schedule,
		accounts:     append([]domain.Account(nil), req.Accounts...),
		limitRules:   make(map[domain.AccountType]domain.ContributionLimitRule),
		tripleWeight: e.TripleAdvantageWeight,
		strategy:     sequencing.CreateStrategy(req.Options.Withdrawals),
	}

	if req.AnnualContribution.IsPositive() {
		for _, a := range p.accounts {
			if a.Retired {
				continue
			}
			rule, err := rules.LimitRule(a.Type)
			if err != nil {
				return nil, withOp(op, err)
			}
			p.limitRules[a.Type] = rule
		}
	}

	for _, a := range p.accounts {
		if !a.Type.RequiresRMD() {
			continue
		}
		for i := 1; i <= req.Years; i++ {
			age := a.OwnerAge + i
			if age < rules.RMD.TriggerAge {
				continue
			}
			if _, ok := rules.RMD.Factor(age); !ok {
				return nil, domain.UnknownStatutoryYear("age", age,
					"account %s reaches age %d but the RMD table ends at %d", a.ID, age, rules.RMD.MaxAge()).WithOp(op)
			}
		}
	}

	if req.Options.ReinvestDistributions {
		p.reinvestTarget = p.ensureReinvestAccount()
	}

	current := ComputeTax(FederalTaxableIncome(rules, req.Facts.FilingStatus, req.Facts.CurrentAge, req.Facts.CurrentIncome), schedule)
	p.workingMarginal = current.MarginalRate
	p.retirementRate = current.EffectiveRate
	if req.Options.RetirementTaxRate != nil {
		p.retirementRate = *req.Options.RetirementTaxRate
	}

	e.Logger.Debugf("projection: %d accounts, %d years from %d, return %s", len(p.accounts), req.Years, req.TaxYear, req.ExpectedReturn)
	return p, nil
}

// ensureReinvestAccount returns the first taxable account, adding an empty
// one when there is none.
func (p *Projection) ensureReinvestAccount() string {
	for _, a := range p.accounts {
		if a.Treatment() == domain.Taxable {
			return a.ID
		}
	}
	id := ReinvestAccountID
	for n := 2; ; n++ {
		if _, taken := domain.FindAccount(p.accounts, id); !taken {
			break
		}
		id = ReinvestAccountID + "-" + strconv.Itoa(n)
	}
	p.accounts = append(p.accounts, domain.Account{
		ID:       id,
		Type:     domain.TaxableAccount,
		OwnerAge: p.req.Facts.CurrentAge,
		Retired:  true,
	})
	return id
}

// Len is the number of rows, always years+1.
func (p *Projection) Len() int {
	return p.req.Years + 1
}

// Request returns the validated request behind the projection.
func (p *Projection) Request() domain.ProjectionRequest {
	return p.req
}

// Years returns the rows. Row 0 is the starting state.
func (p *Projection) Years() iter.Seq[domain.ProjectionYear] {
	return func(yield func(domain.ProjectionYear) bool) {
		s := p.newState()
		if !yield(s.row(0)) {
			return
		}
		for i := 1; i <= p.req.Years; i++ {
			if !yield(s.step(i)) {
				return
			}
		}
	}
}

// Collect materializes every row.
func (p *Projection) Collect() []domain.ProjectionYear {
	rows := make([]domain.ProjectionYear, 0, p.Len())
	for y := range p.Years() {
		rows = append(rows, y)
	}
	return rows
}

// Final returns the last row.
func (p *Projection) Final() domain.ProjectionYear {
	var last domain.ProjectionYear
	for y := range p.Years() {
		last = y
	}
	return last
}

// projectionState is the mutable state of one iteration.
type projectionState struct {
	p        *Projection
	balances map[string]money.Money
	basis    map[string]money.Money

	contributions map[string]money.Money
	match         money.Money
	rmds          map[string]money.Money
	withdrawals   map[string]money.Money
	conversions   money.Money
	taxable       money.Money
	taxes         money.Money
}

func (p *Projection) newState() *projectionState {
	s := &projectionState{
		p:        p,
		balances: make(map[string]money.Money, len(p.accounts)),
		basis:    make(map[string]money.Money, len(p.accounts)),
	}
	for _, a := range p.accounts {
		s.balances[a.ID] = a.CurrentBalance
		if a.Treatment() == domain.Taxable {
			s.basis[a.ID] = a.CostBasis
		}
	}
	s.reset()
	return s
}

func (s *projectionState) reset() {
	s.contributions = make(map[string]money.Money, len(s.p.accounts))
	for _, a := range s.p.accounts {
		s.contributions[a.ID] = 0
	}
	s.match = 0
	s.rmds = make(map[string]money.Money)
	s.withdrawals = make(map[string]money.Money)
	s.conversions = 0
	s.taxable = 0
	s.taxes = 0
}

// step advances one year: growth, contributions, conversions, RMDs,
// withdrawals, taxes.
func (s *projectionState) step(i int) domain.ProjectionYear {
	s.reset()
	p := s.p
	facts := p.req.Facts
	age := facts.CurrentAge + i
	working := !facts.IsRetiredAt(age)

	s.grow()

	var deductible money.Money
	if working && p.req.AnnualContribution.IsPositive() {
		deductible = s.contribute(i)
	}

	s.convert(i)

	rmdTotal := s.distribute(i)

	retirementIncome := rmdTotal + s.conversions
	if !working {
		retirementIncome += facts.RetirementIncome
	}
	var wages money.Money
	if working {
		wages = (facts.CurrentIncome - deductible).NonNegative()
	}

	if !working && p.req.Options.AnnualSpending.IsPositive() {
		need := p.req.Options.AnnualSpending - facts.RetirementIncome
		if !p.req.Options.ReinvestDistributions {
			need -= rmdTotal
		}
		if need.IsPositive() {
			retirementIncome += s.withdraw(age, need, wages+retirementIncome)
		}
	}

	// the filing status schedule was resolved in Project, so tax cannot fail
	tax, _ := ComputeHouseholdTax(p.rules, facts, age, wages, retirementIncome)
	s.taxable = tax.Federal.TaxableIncome
	s.taxes = tax.TotalTax

	if p.req.Options.ReinvestDistributions && rmdTotal.IsPositive() {
		// same schedule as above
		without, _ := ComputeHouseholdTax(p.rules, facts, age, wages, retirementIncome-rmdTotal)
		net := (rmdTotal - (tax.TotalTax - without.TotalTax)).NonNegative()
		s.balances[p.reinvestTarget] += net
		s.basis[p.reinvestTarget] += net
	}

	return s.row(i)
}

// grow applies the year's return. Taxable accounts lose the tax drag.
func (s *projectionState) grow() {
	ret := s.p.req.ExpectedReturn
	taxableRet := ret.Sub(s.p.req.Options.TaxDrag)
	for _, a := range s.p.accounts {
		rate := ret
		if a.Treatment() == domain.Taxable {
			rate = taxableRet
		}
		b := s.balances[a.ID]
		s.balances[a.ID] = (b + b.MulRate(rate)).NonNegative()
	}
}

// contribute splits the annual contribution with the allocation policy and
// returns the deductible portion.
func (s *projectionState) contribute(i int) money.Money {
	p := s.p
	limits := make(map[string]domain.ContributionLimits, len(p.accounts))
	for _, a := range p.accounts {
		if a.Retired {
			continue
		}
		limits[a.ID] = limitsFromRule(p.limitRules[a.Type], a.Type, p.rules.Year, a.OwnerAge+i, p.req.Facts.HSACoverage, 0)
	}
	// limits cover every active account, so the plan cannot fail
	plan, _ := allocatePlan(p.accounts, limits, p.req.AnnualContribution, p.req.Facts.CurrentIncome, p.workingMarginal, p.tripleWeight)
	for _, a := range p.accounts {
		amount := plan.byAccount[a.ID]
		employer := plan.match[a.ID]
		if amount == 0 && employer == 0 {
			continue
		}
		s.contributions[a.ID] = amount
		s.balances[a.ID] += amount + employer
		if a.Treatment() == domain.Taxable {
			s.basis[a.ID] += amount
		}
	}
	s.match = plan.matchTotal
	return plan.deductible
}

// convert applies the scheduled conversions of year i, capped at the
// source balance.
func (s *projectionState) convert(i int) {
	for _, c := range s.p.req.Options.Conversions {
		if c.YearOffset != i {
			continue
		}
		amount := c.Amount
		if b := s.balances[c.FromAccount]; amount > b {
			amount = b
		}
		if amount <= 0 {
			continue
		}
		s.balances[c.FromAccount] -= amount
		s.balances[c.ToAccount] += amount
		s.conversions += amount
	}
}

// distribute takes the required minimum distributions of year i.
func (s *projectionState) distribute(i int) money.Money {
	var total money.Money
	for _, a := range s.p.accounts {
		if !a.Type.RequiresRMD() {
			continue
		}
		// ages were checked against the table in Project
		rmd, err := calculateRMD(s.p.rules.RMD, s.balances[a.ID], a.OwnerAge+i)
		if err != nil || rmd <= 0 {
			continue
		}
		s.balances[a.ID] -= rmd
		s.rmds[a.ID] = rmd
		total += rmd
	}
	return total
}

// withdraw sources need from the accounts and returns the ordinary income it
// realizes. income is the gross income of the year so far.
func (s *projectionState) withdraw(age int, need, income money.Money) money.Money {
	p := s.p
	opts := p.req.Options
	current := income - p.rules.StandardDeduction(p.req.Facts.FilingStatus, age)

	var ceiling *money.Money
	if w := opts.Withdrawals; w != nil && w.Strategy == "bracket_fill" {
		rate := ComputeTax(current.NonNegative(), p.schedule).MarginalRate
		if w.TargetBracketRate != nil {
			rate = *w.TargetBracketRate
		}
		if c, ok := BracketCeiling(p.schedule, rate); ok {
			ceiling = &c
		}
	}

	sources := sequencing.CreateWithdrawalSources(p.accounts, s.balances, s.basis)
	ctx := sequencing.CreateStrategyContext(need, current, ceiling, opts.Withdrawals)
	plan := p.strategy.Plan(sources, ctx)
	for _, alloc := range plan.Allocations {
		s.balances[alloc.AccountID] -= alloc.Gross
		if alloc.Kind == sequencing.Taxable {
			s.basis[alloc.AccountID] = (s.basis[alloc.AccountID] - alloc.TaxFreePortion).NonNegative()
		}
		s.withdrawals[alloc.AccountID] += alloc.Gross
	}
	return plan.OrdinaryIncome
}

// row snapshots the state. Maps are copied so emitted rows never change.
func (s *projectionState) row(i int) domain.ProjectionYear {
	p := s.p
	y := domain.ProjectionYear{
		Year:          p.req.TaxYear + i,
		Age:           p.req.Facts.CurrentAge + i,
		Balances:      make(map[string]money.Money, len(s.balances)),
		Contributions: make(map[string]money.Money, len(s.contributions)),
		EmployerMatch: s.match,
		Conversions:   s.conversions,
		TaxableIncome: s.taxable,
		TaxesPaid:     s.taxes,
	}
	var deferred, other money.Money
	for _, a := range p.accounts {
		b := s.balances[a.ID]
		y.Balances[a.ID] = b
		if a.Treatment() == domain.TaxDeferred {
			deferred += b
		} else {
			other += b
		}
	}
	for id, c := range s.contributions {
		y.Contributions[id] = c
		y.TotalContributions += c
	}
	if len(s.rmds) > 0 {
		y.RMDByAccount = make(map[string]money.Money, len(s.rmds))
		for id, r := range s.rmds {
			y.RMDByAccount[id] = r
			y.RMD += r
		}
	}
	if len(s.withdrawals) > 0 {
		y.Withdrawals = make(map[string]money.Money, len(s.withdrawals))
		for id, w := range s.withdrawals {
			y.Withdrawals[id] = w
			y.TotalWithdrawals += w
		}
	}
	y.NetWorth = deferred + other
	y.AfterTaxValue = deferred.MulRate(decimalOne.Sub(p.retirementRate)) + other
	return y
}
