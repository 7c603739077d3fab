package calculation

import (
	"fmt"
	"sort"

	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
)

// ALLOCATION POLICY:
//
// 1. Employer match first: every account with a match formula is funded up
//    to the match-eligible amount (UpToPercentOfPay of current income, less
//    what was already contributed this year).
// 2. Remaining cash goes by descending benefit per dollar, where benefit is
//    marginalRate for tax-deferred accounts and the triple advantage weight
//    alone for HSAs. Roth, 529 and taxable accounts carry no current-year
//    benefit. HSA contributions still count toward the deduction.
// 3. Ties go to the account with the smaller available room (use it or lose
//    it), unlimited accounts last, then to the lower account id.
//
// Each placement is capped by the remaining cash, the account's room and the
// remaining room of its shared statutory limit group.

// allocation is the internal result of one pass of the policy.
type allocation struct {
	byAccount   map[string]money.Money
	match       map[string]money.Money
	total       money.Money
	matchTotal  money.Money
	deductible  money.Money
	explanation []string
}

type allocCandidate struct {
	account domain.Account
	limits  domain.ContributionLimits
	benefit decimal.Decimal
}

// Allocate distributes available cash across accounts. Zero or negative cash
// returns an all-zero result. When req.Limits is nil the limits are resolved
// from the statutory tables.
func (e *Engine) Allocate(req domain.AllocationRequest) (domain.OptimizationResult, error) {
	const op = "allocate"
	if err := req.Facts.Validate(); err != nil {
		return domain.OptimizationResult{}, withOp(op, err)
	}
	if err := domain.ValidateAccounts(req.Accounts); err != nil {
		return domain.OptimizationResult{}, withOp(op, err)
	}
	rules, err := e.rules(op, req.TaxYear)
	if err != nil {
		return domain.OptimizationResult{}, err
	}
	schedule, err := rules.FederalSchedule(req.Facts.FilingStatus)
	if err != nil {
		return domain.OptimizationResult{}, withOp(op, err)
	}

	limits := req.Limits
	if limits == nil {
		limits = make(map[string]domain.ContributionLimits, len(req.Accounts))
		for _, a := range req.Accounts {
			if a.Retired {
				continue
			}
			l, err := resolveLimits(rules, a.Type, a.OwnerAge, req.Facts.HSACoverage, a.ContributedYearToDate)
			if err != nil {
				return domain.OptimizationResult{}, withOp(op, err)
			}
			limits[a.ID] = l
		}
	}

	taxable := FederalTaxableIncome(rules, req.Facts.FilingStatus, req.Facts.CurrentAge, req.Facts.CurrentIncome)
	before := ComputeTax(taxable, schedule)

	plan, err := allocatePlan(req.Accounts, limits, req.AvailableCash, req.Facts.CurrentIncome, before.MarginalRate, e.TripleAdvantageWeight)
	if err != nil {
		return domain.OptimizationResult{}, withOp(op, err)
	}
	if err := checkAllocation(req.Accounts, limits, req.AvailableCash, plan); err != nil {
		return domain.OptimizationResult{}, withOp(op, err)
	}

	after := ComputeTax((taxable - plan.deductible).NonNegative(), schedule)
	result := domain.OptimizationResult{
		AllocationByAccount:    plan.byAccount,
		EmployerMatchByAccount: plan.match,
		TotalContribution:      plan.total,
		TaxSavings:             before.TotalTax - after.TotalTax,
		EmployerMatchCaptured:  plan.matchTotal,
		Unallocated:            (req.AvailableCash - plan.total).NonNegative(),
		Explanation:            plan.explanation,
	}
	if result.TaxSavings.IsPositive() {
		result.Explanation = append(result.Explanation, fmt.Sprintf(
			"Deductible contributions of %s lower federal tax by %s at a %s marginal rate",
			plan.deductible.Format(), result.TaxSavings.Format(), money.Percent(before.MarginalRate)))
	}
	if result.Unallocated.IsPositive() && req.AvailableCash.IsPositive() {
		result.Explanation = append(result.Explanation, fmt.Sprintf("%s left unallocated: every account is at its limit", result.Unallocated.Format()))
	}
	e.Logger.Debugf("allocated %s of %s across %d accounts", plan.total.Format(), req.AvailableCash.Format(), len(req.Accounts))
	return result, nil
}

// allocatePlan runs the allocation policy. Retired accounts receive nothing;
// every other account needs an entry in limits.
func allocatePlan(accounts []domain.Account, limits map[string]domain.ContributionLimits, cash, income money.Money, marginal, hsaWeight decimal.Decimal) (allocation, error) {
	plan := allocation{
		byAccount: make(map[string]money.Money, len(accounts)),
		match:     make(map[string]money.Money),
	}
	for _, a := range accounts {
		plan.byAccount[a.ID] = 0
	}

	var candidates []allocCandidate
	for _, a := range accounts {
		if a.Retired {
			continue
		}
		l, ok := limits[a.ID]
		if !ok {
			return allocation{}, domain.InvalidInput("limits", a.ID, "no contribution limits for account")
		}
		benefit := decimal.Zero
		switch a.Treatment() {
		case domain.TaxDeferred:
			benefit = marginal
		case domain.TripleTaxAdvantage:
			benefit = hsaWeight
		}
		candidates = append(candidates, allocCandidate{account: a, limits: l, benefit: benefit})
	}

	if !cash.IsPositive() {
		plan.explanation = append(plan.explanation, "No cash available to allocate")
		return plan, nil
	}

	groupRoom := groupRooms(candidates)
	remaining := cash
	place := func(c allocCandidate, want money.Money) money.Money {
		amount := want
		if amount > remaining {
			amount = remaining
		}
		if !c.limits.Unlimited {
			accountRoom := c.limits.AvailableRoom - plan.byAccount[c.account.ID]
			if amount > accountRoom {
				amount = accountRoom
			}
			if room := groupRoom[c.limits.LimitGroup]; amount > room {
				amount = room
			}
		}
		if amount <= 0 {
			return 0
		}
		plan.byAccount[c.account.ID] += amount
		if !c.limits.Unlimited {
			groupRoom[c.limits.LimitGroup] -= amount
		}
		if c.account.Treatment().Deductible() {
			plan.deductible += amount
		}
		plan.total += amount
		remaining -= amount
		return amount
	}

	// Phase 1: employer match
	matched := make([]allocCandidate, 0)
	for _, c := range candidates {
		if m := c.account.EmployerMatch; m != nil && m.Rate.IsPositive() && m.UpToPercentOfPay.IsPositive() {
			matched = append(matched, c)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		ri, rj := matched[i].account.EmployerMatch.Rate, matched[j].account.EmployerMatch.Rate
		if !ri.Equal(rj) {
			return ri.GreaterThan(rj)
		}
		return matched[i].account.ID < matched[j].account.ID
	})
	for _, c := range matched {
		m := c.account.EmployerMatch
		eligible := (income.MulRate(m.UpToPercentOfPay) - c.limits.ContributedToDate).NonNegative()
		amount := place(c, eligible)
		if amount <= 0 {
			continue
		}
		employer := amount.MulRate(m.Rate)
		plan.match[c.account.ID] += employer
		plan.matchTotal += employer
		plan.explanation = append(plan.explanation, fmt.Sprintf(
			"%s to %s captures %s of employer match (%s up to %s of pay)",
			amount.Format(), c.account.ID, employer.Format(), money.Percent(m.Rate), money.Percent(m.UpToPercentOfPay)))
	}

	// Phase 2: benefit per dollar
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.benefit.Equal(b.benefit) {
			return a.benefit.GreaterThan(b.benefit)
		}
		if a.limits.Unlimited != b.limits.Unlimited {
			return !a.limits.Unlimited
		}
		if a.limits.AvailableRoom != b.limits.AvailableRoom {
			return a.limits.AvailableRoom < b.limits.AvailableRoom
		}
		return a.account.ID < b.account.ID
	})
	for _, c := range candidates {
		if remaining <= 0 {
			break
		}
		amount := place(c, remaining)
		if amount <= 0 {
			continue
		}
		plan.explanation = append(plan.explanation, fmt.Sprintf(
			"%s to %s (%s, benefit %s per dollar)",
			amount.Format(), c.account.ID, c.account.Treatment(), money.Percent(c.benefit)))
	}
	return plan, nil
}

// groupRooms returns the unused room of every shared limit group: the largest
// total limit in the group less everything already contributed to it.
func groupRooms(candidates []allocCandidate) map[string]money.Money {
	limit := make(map[string]money.Money)
	used := make(map[string]money.Money)
	for _, c := range candidates {
		if c.limits.Unlimited {
			continue
		}
		g := c.limits.LimitGroup
		if c.limits.TotalLimit > limit[g] {
			limit[g] = c.limits.TotalLimit
		}
		used[g] += c.limits.ContributedToDate
	}
	rooms := make(map[string]money.Money, len(limit))
	for g, l := range limit {
		rooms[g] = (l - used[g]).NonNegative()
	}
	return rooms
}

// checkAllocation verifies the result never exceeds the cash or any room.
func checkAllocation(accounts []domain.Account, limits map[string]domain.ContributionLimits, cash money.Money, plan allocation) error {
	if plan.total > cash.NonNegative() {
		return domain.ConstraintViolation("total_contribution", plan.total, "allocation exceeds available cash %s", cash.Format())
	}
	var sum money.Money
	for _, a := range accounts {
		amount := plan.byAccount[a.ID]
		if amount.IsNegative() {
			return domain.ConstraintViolation("allocation["+a.ID+"]", amount, "negative allocation")
		}
		sum += amount
		if amount == 0 {
			continue
		}
		l := limits[a.ID]
		if !l.Unlimited && amount > l.AvailableRoom {
			return domain.ConstraintViolation("allocation["+a.ID+"]", amount, "allocation exceeds available room %s", l.AvailableRoom.Format())
		}
	}
	if sum != plan.total {
		return domain.ConstraintViolation("total_contribution", plan.total, "allocations sum to %s", sum.Format())
	}
	return nil
}
