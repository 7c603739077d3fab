package calculation

import (
	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
)

// ResolveLimits returns the statutory limits of an account type for the
// person's current age with nothing contributed yet.
func (e *Engine) ResolveLimits(accountType domain.AccountType, facts domain.PersonalFacts, taxYear int) (domain.ContributionLimits, error) {
	const op = "limits"
	if !accountType.Valid() {
		return domain.ContributionLimits{}, domain.InvalidInput("account_type", accountType, "unrecognized account type").WithOp(op)
	}
	if err := facts.Validate(); err != nil {
		return domain.ContributionLimits{}, withOp(op, err)
	}
	rules, err := e.rules(op, taxYear)
	if err != nil {
		return domain.ContributionLimits{}, err
	}
	limits, err := resolveLimits(rules, accountType, facts.CurrentAge, facts.HSACoverage, 0)
	if err != nil {
		return domain.ContributionLimits{}, withOp(op, err)
	}
	return limits, nil
}

// ResolveForAccount returns the limits of one account using its owner age and
// year-to-date contributions.
func (e *Engine) ResolveForAccount(account domain.Account, facts domain.PersonalFacts, taxYear int) (domain.ContributionLimits, error) {
	const op = "limits"
	if err := account.Validate(); err != nil {
		return domain.ContributionLimits{}, withOp(op, err)
	}
	rules, err := e.rules(op, taxYear)
	if err != nil {
		return domain.ContributionLimits{}, err
	}
	limits, err := resolveLimits(rules, account.Type, account.OwnerAge, facts.HSACoverage, account.ContributedYearToDate)
	if err != nil {
		return domain.ContributionLimits{}, withOp(op, err)
	}
	return limits, nil
}

// ResolveAll resolves the limits of every account, keyed by account id.
func (e *Engine) ResolveAll(accounts []domain.Account, facts domain.PersonalFacts, taxYear int) (map[string]domain.ContributionLimits, error) {
	out := make(map[string]domain.ContributionLimits, len(accounts))
	for _, a := range accounts {
		limits, err := e.ResolveForAccount(a, facts, taxYear)
		if err != nil {
			return nil, err
		}
		out[a.ID] = limits
	}
	return out, nil
}

// resolveLimits applies the catch-up threshold of the account family and the
// HSA coverage level to the statutory rule.
func resolveLimits(rules *domain.TaxYearRules, accountType domain.AccountType, age int, coverage domain.HSACoverage, contributed money.Money) (domain.ContributionLimits, error) {
	rule, err := rules.LimitRule(accountType)
	if err != nil {
		return domain.ContributionLimits{}, err
	}
	return limitsFromRule(rule, accountType, rules.Year, age, coverage, contributed), nil
}

func limitsFromRule(rule domain.ContributionLimitRule, accountType domain.AccountType, taxYear, age int, coverage domain.HSACoverage, contributed money.Money) domain.ContributionLimits {
	limits := domain.ContributionLimits{
		AccountType:       accountType,
		TaxYear:           taxYear,
		ContributedToDate: contributed.NonNegative(),
		LimitGroup:        rule.Group,
	}
	if limits.LimitGroup == "" {
		limits.LimitGroup = string(accountType)
	}
	if rule.Unlimited {
		limits.Unlimited = true
		return limits
	}

	base := rule.Base
	if accountType == domain.HSA && coverage == domain.HSAFamily && rule.FamilyBase.IsPositive() {
		base = rule.FamilyBase
	}
	limits.BaseLimit = base
	limits.CatchUpLimit = rule.CatchUp
	limits.CatchUpEligible = rule.CatchUp.IsPositive() && age >= rule.CatchUpAge
	limits.TotalLimit = base
	if limits.CatchUpEligible {
		limits.TotalLimit += rule.CatchUp
	}
	limits.AvailableRoom = (limits.TotalLimit - limits.ContributedToDate).NonNegative()
	return limits
}
