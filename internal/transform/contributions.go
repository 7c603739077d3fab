package transform

import (
	"fmt"

	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
)

// SetAnnualContribution changes how much is saved each working year.
type SetAnnualContribution struct {
	Amount money.Money
}

func (sac *SetAnnualContribution) Name() string {
	return "set_contribution"
}

func (sac *SetAnnualContribution) Description() string {
	return fmt.Sprintf("Contribute %s a year", sac.Amount.Format())
}

func (sac *SetAnnualContribution) Validate(base *domain.Household) error {
	if sac.Amount.IsNegative() {
		return NewTransformError(sac.Name(), "validate", fmt.Sprintf("amount cannot be negative, got %s", sac.Amount), nil)
	}
	return requireBase(sac.Name(), base)
}

func (sac *SetAnnualContribution) Apply(base *domain.Household) (*domain.Household, error) {
	modified := base.Clone()
	modified.Assumptions.AnnualContribution = sac.Amount
	return modified, nil
}

// MaxContributions sets the annual contribution to the sum of every active
// tax-advantaged account's statutory limit in the household's tax year.
// Limits are passed in so the transform stays free of table lookups.
type MaxContributions struct {
	Limits map[string]domain.ContributionLimits
}

func (mc *MaxContributions) Name() string {
	return "max_contributions"
}

func (mc *MaxContributions) Description() string {
	return "Contribute the statutory maximum to every tax-advantaged account"
}

func (mc *MaxContributions) Validate(base *domain.Household) error {
	if err := requireBase(mc.Name(), base); err != nil {
		return err
	}
	for _, a := range base.Accounts {
		if a.Retired || a.Treatment() == domain.Taxable {
			continue
		}
		if _, ok := mc.Limits[a.ID]; !ok {
			return NewTransformError(mc.Name(), "validate", fmt.Sprintf("no limits for account %s", a.ID), nil)
		}
	}
	return nil
}

func (mc *MaxContributions) Apply(base *domain.Household) (*domain.Household, error) {
	modified := base.Clone()
	groups := make(map[string]money.Money)
	for _, a := range modified.Accounts {
		if a.Retired || a.Treatment() == domain.Taxable {
			continue
		}
		l := mc.Limits[a.ID]
		if l.Unlimited {
			continue
		}
		if l.TotalLimit > groups[l.LimitGroup] {
			groups[l.LimitGroup] = l.TotalLimit
		}
	}
	var total money.Money
	for _, limit := range groups {
		total += limit
	}
	modified.Assumptions.AnnualContribution = total
	return modified, nil
}

// SetIncome changes current wages.
type SetIncome struct {
	Amount money.Money
}

func (si *SetIncome) Name() string {
	return "set_income"
}

func (si *SetIncome) Description() string {
	return fmt.Sprintf("Earn %s a year", si.Amount.Format())
}

func (si *SetIncome) Validate(base *domain.Household) error {
	if err := requireBase(si.Name(), base); err != nil {
		return err
	}
	facts := base.Facts
	facts.CurrentIncome = si.Amount
	return checkFacts(si.Name(), facts)
}

func (si *SetIncome) Apply(base *domain.Household) (*domain.Household, error) {
	modified := base.Clone()
	modified.Facts.CurrentIncome = si.Amount
	return modified, nil
}

// SetRetirementIncome changes the pension and Social Security income
// received once retired.
type SetRetirementIncome struct {
	Amount money.Money
}

func (sri *SetRetirementIncome) Name() string {
	return "set_retirement_income"
}

func (sri *SetRetirementIncome) Description() string {
	return fmt.Sprintf("Receive %s a year of retirement income", sri.Amount.Format())
}

func (sri *SetRetirementIncome) Validate(base *domain.Household) error {
	if err := requireBase(sri.Name(), base); err != nil {
		return err
	}
	facts := base.Facts
	facts.RetirementIncome = sri.Amount
	return checkFacts(sri.Name(), facts)
}

func (sri *SetRetirementIncome) Apply(base *domain.Household) (*domain.Household, error) {
	modified := base.Clone()
	modified.Facts.RetirementIncome = sri.Amount
	return modified, nil
}

// RelocateState moves the household to another state.
type RelocateState struct {
	State string
}

func (rs *RelocateState) Name() string {
	return "relocate"
}

func (rs *RelocateState) Description() string {
	return fmt.Sprintf("Move to %s", rs.State)
}

func (rs *RelocateState) Validate(base *domain.Household) error {
	if len(rs.State) != 2 {
		return NewTransformError(rs.Name(), "validate", fmt.Sprintf("state must be a two-letter code, got %q", rs.State), nil)
	}
	return requireBase(rs.Name(), base)
}

func (rs *RelocateState) Apply(base *domain.Household) (*domain.Household, error) {
	modified := base.Clone()
	modified.Facts.StateOfResidence = rs.State
	return modified, nil
}
