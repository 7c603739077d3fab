package transform

import (
	"fmt"

	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
)

// ScheduleRothConversions adds a run of equal yearly conversions to the
// household's projection. Empty account ids pick the first tax-deferred and
// first tax-free account.
type ScheduleRothConversions struct {
	FromAccount string
	ToAccount   string
	Amount      money.Money
	StartYear   int // projection year offset of the first conversion, 1-based
	Years       int
}

func (src *ScheduleRothConversions) Name() string {
	return "schedule_roth_conversion"
}

func (src *ScheduleRothConversions) Description() string {
	if src.Years == 1 {
		return fmt.Sprintf("Convert %s to Roth in year %d", src.Amount.Format(), src.StartYear)
	}
	return fmt.Sprintf("Convert %s to Roth for %d years from year %d", src.Amount.Format(), src.Years, src.StartYear)
}

func (src *ScheduleRothConversions) Validate(base *domain.Household) error {
	if err := requireBase(src.Name(), base); err != nil {
		return err
	}
	if !src.Amount.IsPositive() {
		return NewTransformError(src.Name(), "validate", fmt.Sprintf("amount must be positive, got %s", src.Amount), nil)
	}
	if src.StartYear < 1 || src.Years < 1 {
		return NewTransformError(src.Name(), "validate", fmt.Sprintf("start year and years must be at least 1, got %d and %d", src.StartYear, src.Years), nil)
	}
	if last := src.StartYear + src.Years - 1; last > base.ProjectionYears() {
		return NewTransformError(src.Name(), "validate", fmt.Sprintf("conversion year %d is past the %d year projection", last, base.ProjectionYears()), nil)
	}
	if _, _, err := src.accounts(base); err != nil {
		return err
	}
	return nil
}

func (src *ScheduleRothConversions) Apply(base *domain.Household) (*domain.Household, error) {
	from, to, err := src.accounts(base)
	if err != nil {
		return nil, err
	}
	modified := base.Clone()
	opts := &modified.Assumptions.Projection
	for i := 0; i < src.Years; i++ {
		opts.Conversions = append(opts.Conversions, domain.ScheduledConversion{
			YearOffset:  src.StartYear + i,
			FromAccount: from,
			ToAccount:   to,
			Amount:      src.Amount,
		})
	}
	return modified, nil
}

func (src *ScheduleRothConversions) accounts(base *domain.Household) (string, string, error) {
	from, err := pickAccount(base.Accounts, src.FromAccount, domain.TaxDeferred)
	if err != nil {
		return "", "", NewTransformError(src.Name(), "validate", "no source account", err)
	}
	to, err := pickAccount(base.Accounts, src.ToAccount, domain.TaxFree)
	if err != nil {
		return "", "", NewTransformError(src.Name(), "validate", "no destination account", err)
	}
	return from, to, nil
}

// pickAccount returns id when it names an account of the wanted treatment,
// or the first such account when id is empty.
func pickAccount(accounts []domain.Account, id string, want domain.TaxTreatment) (string, error) {
	if id != "" {
		a, ok := domain.FindAccount(accounts, id)
		if !ok {
			return "", fmt.Errorf("account %s not found", id)
		}
		if a.Treatment() != want {
			return "", fmt.Errorf("account %s is %s, not %s", id, a.Treatment(), want)
		}
		return id, nil
	}
	for _, a := range accounts {
		if a.Treatment() == want && a.Type != domain.Education529 {
			return a.ID, nil
		}
	}
	return "", fmt.Errorf("household has no %s account", want)
}

// RemoveRothConversions clears every scheduled conversion.
type RemoveRothConversions struct{}

func (rrc *RemoveRothConversions) Name() string {
	return "remove_roth_conversion"
}

func (rrc *RemoveRothConversions) Description() string {
	return "Remove all scheduled Roth conversions"
}

func (rrc *RemoveRothConversions) Validate(base *domain.Household) error {
	return requireBase(rrc.Name(), base)
}

func (rrc *RemoveRothConversions) Apply(base *domain.Household) (*domain.Household, error) {
	modified := base.Clone()
	modified.Assumptions.Projection.Conversions = nil
	return modified, nil
}

// SetRothLadder changes the conversion analysis: how many years to ladder
// and an optional cap on each year's bracket fill.
type SetRothLadder struct {
	Years int
	Cap   *money.Money
}

func (srl *SetRothLadder) Name() string {
	return "set_roth_ladder"
}

func (srl *SetRothLadder) Description() string {
	if srl.Cap != nil {
		return fmt.Sprintf("Ladder conversions over %d years, at most %s a year", srl.Years, srl.Cap.Format())
	}
	return fmt.Sprintf("Ladder conversions over %d years", srl.Years)
}

func (srl *SetRothLadder) Validate(base *domain.Household) error {
	if srl.Years < 1 {
		return NewTransformError(srl.Name(), "validate", fmt.Sprintf("years must be at least 1, got %d", srl.Years), nil)
	}
	if srl.Cap != nil && srl.Cap.IsNegative() {
		return NewTransformError(srl.Name(), "validate", "cap cannot be negative", nil)
	}
	return requireBase(srl.Name(), base)
}

func (srl *SetRothLadder) Apply(base *domain.Household) (*domain.Household, error) {
	modified := base.Clone()
	modified.Assumptions.Roth.LadderYears = srl.Years
	if srl.Cap != nil {
		c := *srl.Cap
		modified.Assumptions.Roth.Cap = &c
	}
	return modified, nil
}
