package transform

import (
	"fmt"

	"github.com/rgehrsitz/rptax/internal/domain"
)

// PostponeRetirement delays retirement by a number of years.
// This is useful for exploring "work one more year" scenarios: more years of
// contributions and match, fewer years of withdrawals.
type PostponeRetirement struct {
	Years int // Number of years to postpone (non-negative)
}

func (pr *PostponeRetirement) Name() string {
	return "postpone_retirement"
}

func (pr *PostponeRetirement) Description() string {
	return fmt.Sprintf("Postpone retirement by %d years", pr.Years)
}

func (pr *PostponeRetirement) Validate(base *domain.Household) error {
	if pr.Years < 0 {
		return NewTransformError(pr.Name(), "validate", fmt.Sprintf("years must be non-negative, got %d", pr.Years), nil)
	}
	if err := requireBase(pr.Name(), base); err != nil {
		return err
	}
	facts := base.Facts
	facts.RetirementAge += pr.Years
	return checkFacts(pr.Name(), facts)
}

func (pr *PostponeRetirement) Apply(base *domain.Household) (*domain.Household, error) {
	modified := base.Clone()
	modified.Facts.RetirementAge += pr.Years
	return modified, nil
}

// SetRetirementAge sets the retirement age to an absolute value.
// Unlike PostponeRetirement which is relative, this sets an exact age.
type SetRetirementAge struct {
	Age int
}

func (sra *SetRetirementAge) Name() string {
	return "set_retirement_age"
}

func (sra *SetRetirementAge) Description() string {
	return fmt.Sprintf("Retire at age %d", sra.Age)
}

func (sra *SetRetirementAge) Validate(base *domain.Household) error {
	if err := requireBase(sra.Name(), base); err != nil {
		return err
	}
	facts := base.Facts
	facts.RetirementAge = sra.Age
	return checkFacts(sra.Name(), facts)
}

func (sra *SetRetirementAge) Apply(base *domain.Household) (*domain.Household, error) {
	modified := base.Clone()
	modified.Facts.RetirementAge = sra.Age
	return modified, nil
}

// SetLifeExpectancy changes the planning horizon. When the household has no
// explicit projection length the projection follows it.
type SetLifeExpectancy struct {
	Age int
}

func (sle *SetLifeExpectancy) Name() string {
	return "set_life_expectancy"
}

func (sle *SetLifeExpectancy) Description() string {
	return fmt.Sprintf("Plan to age %d", sle.Age)
}

func (sle *SetLifeExpectancy) Validate(base *domain.Household) error {
	if err := requireBase(sle.Name(), base); err != nil {
		return err
	}
	facts := base.Facts
	facts.LifeExpectancy = sle.Age
	return checkFacts(sle.Name(), facts)
}

func (sle *SetLifeExpectancy) Apply(base *domain.Household) (*domain.Household, error) {
	modified := base.Clone()
	modified.Facts.LifeExpectancy = sle.Age
	return modified, nil
}
