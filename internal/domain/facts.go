package domain

import (
	"strings"

	"github.com/rgehrsitz/rptax/pkg/money"
)

// FilingStatus selects the bracket schedule and standard deduction.
type FilingStatus string

const (
	Single                  FilingStatus = "single"
	MarriedFilingJointly    FilingStatus = "married_filing_jointly"
	MarriedFilingSeparately FilingStatus = "married_filing_separately"
	HeadOfHousehold         FilingStatus = "head_of_household"
)

// FilingStatuses lists every supported status.
var FilingStatuses = []FilingStatus{Single, MarriedFilingJointly, MarriedFilingSeparately, HeadOfHousehold}

// ParseFilingStatus accepts the canonical names plus a few common short forms.
func ParseFilingStatus(s string) (FilingStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single":
		return Single, nil
	case "married_filing_jointly", "mfj", "married_joint":
		return MarriedFilingJointly, nil
	case "married_filing_separately", "mfs":
		return MarriedFilingSeparately, nil
	case "head_of_household", "hoh":
		return HeadOfHousehold, nil
	}
	return "", InvalidInput("filing_status", s, "malformed filing status")
}

// Valid reports whether s is a known status.
func (s FilingStatus) Valid() bool {
	switch s {
	case Single, MarriedFilingJointly, MarriedFilingSeparately, HeadOfHousehold:
		return true
	}
	return false
}

// Married reports whether the status belongs to a married filer.
func (s FilingStatus) Married() bool {
	return s == MarriedFilingJointly || s == MarriedFilingSeparately
}

// UnmarshalText lets yaml and json inputs use the short forms.
func (s *FilingStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseFilingStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// HSACoverage selects the self-only or family HSA limit.
type HSACoverage string

const (
	HSASelf   HSACoverage = "self"
	HSAFamily HSACoverage = "family"
)

// PersonalFacts is the immutable snapshot of the person being planned for.
type PersonalFacts struct {
	CurrentAge       int          `yaml:"current_age" json:"currentAge"`
	RetirementAge    int          `yaml:"retirement_age" json:"retirementAge"`
	LifeExpectancy   int          `yaml:"life_expectancy" json:"lifeExpectancy"`
	CurrentIncome    money.Money  `yaml:"current_income" json:"currentIncome"`
	FilingStatus     FilingStatus `yaml:"filing_status" json:"filingStatus"`
	StateOfResidence string       `yaml:"state_of_residence" json:"stateOfResidence"`

	// RetirementIncome is ordinary income (pension, Social Security) received
	// once RetirementAge is reached.
	RetirementIncome money.Money `yaml:"retirement_income,omitempty" json:"retirementIncome,omitempty"`
	HSACoverage      HSACoverage `yaml:"hsa_coverage,omitempty" json:"hsaCoverage,omitempty"`
}

// Validate checks the ordering invariants and the enumerations.
func (f PersonalFacts) Validate() error {
	if f.CurrentAge < 0 || f.CurrentAge > 130 {
		return InvalidInput("current_age", f.CurrentAge, "current age must be between 0 and 130")
	}
	if f.RetirementAge < f.CurrentAge {
		return InvalidInput("retirement_age", f.RetirementAge, "retirement age %d is before current age %d", f.RetirementAge, f.CurrentAge)
	}
	if f.LifeExpectancy < f.RetirementAge {
		return InvalidInput("life_expectancy", f.LifeExpectancy, "life expectancy %d is before retirement age %d", f.LifeExpectancy, f.RetirementAge)
	}
	if f.CurrentIncome.IsNegative() {
		return InvalidInput("current_income", f.CurrentIncome, "income cannot be negative")
	}
	if f.RetirementIncome.IsNegative() {
		return InvalidInput("retirement_income", f.RetirementIncome, "income cannot be negative")
	}
	if !f.FilingStatus.Valid() {
		return InvalidInput("filing_status", f.FilingStatus, "malformed filing status")
	}
	switch f.HSACoverage {
	case "", HSASelf, HSAFamily:
	default:
		return InvalidInput("hsa_coverage", f.HSACoverage, "coverage must be self or family")
	}
	return nil
}

// State returns the normalized two-letter state code.
func (f PersonalFacts) State() string {
	return strings.ToUpper(strings.TrimSpace(f.StateOfResidence))
}

// IsRetiredAt reports whether the person has stopped working at the given age.
func (f PersonalFacts) IsRetiredAt(age int) bool {
	return age >= f.RetirementAge
}

// IncomeAt splits the year's income at age into wages and retirement income.
func (f PersonalFacts) IncomeAt(age int) (wages, retirementIncome money.Money) {
	if f.IsRetiredAt(age) {
		return 0, f.RetirementIncome
	}
	return f.CurrentIncome, 0
}
