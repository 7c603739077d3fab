package domain

import (
	"fmt"
	"sort"

	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
)

// FederalJurisdiction is the jurisdiction key of federal schedules.
const FederalJurisdiction = "federal"

// StatutoryTables is the versioned, read-only statutory data keyed by tax year.
// It is loaded from regulatory.yaml and validated once at load.
type StatutoryTables struct {
	Metadata StatutoryMetadata     `yaml:"metadata" json:"metadata"`
	TaxYears map[int]*TaxYearRules `yaml:"tax_years" json:"taxYears"`
}

// StatutoryMetadata describes where the tables came from.
type StatutoryMetadata struct {
	Version     string `yaml:"version" json:"version"`
	LastUpdated string `yaml:"last_updated" json:"lastUpdated"`
	Description string `yaml:"description" json:"description"`
}

// TaxYearRules holds every statutory parameter for one tax year.
type TaxYearRules struct {
	Year               int                                   `yaml:"-" json:"year"`
	Federal            FederalTaxRules                       `yaml:"federal" json:"federal"`
	ContributionLimits map[AccountType]ContributionLimitRule `yaml:"contribution_limits" json:"contributionLimits"`
	RMD                RMDRules                              `yaml:"rmd" json:"rmd"`
	States             map[string]StateRules                 `yaml:"states" json:"states"`
}

// FederalTaxRules contains federal income tax rules.
type FederalTaxRules struct {
	Brackets                  map[FilingStatus][]TaxBracket `yaml:"brackets" json:"brackets"`
	StandardDeduction         map[FilingStatus]money.Money  `yaml:"standard_deduction" json:"standardDeduction"`
	AdditionalDeduction65Plus AdditionalDeduction           `yaml:"additional_deduction_65_plus" json:"additionalDeduction65Plus"`
}

// AdditionalDeduction is the extra standard deduction for filers 65 and older.
type AdditionalDeduction struct {
	Unmarried money.Money `yaml:"unmarried" json:"unmarried"`
	Married   money.Money `yaml:"married" json:"married"`
}

// StateRules is a simplified state income tax. A flat tax is a one-bracket schedule.
type StateRules struct {
	Name                    string       `yaml:"name" json:"name"`
	Brackets                []TaxBracket `yaml:"brackets" json:"brackets"`
	ExemptsRetirementIncome bool         `yaml:"exempts_retirement_income" json:"exemptsRetirementIncome"`
}

// RMDRules holds the trigger age and the Uniform Lifetime Table.
type RMDRules struct {
	TriggerAge      int                     `yaml:"trigger_age" json:"triggerAge"`
	UniformLifetime map[int]decimal.Decimal `yaml:"uniform_lifetime" json:"uniformLifetime"`
}

// ContributionLimitRule is the statutory annual limit of one account type.
type ContributionLimitRule struct {
	Base       money.Money `yaml:"base" json:"base"`
	FamilyBase money.Money `yaml:"family_base,omitempty" json:"familyBase,omitempty"`
	CatchUp    money.Money `yaml:"catch_up,omitempty" json:"catchUp,omitempty"`
	CatchUpAge int         `yaml:"catch_up_age,omitempty" json:"catchUpAge,omitempty"`
	Group      string      `yaml:"group,omitempty" json:"group,omitempty"`
	Unlimited  bool        `yaml:"unlimited,omitempty" json:"unlimited,omitempty"`
}

// TaxBracket is one band of a schedule. A nil Upper means unbounded.
type TaxBracket struct {
	Rate  decimal.Decimal `yaml:"rate" json:"rate"`
	Lower money.Money     `yaml:"lower" json:"lower"`
	Upper *money.Money    `yaml:"upper,omitempty" json:"upper"`
}

// Contains reports whether an amount of income falls in [Lower, Upper).
func (b TaxBracket) Contains(income money.Money) bool {
	if income < b.Lower {
		return false
	}
	return b.Upper == nil || income < *b.Upper
}

// TaxBracketSchedule is an ordered bracket list for one (year, status, jurisdiction).
type TaxBracketSchedule struct {
	TaxYear      int          `json:"taxYear"`
	FilingStatus FilingStatus `json:"filingStatus"`
	Jurisdiction string       `json:"jurisdiction"`
	Brackets     []TaxBracket `json:"brackets"`
}

// Validate checks that the brackets start at zero, are contiguous with
// strictly increasing bounds, have non-decreasing rates, and that only the
// last bracket is unbounded.
func (s TaxBracketSchedule) Validate() error {
	field := fmt.Sprintf("brackets[%d/%s/%s]", s.TaxYear, s.Jurisdiction, s.FilingStatus)
	if len(s.Brackets) == 0 {
		return InvalidInput(field, 0, "schedule has no brackets")
	}
	if s.Brackets[0].Lower != 0 {
		return InvalidInput(field, s.Brackets[0].Lower, "first bracket must start at zero")
	}
	one := decimal.NewFromInt(1)
	for i, b := range s.Brackets {
		if b.Rate.IsNegative() || b.Rate.GreaterThan(one) {
			return InvalidInput(field, b.Rate, "bracket %d rate must be between 0 and 1", i)
		}
		if i > 0 && b.Rate.LessThan(s.Brackets[i-1].Rate) {
			return InvalidInput(field, b.Rate, "bracket %d rate decreases", i)
		}
		last := i == len(s.Brackets)-1
		if b.Upper == nil {
			if !last {
				return InvalidInput(field, i, "only the last bracket may be unbounded")
			}
			continue
		}
		if *b.Upper <= b.Lower {
			return InvalidInput(field, *b.Upper, "bracket %d bounds must strictly increase", i)
		}
		if !last && s.Brackets[i+1].Lower != *b.Upper {
			return InvalidInput(field, s.Brackets[i+1].Lower, "bracket %d does not start where bracket %d ends", i+1, i)
		}
	}
	return nil
}

// TopRate returns the rate of the highest bracket.
func (s TaxBracketSchedule) TopRate() decimal.Decimal {
	if len(s.Brackets) == 0 {
		return decimal.Zero
	}
	return s.Brackets[len(s.Brackets)-1].Rate
}

// ForYear resolves the rules of a tax year. Unknown years are an error,
// never a fallback to the nearest year.
func (t *StatutoryTables) ForYear(year int) (*TaxYearRules, error) {
	if t == nil {
		return nil, UnknownStatutoryYear("tax_year", year, "no statutory tables loaded")
	}
	rules, ok := t.TaxYears[year]
	if !ok || rules == nil {
		return nil, UnknownStatutoryYear("tax_year", year, "no statutory tables for tax year %d", year)
	}
	return rules, nil
}

// Years returns the configured tax years in ascending order.
func (t *StatutoryTables) Years() []int {
	if t == nil {
		return nil
	}
	years := make([]int, 0, len(t.TaxYears))
	for y := range t.TaxYears {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// Validate checks every tax year and stamps each TaxYearRules with its year.
func (t *StatutoryTables) Validate() error {
	if t == nil || len(t.TaxYears) == 0 {
		return InvalidInput("tax_years", 0, "no tax years configured")
	}
	for _, year := range t.Years() {
		rules := t.TaxYears[year]
		if rules == nil {
			return InvalidInput("tax_years", year, "empty tax year entry")
		}
		rules.Year = year
		if err := rules.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the rules of a single tax year.
func (r *TaxYearRules) Validate() error {
	for _, status := range FilingStatuses {
		schedule, err := r.FederalSchedule(status)
		if err != nil {
			return err
		}
		if err := schedule.Validate(); err != nil {
			return err
		}
		if _, ok := r.Federal.StandardDeduction[status]; !ok {
			return InvalidInput("standard_deduction", status, "missing standard deduction for %d", r.Year)
		}
	}
	for code, state := range r.States {
		schedule := TaxBracketSchedule{TaxYear: r.Year, Jurisdiction: code, Brackets: state.Brackets}
		if err := schedule.Validate(); err != nil {
			return err
		}
	}
	for accountType, rule := range r.ContributionLimits {
		if !accountType.Valid() {
			return InvalidInput("contribution_limits", accountType, "unrecognized account type in %d", r.Year)
		}
		if rule.Base.IsNegative() || rule.CatchUp.IsNegative() || rule.FamilyBase.IsNegative() {
			return InvalidInput("contribution_limits."+string(accountType), rule.Base, "limits cannot be negative")
		}
		if rule.CatchUp.IsPositive() && rule.CatchUpAge <= 0 {
			return InvalidInput("contribution_limits."+string(accountType)+".catch_up_age", rule.CatchUpAge, "catch-up amount needs a threshold age")
		}
	}
	return r.RMD.Validate(r.Year)
}

// Validate requires a positive factor for every age from the trigger age to
// the oldest age in the table.
func (r RMDRules) Validate(year int) error {
	if r.TriggerAge <= 0 {
		return InvalidInput("rmd.trigger_age", r.TriggerAge, "trigger age must be positive in %d", year)
	}
	if _, ok := r.UniformLifetime[r.TriggerAge]; !ok {
		return InvalidInput("rmd.uniform_lifetime", r.TriggerAge, "table does not cover the trigger age in %d", year)
	}
	for age := r.TriggerAge; age <= r.MaxAge(); age++ {
		factor, ok := r.UniformLifetime[age]
		if !ok {
			return InvalidInput("rmd.uniform_lifetime", age, "table has a gap in %d", year)
		}
		if !factor.IsPositive() {
			return InvalidInput("rmd.uniform_lifetime", age, "factor must be positive")
		}
	}
	return nil
}

// MaxAge is the oldest age in the table.
func (r RMDRules) MaxAge() int {
	maxAge := 0
	for age := range r.UniformLifetime {
		if age > maxAge {
			maxAge = age
		}
	}
	return maxAge
}

// Factor returns the life expectancy divisor for an age.
func (r RMDRules) Factor(age int) (decimal.Decimal, bool) {
	f, ok := r.UniformLifetime[age]
	return f, ok
}

// FederalSchedule returns the federal bracket schedule for a filing status.
func (r *TaxYearRules) FederalSchedule(status FilingStatus) (TaxBracketSchedule, error) {
	brackets, ok := r.Federal.Brackets[status]
	if !ok || len(brackets) == 0 {
		return TaxBracketSchedule{}, UnknownStatutoryYear("filing_status", status, "no federal brackets for %s in %d", status, r.Year)
	}
	return TaxBracketSchedule{
		TaxYear:      r.Year,
		FilingStatus: status,
		Jurisdiction: FederalJurisdiction,
		Brackets:     brackets,
	}, nil
}

// StateSchedule returns the state schedule and its rules. ok is false for
// states without a configured table.
func (r *TaxYearRules) StateSchedule(code string, status FilingStatus) (TaxBracketSchedule, StateRules, bool) {
	state, ok := r.States[code]
	if !ok {
		return TaxBracketSchedule{}, StateRules{}, false
	}
	return TaxBracketSchedule{
		TaxYear:      r.Year,
		FilingStatus: status,
		Jurisdiction: code,
		Brackets:     state.Brackets,
	}, state, true
}

// StandardDeduction returns the standard deduction including the additional
// amount for filers 65 and older.
func (r *TaxYearRules) StandardDeduction(status FilingStatus, age int) money.Money {
	deduction := r.Federal.StandardDeduction[status]
	if age >= 65 {
		if status.Married() {
			deduction += r.Federal.AdditionalDeduction65Plus.Married
		} else {
			deduction += r.Federal.AdditionalDeduction65Plus.Unmarried
		}
	}
	return deduction
}

// LimitRule returns the contribution rule for an account type.
func (r *TaxYearRules) LimitRule(accountType AccountType) (ContributionLimitRule, error) {
	rule, ok := r.ContributionLimits[accountType]
	if !ok {
		return ContributionLimitRule{}, UnknownAccountType(accountType, r.Year)
	}
	return rule, nil
}
