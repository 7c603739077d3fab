package domain

import (
	"fmt"
	"sort"

	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
)

// TaxTreatment describes when contributions, growth and withdrawals are taxed.
type TaxTreatment string

const (
	TaxDeferred        TaxTreatment = "tax_deferred"
	TaxFree            TaxTreatment = "tax_free"
	Taxable            TaxTreatment = "taxable"
	TripleTaxAdvantage TaxTreatment = "triple_tax_advantage"
)

// Deductible reports whether contributions reduce current taxable income.
func (t TaxTreatment) Deductible() bool {
	return t == TaxDeferred || t == TripleTaxAdvantage
}

// Sheltered reports whether growth escapes annual taxation.
func (t TaxTreatment) Sheltered() bool {
	return t != Taxable
}

// AccountType identifies a statutory account family.
type AccountType string

const (
	Traditional401k AccountType = "traditional_401k"
	Roth401k        AccountType = "roth_401k"
	TraditionalIRA  AccountType = "traditional_ira"
	RothIRA         AccountType = "roth_ira"
	SEPIRA          AccountType = "sep_ira"
	SimpleIRA       AccountType = "simple_ira"
	HSA             AccountType = "hsa"
	Education529    AccountType = "education_529"
	TaxableAccount  AccountType = "taxable"
)

var accountTreatments = map[AccountType]TaxTreatment{
	Traditional401k: TaxDeferred,
	Roth401k:        TaxFree,
	TraditionalIRA:  TaxDeferred,
	RothIRA:         TaxFree,
	SEPIRA:          TaxDeferred,
	SimpleIRA:       TaxDeferred,
	HSA:             TripleTaxAdvantage,
	Education529:    TaxFree,
	TaxableAccount:  Taxable,
}

// AllAccountTypes returns every known account type in a stable order.
func AllAccountTypes() []AccountType {
	types := make([]AccountType, 0, len(accountTreatments))
	for t := range accountTreatments {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// ParseAccountType validates an account type string.
func ParseAccountType(s string) (AccountType, error) {
	t := AccountType(s)
	if !t.Valid() {
		return "", InvalidInput("account_type", s, "unrecognized account type")
	}
	return t, nil
}

// Valid reports whether the type is one of the known variants.
func (t AccountType) Valid() bool {
	_, ok := accountTreatments[t]
	return ok
}

// Treatment returns the tax treatment carried by the account type.
func (t AccountType) Treatment() TaxTreatment {
	return accountTreatments[t]
}

// IsEmployerPlan reports whether the account can receive employer matching.
func (t AccountType) IsEmployerPlan() bool {
	switch t {
	case Traditional401k, Roth401k, SimpleIRA, SEPIRA:
		return true
	}
	return false
}

// RequiresRMD reports whether the account is subject to required minimum
// distributions. Roth 401k balances are exempt from 2024 on.
func (t AccountType) RequiresRMD() bool {
	return t.Treatment() == TaxDeferred
}

// EmployerMatch describes an employer contribution formula: Rate dollars per
// employee dollar on contributions up to UpToPercentOfPay of current income.
type EmployerMatch struct {
	Rate             decimal.Decimal `yaml:"rate" json:"rate"`
	UpToPercentOfPay decimal.Decimal `yaml:"up_to_percent_of_pay" json:"upToPercentOfPay"`
}

// Account is a single account owned by one person.
// Retired accounts keep their balance but receive no new contributions.
type Account struct {
	ID                    string         `yaml:"id" json:"id"`
	Type                  AccountType    `yaml:"type" json:"type"`
	CurrentBalance        money.Money    `yaml:"current_balance" json:"currentBalance"`
	ContributedYearToDate money.Money    `yaml:"contributed_year_to_date" json:"contributedYearToDate"`
	OwnerAge              int            `yaml:"owner_age" json:"ownerAge"`
	EmployerMatch         *EmployerMatch `yaml:"employer_match,omitempty" json:"employerMatch,omitempty"`
	CostBasis             money.Money    `yaml:"cost_basis,omitempty" json:"costBasis,omitempty"`
	Retired               bool           `yaml:"retired,omitempty" json:"retired,omitempty"`
}

// Treatment is shorthand for a.Type.Treatment().
func (a Account) Treatment() TaxTreatment {
	return a.Type.Treatment()
}

// Validate checks a single account.
func (a Account) Validate() error {
	if a.ID == "" {
		return InvalidInput("id", a.ID, "account id is required")
	}
	if !a.Type.Valid() {
		return InvalidInput("accounts["+a.ID+"].type", a.Type, "unrecognized account type")
	}
	if a.CurrentBalance.IsNegative() {
		return InvalidInput("accounts["+a.ID+"].current_balance", a.CurrentBalance, "balance cannot be negative")
	}
	if a.ContributedYearToDate.IsNegative() {
		return InvalidInput("accounts["+a.ID+"].contributed_year_to_date", a.ContributedYearToDate, "contributions cannot be negative")
	}
	if a.CostBasis.IsNegative() {
		return InvalidInput("accounts["+a.ID+"].cost_basis", a.CostBasis, "cost basis cannot be negative")
	}
	if a.OwnerAge < 0 || a.OwnerAge > 130 {
		return InvalidInput("accounts["+a.ID+"].owner_age", a.OwnerAge, "owner age must be between 0 and 130")
	}
	if m := a.EmployerMatch; m != nil {
		if !a.Type.IsEmployerPlan() {
			return InvalidInput("accounts["+a.ID+"].employer_match", a.Type, "employer match is only valid on employer plans")
		}
		if m.Rate.IsNegative() || m.Rate.GreaterThan(decimal.NewFromInt(2)) {
			return InvalidInput("accounts["+a.ID+"].employer_match.rate", m.Rate, "match rate must be between 0 and 2")
		}
		if m.UpToPercentOfPay.IsNegative() || m.UpToPercentOfPay.GreaterThan(decimal.NewFromInt(1)) {
			return InvalidInput("accounts["+a.ID+"].employer_match.up_to_percent_of_pay", m.UpToPercentOfPay, "match ceiling must be between 0 and 1")
		}
	}
	return nil
}

// ValidateAccounts checks every account and rejects duplicate ids.
func ValidateAccounts(accounts []Account) error {
	seen := make(map[string]bool, len(accounts))
	for _, a := range accounts {
		if err := a.Validate(); err != nil {
			return err
		}
		if seen[a.ID] {
			return InvalidInput("id", a.ID, "duplicate account id")
		}
		seen[a.ID] = true
	}
	return nil
}

// FindAccount returns the account with the given id.
func FindAccount(accounts []Account, id string) (Account, bool) {
	for _, a := range accounts {
		if a.ID == id {
			return a, true
		}
	}
	return Account{}, false
}

// TotalBalance sums current balances.
func TotalBalance(accounts []Account) money.Money {
	var total money.Money
	for _, a := range accounts {
		total += a.CurrentBalance
	}
	return total
}

// AssetClass is an investable category and its annual tax drag when held in
// a taxable account (0.012 = 1.2% of value lost to taxes each year).
type AssetClass struct {
	Name        string          `yaml:"name" json:"name"`
	TaxDragRate decimal.Decimal `yaml:"tax_drag_rate" json:"taxDragRate"`
}

// Holding is an amount of one asset class held in one account.
type Holding struct {
	AccountID  string      `yaml:"account_id" json:"accountId"`
	AssetClass string      `yaml:"asset_class" json:"assetClass"`
	Amount     money.Money `yaml:"amount" json:"amount"`
}

func (h Holding) String() string {
	return fmt.Sprintf("%s:%s=%s", h.AccountID, h.AssetClass, h.Amount.Format())
}
