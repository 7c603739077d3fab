package domain

import (
	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
)

// BracketTax is the tax owed within one bracket.
type BracketTax struct {
	Rate        decimal.Decimal `json:"rate"`
	Lower       money.Money     `json:"lower"`
	Upper       *money.Money    `json:"upper"`
	TaxedAmount money.Money     `json:"taxedAmount"`
	Tax         money.Money     `json:"tax"`
}

// TaxResult is the outcome of running income through a bracket schedule.
type TaxResult struct {
	TaxableIncome money.Money     `json:"taxableIncome"`
	TotalTax      money.Money     `json:"totalTax"`
	MarginalRate  decimal.Decimal `json:"marginalRate"`
	EffectiveRate decimal.Decimal `json:"effectiveRate"`
	Breakdown     []BracketTax    `json:"breakdown"`
}

// HouseholdTax combines federal and simplified state tax for one year.
type HouseholdTax struct {
	TaxYear           int         `json:"taxYear"`
	GrossIncome       money.Money `json:"grossIncome"`
	StandardDeduction money.Money `json:"standardDeduction"`
	Federal           TaxResult   `json:"federal"`
	State             *TaxResult  `json:"state,omitempty"`
	StateCode         string      `json:"stateCode,omitempty"`
	TotalTax          money.Money `json:"totalTax"`
}

// ContributionLimits is the resolved limit and remaining room of one account
// type for one tax year. AvailableRoom is never negative.
type ContributionLimits struct {
	AccountType       AccountType `json:"accountType"`
	TaxYear           int         `json:"taxYear"`
	BaseLimit         money.Money `json:"baseLimit"`
	CatchUpLimit      money.Money `json:"catchUpLimit"`
	CatchUpEligible   bool        `json:"catchUpEligible"`
	TotalLimit        money.Money `json:"totalLimit"`
	ContributedToDate money.Money `json:"contributedToDate"`
	AvailableRoom     money.Money `json:"availableRoom"`
	Unlimited         bool        `json:"unlimited,omitempty"`
	LimitGroup        string      `json:"limitGroup,omitempty"`
}

// OptimizationResult is the allocator's placement of a savings pool.
type OptimizationResult struct {
	AllocationByAccount    map[string]money.Money `json:"allocationByAccount"`
	EmployerMatchByAccount map[string]money.Money `json:"employerMatchByAccount,omitempty"`
	TotalContribution      money.Money            `json:"totalContribution"`
	TaxSavings             money.Money            `json:"taxSavings"`
	EmployerMatchCaptured  money.Money            `json:"employerMatchCaptured"`
	Unallocated            money.Money            `json:"unallocated"`
	Explanation            []string               `json:"explanation"`
}

// LocationRecommendation proposes moving one taxable holding into a
// tax-advantaged account.
type LocationRecommendation struct {
	AssetClass          string          `json:"assetClass"`
	FromAccount         string          `json:"fromAccount"`
	ToAccount           string          `json:"toAccount"`
	Amount              money.Money     `json:"amount"`
	TaxDragRate         decimal.Decimal `json:"taxDragRate"`
	EstimatedTaxSavings money.Money     `json:"estimatedTaxSavings"`
	Rationale           string          `json:"rationale"`
}
