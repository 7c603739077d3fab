package domain

import (
	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
)

// Household is the input file: one person's facts, accounts and holdings plus
// the assumptions that feed each engine operation.
type Household struct {
	Name         string        `yaml:"name" json:"name"`
	TaxYear      int           `yaml:"tax_year" json:"taxYear"`
	Facts        PersonalFacts `yaml:"facts" json:"facts"`
	Accounts     []Account     `yaml:"accounts" json:"accounts"`
	AssetClasses []AssetClass  `yaml:"asset_classes" json:"assetClasses"`
	Holdings     []Holding     `yaml:"holdings" json:"holdings"`
	Assumptions  Assumptions   `yaml:"assumptions" json:"assumptions"`
}

// Assumptions are the operation parameters of a household file.
type Assumptions struct {
	AvailableCash      money.Money       `yaml:"available_cash" json:"availableCash"`
	AnnualContribution money.Money       `yaml:"annual_contribution" json:"annualContribution"`
	ExpectedReturn     decimal.Decimal   `yaml:"expected_return" json:"expectedReturn"`
	Years              *int              `yaml:"years,omitempty" json:"years,omitempty"`
	Projection         ProjectionOptions `yaml:"projection" json:"projection"`
	Roth               RothAssumptions   `yaml:"roth" json:"roth"`
	Location           *LocationOptions  `yaml:"location,omitempty" json:"location,omitempty"`
}

// RothAssumptions are the conversion analysis parameters of a household file.
type RothAssumptions struct {
	AccountID              string           `yaml:"account_id" json:"accountId"`
	CurrentMarginalRate    decimal.Decimal  `yaml:"current_marginal_rate" json:"currentMarginalRate"`
	ExpectedRetirementRate decimal.Decimal  `yaml:"expected_retirement_rate" json:"expectedRetirementRate"`
	ProposedAmount         *money.Money     `yaml:"proposed_amount,omitempty" json:"proposedAmount,omitempty"`
	Cap                    *money.Money     `yaml:"cap,omitempty" json:"cap,omitempty"`
	LadderYears            int              `yaml:"ladder_years" json:"ladderYears"`
	SideFundDrag           *decimal.Decimal `yaml:"side_fund_drag,omitempty" json:"sideFundDrag,omitempty"`
}

// Clone returns a deep copy so what-if transforms never alias the original.
func (h *Household) Clone() *Household {
	if h == nil {
		return nil
	}
	c := *h
	c.Accounts = make([]Account, len(h.Accounts))
	for i, a := range h.Accounts {
		if a.EmployerMatch != nil {
			m := *a.EmployerMatch
			a.EmployerMatch = &m
		}
		c.Accounts[i] = a
	}
	c.AssetClasses = append([]AssetClass(nil), h.AssetClasses...)
	c.Holdings = append([]Holding(nil), h.Holdings...)
	if h.Assumptions.Years != nil {
		y := *h.Assumptions.Years
		c.Assumptions.Years = &y
	}
	if h.Assumptions.Location != nil {
		l := *h.Assumptions.Location
		c.Assumptions.Location = &l
	}
	opts := &c.Assumptions.Projection
	opts.Conversions = append([]ScheduledConversion(nil), h.Assumptions.Projection.Conversions...)
	if w := h.Assumptions.Projection.Withdrawals; w != nil {
		wc := *w
		wc.CustomSequence = append([]string(nil), w.CustomSequence...)
		opts.Withdrawals = &wc
	}
	return &c
}

// ProjectionYears is the requested horizon, defaulting to life expectancy.
func (h *Household) ProjectionYears() int {
	if h.Assumptions.Years != nil {
		return *h.Assumptions.Years
	}
	return h.Facts.LifeExpectancy - h.Facts.CurrentAge
}

// ProjectionRequest builds the projection inputs of the household.
func (h *Household) ProjectionRequest() ProjectionRequest {
	return ProjectionRequest{
		TaxYear:            h.TaxYear,
		Accounts:           h.Accounts,
		Facts:              h.Facts,
		AnnualContribution: h.Assumptions.AnnualContribution,
		ExpectedReturn:     h.Assumptions.ExpectedReturn,
		Years:              h.ProjectionYears(),
		Options:            h.Assumptions.Projection,
	}
}

// AllocationRequest builds allocator inputs. Limits are resolved by the engine.
func (h *Household) AllocationRequest() AllocationRequest {
	return AllocationRequest{
		TaxYear:       h.TaxYear,
		Accounts:      h.Accounts,
		AvailableCash: h.Assumptions.AvailableCash,
		Facts:         h.Facts,
	}
}

// RothRequest builds conversion inputs. The traditional balance is the named
// account, or every tax-deferred account when none is named.
func (h *Household) RothRequest() (RothRequest, error) {
	ra := h.Assumptions.Roth
	var balance money.Money
	if ra.AccountID != "" {
		a, ok := FindAccount(h.Accounts, ra.AccountID)
		if !ok {
			return RothRequest{}, InvalidInput("assumptions.roth.account_id", ra.AccountID, "unknown account")
		}
		if a.Treatment() != TaxDeferred {
			return RothRequest{}, InvalidInput("assumptions.roth.account_id", ra.AccountID, "account is not tax-deferred")
		}
		balance = a.CurrentBalance
	} else {
		for _, a := range h.Accounts {
			if a.Treatment() == TaxDeferred {
				balance += a.CurrentBalance
			}
		}
	}
	return RothRequest{
		TaxYear:                h.TaxYear,
		Facts:                  h.Facts,
		TraditionalBalance:     balance,
		CurrentMarginalRate:    ra.CurrentMarginalRate,
		ExpectedRetirementRate: ra.ExpectedRetirementRate,
		ExpectedReturn:         h.Assumptions.ExpectedReturn,
		ProposedAmount:         ra.ProposedAmount,
		Cap:                    ra.Cap,
		LadderYears:            ra.LadderYears,
		SideFundDrag:           ra.SideFundDrag,
	}, nil
}

// LocationRequest builds asset location inputs.
func (h *Household) LocationRequest() LocationRequest {
	opts := DefaultLocationOptions()
	if h.Assumptions.Location != nil {
		opts = *h.Assumptions.Location
	}
	return LocationRequest{
		Accounts:     h.Accounts,
		AssetClasses: h.AssetClasses,
		Holdings:     h.Holdings,
		Options:      opts,
	}
}
