package domain

import (
	"strconv"

	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
)

// ProjectionYear is one row of a projection. Row 0 is the starting state.
// Rows are never mutated once produced.
type ProjectionYear struct {
	Year               int                    `json:"year"`
	Age                int                    `json:"age"`
	Balances           map[string]money.Money `json:"balances"`
	Contributions      map[string]money.Money `json:"contributions"`
	TotalContributions money.Money            `json:"totalContributions"`
	EmployerMatch      money.Money            `json:"employerMatch"`
	RMD                money.Money            `json:"rmd"`
	RMDByAccount       map[string]money.Money `json:"rmdByAccount,omitempty"`
	Withdrawals        map[string]money.Money `json:"withdrawals,omitempty"`
	TotalWithdrawals   money.Money            `json:"totalWithdrawals"`
	Conversions        money.Money            `json:"conversions"`
	TaxableIncome      money.Money            `json:"taxableIncome"`
	TaxesPaid          money.Money            `json:"taxesPaid"`
	NetWorth           money.Money            `json:"netWorth"`
	AfterTaxValue      money.Money            `json:"afterTaxValue"`
}

// ProjectionRequest holds the inputs of a multi-year projection.
// Years may be zero, in which case only the starting state is produced.
type ProjectionRequest struct {
	TaxYear            int               `yaml:"tax_year" json:"taxYear"`
	Accounts           []Account         `yaml:"accounts" json:"accounts"`
	Facts              PersonalFacts     `yaml:"facts" json:"facts"`
	AnnualContribution money.Money       `yaml:"annual_contribution" json:"annualContribution"`
	ExpectedReturn     decimal.Decimal   `yaml:"expected_return" json:"expectedReturn"`
	Years              int               `yaml:"years" json:"years"`
	Options            ProjectionOptions `yaml:"options" json:"options"`
}

// ProjectionOptions are the optional knobs of a projection.
type ProjectionOptions struct {
	// TaxDrag reduces the growth of taxable accounts.
	TaxDrag decimal.Decimal `yaml:"tax_drag" json:"taxDrag"`
	// RetirementTaxRate discounts tax-deferred balances in AfterTaxValue.
	// When nil the effective federal rate on current income is used.
	RetirementTaxRate *decimal.Decimal `yaml:"retirement_tax_rate,omitempty" json:"retirementTaxRate,omitempty"`
	// AnnualSpending is the gross amount drawn from accounts each retired year.
	AnnualSpending money.Money `yaml:"annual_spending" json:"annualSpending"`
	// ReinvestDistributions moves RMDs, net of their tax, into a taxable account.
	ReinvestDistributions bool                        `yaml:"reinvest_distributions" json:"reinvestDistributions"`
	Withdrawals           *WithdrawalSequencingConfig `yaml:"withdrawals,omitempty" json:"withdrawals,omitempty"`
	Conversions           []ScheduledConversion       `yaml:"conversions,omitempty" json:"conversions,omitempty"`
}

// WithdrawalSequencingConfig selects how retirement spending is sourced.
type WithdrawalSequencingConfig struct {
	Strategy          string           `yaml:"strategy" json:"strategy"`
	CustomSequence    []string         `yaml:"custom_sequence,omitempty" json:"customSequence,omitempty"`
	TargetBracketRate *decimal.Decimal `yaml:"target_bracket_rate,omitempty" json:"targetBracketRate,omitempty"`
	BracketBuffer     money.Money      `yaml:"bracket_buffer,omitempty" json:"bracketBuffer,omitempty"`
}

// ScheduledConversion moves Amount from a tax-deferred account to a tax-free
// one during the projection year at YearOffset (1 is the first projected year).
type ScheduledConversion struct {
	YearOffset  int         `yaml:"year_offset" json:"yearOffset"`
	FromAccount string      `yaml:"from_account" json:"fromAccount"`
	ToAccount   string      `yaml:"to_account" json:"toAccount"`
	Amount      money.Money `yaml:"amount" json:"amount"`
}

// Validate checks the request before any projection work happens.
func (r ProjectionRequest) Validate() error {
	if err := r.Facts.Validate(); err != nil {
		return err
	}
	if err := ValidateAccounts(r.Accounts); err != nil {
		return err
	}
	if r.Years < 0 {
		return InvalidInput("years", r.Years, "years cannot be negative")
	}
	if r.AnnualContribution.IsNegative() {
		return InvalidInput("annual_contribution", r.AnnualContribution, "contribution cannot be negative")
	}
	if r.ExpectedReturn.LessThanOrEqual(decimal.NewFromInt(-1)) {
		return InvalidInput("expected_return", r.ExpectedReturn, "expected return must be greater than -100%%")
	}
	opts := r.Options
	if opts.TaxDrag.IsNegative() || opts.TaxDrag.GreaterThan(decimal.NewFromInt(1)) {
		return InvalidInput("options.tax_drag", opts.TaxDrag, "tax drag must be between 0 and 1")
	}
	if rate := opts.RetirementTaxRate; rate != nil && (rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1))) {
		return InvalidInput("options.retirement_tax_rate", *rate, "rate must be between 0 and 1")
	}
	if opts.AnnualSpending.IsNegative() {
		return InvalidInput("options.annual_spending", opts.AnnualSpending, "spending cannot be negative")
	}
	for i, c := range opts.Conversions {
		if err := c.validate(r.Accounts, r.Years); err != nil {
			return err.WithOp("conversions[" + strconv.Itoa(i) + "]")
		}
	}
	return nil
}

func (c ScheduledConversion) validate(accounts []Account, years int) *Error {
	if c.YearOffset < 1 || c.YearOffset > years {
		return InvalidInput("year_offset", c.YearOffset, "conversion must fall within projected years 1..%d", years)
	}
	if !c.Amount.IsPositive() {
		return InvalidInput("amount", c.Amount, "conversion amount must be positive")
	}
	from, ok := FindAccount(accounts, c.FromAccount)
	if !ok {
		return InvalidInput("from_account", c.FromAccount, "unknown account")
	}
	if from.Treatment() != TaxDeferred {
		return InvalidInput("from_account", c.FromAccount, "conversions must come from a tax-deferred account")
	}
	to, ok := FindAccount(accounts, c.ToAccount)
	if !ok {
		return InvalidInput("to_account", c.ToAccount, "unknown account")
	}
	if to.Treatment() != TaxFree {
		return InvalidInput("to_account", c.ToAccount, "conversions must go to a tax-free account")
	}
	return nil
}
