package domain

import (
	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
)

// AllocationRequest holds the inputs of a contribution allocation.
// Limits is keyed by account id.
type AllocationRequest struct {
	TaxYear       int                           `json:"taxYear"`
	Accounts      []Account                     `json:"accounts"`
	Limits        map[string]ContributionLimits `json:"limits"`
	AvailableCash money.Money                   `json:"availableCash"`
	Facts         PersonalFacts                 `json:"facts"`
}

// LocationRequest holds the inputs of an asset location optimization.
type LocationRequest struct {
	Accounts     []Account       `json:"accounts"`
	AssetClasses []AssetClass    `json:"assetClasses"`
	Holdings     []Holding       `json:"holdings"`
	Options      LocationOptions `json:"options"`
}

// LocationOptions tune the greedy asset location pass.
type LocationOptions struct {
	// HighDragThreshold is the minimum drag for a holding to be moved.
	HighDragThreshold decimal.Decimal `yaml:"high_drag_threshold" json:"highDragThreshold"`
	// MaterialityThreshold is the minimum holding amount worth moving.
	MaterialityThreshold money.Money `yaml:"materiality_threshold" json:"materialityThreshold"`
}

// DefaultLocationOptions returns a 0.5% drag threshold and a $1,000 materiality floor.
func DefaultLocationOptions() LocationOptions {
	return LocationOptions{
		HighDragThreshold:    decimal.NewFromFloat(0.005),
		MaterialityThreshold: money.FromDollars(1000),
	}
}

// Validate checks accounts, asset classes and holdings for consistency.
func (r LocationRequest) Validate() error {
	if err := ValidateAccounts(r.Accounts); err != nil {
		return err
	}
	classes := make(map[string]bool, len(r.AssetClasses))
	for _, c := range r.AssetClasses {
		if c.Name == "" {
			return InvalidInput("asset_classes.name", c.Name, "asset class name is required")
		}
		if classes[c.Name] {
			return InvalidInput("asset_classes.name", c.Name, "duplicate asset class")
		}
		if c.TaxDragRate.IsNegative() || c.TaxDragRate.GreaterThan(decimal.NewFromInt(1)) {
			return InvalidInput("asset_classes["+c.Name+"].tax_drag_rate", c.TaxDragRate, "drag must be between 0 and 1")
		}
		classes[c.Name] = true
	}
	held := make(map[string]money.Money)
	for _, h := range r.Holdings {
		if _, ok := FindAccount(r.Accounts, h.AccountID); !ok {
			return InvalidInput("holdings.account_id", h.AccountID, "unknown account")
		}
		if !classes[h.AssetClass] {
			return InvalidInput("holdings.asset_class", h.AssetClass, "unknown asset class")
		}
		if h.Amount.IsNegative() {
			return InvalidInput("holdings.amount", h.Amount, "holding cannot be negative")
		}
		held[h.AccountID] += h.Amount
	}
	for _, a := range r.Accounts {
		if held[a.ID] > a.CurrentBalance {
			return ConstraintViolation("holdings", a.ID, "holdings of %s exceed its balance %s", held[a.ID].Format(), a.CurrentBalance.Format())
		}
	}
	if r.Options.HighDragThreshold.IsNegative() {
		return InvalidInput("options.high_drag_threshold", r.Options.HighDragThreshold, "threshold cannot be negative")
	}
	if r.Options.MaterialityThreshold.IsNegative() {
		return InvalidInput("options.materiality_threshold", r.Options.MaterialityThreshold, "threshold cannot be negative")
	}
	return nil
}
