package config

import (
	"fmt"
	"os"

	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// InputParser handles parsing of household input files
type InputParser struct{}

// NewInputParser creates a new input parser
func NewInputParser() *InputParser {
	return &InputParser{}
}

// LoadFromFile loads a household from a YAML or JSON file
func (ip *InputParser) LoadFromFile(filename string) (*domain.Household, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return ip.Parse(data)
}

// Parse decodes and validates a household document.
func (ip *InputParser) Parse(data []byte) (*domain.Household, error) {
	var household domain.Household
	if err := yaml.Unmarshal(data, &household); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := ip.ValidateHousehold(&household); err != nil {
		return nil, fmt.Errorf("household validation failed: %w", err)
	}

	return &household, nil
}

// ValidateHousehold validates the loaded household
func (ip *InputParser) ValidateHousehold(h *domain.Household) error {
	if h.TaxYear == 0 {
		return domain.InvalidInput("tax_year", h.TaxYear, "tax year is required")
	}
	if err := h.Facts.Validate(); err != nil {
		return fmt.Errorf("facts: %w", err)
	}
	if err := ip.validateAccounts(h); err != nil {
		return fmt.Errorf("accounts: %w", err)
	}
	if err := ip.validateAssumptions(h); err != nil {
		return fmt.Errorf("assumptions: %w", err)
	}
	if len(h.Holdings) > 0 || len(h.AssetClasses) > 0 {
		if err := h.LocationRequest().Validate(); err != nil {
			return fmt.Errorf("holdings: %w", err)
		}
	}
	return nil
}

// validateAccounts checks each account and fills owner ages from the facts
func (ip *InputParser) validateAccounts(h *domain.Household) error {
	if len(h.Accounts) == 0 {
		return domain.InvalidInput("accounts", 0, "at least one account is required")
	}
	for i := range h.Accounts {
		if h.Accounts[i].OwnerAge == 0 {
			h.Accounts[i].OwnerAge = h.Facts.CurrentAge
		}
	}
	return domain.ValidateAccounts(h.Accounts)
}

// validateAssumptions checks ranges of the operation parameters
func (ip *InputParser) validateAssumptions(h *domain.Household) error {
	a := h.Assumptions
	if a.AvailableCash.IsNegative() {
		return domain.InvalidInput("available_cash", a.AvailableCash, "cash cannot be negative")
	}
	if a.ExpectedReturn.LessThan(decimal.NewFromFloat(-0.5)) || a.ExpectedReturn.GreaterThan(decimal.NewFromFloat(0.5)) {
		return domain.InvalidInput("expected_return", a.ExpectedReturn, "expected return must be between -50%% and 50%%")
	}
	if a.Years != nil && *a.Years < 0 {
		return domain.InvalidInput("years", *a.Years, "years cannot be negative")
	}
	if w := a.Projection.Withdrawals; w != nil {
		switch w.Strategy {
		case "", "standard", "tax_efficient", "bracket_fill", "custom":
		default:
			return domain.InvalidInput("projection.withdrawals.strategy", w.Strategy, "unknown withdrawal strategy")
		}
	}
	if err := h.ProjectionRequest().Validate(); err != nil {
		return fmt.Errorf("projection: %w", err)
	}
	if _, err := h.RothRequest(); err != nil {
		return err
	}
	return nil
}
