package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadHousehold(t *testing.T) {
	parser := NewInputParser()
	h, err := parser.LoadFromFile(filepath.Join("testdata", "household.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 2024, h.TaxYear)
	assert.Equal(t, domain.MarriedFilingJointly, h.Facts.FilingStatus)
	assert.Equal(t, money.FromDollars(100000), h.Facts.CurrentIncome)
	assert.Equal(t, domain.HSAFamily, h.Facts.HSACoverage)
	require.Len(t, h.Accounts, 4)

	k := h.Accounts[0]
	assert.Equal(t, domain.Traditional401k, k.Type)
	assert.Equal(t, 45, k.OwnerAge, "owner age defaults to the current age")
	require.NotNil(t, k.EmployerMatch)
	assert.True(t, k.EmployerMatch.Rate.Equal(decimal.NewFromFloat(0.5)))

	assert.Len(t, h.Holdings, 4)
	assert.Equal(t, 45, h.ProjectionYears())
	require.NotNil(t, h.Assumptions.Projection.Withdrawals)
	assert.Equal(t, "bracket_fill", h.Assumptions.Projection.Withdrawals.Strategy)

	roth, err := h.RothRequest()
	require.NoError(t, err)
	assert.Equal(t, money.FromDollars(250000), roth.TraditionalBalance)
	assert.Equal(t, 5, roth.LadderYears)
}

func TestLoadHouseholdInvalid(t *testing.T) {
	parser := NewInputParser()
	_, err := parser.LoadFromFile(filepath.Join("testdata", "invalid_household.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "retirement_age")
}

func TestLoadHouseholdMissingFile(t *testing.T) {
	_, err := NewInputParser().LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read file")
}

func TestValidateHousehold(t *testing.T) {
	base := func() []byte {
		data, err := os.ReadFile(filepath.Join("testdata", "household.yaml"))
		require.NoError(t, err)
		return data
	}

	tests := []struct {
		name    string
		mutate  func(h *domain.Household)
		wantErr string
	}{
		{
			name:    "missing tax year",
			mutate:  func(h *domain.Household) { h.TaxYear = 0 },
			wantErr: "tax year is required",
		},
		{
			name:    "no accounts",
			mutate:  func(h *domain.Household) { h.Accounts = nil },
			wantErr: "at least one account",
		},
		{
			name: "unknown withdrawal strategy",
			mutate: func(h *domain.Household) {
				h.Assumptions.Projection.Withdrawals.Strategy = "yolo"
			},
			wantErr: "unknown withdrawal strategy",
		},
		{
			name:    "roth account is not deferred",
			mutate:  func(h *domain.Household) { h.Assumptions.Roth.AccountID = "roth-ira" },
			wantErr: "not tax-deferred",
		},
		{
			name: "holding in unknown account",
			mutate: func(h *domain.Household) {
				h.Holdings = append(h.Holdings, domain.Holding{AccountID: "ghost", AssetClass: "reits", Amount: 1})
			},
			wantErr: "unknown account",
		},
	}

	parser := NewInputParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := parser.Parse(base())
			require.NoError(t, err)
			tt.mutate(h)
			err = parser.ValidateHousehold(h)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
