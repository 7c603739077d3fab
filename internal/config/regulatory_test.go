package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultRegulatory(t *testing.T) {
	tables, err := NewRegulatoryLoader().LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, []int{2024, 2025}, tables.Years())

	rules, err := tables.ForYear(2024)
	require.NoError(t, err)
	assert.Equal(t, 2024, rules.Year)

	mfj, err := rules.FederalSchedule(domain.MarriedFilingJointly)
	require.NoError(t, err)
	require.Len(t, mfj.Brackets, 7)
	assert.Equal(t, money.FromDollars(23200), *mfj.Brackets[0].Upper)
	assert.Nil(t, mfj.Brackets[6].Upper)
	assert.True(t, mfj.TopRate().Equal(decimal.NewFromFloat(0.37)))

	assert.Equal(t, money.FromDollars(29200), rules.StandardDeduction(domain.MarriedFilingJointly, 45))

	hsa, err := rules.LimitRule(domain.HSA)
	require.NoError(t, err)
	assert.Equal(t, money.FromDollars(4150), hsa.Base)
	assert.Equal(t, money.FromDollars(8300), hsa.FamilyBase)
	assert.Equal(t, 55, hsa.CatchUpAge)

	assert.Equal(t, 73, rules.RMD.TriggerAge)
	assert.Equal(t, 120, rules.RMD.MaxAge())
	f, ok := rules.RMD.Factor(73)
	require.True(t, ok)
	assert.True(t, f.Equal(decimal.NewFromFloat(26.5)))

	_, pa, ok := rules.StateSchedule("PA", domain.Single)
	require.True(t, ok)
	assert.True(t, pa.ExemptsRetirementIncome)

	_, err = tables.ForYear(2026)
	assert.ErrorIs(t, err, domain.ErrUnknownStatutoryYear)
}

func TestLoad2025Regulatory(t *testing.T) {
	tables, err := NewRegulatoryLoader().LoadFromFile("")
	require.NoError(t, err)
	rules, err := tables.ForYear(2025)
	require.NoError(t, err)

	single, err := rules.FederalSchedule(domain.Single)
	require.NoError(t, err)
	assert.Equal(t, money.FromDollars(11925), *single.Brackets[0].Upper)
	assert.Equal(t, money.FromDollars(15750), rules.StandardDeduction(domain.Single, 40))
	assert.Equal(t, money.FromDollars(17750), rules.StandardDeduction(domain.Single, 66))

	k, err := rules.LimitRule(domain.Roth401k)
	require.NoError(t, err)
	assert.Equal(t, money.FromDollars(23500), k.Base)
	assert.Equal(t, "elective_deferral", k.Group)
}

func TestRegulatoryRejectsBrokenBrackets(t *testing.T) {
	broken := strings.Replace(string(defaultRegulatoryYAML),
		"- {rate: 0.12, lower: 23200, upper: 94300}",
		"- {rate: 0.12, lower: 23300, upper: 94300}", 1)
	require.NotEqual(t, string(defaultRegulatoryYAML), broken)

	_, err := NewRegulatoryLoader().Parse([]byte(broken))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "does not start where")
}

func TestRegulatoryFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regulatory.yaml")
	require.NoError(t, os.WriteFile(path, defaultRegulatoryYAML, 0o600))

	tables, err := NewRegulatoryLoader().LoadFromFile(path)
	require.NoError(t, err)
	assert.Len(t, tables.TaxYears, 2)

	_, err = NewRegulatoryLoader().Parse([]byte("tax_years: {}\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
