package compare

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rgehrsitz/rptax/internal/calculation"
	"github.com/rgehrsitz/rptax/internal/config"
	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCompareEngine(t *testing.T) *CompareEngine {
	t.Helper()
	tables, err := config.NewRegulatoryLoader().LoadDefault()
	require.NoError(t, err)
	return NewCompareEngine(calculation.NewEngine(tables))
}

func workingHousehold() *domain.Household {
	return &domain.Household{
		Name:    "Base Plan",
		TaxYear: 2024,
		Facts: domain.PersonalFacts{
			CurrentAge:     50,
			RetirementAge:  55,
			LifeExpectancy: 60,
			CurrentIncome:  money.FromDollars(100000),
			FilingStatus:   domain.MarriedFilingJointly,
		},
		Accounts: []domain.Account{
			{ID: "work-401k", Type: domain.Traditional401k, CurrentBalance: money.FromDollars(100000), OwnerAge: 50},
			{ID: "roth-ira", Type: domain.RothIRA, CurrentBalance: money.FromDollars(20000), OwnerAge: 50},
			{ID: "brokerage", Type: domain.TaxableAccount, CurrentBalance: money.FromDollars(50000), CostBasis: money.FromDollars(50000), OwnerAge: 50},
		},
		Assumptions: domain.Assumptions{
			AnnualContribution: money.FromDollars(10000),
			ExpectedReturn:     decimal.NewFromFloat(0.06),
		},
	}
}

func spendingHousehold(name string, spending int64) *domain.Household {
	return &domain.Household{
		Name:    name,
		TaxYear: 2024,
		Facts: domain.PersonalFacts{
			CurrentAge:     60,
			RetirementAge:  60,
			LifeExpectancy: 66,
			FilingStatus:   domain.MarriedFilingJointly,
		},
		Accounts: []domain.Account{
			{ID: "brokerage", Type: domain.TaxableAccount, CurrentBalance: money.FromDollars(100000), CostBasis: money.FromDollars(100000), OwnerAge: 60},
		},
		Assumptions: domain.Assumptions{
			Projection: domain.ProjectionOptions{AnnualSpending: money.FromDollars(spending)},
		},
	}
}

func TestCompare_TemplatesAndTransforms(t *testing.T) {
	ce := newTestCompareEngine(t)
	base := workingHousehold()

	compSet, err := ce.Compare(context.Background(), base, CompareOptions{
		Alternatives: []string{"work_1yr_longer", "set_return:rate=0.04"},
		ConfigPath:   "household.yaml",
	})
	require.NoError(t, err)

	assert.Equal(t, "Base Plan", compSet.BaseScenarioName)
	assert.Equal(t, 2024, compSet.TaxYear)
	assert.Equal(t, "household.yaml", compSet.ConfigPath)
	require.NotNil(t, compSet.BaseResult)
	require.Len(t, compSet.AlternativeResults, 2)

	baseResult := compSet.BaseResult
	assert.Equal(t, 55, baseResult.RetirementAge)
	assert.Equal(t, 10, baseResult.Years)
	assert.Nil(t, baseResult.DepletionAge)
	assert.Equal(t, money.FromDollars(40000), baseResult.LifetimeContributions, "four working years")

	longer := compSet.AlternativeResults[0]
	assert.Equal(t, "work_1yr_longer", longer.ScenarioName)
	assert.Equal(t, "Postpone retirement by 1 year", longer.Description)
	assert.Equal(t, 56, longer.RetirementAge)
	assert.Equal(t, money.FromDollars(50000), longer.LifetimeContributions)
	assert.True(t, longer.AfterTaxDiffFromBase.IsPositive())
	assert.True(t, longer.AfterTaxPctFromBase.IsPositive())

	lower := compSet.AlternativeResults[1]
	assert.Equal(t, "set_return:rate=0.04", lower.ScenarioName)
	assert.Equal(t, "Change expected return to 4.0%", lower.Description)
	assert.Less(t, lower.FinalNetWorth, baseResult.FinalNetWorth)
	assert.True(t, lower.NetWorthDiffFromBase.IsNegative())

	require.NotEmpty(t, compSet.Recommendations)
	assert.True(t, strings.HasPrefix(compSet.Recommendations[0], "Best Outcome: work_1yr_longer"))

	assert.Equal(t, 55, base.Facts.RetirementAge, "base household must not change")
}

func TestCompare_CombinedTransforms(t *testing.T) {
	ce := newTestCompareEngine(t)
	compSet, err := ce.Compare(context.Background(), workingHousehold(), CompareOptions{
		Alternatives: []string{"postpone_retirement:years=2+set_contribution:amount=15000"},
	})
	require.NoError(t, err)
	require.Len(t, compSet.AlternativeResults, 1)

	alt := compSet.AlternativeResults[0]
	assert.Equal(t, 57, alt.RetirementAge)
	assert.Equal(t, "Postpone retirement by 2 years; Contribute $15,000.00 a year", alt.Description)
	assert.Equal(t, money.FromDollars(90000), alt.LifetimeContributions)
}

func TestCompare_MaxContributionsTemplate(t *testing.T) {
	ce := newTestCompareEngine(t)
	base := workingHousehold()

	templates, err := ce.Templates(base)
	require.NoError(t, err)
	tmpl, ok := templates.Get("max_contributions")
	require.True(t, ok)

	out, err := tmpl.Transforms[0].Apply(base)
	require.NoError(t, err)
	// 23,000 + 7,500 catch-up, plus 7,000 + 1,000 catch-up
	assert.Equal(t, money.FromDollars(38500), out.Assumptions.AnnualContribution)
}

func TestCompare_Errors(t *testing.T) {
	ce := newTestCompareEngine(t)

	_, err := ce.Compare(context.Background(), nil, CompareOptions{})
	assert.Error(t, err)

	_, err = ce.Compare(context.Background(), workingHousehold(), CompareOptions{Alternatives: []string{"delay_social_security"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "neither a template nor a transform")

	_, err = ce.Compare(context.Background(), workingHousehold(), CompareOptions{Alternatives: []string{"set_retirement_age:age=70"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set_retirement_age validation failed")

	badYear := workingHousehold()
	badYear.TaxYear = 2019
	_, err = ce.Compare(context.Background(), badYear, CompareOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnknownStatutoryYear))
}

func TestCompare_Cancelled(t *testing.T) {
	ce := newTestCompareEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ce.Compare(ctx, workingHousehold(), CompareOptions{Alternatives: []string{"work_2yr_longer"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompareHouseholds_Depletion(t *testing.T) {
	ce := newTestCompareEngine(t)

	compSet, err := ce.CompareHouseholds(context.Background(),
		spendingHousehold("Spend 30k", 30000),
		[]*domain.Household{spendingHousehold("Spend 20k", 20000)})
	require.NoError(t, err)

	require.NotNil(t, compSet.BaseResult.DepletionAge)
	assert.Equal(t, 64, *compSet.BaseResult.DepletionAge)
	assert.Equal(t, money.FromDollars(100000), compSet.BaseResult.LifetimeWithdrawals)

	alt := compSet.AlternativeResults[0]
	require.NotNil(t, alt.DepletionAge)
	assert.Equal(t, 65, *alt.DepletionAge)
	assert.True(t, alt.TaxDiffFromBase.IsZero())

	assert.Equal(t, []string{"Best Longevity: Spend 20k keeps the portfolio funded 1 years longer"}, compSet.Recommendations)
}

func TestCompareHouseholds_Identical(t *testing.T) {
	ce := newTestCompareEngine(t)
	compSet, err := ce.CompareHouseholds(context.Background(), workingHousehold(), []*domain.Household{workingHousehold()})
	require.NoError(t, err)

	alt := compSet.AlternativeResults[0]
	assert.True(t, alt.AfterTaxDiffFromBase.IsZero())
	assert.True(t, alt.AfterTaxPctFromBase.IsZero())
	assert.Empty(t, compSet.Recommendations)

	_, err = ce.CompareHouseholds(context.Background(), workingHousehold(), []*domain.Household{nil})
	assert.Error(t, err)
}
