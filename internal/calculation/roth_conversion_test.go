package calculation

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rothRequest fills the 22% bracket for the working couple with $500,000 in
// traditional savings and a 24% expected rate in retirement.
func rothRequest() domain.RothRequest {
	return domain.RothRequest{
		TaxYear:                2024,
		Facts:                  workingFacts(),
		TraditionalBalance:     dollars(500000),
		CurrentMarginalRate:    rate("0.22"),
		ExpectedRetirementRate: rate("0.24"),
		ExpectedReturn:         rate("0.06"),
	}
}

func TestAnalyzeRoth_FillsTheTargetBracket(t *testing.T) {
	engine := newTestEngine(t)

	scenario, err := engine.AnalyzeRoth(rothRequest())
	require.NoError(t, err)

	// 201,050 top of the 22% bracket less 70,800 taxable income
	assert.Equal(t, dollars(130250), scenario.ConversionAmount)
	assert.Equal(t, dollars(70800), scenario.TaxableIncome)
	// 34,337 on 201,050 less 8,032 on 70,800
	assert.Equal(t, dollars(26305), scenario.TaxCost)
	assert.True(t, scenario.MarginalRateAfter.Equal(rate("0.22")))
	assert.Equal(t, 2024, scenario.ConversionYear)

	assert.True(t, scenario.LifetimeTaxSavings.IsPositive(), "paying 22%% now beats 24%% later, got %s", scenario.LifetimeTaxSavings)
	require.NotNil(t, scenario.BreakEvenAge)
	assert.Equal(t, domain.BreakEvenFound, scenario.BreakEven)
	assert.Equal(t, 46, *scenario.BreakEvenAge, "the rate gap covers the tax cost in the first year")

	require.Len(t, scenario.Ladder, 1)
	assert.Equal(t, scenario.ConversionAmount, scenario.Ladder[0].Amount)
	assert.Equal(t, scenario.TaxCost, scenario.LadderTaxCost)
	assert.NotEmpty(t, scenario.Explanation)
}

func TestAnalyzeRoth_ZeroConversion(t *testing.T) {
	engine := newTestEngine(t)
	req := rothRequest()
	zero := money.Zero
	req.ProposedAmount = &zero

	scenario, err := engine.AnalyzeRoth(req)
	require.NoError(t, err)
	assert.Equal(t, money.Zero, scenario.ConversionAmount)
	assert.Equal(t, money.Zero, scenario.TaxCost)
	assert.Equal(t, money.Zero, scenario.LifetimeTaxSavings)
	assert.Nil(t, scenario.BreakEvenAge)
	assert.Equal(t, domain.BreakEvenIndeterminate, scenario.BreakEven)

	data, err := json.Marshal(scenario)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"breakEvenAge":null`, "an absent break-even is null, never zero")
}

func TestAnalyzeRoth_ProposedMatchesBracketFill(t *testing.T) {
	engine := newTestEngine(t)

	filled, err := engine.AnalyzeRoth(rothRequest())
	require.NoError(t, err)

	req := rothRequest()
	amount := filled.ConversionAmount
	req.ProposedAmount = &amount
	proposed, err := engine.AnalyzeRoth(req)
	require.NoError(t, err)

	assert.Equal(t, filled.TaxCost, proposed.TaxCost)
	assert.Equal(t, filled.LifetimeTaxSavings, proposed.LifetimeTaxSavings)
	assert.Equal(t, filled.BreakEvenAge, proposed.BreakEvenAge)
}

func TestAnalyzeRoth_Bounds(t *testing.T) {
	engine := newTestEngine(t)

	t.Run("proposed above balance", func(t *testing.T) {
		req := rothRequest()
		tooMuch := dollars(600000)
		req.ProposedAmount = &tooMuch
		_, err := engine.AnalyzeRoth(req)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrConstraintViolation))
		assert.Contains(t, err.Error(), "roth")
	})

	t.Run("cap", func(t *testing.T) {
		req := rothRequest()
		limit := dollars(50000)
		req.Cap = &limit
		scenario, err := engine.AnalyzeRoth(req)
		require.NoError(t, err)
		assert.Equal(t, dollars(50000), scenario.ConversionAmount)
	})

	t.Run("balance below headroom", func(t *testing.T) {
		req := rothRequest()
		req.TraditionalBalance = dollars(40000)
		scenario, err := engine.AnalyzeRoth(req)
		require.NoError(t, err)
		assert.Equal(t, dollars(40000), scenario.ConversionAmount)
	})

	t.Run("current bracket when rate is zero", func(t *testing.T) {
		req := rothRequest()
		req.CurrentMarginalRate = rate("0")
		scenario, err := engine.AnalyzeRoth(req)
		require.NoError(t, err)
		assert.Equal(t, dollars(23500), scenario.ConversionAmount, "fills the rest of the 12 percent bracket")
		assert.Equal(t, dollars(2820), scenario.TaxCost)
	})

	t.Run("invalid rate", func(t *testing.T) {
		req := rothRequest()
		req.ExpectedRetirementRate = rate("1.5")
		_, err := engine.AnalyzeRoth(req)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})
}

func TestAnalyzeRoth_Ladder(t *testing.T) {
	engine := newTestEngine(t)
	req := rothRequest()
	req.LadderYears = 3

	scenario, err := engine.AnalyzeRoth(req)
	require.NoError(t, err)
	require.Len(t, scenario.Ladder, 3)

	wantRemaining := []money.Money{
		money.MustParse("369750.00"),
		money.MustParse("261685.00"),
		money.MustParse("147136.10"),
	}
	for i, step := range scenario.Ladder {
		assert.Equal(t, 2024+i, step.Year)
		assert.Equal(t, 45+i, step.Age)
		assert.Equal(t, dollars(130250), step.Amount)
		assert.Equal(t, dollars(26305), step.TaxCost)
		assert.Equal(t, wantRemaining[i], step.RemainingBalance, "year %d", i)
	}
	assert.Equal(t, dollars(3*26305), scenario.LadderTaxCost)
	assert.Equal(t, dollars(3*130250), scenario.LadderTotal())
}

func TestAnalyzeRoth_LadderRefindsBracketAfterRetirement(t *testing.T) {
	engine := newTestEngine(t)
	req := rothRequest()
	req.Facts.RetirementAge = 46
	req.Facts.RetirementIncome = dollars(40000)
	req.CurrentMarginalRate = rate("0")
	req.ExpectedReturn = rate("0")
	req.LadderYears = 2

	scenario, err := engine.AnalyzeRoth(req)
	require.NoError(t, err)
	require.Len(t, scenario.Ladder, 2)

	working, retired := scenario.Ladder[0], scenario.Ladder[1]
	// 94,300 top of the 12% bracket less 70,800 of wages
	assert.Equal(t, dollars(70800), working.TaxableIncomeBefore)
	assert.Equal(t, dollars(23500), working.Amount)
	assert.Equal(t, dollars(2820), working.TaxCost)

	// 40,000 of retirement income sits in the 10% bracket: 23,200 less 10,800
	assert.Equal(t, 46, retired.Age)
	assert.Equal(t, dollars(10800), retired.TaxableIncomeBefore)
	assert.Equal(t, dollars(12400), retired.Amount)
	assert.Equal(t, dollars(1240), retired.TaxCost)
	assert.Equal(t, dollars(464100), retired.RemainingBalance)

	fixed := req
	fixed.CurrentMarginalRate = rate("0.12")
	scenario, err = engine.AnalyzeRoth(fixed)
	require.NoError(t, err)
	assert.Equal(t, dollars(83500), scenario.Ladder[1].Amount, "a fixed rate fills that bracket every year")
}

func TestAnalyzeRoth_LadderStopsWhenBalanceRunsOut(t *testing.T) {
	engine := newTestEngine(t)
	req := rothRequest()
	req.TraditionalBalance = dollars(200000)
	req.ExpectedReturn = rate("0")
	req.LadderYears = 3

	scenario, err := engine.AnalyzeRoth(req)
	require.NoError(t, err)
	require.Len(t, scenario.Ladder, 3)
	assert.Equal(t, dollars(130250), scenario.Ladder[0].Amount)
	assert.Equal(t, dollars(69750), scenario.Ladder[1].Amount)
	assert.Equal(t, money.Zero, scenario.Ladder[2].Amount)
	assert.Equal(t, money.Zero, scenario.Ladder[2].RemainingBalance)
}
