package calculation

import (
	"errors"
	"testing"

	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allocationAccounts() []domain.Account {
	return []domain.Account{
		{
			ID: "work-401k", Type: domain.Traditional401k, OwnerAge: 45,
			EmployerMatch: &domain.EmployerMatch{Rate: rate("0.5"), UpToPercentOfPay: rate("0.06")},
		},
		{ID: "roth-ira", Type: domain.RothIRA, OwnerAge: 45},
		{ID: "hsa", Type: domain.HSA, OwnerAge: 45},
		{ID: "brokerage", Type: domain.TaxableAccount, OwnerAge: 45},
	}
}

func TestAllocate_MatchFirstThenBenefit(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Allocate(domain.AllocationRequest{
		TaxYear:       2024,
		Accounts:      allocationAccounts(),
		AvailableCash: dollars(20000),
		Facts:         workingFacts(),
	})
	require.NoError(t, err)

	// 6,000 for the match, then the 401k at 12% ahead of the HSA at 5%
	assert.Equal(t, dollars(20000), result.AllocationByAccount["work-401k"])
	assert.Equal(t, money.Zero, result.AllocationByAccount["hsa"])
	assert.Equal(t, money.Zero, result.AllocationByAccount["roth-ira"])
	assert.Equal(t, money.Zero, result.AllocationByAccount["brokerage"])
	assert.Equal(t, dollars(20000), result.TotalContribution)
	assert.Equal(t, dollars(3000), result.EmployerMatchCaptured)
	assert.Equal(t, dollars(3000), result.EmployerMatchByAccount["work-401k"])
	assert.Equal(t, money.Zero, result.Unallocated)
	// 8,032 on 70,800 less 5,632 on 50,800
	assert.Equal(t, dollars(2400), result.TaxSavings)
	assert.NotEmpty(t, result.Explanation)
	assert.Contains(t, result.Explanation[0], "employer match")
}

func TestAllocate_OverflowsIntoRothThenTaxable(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Allocate(domain.AllocationRequest{
		TaxYear:       2024,
		Accounts:      allocationAccounts(),
		AvailableCash: dollars(100000),
		Facts:         workingFacts(),
	})
	require.NoError(t, err)

	assert.Equal(t, dollars(23000), result.AllocationByAccount["work-401k"])
	assert.Equal(t, dollars(4150), result.AllocationByAccount["hsa"])
	assert.Equal(t, dollars(7000), result.AllocationByAccount["roth-ira"], "smaller room wins the zero-benefit tie")
	assert.Equal(t, dollars(65850), result.AllocationByAccount["brokerage"], "taxable has no limit")
	assert.Equal(t, dollars(100000), result.TotalContribution)
	assert.Equal(t, money.Zero, result.Unallocated)
}

func TestAllocate_TaxDeferredRanksAheadOfHSA(t *testing.T) {
	engine := newTestEngine(t)
	req := domain.AllocationRequest{
		TaxYear: 2024,
		Accounts: []domain.Account{
			{ID: "k401", Type: domain.Traditional401k, OwnerAge: 45},
			{ID: "hsa", Type: domain.HSA, OwnerAge: 45},
		},
		AvailableCash: dollars(3000),
		Facts:         workingFacts(),
	}

	result, err := engine.Allocate(req)
	require.NoError(t, err)
	// 12% marginal beats the 5% HSA weight
	assert.Equal(t, dollars(3000), result.AllocationByAccount["k401"])
	assert.Equal(t, money.Zero, result.AllocationByAccount["hsa"])

	engine.TripleAdvantageWeight = rate("0.20")
	result, err = engine.Allocate(req)
	require.NoError(t, err)
	assert.Equal(t, money.Zero, result.AllocationByAccount["k401"])
	assert.Equal(t, dollars(3000), result.AllocationByAccount["hsa"])
	assert.Equal(t, dollars(360), result.TaxSavings, "HSA contributions are still deductible")
}

func TestAllocate_ZeroCash(t *testing.T) {
	engine := newTestEngine(t)

	for _, cash := range []money.Money{0, -dollars(100)} {
		result, err := engine.Allocate(domain.AllocationRequest{
			TaxYear:       2024,
			Accounts:      allocationAccounts(),
			AvailableCash: cash,
			Facts:         workingFacts(),
		})
		require.NoError(t, err, "zero cash is a valid input")
		require.Len(t, result.AllocationByAccount, 4)
		for id, amount := range result.AllocationByAccount {
			assert.Equal(t, money.Zero, amount, id)
		}
		assert.Equal(t, money.Zero, result.TotalContribution)
		assert.Equal(t, money.Zero, result.TaxSavings)
		assert.Equal(t, money.Zero, result.EmployerMatchCaptured)
	}
}

func TestAllocate_FullAccountGetsNothing(t *testing.T) {
	engine := newTestEngine(t)
	accounts := []domain.Account{
		{ID: "full-ira", Type: domain.TraditionalIRA, OwnerAge: 45, ContributedYearToDate: dollars(7000)},
		{ID: "sep", Type: domain.SEPIRA, OwnerAge: 45},
	}

	for _, cash := range []money.Money{dollars(1000), dollars(50000), dollars(1000000)} {
		result, err := engine.Allocate(domain.AllocationRequest{
			TaxYear: 2024, Accounts: accounts, AvailableCash: cash, Facts: workingFacts(),
		})
		require.NoError(t, err)
		assert.Equal(t, money.Zero, result.AllocationByAccount["full-ira"], "cash %s", cash)
	}
}

func TestAllocate_SharedGroupLimit(t *testing.T) {
	engine := newTestEngine(t)
	accounts := []domain.Account{
		{ID: "trad-ira", Type: domain.TraditionalIRA, OwnerAge: 45},
		{ID: "roth-ira", Type: domain.RothIRA, OwnerAge: 45},
	}

	result, err := engine.Allocate(domain.AllocationRequest{
		TaxYear: 2024, Accounts: accounts, AvailableCash: dollars(10000), Facts: workingFacts(),
	})
	require.NoError(t, err)
	assert.Equal(t, dollars(7000), result.AllocationByAccount["trad-ira"])
	assert.Equal(t, money.Zero, result.AllocationByAccount["roth-ira"], "both IRAs share one limit")
	assert.Equal(t, dollars(3000), result.Unallocated)
}

func TestAllocate_RetiredAccountsAreSkipped(t *testing.T) {
	engine := newTestEngine(t)
	accounts := []domain.Account{
		{ID: "old-401k", Type: domain.Traditional401k, OwnerAge: 45, Retired: true},
		{ID: "roth-ira", Type: domain.RothIRA, OwnerAge: 45},
	}
	result, err := engine.Allocate(domain.AllocationRequest{
		TaxYear: 2024, Accounts: accounts, AvailableCash: dollars(5000), Facts: workingFacts(),
	})
	require.NoError(t, err)
	assert.Equal(t, money.Zero, result.AllocationByAccount["old-401k"])
	assert.Equal(t, dollars(5000), result.AllocationByAccount["roth-ira"])
}

func TestAllocate_NeverExceedsCashOrRoom(t *testing.T) {
	engine := newTestEngine(t)
	facts := workingFacts()
	// no brokerage account, so the rooms bind
	accounts := append(allocationAccounts()[:3],
		domain.Account{ID: "trad-ira", Type: domain.TraditionalIRA, OwnerAge: 45, ContributedYearToDate: dollars(1500)},
		domain.Account{ID: "roth-401k", Type: domain.Roth401k, OwnerAge: 45, ContributedYearToDate: dollars(2000)},
	)
	limits, err := engine.ResolveAll(accounts, facts, 2024)
	require.NoError(t, err)

	for cash := money.Zero; cash <= dollars(80000); cash += money.MustParse("3917.29") {
		result, err := engine.Allocate(domain.AllocationRequest{
			TaxYear: 2024, Accounts: accounts, Limits: limits, AvailableCash: cash, Facts: facts,
		})
		require.NoError(t, err)

		var total money.Money
		for id, amount := range result.AllocationByAccount {
			assert.LessOrEqual(t, amount, limits[id].AvailableRoom, "cash %s account %s", cash, id)
			total += amount
		}
		assert.LessOrEqual(t, total, cash)
		assert.Equal(t, total, result.TotalContribution)
		assert.Equal(t, cash-total, result.Unallocated)
		assert.LessOrEqual(t, result.AllocationByAccount["work-401k"]+result.AllocationByAccount["roth-401k"], dollars(21000),
			"elective deferral group has 23,000 less 2,000 already contributed")
	}
}

func TestAllocate_MissingLimitsIsInvalidInput(t *testing.T) {
	engine := newTestEngine(t)
	_, err := engine.Allocate(domain.AllocationRequest{
		TaxYear:       2024,
		Accounts:      allocationAccounts(),
		Limits:        map[string]domain.ContributionLimits{},
		AvailableCash: dollars(1000),
		Facts:         workingFacts(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Contains(t, err.Error(), "allocate")
}

func TestCheckAllocation_ReportsOffendingValue(t *testing.T) {
	accounts := []domain.Account{{ID: "ira", Type: domain.RothIRA}}
	limits := map[string]domain.ContributionLimits{"ira": {AvailableRoom: dollars(100)}}
	plan := allocation{byAccount: map[string]money.Money{"ira": dollars(150)}, total: dollars(150)}

	err := checkAllocation(accounts, limits, dollars(1000), plan)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConstraintViolation))
	assert.Contains(t, err.Error(), "150")

	err = checkAllocation(accounts, limits, dollars(50), allocation{byAccount: map[string]money.Money{"ira": dollars(60)}, total: dollars(60)})
	assert.True(t, errors.Is(err, domain.ErrConstraintViolation))
}
