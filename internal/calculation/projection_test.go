package calculation

import (
	"errors"
	"testing"

	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func retiredFacts(age int) domain.PersonalFacts {
	return domain.PersonalFacts{
		CurrentAge:     age,
		RetirementAge:  age,
		LifeExpectancy: 95,
		FilingStatus:   domain.MarriedFilingJointly,
	}
}

func project(t *testing.T, engine *Engine, req domain.ProjectionRequest) []domain.ProjectionYear {
	t.Helper()
	p, err := engine.Project(req)
	require.NoError(t, err)
	rows := p.Collect()
	require.Len(t, rows, p.Len())
	return rows
}

func TestProject_ZeroYearsIsStartingState(t *testing.T) {
	engine := newTestEngine(t)
	rows := project(t, engine, domain.ProjectionRequest{
		TaxYear:        2024,
		Accounts:       []domain.Account{{ID: "ira", Type: domain.TraditionalIRA, CurrentBalance: dollars(50000), OwnerAge: 45}},
		Facts:          workingFacts(),
		ExpectedReturn: rate("0.07"),
	})
	require.Len(t, rows, 1)
	assert.Equal(t, 2024, rows[0].Year)
	assert.Equal(t, 45, rows[0].Age)
	assert.Equal(t, dollars(50000), rows[0].Balances["ira"])
	assert.Equal(t, money.Zero, rows[0].TotalContributions)
	assert.Equal(t, money.Zero, rows[0].TaxesPaid)
}

func TestProject_GrowthBeforeContribution(t *testing.T) {
	engine := newTestEngine(t)
	rows := project(t, engine, domain.ProjectionRequest{
		TaxYear:            2024,
		Accounts:           []domain.Account{{ID: "roth", Type: domain.RothIRA, CurrentBalance: dollars(10000), OwnerAge: 45}},
		Facts:              workingFacts(),
		AnnualContribution: dollars(1000),
		ExpectedReturn:     rate("0.10"),
		Years:              1,
	})
	require.Len(t, rows, 2)
	assert.Equal(t, dollars(12000), rows[1].Balances["roth"], "10,000 grows 10 percent then receives 1,000")
	assert.Equal(t, dollars(1000), rows[1].Contributions["roth"])
	assert.Equal(t, dollars(1000), rows[1].TotalContributions)
	assert.Equal(t, dollars(70800), rows[1].TaxableIncome, "roth contributions are not deductible")
	assert.Equal(t, 2025, rows[1].Year)
	assert.Equal(t, 46, rows[1].Age)
}

func TestProject_EmployerMatchAndDeduction(t *testing.T) {
	engine := newTestEngine(t)
	accounts := allocationAccounts()
	rows := project(t, engine, domain.ProjectionRequest{
		TaxYear:            2024,
		Accounts:           accounts,
		Facts:              workingFacts(),
		AnnualContribution: dollars(20000),
		ExpectedReturn:     decimal.Zero,
		Years:              2,
	})

	for _, row := range rows[1:] {
		assert.Equal(t, dollars(20000), row.Contributions["work-401k"])
		assert.Equal(t, money.Zero, row.Contributions["hsa"])
		assert.Equal(t, dollars(3000), row.EmployerMatch)
		assert.Equal(t, dollars(50800), row.TaxableIncome, "100,000 less 20,000 deductible less 29,200")
	}
	assert.Equal(t, dollars(2*(20000+3000)), rows[2].Balances["work-401k"])
}

func TestProject_RequiredMinimumDistribution(t *testing.T) {
	engine := newTestEngine(t)
	rows := project(t, engine, domain.ProjectionRequest{
		TaxYear:        2024,
		Accounts:       []domain.Account{{ID: "ira", Type: domain.TraditionalIRA, CurrentBalance: dollars(265000), OwnerAge: 72}},
		Facts:          retiredFacts(72),
		ExpectedReturn: decimal.Zero,
		Years:          1,
	})

	assert.Equal(t, money.Zero, rows[0].RMD, "72 is below the trigger age")
	assert.Equal(t, 73, rows[1].Age)
	assert.Equal(t, dollars(10000), rows[1].RMD, "265,000 / 26.5")
	assert.Equal(t, dollars(10000), rows[1].RMDByAccount["ira"])
	assert.Equal(t, dollars(255000), rows[1].Balances["ira"])
	assert.Equal(t, money.Zero, rows[1].TaxableIncome, "covered by the 30,750 senior deduction")
	assert.Equal(t, money.Zero, rows[1].TaxesPaid)
}

func TestProject_RMDTableExhausted(t *testing.T) {
	engine := newTestEngine(t)
	facts := retiredFacts(115)
	facts.LifeExpectancy = 125
	_, err := engine.Project(domain.ProjectionRequest{
		TaxYear:        2024,
		Accounts:       []domain.Account{{ID: "ira", Type: domain.TraditionalIRA, CurrentBalance: dollars(100000), OwnerAge: 115}},
		Facts:          facts,
		ExpectedReturn: rate("0.03"),
		Years:          10,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnknownStatutoryYear))
	assert.Contains(t, err.Error(), "project")
}

func TestProject_InvalidRequests(t *testing.T) {
	engine := newTestEngine(t)
	base := func() domain.ProjectionRequest {
		return domain.ProjectionRequest{
			TaxYear:        2024,
			Accounts:       []domain.Account{{ID: "ira", Type: domain.TraditionalIRA, OwnerAge: 45}, {ID: "roth", Type: domain.RothIRA, OwnerAge: 45}},
			Facts:          workingFacts(),
			ExpectedReturn: rate("0.05"),
			Years:          5,
		}
	}

	tests := []struct {
		name   string
		modify func(*domain.ProjectionRequest)
	}{
		{"negative years", func(r *domain.ProjectionRequest) { r.Years = -1 }},
		{"malformed filing status", func(r *domain.ProjectionRequest) { r.Facts.FilingStatus = "widowed" }},
		{"negative contribution", func(r *domain.ProjectionRequest) { r.AnnualContribution = -dollars(1) }},
		{"total loss return", func(r *domain.ProjectionRequest) { r.ExpectedReturn = rate("-1") }},
		{"conversion into traditional", func(r *domain.ProjectionRequest) {
			r.Options.Conversions = []domain.ScheduledConversion{{YearOffset: 1, FromAccount: "roth", ToAccount: "ira", Amount: dollars(1)}}
		}},
		{"conversion past horizon", func(r *domain.ProjectionRequest) {
			r.Options.Conversions = []domain.ScheduledConversion{{YearOffset: 6, FromAccount: "ira", ToAccount: "roth", Amount: dollars(1)}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			tt.modify(&req)
			_, err := engine.Project(req)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput), "got %v", err)
		})
	}

	req := base()
	req.TaxYear = 2031
	_, err := engine.Project(req)
	assert.True(t, errors.Is(err, domain.ErrUnknownStatutoryYear))
}

func TestProject_ScheduledConversion(t *testing.T) {
	engine := newTestEngine(t)
	rows := project(t, engine, domain.ProjectionRequest{
		TaxYear: 2024,
		Accounts: []domain.Account{
			{ID: "ira", Type: domain.TraditionalIRA, CurrentBalance: dollars(100000), OwnerAge: 45},
			{ID: "roth", Type: domain.RothIRA, OwnerAge: 45},
		},
		Facts:          workingFacts(),
		ExpectedReturn: decimal.Zero,
		Years:          1,
		Options: domain.ProjectionOptions{
			Conversions: []domain.ScheduledConversion{{YearOffset: 1, FromAccount: "ira", ToAccount: "roth", Amount: dollars(30000)}},
		},
	})

	assert.Equal(t, dollars(70000), rows[1].Balances["ira"])
	assert.Equal(t, dollars(30000), rows[1].Balances["roth"])
	assert.Equal(t, dollars(30000), rows[1].Conversions)
	assert.Equal(t, dollars(100800), rows[1].TaxableIncome, "the conversion is ordinary income")
	assert.Equal(t, rows[0].NetWorth, rows[1].NetWorth)
}

func TestProject_RetirementWithdrawals(t *testing.T) {
	engine := newTestEngine(t)
	rows := project(t, engine, domain.ProjectionRequest{
		TaxYear: 2024,
		Accounts: []domain.Account{
			{ID: "brokerage", Type: domain.TaxableAccount, CurrentBalance: dollars(100000), CostBasis: dollars(100000), OwnerAge: 65},
			{ID: "ira", Type: domain.TraditionalIRA, CurrentBalance: dollars(200000), OwnerAge: 65},
		},
		Facts:          retiredFacts(65),
		ExpectedReturn: decimal.Zero,
		Years:          1,
		Options: domain.ProjectionOptions{
			AnnualSpending: dollars(40000),
			Withdrawals:    &domain.WithdrawalSequencingConfig{Strategy: "standard"},
		},
	})

	assert.Equal(t, dollars(60000), rows[1].Balances["brokerage"], "standard order spends taxable first")
	assert.Equal(t, dollars(200000), rows[1].Balances["ira"])
	assert.Equal(t, dollars(40000), rows[1].Withdrawals["brokerage"])
	assert.Equal(t, dollars(40000), rows[1].TotalWithdrawals)
	assert.Equal(t, money.Zero, rows[1].TaxesPaid, "basis comes back tax free")
}

func TestProject_TraditionalWithdrawalsAreTaxed(t *testing.T) {
	engine := newTestEngine(t)
	rows := project(t, engine, domain.ProjectionRequest{
		TaxYear:        2024,
		Accounts:       []domain.Account{{ID: "ira", Type: domain.TraditionalIRA, CurrentBalance: dollars(500000), OwnerAge: 65}},
		Facts:          retiredFacts(65),
		ExpectedReturn: decimal.Zero,
		Years:          1,
		Options:        domain.ProjectionOptions{AnnualSpending: dollars(80000)},
	})

	assert.Equal(t, dollars(420000), rows[1].Balances["ira"])
	// 80,000 less the 30,750 deduction at 66
	assert.Equal(t, dollars(49250), rows[1].TaxableIncome)
	assert.True(t, rows[1].TaxesPaid.IsPositive())
}

func TestProject_AfterTaxValue(t *testing.T) {
	engine := newTestEngine(t)
	retirementRate := rate("0.25")
	rows := project(t, engine, domain.ProjectionRequest{
		TaxYear: 2024,
		Accounts: []domain.Account{
			{ID: "ira", Type: domain.TraditionalIRA, CurrentBalance: dollars(100000), OwnerAge: 45},
			{ID: "roth", Type: domain.RothIRA, CurrentBalance: dollars(50000), OwnerAge: 45},
		},
		Facts:          workingFacts(),
		ExpectedReturn: rate("0.05"),
		Options:        domain.ProjectionOptions{RetirementTaxRate: &retirementRate},
	})
	assert.Equal(t, dollars(150000), rows[0].NetWorth)
	assert.Equal(t, dollars(125000), rows[0].AfterTaxValue)
}

func TestProject_ReinvestedDistributions(t *testing.T) {
	engine := newTestEngine(t)
	p, err := engine.Project(domain.ProjectionRequest{
		TaxYear:        2024,
		Accounts:       []domain.Account{{ID: "ira", Type: domain.TraditionalIRA, CurrentBalance: dollars(265000), OwnerAge: 72}},
		Facts:          retiredFacts(72),
		ExpectedReturn: decimal.Zero,
		Years:          1,
		Options:        domain.ProjectionOptions{ReinvestDistributions: true},
	})
	require.NoError(t, err)
	rows := p.Collect()

	balance, ok := rows[0].Balances[ReinvestAccountID]
	require.True(t, ok, "a taxable account is added to receive distributions")
	assert.Equal(t, money.Zero, balance)
	assert.Equal(t, dollars(10000), rows[1].Balances[ReinvestAccountID], "untaxed RMD is reinvested in full")
	assert.Equal(t, dollars(265000), rows[1].NetWorth)
	assert.Len(t, p.Request().Accounts, 1, "the request itself is not modified")
}

func TestProject_ReplayAndEarlyStop(t *testing.T) {
	engine := newTestEngine(t)
	p, err := engine.Project(domain.ProjectionRequest{
		TaxYear:            2024,
		Accounts:           allocationAccounts(),
		Facts:              workingFacts(),
		AnnualContribution: dollars(25000),
		ExpectedReturn:     rate("0.06"),
		Years:              30,
		Options:            domain.ProjectionOptions{TaxDrag: rate("0.01"), AnnualSpending: dollars(60000)},
	})
	require.NoError(t, err)

	first := p.Collect()
	second := p.Collect()
	assert.Equal(t, first, second, "iterating twice yields identical rows")
	assert.Equal(t, first[30], p.Final())

	first[1].Balances["hsa"] = 0
	assert.NotEqual(t, money.Zero, p.Collect()[1].Balances["hsa"], "emitted rows are snapshots")

	count := 0
	for y := range p.Years() {
		count++
		if y.Age == 47 {
			break
		}
	}
	assert.Equal(t, 3, count)

	for _, row := range second {
		for id, b := range row.Balances {
			assert.False(t, b.IsNegative(), "age %d account %s", row.Age, id)
		}
	}
}
