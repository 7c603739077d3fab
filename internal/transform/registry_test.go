package transform

import (
	"testing"

	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformRegistry_List(t *testing.T) {
	registry := NewTransformRegistry()
	names := registry.List()

	assert.Len(t, names, 13)
	assert.Contains(t, names, "postpone_retirement")
	assert.Contains(t, names, "schedule_roth_conversion")
	assert.IsIncreasing(t, names)
}

func TestTransformRegistry_Create(t *testing.T) {
	registry := NewTransformRegistry()

	tr, err := registry.Create("set_income", map[string]string{"amount": "120000"})
	require.NoError(t, err)
	si, ok := tr.(*SetIncome)
	require.True(t, ok)
	assert.Equal(t, money.FromDollars(120000), si.Amount)

	_, err = registry.Create("delay_social_security", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown transform")
}

func TestParseTransformSpec(t *testing.T) {
	registry := NewTransformRegistry()

	tests := []struct {
		name  string
		spec  string
		check func(t *testing.T, tr HouseholdTransform)
	}{
		{
			name: "postpone",
			spec: "postpone_retirement:years=2",
			check: func(t *testing.T, tr HouseholdTransform) {
				assert.Equal(t, &PostponeRetirement{Years: 2}, tr)
			},
		},
		{
			name: "spaces around params",
			spec: " set_return : rate = 0.05 ",
			check: func(t *testing.T, tr HouseholdTransform) {
				sr := tr.(*SetExpectedReturn)
				assert.True(t, sr.Rate.Equal(decimal.NewFromFloat(0.05)))
			},
		},
		{
			name: "relocate upper-cases the state",
			spec: "relocate:state=fl",
			check: func(t *testing.T, tr HouseholdTransform) {
				assert.Equal(t, "FL", tr.(*RelocateState).State)
			},
		},
		{
			name: "withdrawals with bracket",
			spec: "set_withdrawals:strategy=bracket_fill,bracket=0.24",
			check: func(t *testing.T, tr HouseholdTransform) {
				sw := tr.(*SetWithdrawalStrategy)
				assert.Equal(t, "bracket_fill", sw.Strategy)
				require.NotNil(t, sw.TargetBracketRate)
				assert.True(t, sw.TargetBracketRate.Equal(decimal.NewFromFloat(0.24)))
			},
		},
		{
			name: "conversion defaults",
			spec: "schedule_roth_conversion:amount=25000",
			check: func(t *testing.T, tr HouseholdTransform) {
				sc := tr.(*ScheduleRothConversions)
				assert.Equal(t, money.FromDollars(25000), sc.Amount)
				assert.Equal(t, 1, sc.StartYear)
				assert.Equal(t, 1, sc.Years)
				assert.Empty(t, sc.FromAccount)
			},
		},
		{
			name: "conversion with accounts",
			spec: "schedule_roth_conversion:amount=25000.50,from=work-401k,to=roth-ira,start=3,years=4",
			check: func(t *testing.T, tr HouseholdTransform) {
				sc := tr.(*ScheduleRothConversions)
				assert.Equal(t, money.FromCents(2500050), sc.Amount)
				assert.Equal(t, "work-401k", sc.FromAccount)
				assert.Equal(t, "roth-ira", sc.ToAccount)
				assert.Equal(t, 3, sc.StartYear)
				assert.Equal(t, 4, sc.Years)
			},
		},
		{
			name: "no parameters",
			spec: "remove_roth_conversion",
			check: func(t *testing.T, tr HouseholdTransform) {
				assert.IsType(t, &RemoveRothConversions{}, tr)
			},
		},
		{
			name: "ladder with cap",
			spec: "set_roth_ladder:years=5,cap=75000",
			check: func(t *testing.T, tr HouseholdTransform) {
				rl := tr.(*SetRothLadder)
				assert.Equal(t, 5, rl.Years)
				require.NotNil(t, rl.Cap)
				assert.Equal(t, money.FromDollars(75000), *rl.Cap)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := registry.ParseTransformSpec(tt.spec)
			require.NoError(t, err)
			tt.check(t, tr)
		})
	}
}

func TestParseTransformSpec_Errors(t *testing.T) {
	registry := NewTransformRegistry()

	tests := []struct {
		name    string
		spec    string
		message string
	}{
		{"missing value", "postpone_retirement:years", "expected 'key=value'"},
		{"missing parameter", "postpone_retirement", "requires 'years' parameter"},
		{"bad integer", "postpone_retirement:years=two", "invalid years value"},
		{"bad money", "set_spending:amount=lots", "invalid amount value"},
		{"bad rate", "set_return:rate=high", "invalid rate value"},
		{"unknown", "retire_on_mars:years=1", "unknown transform"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.ParseTransformSpec(tt.spec)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}
