package calculation

import (
	"errors"
	"testing"

	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func locationRequest() domain.LocationRequest {
	return domain.LocationRequest{
		Accounts: []domain.Account{
			{ID: "brokerage", Type: domain.TaxableAccount, CurrentBalance: dollars(100000), OwnerAge: 45},
			{ID: "ira", Type: domain.TraditionalIRA, CurrentBalance: dollars(50000), OwnerAge: 45},
			{ID: "roth", Type: domain.RothIRA, CurrentBalance: dollars(20000), OwnerAge: 45},
			{ID: "college", Type: domain.Education529, CurrentBalance: dollars(90000), OwnerAge: 45},
		},
		AssetClasses: []domain.AssetClass{
			{Name: "bonds", TaxDragRate: rate("0.012")},
			{Name: "reit", TaxDragRate: rate("0.015")},
			{Name: "us_equity", TaxDragRate: rate("0.002")},
		},
		Holdings: []domain.Holding{
			{AccountID: "brokerage", AssetClass: "bonds", Amount: dollars(40000)},
			{AccountID: "brokerage", AssetClass: "reit", Amount: dollars(10000)},
			{AccountID: "brokerage", AssetClass: "us_equity", Amount: dollars(50000)},
			{AccountID: "ira", AssetClass: "us_equity", Amount: dollars(50000)},
			{AccountID: "roth", AssetClass: "us_equity", Amount: dollars(20000)},
		},
		Options: domain.DefaultLocationOptions(),
	}
}

func TestOptimizeLocation_MovesHighDragHoldings(t *testing.T) {
	engine := newTestEngine(t)

	recs, err := engine.OptimizeLocation(locationRequest())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "bonds", recs[0].AssetClass)
	assert.Equal(t, "brokerage", recs[0].FromAccount)
	assert.Equal(t, "ira", recs[0].ToAccount, "the IRA has the most swap room")
	assert.Equal(t, dollars(40000), recs[0].Amount)
	assert.Equal(t, dollars(480), recs[0].EstimatedTaxSavings)

	assert.Equal(t, "reit", recs[1].AssetClass)
	assert.Equal(t, "roth", recs[1].ToAccount, "the IRA room left after bonds is smaller")
	assert.Equal(t, dollars(10000), recs[1].Amount)
	assert.Equal(t, dollars(150), recs[1].EstimatedTaxSavings)

	for _, r := range recs {
		assert.NotEqual(t, "college", r.ToAccount, "education savings never receive moves")
		assert.NotEmpty(t, r.Rationale)
	}
}

func TestOptimizeLocation_Thresholds(t *testing.T) {
	engine := newTestEngine(t)

	req := locationRequest()
	req.Options.MaterialityThreshold = dollars(15000)
	recs, err := engine.OptimizeLocation(req)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "bonds", recs[0].AssetClass)

	req = locationRequest()
	req.Options.HighDragThreshold = rate("0.02")
	recs, err = engine.OptimizeLocation(req)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestOptimizeLocation_PartialMove(t *testing.T) {
	engine := newTestEngine(t)
	req := locationRequest()
	req.Accounts = req.Accounts[:2]
	req.Holdings = []domain.Holding{
		{AccountID: "brokerage", AssetClass: "bonds", Amount: dollars(70000)},
		{AccountID: "ira", AssetClass: "us_equity", Amount: dollars(50000)},
	}

	recs, err := engine.OptimizeLocation(req)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, dollars(50000), recs[0].Amount, "capped at the IRA's swap room")
	assert.Equal(t, dollars(600), recs[0].EstimatedTaxSavings)
}

func TestOptimizeLocation_InvalidInput(t *testing.T) {
	engine := newTestEngine(t)

	req := locationRequest()
	req.Holdings = append(req.Holdings, domain.Holding{AccountID: "nope", AssetClass: "bonds", Amount: dollars(1)})
	_, err := engine.OptimizeLocation(req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Contains(t, err.Error(), "asset_location")

	req = locationRequest()
	req.Holdings = append(req.Holdings, domain.Holding{AccountID: "ira", AssetClass: "gold", Amount: dollars(1)})
	_, err = engine.OptimizeLocation(req)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}
