package calculation

import (
	"fmt"
	"sort"

	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
)

// ASSET LOCATION HEURISTIC:
//
// Greedy baseline, not an exact assignment. Taxable holdings whose class has
// a drag at or above the threshold, and whose amount is material, are moved
// (largest savings first) into the tax-advantaged account with the most swap
// room. Swap room is the account's uninvested balance plus its holdings of
// lower-drag classes, less what earlier moves already used. Education
// accounts are earmarked and never receive moves.

type locationCandidate struct {
	holding domain.Holding
	drag    decimal.Decimal
	savings money.Money
}

// OptimizeLocation recommends moving high-drag holdings out of taxable
// accounts, ranked by estimated annual tax savings.
func (e *Engine) OptimizeLocation(req domain.LocationRequest) ([]domain.LocationRecommendation, error) {
	const op = "asset_location"
	if err := req.Validate(); err != nil {
		return nil, withOp(op, err)
	}

	drag := make(map[string]decimal.Decimal, len(req.AssetClasses))
	for _, c := range req.AssetClasses {
		drag[c.Name] = c.TaxDragRate
	}

	var candidates []locationCandidate
	for _, h := range req.Holdings {
		a, _ := domain.FindAccount(req.Accounts, h.AccountID)
		if a.Treatment() != domain.Taxable {
			continue
		}
		d := drag[h.AssetClass]
		if d.LessThan(req.Options.HighDragThreshold) || h.Amount < req.Options.MaterialityThreshold || !h.Amount.IsPositive() {
			continue
		}
		candidates = append(candidates, locationCandidate{holding: h, drag: d, savings: h.Amount.MulRate(d)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].savings != candidates[j].savings {
			return candidates[i].savings > candidates[j].savings
		}
		return candidates[i].holding.String() < candidates[j].holding.String()
	})

	used := make(map[string]money.Money)
	recommendations := []domain.LocationRecommendation{}
	for _, c := range candidates {
		dest, room := bestDestination(req, drag, c.drag, used)
		if dest == nil || !room.IsPositive() {
			continue
		}
		amount := c.holding.Amount
		if room < amount {
			amount = room
		}
		used[dest.ID] += amount
		recommendations = append(recommendations, domain.LocationRecommendation{
			AssetClass:          c.holding.AssetClass,
			FromAccount:         c.holding.AccountID,
			ToAccount:           dest.ID,
			Amount:              amount,
			TaxDragRate:         c.drag,
			EstimatedTaxSavings: amount.MulRate(c.drag),
			Rationale: fmt.Sprintf("%s loses %s a year to taxes in %s; %s (%s) shelters it",
				c.holding.AssetClass, money.Percent(c.drag), c.holding.AccountID, dest.ID, dest.Treatment()),
		})
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].EstimatedTaxSavings > recommendations[j].EstimatedTaxSavings
	})
	e.Logger.Debugf("asset location: %d candidates, %d recommendations", len(candidates), len(recommendations))
	return recommendations, nil
}

// bestDestination returns the sheltered account with the most swap room for
// a class of the given drag. Ties go to the lower account id.
func bestDestination(req domain.LocationRequest, drag map[string]decimal.Decimal, classDrag decimal.Decimal, used map[string]money.Money) (*domain.Account, money.Money) {
	var best *domain.Account
	var bestRoom money.Money
	for i := range req.Accounts {
		a := &req.Accounts[i]
		if !a.Treatment().Sheltered() || a.Type == domain.Education529 {
			continue
		}
		held := money.Zero
		swappable := money.Zero
		for _, h := range req.Holdings {
			if h.AccountID != a.ID {
				continue
			}
			held += h.Amount
			if drag[h.AssetClass].LessThan(classDrag) {
				swappable += h.Amount
			}
		}
		room := (a.CurrentBalance - held) + swappable - used[a.ID]
		if !room.IsPositive() {
			continue
		}
		if best == nil || room > bestRoom || (room == bestRoom && a.ID < best.ID) {
			best, bestRoom = a, room
		}
	}
	return best, bestRoom
}
