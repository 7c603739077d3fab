package sequencing

import (
	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
)

// SourceKind groups accounts by how a withdrawal is taxed.
// Traditional: fully taxable as ordinary income
// Roth: no current year tax impact (qualified distributions, HSA medical use)
// Taxable: only the gains portion is taxed, approximated via cost basis
type SourceKind string

const (
	Taxable     SourceKind = "taxable"
	Traditional SourceKind = "traditional"
	Roth        SourceKind = "roth"
)

// KindFor maps an account's tax treatment to its withdrawal kind.
func KindFor(t domain.TaxTreatment) SourceKind {
	switch t {
	case domain.TaxDeferred:
		return Traditional
	case domain.Taxable:
		return Taxable
	default:
		return Roth
	}
}

// WithdrawalSource is one account available for withdrawals.
// Basis is only meaningful for taxable accounts.
type WithdrawalSource struct {
	AccountID string
	Kind      SourceKind
	Balance   money.Money
	Basis     money.Money
}

// WithdrawalAllocation is the amount drawn from one account and its tax split.
type WithdrawalAllocation struct {
	AccountID           string
	Kind                SourceKind
	Gross               money.Money
	OrdinaryPortion     money.Money
	CapitalGainsPortion money.Money
	TaxFreePortion      money.Money
}

// WithdrawalPlan aggregates the allocations that meet a spending need.
// RemainingNeed is the unmet portion when balances run out.
type WithdrawalPlan struct {
	Requested       money.Money
	Allocations     []WithdrawalAllocation
	TotalSourced    money.Money
	RemainingNeed   money.Money
	OrdinaryIncome  money.Money
	CapitalGains    money.Money
	Notes           []string
	StrategyUsed    string
	BracketFilled   bool
	TraditionalUsed money.Money
	RothUsed        money.Money
	TaxableUsed     money.Money
}

// StrategyContext provides the inputs a strategy needs for one year.
// CurrentOrdinaryIncome is taxable income already realized before withdrawals.
// BracketCeiling is the taxable income the bracket_fill strategy may fill up to.
type StrategyContext struct {
	NeedAmount            money.Money
	CurrentOrdinaryIncome money.Money
	BracketCeiling        *money.Money
	BracketBuffer         money.Money
}

// SequencingStrategy defines interface for all withdrawal sequencing algorithms
type SequencingStrategy interface {
	Name() string
	Plan(sources []WithdrawalSource, ctx StrategyContext) WithdrawalPlan
}

func newPlan(name string, need money.Money) WithdrawalPlan {
	return WithdrawalPlan{Requested: need, StrategyUsed: name, Allocations: []WithdrawalAllocation{}}
}

// draw takes up to limit from src, records the allocation and returns the
// amount drawn. src.Balance and src.Basis are reduced in place.
func (p *WithdrawalPlan) draw(src *WithdrawalSource, limit money.Money) money.Money {
	amount := limit
	if src.Balance < amount {
		amount = src.Balance
	}
	if amount <= 0 {
		return 0
	}

	alloc := WithdrawalAllocation{AccountID: src.AccountID, Kind: src.Kind, Gross: amount}
	switch src.Kind {
	case Traditional:
		alloc.OrdinaryPortion = amount
		p.TraditionalUsed += amount
	case Roth:
		alloc.TaxFreePortion = amount
		p.RothUsed += amount
	case Taxable:
		// basis recovered pro rata
		basisUsed := amount.MulRate(src.Basis.NonNegative().Ratio(src.Balance))
		if basisUsed > amount {
			basisUsed = amount
		}
		alloc.TaxFreePortion = basisUsed
		alloc.CapitalGainsPortion = amount - basisUsed
		src.Basis -= basisUsed
		p.TaxableUsed += amount
	}

	src.Balance -= amount
	p.Allocations = append(p.Allocations, alloc)
	p.TotalSourced += amount
	p.OrdinaryIncome += alloc.OrdinaryPortion
	p.CapitalGains += alloc.CapitalGainsPortion
	return amount
}

// drawKinds draws from every source of each kind in order until need is met.
func (p *WithdrawalPlan) drawKinds(sources []WithdrawalSource, order []SourceKind, need money.Money) money.Money {
	remaining := need
	for _, kind := range order {
		for i := range sources {
			if remaining <= 0 {
				return 0
			}
			if sources[i].Kind != kind {
				continue
			}
			remaining -= p.draw(&sources[i], remaining)
		}
	}
	return remaining.NonNegative()
}

func (p *WithdrawalPlan) finish(remaining money.Money) WithdrawalPlan {
	p.RemainingNeed = remaining
	if remaining > 0 {
		p.Notes = append(p.Notes, "insufficient balances to meet request")
	}
	return *p
}

// orderedPlan runs a fixed kind order. Sources are copied so callers keep
// their balances.
func orderedPlan(name string, order []SourceKind, sources []WithdrawalSource, ctx StrategyContext) WithdrawalPlan {
	plan := newPlan(name, ctx.NeedAmount)
	working := append([]WithdrawalSource(nil), sources...)
	remaining := plan.drawKinds(working, order, ctx.NeedAmount)
	return plan.finish(remaining)
}
