package sequencing

import (
	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
)

// CreateStrategy creates a sequencing strategy based on the configuration
func CreateStrategy(config *domain.WithdrawalSequencingConfig) SequencingStrategy {
	if config == nil {
		return NewStandardStrategy()
	}

	switch config.Strategy {
	case "standard":
		return NewStandardStrategy()
	case "tax_efficient":
		return NewTaxEfficientStrategy()
	case "bracket_fill":
		return NewBracketFillStrategy()
	case "custom":
		return NewCustomStrategy(config.CustomSequence)
	default:
		// Fallback to standard if unknown strategy
		return NewStandardStrategy()
	}
}

// CreateStrategyContext creates a StrategyContext from the current projection state.
// ceiling is only used by bracket_fill and may be nil.
func CreateStrategyContext(
	needAmount money.Money,
	currentOrdinaryIncome money.Money,
	ceiling *money.Money,
	config *domain.WithdrawalSequencingConfig,
) StrategyContext {
	ctx := StrategyContext{
		NeedAmount:            needAmount,
		CurrentOrdinaryIncome: currentOrdinaryIncome,
	}
	if config != nil && config.Strategy == "bracket_fill" {
		ctx.BracketCeiling = ceiling
		ctx.BracketBuffer = config.BracketBuffer
	}
	return ctx
}

// CreateWithdrawalSources builds sources from accounts and their current
// balances. Education accounts are earmarked and never drawn for spending.
func CreateWithdrawalSources(
	accounts []domain.Account,
	balances map[string]money.Money,
	basis map[string]money.Money,
) []WithdrawalSource {
	sources := []WithdrawalSource{}
	for _, a := range accounts {
		if a.Type == domain.Education529 {
			continue
		}
		balance := balances[a.ID]
		if balance <= 0 {
			continue
		}
		sources = append(sources, WithdrawalSource{
			AccountID: a.ID,
			Kind:      KindFor(a.Treatment()),
			Balance:   balance,
			Basis:     basis[a.ID],
		})
	}
	return sources
}
