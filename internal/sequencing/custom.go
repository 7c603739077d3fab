package sequencing

import "strings"

// CustomStrategy executes withdrawals in a user-specified ordered list of sources.
// Valid source names: taxable, traditional, roth. If sequence invalid, falls back to standard.
type CustomStrategy struct {
	Sequence []string
}

func NewCustomStrategy(sequence []string) *CustomStrategy { return &CustomStrategy{Sequence: sequence} }

func (s *CustomStrategy) Name() string { return "custom" }

func (s *CustomStrategy) Plan(sources []WithdrawalSource, ctx StrategyContext) WithdrawalPlan {
	order, ok := s.order()
	if !ok {
		std := NewStandardStrategy().Plan(sources, ctx)
		std.StrategyUsed = "custom->standard_fallback"
		std.Notes = append(std.Notes, "invalid or empty custom sequence - falling back to standard")
		return std
	}
	return orderedPlan(s.Name(), order, sources, ctx)
}

func (s *CustomStrategy) order() ([]SourceKind, bool) {
	if len(s.Sequence) == 0 {
		return nil, false
	}
	allowed := map[SourceKind]bool{Taxable: true, Traditional: true, Roth: true}
	seen := map[SourceKind]bool{}
	order := make([]SourceKind, 0, len(s.Sequence))
	for _, name := range s.Sequence {
		kind := SourceKind(strings.ToLower(strings.TrimSpace(name)))
		if !allowed[kind] || seen[kind] {
			return nil, false
		}
		seen[kind] = true
		order = append(order, kind)
	}
	return order, true
}
