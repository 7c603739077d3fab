package sequencing

// StandardStrategy: taxable -> traditional -> roth
// Prioritizes spending taxable assets first (common for tax deferral) then traditional, preserving Roth for last.
type StandardStrategy struct{}

func NewStandardStrategy() *StandardStrategy { return &StandardStrategy{} }

func (s *StandardStrategy) Name() string { return "standard" }

func (s *StandardStrategy) Plan(sources []WithdrawalSource, ctx StrategyContext) WithdrawalPlan {
	return orderedPlan(s.Name(), []SourceKind{Taxable, Traditional, Roth}, sources, ctx)
}
