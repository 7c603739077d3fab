package sequencing

// TaxEfficientStrategy: roth -> traditional -> taxable
// Spends Roth first to shrink the traditional balance more slowly than the
// standard order would, keeping taxable assets for last.
type TaxEfficientStrategy struct{}

func NewTaxEfficientStrategy() *TaxEfficientStrategy { return &TaxEfficientStrategy{} }

func (s *TaxEfficientStrategy) Name() string { return "tax_efficient" }

func (s *TaxEfficientStrategy) Plan(sources []WithdrawalSource, ctx StrategyContext) WithdrawalPlan {
	return orderedPlan(s.Name(), []SourceKind{Roth, Traditional, Taxable}, sources, ctx)
}
