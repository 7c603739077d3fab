package sequencing

// BracketFillStrategy fills the target bracket with ordinary income from
// traditional sources, then sources the remainder from Roth, then taxable,
// and only then from traditional above the ceiling.
type BracketFillStrategy struct{}

func NewBracketFillStrategy() *BracketFillStrategy { return &BracketFillStrategy{} }

func (s *BracketFillStrategy) Name() string { return "bracket_fill" }

func (s *BracketFillStrategy) Plan(sources []WithdrawalSource, ctx StrategyContext) WithdrawalPlan {
	plan := newPlan(s.Name(), ctx.NeedAmount)
	working := append([]WithdrawalSource(nil), sources...)
	remaining := ctx.NeedAmount

	// 1. Traditional up to the bracket ceiling
	if ctx.BracketCeiling != nil {
		headroom := (*ctx.BracketCeiling - ctx.BracketBuffer - ctx.CurrentOrdinaryIncome).NonNegative()
		fill := headroom
		if remaining < fill {
			fill = remaining
		}
		filled := fill - plan.drawKinds(working, []SourceKind{Traditional}, fill)
		remaining -= filled
		plan.BracketFilled = headroom > 0 && filled == headroom
	}

	// 2. Roth, then taxable, then whatever traditional is left
	remaining = plan.drawKinds(working, []SourceKind{Roth, Taxable, Traditional}, remaining)

	return plan.finish(remaining)
}
