package breakeven

import (
	"context"
	"fmt"

	"github.com/rgehrsitz/rptax/internal/calculation"
	"github.com/rgehrsitz/rptax/internal/compare"
	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/internal/transform"
	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
)

// rateEpsilon stops the retirement rate bisection once the bracket is narrower
// than a hundredth of a percentage point.
var rateEpsilon = decimal.NewFromFloat(0.0001)

// Solver searches one household parameter for the value that best meets a goal
type Solver struct {
	CalcEngine *calculation.Engine
	Options    SolverOptions
	metrics    *compare.MetricsCalculator
}

// NewSolver creates a new break-even solver
func NewSolver(calcEngine *calculation.Engine, options SolverOptions) *Solver {
	return &Solver{
		CalcEngine: calcEngine,
		Options:    options,
		metrics:    compare.NewMetricsCalculator(),
	}
}

// NewDefaultSolver creates a solver with default options
func NewDefaultSolver(calcEngine *calculation.Engine) *Solver {
	return NewSolver(calcEngine, DefaultSolverOptions())
}

// Optimize performs optimization based on the request
func (s *Solver) Optimize(ctx context.Context, req OptimizationRequest) (*OptimizationResult, error) {
	if req.Household == nil {
		return nil, &BreakEvenError{Operation: "optimize", Message: "household is required"}
	}
	if err := req.Constraints.Validate(); err != nil {
		return nil, err
	}

	// Apply defaults
	if req.MaxIterations == 0 {
		req.MaxIterations = s.Options.MaxIterations
	}
	if req.Tolerance.IsZero() {
		req.Tolerance = s.Options.Tolerance
	}
	if req.Goal == "" {
		if goal, ok := DefaultGoal(req.Target); ok {
			req.Goal = goal
		}
	}
	if err := checkGoal(req.Target, req.Goal); err != nil {
		return nil, err
	}

	switch req.Target {
	case OptimizeConversionAmount:
		return s.optimizeConversionAmount(ctx, req)
	case OptimizeRetirementRate:
		return s.optimizeRetirementRate(ctx, req)
	case OptimizeRetirementAge:
		return s.optimizeRetirementAge(ctx, req)
	default:
		return nil, &BreakEvenError{
			Operation: "optimize",
			Message:   fmt.Sprintf("unsupported optimization target: %s", req.Target),
		}
	}
}

func checkGoal(target OptimizationTarget, goal OptimizationGoal) error {
	goals, ok := goalsByTarget[target]
	if !ok {
		return &BreakEvenError{
			Operation: "optimize",
			Message:   fmt.Sprintf("unsupported optimization target: %s", target),
		}
	}
	for _, g := range goals {
		if g == goal {
			return nil
		}
	}
	return &BreakEvenError{
		Operation: "optimize",
		Message:   fmt.Sprintf("goal %s does not apply to target %s", goal, target),
	}
}

// optimizeConversionAmount grid-searches a single-year conversion amount
func (s *Solver) optimizeConversionAmount(ctx context.Context, req OptimizationRequest) (*OptimizationResult, error) {
	base, err := req.Household.RothRequest()
	if err != nil {
		return nil, &BreakEvenError{Operation: "optimize_conversion_amount", Message: "invalid household", Cause: err}
	}
	base.LadderYears = 0

	lo, hi := money.Zero, base.TraditionalBalance
	if c := req.Constraints.MinConversion; c != nil {
		lo = *c
	}
	if c := req.Constraints.MaxConversion; c != nil && *c < hi {
		hi = *c
	}
	if lo > hi {
		return nil, &BreakEvenError{
			Operation: "optimize_conversion_amount",
			Message:   fmt.Sprintf("minimum conversion %s exceeds the convertible balance %s", lo.Format(), hi.Format()),
		}
	}

	amounts := gridPoints(lo, hi, min(s.gridResolution(), req.MaxIterations))
	scenarios, err := evaluateAll(ctx, s.Options.Parallel, amounts, func(_ context.Context, amount money.Money) (domain.ConversionScenario, error) {
		r := base
		r.ProposedAmount = &amount
		return s.CalcEngine.AnalyzeRoth(r)
	})
	if err != nil {
		return nil, &BreakEvenError{Operation: "optimize_conversion_amount", Message: "evaluation failed", Cause: err}
	}

	best := -1
	for i, sc := range scenarios {
		if req.Goal == GoalEarliestBreakEven && sc.BreakEvenAge == nil {
			continue
		}
		if best < 0 || betterConversion(sc, scenarios[best], req.Goal) {
			best = i
		}
	}
	if best < 0 {
		return nil, &BreakEvenError{
			Operation: "optimize_conversion_amount",
			Message:   "no conversion amount breaks even within the horizon",
		}
	}

	sc := scenarios[best]
	amount := amounts[best]
	s.CalcEngine.Logger.Debugf("breakeven: best conversion %s of %d evaluated, savings %s",
		amount.Format(), len(amounts), sc.LifetimeTaxSavings.Format())
	return &OptimizationResult{
		Request:                 req,
		Success:                 true,
		Iterations:              len(amounts),
		ConvergenceInfo:         fmt.Sprintf("grid search over %s to %s in %d steps", lo.Format(), hi.Format(), len(amounts)),
		OptimalConversionAmount: &amount,
		Conversion:              &sc,
		LifetimeTaxSavings:      sc.LifetimeTaxSavings,
		BreakEvenAge:            sc.BreakEvenAge,
		AfterTaxDiffFromBase:    sc.LifetimeTaxSavings,
	}, nil
}

// betterConversion reports whether a beats b. Amounts are visited in
// ascending order, so ties keep the smaller amount.
func betterConversion(a, b domain.ConversionScenario, goal OptimizationGoal) bool {
	if goal == GoalEarliestBreakEven {
		switch {
		case a.BreakEvenAge == nil:
			return false
		case b.BreakEvenAge == nil:
			return true
		case *a.BreakEvenAge != *b.BreakEvenAge:
			return *a.BreakEvenAge < *b.BreakEvenAge
		}
	}
	return a.LifetimeTaxSavings > b.LifetimeTaxSavings
}

// optimizeRetirementRate bisects the expected retirement tax rate at which
// the household's conversion saves exactly the target amount
func (s *Solver) optimizeRetirementRate(ctx context.Context, req OptimizationRequest) (*OptimizationResult, error) {
	base, err := req.Household.RothRequest()
	if err != nil {
		return nil, &BreakEvenError{Operation: "optimize_retirement_rate", Message: "invalid household", Cause: err}
	}

	lo, hi := decimal.Zero, decimal.NewFromFloat(0.50)
	if r := req.Constraints.MinRetirementRate; r != nil {
		lo = *r
	}
	if r := req.Constraints.MaxRetirementRate; r != nil {
		hi = *r
	}
	var target money.Money
	if t := req.Constraints.TargetSavings; t != nil {
		target = *t
	}
	tolerance := money.FromDecimal(req.Tolerance)

	iterations := 0
	gap := func(rate decimal.Decimal) (money.Money, domain.ConversionScenario, error) {
		iterations++
		r := base
		r.ExpectedRetirementRate = rate
		sc, err := s.CalcEngine.AnalyzeRoth(r)
		if err != nil {
			return 0, sc, err
		}
		return sc.LifetimeTaxSavings - target, sc, nil
	}
	result := func(rate decimal.Decimal, sc domain.ConversionScenario, info string) *OptimizationResult {
		amount := sc.ConversionAmount
		return &OptimizationResult{
			Request:                 req,
			Success:                 true,
			Iterations:              iterations,
			ConvergenceInfo:         info,
			OptimalRetirementRate:   &rate,
			OptimalConversionAmount: &amount,
			Conversion:              &sc,
			LifetimeTaxSavings:      sc.LifetimeTaxSavings,
			BreakEvenAge:            sc.BreakEvenAge,
			AfterTaxDiffFromBase:    sc.LifetimeTaxSavings,
		}
	}

	fLo, scLo, err := gap(lo)
	if err != nil {
		return nil, &BreakEvenError{Operation: "optimize_retirement_rate", Message: "evaluation failed", Cause: err}
	}
	if abs(fLo) < tolerance {
		return result(lo, scLo, "lower bound meets the target"), nil
	}
	fHi, scHi, err := gap(hi)
	if err != nil {
		return nil, &BreakEvenError{Operation: "optimize_retirement_rate", Message: "evaluation failed", Cause: err}
	}
	if abs(fHi) < tolerance {
		return result(hi, scHi, "upper bound meets the target"), nil
	}
	if fLo.IsNegative() == fHi.IsNegative() {
		return nil, &BreakEvenError{
			Operation: "optimize_retirement_rate",
			Message: fmt.Sprintf("savings do not cross %s between %s and %s",
				target.Format(), money.Percent(lo), money.Percent(hi)),
		}
	}

	two := decimal.NewFromInt(2)
	for iterations < req.MaxIterations {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		mid := lo.Add(hi).Div(two)
		fMid, sc, err := gap(mid)
		if err != nil {
			return nil, &BreakEvenError{Operation: "optimize_retirement_rate", Message: "evaluation failed", Cause: err}
		}
		if abs(fMid) < tolerance {
			return result(mid, sc, fmt.Sprintf("converged within %s", tolerance.Format())), nil
		}
		if fMid.IsNegative() == fLo.IsNegative() {
			lo, fLo = mid, fMid
		} else {
			hi = mid
		}
		if hi.Sub(lo).LessThan(rateEpsilon) {
			return result(mid, sc, "rate bracket narrowed below 0.01%"), nil
		}
	}

	return nil, &BreakEvenError{
		Operation: "optimize_retirement_rate",
		Message:   fmt.Sprintf("did not converge in %d iterations", req.MaxIterations),
	}
}

// optimizeRetirementAge grid-searches the retirement age using full projections
func (s *Solver) optimizeRetirementAge(ctx context.Context, req OptimizationRequest) (*OptimizationResult, error) {
	h := req.Household
	lo, hi := h.Facts.CurrentAge, h.Facts.LifeExpectancy
	if a := req.Constraints.MinRetirementAge; a != nil {
		lo = max(lo, *a)
	}
	if a := req.Constraints.MaxRetirementAge; a != nil {
		hi = min(hi, *a)
	}
	if lo > hi {
		return nil, &BreakEvenError{
			Operation: "optimize_retirement_age",
			Message:   fmt.Sprintf("no retirement age between %d and %d", lo, hi),
		}
	}

	ages := make([]int, 0, hi-lo+1)
	for age := lo; age <= hi && len(ages) < req.MaxIterations; age++ {
		ages = append(ages, age)
	}
	// index 0 is the household as configured
	households := make([]*domain.Household, 0, len(ages)+1)
	households = append(households, h)
	for _, age := range ages {
		modified, err := transform.ApplyTransforms(h, []transform.HouseholdTransform{&transform.SetRetirementAge{Age: age}})
		if err != nil {
			return nil, &BreakEvenError{Operation: "optimize_retirement_age", Message: fmt.Sprintf("retire at %d", age), Cause: err}
		}
		households = append(households, modified)
	}

	results, err := evaluateAll(ctx, s.Options.Parallel, households, func(_ context.Context, hh *domain.Household) (compare.ComparisonResult, error) {
		projection, err := s.CalcEngine.Project(hh.ProjectionRequest())
		if err != nil {
			return compare.ComparisonResult{}, err
		}
		return s.metrics.CalculateMetrics(hh.Name, hh, projection), nil
	})
	if err != nil {
		return nil, &BreakEvenError{Operation: "optimize_retirement_age", Message: "evaluation failed", Cause: err}
	}

	base, candidates := results[0], results[1:]
	best := 0
	for i := range candidates {
		if betterProjection(candidates[i], candidates[best], req.Goal) {
			best = i
		}
	}

	r := s.metrics.CalculateComparison(candidates[best], base)
	age := ages[best]
	s.CalcEngine.Logger.Debugf("breakeven: best retirement age %d for %s", age, req.Goal)
	return &OptimizationResult{
		Request:              req,
		Success:              true,
		Iterations:           len(ages),
		ConvergenceInfo:      fmt.Sprintf("grid search over ages %d to %d", ages[0], ages[len(ages)-1]),
		OptimalRetirementAge: &age,
		FinalAfterTaxValue:   r.FinalAfterTaxValue,
		LifetimeTaxes:        r.LifetimeTaxes,
		AfterTaxDiffFromBase: r.AfterTaxDiffFromBase,
		TaxDiffFromBase:      r.TaxDiffFromBase,
	}, nil
}

// betterProjection reports whether a beats b; ties keep the earlier age.
func betterProjection(a, b compare.ComparisonResult, goal OptimizationGoal) bool {
	switch goal {
	case GoalMinimizeTaxes:
		return a.LifetimeTaxes < b.LifetimeTaxes
	default:
		return a.FinalAfterTaxValue > b.FinalAfterTaxValue
	}
}

func (s *Solver) gridResolution() int {
	if s.Options.GridResolution < 2 {
		return 2
	}
	return s.Options.GridResolution
}

// gridPoints spreads n evenly spaced amounts over [lo, hi], both ends included.
func gridPoints(lo, hi money.Money, n int) []money.Money {
	if hi == lo || n < 2 {
		return []money.Money{lo}
	}
	span := int64(hi - lo)
	points := make([]money.Money, n)
	for i := range points {
		points[i] = lo + money.FromCents(span*int64(i)/int64(n-1))
	}
	return points
}

// evaluateAll runs fn over inputs, concurrently when parallel is set.
func evaluateAll[In, Out any](ctx context.Context, parallel bool, inputs []In, fn func(context.Context, In) (Out, error)) ([]Out, error) {
	if parallel {
		return calculation.FanOut(ctx, inputs, fn)
	}
	out := make([]Out, len(inputs))
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := fn(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("evaluation %d: %w", i, err)
		}
		out[i] = r
	}
	return out, nil
}

func abs(m money.Money) money.Money {
	if m.IsNegative() {
		return -m
	}
	return m
}
