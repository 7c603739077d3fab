package breakeven

import (
	"context"
	"fmt"

	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
)

// targets are the dimensions OptimizeMultiDimensional searches, in report order.
var targets = []OptimizationTarget{
	OptimizeConversionAmount,
	OptimizeRetirementRate,
	OptimizeRetirementAge,
}

type attempt struct {
	req    OptimizationRequest
	result *OptimizationResult
	err    error
}

// OptimizeMultiDimensional runs every target with each applicable goal and
// compares the results. An empty goal list means every goal. Failed runs are
// reported in Failures rather than aborting the whole search.
func (s *Solver) OptimizeMultiDimensional(
	ctx context.Context,
	household *domain.Household,
	constraints Constraints,
	goals []OptimizationGoal,
) (*MultiDimensionalResult, error) {
	if household == nil {
		return nil, &BreakEvenError{Operation: "optimize_multi_dimensional", Message: "household is required"}
	}
	if err := constraints.Validate(); err != nil {
		return nil, err
	}

	var attempts []attempt
	for _, target := range targets {
		for _, goal := range goalsByTarget[target] {
			if len(goals) > 0 && !containsGoal(goals, goal) {
				continue
			}
			attempts = append(attempts, attempt{req: OptimizationRequest{
				Household:     household,
				Target:        target,
				Goal:          goal,
				Constraints:   constraints,
				MaxIterations: s.Options.MaxIterations,
				Tolerance:     s.Options.Tolerance,
			}})
		}
	}
	if len(attempts) == 0 {
		return nil, &BreakEvenError{
			Operation: "optimize_multi_dimensional",
			Message:   fmt.Sprintf("no target supports goals %v", goals),
		}
	}

	done, err := evaluateAll(ctx, s.Options.Parallel, attempts, func(ctx context.Context, a attempt) (attempt, error) {
		a.result, a.err = s.Optimize(ctx, a.req)
		return a, nil
	})
	if err != nil {
		return nil, err
	}

	mdResult := &MultiDimensionalResult{}
	for _, a := range done {
		if a.err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			mdResult.Failures = append(mdResult.Failures, fmt.Sprintf("%s/%s: %v", a.req.Target, a.req.Goal, a.err))
			continue
		}
		if a.result != nil && a.result.Success {
			mdResult.Results = append(mdResult.Results, *a.result)
		}
	}
	if len(mdResult.Results) == 0 {
		return nil, &BreakEvenError{
			Operation: "optimize_multi_dimensional",
			Message:   "no successful optimizations found",
		}
	}

	results := mdResult.Results
	for i := range results {
		r := &results[i]
		if r.Request.Target == OptimizeConversionAmount &&
			(mdResult.BestBySavings == nil || r.LifetimeTaxSavings > mdResult.BestBySavings.LifetimeTaxSavings) {
			mdResult.BestBySavings = r
		}
		if r.Request.Target == OptimizeRetirementRate && mdResult.BreakEvenRate == nil {
			mdResult.BreakEvenRate = r
		}
		if mdResult.BestByWealth == nil || r.AfterTaxDiffFromBase > mdResult.BestByWealth.AfterTaxDiffFromBase {
			mdResult.BestByWealth = r
		}
		if r.Request.Target == OptimizeRetirementAge &&
			(mdResult.BestByTaxes == nil || r.TaxDiffFromBase < mdResult.BestByTaxes.TaxDiffFromBase) {
			mdResult.BestByTaxes = r
		}
	}

	mdResult.Recommendations = s.generateMultiDimensionalRecommendations(mdResult)
	return mdResult, nil
}

func containsGoal(goals []OptimizationGoal, goal OptimizationGoal) bool {
	for _, g := range goals {
		if g == goal {
			return true
		}
	}
	return false
}

// generateMultiDimensionalRecommendations creates recommendations from multi-dimensional results
func (s *Solver) generateMultiDimensionalRecommendations(result *MultiDimensionalResult) []string {
	recommendations := []string{}

	if r := result.BestBySavings; r != nil && r.OptimalConversionAmount != nil && r.LifetimeTaxSavings.IsPositive() {
		rec := fmt.Sprintf("Convert %s this year for %s of lifetime savings",
			r.OptimalConversionAmount.Format(), r.LifetimeTaxSavings.Format())
		if r.BreakEvenAge != nil {
			rec += fmt.Sprintf(" (breaks even at age %d)", *r.BreakEvenAge)
		}
		recommendations = append(recommendations, rec)
	}

	if r := result.BreakEvenRate; r != nil && r.OptimalRetirementRate != nil {
		recommendations = append(recommendations,
			fmt.Sprintf("Converting pays off when the retirement tax rate is above %s", money.Percent(*r.OptimalRetirementRate)))
	}

	if r := result.BestByWealth; r != nil && r.OptimalRetirementAge != nil && r.AfterTaxDiffFromBase.IsPositive() {
		recommendations = append(recommendations,
			fmt.Sprintf("Retire at %d for the most after-tax wealth (%s more than the current plan)",
				*r.OptimalRetirementAge, r.AfterTaxDiffFromBase.Format()))
	}

	if r := result.BestByTaxes; r != nil && r.OptimalRetirementAge != nil && r.TaxDiffFromBase.IsNegative() {
		recommendations = append(recommendations,
			fmt.Sprintf("Retire at %d to pay the least tax (saves %s)",
				*r.OptimalRetirementAge, (-r.TaxDiffFromBase).Format()))
	}

	return recommendations
}

// OptimizeAllTargets is a convenience method to optimize all targets with a single goal
func (s *Solver) OptimizeAllTargets(
	ctx context.Context,
	household *domain.Household,
	constraints Constraints,
	goal OptimizationGoal,
) (*MultiDimensionalResult, error) {
	return s.OptimizeMultiDimensional(ctx, household, constraints, []OptimizationGoal{goal})
}
