package calculation

import (
	"context"
	"fmt"
	"sync"

	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
)

// FanOut evaluates fn for every input concurrently and returns the results in
// input order. Inputs not yet started when ctx is cancelled are skipped and
// the context error is returned. When several calls fail, the error of the
// lowest index wins so results are deterministic.
func FanOut[In, Out any](ctx context.Context, inputs []In, fn func(context.Context, In) (Out, error)) ([]Out, error) {
	results := make([]Out, len(inputs))
	errs := make([]error, len(inputs))

	var wg sync.WaitGroup
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		wg.Add(1)
		go func(idx int, in In) {
			defer wg.Done()
			if err := ctx.Err(); err != nil {
				errs[idx] = err
				return
			}
			results[idx], errs[idx] = fn(ctx, in)
		}(i, in)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("evaluation %d: %w", i, err)
		}
	}
	return results, nil
}

// CompareTaxScenarios computes federal tax on several taxable incomes at once.
func (e *Engine) CompareTaxScenarios(ctx context.Context, taxYear int, status domain.FilingStatus, incomes []money.Money) ([]domain.TaxResult, error) {
	return FanOut(ctx, incomes, func(_ context.Context, income money.Money) (domain.TaxResult, error) {
		return e.ComputeTax(taxYear, status, income)
	})
}

// CompareConversions analyzes several conversion requests at once.
func (e *Engine) CompareConversions(ctx context.Context, reqs []domain.RothRequest) ([]domain.ConversionScenario, error) {
	return FanOut(ctx, reqs, func(_ context.Context, req domain.RothRequest) (domain.ConversionScenario, error) {
		return e.AnalyzeRoth(req)
	})
}
