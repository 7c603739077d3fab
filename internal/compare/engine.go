package compare

import (
	"context"
	"fmt"
	"strings"

	"github.com/rgehrsitz/rptax/internal/calculation"
	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/internal/transform"
)

// CompareEngine orchestrates what-if comparison of a household
type CompareEngine struct {
	CalcEngine        *calculation.Engine
	MetricsCalculator *MetricsCalculator
	TransformRegistry *transform.TransformRegistry
}

// NewCompareEngine creates a new comparison engine
func NewCompareEngine(calcEngine *calculation.Engine) *CompareEngine {
	return &CompareEngine{
		CalcEngine:        calcEngine,
		MetricsCalculator: NewMetricsCalculator(),
		TransformRegistry: transform.NewTransformRegistry(),
	}
}

// CompareOptions configures comparison behavior
type CompareOptions struct {
	// Alternatives are template names ("work_1yr_longer") or transform specs
	// ("set_return:rate=0.05"). Several transforms joined with "+" form one
	// alternative.
	Alternatives []string
	ConfigPath   string
}

// scenario is one household to evaluate.
type scenario struct {
	name        string
	description string
	household   *domain.Household
}

// Templates returns the built-in templates for a household, with contribution
// limits resolved for its tax year.
func (ce *CompareEngine) Templates(household *domain.Household) (*transform.TemplateRegistry, error) {
	limits, err := ce.CalcEngine.ResolveAll(household.Accounts, household.Facts, household.TaxYear)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve contribution limits: %w", err)
	}
	return transform.CreateBuiltInTemplates(limits), nil
}

// Compare evaluates the base household and every alternative concurrently.
func (ce *CompareEngine) Compare(ctx context.Context, base *domain.Household, options CompareOptions) (*ComparisonSet, error) {
	if base == nil {
		return nil, fmt.Errorf("base household cannot be nil")
	}

	templates, err := ce.Templates(base)
	if err != nil {
		return nil, err
	}

	scenarios := make([]scenario, 0, len(options.Alternatives))
	for _, alt := range options.Alternatives {
		s, err := ce.resolve(base, templates, alt)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}

	compSet, err := ce.evaluate(ctx, base, scenarios)
	if err != nil {
		return nil, err
	}
	compSet.ConfigPath = options.ConfigPath
	return compSet, nil
}

// CompareHouseholds compares explicit households (not using templates).
func (ce *CompareEngine) CompareHouseholds(ctx context.Context, base *domain.Household, alternatives []*domain.Household) (*ComparisonSet, error) {
	if base == nil {
		return nil, fmt.Errorf("base household cannot be nil")
	}
	scenarios := make([]scenario, 0, len(alternatives))
	for i, h := range alternatives {
		if h == nil {
			return nil, fmt.Errorf("alternative household %d is nil", i)
		}
		scenarios = append(scenarios, scenario{name: h.Name, household: h})
	}
	return ce.evaluate(ctx, base, scenarios)
}

// resolve turns an alternative name into a transformed household.
func (ce *CompareEngine) resolve(base *domain.Household, templates *transform.TemplateRegistry, alt string) (scenario, error) {
	if tmpl, ok := templates.Get(alt); ok {
		h, err := transform.ApplyTemplate(base, tmpl)
		if err != nil {
			return scenario{}, fmt.Errorf("failed to apply template %s: %w", alt, err)
		}
		return scenario{name: tmpl.Name, description: tmpl.Description, household: h}, nil
	}

	var transforms []transform.HouseholdTransform
	var descriptions []string
	for _, spec := range strings.Split(alt, "+") {
		t, err := ce.TransformRegistry.ParseTransformSpec(spec)
		if err != nil {
			return scenario{}, fmt.Errorf("alternative %s is neither a template nor a transform: %w", alt, err)
		}
		transforms = append(transforms, t)
		descriptions = append(descriptions, t.Description())
	}
	h, err := transform.ApplyTransforms(base, transforms)
	if err != nil {
		return scenario{}, fmt.Errorf("failed to apply %s: %w", alt, err)
	}
	return scenario{name: alt, description: strings.Join(descriptions, "; "), household: h}, nil
}

// evaluate projects the base and the alternatives concurrently and compares them.
func (ce *CompareEngine) evaluate(ctx context.Context, base *domain.Household, alternatives []scenario) (*ComparisonSet, error) {
	all := make([]scenario, 0, len(alternatives)+1)
	all = append(all, scenario{name: base.Name, description: "Household as configured", household: base})
	all = append(all, alternatives...)

	ce.CalcEngine.Logger.Debugf("compare: evaluating %d scenarios", len(all))
	results, err := calculation.FanOut(ctx, all, func(_ context.Context, s scenario) (ComparisonResult, error) {
		projection, err := ce.CalcEngine.Project(s.household.ProjectionRequest())
		if err != nil {
			return ComparisonResult{}, fmt.Errorf("failed to calculate scenario %s: %w", s.name, err)
		}
		result := ce.MetricsCalculator.CalculateMetrics(s.name, s.household, projection)
		result.Description = s.description
		return result, nil
	})
	if err != nil {
		return nil, err
	}

	baseResult := results[0]
	alternativeResults := make([]ComparisonResult, 0, len(alternatives))
	for _, r := range results[1:] {
		alternativeResults = append(alternativeResults, ce.MetricsCalculator.CalculateComparison(r, baseResult))
	}

	compSet := &ComparisonSet{
		BaseScenarioName:   base.Name,
		TaxYear:            base.TaxYear,
		BaseResult:         &baseResult,
		AlternativeResults: alternativeResults,
	}
	compSet.Recommendations = GenerateRecommendations(compSet)
	return compSet, nil
}
