package transform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/shopspring/decimal"
)

// TemplateRegistry manages built-in what-if templates
type TemplateRegistry struct {
	templates map[string]Template
}

// Template represents a named collection of transforms
type Template struct {
	Name        string
	Description string
	Category    string
	Transforms  []HouseholdTransform
}

// Template categories, in help order.
const (
	CategoryTiming        = "Retirement Timing"
	CategoryContributions = "Contributions"
	CategoryConversions   = "Roth Conversions"
	CategoryWithdrawals   = "Withdrawals and Returns"
)

var categoryOrder = []string{CategoryTiming, CategoryContributions, CategoryConversions, CategoryWithdrawals}

// NewTemplateRegistry creates an empty template registry
func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{
		templates: make(map[string]Template),
	}
}

// Register adds a template to the registry
func (tr *TemplateRegistry) Register(t Template) {
	tr.templates[strings.ToLower(t.Name)] = t
}

// Get retrieves a template by name (case-insensitive)
func (tr *TemplateRegistry) Get(name string) (Template, bool) {
	t, ok := tr.templates[strings.ToLower(name)]
	return t, ok
}

// List returns all registered template names, sorted
func (tr *TemplateRegistry) List() []string {
	names := make([]string, 0, len(tr.templates))
	for name := range tr.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateBuiltInTemplates creates a template registry with common planning
// what-ifs. limits are the resolved contribution limits per account id; the
// max_contributions template is only registered when they are given.
func CreateBuiltInTemplates(limits map[string]domain.ContributionLimits) *TemplateRegistry {
	registry := NewTemplateRegistry()

	registry.Register(Template{
		Name:        "work_1yr_longer",
		Description: "Postpone retirement by 1 year",
		Category:    CategoryTiming,
		Transforms:  []HouseholdTransform{&PostponeRetirement{Years: 1}},
	})

	registry.Register(Template{
		Name:        "work_2yr_longer",
		Description: "Postpone retirement by 2 years",
		Category:    CategoryTiming,
		Transforms:  []HouseholdTransform{&PostponeRetirement{Years: 2}},
	})

	registry.Register(Template{
		Name:        "retire_early",
		Description: "Retire now and stop contributing",
		Category:    CategoryTiming,
		Transforms:  []HouseholdTransform{&retireNow{}},
	})

	if limits != nil {
		registry.Register(Template{
			Name:        "max_contributions",
			Description: "Contribute the statutory maximum every working year",
			Category:    CategoryContributions,
			Transforms:  []HouseholdTransform{&MaxContributions{Limits: limits}},
		})
	}

	registry.Register(Template{
		Name:        "roth_ladder_5yr",
		Description: "Fill the current bracket with Roth conversions for 5 years",
		Category:    CategoryConversions,
		Transforms:  []HouseholdTransform{&SetRothLadder{Years: 5}},
	})

	registry.Register(Template{
		Name:        "roth_convert_50k_5yr",
		Description: "Convert $50,000 a year to Roth for the first 5 years",
		Category:    CategoryConversions,
		Transforms: []HouseholdTransform{
			&ScheduleRothConversions{Amount: money.FromDollars(50000), StartYear: 1, Years: 5},
		},
	})

	bracket := decimal.NewFromFloat(0.22)
	registry.Register(Template{
		Name:        "bracket_fill_withdrawals",
		Description: "Draw traditional balances up to the 22% bracket, then Roth",
		Category:    CategoryWithdrawals,
		Transforms: []HouseholdTransform{
			&SetWithdrawalStrategy{Strategy: "bracket_fill", TargetBracketRate: &bracket},
		},
	})

	registry.Register(Template{
		Name:        "tax_efficient_withdrawals",
		Description: "Draw taxable first, then traditional, then Roth",
		Category:    CategoryWithdrawals,
		Transforms:  []HouseholdTransform{&SetWithdrawalStrategy{Strategy: "tax_efficient"}},
	})

	registry.Register(Template{
		Name:        "conservative_returns",
		Description: "Assume a 4% nominal return",
		Category:    CategoryWithdrawals,
		Transforms:  []HouseholdTransform{&SetExpectedReturn{Rate: decimal.NewFromFloat(0.04)}},
	})

	registry.Register(Template{
		Name:        "relocate_pa",
		Description: "Move to Pennsylvania",
		Category:    CategoryWithdrawals,
		Transforms:  []HouseholdTransform{&RelocateState{State: "PA"}},
	})

	return registry
}

// retireNow sets the retirement age to the current age.
type retireNow struct{}

func (rn *retireNow) Name() string        { return "retire_now" }
func (rn *retireNow) Description() string { return "Retire at the current age" }

func (rn *retireNow) Validate(base *domain.Household) error {
	return requireBase(rn.Name(), base)
}

func (rn *retireNow) Apply(base *domain.Household) (*domain.Household, error) {
	modified := base.Clone()
	modified.Facts.RetirementAge = modified.Facts.CurrentAge
	return modified, nil
}

// ApplyTemplate applies a template to a base household
func ApplyTemplate(base *domain.Household, template Template) (*domain.Household, error) {
	if base == nil {
		return nil, fmt.Errorf("base household cannot be nil")
	}
	if len(template.Transforms) == 0 {
		return base.Clone(), nil
	}
	return ApplyTransforms(base, template.Transforms)
}

// ParseTemplateList parses a comma-separated list of template names
func ParseTemplateList(templateList string) []string {
	if templateList == "" {
		return nil
	}

	parts := strings.Split(templateList, ",")
	templates := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			templates = append(templates, trimmed)
		}
	}
	return templates
}

// GetTemplateHelp returns formatted help text for all templates
func GetTemplateHelp(registry *TemplateRegistry) string {
	if len(registry.templates) == 0 {
		return "No templates registered"
	}

	var sb strings.Builder
	sb.WriteString("Available Templates:\n\n")

	categories := make(map[string][]Template)
	for _, name := range registry.List() {
		t := registry.templates[name]
		categories[t.Category] = append(categories[t.Category], t)
	}

	for _, category := range categoryOrder {
		templates := categories[category]
		if len(templates) == 0 {
			continue
		}

		sb.WriteString(fmt.Sprintf("%s:\n", category))
		for _, t := range templates {
			sb.WriteString(fmt.Sprintf("  %-28s %s\n", t.Name, t.Description))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Usage:\n")
	sb.WriteString("  rptax compare household.yaml --with work_1yr_longer,roth_ladder_5yr\n")
	sb.WriteString("  rptax compare household.yaml --with set_return:rate=0.05\n")

	return sb.String()
}
