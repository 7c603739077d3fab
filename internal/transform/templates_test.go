package transform

import (
	"testing"

	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBuiltInTemplates(t *testing.T) {
	without := CreateBuiltInTemplates(nil)
	_, ok := without.Get("max_contributions")
	assert.False(t, ok, "max_contributions needs resolved limits")

	limits := map[string]domain.ContributionLimits{
		"work-401k": {TotalLimit: money.FromDollars(23000), LimitGroup: "elective_deferral"},
		"roth-ira":  {TotalLimit: money.FromDollars(7000), LimitGroup: "ira"},
	}
	registry := CreateBuiltInTemplates(limits)
	assert.Len(t, registry.List(), len(without.List())+1)

	tmpl, ok := registry.Get("MAX_CONTRIBUTIONS")
	require.True(t, ok, "lookup is case-insensitive")
	out, err := ApplyTemplate(testHousehold(), tmpl)
	require.NoError(t, err)
	assert.Equal(t, money.FromDollars(30000), out.Assumptions.AnnualContribution)
}

func TestBuiltInTemplatesApplyToHousehold(t *testing.T) {
	registry := CreateBuiltInTemplates(nil)
	for _, name := range registry.List() {
		t.Run(name, func(t *testing.T) {
			tmpl, ok := registry.Get(name)
			require.True(t, ok)
			base := testHousehold()
			out, err := ApplyTemplate(base, tmpl)
			require.NoError(t, err)
			assert.NotEqual(t, base, out, "template should change something")
		})
	}
}

func TestRetireEarly(t *testing.T) {
	tmpl, ok := CreateBuiltInTemplates(nil).Get("retire_early")
	require.True(t, ok)
	out, err := ApplyTemplate(testHousehold(), tmpl)
	require.NoError(t, err)
	assert.Equal(t, 45, out.Facts.RetirementAge)
}

func TestApplyTemplate_Empty(t *testing.T) {
	base := testHousehold()
	out, err := ApplyTemplate(base, Template{Name: "noop"})
	require.NoError(t, err)
	assert.Equal(t, base, out)

	_, err = ApplyTemplate(nil, Template{Name: "noop"})
	assert.Error(t, err)
}

func TestParseTemplateList(t *testing.T) {
	assert.Nil(t, ParseTemplateList(""))
	assert.Equal(t, []string{"work_1yr_longer", "relocate_pa"}, ParseTemplateList(" work_1yr_longer, ,relocate_pa "))
}

func TestGetTemplateHelp(t *testing.T) {
	help := GetTemplateHelp(CreateBuiltInTemplates(nil))
	assert.Contains(t, help, "Retirement Timing:")
	assert.Contains(t, help, "Roth Conversions:")
	assert.Contains(t, help, "work_1yr_longer")
	assert.Contains(t, help, "rptax compare household.yaml")
	assert.NotContains(t, help, "Contributions:\n", "no contribution templates without limits")

	assert.Equal(t, "No templates registered", GetTemplateHelp(NewTemplateRegistry()))
}
