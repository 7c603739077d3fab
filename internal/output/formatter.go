package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rgehrsitz/rptax/internal/domain"
	"github.com/rgehrsitz/rptax/pkg/money"
)

// Report carries the results of one command. Only the populated sections
// are rendered.
type Report struct {
	Title     string `json:"title,omitempty"`
	Household string `json:"household,omitempty"`
	TaxYear   int    `json:"taxYear"`

	Tax          *domain.HouseholdTax                 `json:"tax,omitempty"`
	TaxScenarios []TaxScenario                        `json:"taxScenarios,omitempty"`
	Limits       map[string]domain.ContributionLimits `json:"limits,omitempty"`
	Allocation   *domain.OptimizationResult           `json:"allocation,omitempty"`
	Projection   []domain.ProjectionYear              `json:"projection,omitempty"`
	Roth         *domain.ConversionScenario           `json:"roth,omitempty"`
	Location     *LocationReport                      `json:"location,omitempty"`
}

// TaxScenario pairs one candidate taxable income with its federal tax.
type TaxScenario struct {
	TaxableIncome money.Money      `json:"taxableIncome"`
	Result        domain.TaxResult `json:"result"`
}

// LocationReport wraps asset location recommendations so an empty result
// still renders.
type LocationReport struct {
	Recommendations []domain.LocationRecommendation `json:"recommendations"`
	TotalSavings    money.Money                     `json:"totalSavings"`
}

// NewLocationReport totals the estimated savings of the recommendations.
func NewLocationReport(recs []domain.LocationRecommendation) *LocationReport {
	r := &LocationReport{Recommendations: recs}
	if r.Recommendations == nil {
		r.Recommendations = []domain.LocationRecommendation{}
	}
	for _, rec := range recs {
		r.TotalSavings += rec.EstimatedTaxSavings
	}
	return r
}

// Formatter renders a report into bytes.
type Formatter interface {
	Name() string
	Format(report *Report) ([]byte, error)
}

// FormatterFunc adapts a function to the Formatter interface.
type FormatterFunc struct {
	ID string
	F  func(report *Report) ([]byte, error)
}

func (f FormatterFunc) Name() string { return f.ID }

func (f FormatterFunc) Format(report *Report) ([]byte, error) { return f.F(report) }

var formatters = []Formatter{
	ConsoleFormatter{},
	CSVFormatter{},
	JSONFormatter{Indent: true},
}

var formatAliases = map[string]string{
	"table":   "console",
	"text":    "console",
	"pretty":  "json",
	"console": "console",
	"csv":     "csv",
	"json":    "json",
}

// GetFormatterByName returns the formatter registered under name or one of
// its aliases, or nil.
func GetFormatterByName(name string) Formatter {
	if canonical, ok := formatAliases[strings.ToLower(name)]; ok {
		name = canonical
	}
	for _, f := range formatters {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

// AvailableFormatterNames lists the registered formatter names.
func AvailableFormatterNames() []string {
	names := make([]string, 0, len(formatters))
	for _, f := range formatters {
		names = append(names, f.Name())
	}
	return names
}

// AvailableFormatAliases lists every accepted --format value.
func AvailableFormatAliases() []string {
	aliases := make([]string, 0, len(formatAliases))
	for alias := range formatAliases {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// Render formats a report with the named formatter.
func Render(report *Report, format string) ([]byte, error) {
	if format == "" {
		format = "console"
	}
	f := GetFormatterByName(format)
	if f == nil {
		return nil, fmt.Errorf("unsupported format: %s (available: %s)", format, strings.Join(AvailableFormatAliases(), ", "))
	}
	return f.Format(report)
}

// WriteFormatted writes the formatted report to a timestamped file in the
// working directory and returns its name.
func WriteFormatted(f Formatter, report *Report, ext string) (string, error) {
	data, err := f.Format(report)
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("rptax_report_%s.%s", time.Now().Format("20060102_150405"), ext)
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return filename, nil
}

// sortedKeys returns map keys in order so output is stable.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// accountIDs collects every account id that appears in a projection.
func accountIDs(rows []domain.ProjectionYear) []string {
	seen := make(map[string]bool)
	for _, row := range rows {
		for id := range row.Balances {
			seen[id] = true
		}
	}
	return sortedKeys(seen)
}
