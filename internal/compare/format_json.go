package compare

import (
	"encoding/json"
	"fmt"
	"strings"
)

// JSONFormatter formats comparison results as JSON
type JSONFormatter struct {
	Pretty bool // If true, format with indentation
}

// Format generates JSON output for comparison results
func (jf *JSONFormatter) Format(compSet *ComparisonSet) (string, error) {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	if jf.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(compSet); err != nil {
		return "", fmt.Errorf("encode comparison: %w", err)
	}
	return sb.String(), nil
}

// FormatAs renders a comparison set in one of the supported formats:
// table, compact, csv or json.
func FormatAs(compSet *ComparisonSet, format string) (string, error) {
	switch strings.ToLower(format) {
	case "", "table", "console":
		return (&TableFormatter{}).Format(compSet), nil
	case "compact":
		return (&TableFormatter{}).FormatCompact(compSet) + "\n", nil
	case "csv":
		return (&CSVFormatter{}).Format(compSet)
	case "json":
		return (&JSONFormatter{Pretty: true}).Format(compSet)
	}
	return "", fmt.Errorf("unsupported comparison format %q (use table, compact, csv or json)", format)
}
