package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/rgehrsitz/rptax/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed regulatory.yaml
var defaultRegulatoryYAML []byte

// RegulatoryLoader loads statutory tables from YAML.
type RegulatoryLoader struct{}

// NewRegulatoryLoader creates a new regulatory loader
func NewRegulatoryLoader() *RegulatoryLoader {
	return &RegulatoryLoader{}
}

// LoadDefault parses the tables compiled into the binary.
func (rl *RegulatoryLoader) LoadDefault() (*domain.StatutoryTables, error) {
	tables, err := rl.Parse(defaultRegulatoryYAML)
	if err != nil {
		return nil, fmt.Errorf("embedded regulatory.yaml: %w", err)
	}
	return tables, nil
}

// LoadFromFile loads tables from a file, or the embedded default when
// filename is empty.
func (rl *RegulatoryLoader) LoadFromFile(filename string) (*domain.StatutoryTables, error) {
	if filename == "" {
		return rl.LoadDefault()
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	tables, err := rl.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return tables, nil
}

// Parse decodes and validates statutory tables.
func (rl *RegulatoryLoader) Parse(data []byte) (*domain.StatutoryTables, error) {
	var tables domain.StatutoryTables
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := tables.Validate(); err != nil {
		return nil, fmt.Errorf("regulatory validation failed: %w", err)
	}
	return &tables, nil
}
