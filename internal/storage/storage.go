package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"smoothie-orders/internal/fruit"

	"gopkg.in/yaml.v3"
)

// Catalogue is the on-disk YAML form of the fruit option list.
type Catalogue struct {
	Fruits []fruit.Option `yaml:"fruits"`
}

// LoadCatalogue reads a YAML fruit catalogue. Blank names are rejected.
func LoadCatalogue(path string) ([]fruit.Option, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalogue file: %w", err)
	}

	var cat Catalogue
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse catalogue %s: %w", path, err)
	}

	seen := make(map[string]bool, len(cat.Fruits))
	for i, opt := range cat.Fruits {
		name := strings.TrimSpace(opt.Name)
		if name == "" {
			return nil, fmt.Errorf("catalogue entry %d has no name", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("catalogue lists %q twice", name)
		}
		seen[name] = true
		cat.Fruits[i].Name = name
		cat.Fruits[i].SearchOn = strings.TrimSpace(opt.SearchOn)
	}
	return cat.Fruits, nil
}

// SaveCatalogue writes options as a YAML catalogue, creating parent directories.
func SaveCatalogue(path string, options []fruit.Option) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create catalogue directory: %w", err)
	}

	data, err := yaml.Marshal(Catalogue{Fruits: options})
	if err != nil {
		return fmt.Errorf("failed to marshal catalogue: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write catalogue file: %w", err)
	}
	return nil
}
