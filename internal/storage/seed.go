package storage

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"aurabudget/internal/core"
)

//go:embed seed/categories.yaml
var defaultCategorySeed []byte

type categorySeedFile struct {
	Categories []struct {
		Name          string `yaml:"name"`
		Icon          string `yaml:"icon"`
		Color         string `yaml:"color"`
		Type          string `yaml:"type"`
		MonthlyBudget string `yaml:"monthly_budget"`
	} `yaml:"categories"`
}

// LoadCategorySeeds reads the default category list from path, or from the
// embedded seed when path is empty.
func LoadCategorySeeds(path string) ([]core.Category, error) {
	data := defaultCategorySeed
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read category seed file: %w", err)
		}
		data = b
	}
	return ParseCategorySeeds(data)
}

// ParseCategorySeeds decodes and validates a YAML category seed document.
func ParseCategorySeeds(data []byte) ([]core.Category, error) {
	var f categorySeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse category seed: %w", err)
	}

	out := make([]core.Category, 0, len(f.Categories))
	for i, s := range f.Categories {
		c := core.Category{
			Name:      strings.TrimSpace(s.Name),
			Icon:      s.Icon,
			Color:     s.Color,
			Type:      core.CategoryType(strings.ToUpper(strings.TrimSpace(s.Type))),
			IsDefault: true,
			IsActive:  true,
		}
		if c.Type == "" {
			c.Type = core.CategoryExpense
		}
		if s.MonthlyBudget != "" {
			m, err := core.ParseMoney(s.MonthlyBudget)
			if err != nil {
				return nil, fmt.Errorf("category seed %d (%s): monthly_budget: %w", i, c.Name, err)
			}
			c.MonthlyBudget = m
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("category seed %d (%s): %w", i, c.Name, err)
		}
		out = append(out, c)
	}
	return out, nil
}
