// Package preset loads named batch selections from YAML files.
package preset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Preset names a batch limit and task-id list for repeated use
type Preset struct {
	Name  string   `yaml:"name"`
	Limit int      `yaml:"limit"`
	IDs   []string `yaml:"ids"`
}

// Load reads a preset from a YAML file
func Load(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing preset %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("preset %s: %w", path, err)
	}
	return &p, nil
}

// Validate checks the preset for usable values
func (p *Preset) Validate() error {
	if p.Limit < 0 {
		return fmt.Errorf("limit must not be negative")
	}
	seen := make(map[string]bool, len(p.IDs))
	for _, id := range p.IDs {
		if id == "" {
			return fmt.Errorf("empty task id")
		}
		if seen[id] {
			return fmt.Errorf("duplicate task id %q", id)
		}
		seen[id] = true
	}
	return nil
}
