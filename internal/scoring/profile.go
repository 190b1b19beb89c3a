package scoring

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// WeightProfile maps criterion names to weight overrides. A zero weight
// disables the criterion.
type WeightProfile struct {
	Criteria []struct {
		Name   string  `yaml:"name"`
		Weight float64 `yaml:"weight"`
	} `yaml:"criteria"`
}

// LoadWeights reads a yaml weight profile. An empty path returns nil
// overrides, meaning the built-in defaults apply.
func LoadWeights(path string) (map[string]float64, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading weight profile failed: %w", err)
	}
	var profile WeightProfile
	if err := yaml.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("parsing weight profile failed: %w", err)
	}
	out := make(map[string]float64, len(profile.Criteria))
	for _, c := range profile.Criteria {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("weight profile contains entry without name")
		}
		if c.Weight < 0 {
			return nil, fmt.Errorf("weight profile: %s has negative weight", name)
		}
		out[name] = c.Weight
	}
	return out, nil
}
