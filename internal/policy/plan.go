package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Plan is a scripted sequence of enacted effects keyed by simulated year, used to
// drive unattended runs. Effect validation happens when the year is applied.
type Plan struct {
	Years map[int][]Effect `yaml:"years"`
}

// LoadPlan reads a YAML plan file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return ParsePlan(data)
}

// ParsePlan decodes a YAML plan.
func ParsePlan(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if p.Years == nil {
		p.Years = make(map[int][]Effect)
	}
	return &p, nil
}

// For returns the effects enacted for a year. A nil plan enacts nothing.
func (p *Plan) For(year int) []Effect {
	if p == nil {
		return nil
	}
	return p.Years[year]
}
