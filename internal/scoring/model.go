package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Coefficients is a linear combination over named features.
type Coefficients struct {
	Intercept float64            `json:"intercept"`
	Weights   map[string]float64 `json:"weights"`
}

func (c Coefficients) apply(features map[string]float64) float64 {
	total := c.Intercept
	for name, w := range c.Weights {
		total += w * features[name]
	}
	return total
}

func (c Coefficients) validate(known map[string]float64) error {
	for name := range c.Weights {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("unknown feature %q", name)
		}
	}
	return nil
}

// Model holds trained coefficients. Either part may be absent, in which case
// the matching score falls back to its rule.
type Model struct {
	AtRisk     *Coefficients `json:"at_risk,omitempty"`
	FinalGrade *Coefficients `json:"final_grade,omitempty"`
}

// LoadModel reads coefficients from a JSON file.
func LoadModel(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scoring model: %w", err)
	}
	var m Model
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode scoring model: %w", err)
	}
	if m.AtRisk != nil {
		if err := m.AtRisk.validate(AtRiskFeatures{}.Vector()); err != nil {
			return nil, fmt.Errorf("at_risk: %w", err)
		}
	}
	if m.FinalGrade != nil {
		if err := m.FinalGrade.validate(FinalGradeFeatures{}.Vector()); err != nil {
			return nil, fmt.Errorf("final_grade: %w", err)
		}
	}
	return &m, nil
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
