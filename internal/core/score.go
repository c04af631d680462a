package core

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	ClassificationPoor Classification = iota + 1
	ClassificationFair
	ClassificationGood
)

const (
	TierFair ComponentTier = iota + 1
	TierGood
	TierExcellent
)

// weightTolerance absorbs floating error when summing configured weights.
const weightTolerance = 0.01

// Names of the factors in the default configuration.
const (
	FactorSpendingVsIncome   = "Spending vs Income"
	FactorBudgetAdherence    = "Budget Adherence"
	FactorSavingsConsistency = "Savings Consistency"
)

type (
	// Classification is the band an overall health score falls in.
	Classification int

	// ComponentTier grades a single factor's raw score.
	ComponentTier int

	// Factor is one configured input to the health score.
	Factor struct {
		Name   string  `toml:"name"`
		Weight float64 `toml:"weight"`
	}

	ScoreComponent struct {
		Name         string
		RawScore     float64
		Weight       float64
		Contribution float64
	}

	HealthScore struct {
		Overall        int
		Classification Classification
		Components     []ScoreComponent
	}

	// Tip points at a factor where the score is losing points.
	Tip struct {
		Factor          string
		Tier            ComponentTier
		PotentialPoints float64
	}

	// ScoreEngine computes weighted health scores for a validated factor set.
	ScoreEngine struct {
		factors []Factor
	}
)

// DefaultFactors is the three-factor configuration used when none is given.
func DefaultFactors() []Factor {
	return []Factor{
		{Name: FactorSpendingVsIncome, Weight: 40},
		{Name: FactorBudgetAdherence, Weight: 30},
		{Name: FactorSavingsConsistency, Weight: 30},
	}
}

// ValidateFactors checks names and that the weights sum to 100.
func ValidateFactors(factors []Factor) error {
	if len(factors) == 0 {
		return fmt.Errorf("no factors configured: %w", ErrInvalidWeights)
	}
	seen := make(map[string]struct{}, len(factors))
	var sum float64
	for _, f := range factors {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return fmt.Errorf("factor with empty name: %w", ErrInvalidWeights)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("factor %q listed twice: %w", name, ErrInvalidWeights)
		}
		seen[name] = struct{}{}
		if math.IsNaN(f.Weight) || f.Weight < 0 || f.Weight > 100 {
			return fmt.Errorf("factor %q weight %v out of range: %w", name, f.Weight, ErrInvalidWeights)
		}
		sum += f.Weight
	}
	if math.Abs(sum-100) > weightTolerance {
		return fmt.Errorf("weights sum to %v, want 100: %w", sum, ErrInvalidWeights)
	}
	return nil
}

func NewScoreEngine(factors []Factor) (*ScoreEngine, error) {
	if err := ValidateFactors(factors); err != nil {
		return nil, err
	}
	fs := make([]Factor, len(factors))
	for i, f := range factors {
		fs[i] = Factor{Name: strings.TrimSpace(f.Name), Weight: f.Weight}
	}
	return &ScoreEngine{factors: fs}, nil
}

// Factors returns a copy of the configured factors in order.
func (e *ScoreEngine) Factors() []Factor {
	return append([]Factor(nil), e.factors...)
}

// Score weights the raw score reported for every configured factor.
func (e *ScoreEngine) Score(raw map[string]float64) (HealthScore, error) {
	components := make([]ScoreComponent, 0, len(e.factors))
	for _, f := range e.factors {
		v, ok := raw[f.Name]
		if !ok {
			return HealthScore{}, fmt.Errorf("factor %q: %w", f.Name, ErrMissingFactor)
		}
		components = append(components, ScoreComponent{Name: f.Name, RawScore: v, Weight: f.Weight})
	}
	return Compute(components)
}

// Compute derives contributions and the overall score from a complete
// component set. Weights must sum to 100.
func Compute(components []ScoreComponent) (HealthScore, error) {
	factors := make([]Factor, len(components))
	for i, c := range components {
		factors[i] = Factor{Name: c.Name, Weight: c.Weight}
	}
	if err := ValidateFactors(factors); err != nil {
		return HealthScore{}, err
	}

	out := HealthScore{Components: make([]ScoreComponent, len(components))}
	var total float64
	for i, c := range components {
		if math.IsNaN(c.RawScore) || c.RawScore < 0 || c.RawScore > 100 {
			return HealthScore{}, fmt.Errorf("factor %q raw score %v: %w", c.Name, c.RawScore, ErrInvalidScore)
		}
		c.Name = strings.TrimSpace(c.Name)
		c.Contribution = c.RawScore * c.Weight / 100
		total += c.Contribution
		out.Components[i] = c
	}

	overall := int(math.Round(total))
	if overall < 0 {
		overall = 0
	}
	if overall > 100 {
		overall = 100
	}
	out.Overall = overall
	out.Classification = ClassifyScore(overall)
	return out, nil
}

// ClassifyScore bands an overall score: 71 is the first Good value and 70 the
// last Fair one.
func ClassifyScore(overall int) Classification {
	switch {
	case overall >= 71:
		return ClassificationGood
	case overall >= 41:
		return ClassificationFair
	default:
		return ClassificationPoor
	}
}

func (c Classification) String() string {
	switch c {
	case ClassificationPoor:
		return "Poor"
	case ClassificationFair:
		return "Fair"
	case ClassificationGood:
		return "Good"
	}
	return fmt.Sprintf("Classification(%d)", int(c))
}

// ParseClassification is the inverse of Classification.String.
func ParseClassification(v string) (Classification, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "poor":
		return ClassificationPoor, nil
	case "fair":
		return ClassificationFair, nil
	case "good":
		return ClassificationGood, nil
	}
	return 0, fmt.Errorf("unknown classification %q", v)
}

func (c Classification) MarshalText() ([]byte, error) {
	switch c {
	case ClassificationPoor, ClassificationFair, ClassificationGood:
		return []byte(c.String()), nil
	}
	return nil, fmt.Errorf("cannot marshal %s", c)
}

// Tier grades the component's raw score.
func (c ScoreComponent) Tier() ComponentTier {
	switch {
	case c.RawScore >= 80:
		return TierExcellent
	case c.RawScore >= 60:
		return TierGood
	default:
		return TierFair
	}
}

// Lost is how many overall points the component is not contributing.
func (c ScoreComponent) Lost() float64 {
	return c.Weight - c.Contribution
}

func (t ComponentTier) String() string {
	switch t {
	case TierFair:
		return "fair"
	case TierGood:
		return "good"
	case TierExcellent:
		return "excellent"
	}
	return fmt.Sprintf("ComponentTier(%d)", int(t))
}

func (t ComponentTier) MarshalText() ([]byte, error) {
	switch t {
	case TierFair, TierGood, TierExcellent:
		return []byte(t.String()), nil
	}
	return nil, fmt.Errorf("cannot marshal %s", t)
}

// Tips lists the components below the excellent tier, biggest loss first.
func Tips(h HealthScore) []Tip {
	var tips []Tip
	for _, c := range h.Components {
		if c.Tier() == TierExcellent {
			continue
		}
		tips = append(tips, Tip{Factor: c.Name, Tier: c.Tier(), PotentialPoints: c.Lost()})
	}
	sort.SliceStable(tips, func(i, j int) bool {
		return tips[i].PotentialPoints > tips[j].PotentialPoints
	})
	return tips
}
