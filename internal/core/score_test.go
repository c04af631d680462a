package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreEngine_DefaultFactors(t *testing.T) {
	engine, err := NewScoreEngine(DefaultFactors())
	require.NoError(t, err)

	score, err := engine.Score(map[string]float64{
		FactorSpendingVsIncome:   85,
		FactorBudgetAdherence:    72,
		FactorSavingsConsistency: 75,
	})
	require.NoError(t, err)

	require.Len(t, score.Components, 3)
	assert.InDelta(t, 34, score.Components[0].Contribution, 1e-9)
	assert.InDelta(t, 21.6, score.Components[1].Contribution, 1e-9)
	assert.InDelta(t, 22.5, score.Components[2].Contribution, 1e-9)
	assert.Equal(t, 78, score.Overall)
	assert.Equal(t, ClassificationGood, score.Classification)
}

func TestScoreEngine_MissingFactor(t *testing.T) {
	engine, err := NewScoreEngine(DefaultFactors())
	require.NoError(t, err)

	_, err = engine.Score(map[string]float64{FactorSpendingVsIncome: 50})
	assert.ErrorIs(t, err, ErrMissingFactor)
}

func TestNewScoreEngine_Weights(t *testing.T) {
	tests := []struct {
		name    string
		factors []Factor
		wantErr bool
	}{
		{"default", DefaultFactors(), false},
		{"single factor", []Factor{{Name: "Only", Weight: 100}}, false},
		{"within tolerance", []Factor{{Name: "A", Weight: 40}, {Name: "B", Weight: 30}, {Name: "C", Weight: 29.995}}, false},
		{"four factors", []Factor{{Name: "A", Weight: 25}, {Name: "B", Weight: 25}, {Name: "C", Weight: 25}, {Name: "D", Weight: 25}}, false},
		{"short of hundred", []Factor{{Name: "A", Weight: 40}, {Name: "B", Weight: 30}, {Name: "C", Weight: 29}}, true},
		{"over hundred", []Factor{{Name: "A", Weight: 60}, {Name: "B", Weight: 50}}, true},
		{"negative weight", []Factor{{Name: "A", Weight: 110}, {Name: "B", Weight: -10}}, true},
		{"duplicate name", []Factor{{Name: "A", Weight: 50}, {Name: "A", Weight: 50}}, true},
		{"empty name", []Factor{{Name: " ", Weight: 100}}, true},
		{"empty set", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScoreEngine(tt.factors)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidWeights)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCompute_RejectsRawScoresOutOfRange(t *testing.T) {
	_, err := Compute([]ScoreComponent{{Name: "A", RawScore: 101, Weight: 100}})
	assert.ErrorIs(t, err, ErrInvalidScore)

	_, err = Compute([]ScoreComponent{{Name: "A", RawScore: -1, Weight: 100}})
	assert.ErrorIs(t, err, ErrInvalidScore)
}

func TestCompute_Bounds(t *testing.T) {
	score, err := Compute([]ScoreComponent{{Name: "A", RawScore: 100, Weight: 50}, {Name: "B", RawScore: 100, Weight: 50}})
	require.NoError(t, err)
	assert.Equal(t, 100, score.Overall)

	score, err = Compute([]ScoreComponent{{Name: "A", RawScore: 0, Weight: 100}})
	require.NoError(t, err)
	assert.Equal(t, 0, score.Overall)
	assert.Equal(t, ClassificationPoor, score.Classification)
}

func TestClassifyScore(t *testing.T) {
	tests := []struct {
		overall int
		want    Classification
	}{
		{0, ClassificationPoor},
		{40, ClassificationPoor},
		{41, ClassificationFair},
		{70, ClassificationFair},
		{71, ClassificationGood},
		{100, ClassificationGood},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyScore(tt.overall), "overall %d", tt.overall)
	}
}

func TestParseClassification(t *testing.T) {
	for _, c := range []Classification{ClassificationPoor, ClassificationFair, ClassificationGood} {
		got, err := ParseClassification(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseClassification("great")
	assert.Error(t, err)
}

func TestTips(t *testing.T) {
	score, err := Compute([]ScoreComponent{
		{Name: FactorSpendingVsIncome, RawScore: 85, Weight: 40},
		{Name: FactorBudgetAdherence, RawScore: 72, Weight: 30},
		{Name: FactorSavingsConsistency, RawScore: 50, Weight: 30},
	})
	require.NoError(t, err)

	tips := Tips(score)
	require.Len(t, tips, 2)
	assert.Equal(t, FactorSavingsConsistency, tips[0].Factor)
	assert.Equal(t, TierFair, tips[0].Tier)
	assert.InDelta(t, 15, tips[0].PotentialPoints, 1e-9)
	assert.Equal(t, FactorBudgetAdherence, tips[1].Factor)
	assert.InDelta(t, 8.4, tips[1].PotentialPoints, 1e-9)
}
