package config

import (
	"fmt"
	"math"

	"github.com/BurntSushi/toml"

	"finhealth/internal/core"
)

// scoringFile is the layout of SCORING_CONFIG_FILE:
//
//	[[factor]]
//	name = "Spending vs Income"
//	weight = 40
//
//	[static]
//	"Spending vs Income" = 85
type scoringFile struct {
	Factors []core.Factor      `toml:"factor"`
	Static  map[string]float64 `toml:"static"`
}

// historyFile is the layout of HISTORY_SEED_FILE, oldest period first:
//
//	[[point]]
//	period = "Apr"
//	score = 58
type historyFile struct {
	Points []struct {
		Period string `toml:"period"`
		Score  int    `toml:"score"`
	} `toml:"point"`
}

// LoadFactors reads and validates the factor list. An empty path yields the
// default 40/30/30 configuration.
func LoadFactors(path string) ([]core.Factor, error) {
	if path == "" {
		return core.DefaultFactors(), nil
	}
	var f scoringFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("decode scoring config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("scoring config %s: unknown keys %v", path, undecoded)
	}
	if err := core.ValidateFactors(f.Factors); err != nil {
		return nil, fmt.Errorf("scoring config %s: %w", path, err)
	}
	return f.Factors, nil
}

// LoadStaticScores reads the fixed raw scores of factors that have no live
// provider. An empty path yields the defaults for the built-in factors.
func LoadStaticScores(path string) (map[string]float64, error) {
	if path == "" {
		return map[string]float64{
			core.FactorSpendingVsIncome:   85,
			core.FactorSavingsConsistency: 75,
		}, nil
	}
	var f scoringFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("decode scoring config %s: %w", path, err)
	}
	for name, v := range f.Static {
		if math.IsNaN(v) || v < 0 || v > 100 {
			return nil, fmt.Errorf("scoring config %s: static %q = %v: %w", path, name, v, core.ErrInvalidScore)
		}
	}
	if f.Static == nil {
		f.Static = map[string]float64{}
	}
	return f.Static, nil
}

// LoadHistorySeed reads historical score points. An empty path yields none.
func LoadHistorySeed(path string) ([]core.HistoricalScorePoint, error) {
	if path == "" {
		return nil, nil
	}
	var f historyFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("decode history seed %s: %w", path, err)
	}
	points := make([]core.HistoricalScorePoint, 0, len(f.Points))
	for i, p := range f.Points {
		pt := core.HistoricalScorePoint{PeriodLabel: p.Period, Score: p.Score}
		if err := pt.Validate(); err != nil {
			return nil, fmt.Errorf("history seed %s point %d: %w", path, i, err)
		}
		points = append(points, pt)
	}
	return points, nil
}
