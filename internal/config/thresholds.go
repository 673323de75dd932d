package config

import "betauto/internal/betting"

// BettingThresholds maps the env-driven knobs onto the decision model.
func (c *Config) BettingThresholds() betting.Thresholds {
	return betting.Thresholds{
		MinEV:          c.MinEV,
		MinProb:        c.MinProb,
		FavMode:        c.FavMode,
		FavProbMin:     c.FavProbMin,
		FavGapMin:      c.FavGapMin,
		EVTolerance:    c.EVTolerance,
		FavIgnoreEV:    c.FavIgnoreEV,
		HighOddMode:    c.HighOddMode,
		HighOddMin:     c.HighOddMin,
		HighOddMaxProb: c.HighOddMaxProb,
		HighOddMinEV:   c.HighOddMinEV,
	}
}
