// Package betting holds the pre-match decision model and stake sizing.
// Everything here is pure: callers load odds history and persist results.
package betting

import (
	"sort"
)

// minOdd filters out suspended/placeholder prices before normalization.
const minOdd = 1.01

// driftPenalty scales how much a rising price since the prior sample
// subtracts from a market's expected value.
const driftPenalty = 0.5

// Pick labels, aligned with the Game model.
const (
	PickHome = "home"
	PickDraw = "draw"
	PickAway = "away"
)

// Thresholds are the decision model knobs, copied from config at startup.
type Thresholds struct {
	MinEV   float64
	MinProb float64

	FavMode     bool
	FavProbMin  float64
	FavGapMin   float64
	EVTolerance float64
	FavIgnoreEV bool

	HighOddMode    bool
	HighOddMin     float64
	HighOddMaxProb float64
	HighOddMinEV   float64
}

// Odds is one three-way price snapshot.
type Odds struct {
	Home float64
	Draw float64
	Away float64
}

// For returns the price for a pick label, 0 for unknown labels.
func (o Odds) For(pick string) float64 {
	switch pick {
	case PickHome:
		return o.Home
	case PickDraw:
		return o.Draw
	case PickAway:
		return o.Away
	}
	return 0
}

// Decision is the model's verdict for one match. Prob and EV always carry the
// best candidate's numbers, selected or not, so rejections stay explainable.
type Decision struct {
	WillBet bool
	Pick    string
	Prob    float64
	EV      float64
	Reason  string
}

type candidate struct {
	pick string
	odd  float64
	prob float64
	ev   float64 // drift-adjusted
	raw  float64 // unadjusted EV
}

// Decide runs the selection cascade over one match's odds. prior is the most
// recent odds sample at least an hour old, nil when none exists; a price that
// rose since then has its EV penalized before ranking.
func Decide(odds Odds, prior *Odds, th Thresholds) Decision {
	cands := buildCandidates(odds, prior)
	if len(cands) < 2 {
		return Decision{Reason: "insufficient odds"}
	}

	byEV := make([]candidate, len(cands))
	copy(byEV, cands)
	sort.SliceStable(byEV, func(i, j int) bool { return byEV[i].ev > byEV[j].ev })
	best := byEV[0]

	// Stage 1: plain value pick.
	if best.ev >= th.MinEV && best.prob >= th.MinProb {
		return Decision{WillBet: true, Pick: best.pick, Prob: best.prob, EV: best.ev, Reason: "value pick"}
	}

	// Stage 2: strong favorite, even at thin or slightly negative value.
	if th.FavMode {
		byProb := make([]candidate, len(cands))
		copy(byProb, cands)
		sort.SliceStable(byProb, func(i, j int) bool { return byProb[i].prob > byProb[j].prob })
		fav, second := byProb[0], byProb[1]

		floor := th.MinProb
		if th.FavProbMin > floor {
			floor = th.FavProbMin
		}
		if floor < 0.40 {
			floor = 0.40
		}
		gap := fav.prob - second.prob
		if gap >= th.FavGapMin && fav.prob >= floor && (th.FavIgnoreEV || fav.ev >= th.EVTolerance) {
			return Decision{WillBet: true, Pick: fav.pick, Prob: fav.prob, EV: fav.ev, Reason: "strong favorite"}
		}
	}

	// Stage 3: underdog value at long prices.
	if th.HighOddMode {
		for _, c := range byEV {
			if c.odd >= th.HighOddMin && c.prob <= th.HighOddMaxProb && c.ev >= th.HighOddMinEV {
				return Decision{WillBet: true, Pick: c.pick, Prob: c.prob, EV: c.ev, Reason: "high odd value"}
			}
		}
	}

	// Stage 4: probability fallback.
	if best.prob > 0.50 {
		return Decision{WillBet: true, Pick: best.pick, Prob: best.prob, EV: best.ev, Reason: "probability fallback"}
	}
	if best.prob >= 0.40 && best.ev >= -0.08 {
		return Decision{WillBet: true, Pick: best.pick, Prob: best.prob, EV: best.ev, Reason: "probability fallback"}
	}

	reason := "probability low"
	if best.ev < th.MinEV {
		reason = "EV low"
	}
	return Decision{Pick: best.pick, Prob: best.prob, EV: best.ev, Reason: reason}
}

func buildCandidates(odds Odds, prior *Odds) []candidate {
	picks := []string{PickHome, PickDraw, PickAway}

	var inv float64
	valid := make([]candidate, 0, 3)
	for _, p := range picks {
		odd := odds.For(p)
		if odd < minOdd {
			continue
		}
		valid = append(valid, candidate{pick: p, odd: odd})
		inv += 1 / odd
	}
	if len(valid) < 2 || inv <= 0 {
		return nil
	}

	for i := range valid {
		c := &valid[i]
		c.prob = (1 / c.odd) / inv
		c.raw = c.prob*c.odd - 1
		c.ev = c.raw
		if prior != nil {
			if old := prior.For(c.pick); old > 0 {
				c.ev -= driftPenalty * (c.odd - old) / old
			}
		}
	}
	return valid
}
