package betting

import (
	"math"
	"testing"
)

func defaultThresholds() Thresholds {
	return Thresholds{
		MinEV:          -0.02,
		MinProb:        0.20,
		FavMode:        true,
		FavProbMin:     0.60,
		FavGapMin:      0.10,
		EVTolerance:    -0.03,
		FavIgnoreEV:    true,
		HighOddMode:    true,
		HighOddMin:     1.50,
		HighOddMaxProb: 0.45,
		HighOddMinEV:   -0.15,
	}
}

func TestDecideValuePickWithZeroFloors(t *testing.T) {
	th := Thresholds{MinEV: 0, MinProb: 0}
	d := Decide(Odds{Home: 2.00, Draw: 3.40, Away: 4.00}, nil, th)

	if !d.WillBet {
		t.Fatalf("expected a selection, got reject: %q", d.Reason)
	}
	// Normalized implied probabilities: home is the top-EV market here.
	if d.Pick != PickHome {
		t.Errorf("pick = %q, want home", d.Pick)
	}
	if d.Prob <= 0 || d.Prob >= 1 {
		t.Errorf("prob out of range: %v", d.Prob)
	}
}

func TestDecideImpliedProbsNormalize(t *testing.T) {
	odds := Odds{Home: 2.00, Draw: 3.40, Away: 4.00}
	cands := buildCandidates(odds, nil)
	if len(cands) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(cands))
	}
	var sum float64
	for _, c := range cands {
		sum += c.prob
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("implied probabilities sum to %v, want 1", sum)
	}
}

func TestDecideInsufficientOdds(t *testing.T) {
	d := Decide(Odds{Home: 1.80}, nil, defaultThresholds())
	if d.WillBet {
		t.Fatal("single-market book must not produce a selection")
	}
	if d.Reason != "insufficient odds" {
		t.Errorf("reason = %q", d.Reason)
	}
}

func TestDecideFavoriteMode(t *testing.T) {
	th := defaultThresholds()
	th.MinEV = 0.50 // force stage 1 to fail
	// Heavy favorite at short price: prob ~0.70, gap well above 0.10.
	d := Decide(Odds{Home: 1.30, Draw: 5.00, Away: 9.00}, nil, th)
	if !d.WillBet || d.Pick != PickHome {
		t.Fatalf("expected favorite selection, got %+v", d)
	}
	if d.Reason != "strong favorite" {
		t.Errorf("reason = %q", d.Reason)
	}
}

func TestDecideFavoriteGapTooSmall(t *testing.T) {
	th := defaultThresholds()
	th.MinEV = 0.50
	th.HighOddMode = false
	// Near-even book: no gap, no favorite, probabilities around a third.
	d := Decide(Odds{Home: 2.90, Draw: 3.00, Away: 3.10}, nil, th)
	if d.WillBet {
		t.Fatalf("no stage should fire on a flat book: %+v", d)
	}
}

func TestDecideHighOddMode(t *testing.T) {
	th := defaultThresholds()
	th.MinEV = 0.50
	th.FavMode = false
	// Away at 4.0 has prob ~0.19 <= 0.45 and odd >= 1.50.
	d := Decide(Odds{Home: 2.00, Draw: 3.40, Away: 4.00}, nil, th)
	if !d.WillBet {
		t.Fatalf("expected high-odd selection, got reject %q", d.Reason)
	}
	if d.Reason != "high odd value" {
		t.Errorf("reason = %q", d.Reason)
	}
	if got := (Odds{Home: 2.00, Draw: 3.40, Away: 4.00}).For(d.Pick); got < th.HighOddMin {
		t.Errorf("selected odd %v below the high-odd floor", got)
	}
}

func TestDecideProbabilityFallback(t *testing.T) {
	th := defaultThresholds()
	th.MinEV = 0.50
	th.FavMode = false
	th.HighOddMode = false
	// Home prob > 0.50 triggers the fallback acceptance.
	d := Decide(Odds{Home: 1.60, Draw: 4.00, Away: 5.50}, nil, th)
	if !d.WillBet || d.Pick != PickHome {
		t.Fatalf("expected fallback selection on home, got %+v", d)
	}
	if d.Reason != "probability fallback" {
		t.Errorf("reason = %q", d.Reason)
	}
}

func TestDecideRejectKeepsBestCandidate(t *testing.T) {
	th := defaultThresholds()
	th.MinEV = 0.50
	th.MinProb = 0.99
	th.FavMode = false
	th.HighOddMode = false
	// Flat book, nothing above 0.40 prob with acceptable EV.
	d := Decide(Odds{Home: 2.90, Draw: 3.00, Away: 3.10}, nil, th)
	if d.WillBet {
		t.Fatalf("expected reject, got %+v", d)
	}
	if d.Pick == "" || d.Prob == 0 {
		t.Error("reject must still carry the best candidate's pick and prob")
	}
	if d.Reason != "EV low" && d.Reason != "probability low" {
		t.Errorf("reason = %q", d.Reason)
	}
}

func TestDecideDriftPenalty(t *testing.T) {
	odds := Odds{Home: 2.20, Draw: 3.30, Away: 3.60}
	prior := &Odds{Home: 2.00, Draw: 3.30, Away: 3.60}

	plain := buildCandidates(odds, nil)
	adjusted := buildCandidates(odds, prior)

	var plainHome, adjHome float64
	for i := range plain {
		if plain[i].pick == PickHome {
			plainHome = plain[i].ev
			adjHome = adjusted[i].ev
		}
	}
	wantDelta := driftPenalty * (2.20 - 2.00) / 2.00
	if math.Abs((plainHome-adjHome)-wantDelta) > 1e-9 {
		t.Errorf("drift penalty = %v, want %v", plainHome-adjHome, wantDelta)
	}
}
