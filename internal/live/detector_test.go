package live

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"betauto/internal/feed"
)

func testDetector() *Detector {
	return NewDetector(DetectorConfig{
		MinOdd:        1.20,
		MinEdge:       0.02,
		MinScore:      0.60,
		CooldownMin:   8,
		SamePickCDMin: 20,
		Bankroll:      decimal.NewFromInt(1000),
		KellyFraction: 0.25,
	})
}

func goallessLate(minute string, oddNo float64) *feed.LiveData {
	return &feed.LiveData{
		Stats: feed.LiveStats{Score: "0-0", MatchClock: minute, HomeGoals: 0, AwayGoals: 0},
		Markets: map[string]feed.LiveMarket{
			feed.MarketBTTS: {
				DisplayName: "Ambas marcam",
				Options:     map[string]float64{"Sim": 4.50, feed.OptionNo: oddNo},
			},
		},
	}
}

func TestDetectNoGoalsRule(t *testing.T) {
	d := testDetector()
	now := time.Now()

	op := d.Detect(goallessLate("78'", 1.30), State{}, now)
	if op == nil {
		t.Fatal("expected an opportunity on a goalless game at minute 78")
	}
	if op.Market != feed.MarketBTTS || op.Option != feed.OptionNo {
		t.Errorf("pick = %s|%s", op.Market, op.Option)
	}
	if op.Prob < 1/1.30 {
		t.Errorf("prob %v below breakeven %v", op.Prob, 1/1.30)
	}
	if op.Edge <= 0 {
		t.Errorf("edge = %v, want positive", op.Edge)
	}
	if op.Stake.Amount.IsZero() {
		t.Error("expected a sized stake on a positive-edge pick")
	}
}

func TestDetectNoGoalsLateBonus(t *testing.T) {
	d := testDetector()
	now := time.Now()

	early := d.Detect(goallessLate("78'", 1.30), State{}, now)
	late := d.Detect(goallessLate("87'", 1.30), State{}, now)
	if early == nil || late == nil {
		t.Fatal("both snapshots should yield opportunities")
	}
	if late.Prob <= early.Prob {
		t.Errorf("late prob %v should exceed earlier prob %v", late.Prob, early.Prob)
	}
}

func TestDetectNoGoalsOutsideWindow(t *testing.T) {
	d := testDetector()
	if op := d.Detect(goallessLate("60'", 1.30), State{}, time.Now()); op != nil {
		t.Errorf("minute 60 must not trigger the goalless rule: %+v", op)
	}
}

func TestDetectCooldownSuppresses(t *testing.T) {
	d := testDetector()
	now := time.Now()
	until := now.Add(5 * time.Minute)

	if op := d.Detect(goallessLate("78'", 1.30), State{CooldownUntil: &until}, now); op != nil {
		t.Errorf("cooldown window must suppress detection: %+v", op)
	}

	past := now.Add(-time.Minute)
	if op := d.Detect(goallessLate("78'", 1.30), State{CooldownUntil: &past}, now); op == nil {
		t.Error("expired cooldown must not suppress detection")
	}
}

func TestDetectSamePickSilence(t *testing.T) {
	d := testDetector()
	now := time.Now()
	sent := now.Add(-10 * time.Minute)

	st := State{LastPickKey: "btts|Não", LastPickSentAt: &sent}
	if op := d.Detect(goallessLate("78'", 1.30), st, now); op != nil {
		t.Errorf("repeat of the last pick inside 20min must stay silent: %+v", op)
	}

	old := now.Add(-25 * time.Minute)
	st = State{LastPickKey: "btts|Não", LastPickSentAt: &old}
	if op := d.Detect(goallessLate("78'", 1.30), st, now); op == nil {
		t.Error("repeat after the silence window should fire again")
	}
}

func TestDetectLateLeaderRule(t *testing.T) {
	d := testDetector()
	data := &feed.LiveData{
		Stats: feed.LiveStats{Score: "0-1", MatchClock: "88'", HomeGoals: 0, AwayGoals: 1},
		Markets: map[string]feed.LiveMarket{
			feed.MarketMatchResult: {
				DisplayName: "Resultado final",
				Options: map[string]float64{
					feed.OptionHome: 15.0,
					feed.OptionDraw: 5.0,
					feed.OptionAway: 1.25,
				},
			},
		},
	}

	op := d.Detect(data, State{}, time.Now())
	if op == nil {
		t.Fatal("one-goal away lead at minute 88 should trigger")
	}
	if op.Option != feed.OptionAway {
		t.Errorf("option = %q, want %q", op.Option, feed.OptionAway)
	}
	if op.CooldownMin < 12 {
		t.Errorf("leader-rule cooldown = %d, want at least 12", op.CooldownMin)
	}
}

func TestDetectLeaderTwoGoalsNoTrigger(t *testing.T) {
	d := testDetector()
	data := &feed.LiveData{
		Stats: feed.LiveStats{Score: "2-0", MatchClock: "88'", HomeGoals: 2, AwayGoals: 0},
		Markets: map[string]feed.LiveMarket{
			feed.MarketMatchResult: {
				Options: map[string]float64{feed.OptionHome: 1.05},
			},
		},
	}
	if op := d.Detect(data, State{}, time.Now()); op != nil {
		t.Errorf("two-goal lead must not trigger the leader rule: %+v", op)
	}
}

func TestDetectRejectsThinEdge(t *testing.T) {
	d := testDetector()
	data := goallessLate("78'", 1.02)
	if op := d.Detect(data, State{}, time.Now()); op != nil {
		t.Errorf("odd below the live floor must not trigger: %+v", op)
	}
}
