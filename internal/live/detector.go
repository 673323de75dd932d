package live

import (
	"time"

	"github.com/shopspring/decimal"

	"betauto/internal/betting"
	"betauto/internal/feed"
)

// DetectorConfig are the in-play opportunity knobs.
type DetectorConfig struct {
	MinOdd          float64
	MinEdge         float64
	MinScore        float64
	CooldownMin     int
	SamePickCDMin   int
	Bankroll        decimal.Decimal
	KellyFraction   float64
}

// State is the slice of tracker state the detector and validator need:
// cooldown and dedup fields plus the previous analysis timestamp.
type State struct {
	CooldownUntil  *time.Time
	LastPickKey    string
	LastPickSentAt *time.Time
	LastAnalysisAt time.Time
}

// Opportunity is a validated-pending in-play pick.
type Opportunity struct {
	Market      string
	MarketName  string
	Option      string
	Odd         float64
	Prob        float64
	Edge        float64
	Score       float64
	PickKey     string
	CooldownMin int
	Stake       betting.Stake
}

// Detector scans live market snapshots for the two supported rules:
// no-goals-yet on the both-teams-score market, and a one-goal leader on the
// match result market late in the game.
type Detector struct {
	cfg DetectorConfig
}

func NewDetector(cfg DetectorConfig) *Detector {
	return &Detector{cfg: cfg}
}

// Detect returns the best opportunity in the snapshot, or nil. A game inside
// its cooldown window or repeating the last notified pick too soon yields nil.
func (d *Detector) Detect(data *feed.LiveData, st State, now time.Time) *Opportunity {
	if st.CooldownUntil != nil && now.Before(*st.CooldownUntil) {
		return nil
	}

	minute := ParseClock(data.Stats.MatchClock)

	var best *Opportunity
	if op := d.ruleNoGoals(data, minute); op != nil {
		best = op
	}
	if op := d.ruleLateLeader(data, minute); op != nil {
		if best == nil || op.Score > best.Score {
			best = op
		}
	}
	if best == nil {
		return nil
	}

	if best.Edge < d.cfg.MinEdge || best.Score < d.cfg.MinScore {
		return nil
	}

	// A pick identical to the last one sent stays quiet for the long window.
	if best.PickKey == st.LastPickKey && st.LastPickSentAt != nil {
		silence := time.Duration(d.cfg.SamePickCDMin) * time.Minute
		if now.Sub(*st.LastPickSentAt) < silence {
			return nil
		}
	}

	best.Stake = betting.SizeStake(d.cfg.Bankroll, best.Odd, best.Prob, d.cfg.KellyFraction)
	return best
}

// ruleNoGoals fires on a goalless game in the closing stretch: the "no" side
// of both-teams-score gets more likely every scoreless minute.
func (d *Detector) ruleNoGoals(data *feed.LiveData, minute int) *Opportunity {
	if data.Stats.HomeGoals != 0 || data.Stats.AwayGoals != 0 {
		return nil
	}
	if minute < 75 || minute > 90 {
		return nil
	}
	market, ok := data.Markets[feed.MarketBTTS]
	if !ok {
		return nil
	}
	odd, ok := market.Options[feed.OptionNo]
	if !ok || odd < d.cfg.MinOdd {
		return nil
	}

	breakeven := 1 / odd
	bonus := 0.02
	if minute >= 85 {
		bonus = 0.03
	}
	prob := breakeven + bonus
	if prob > 0.95 {
		prob = 0.95
	}
	edge := prob*odd - 1

	return &Opportunity{
		Market:      feed.MarketBTTS,
		MarketName:  market.DisplayName,
		Option:      feed.OptionNo,
		Odd:         odd,
		Prob:        prob,
		Edge:        edge,
		Score:       0.4 + 0.3 + clampScore(edge, 0.3),
		PickKey:     pickKey(feed.MarketBTTS, feed.OptionNo),
		CooldownMin: d.cfg.CooldownMin,
	}
}

// ruleLateLeader fires when one side leads by exactly one goal in the final
// minutes: the leader holding on is priced generously more often than not.
func (d *Detector) ruleLateLeader(data *feed.LiveData, minute int) *Opportunity {
	diff := data.Stats.HomeGoals - data.Stats.AwayGoals
	if diff != 1 && diff != -1 {
		return nil
	}
	if minute < 85 || minute > 90 {
		return nil
	}
	market, ok := data.Markets[feed.MarketMatchResult]
	if !ok {
		return nil
	}
	option := feed.OptionHome
	if diff < 0 {
		option = feed.OptionAway
	}
	odd, ok := market.Options[option]
	if !ok || odd < d.cfg.MinOdd {
		return nil
	}

	prob := 1/odd + 0.03
	if prob > 0.98 {
		prob = 0.98
	}
	edge := prob*odd - 1

	cooldown := d.cfg.CooldownMin
	if cooldown < 12 {
		cooldown = 12
	}

	return &Opportunity{
		Market:      feed.MarketMatchResult,
		MarketName:  market.DisplayName,
		Option:      option,
		Odd:         odd,
		Prob:        prob,
		Edge:        edge,
		Score:       0.35 + 0.25 + clampScore(edge, 0.4),
		PickKey:     pickKey(feed.MarketMatchResult, option),
		CooldownMin: cooldown,
	}
}

func pickKey(market, option string) string {
	return market + "|" + option
}

func clampScore(v, max float64) float64 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
