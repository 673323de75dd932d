package live

import (
	"fmt"
	"strings"
	"time"

	"betauto/internal/betting"
	"betauto/internal/feed"
)

// ValidatorConfig are the second-stage reliability knobs.
type ValidatorConfig struct {
	MinConfidence      float64
	RequireOddMovement bool
}

// OddsTrail is the pre-match odds history the validator scores against.
// First is the earliest recorded sample; Recent holds up to the last three
// samples, newest first. Either may be empty when no history exists.
type OddsTrail struct {
	First  *betting.Odds
	Recent []betting.Odds
}

// Verdict is the validator's conclusion for one opportunity.
type Verdict struct {
	Reliable   bool
	Confidence float64
	Reason     string
}

// Validator scores a detected opportunity across nine independent factors
// and accepts it only when the combined confidence clears the floor and no
// critical objection was raised.
type Validator struct {
	cfg ValidatorConfig
}

func NewValidator(cfg ValidatorConfig) *Validator {
	return &Validator{cfg: cfg}
}

type factorSheet struct {
	confidence float64
	factors    []string
	soft       []string
	critical   []string
}

func (f *factorSheet) add(score float64, label string) {
	f.confidence += score
	f.factors = append(f.factors, label)
}

// Validate scores op against the live snapshot, the tracker state and the
// stored odds history. The confidence score is always reported, accepted or
// not, so every message and log line can carry it.
func (v *Validator) Validate(op *Opportunity, data *feed.LiveData, st State, trail OddsTrail, now time.Time) Verdict {
	var sheet factorSheet
	minute := ParseClock(data.Stats.MatchClock)

	v.scoreOddsMovement(op, data, trail, &sheet)
	v.scoreContext(op, data, minute, &sheet)
	v.scoreStability(op, st, now, &sheet)
	v.scoreEdge(op, &sheet)
	v.scoreLastEvent(op, data, &sheet)
	v.scoreGameStats(op, data, &sheet)
	v.scoreMomentum(op, data, &sheet)
	v.scoreOddsTrend(op, trail, &sheet)
	v.scoreMarketDepth(op, data, &sheet)

	confidence := sheet.confidence
	if confidence > 1 {
		confidence = 1
	} else if confidence < 0 {
		confidence = 0
	}

	if len(sheet.critical) > 0 {
		all := append(append([]string{}, sheet.critical...), sheet.soft...)
		return Verdict{Confidence: confidence, Reason: strings.Join(all, "; ")}
	}
	if confidence >= v.cfg.MinConfidence {
		reason := fmt.Sprintf("validated (score %.2f)", confidence)
		if len(sheet.factors) > 0 {
			reason += ": " + strings.Join(topN(sheet.factors, 3), "; ")
		}
		return Verdict{Reliable: true, Confidence: confidence, Reason: reason}
	}
	reason := fmt.Sprintf("score %.2f below %.2f", confidence, v.cfg.MinConfidence)
	if len(sheet.factors) > 0 {
		reason += ": " + strings.Join(topN(sheet.factors, 2), "; ")
	}
	return Verdict{Confidence: confidence, Reason: reason}
}

// Factor 1: how the price moved since the first recorded sample. A shortening
// price backs the pick; a price out more than 20% kills it.
func (v *Validator) scoreOddsMovement(op *Opportunity, data *feed.LiveData, trail OddsTrail, sheet *factorSheet) {
	score := 0.0
	if trail.First != nil {
		switch op.Market {
		case feed.MarketMatchResult:
			initial := matchResultOdd(*trail.First, op.Option)
			if initial > 0 {
				if op.Odd < initial {
					score = (initial - op.Odd) / initial
					if score > 0.30 {
						score = 0.30
					}
					sheet.add(score, "odds shortening since open")
				} else if op.Odd > initial*1.2 {
					sheet.critical = append(sheet.critical,
						fmt.Sprintf("odd drifted out sharply (%.2f to %.2f)", initial, op.Odd))
				}
			}
		case feed.MarketBTTS:
			// No direct history for this market; goals having moved the
			// three-way book is the indirect confirmation.
			if trail.First.Home > 0 && trail.First.Away > 0 &&
				(data.Stats.HomeGoals > 0 || data.Stats.AwayGoals > 0) {
				score = 0.15
				sheet.add(score, "book repriced after goals")
			}
		}
	}
	if v.cfg.RequireOddMovement && score == 0 {
		sheet.critical = append(sheet.critical, "required odds movement not detected")
	}
}

// Factor 2: score and clock context for the specific rule.
func (v *Validator) scoreContext(op *Opportunity, data *feed.LiveData, minute int, sheet *factorSheet) {
	switch {
	case op.Market == feed.MarketBTTS && op.Option == feed.OptionNo:
		if minute >= 75 {
			score := 0.25 + minFloat(0.15, float64(minute-75)/100)
			sheet.add(score, "long goalless stretch")
		} else {
			sheet.soft = append(sheet.soft, fmt.Sprintf("too early for a goalless call (minute %d)", minute))
		}
	case op.Market == feed.MarketMatchResult:
		diff := abs(data.Stats.HomeGoals - data.Stats.AwayGoals)
		switch {
		case diff == 1 && minute >= 85:
			sheet.add(0.30, "one-goal lead in the final minutes")
		case diff > 1:
			sheet.add(0.35, "multi-goal lead")
		case diff == 0 && minute >= 85:
			sheet.critical = append(sheet.critical, "level score late, outcome uncertain")
		}
	}
}

// Factor 3: an opportunity that survived since the previous analysis pass is
// worth more than one seen for the first time.
func (v *Validator) scoreStability(op *Opportunity, st State, now time.Time, sheet *factorSheet) {
	if st.LastPickKey == op.PickKey {
		if !st.LastAnalysisAt.IsZero() && now.Sub(st.LastAnalysisAt) >= 3*time.Minute {
			sheet.add(0.15, "pick persisted across passes")
		}
		return
	}
	sheet.add(0.05, "new pick")
}

// Factor 4: raw edge and estimated probability.
func (v *Validator) scoreEdge(op *Opportunity, sheet *factorSheet) {
	if op.Edge >= 0.05 {
		sheet.add(0.20, "strong edge")
	} else if op.Edge >= 0.02 {
		sheet.add(0.10, "moderate edge")
	}
	if op.Prob >= 0.90 {
		sheet.add(0.10, "very high probability")
	}
}

// Factor 5: the last feed event. A goal backs a result pick; a card hints at
// a momentum change without being disqualifying on its own.
func (v *Validator) scoreLastEvent(op *Opportunity, data *feed.LiveData, sheet *factorSheet) {
	event := strings.ToLower(data.Stats.LastEvent)
	if event == "" {
		return
	}
	if strings.Contains(event, "gol") || strings.Contains(event, "goal") {
		if op.Market == feed.MarketMatchResult {
			sheet.add(0.10, "recent goal confirms trend")
		}
		return
	}
	if strings.Contains(event, "cartão") || strings.Contains(event, "card") {
		sheet.confidence -= 0.05
		sheet.soft = append(sheet.soft, "recent card may shift momentum")
	}
}

// Factor 6: expanded match statistics, when the feed supplies them.
func (v *Validator) scoreGameStats(op *Opportunity, data *feed.LiveData, sheet *factorSheet) {
	s := data.Stats

	if op.Market == feed.MarketMatchResult && (op.Option == feed.OptionHome || op.Option == feed.OptionAway) {
		homeLeads := op.Option == feed.OptionHome
		if s.ShotsHome != nil && s.ShotsAway != nil {
			if (homeLeads && *s.ShotsHome > *s.ShotsAway) || (!homeLeads && *s.ShotsAway > *s.ShotsHome) {
				sheet.add(0.05, "leader out-shooting")
			}
		}
		if s.PossessionHome != nil {
			if (homeLeads && *s.PossessionHome > 50) || (!homeLeads && *s.PossessionHome < 50) {
				sheet.add(0.03, "leader holding possession")
			}
		}
		if s.CornersHome != nil && s.CornersAway != nil {
			if (homeLeads && *s.CornersHome > *s.CornersAway) || (!homeLeads && *s.CornersAway > *s.CornersHome) {
				sheet.add(0.02, "leader winning corners")
			}
		}
		return
	}

	if op.Market == feed.MarketBTTS && op.Option == feed.OptionNo {
		if s.ShotsHome != nil && s.ShotsAway != nil {
			total := *s.ShotsHome + *s.ShotsAway
			if total < 10 {
				sheet.add(0.08, "few shots all game")
			} else if total < 15 {
				sheet.add(0.04, "moderate shot count")
			}
		}
	}
}

// Factor 7: momentum around the scoreline.
func (v *Validator) scoreMomentum(op *Opportunity, data *feed.LiveData, sheet *factorSheet) {
	if op.Market != feed.MarketMatchResult {
		return
	}
	s := data.Stats
	event := strings.ToLower(s.LastEvent)
	if strings.Contains(event, "gol") || strings.Contains(event, "goal") {
		if (op.Option == feed.OptionHome && s.HomeGoals > s.AwayGoals) ||
			(op.Option == feed.OptionAway && s.AwayGoals > s.HomeGoals) {
			sheet.add(0.08, "last goal scored by the leader")
		}
	}
	if abs(s.HomeGoals-s.AwayGoals) >= 2 {
		sheet.add(0.05, "comfortable margin")
	}
}

// Factor 8: short-term price trend over the last few samples. Compares the
// live price against the second-newest sample (the newest mirrors it).
func (v *Validator) scoreOddsTrend(op *Opportunity, trail OddsTrail, sheet *factorSheet) {
	if op.Market != feed.MarketMatchResult || len(trail.Recent) < 2 {
		return
	}
	prev := matchResultOdd(trail.Recent[1], op.Option)
	if prev <= 0 {
		return
	}
	if op.Odd < prev {
		sheet.add(0.10, "price still shortening")
	} else if op.Odd > prev*1.15 {
		sheet.critical = append(sheet.critical, "price trend turned against the pick")
	}
}

// Factor 9: the market is live with enough depth to actually place the bet.
func (v *Validator) scoreMarketDepth(op *Opportunity, data *feed.LiveData, sheet *factorSheet) {
	if m, ok := data.Markets[op.Market]; ok && len(m.Options) >= 2 {
		sheet.add(0.05, "market open with full depth")
	}
}

func matchResultOdd(o betting.Odds, option string) float64 {
	switch option {
	case feed.OptionHome:
		return o.Home
	case feed.OptionAway:
		return o.Away
	default:
		return o.Draw
	}
}

func topN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
