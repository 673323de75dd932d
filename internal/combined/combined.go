// Package combined builds and settles the daily multi-leg slip out of the
// day's high-confidence picks.
package combined

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"betauto/internal/betting"
	"betauto/internal/config"
	"betauto/internal/database"
	"betauto/internal/notify"
)

// Builder assembles, refreshes and resolves combined slips.
type Builder struct {
	cfg      *config.Config
	db       *database.Database
	notifier notify.Notifier
}

func New(cfg *config.Config, db *database.Database, notifier notify.Notifier) *Builder {
	return &Builder{cfg: cfg, db: db, notifier: notifier}
}

// BuildForToday collects the day's high-confidence pending games into one
// slip. An existing pending slip for the day is refreshed in place, so legs
// promoted later in the day join it instead of spawning a second slip.
// Returns the slip, or nil when fewer than two legs qualify.
func (b *Builder) BuildForToday(now time.Time) (*database.CombinedBet, error) {
	dayStart, dayEnd := b.dayBounds(now)

	games, err := b.db.HighConfPending(dayStart, dayEnd, b.cfg.HighConfThreshold)
	if err != nil {
		return nil, err
	}
	ids, picks, odds := legsFrom(games)
	if len(ids) < 2 {
		return nil, nil
	}

	combinedOdd := 1.0
	var probSum float64
	for _, o := range odds {
		combinedOdd *= o
	}
	for _, g := range games {
		probSum += g.PickProb
	}

	stake := b.cfg.CombinedStake
	potential := stake.Mul(decimal.NewFromFloat(combinedOdd)).Round(2)

	slip, err := b.db.PendingSlipForDay(dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	created := slip == nil
	if created {
		slip = &database.CombinedBet{BetDate: dayStart, Status: database.SlipPending}
	}
	if err := slip.SetLegs(ids, picks, odds); err != nil {
		return nil, err
	}
	slip.CombinedOdd = combinedOdd
	slip.ExampleStake = stake.StringFixed(2)
	slip.PotentialReturn = potential.StringFixed(2)
	slip.AvgConfidence = probSum / float64(len(games))

	if created {
		err = b.db.CreateSlip(slip)
	} else {
		err = b.db.SaveSlip(slip)
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("legs", slip.TotalGames).
		Float64("combined_odd", combinedOdd).
		Msg("🎰 Combined slip built")

	if err := b.notifier.CombinedSlip(slip, games); err != nil {
		log.Error().Err(err).Uint("slip_id", slip.ID).Msg("Combined slip notification failed")
	}
	return slip, nil
}

// ResolvePending settles every pending slip whose legs have all ended with a
// known outcome. A slip wins only when every leg hit.
func (b *Builder) ResolvePending(now time.Time) error {
	slips, err := b.db.PendingSlips()
	if err != nil {
		return err
	}
	for i := range slips {
		slip := &slips[i]
		settled, err := b.resolve(slip)
		if err != nil {
			log.Error().Err(err).Uint("slip_id", slip.ID).Msg("Slip resolution failed")
			continue
		}
		if settled {
			log.Info().Uint("slip_id", slip.ID).Str("status", slip.Status).Msg("🏁 Combined slip settled")
		}
	}
	return nil
}

func (b *Builder) resolve(slip *database.CombinedBet) (bool, error) {
	ids, err := slip.SlipGameIDs()
	if err != nil || len(ids) == 0 {
		return false, err
	}
	games, err := b.db.GamesByIDs(ids)
	if err != nil {
		return false, err
	}
	if len(games) != len(ids) {
		return false, nil
	}

	allHit := true
	for _, g := range games {
		if g.Status != database.StatusEnded || g.Outcome == nil {
			return false, nil
		}
		if *g.Outcome != g.Pick {
			allHit = false
		}
	}

	slip.Hit = &allHit
	if allHit {
		slip.Status = database.SlipWon
	} else {
		slip.Status = database.SlipLost
	}
	return true, b.db.SaveSlip(slip)
}

// Accuracy reports the rolling hit rate of settled slips over the window.
func (b *Builder) Accuracy(now time.Time, window time.Duration) (total, won int, rate float64, err error) {
	slips, err := b.db.SettledSlipsSince(now.Add(-window))
	if err != nil {
		return 0, 0, 0, err
	}
	for _, slip := range slips {
		total++
		if slip.Hit != nil && *slip.Hit {
			won++
		}
	}
	if total > 0 {
		rate = float64(won) / float64(total)
	}
	return total, won, rate, nil
}

// legsFrom extracts the parallel leg arrays. Picks are stored as team names
// (or the draw label) so the rendered slip reads like a betting ticket.
func legsFrom(games []database.Game) ([]uint, []string, []float64) {
	var ids []uint
	var picks []string
	var odds []float64
	for _, g := range games {
		odd := g.PickOdd()
		if g.Pick == "" || odd <= 0 {
			continue
		}
		ids = append(ids, g.ID)
		odds = append(odds, odd)
		switch g.Pick {
		case betting.PickHome:
			picks = append(picks, g.TeamHome)
		case betting.PickAway:
			picks = append(picks, g.TeamAway)
		default:
			picks = append(picks, "Empate")
		}
	}
	return ids, picks, odds
}

func (b *Builder) dayBounds(now time.Time) (time.Time, time.Time) {
	loc := b.cfg.Location()
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}
