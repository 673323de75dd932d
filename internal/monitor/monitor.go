// Package monitor drives the in-play state machine: activating games at
// kickoff, ticking live analysis, settling results and sending the daily
// wrap-up when the card is done.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"betauto/internal/betting"
	"betauto/internal/combined"
	"betauto/internal/config"
	"betauto/internal/database"
	"betauto/internal/feed"
	"betauto/internal/live"
	"betauto/internal/notify"
	"betauto/internal/scheduler"
)

// liveWindow bounds how long after kickoff a game is still ticked live:
// regulation plus stoppage plus a generous buffer.
const liveWindow = 2*time.Hour + 30*time.Minute

// activationWindow keeps the kickoff sweep from reprocessing old rows the
// recovery pass owns.
const activationWindow = 5 * time.Minute

// resultRetryDelay spaces retries when the feed has no settled outcome yet.
const resultRetryDelay = 5 * time.Minute

// searchUpdateEvery paces the "still searching" message per game.
const searchUpdateEvery = time.Hour

// Monitor owns live analysis and settlement for selected games.
type Monitor struct {
	cfg       *config.Config
	db        *database.Database
	liveFeed  feed.LiveSource
	results   feed.ResultSource
	notifier  notify.Notifier
	sched     *scheduler.Scheduler
	detector  *live.Detector
	validator *live.Validator
	slips     *combined.Builder
}

func New(cfg *config.Config, db *database.Database, liveFeed feed.LiveSource,
	results feed.ResultSource, notifier notify.Notifier, sched *scheduler.Scheduler,
	slips *combined.Builder) *Monitor {
	return &Monitor{
		cfg:      cfg,
		db:       db,
		liveFeed: liveFeed,
		results:  results,
		notifier: notifier,
		sched:    sched,
		slips:    slips,
		detector: live.NewDetector(live.DetectorConfig{
			MinOdd:        cfg.LiveMinOdd,
			MinEdge:       cfg.LiveMinEdge,
			MinScore:      cfg.LiveMinScore,
			CooldownMin:   cfg.LiveCooldownMin,
			SamePickCDMin: cfg.LiveSamePickCooldownMin,
			Bankroll:      cfg.Bankroll,
			KellyFraction: cfg.KellyFraction,
		}),
		validator: live.NewValidator(live.ValidatorConfig{
			MinConfidence:      cfg.LiveMinConfidence,
			RequireOddMovement: cfg.LiveRequireOddMovement,
		}),
	}
}

// ActivateStartingGames flips freshly kicked-off selected games to live.
func (m *Monitor) ActivateStartingGames(ctx context.Context) error {
	now := time.Now().UTC()
	games, err := m.db.GamesToActivate(now, activationWindow)
	if err != nil {
		return err
	}
	for i := range games {
		g := &games[i]
		g.Status = database.StatusLive
		if err := m.db.SaveGame(g); err != nil {
			log.Error().Err(err).Uint("game_id", g.ID).Msg("Activation save failed")
			continue
		}
		log.Info().Str("match", g.TeamHome+" x "+g.TeamAway).Msg("▶️ Game is live")
	}
	return nil
}

// Tick analyzes every live selected game once. Skipped entirely while no
// game is selected, so an idle day costs nothing.
func (m *Monitor) Tick(ctx context.Context) error {
	selected, err := m.db.CountWillBet()
	if err != nil {
		return err
	}
	if selected == 0 {
		return nil
	}

	now := time.Now().UTC()
	games, err := m.db.LiveGames(now, liveWindow)
	if err != nil {
		return err
	}
	for i := range games {
		if err := m.tickGame(ctx, &games[i], now); err != nil {
			log.Error().Err(err).Uint("game_id", games[i].ID).Msg("Live tick failed")
		}
	}
	return nil
}

func (m *Monitor) tickGame(ctx context.Context, g *database.Game, now time.Time) error {
	tracker, created, err := m.db.GetOrCreateTracker(g.ID, g.ExtID, now)
	if err != nil {
		return err
	}
	if created {
		// The tracker row doubles as the restart-safe marker for this
		// message: a rebooted process finds it and stays quiet.
		if err := m.notifier.AnalysisStarted(g); err != nil {
			log.Error().Err(err).Uint("game_id", g.ID).Msg("Analysis-started message failed")
		}
	}

	data, err := m.liveFeed.FetchLiveData(ctx, g.ExtID, m.gameLink(g))
	if err != nil {
		return err
	}

	prevAnalysis := tracker.LastAnalysisAt
	m.snapshotTracker(tracker, data, now)

	if live.IsFinished(data.Stats.MatchClock) && g.Status == database.StatusLive {
		g.Status = database.StatusEnded
		if err := m.db.SaveGame(g); err != nil {
			return err
		}
		log.Info().Uint("game_id", g.ID).Msg("🏁 Finish detected live, fetching result")
		if err := m.fetchAndSettle(ctx, g); err != nil {
			return err
		}
		return m.db.SaveTracker(tracker)
	}

	st := live.State{
		CooldownUntil:  tracker.CooldownUntil,
		LastPickKey:    tracker.LastPickKey,
		LastPickSentAt: tracker.LastPickSentAt,
		LastAnalysisAt: prevAnalysis,
	}

	op := m.detector.Detect(data, st, now)
	if op != nil {
		trail, err := m.oddsTrail(g.ID)
		if err != nil {
			return err
		}
		verdict := m.validator.Validate(op, data, st, trail, now)
		if !verdict.Reliable {
			log.Info().
				Uint("game_id", g.ID).
				Float64("score", verdict.Confidence).
				Str("reason", verdict.Reason).
				Msg("⚠️ Opportunity rejected by validation")
			op = nil
		} else {
			m.sendOpportunity(g, tracker, op, verdict.Confidence, now)
		}
	}
	if op == nil {
		m.maybeSearchUpdate(g, tracker, data, now)
	}

	return m.db.SaveTracker(tracker)
}

func (m *Monitor) sendOpportunity(g *database.Game, tracker *database.LiveTracker,
	op *live.Opportunity, confidence float64, now time.Time) {
	if err := m.notifier.LiveOpportunity(g, op, confidence); err != nil {
		log.Error().Err(err).Uint("game_id", g.ID).Msg("Live opportunity message failed")
		return
	}
	sent := now
	until := now.Add(time.Duration(op.CooldownMin) * time.Minute)
	tracker.LastPickSentAt = &sent
	tracker.LastPickKey = op.PickKey
	tracker.CooldownUntil = &until
	tracker.Notifications++
	log.Info().
		Uint("game_id", g.ID).
		Str("pick", op.PickKey).
		Float64("odd", op.Odd).
		Float64("confidence", confidence).
		Msg("✅ Live opportunity sent")
}

// maybeSearchUpdate keeps the chat informed on long quiet games, at most
// once an hour per game.
func (m *Monitor) maybeSearchUpdate(g *database.Game, tracker *database.LiveTracker,
	data *feed.LiveData, now time.Time) {
	last := tracker.CreatedAt
	if tracker.LastPickSentAt != nil && tracker.LastPickSentAt.After(last) {
		last = *tracker.LastPickSentAt
	}
	if tracker.LastSearchUpdateAt != nil && tracker.LastSearchUpdateAt.After(last) {
		last = *tracker.LastSearchUpdateAt
	}
	if now.Sub(last) < searchUpdateEvery {
		return
	}
	if err := m.notifier.SearchUpdate(g, data.Stats.MatchClock); err != nil {
		log.Error().Err(err).Uint("game_id", g.ID).Msg("Search update failed")
		return
	}
	sent := now
	tracker.LastSearchUpdateAt = &sent
}

func (m *Monitor) snapshotTracker(tracker *database.LiveTracker, data *feed.LiveData, now time.Time) {
	tracker.CurrentScore = data.Stats.Score
	tracker.CurrentMinute = data.Stats.MatchClock
	tracker.LastAnalysisAt = now
	if raw, err := json.Marshal(data.Stats); err == nil {
		tracker.StatsSnapshot = string(raw)
	}
}

func (m *Monitor) oddsTrail(gameID uint) (live.OddsTrail, error) {
	var trail live.OddsTrail
	first, err := m.db.FirstOddsSample(gameID)
	if err != nil {
		return trail, err
	}
	if first != nil {
		trail.First = &betting.Odds{Home: first.OddsHome, Draw: first.OddsDraw, Away: first.OddsAway}
	}
	recent, err := m.db.RecentOddsSamples(gameID, 3)
	if err != nil {
		return trail, err
	}
	for _, s := range recent {
		trail.Recent = append(trail.Recent, betting.Odds{Home: s.OddsHome, Draw: s.OddsDraw, Away: s.OddsAway})
	}
	return trail, nil
}

// fetchAndSettle pulls the final outcome and closes the game. When the feed
// has not settled yet, a retry is armed instead of blocking the tick.
func (m *Monitor) fetchAndSettle(ctx context.Context, g *database.Game) error {
	outcome, ok, err := m.results.FetchResult(ctx, g.ExtID, m.gameLink(g))
	if err != nil {
		return err
	}
	if !ok {
		log.Warn().Uint("game_id", g.ID).Msg("⚠️ Result not settled yet, retry armed")
		id := g.ID
		m.sched.Once(fmt.Sprintf("result:%d", id), time.Now().Add(resultRetryDelay), func(ctx context.Context) {
			m.WatchUntilEnd(ctx, id)
		})
		return nil
	}
	return m.settle(ctx, g, outcome)
}

func (m *Monitor) settle(ctx context.Context, g *database.Game, outcome feed.Outcome) error {
	out := string(outcome)
	g.Status = database.StatusEnded
	g.Outcome = &out
	if g.Pick != "" {
		hit := out == g.Pick
		g.Hit = &hit
	}
	if err := m.db.SaveGame(g); err != nil {
		return err
	}

	log.Info().
		Uint("game_id", g.ID).
		Str("outcome", out).
		Interface("hit", g.Hit).
		Msg("🏁 Game settled")

	if err := m.notifier.GameResult(g); err != nil {
		log.Error().Err(err).Uint("game_id", g.ID).Msg("Result message failed")
	}
	if err := m.slips.ResolvePending(time.Now().UTC()); err != nil {
		log.Error().Err(err).Msg("Slip resolution after settle failed")
	}
	if err := m.maybeDailyWrapup(ctx); err != nil {
		log.Error().Err(err).Msg("Daily wrap-up check failed")
	}
	return nil
}

// WatchUntilEnd polls one game's result until the feed settles it. Runs as a
// keyed one-shot so each game has at most one pending poll.
func (m *Monitor) WatchUntilEnd(ctx context.Context, gameID uint) {
	g, err := m.db.GetGame(gameID)
	if err != nil {
		log.Warn().Err(err).Uint("game_id", gameID).Msg("Watcher found no game")
		return
	}
	if g.Status == database.StatusEnded && g.Outcome != nil {
		return
	}
	if err := m.fetchAndSettle(ctx, g); err != nil {
		log.Error().Err(err).Uint("game_id", gameID).Msg("Result watch failed")
	}
}

func (m *Monitor) gameLink(g *database.Game) string {
	if g.GameURL != "" {
		return g.GameURL
	}
	return g.SourceLink
}
