// Package scanner runs the pre-match pipeline: fetch the day's events,
// decide each one, persist, and route notifications and per-game scheduling.
package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"betauto/internal/betting"
	"betauto/internal/config"
	"betauto/internal/database"
	"betauto/internal/feed"
	"betauto/internal/notify"
)

// feedConcurrency caps parallel gateway fetches during a scan.
const feedConcurrency = 4

// GameHooks lets the orchestrator arm per-game jobs (reminder, watcher)
// whenever a scan selects or refreshes a game.
type GameHooks interface {
	ScheduleGame(g *database.Game)
}

// Stats summarizes one scan pass.
type Stats struct {
	Analyzed int
	Selected int
	Stored   int
}

// Scanner is the pre-match decision pipeline.
type Scanner struct {
	cfg      *config.Config
	db       *database.Database
	provider feed.Provider
	notifier notify.Notifier
	hooks    GameHooks
	th       betting.Thresholds
}

func New(cfg *config.Config, db *database.Database, provider feed.Provider,
	notifier notify.Notifier, hooks GameHooks) *Scanner {
	return &Scanner{
		cfg:      cfg,
		db:       db,
		provider: provider,
		notifier: notifier,
		hooks:    hooks,
		th:       cfg.BettingThresholds(),
	}
}

// ScanDate fetches every configured link and processes events starting on the
// local date now+offset days. offset 0 is the morning scan, 1 the overnight
// collection of tomorrow's card.
func (s *Scanner) ScanDate(ctx context.Context, offset int) (Stats, error) {
	loc := s.cfg.Location()
	target := time.Now().In(loc).AddDate(0, 0, offset)
	targetDay := target.Format("2006-01-02")
	log.Info().Str("date", targetDay).Msg("📅 Starting scan")

	batches, analyzed := s.fetchAll(ctx)

	stats := Stats{Analyzed: analyzed}
	now := time.Now().UTC()
	for _, batch := range batches {
		for _, ev := range batch.events {
			start, err := s.parseStart(ev.StartLocalStr)
			if err != nil {
				continue
			}
			if start.In(loc).Format("2006-01-02") != targetDay {
				continue
			}
			selected, err := s.processEvent(batch.link, ev, start, now)
			if err != nil {
				log.Error().Err(err).Str("ext_id", ev.ExtID).Msg("Event processing failed")
				continue
			}
			if selected {
				stats.Selected++
				stats.Stored++
			}
		}
	}

	log.Info().
		Int("analyzed", stats.Analyzed).
		Int("selected", stats.Selected).
		Msg("🧾 Scan finished")
	return stats, nil
}

// NightScan covers the gap the morning scan misses: games kicking off between
// 00:00 and 06:00 tomorrow. Selected games are summarized in one message.
func (s *Scanner) NightScan(ctx context.Context) error {
	loc := s.cfg.Location()
	tomorrow := time.Now().In(loc).AddDate(0, 0, 1)
	windowStart := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, loc)
	windowEnd := windowStart.Add(6 * time.Hour)
	log.Info().Time("from", windowStart).Time("to", windowEnd).Msg("🌙 Night scan for early games")

	batches, analyzed := s.fetchAll(ctx)

	now := time.Now().UTC()
	var picked []database.Game
	for _, batch := range batches {
		for _, ev := range batch.events {
			start, err := s.parseStart(ev.StartLocalStr)
			if err != nil {
				continue
			}
			if start.Before(windowStart.UTC()) || !start.Before(windowEnd.UTC()) {
				continue
			}
			selected, err := s.processEvent(batch.link, ev, start, now)
			if err != nil {
				log.Error().Err(err).Str("ext_id", ev.ExtID).Msg("Night event processing failed")
				continue
			}
			if selected {
				if g, ferr := s.db.FindGameByExt(ev.ExtID, start); ferr == nil && g != nil {
					picked = append(picked, *g)
				}
			}
		}
	}

	if len(picked) > 0 {
		lines := make([]string, 0, len(picked))
		for _, g := range picked {
			lines = append(lines, fmt.Sprintf("• %s x %s (%s)",
				g.TeamHome, g.TeamAway, g.StartTime.In(loc).Format("15:04")))
		}
		if err := s.notifier.Summary(
			fmt.Sprintf("Early games for %s (analyzed %d)", tomorrow.Format("02/01"), analyzed),
			lines,
		); err != nil {
			log.Error().Err(err).Msg("Night scan summary failed")
		}
	}
	log.Info().Int("analyzed", analyzed).Int("selected", len(picked)).Msg("🌙 Night scan finished")
	return nil
}

// processEvent decides one event and persists the verdict. Every sighted game
// is stored, selected or not, so recovery after a restart has full history.
// Returns whether the game ended up selected.
func (s *Scanner) processEvent(link string, ev feed.EventRow, start, now time.Time) (bool, error) {
	odds := betting.Odds{Home: ev.OddsHome, Draw: ev.OddsDraw, Away: ev.OddsAway}

	// A price from over an hour ago feeds the drift penalty.
	var prior *betting.Odds
	if existing, err := s.db.FindGameByExt(ev.ExtID, start); err == nil && existing != nil {
		if sample, err := s.db.PriorOddsSample(existing.ID, now.Add(-time.Hour)); err == nil && sample != nil {
			prior = &betting.Odds{Home: sample.OddsHome, Draw: sample.OddsDraw, Away: sample.OddsAway}
		}
	}

	dec := betting.Decide(odds, prior, s.th)
	freePass := dec.Prob >= s.cfg.HighConfThreshold
	selected := dec.WillBet || freePass

	status := database.StatusScheduled
	if ev.IsLive {
		status = database.StatusLive
	}
	candidate := &database.Game{
		ExtID:       ev.ExtID,
		SourceLink:  link,
		GameURL:     ev.GameURL,
		Competition: ev.Competition,
		TeamHome:    ev.TeamHome,
		TeamAway:    ev.TeamAway,
		StartTime:   start,
		OddsHome:    ev.OddsHome,
		OddsDraw:    ev.OddsDraw,
		OddsAway:    ev.OddsAway,
		Pick:        dec.Pick,
		PickProb:    dec.Prob,
		PickEV:      dec.EV,
		PickReason:  dec.Reason,
		WillBet:     selected,
		Status:      status,
	}
	g, err := s.db.UpsertGame(candidate)
	if err != nil {
		return false, err
	}

	if !selected {
		s.maybeWatchlist(ev, link, start, dec, now)
		return false, nil
	}

	if err := s.db.AddOddsSample(g, now); err != nil {
		log.Error().Err(err).Uint("game_id", g.ID).Msg("Odds sample write failed")
	}

	log.Info().
		Str("match", g.TeamHome+" x "+g.TeamAway).
		Str("pick", g.Pick).
		Float64("prob", g.PickProb).
		Float64("ev", g.PickEV).
		Msg("✅ Game selected")

	s.notifyHighConf(g)
	if s.hooks != nil {
		s.hooks.ScheduleGame(g)
	}
	return true, nil
}

// maybeWatchlist stores near-misses for the fast rescan loop.
func (s *Scanner) maybeWatchlist(ev feed.EventRow, link string, start time.Time, dec betting.Decision, now time.Time) {
	if ev.IsLive {
		return
	}
	if dec.EV < s.cfg.MinEV-s.cfg.WatchlistDelta || dec.Prob < s.cfg.MinProb-0.05 {
		return
	}
	lead := start.Sub(now)
	if lead < time.Duration(s.cfg.WatchlistMinLeadMin)*time.Minute {
		return
	}
	added, err := s.db.AddWatchlistEntry(&database.WatchlistEntry{
		ExtID:      ev.ExtID,
		SourceLink: link,
		StartTime:  start,
		LastProb:   dec.Prob,
		LastEV:     dec.EV,
	})
	if err != nil {
		log.Error().Err(err).Str("ext_id", ev.ExtID).Msg("Watchlist add failed")
		return
	}
	if added {
		log.Info().
			Str("match", ev.TeamHome+" x "+ev.TeamAway).
			Float64("prob", dec.Prob).
			Float64("ev", dec.EV).
			Msg("👀 Added to watchlist")
	}
}

// notifyHighConf sends the immediate pick message for high-confidence games,
// at most once per game. The notify state flips only after delivery.
func (s *Scanner) notifyHighConf(g *database.Game) {
	if g.PickProb < s.cfg.HighConfThreshold || g.HighConfNotified() {
		return
	}
	stake := betting.SizeStake(s.cfg.Bankroll, g.PickOdd(), g.PickProb, s.cfg.KellyFraction)
	if err := s.notifier.PickSelected(g, stake); err != nil {
		log.Error().Err(err).Uint("game_id", g.ID).Msg("Pick notification failed")
		return
	}
	now := time.Now().UTC()
	g.NotifyState = database.NotifySent
	g.NotifiedAt = &now
	if err := s.db.SaveGame(g); err != nil {
		log.Error().Err(err).Uint("game_id", g.ID).Msg("Notify state save failed")
	}
}

type linkBatch struct {
	link   string
	events []feed.EventRow
}

// fetchAll pulls every configured link concurrently. A failed link logs and
// yields an empty batch; the scan continues with the rest.
func (s *Scanner) fetchAll(ctx context.Context) ([]linkBatch, int) {
	batches := make([]linkBatch, len(s.cfg.FeedLinks))
	var mu sync.Mutex
	analyzed := 0

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(feedConcurrency)
	for i, link := range s.cfg.FeedLinks {
		i, link := i, link
		eg.Go(func() error {
			events, err := s.provider.FetchEvents(ctx, link)
			if err != nil {
				log.Warn().Err(err).Str("link", link).Msg("Feed fetch failed")
				events = nil
			}
			mu.Lock()
			batches[i] = linkBatch{link: link, events: events}
			analyzed += len(events)
			mu.Unlock()
			return nil
		})
	}
	eg.Wait()
	return batches, analyzed
}

// parseStart parses the feed's local kickoff string into UTC.
func (s *Scanner) parseStart(raw string) (time.Time, error) {
	loc := s.cfg.Location()
	layouts := []string{"02/01/2006 15:04", "2006-01-02 15:04", time.RFC3339}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable start time %q", raw)
}
