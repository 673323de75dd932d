// Package watchlist re-evaluates near-miss games on a fast loop and promotes
// the ones whose numbers cross the selection cut.
package watchlist

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"betauto/internal/betting"
	"betauto/internal/config"
	"betauto/internal/database"
	"betauto/internal/feed"
	"betauto/internal/notify"
	"betauto/internal/scanner"
)

// highConfGrace keeps an expired high-confidence entry alive a while past
// kickoff: the market sometimes still takes the bet early in the match.
const highConfGrace = 6 * time.Hour

// Manager owns the watchlist rescan loop.
type Manager struct {
	cfg      *config.Config
	db       *database.Database
	provider feed.Provider
	notifier notify.Notifier
	hooks    scanner.GameHooks
	th       betting.Thresholds
}

func New(cfg *config.Config, db *database.Database, provider feed.Provider,
	notifier notify.Notifier, hooks scanner.GameHooks) *Manager {
	return &Manager{
		cfg:      cfg,
		db:       db,
		provider: provider,
		notifier: notifier,
		hooks:    hooks,
		th:       cfg.BettingThresholds(),
	}
}

// Rescan walks every entry: expired ones are dropped, survivors are
// re-decided against fresh prices and promoted when they qualify. Each link
// is fetched once per pass regardless of how many entries share it.
func (m *Manager) Rescan(ctx context.Context) error {
	now := time.Now().UTC()

	// Safety sweep first: entries abandoned past the grace window are gone
	// regardless of what the page fetch would say about them.
	if purged, err := m.db.PurgeWatchlistBefore(now.Add(-highConfGrace)); err != nil {
		log.Error().Err(err).Msg("Watchlist purge failed")
	} else if purged > 0 {
		log.Info().Int64("purged", purged).Msg("🧹 Purged abandoned watchlist entries")
	}

	entries, err := m.db.Watchlist()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	log.Info().Int("entries", len(entries)).Msg("🔄 Rescanning watchlist")

	pages := m.fetchPages(ctx, entries)

	var promoted, removed int
	for i := range entries {
		e := &entries[i]
		ev, found := pages[e.SourceLink][e.ExtID]

		if !e.StartTime.After(now) {
			if m.expire(e, ev, found, now) {
				removed++
			}
			continue
		}
		if !found {
			// The event vanished from the page. Card layouts shuffle;
			// keep the entry and retry next pass.
			continue
		}
		if m.evaluate(ctx, e, ev, now) {
			promoted++
		}
	}

	log.Info().Int("promoted", promoted).Int("expired", removed).Msg("Watchlist pass done")
	return nil
}

// expire removes a past-kickoff entry unless it still prices as high
// confidence and is within the grace window.
func (m *Manager) expire(e *database.WatchlistEntry, ev feed.EventRow, found bool, now time.Time) bool {
	if found {
		dec := betting.Decide(betting.Odds{Home: ev.OddsHome, Draw: ev.OddsDraw, Away: ev.OddsAway}, nil, m.th)
		if dec.Prob >= m.cfg.HighConfThreshold && !now.After(e.StartTime.Add(highConfGrace)) {
			log.Info().Str("ext_id", e.ExtID).Msg("⏰ Kept past kickoff, still high confidence")
			return false
		}
	}
	if err := m.db.RemoveWatchlistEntry(e.ID); err != nil {
		log.Error().Err(err).Str("ext_id", e.ExtID).Msg("Watchlist remove failed")
		return false
	}
	return true
}

// evaluate re-decides the entry and promotes when it crosses the cut. High
// confidence promotes unconditionally.
func (m *Manager) evaluate(ctx context.Context, e *database.WatchlistEntry, ev feed.EventRow, now time.Time) bool {
	dec := betting.Decide(betting.Odds{Home: ev.OddsHome, Draw: ev.OddsDraw, Away: ev.OddsAway}, nil, m.th)

	freePass := dec.Prob >= m.cfg.HighConfThreshold
	promote := freePass || (dec.WillBet && dec.Prob >= m.cfg.MinProb && dec.EV >= m.cfg.MinEV)
	if !promote {
		e.LastProb = dec.Prob
		e.LastEV = dec.EV
		if err := m.db.SaveWatchlistEntry(e); err != nil {
			log.Error().Err(err).Str("ext_id", e.ExtID).Msg("Watchlist update failed")
		}
		return false
	}

	g, err := m.db.UpsertGame(&database.Game{
		ExtID:       e.ExtID,
		SourceLink:  e.SourceLink,
		GameURL:     ev.GameURL,
		Competition: ev.Competition,
		TeamHome:    ev.TeamHome,
		TeamAway:    ev.TeamAway,
		StartTime:   e.StartTime,
		OddsHome:    ev.OddsHome,
		OddsDraw:    ev.OddsDraw,
		OddsAway:    ev.OddsAway,
		Pick:        dec.Pick,
		PickProb:    dec.Prob,
		PickEV:      dec.EV,
		PickReason:  "watchlist upgrade",
		WillBet:     true,
		Status:      database.StatusScheduled,
	})
	if err != nil {
		log.Error().Err(err).Str("ext_id", e.ExtID).Msg("Watchlist promotion upsert failed")
		return false
	}
	if err := m.db.AddOddsSample(g, now); err != nil {
		log.Error().Err(err).Uint("game_id", g.ID).Msg("Odds sample write failed")
	}

	if g.PickProb >= m.cfg.HighConfThreshold && !g.HighConfNotified() {
		if err := m.notifier.WatchlistPromotion(g); err != nil {
			log.Error().Err(err).Uint("game_id", g.ID).Msg("Promotion notification failed")
		} else {
			sentAt := now
			g.NotifyState = database.NotifySent
			g.NotifiedAt = &sentAt
			if err := m.db.SaveGame(g); err != nil {
				log.Error().Err(err).Uint("game_id", g.ID).Msg("Notify state save failed")
			}
		}
	}

	if m.hooks != nil {
		m.hooks.ScheduleGame(g)
	}
	if err := m.db.RemoveWatchlistEntry(e.ID); err != nil {
		log.Error().Err(err).Str("ext_id", e.ExtID).Msg("Watchlist remove after promotion failed")
	}
	log.Info().
		Str("match", g.TeamHome+" x "+g.TeamAway).
		Float64("prob", g.PickProb).
		Msg("⬆️ Promoted from watchlist")
	return true
}

// fetchPages fetches each distinct source link once and indexes the events
// by external ID.
func (m *Manager) fetchPages(ctx context.Context, entries []database.WatchlistEntry) map[string]map[string]feed.EventRow {
	links := map[string]bool{}
	for _, e := range entries {
		links[e.SourceLink] = true
	}

	pages := make(map[string]map[string]feed.EventRow, len(links))
	for link := range links {
		events, err := m.provider.FetchEvents(ctx, link)
		if err != nil {
			log.Warn().Err(err).Str("link", link).Msg("Watchlist page fetch failed")
			pages[link] = map[string]feed.EventRow{}
			continue
		}
		index := make(map[string]feed.EventRow, len(events))
		for _, ev := range events {
			index[ev.ExtID] = ev
		}
		pages[link] = index
	}
	return pages
}
