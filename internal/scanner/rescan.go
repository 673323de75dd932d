package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"betauto/internal/betting"
	"betauto/internal/database"
	"betauto/internal/feed"
)

// HourlyRescan re-prices today's not-yet-started games. A game crossing the
// high-confidence line gets the full selection treatment once; smaller EV
// improvements are folded in silently.
func (s *Scanner) HourlyRescan(ctx context.Context) error {
	now := time.Now().UTC()
	dayStart, dayEnd := s.dayBounds(now, 0, 0, 24*time.Hour)

	games, err := s.db.ScheduledForRescan(dayStart, dayEnd, now)
	if err != nil {
		return err
	}
	if len(games) == 0 {
		return nil
	}
	log.Info().Int("games", len(games)).Msg("🔄 Hourly rescan")

	// One fetch per link, then match games by external ID.
	byLink := map[string][]int{}
	for i, g := range games {
		byLink[g.SourceLink] = append(byLink[g.SourceLink], i)
	}

	for link, idxs := range byLink {
		events, err := s.provider.FetchEvents(ctx, link)
		if err != nil {
			log.Warn().Err(err).Str("link", link).Msg("Rescan fetch failed")
			continue
		}
		index := map[string]feed.EventRow{}
		for _, ev := range events {
			index[ev.ExtID] = ev
		}
		for _, i := range idxs {
			g := games[i]
			ev, ok := index[g.ExtID]
			if !ok {
				continue
			}
			if err := s.rescanGame(&g, ev, now); err != nil {
				log.Error().Err(err).Uint("game_id", g.ID).Msg("Rescan failed")
			}
		}
	}
	return nil
}

func (s *Scanner) rescanGame(g *database.Game, ev feed.EventRow, now time.Time) error {
	odds := betting.Odds{Home: ev.OddsHome, Draw: ev.OddsDraw, Away: ev.OddsAway}
	var prior *betting.Odds
	if sample, err := s.db.PriorOddsSample(g.ID, now.Add(-time.Hour)); err == nil && sample != nil {
		prior = &betting.Odds{Home: sample.OddsHome, Draw: sample.OddsDraw, Away: sample.OddsAway}
	}
	dec := betting.Decide(odds, prior, s.th)

	prevHigh := g.PickProb >= s.cfg.HighConfThreshold
	newHigh := dec.Prob >= s.cfg.HighConfThreshold

	// Transition into high confidence: take the new numbers, notify once,
	// make sure the per-game jobs are armed.
	if newHigh && !prevHigh && !g.HighConfNotified() {
		s.applyRescan(g, ev, dec)
		g.WillBet = true
		if err := s.db.SaveGame(g); err != nil {
			return err
		}
		if err := s.db.AddOddsSample(g, now); err != nil {
			log.Error().Err(err).Uint("game_id", g.ID).Msg("Odds sample write failed")
		}
		log.Info().Uint("game_id", g.ID).Float64("prob", dec.Prob).Msg("🚀 Crossed into high confidence")
		s.notifyHighConf(g)
		if s.hooks != nil {
			s.hooks.ScheduleGame(g)
		}
		return nil
	}

	// Meaningful EV improvement: silent update.
	if dec.WillBet && dec.EV > g.PickEV+0.05 {
		oldEV := g.PickEV
		s.applyRescan(g, ev, dec)
		g.PickReason = fmt.Sprintf("hourly upgrade (was EV %+.3f)", oldEV)
		if err := s.db.SaveGame(g); err != nil {
			return err
		}
		if err := s.db.AddOddsSample(g, now); err != nil {
			log.Error().Err(err).Uint("game_id", g.ID).Msg("Odds sample write failed")
		}
		log.Info().Uint("game_id", g.ID).Float64("ev", dec.EV).Msg("📈 Updated on better EV")
		s.notifyHighConf(g)
	}
	return nil
}

func (s *Scanner) applyRescan(g *database.Game, ev feed.EventRow, dec betting.Decision) {
	g.OddsHome = ev.OddsHome
	g.OddsDraw = ev.OddsDraw
	g.OddsAway = ev.OddsAway
	g.Pick = dec.Pick
	g.PickProb = dec.Prob
	g.PickEV = dec.EV
	g.PickReason = dec.Reason
}

// DawnGamesSummary lists selected games kicking off between midnight and
// 06:00 local. Nothing is sent when the window is empty.
func (s *Scanner) DawnGamesSummary(ctx context.Context) error {
	now := time.Now().UTC()
	start, end := s.dayBounds(now, 0, 0, 6*time.Hour)

	games, err := s.db.GamesForDay(start, end, true)
	if err != nil {
		return err
	}
	if len(games) == 0 {
		log.Info().Msg("⏭️ No dawn games, summary skipped")
		return nil
	}
	return s.notifier.Summary("Dawn games (00:00-06:00)", s.gameLines(games))
}

// TodayGamesSummary lists today's selected daytime games. Always sent, even
// when empty, so a quiet day is still reported.
func (s *Scanner) TodayGamesSummary(ctx context.Context) error {
	now := time.Now().UTC()
	start, end := s.dayBounds(now, 0, 6, 18*time.Hour)

	games, err := s.db.GamesForDay(start, end, true)
	if err != nil {
		return err
	}
	allStart, allEnd := s.dayBounds(now, 0, 0, 24*time.Hour)
	analyzed, err := s.db.GamesForDay(allStart, allEnd, false)
	if err != nil {
		return err
	}

	title := fmt.Sprintf("Today's games (%d selected of %d analyzed)", len(games), len(analyzed))
	return s.notifier.Summary(title, s.gameLines(games))
}

func (s *Scanner) gameLines(games []database.Game) []string {
	loc := s.cfg.Location()
	lines := make([]string, 0, len(games))
	for _, g := range games {
		lines = append(lines, fmt.Sprintf("• %s  %s x %s → %s @ %.2f",
			g.StartTime.In(loc).Format("15:04"),
			g.TeamHome, g.TeamAway, g.Pick, g.PickOdd()))
	}
	return lines
}

// dayBounds returns [start, start+span) anchored at hour o'clock on the
// local date now+offset days, converted to UTC.
func (s *Scanner) dayBounds(now time.Time, offsetDays, hour int, span time.Duration) (time.Time, time.Time) {
	loc := s.cfg.Location()
	local := now.In(loc).AddDate(0, 0, offsetDays)
	start := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	return start.UTC(), start.Add(span).UTC()
}
