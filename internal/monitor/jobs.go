package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"betauto/internal/database"
)

// wrapupAccuracyWindow is the rolling window the combined-slip hit rate in
// the daily wrap-up covers.
const wrapupAccuracyWindow = 30 * 24 * time.Hour

// ScheduleGame arms the per-game one-shot jobs for a selected game: the
// kickoff reminder and the live watcher. Keyed on the game ID, so calling it
// again (rescan, promotion, restart recovery) replaces pending jobs instead
// of duplicating them.
func (m *Monitor) ScheduleGame(g *database.Game) {
	now := time.Now().UTC()
	id := g.ID

	reminderAt := g.StartTime.Add(-time.Duration(m.cfg.StartAlertMin) * time.Minute)
	if now.Before(reminderAt) {
		minutes := m.cfg.StartAlertMin
		m.sched.Once(fmt.Sprintf("reminder:%d", id), reminderAt, func(ctx context.Context) {
			m.sendReminder(id, minutes)
		})
	} else if now.Before(g.StartTime) {
		// Inside the alert window already: the reminder time has passed but
		// the game has not kicked off.
		if err := m.notifier.GameStartingSoon(g); err != nil {
			log.Error().Err(err).Uint("game_id", id).Msg("Starting-soon message failed")
		}
	}

	watchAt := g.StartTime
	if !now.Before(watchAt) {
		lateCutoff := g.StartTime.Add(time.Duration(m.cfg.LateWatchWindowMin) * time.Minute)
		if now.After(lateCutoff) {
			log.Warn().Uint("game_id", id).Msg("⏭️ Kickoff too far gone, watcher not armed")
			return
		}
		watchAt = now
	}
	m.sched.Once(fmt.Sprintf("watch:%d", id), watchAt, func(ctx context.Context) {
		m.WatchUntilEnd(ctx, id)
	})

	log.Info().
		Uint("game_id", id).
		Time("kickoff", g.StartTime).
		Msg("📅 Game jobs armed")
}

func (m *Monitor) sendReminder(gameID uint, minutes int) {
	g, err := m.db.GetGame(gameID)
	if err != nil {
		log.Warn().Err(err).Uint("game_id", gameID).Msg("Reminder found no game")
		return
	}
	if !g.WillBet || g.Status != database.StatusScheduled {
		return
	}
	if err := m.notifier.GameReminder(g, minutes); err != nil {
		log.Error().Err(err).Uint("game_id", gameID).Msg("Reminder message failed")
	}
}

// DailyWrapup is the scheduled entry point for the end-of-day summary, for
// deployments that prefer a fixed hour over settle-triggered delivery.
func (m *Monitor) DailyWrapup(ctx context.Context) error {
	return m.maybeDailyWrapup(ctx)
}

// maybeDailyWrapup sends the end-of-day result summary once all of today's
// selected games are settled. The sent marker is written before the message
// goes out, so a notifier hiccup cannot produce a duplicate summary.
func (m *Monitor) maybeDailyWrapup(ctx context.Context) error {
	now := time.Now().UTC()
	loc := m.cfg.Location()
	local := now.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	key := "daily_summary_sent_" + dayStart.Format("2006-01-02")

	sent, err := m.db.StatHas(key)
	if err != nil || sent {
		return err
	}

	games, err := m.db.GamesForDay(dayStart.UTC(), dayStart.AddDate(0, 0, 1).UTC(), true)
	if err != nil {
		return err
	}
	if len(games) == 0 {
		return nil
	}
	var greens, reds int
	for _, g := range games {
		if g.Status != database.StatusEnded || g.Hit == nil {
			return nil
		}
		if *g.Hit {
			greens++
		} else {
			reds++
		}
	}

	if err := m.db.StatSet(key, true); err != nil {
		return err
	}

	lines := []string{
		fmt.Sprintf("✅ Greens: %d", greens),
		fmt.Sprintf("❌ Reds: %d", reds),
		fmt.Sprintf("🎯 Hit rate: %.0f%%", 100*float64(greens)/float64(len(games))),
	}
	if total, won, rate, err := m.slips.Accuracy(now, wrapupAccuracyWindow); err == nil && total > 0 {
		lines = append(lines, fmt.Sprintf("🎰 Combined slips (30d): %d/%d (%.0f%%)", won, total, 100*rate))
	}

	log.Info().Int("greens", greens).Int("reds", reds).Msg("📊 Daily wrap-up ready")
	return m.notifier.Summary("Results for "+dayStart.Format("02/01"), lines)
}

// Recover re-arms everything a restart dropped: live games get their trackers
// ticked again, near-kickoff scheduled games get their jobs back, and stale
// games missing a result get a settlement attempt.
func (m *Monitor) Recover(ctx context.Context) error {
	now := time.Now().UTC()

	liveGames, err := m.db.LivePendingRecovery(now, 3*time.Hour)
	if err != nil {
		return err
	}
	for i := range liveGames {
		g := liveGames[i]
		log.Info().Uint("game_id", g.ID).Msg("🔁 Resuming live game after restart")
		m.sched.Once(fmt.Sprintf("watch:%d", g.ID), now, func(ctx context.Context) {
			m.WatchUntilEnd(ctx, g.ID)
		})
	}

	// Look back over the whole live window: a game that kicked off while the
	// process was down must still reach the monitor, not stay scheduled.
	scheduled, err := m.db.ScheduledPendingRecovery(now, liveWindow, 24*time.Hour)
	if err != nil {
		return err
	}
	for i := range scheduled {
		g := &scheduled[i]
		if !g.StartTime.After(now) {
			g.Status = database.StatusLive
			if err := m.db.SaveGame(g); err != nil {
				log.Error().Err(err).Uint("game_id", g.ID).Msg("Recovery activation failed")
				continue
			}
			log.Info().Uint("game_id", g.ID).Msg("🔁 Kicked off during downtime, now live")
			continue
		}
		m.ScheduleGame(g)
	}

	settledAttempts, err := m.SweepMissingResults(ctx)
	if err != nil {
		return err
	}

	if len(liveGames)+len(scheduled)+settledAttempts > 0 {
		log.Info().
			Int("live", len(liveGames)).
			Int("scheduled", len(scheduled)).
			Int("unsettled", settledAttempts).
			Msg("♻️ Recovery pass done")
	}
	return nil
}

// SweepMissingResults looks for selected games old enough to have a result
// but still unsettled, within the configured lookback, and tries to settle
// each. Runs at startup and on a slow loop as a safety net behind the
// per-game watchers.
func (m *Monitor) SweepMissingResults(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	missing, err := m.db.MissingResults(now, m.cfg.ResultLookback, 90*time.Minute)
	if err != nil {
		return 0, err
	}
	for i := range missing {
		g := &missing[i]
		log.Info().Uint("game_id", g.ID).Msg("🔁 Fetching overdue result")
		if err := m.fetchAndSettle(ctx, g); err != nil {
			log.Error().Err(err).Uint("game_id", g.ID).Msg("Overdue settlement failed")
		}
	}
	return len(missing), nil
}
