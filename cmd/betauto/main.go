// Betauto - automated pre-match and in-play football betting engine.
//
// The engine scans the feed every morning, prices each match with the value
// cascade, stakes selections with fractional Kelly, watches near-misses on a
// fast loop, monitors selected games live and settles everything back into
// the database. Telegram carries every signal.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"betauto/internal/combined"
	"betauto/internal/config"
	"betauto/internal/database"
	"betauto/internal/feed"
	"betauto/internal/monitor"
	"betauto/internal/notify"
	"betauto/internal/scanner"
	"betauto/internal/scheduler"
	"betauto/internal/watchlist"
)

const version = "1.0.0"

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().
		Str("version", version).
		Str("timezone", cfg.Timezone).
		Int("links", len(cfg.FeedLinks)).
		Msg("⚽ Betauto starting...")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}

	client := feed.NewClient(cfg.FeedBaseURL, cfg.FeedTimeout)

	var notifier notify.Notifier
	if cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize Telegram")
		}
		notifier = tg
		log.Info().Msg("📱 Telegram connected")
	} else {
		notifier = notify.Nop{}
		log.Warn().Msg("⚠️ No TELEGRAM_CHAT_ID, notifications disabled")
	}

	sched := scheduler.New(cfg.Location())
	sched.Start(ctx)

	slips := combined.New(cfg, db, notifier)
	mon := monitor.New(cfg, db, client, client, notifier, sched, slips)
	scan := scanner.New(cfg, db, client, notifier, mon)
	watch := watchlist.New(cfg, db, client, notifier, mon)

	// Re-arm everything a restart dropped before the first jobs fire.
	if err := mon.Recover(ctx); err != nil {
		log.Error().Err(err).Msg("Recovery pass failed")
	}

	registerJobs(cfg, sched, scan, watch, mon, slips)

	log.Info().Msg("✅ All systems online")

	<-ctx.Done()
	log.Info().Msg("🛑 Received shutdown signal")
	sched.Stop()
	log.Info().Msg("👋 Goodbye!")
}

func registerJobs(cfg *config.Config, sched *scheduler.Scheduler, scan *scanner.Scanner,
	watch *watchlist.Manager, mon *monitor.Monitor, slips *combined.Builder) {

	sched.DailyAt("morning_scan", cfg.MorningHour, 0, func(ctx context.Context) {
		if _, err := scan.ScanDate(ctx, 0); err != nil {
			log.Error().Err(err).Msg("Morning scan failed")
			return
		}
		if _, err := slips.BuildForToday(time.Now().UTC()); err != nil {
			log.Error().Err(err).Msg("Combined slip build failed")
		}
	})

	sched.DailyAt("collect_tomorrow", cfg.CollectTomorrowHour, 0, func(ctx context.Context) {
		if _, err := scan.ScanDate(ctx, 1); err != nil {
			log.Error().Err(err).Msg("Tomorrow collection failed")
		}
	})

	if cfg.NightScanEnabled {
		sched.DailyAt("night_scan", cfg.NightScanHour, 0, func(ctx context.Context) {
			if err := scan.NightScan(ctx); err != nil {
				log.Error().Err(err).Msg("Night scan failed")
			}
		})
	}

	sched.DailyAt("dawn_games", cfg.DawnGamesHour, 0, func(ctx context.Context) {
		if err := scan.DawnGamesSummary(ctx); err != nil {
			log.Error().Err(err).Msg("Dawn summary failed")
		}
	})

	sched.DailyAt("today_games", cfg.SendTodayHour, 30, func(ctx context.Context) {
		if err := scan.TodayGamesSummary(ctx); err != nil {
			log.Error().Err(err).Msg("Today summary failed")
		}
	})

	sched.Every("hourly_rescan", time.Hour, false, func(ctx context.Context) {
		if err := scan.HourlyRescan(ctx); err != nil {
			log.Error().Err(err).Msg("Hourly rescan failed")
		}
	})

	sched.Every("watchlist_rescan", time.Duration(cfg.WatchlistRescanMin)*time.Minute, false,
		func(ctx context.Context) {
			if err := watch.Rescan(ctx); err != nil {
				log.Error().Err(err).Msg("Watchlist rescan failed")
			}
		})

	sched.Every("activate_games", time.Minute, true, func(ctx context.Context) {
		if err := mon.ActivateStartingGames(ctx); err != nil {
			log.Error().Err(err).Msg("Activation sweep failed")
		}
	})

	sched.Every("live_monitor", time.Duration(cfg.MonitorIntervalMin)*time.Minute, false,
		func(ctx context.Context) {
			if err := mon.Tick(ctx); err != nil {
				log.Error().Err(err).Msg("Live monitor tick failed")
			}
		})

	if cfg.DailySummaryHour >= 0 {
		sched.DailyAt("daily_summary", cfg.DailySummaryHour, 0, func(ctx context.Context) {
			if err := mon.DailyWrapup(ctx); err != nil {
				log.Error().Err(err).Msg("Daily summary failed")
			}
		})
	}

	sched.Every("resolve_slips", 10*time.Minute, false, func(ctx context.Context) {
		if err := slips.ResolvePending(time.Now().UTC()); err != nil {
			log.Error().Err(err).Msg("Slip resolution failed")
		}
	})

	sched.Every("result_sweep", 30*time.Minute, false, func(ctx context.Context) {
		if _, err := mon.SweepMissingResults(ctx); err != nil {
			log.Error().Err(err).Msg("Result sweep failed")
		}
	})

	log.Info().
		Int("morning_hour", cfg.MorningHour).
		Int("watchlist_min", cfg.WatchlistRescanMin).
		Int("monitor_min", cfg.MonitorIntervalMin).
		Msg("🗓️ Jobs registered")
}
