package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all configuration for the engine.
type Config struct {
	// Telegram
	TelegramToken  string
	TelegramChatID int64

	// Mode
	Debug bool

	// Timezone the betting day is anchored to (summaries, daily jobs).
	Timezone string

	// Feed
	FeedBaseURL    string
	FeedLinks      []string
	FeedTimeout    time.Duration
	ResultLookback time.Duration

	// Pre-match decision thresholds
	MinEV   float64
	MinProb float64

	// Favorite mode
	FavMode     bool
	FavProbMin  float64
	FavGapMin   float64
	EVTolerance float64
	FavIgnoreEV bool

	// High-odds mode
	HighOddMode    bool
	HighOddMin     float64
	HighOddMaxProb float64
	HighOddMinEV   float64

	// High confidence free pass
	HighConfThreshold float64

	// Live detection
	LiveMinOdd              float64
	LiveMinEdge             float64
	LiveMinScore            float64
	LiveMinConfidence       float64
	LiveCooldownMin         int
	LiveSamePickCooldownMin int
	LiveRequireOddMovement  bool

	// Stakes
	Bankroll      decimal.Decimal
	KellyFraction float64
	CombinedStake decimal.Decimal

	// Watchlist
	WatchlistDelta      float64
	WatchlistMinLeadMin int
	WatchlistRescanMin  int

	// Scheduling
	MorningHour         int
	CollectTomorrowHour int
	DawnGamesHour       int
	SendTodayHour       int
	DailySummaryHour    int // -1 disables
	NightScanEnabled    bool
	NightScanHour       int
	StartAlertMin       int
	LateWatchWindowMin  int
	MonitorIntervalMin  int

	// Database
	DatabasePath string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),

		Debug:    getEnvBool("DEBUG", false),
		Timezone: getEnv("APP_TZ", "America/Sao_Paulo"),

		FeedBaseURL:    getEnv("FEED_BASE_URL", ""),
		FeedLinks:      splitList(os.Getenv("FEED_LINKS")),
		FeedTimeout:    getEnvDuration("FEED_TIMEOUT", 20*time.Second),
		ResultLookback: getEnvDuration("RESULT_LOOKBACK", 48*time.Hour),

		MinEV:   getEnvFloat("MIN_EV", -0.02),
		MinProb: getEnvFloat("MIN_PROB", 0.20),

		FavMode:     getEnvBool("FAV_MODE", true),
		FavProbMin:  getEnvFloat("FAV_PROB_MIN", 0.60),
		FavGapMin:   getEnvFloat("FAV_GAP_MIN", 0.10),
		EVTolerance: getEnvFloat("EV_TOL", -0.03),
		FavIgnoreEV: getEnvBool("FAV_IGNORE_EV", true),

		HighOddMode:    getEnvBool("HIGH_ODD_MODE", true),
		HighOddMin:     getEnvFloat("HIGH_ODD_MIN", 1.50),
		HighOddMaxProb: getEnvFloat("HIGH_ODD_MAX_PROB", 0.45),
		HighOddMinEV:   getEnvFloat("HIGH_ODD_MIN_EV", -0.15),

		HighConfThreshold: getEnvFloat("HIGH_CONF_THRESHOLD", 0.60),

		LiveMinOdd:              getEnvFloat("LIVE_MIN_ODD", 1.20),
		LiveMinEdge:             getEnvFloat("LIVE_MIN_EDGE", 0.02),
		LiveMinScore:            getEnvFloat("LIVE_MIN_SCORE", 0.60),
		LiveMinConfidence:       getEnvFloat("LIVE_MIN_CONFIDENCE_SCORE", 0.70),
		LiveCooldownMin:         getEnvInt("LIVE_COOLDOWN_MIN", 8),
		LiveSamePickCooldownMin: getEnvInt("LIVE_SAME_PICK_COOLDOWN_MIN", 20),
		LiveRequireOddMovement:  getEnvBool("LIVE_REQUIRE_ODD_MOVEMENT", false),

		Bankroll:      getEnvDecimal("BANKROLL", decimal.NewFromInt(1000)),
		KellyFraction: getEnvFloat("KELLY_FRACTION", 0.25),
		CombinedStake: getEnvDecimal("COMBINED_STAKE", decimal.NewFromInt(10)),

		WatchlistDelta:      getEnvFloat("WATCHLIST_DELTA", 0.05),
		WatchlistMinLeadMin: getEnvInt("WATCHLIST_MIN_LEAD_MIN", 30),
		WatchlistRescanMin:  getEnvInt("WATCHLIST_RESCAN_MIN", 3),

		MorningHour:         getEnvInt("MORNING_HOUR", 6),
		CollectTomorrowHour: getEnvInt("COLLECT_TOMORROW_HOUR", 22),
		DawnGamesHour:       getEnvInt("DAWN_GAMES_HOUR", 23),
		SendTodayHour:       getEnvInt("SEND_TODAY_HOUR", 6),
		DailySummaryHour:    getEnvInt("DAILY_SUMMARY_HOUR", -1),
		NightScanEnabled:    getEnvBool("ENABLE_NIGHT_SCAN", false),
		NightScanHour:       getEnvInt("NIGHT_SCAN_HOUR", 22),
		StartAlertMin:       getEnvInt("START_ALERT_MIN", 15),
		LateWatchWindowMin:  getEnvInt("LATE_WATCH_WINDOW_MIN", 130),
		MonitorIntervalMin:  getEnvInt("MONITOR_INTERVAL_MIN", 1),

		DatabasePath: getEnv("DATABASE_PATH", "data/betauto.db"),
	}

	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if len(cfg.FeedLinks) == 0 {
		return nil, fmt.Errorf("FEED_LINKS is required (comma-separated competition links)")
	}

	return cfg, nil
}

// Location resolves the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		v := strings.ToLower(value)
		return v == "true" || v == "1" || v == "yes" || v == "on"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
