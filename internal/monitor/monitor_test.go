package monitor

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"betauto/internal/combined"
	"betauto/internal/config"
	"betauto/internal/database"
	"betauto/internal/feed"
	"betauto/internal/notify"
	"betauto/internal/scheduler"
)

func testConfig() *config.Config {
	return &config.Config{
		Timezone:                "UTC",
		ResultLookback:          48 * time.Hour,
		HighConfThreshold:       0.60,
		LiveMinOdd:              1.20,
		LiveMinEdge:             0.02,
		LiveMinScore:            0.60,
		LiveMinConfidence:       0.70,
		LiveCooldownMin:         8,
		LiveSamePickCooldownMin: 20,
		Bankroll:                decimal.NewFromInt(1000),
		KellyFraction:           0.25,
		CombinedStake:           decimal.NewFromInt(10),
		StartAlertMin:           15,
		LateWatchWindowMin:      130,
	}
}

func testDB(t *testing.T) *database.Database {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	d, err := database.NewWithGorm(gdb)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := gdb.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	})
	return d
}

// fakeLive serves a fixed in-play snapshot.
type fakeLive struct {
	data *feed.LiveData
}

func (f *fakeLive) FetchLiveData(ctx context.Context, extID, link string) (*feed.LiveData, error) {
	return f.data, nil
}

// fakeResults serves a fixed settlement.
type fakeResults struct {
	outcome feed.Outcome
	ok      bool
	calls   int
}

func (f *fakeResults) FetchResult(ctx context.Context, extID, link string) (feed.Outcome, bool, error) {
	f.calls++
	return f.outcome, f.ok, nil
}

// countingNotifier tallies messages by kind.
type countingNotifier struct {
	notify.Nop
	mu        sync.Mutex
	started   int
	results   int
	summaries int
}

func (n *countingNotifier) AnalysisStarted(*database.Game) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started++
	return nil
}

func (n *countingNotifier) GameResult(*database.Game) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results++
	return nil
}

func (n *countingNotifier) Summary(string, []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries++
	return nil
}

func testMonitor(t *testing.T, db *database.Database, liveFeed feed.LiveSource,
	results feed.ResultSource, n notify.Notifier) *Monitor {
	t.Helper()
	cfg := testConfig()
	sched := scheduler.New(time.UTC)
	sched.Start(context.Background())
	t.Cleanup(sched.Stop)
	slips := combined.New(cfg, db, n)
	return New(cfg, db, liveFeed, results, n, sched, slips)
}

func middayToday() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, time.UTC)
}

func liveGame(t *testing.T, db *database.Database, extID string, minutesAgo int) *database.Game {
	t.Helper()
	g, err := db.UpsertGame(&database.Game{
		ExtID: extID, SourceLink: "l1", TeamHome: "Casa FC", TeamAway: "Fora FC",
		StartTime: time.Now().UTC().Add(-time.Duration(minutesAgo) * time.Minute),
		OddsHome:  2.0, OddsDraw: 3.4, OddsAway: 4.0,
		Pick: "home", PickProb: 0.55, WillBet: true, Status: database.StatusLive,
	})
	if err != nil {
		t.Fatalf("seed game: %v", err)
	}
	return g
}

func TestTickAnnouncesAnalysisOnce(t *testing.T) {
	db := testDB(t)
	liveGame(t, db, "ev-1", 30)

	n := &countingNotifier{}
	src := &fakeLive{data: &feed.LiveData{
		Stats: feed.LiveStats{Score: "0-0", MatchClock: "30"},
	}}
	m := testMonitor(t, db, src, &fakeResults{}, n)

	for i := 0; i < 3; i++ {
		if err := m.Tick(context.Background()); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}
	if n.started != 1 {
		t.Errorf("analysis started sent %d times, want 1", n.started)
	}
}

func TestTickSettlesFinishedGame(t *testing.T) {
	db := testDB(t)
	g := liveGame(t, db, "ev-1", 110)

	n := &countingNotifier{}
	src := &fakeLive{data: &feed.LiveData{
		Stats: feed.LiveStats{Score: "2-1", MatchClock: "FT", HomeGoals: 2, AwayGoals: 1},
	}}
	results := &fakeResults{outcome: feed.OutcomeHome, ok: true}
	m := testMonitor(t, db, src, results, n)

	if err := m.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	got, err := db.GetGame(g.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != database.StatusEnded {
		t.Errorf("status = %q, want ended", got.Status)
	}
	if got.Outcome == nil || *got.Outcome != "home" {
		t.Errorf("outcome = %v, want home", got.Outcome)
	}
	if got.Hit == nil || !*got.Hit {
		t.Errorf("hit = %v, want true", got.Hit)
	}
	if n.results != 1 {
		t.Errorf("result messages = %d, want 1", n.results)
	}
}

func TestTickArmsRetryWhenResultNotSettled(t *testing.T) {
	db := testDB(t)
	g := liveGame(t, db, "ev-1", 110)

	src := &fakeLive{data: &feed.LiveData{
		Stats: feed.LiveStats{Score: "1-0", MatchClock: "FT", HomeGoals: 1},
	}}
	results := &fakeResults{ok: false}
	m := testMonitor(t, db, src, results, &countingNotifier{})

	if err := m.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	got, err := db.GetGame(g.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != database.StatusEnded {
		t.Errorf("status = %q, want ended", got.Status)
	}
	if got.Outcome != nil {
		t.Errorf("outcome = %v, want unsettled", got.Outcome)
	}
	if results.calls != 1 {
		t.Errorf("result fetches = %d, want 1", results.calls)
	}
}

func TestDailyWrapupSentOnce(t *testing.T) {
	db := testDB(t)
	// Midday anchor keeps the seeds inside today's window whatever the
	// wall clock says.
	midday := middayToday()
	for _, extID := range []string{"ev-1", "ev-2"} {
		hit := extID == "ev-1"
		out := "home"
		g, err := db.UpsertGame(&database.Game{
			ExtID: extID, SourceLink: "l1", TeamHome: "A", TeamAway: "B",
			StartTime: midday,
			Pick:      "home", WillBet: true, Status: database.StatusEnded,
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		g.Outcome = &out
		g.Hit = &hit
		if err := db.SaveGame(g); err != nil {
			t.Fatalf("settle seed: %v", err)
		}
	}

	n := &countingNotifier{}
	m := testMonitor(t, db, &fakeLive{}, &fakeResults{}, n)

	for i := 0; i < 2; i++ {
		if err := m.maybeDailyWrapup(context.Background()); err != nil {
			t.Fatalf("wrapup %d: %v", i, err)
		}
	}
	if n.summaries != 1 {
		t.Errorf("summaries = %d, want 1", n.summaries)
	}
}

func TestDailyWrapupWaitsForOpenGames(t *testing.T) {
	db := testDB(t)
	if _, err := db.UpsertGame(&database.Game{
		ExtID: "ev-open", SourceLink: "l1", TeamHome: "A", TeamAway: "B",
		StartTime: middayToday(),
		Pick:      "home", WillBet: true, Status: database.StatusLive,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	n := &countingNotifier{}
	m := testMonitor(t, db, &fakeLive{}, &fakeResults{}, n)

	if err := m.maybeDailyWrapup(context.Background()); err != nil {
		t.Fatalf("wrapup: %v", err)
	}
	if n.summaries != 0 {
		t.Errorf("summaries = %d, want 0 while a game is open", n.summaries)
	}
}

func TestRecoverRescuesStaleScheduledGames(t *testing.T) {
	db := testDB(t)
	now := time.Now().UTC()

	// Kicked off 70 minutes before the restart: still inside the live
	// window, must come back under monitoring.
	mid, err := db.UpsertGame(&database.Game{
		ExtID: "ev-mid", SourceLink: "l1", TeamHome: "A", TeamAway: "B",
		StartTime: now.Add(-70 * time.Minute),
		Pick:      "home", WillBet: true, Status: database.StatusScheduled,
	})
	if err != nil {
		t.Fatalf("seed mid: %v", err)
	}
	// Played out entirely during the downtime: needs settlement, not
	// monitoring.
	old, err := db.UpsertGame(&database.Game{
		ExtID: "ev-old", SourceLink: "l1", TeamHome: "C", TeamAway: "D",
		StartTime: now.Add(-4 * time.Hour),
		Pick:      "home", WillBet: true, Status: database.StatusScheduled,
	})
	if err != nil {
		t.Fatalf("seed old: %v", err)
	}

	results := &fakeResults{outcome: feed.OutcomeHome, ok: true}
	m := testMonitor(t, db, &fakeLive{}, results, &countingNotifier{})
	if err := m.Recover(context.Background()); err != nil {
		t.Fatalf("recover: %v", err)
	}

	gotMid, err := db.GetGame(mid.ID)
	if err != nil {
		t.Fatalf("reload mid: %v", err)
	}
	if gotMid.Status != database.StatusLive {
		t.Errorf("mid-window game status = %q, want live", gotMid.Status)
	}

	gotOld, err := db.GetGame(old.ID)
	if err != nil {
		t.Fatalf("reload old: %v", err)
	}
	if gotOld.Status != database.StatusEnded {
		t.Errorf("old game status = %q, want ended", gotOld.Status)
	}
	if gotOld.Outcome == nil || *gotOld.Outcome != "home" {
		t.Errorf("old game outcome = %v, want home", gotOld.Outcome)
	}
	if results.calls == 0 {
		t.Error("no result fetch attempted for the played-out game")
	}
}

func TestRecoverActivatesGamesStartedDuringDowntime(t *testing.T) {
	db := testDB(t)
	now := time.Now().UTC()
	g, err := db.UpsertGame(&database.Game{
		ExtID: "ev-1", SourceLink: "l1", TeamHome: "A", TeamAway: "B",
		StartTime: now.Add(-20 * time.Minute),
		Pick:      "home", WillBet: true, Status: database.StatusScheduled,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	m := testMonitor(t, db, &fakeLive{}, &fakeResults{}, &countingNotifier{})
	if err := m.Recover(context.Background()); err != nil {
		t.Fatalf("recover: %v", err)
	}

	got, err := db.GetGame(g.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != database.StatusLive {
		t.Errorf("status = %q, want live after recovery", got.Status)
	}
}
