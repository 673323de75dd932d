package watchlist

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

	"betauto/internal/config"
	"betauto/internal/database"
	"betauto/internal/feed"
	"betauto/internal/notify"
)

func testConfig() *config.Config {
	return &config.Config{
		Timezone:          "UTC",
		MinEV:             0.05,
		MinProb:           0.42,
		HighConfThreshold: 0.60,
		Bankroll:          decimal.NewFromInt(1000),
		KellyFraction:     0.25,
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

type fakeProvider struct {
	events map[string][]feed.EventRow
}

func (f *fakeProvider) FetchEvents(ctx context.Context, link string) ([]feed.EventRow, error) {
	return f.events[link], nil
}

type recordingHooks struct {
	mu  sync.Mutex
	ids []uint
}

func (h *recordingHooks) ScheduleGame(g *database.Game) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ids = append(h.ids, g.ID)
}

type promotionNotifier struct {
	notify.Nop
	promotions int
}

func (n *promotionNotifier) WatchlistPromotion(*database.Game) error {
	n.promotions++
	return nil
}

func seedEntry(t *testing.T, db *database.Database, extID string, start time.Time) *database.WatchlistEntry {
	t.Helper()
	e := &database.WatchlistEntry{
		ExtID: extID, SourceLink: "l1", StartTime: start,
		LastProb: 0.38, LastEV: 0.01,
	}
	if _, err := db.AddWatchlistEntry(e); err != nil {
		t.Fatalf("seed entry: %v", err)
	}
	return e
}

func TestRescanPromotesQualifiedEntry(t *testing.T) {
	db := testDB(t)
	start := time.Now().UTC().Add(2 * time.Hour)
	seedEntry(t, db, "ev-1", start)

	// Prices firmed into a clear favorite: normalized home probability
	// ~0.64 clears the free pass.
	provider := &fakeProvider{events: map[string][]feed.EventRow{
		"l1": {{
			ExtID: "ev-1", TeamHome: "Casa FC", TeamAway: "Fora FC",
			OddsHome: 1.45, OddsDraw: 4.40, OddsAway: 6.50,
		}},
	}}
	hooks := &recordingHooks{}
	n := &promotionNotifier{}
	m := New(testConfig(), db, provider, n, hooks)

	if err := m.Rescan(context.Background()); err != nil {
		t.Fatalf("rescan: %v", err)
	}

	size, err := db.WatchlistSize()
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	if size != 0 {
		t.Errorf("watchlist size = %d, want 0 after promotion", size)
	}
	g, err := db.FindGameByExt("ev-1", start)
	if err != nil || g == nil {
		t.Fatalf("promoted game missing: %v", err)
	}
	if !g.WillBet {
		t.Error("promoted game not selected")
	}
	if g.PickReason != "watchlist upgrade" {
		t.Errorf("reason = %q, want watchlist upgrade", g.PickReason)
	}
	if n.promotions != 1 {
		t.Errorf("promotion messages = %d, want 1", n.promotions)
	}
	if len(hooks.ids) != 1 {
		t.Errorf("scheduled games = %d, want 1", len(hooks.ids))
	}
}

func TestRescanUpdatesButKeepsUnqualifiedEntry(t *testing.T) {
	db := testDB(t)
	start := time.Now().UTC().Add(2 * time.Hour)
	seedEntry(t, db, "ev-1", start)

	// Still a near miss: best probability ~0.39.
	provider := &fakeProvider{events: map[string][]feed.EventRow{
		"l1": {{
			ExtID: "ev-1", TeamHome: "A", TeamAway: "B",
			OddsHome: 2.60, OddsDraw: 3.20, OddsAway: 3.40,
		}},
	}}
	m := New(testConfig(), db, provider, notify.Nop{}, nil)

	if err := m.Rescan(context.Background()); err != nil {
		t.Fatalf("rescan: %v", err)
	}

	entries, err := db.Watchlist()
	if err != nil {
		t.Fatalf("watchlist: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].LastProb < 0.37 || entries[0].LastProb > 0.40 {
		t.Errorf("last prob = %.3f, want refreshed near 0.388", entries[0].LastProb)
	}
}

func TestRescanExpiresPastEntry(t *testing.T) {
	db := testDB(t)
	start := time.Now().UTC().Add(-time.Hour)
	seedEntry(t, db, "ev-1", start)

	// Past kickoff and no longer high confidence: dropped.
	provider := &fakeProvider{events: map[string][]feed.EventRow{
		"l1": {{
			ExtID: "ev-1", TeamHome: "A", TeamAway: "B",
			OddsHome: 2.60, OddsDraw: 3.20, OddsAway: 3.40,
		}},
	}}
	m := New(testConfig(), db, provider, notify.Nop{}, nil)

	if err := m.Rescan(context.Background()); err != nil {
		t.Fatalf("rescan: %v", err)
	}

	size, err := db.WatchlistSize()
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	if size != 0 {
		t.Errorf("watchlist size = %d, want 0 after expiry", size)
	}
}

func TestRescanKeepsPastHighConfidenceEntry(t *testing.T) {
	db := testDB(t)
	start := time.Now().UTC().Add(-time.Hour)
	seedEntry(t, db, "ev-1", start)

	// Past kickoff but still pricing as high confidence, inside the grace
	// window: kept for the next pass.
	provider := &fakeProvider{events: map[string][]feed.EventRow{
		"l1": {{
			ExtID: "ev-1", TeamHome: "A", TeamAway: "B",
			OddsHome: 1.45, OddsDraw: 4.40, OddsAway: 6.50,
		}},
	}}
	m := New(testConfig(), db, provider, notify.Nop{}, nil)

	if err := m.Rescan(context.Background()); err != nil {
		t.Fatalf("rescan: %v", err)
	}

	size, err := db.WatchlistSize()
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	if size != 1 {
		t.Errorf("watchlist size = %d, want 1 within grace", size)
	}
}

func TestRescanPurgesAbandonedEntries(t *testing.T) {
	db := testDB(t)
	// Far past even the high-confidence grace window.
	seedEntry(t, db, "ev-stale", time.Now().UTC().Add(-8*time.Hour))
	seedEntry(t, db, "ev-fresh", time.Now().UTC().Add(2*time.Hour))

	// The provider knows nothing about either entry; the stale one must go
	// anyway, the fresh one stays.
	m := New(testConfig(), db, &fakeProvider{events: map[string][]feed.EventRow{}}, notify.Nop{}, nil)

	if err := m.Rescan(context.Background()); err != nil {
		t.Fatalf("rescan: %v", err)
	}

	entries, err := db.Watchlist()
	if err != nil {
		t.Fatalf("watchlist: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].ExtID != "ev-fresh" {
		t.Errorf("surviving entry = %q, want ev-fresh", entries[0].ExtID)
	}
}

func TestRescanKeepsEntryWhenEventVanishes(t *testing.T) {
	db := testDB(t)
	start := time.Now().UTC().Add(2 * time.Hour)
	seedEntry(t, db, "ev-1", start)

	m := New(testConfig(), db, &fakeProvider{events: map[string][]feed.EventRow{}}, notify.Nop{}, nil)

	if err := m.Rescan(context.Background()); err != nil {
		t.Fatalf("rescan: %v", err)
	}

	size, err := db.WatchlistSize()
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	if size != 1 {
		t.Errorf("watchlist size = %d, want 1 when event missing", size)
	}
}
