package database

import (
	"time"
)

// Game lifecycle states.
const (
	StatusScheduled = "scheduled"
	StatusLive      = "live"
	StatusEnded     = "ended"
)

// Notification dedup states for a Game's pre-match pick message.
const (
	NotifyNotSent = "not_sent"
	NotifySent    = "sent"
)

// CombinedBet lifecycle states.
const (
	SlipPending = "pending"
	SlipWon     = "won"
	SlipLost    = "lost"
)

// Game is one match as tracked by the engine. (ext_id, start_time) is unique;
// rows are created on first sighting and never deleted.
type Game struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	ExtID      string `gorm:"index;uniqueIndex:uq_game_extid_start"`
	SourceLink string
	GameURL    string

	Competition string
	TeamHome    string
	TeamAway    string
	StartTime   time.Time `gorm:"index;uniqueIndex:uq_game_extid_start"`

	OddsHome float64
	OddsDraw float64
	OddsAway float64

	Pick       string // home|draw|away, empty when no selection
	PickReason string
	PickProb   float64
	PickEV     float64
	WillBet    bool `gorm:"index"`

	Status  string  `gorm:"index;default:scheduled"`
	Outcome *string // home|draw|away once settled
	Hit     *bool   // set only when Status=ended and Outcome is known

	// Pre-match pick notification dedup ledger. NotifyState flips to "sent"
	// only after the transport confirms delivery.
	NotifyState string `gorm:"default:not_sent"`
	NotifiedAt  *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HighConfNotified reports whether the high-confidence pick message went out.
func (g *Game) HighConfNotified() bool {
	return g.NotifyState == NotifySent
}

// PickOdd returns the stored odd matching the current pick, 0 when no pick.
func (g *Game) PickOdd() float64 {
	switch g.Pick {
	case "home":
		return g.OddsHome
	case "draw":
		return g.OddsDraw
	case "away":
		return g.OddsAway
	}
	return 0
}

// LiveTracker is the per-match live monitoring state, one-to-one with a Game
// that entered live analysis. Created lazily on the first live tick, never
// deleted.
type LiveTracker struct {
	ID     uint   `gorm:"primaryKey;autoIncrement"`
	GameID uint   `gorm:"uniqueIndex:uq_tracker_game"`
	ExtID  string `gorm:"index"`

	LastAnalysisAt     time.Time
	LastPickKey        string // "market|option" of the last notified pick
	LastPickSentAt     *time.Time
	LastSearchUpdateAt *time.Time
	CooldownUntil      *time.Time
	Notifications      int

	CurrentScore  string
	CurrentMinute string
	StatsSnapshot string `gorm:"type:text"` // JSON snapshot of the last LiveStats

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OddsHistorySample is an append-only snapshot of the three market odds,
// written at selection, promotion and every refresh.
type OddsHistorySample struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"`
	GameID   uint   `gorm:"index"`
	ExtID    string `gorm:"index"`
	OddsHome float64
	OddsDraw float64
	OddsAway float64

	Timestamp time.Time `gorm:"index"`
	CreatedAt time.Time
}

// WatchlistEntry holds a match that narrowly missed selection and is
// re-evaluated periodically until promoted or expired.
type WatchlistEntry struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	ExtID      string    `gorm:"uniqueIndex:uq_watch_extid_start"`
	SourceLink string
	StartTime  time.Time `gorm:"uniqueIndex:uq_watch_extid_start"`

	LastProb float64
	LastEV   float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CombinedBet aggregates the day's high-confidence games into one slip.
// GameIDs, Picks and Odds are parallel JSON arrays.
type CombinedBet struct {
	ID      uint      `gorm:"primaryKey;autoIncrement"`
	BetDate time.Time `gorm:"index"`

	GameIDs string `gorm:"type:text"` // JSON []uint
	Picks   string `gorm:"type:text"` // JSON []string, team names or "Empate"
	Odds    string `gorm:"type:text"` // JSON []float64

	CombinedOdd     float64
	ExampleStake    string // decimal string
	PotentialReturn string // decimal string
	AvgConfidence   float64
	TotalGames      int

	Status string `gorm:"index;default:pending"`
	Hit    *bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Stat is a generic key-value row used for cross-cycle flags (daily summary
// sent marker and similar ledgers). Value is JSON.
type Stat struct {
	ID    uint   `gorm:"primaryKey;autoIncrement"`
	Key   string `gorm:"uniqueIndex"`
	Value string `gorm:"type:text"`

	UpdatedAt time.Time
}
