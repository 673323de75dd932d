// Package notify delivers engine events to Telegram. Formatting lives here;
// the rest of the engine only decides WHEN a message goes out.
package notify

import (
	"betauto/internal/betting"
	"betauto/internal/database"
	"betauto/internal/live"
)

// Notifier is the outbound message surface. Every method returns the
// transport error so callers can keep their dedup ledgers honest: a state
// flag only flips after a nil return.
type Notifier interface {
	PickSelected(g *database.Game, stake betting.Stake) error
	WatchlistPromotion(g *database.Game) error
	GameReminder(g *database.Game, minutes int) error
	GameStartingSoon(g *database.Game) error
	AnalysisStarted(g *database.Game) error
	SearchUpdate(g *database.Game, minute string) error
	LiveOpportunity(g *database.Game, op *live.Opportunity, confidence float64) error
	GameResult(g *database.Game) error
	CombinedSlip(slip *database.CombinedBet, games []database.Game) error
	Summary(title string, lines []string) error
}

// Nop discards every message. Used in tests and when no chat is configured.
type Nop struct{}

func (Nop) PickSelected(*database.Game, betting.Stake) error                    { return nil }
func (Nop) WatchlistPromotion(*database.Game) error                             { return nil }
func (Nop) GameReminder(*database.Game, int) error                              { return nil }
func (Nop) GameStartingSoon(*database.Game) error                               { return nil }
func (Nop) AnalysisStarted(*database.Game) error                                { return nil }
func (Nop) SearchUpdate(*database.Game, string) error                           { return nil }
func (Nop) LiveOpportunity(*database.Game, *live.Opportunity, float64) error    { return nil }
func (Nop) GameResult(*database.Game) error                                     { return nil }
func (Nop) CombinedSlip(*database.CombinedBet, []database.Game) error           { return nil }
func (Nop) Summary(string, []string) error                                      { return nil }
