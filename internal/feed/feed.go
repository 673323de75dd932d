// Package feed defines the boundary to the odds provider: event listings,
// in-play data and settled results. The engine only consumes these types; how
// they are obtained (scraping, API, fixtures) is the client's business.
package feed

import "context"

// Outcome labels a settled 1X2 market.
type Outcome string

const (
	OutcomeHome Outcome = "home"
	OutcomeDraw Outcome = "draw"
	OutcomeAway Outcome = "away"
)

// EventRow is one match as listed on a competition page.
type EventRow struct {
	Competition   string  `json:"competition"`
	TeamHome      string  `json:"team_home"`
	TeamAway      string  `json:"team_away"`
	StartLocalStr string  `json:"start_local"`
	OddsHome      float64 `json:"odds_home"`
	OddsDraw      float64 `json:"odds_draw"`
	OddsAway      float64 `json:"odds_away"`
	ExtID         string  `json:"ext_id"`
	GameURL       string  `json:"game_url"`
	IsLive        bool    `json:"is_live"`
}

// LiveStats is the current state of an in-play match. Expanded statistics are
// optional: a nil pointer means the provider did not expose that figure.
type LiveStats struct {
	Score      string `json:"score"`
	MatchClock string `json:"match_time"`
	HomeGoals  int    `json:"home_goals"`
	AwayGoals  int    `json:"away_goals"`
	LastEvent  string `json:"last_event"`

	ShotsHome      *int `json:"shots_home"`
	ShotsAway      *int `json:"shots_away"`
	PossessionHome *int `json:"possession_home"`
	CornersHome    *int `json:"corners_home"`
	CornersAway    *int `json:"corners_away"`
}

// LiveMarket is one in-play market with its priced options.
type LiveMarket struct {
	DisplayName string             `json:"display_name"`
	Options     map[string]float64 `json:"options"`
}

// LiveData bundles stats and markets for one in-play match.
type LiveData struct {
	Stats   LiveStats             `json:"stats"`
	Markets map[string]LiveMarket `json:"markets"`
}

// Market keys the detector understands.
const (
	MarketBTTS        = "btts"
	MarketMatchResult = "match_result"
)

// Option labels used by the provider for the match_result market.
const (
	OptionHome = "Casa"
	OptionAway = "Fora"
	OptionDraw = "Empate"
	OptionNo   = "Não"
)

// Provider lists upcoming and in-play events for a competition link.
type Provider interface {
	FetchEvents(ctx context.Context, link string) ([]EventRow, error)
}

// LiveSource fetches in-play stats and markets for one match.
type LiveSource interface {
	FetchLiveData(ctx context.Context, extID, link string) (*LiveData, error)
}

// ResultSource fetches the settled outcome for one match. ok is false when
// the result is not yet available; that is not an error.
type ResultSource interface {
	FetchResult(ctx context.Context, extID, link string) (outcome Outcome, ok bool, err error)
}
