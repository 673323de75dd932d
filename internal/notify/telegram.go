package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"betauto/internal/betting"
	"betauto/internal/database"
	"betauto/internal/live"
)

// Telegram sends engine messages to a single chat.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram connects to the Telegram API.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	log.Info().Str("username", api.Self.UserName).Msg("🤖 Telegram bot connected")
	return &Telegram{api: api, chatID: chatID}, nil
}

func (t *Telegram) PickSelected(g *database.Game, stake betting.Stake) error {
	text := fmt.Sprintf(`🎯 *Pick Selected*

⚽ %s x %s
🏆 %s
🕐 %s

*Pick:* %s @ %.2f
*Probability:* %.0f%%
*EV:* %+.3f
*Reason:* %s

💰 *Suggested stake:* %s (profit %s)`,
		escapeMarkdown(g.TeamHome), escapeMarkdown(g.TeamAway),
		escapeMarkdown(g.Competition),
		g.StartTime.Format("02/01 15:04"),
		pickLabel(g), g.PickOdd(),
		g.PickProb*100,
		g.PickEV,
		escapeMarkdown(g.PickReason),
		stake.Amount.StringFixed(2), stake.PotentialProfit.StringFixed(2),
	)
	return t.sendMarkdown(text)
}

func (t *Telegram) WatchlistPromotion(g *database.Game) error {
	text := fmt.Sprintf(`⬆️ *Watchlist Promotion*

⚽ %s x %s
🕐 %s

The numbers improved on re-scan:
*Pick:* %s @ %.2f
*Probability:* %.0f%% | *EV:* %+.3f`,
		escapeMarkdown(g.TeamHome), escapeMarkdown(g.TeamAway),
		g.StartTime.Format("02/01 15:04"),
		pickLabel(g), g.PickOdd(),
		g.PickProb*100, g.PickEV,
	)
	return t.sendMarkdown(text)
}

func (t *Telegram) GameReminder(g *database.Game, minutes int) error {
	text := fmt.Sprintf(`⏰ *Kickoff in %d min*

⚽ %s x %s
*Pick:* %s @ %.2f`,
		minutes,
		escapeMarkdown(g.TeamHome), escapeMarkdown(g.TeamAway),
		pickLabel(g), g.PickOdd(),
	)
	return t.sendMarkdown(text)
}

func (t *Telegram) GameStartingSoon(g *database.Game) error {
	text := fmt.Sprintf(`🔔 *Starting now*

⚽ %s x %s
Live analysis begins at kickoff.`,
		escapeMarkdown(g.TeamHome), escapeMarkdown(g.TeamAway),
	)
	return t.sendMarkdown(text)
}

func (t *Telegram) AnalysisStarted(g *database.Game) error {
	text := fmt.Sprintf(`🔍 *Live analysis started*

⚽ %s x %s
Watching the in-play markets for opportunities.`,
		escapeMarkdown(g.TeamHome), escapeMarkdown(g.TeamAway),
	)
	return t.sendMarkdown(text)
}

func (t *Telegram) SearchUpdate(g *database.Game, minute string) error {
	text := fmt.Sprintf(`🔎 *Still searching*

⚽ %s x %s (%s)
No qualifying opportunity yet, analysis continues.`,
		escapeMarkdown(g.TeamHome), escapeMarkdown(g.TeamAway),
		escapeMarkdown(minute),
	)
	return t.sendMarkdown(text)
}

func (t *Telegram) LiveOpportunity(g *database.Game, op *live.Opportunity, confidence float64) error {
	market := op.MarketName
	if market == "" {
		market = op.Market
	}
	text := fmt.Sprintf(`🔥 *LIVE OPPORTUNITY*

⚽ %s x %s

*Market:* %s
*Pick:* %s @ %.2f
*Estimated prob:* %.0f%%
*Edge:* %+.3f
*Confidence:* %.0f%%

💰 *Suggested stake:* %s (profit %s)`,
		escapeMarkdown(g.TeamHome), escapeMarkdown(g.TeamAway),
		escapeMarkdown(market),
		escapeMarkdown(op.Option), op.Odd,
		op.Prob*100,
		op.Edge,
		confidence*100,
		op.Stake.Amount.StringFixed(2), op.Stake.PotentialProfit.StringFixed(2),
	)
	return t.sendMarkdown(text)
}

func (t *Telegram) GameResult(g *database.Game) error {
	verdict := "⚪ No pick to settle"
	if g.Hit != nil {
		if *g.Hit {
			verdict = "✅ GREEN"
		} else {
			verdict = "❌ RED"
		}
	}
	outcome := "?"
	if g.Outcome != nil {
		outcome = *g.Outcome
	}
	text := fmt.Sprintf(`🏁 *Match finished*

⚽ %s x %s
*Outcome:* %s
*Pick:* %s

%s`,
		escapeMarkdown(g.TeamHome), escapeMarkdown(g.TeamAway),
		outcome,
		pickLabel(g),
		verdict,
	)
	return t.sendMarkdown(text)
}

func (t *Telegram) CombinedSlip(slip *database.CombinedBet, games []database.Game) error {
	picks, err := slip.SlipPicks()
	if err != nil {
		return err
	}
	odds, err := slip.SlipOdds()
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🎰 *Combined Bet of the Day* (%d games)\n\n", slip.TotalGames)
	for i, g := range games {
		pick := ""
		odd := 0.0
		if i < len(picks) {
			pick = picks[i]
		}
		if i < len(odds) {
			odd = odds[i]
		}
		fmt.Fprintf(&b, "%d. %s x %s\n   → %s @ %.2f\n",
			i+1,
			escapeMarkdown(g.TeamHome), escapeMarkdown(g.TeamAway),
			escapeMarkdown(pick), odd,
		)
	}
	fmt.Fprintf(&b, "\n*Combined odd:* %.2f\n", slip.CombinedOdd)
	fmt.Fprintf(&b, "*Avg confidence:* %.0f%%\n", slip.AvgConfidence*100)
	fmt.Fprintf(&b, "💰 Stake %s returns %s", slip.ExampleStake, slip.PotentialReturn)
	return t.sendMarkdown(b.String())
}

func (t *Telegram) Summary(title string, lines []string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 *%s*\n\n", title)
	if len(lines) == 0 {
		b.WriteString("_Nothing to report._")
	} else {
		for _, line := range lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return t.sendMarkdown(b.String())
}

func (t *Telegram) sendMarkdown(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = "Markdown"
	msg.DisableWebPagePreview = true
	_, err := t.api.Send(msg)
	if err != nil {
		log.Error().Err(err).Msg("Telegram send failed")
	}
	return err
}

func pickLabel(g *database.Game) string {
	switch g.Pick {
	case betting.PickHome:
		return g.TeamHome
	case betting.PickAway:
		return g.TeamAway
	case betting.PickDraw:
		return "Empate"
	}
	return "-"
}

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"`", "\\`",
	)
	return replacer.Replace(s)
}
