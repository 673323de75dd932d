package betting

import (
	"github.com/shopspring/decimal"
)

// Stake is a Kelly-sized suggestion for one pick.
type Stake struct {
	Fraction        float64         // full-Kelly fraction of bankroll
	Amount          decimal.Decimal // fractional-Kelly stake, 2 decimal places
	PotentialProfit decimal.Decimal // Amount * (odd - 1), 2 decimal places
}

// KellyFraction returns the full-Kelly fraction for a decimal odd and win
// probability: (b*p - q) / b with b = odd-1. Degenerate inputs (odd at or
// below even money, probability outside (0,1)) and negative-edge picks
// return 0.
func KellyFraction(odd, prob float64) float64 {
	if odd <= 1 || prob <= 0 || prob >= 1 {
		return 0
	}
	b := odd - 1
	f := (b*prob - (1 - prob)) / b
	if f < 0 {
		return 0
	}
	return f
}

// SizeStake converts a pick into a money amount using fractional Kelly.
// kellyFrac is clamped to [0,1]; the amount is rounded to cents.
func SizeStake(bankroll decimal.Decimal, odd, prob, kellyFrac float64) Stake {
	f := KellyFraction(odd, prob)
	if f == 0 || bankroll.Sign() <= 0 {
		return Stake{Fraction: f, Amount: decimal.Zero, PotentialProfit: decimal.Zero}
	}

	if kellyFrac < 0 {
		kellyFrac = 0
	} else if kellyFrac > 1 {
		kellyFrac = 1
	}

	amount := bankroll.
		Mul(decimal.NewFromFloat(f)).
		Mul(decimal.NewFromFloat(kellyFrac)).
		Round(2)
	profit := amount.Mul(decimal.NewFromFloat(odd - 1)).Round(2)

	return Stake{Fraction: f, Amount: amount, PotentialProfit: profit}
}
