// Package fees holds the fixed per-turn service fee schedule.
package fees

import "github.com/shopspring/decimal"

var (
	earlyRatio  = decimal.RequireFromString("0.07")
	middleRatio = decimal.RequireFromString("0.05")
	rebateRatio = decimal.RequireFromString("-0.02")
)

// RebateTurn is the turn on which the house pays instead of charging.
const RebateTurn = 10

// RatioForTurn returns the signed fee ratio for a 1-based turn number.
// The schedule is positional only; duration bounds it and nothing else.
func RatioForTurn(duration, turnNumber int) decimal.Decimal {
	if turnNumber < 1 || turnNumber > duration {
		return decimal.Zero
	}
	switch {
	case turnNumber <= 4:
		return earlyRatio
	case turnNumber <= 9:
		return middleRatio
	case turnNumber == RebateTurn:
		return rebateRatio
	default:
		return decimal.Zero
	}
}

// Ratios returns one ratio per turn, index i holding turn i+1.
func Ratios(duration int) []decimal.Decimal {
	if duration <= 0 {
		return []decimal.Decimal{}
	}
	out := make([]decimal.Decimal, duration)
	for i := range out {
		out[i] = RatioForTurn(duration, i+1)
	}
	return out
}

// FeeAmount is the fee charged on a payout: ratio × monthly × duration.
// Negative on the rebate turn.
func FeeAmount(duration, turnNumber int, monthlyAmount decimal.Decimal) decimal.Decimal {
	return RatioForTurn(duration, turnNumber).
		Mul(monthlyAmount).
		Mul(decimal.NewFromInt(int64(duration)))
}

// ReservationFee is what a member pays to book a turn. Rebate turns are free.
func ReservationFee(duration, turnNumber int, monthlyAmount decimal.Decimal) decimal.Decimal {
	ratio := RatioForTurn(duration, turnNumber)
	if ratio.IsNegative() {
		return decimal.Zero
	}
	return ratio.Mul(monthlyAmount)
}
