package wager

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yourusername/trackside/internal/models"
)

// PayoutRange is a rough display estimate of what a ticket could return.
// It is not a parimutuel calculation: real payouts depend on pool totals.
type PayoutRange struct {
	Low  decimal.Decimal `json:"low"`
	High decimal.Decimal `json:"high"`
}

type band struct {
	low, high decimal.Decimal
}

func newBand(low, high string) band {
	return band{low: decimal.RequireFromString(low), high: decimal.RequireFromString(high)}
}

var (
	winBand        = newBand("0.8", "1.2")
	placeBand      = newBand("0.4", "0.8")
	showBand       = newBand("0.3", "0.5")
	exactaBand     = newBand("1.5", "4")
	trifectaBand   = newBand("5", "15")
	superfectaBand = newBand("15", "50")
	defaultBand    = newBand("0.6", "1.4")

	boxBoost = newBand("1.2", "2")
	keyBoost = newBand("1.1", "1.5")
)

func payoutBand(betType BetType) band {
	switch betType {
	case BetTypeWin:
		return winBand
	case BetTypePlace:
		return placeBand
	case BetTypeShow:
		return showBand
	case BetTypeExacta:
		return exactaBand
	case BetTypeTrifecta:
		return trifectaBand
	case BetTypeSuperfecta:
		return superfectaBand
	case BetTypeWinPlaceShow, BetTypeWinPlace, BetTypeWinShow, BetTypePlaceShow,
		BetTypeDailyDouble, BetTypePickThree:
		return defaultBand
	default:
		return defaultBand
	}
}

// EstimatePayout sums amount × live odds × band over every selection. Box
// and key lines get an extra boost. Selections whose horse is not in horses
// contribute nothing.
func EstimatePayout(selections []BetSelection, horses []models.Horse) PayoutRange {
	odds := make(map[uuid.UUID]decimal.Decimal, len(horses))
	for _, h := range horses {
		odds[h.ID] = h.LiveOdds
	}

	r := PayoutRange{Low: decimal.Zero, High: decimal.Zero}
	for _, s := range selections {
		o, ok := odds[s.HorseID]
		if !ok {
			continue
		}
		b := payoutBand(s.BetType)
		base := s.Amount.Mul(o)
		low, high := base.Mul(b.low), base.Mul(b.high)
		switch {
		case s.IsBoxBet:
			low, high = low.Mul(boxBoost.low), high.Mul(boxBoost.high)
		case s.IsKeyHorse:
			low, high = low.Mul(keyBoost.low), high.Mul(keyBoost.high)
		}
		r.Low = r.Low.Add(low)
		r.High = r.High.Add(high)
	}
	return r
}
