package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Horse represents an entrant in a race, identified on the card by post position
type Horse struct {
	ID           uuid.UUID        `db:"id" json:"id"`
	RaceID       uuid.UUID        `db:"race_id" json:"race_id"`
	SourceID     string           `db:"source_id" json:"source_id"`
	PP           int              `db:"pp" json:"pp" validate:"required,gt=0,lt=25"`
	Name         string           `db:"name" json:"name" validate:"required"`
	Jockey       string           `db:"jockey" json:"jockey,omitempty"`
	Trainer      string           `db:"trainer" json:"trainer,omitempty"`
	MorningLine  *decimal.Decimal `db:"morning_line" json:"morning_line,omitempty"`
	LiveOdds     decimal.Decimal  `db:"live_odds" json:"live_odds"`
	Disqualified bool             `db:"disqualified" json:"disqualified"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// IsEligible reports whether the horse may appear on a ticket
func (h *Horse) IsEligible() bool {
	return !h.Disqualified
}

// ImpliedProbability converts odds-to-1 into a win probability
func (h *Horse) ImpliedProbability() decimal.Decimal {
	if h.LiveOdds.IsNegative() {
		return decimal.Zero
	}
	return decimal.NewFromInt(1).Div(h.LiveOdds.Add(decimal.NewFromInt(1)))
}

// EligibleHorses filters out disqualified horses, preserving order
func EligibleHorses(horses []Horse) []Horse {
	eligible := make([]Horse, 0, len(horses))
	for _, h := range horses {
		if h.IsEligible() {
			eligible = append(eligible, h)
		}
	}
	return eligible
}

// HorsesChanged reports whether two horse lists differ in any field a ticket depends on
func HorsesChanged(before, after []Horse) bool {
	if len(before) != len(after) {
		return true
	}
	byPP := make(map[int]Horse, len(before))
	for _, h := range before {
		byPP[h.PP] = h
	}
	for _, h := range after {
		prev, ok := byPP[h.PP]
		if !ok || prev.ID != h.ID || prev.Disqualified != h.Disqualified || !prev.LiveOdds.Equal(h.LiveOdds) {
			return true
		}
	}
	return false
}
