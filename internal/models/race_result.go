package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RaceResult represents the declared outcome of a race
type RaceResult struct {
	RaceID     uuid.UUID     `db:"race_id" json:"race_id" validate:"required"`
	Finish     []int         `db:"finish" json:"finish"` // post positions in finishing order
	Payoffs    []WagerPayoff `db:"payoffs" json:"payoffs"`
	Official   bool          `db:"official" json:"official"`
	DeclaredAt time.Time     `db:"declared_at" json:"declared_at"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
}

// WagerPayoff is the published $2 payoff for one pool
type WagerPayoff struct {
	BetType     string          `json:"bet_type"`
	Combination string          `json:"combination"`
	Payoff      decimal.Decimal `json:"payoff"`
}

// Winner returns the post position of the winner, or 0 if unknown
func (rr *RaceResult) Winner() int {
	if len(rr.Finish) == 0 {
		return 0
	}
	return rr.Finish[0]
}
