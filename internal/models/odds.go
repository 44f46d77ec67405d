package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OddsSnapshot represents a point-in-time reading of a horse's live odds
type OddsSnapshot struct {
	Time      time.Time       `db:"time" json:"time" validate:"required"`
	RaceID    uuid.UUID       `db:"race_id" json:"race_id" validate:"required"`
	HorseID   uuid.UUID       `db:"horse_id" json:"horse_id" validate:"required"`
	Odds      decimal.Decimal `db:"odds" json:"odds"`
	WinPool   *int64          `db:"win_pool" json:"win_pool,omitempty"`
	Scratched bool            `db:"scratched" json:"scratched"`
}

// SnapshotFromHorse records the horse's current odds at the given time
func SnapshotFromHorse(h *Horse, at time.Time) *OddsSnapshot {
	return &OddsSnapshot{
		Time:      at,
		RaceID:    h.RaceID,
		HorseID:   h.ID,
		Odds:      h.LiveOdds,
		Scratched: h.Disqualified,
	}
}
