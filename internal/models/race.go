package models

import (
	"time"

	"github.com/google/uuid"
)

// RaceStatus is the lifecycle state of a race on the card
type RaceStatus string

const (
	RaceStatusScheduled RaceStatus = "scheduled"
	RaceStatusOpen      RaceStatus = "open"
	RaceStatusClosed    RaceStatus = "closed"
	RaceStatusOfficial  RaceStatus = "official"
	RaceStatusCancelled RaceStatus = "cancelled"
)

// Race represents a race on a track's card
type Race struct {
	ID         uuid.UUID  `db:"id" json:"id" validate:"required"`
	SourceID   string     `db:"source_id" json:"source_id" validate:"required"`
	Track      string     `db:"track" json:"track" validate:"required"`
	RaceNumber int        `db:"race_number" json:"race_number" validate:"required,gt=0"`
	PostTime   time.Time  `db:"post_time" json:"post_time" validate:"required"`
	Distance   string     `db:"distance" json:"distance"`
	Surface    string     `db:"surface" json:"surface"`
	RaceType   string     `db:"race_type" json:"race_type"`
	Purse      *int64     `db:"purse" json:"purse,omitempty"`
	Status     RaceStatus `db:"status" json:"status" validate:"oneof=scheduled open closed official cancelled"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
	Horses     []*Horse   `db:"-" json:"horses,omitempty"`
}

// IsUpcoming checks if the race is still open for wagering
func (r *Race) IsUpcoming() bool {
	return r.Status == RaceStatusScheduled || r.Status == RaceStatusOpen
}
