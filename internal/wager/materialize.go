package wager

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yourusername/trackside/internal/models"
)

// DefaultRaceNumber is used when no race has been chosen for a selection
const DefaultRaceNumber = 7

// BetSelection is one priced line on a ticket
type BetSelection struct {
	HorseID    uuid.UUID       `json:"horseId"`
	HorseName  string          `json:"horseName"`
	PP         int             `json:"pp"`
	BetType    BetType         `json:"betType"`
	Amount     decimal.Decimal `json:"amount"`
	IsBoxBet   bool            `json:"isBoxBet,omitempty"`
	IsKeyHorse bool            `json:"isKeyHorse,omitempty"`
	RaceNumber int             `json:"raceNumber"`
}

// RaceContext holds the race numbers a ticket is being built against
type RaceContext struct {
	CurrentRace     int `json:"currentRace,omitempty"`
	DailyDoubleRace int `json:"dailyDoubleRace,omitempty"`
	PickThreeRace   int `json:"pickThreeRace,omitempty"`
}

// RaceNumberFor resolves the race a selection of the given type belongs to
func (rc RaceContext) RaceNumberFor(betType BetType) int {
	race := rc.CurrentRace
	switch betType {
	case BetTypeDailyDouble:
		race = rc.DailyDoubleRace
	case BetTypePickThree:
		race = rc.PickThreeRace
	}
	if race <= 0 {
		return DefaultRaceNumber
	}
	return race
}

// Materialize expands the construction into ticket lines. Box lines come
// first, then key lines, then with lines and per-position picks, each in
// ascending post position order. Post positions that no longer match an
// eligible horse are skipped.
func Materialize(c *Construction, horses []models.Horse, races RaceContext) []BetSelection {
	byPP := make(map[int]models.Horse, len(horses))
	for _, h := range models.EligibleHorses(horses) {
		byPP[h.PP] = h
	}

	betType := c.BetType()
	base := c.Amount()
	race := races.RaceNumberFor(betType)

	var out []BetSelection
	emit := func(set PositionSet, amount decimal.Decimal, isBox, isKey bool) {
		for _, pp := range set {
			h, ok := byPP[pp]
			if !ok {
				continue
			}
			sel := newSelection(h, betType, amount, race)
			sel.IsBoxBet = isBox
			sel.IsKeyHorse = isKey
			out = append(out, sel)
		}
	}

	if n := len(c.box); n > 0 {
		emit(c.box, BoxLineAmount(BoxCost(n, betType, base), n), true, false)
	}
	emit(c.key, base, false, true)
	emit(c.with, base, false, false)
	for i := 0; i < betType.Arity() && i < MaxPositions; i++ {
		emit(c.positions[i], base, false, false)
	}

	return out
}

func newSelection(h models.Horse, betType BetType, amount decimal.Decimal, race int) BetSelection {
	return BetSelection{
		HorseID:    h.ID,
		HorseName:  h.Name,
		PP:         h.PP,
		BetType:    betType,
		Amount:     amount,
		RaceNumber: race,
	}
}
