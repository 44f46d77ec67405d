// Package wager builds and prices bet tickets: straight wagers added one horse
// at a time and exotic wagers constructed as boxes, keys or per-position picks.
package wager

import "fmt"

// BetType is a wager pool offered on a race
type BetType string

const (
	BetTypeWin          BetType = "win"
	BetTypePlace        BetType = "place"
	BetTypeShow         BetType = "show"
	BetTypeWinPlaceShow BetType = "win_place_show"
	BetTypeWinPlace     BetType = "win_place"
	BetTypeWinShow      BetType = "win_show"
	BetTypePlaceShow    BetType = "place_show"
	BetTypeExacta       BetType = "exacta"
	BetTypeTrifecta     BetType = "trifecta"
	BetTypeSuperfecta   BetType = "superfecta"
	BetTypeDailyDouble  BetType = "daily_double"
	BetTypePickThree    BetType = "pick_three"
)

// AllBetTypes lists every supported bet type in display order
func AllBetTypes() []BetType {
	return []BetType{
		BetTypeWin, BetTypePlace, BetTypeShow,
		BetTypeWinPlaceShow, BetTypeWinPlace, BetTypeWinShow, BetTypePlaceShow,
		BetTypeExacta, BetTypeTrifecta, BetTypeSuperfecta,
		BetTypeDailyDouble, BetTypePickThree,
	}
}

// ParseBetType validates a bet type name
func ParseBetType(s string) (BetType, error) {
	bt := BetType(s)
	if !bt.Valid() {
		return "", fmt.Errorf("unknown bet type %q", s)
	}
	return bt, nil
}

// Valid reports whether b is one of the supported bet types
func (b BetType) Valid() bool {
	switch b {
	case BetTypeWin, BetTypePlace, BetTypeShow,
		BetTypeWinPlaceShow, BetTypeWinPlace, BetTypeWinShow, BetTypePlaceShow,
		BetTypeExacta, BetTypeTrifecta, BetTypeSuperfecta,
		BetTypeDailyDouble, BetTypePickThree:
		return true
	default:
		return false
	}
}

// Arity returns the number of finishing positions the bet evaluates.
// Multi-race bets need one winner per leg, so they count as 1.
func (b BetType) Arity() int {
	switch b {
	case BetTypeExacta:
		return 2
	case BetTypeTrifecta:
		return 3
	case BetTypeSuperfecta:
		return 4
	case BetTypeWin, BetTypePlace, BetTypeShow,
		BetTypeWinPlaceShow, BetTypeWinPlace, BetTypeWinShow, BetTypePlaceShow,
		BetTypeDailyDouble, BetTypePickThree:
		return 1
	default:
		return 0
	}
}

// IsCombinatorial reports whether the bet supports box, key and with construction
func (b BetType) IsCombinatorial() bool {
	switch b {
	case BetTypeExacta, BetTypeTrifecta, BetTypeSuperfecta:
		return true
	default:
		return false
	}
}

// UsesFinishPositions reports whether "with" construction is done per finishing position
func (b BetType) UsesFinishPositions() bool {
	return b.IsCombinatorial() && b.Arity() >= 3
}

// IsMultiRace reports whether the bet spans consecutive races
func (b BetType) IsMultiRace() bool {
	return b == BetTypeDailyDouble || b == BetTypePickThree
}

func (b BetType) String() string {
	return string(b)
}
