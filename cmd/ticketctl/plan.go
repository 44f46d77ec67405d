package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yourusername/trackside/internal/datasource"
	"github.com/yourusername/trackside/internal/models"
	"github.com/yourusername/trackside/internal/wager"
)

// ticketPlan describes a field and the bets to build against it
type ticketPlan struct {
	Race        int         `json:"race"`
	DailyDouble int         `json:"dailyDouble"`
	PickThree   int         `json:"pickThree"`
	Horses      []planHorse `json:"horses"`
	Bets        []planBet   `json:"bets"`
}

type planHorse struct {
	PP   int    `json:"pp"`
	Name string `json:"name"`
	// Odds accepts "5/2", "3.5", "EVN" or "SCR"
	Odds string `json:"odds"`
}

// planBet is one construction. Straight bets list Horses; exotic bets use
// Box, Key, With or Positions (one list per finishing position).
type planBet struct {
	BetType   string           `json:"betType"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Horses    []int            `json:"horses,omitempty"`
	Box       []int            `json:"box,omitempty"`
	Key       []int            `json:"key,omitempty"`
	With      []int            `json:"with,omitempty"`
	Positions [][]int          `json:"positions,omitempty"`
}

func readPlan(r io.Reader) (*ticketPlan, error) {
	var plan ticketPlan
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&plan); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	if len(plan.Horses) == 0 {
		return nil, fmt.Errorf("invalid plan: no horses")
	}
	return &plan, nil
}

func (p *ticketPlan) field() ([]models.Horse, error) {
	horses := make([]models.Horse, 0, len(p.Horses))
	for _, h := range p.Horses {
		odds, scratched, err := datasource.ParseOdds(h.Odds)
		if err != nil {
			return nil, fmt.Errorf("horse %d: %w", h.PP, err)
		}
		horse := models.Horse{ID: uuid.New(), PP: h.PP, Name: h.Name, Disqualified: scratched}
		if odds != nil {
			horse.LiveOdds = *odds
		}
		horses = append(horses, horse)
	}
	return horses, nil
}

// Build runs every bet through a ticket builder. Picks the builder ignores,
// such as scratched horses, are reported in skipped.
func (p *ticketPlan) Build() (wager.Summary, []string, error) {
	horses, err := p.field()
	if err != nil {
		return wager.Summary{}, nil, err
	}

	b := wager.NewBuilder()
	b.SetRaceContext(wager.RaceContext{
		CurrentRace:     p.Race,
		DailyDoubleRace: p.DailyDouble,
		PickThreeRace:   p.PickThree,
	})
	b.UpdateHorses(horses)

	var skipped []string
	pick := func(bet int, pps []int) {
		for _, pp := range pps {
			if !b.SelectHorse(pp) {
				skipped = append(skipped, fmt.Sprintf("bet %d: horse %d", bet, pp))
			}
		}
	}

	for i, bet := range p.Bets {
		n := i + 1
		betType, err := wager.ParseBetType(bet.BetType)
		if err != nil {
			return wager.Summary{}, nil, fmt.Errorf("bet %d: %w", n, err)
		}
		c := b.Construction()
		c.SetBetType(betType)
		if bet.Amount != nil {
			c.SetAmount(*bet.Amount)
		}

		if len(bet.Horses) > 0 {
			before := b.Ticket().Len()
			pick(n, bet.Horses)
			if bet.Amount != nil {
				for line := before; line < b.Ticket().Len(); line++ {
					b.Ticket().UpdateAmount(line, *bet.Amount)
				}
			}
		}
		if len(bet.Box) > 0 {
			if !c.ActivateBox() {
				return wager.Summary{}, nil, fmt.Errorf("bet %d: %s cannot be boxed", n, betType)
			}
			pick(n, bet.Box)
		}
		if len(bet.Key) > 0 {
			if !c.ActivateKey() {
				return wager.Summary{}, nil, fmt.Errorf("bet %d: %s cannot be keyed", n, betType)
			}
			pick(n, bet.Key)
		}
		if len(bet.With) > 0 {
			if betType.UsesFinishPositions() || !c.ActivateWith() {
				return wager.Summary{}, nil, fmt.Errorf("bet %d: %s takes positions, not with", n, betType)
			}
			pick(n, bet.With)
		}
		for pos, pps := range bet.Positions {
			if !c.ActivateWithPosition(pos + 1) {
				return wager.Summary{}, nil, fmt.Errorf("bet %d: %s has no position %d", n, betType, pos+1)
			}
			pick(n, pps)
		}

		b.AddToTicket()
	}

	return b.Summary(), skipped, nil
}
