package wager

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yourusername/trackside/internal/models"
)

// Ticket is the ordered list of selections built so far
type Ticket struct {
	selections []BetSelection
}

// Summary holds the derived figures shown alongside a ticket
type Summary struct {
	Selections []BetSelection  `json:"selections"`
	Count      int             `json:"count"`
	TotalCost  decimal.Decimal `json:"totalCost"`
	Payout     PayoutRange     `json:"payout"`
}

// Append adds selections to the end of the ticket
func (t *Ticket) Append(selections ...BetSelection) {
	t.selections = append(t.selections, selections...)
}

// Selections returns a copy of the ticket lines
func (t *Ticket) Selections() []BetSelection {
	out := make([]BetSelection, len(t.selections))
	copy(out, t.selections)
	return out
}

// Len returns the number of lines on the ticket
func (t *Ticket) Len() int {
	return len(t.selections)
}

// UpdateAmount changes the stake of line i, clamped to MinAmount
func (t *Ticket) UpdateAmount(i int, amount decimal.Decimal) bool {
	if i < 0 || i >= len(t.selections) {
		return false
	}
	t.selections[i].Amount = ClampAmount(amount)
	return true
}

// RemoveSelection deletes line i
func (t *Ticket) RemoveSelection(i int) bool {
	if i < 0 || i >= len(t.selections) {
		return false
	}
	t.selections = append(t.selections[:i], t.selections[i+1:]...)
	return true
}

// ClearAll empties the ticket
func (t *Ticket) ClearAll() {
	t.selections = nil
}

// TotalCost sums the amount of every line
func (t *Ticket) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, s := range t.selections {
		total = total.Add(s.Amount)
	}
	return total
}

// PruneDisqualified drops lines whose horse is marked disqualified in horses
// and returns the dropped lines.
func (t *Ticket) PruneDisqualified(horses []models.Horse) []BetSelection {
	disqualified := make(map[uuid.UUID]struct{})
	for _, h := range horses {
		if h.Disqualified {
			disqualified[h.ID] = struct{}{}
		}
	}
	if len(disqualified) == 0 {
		return nil
	}

	var removed []BetSelection
	kept := t.selections[:0]
	for _, s := range t.selections {
		if _, ok := disqualified[s.HorseID]; ok {
			removed = append(removed, s)
			continue
		}
		kept = append(kept, s)
	}
	t.selections = kept
	return removed
}

// Summary prices the ticket against the given horse list
func (t *Ticket) Summary(horses []models.Horse) Summary {
	return Summary{
		Selections: t.Selections(),
		Count:      len(t.selections),
		TotalCost:  t.TotalCost(),
		Payout:     EstimatePayout(t.selections, horses),
	}
}
