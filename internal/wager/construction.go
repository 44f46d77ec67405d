package wager

import (
	"slices"

	"github.com/shopspring/decimal"
	"github.com/yourusername/trackside/internal/models"
)

// Mode is the active ticket construction mode
type Mode string

const (
	ModeIdle Mode = "idle"
	ModeBox  Mode = "box"
	ModeKey  Mode = "key"
	ModeWith Mode = "with"
)

// ParseMode validates a construction mode name
func ParseMode(s string) (Mode, bool) {
	switch m := Mode(s); m {
	case ModeIdle, ModeBox, ModeKey, ModeWith:
		return m, true
	default:
		return "", false
	}
}

// MaxPositions is the deepest finishing position any bet type covers
const MaxPositions = 4

var (
	// DefaultAmount is the stake used for new constructions and single-click selections
	DefaultAmount = decimal.NewFromInt(2)
	// MinAmount is the smallest stake a construction or selection may carry
	MinAmount = decimal.NewFromInt(1)
)

// ClampAmount raises amounts below MinAmount to MinAmount
func ClampAmount(amount decimal.Decimal) decimal.Decimal {
	if amount.LessThan(MinAmount) {
		return MinAmount
	}
	return amount
}

// PositionSet is a set of post positions kept in ascending order
type PositionSet []int

// Contains reports whether pp is in the set
func (s PositionSet) Contains(pp int) bool {
	_, found := slices.BinarySearch(s, pp)
	return found
}

// Toggle returns the set with pp added if absent, or removed if present
func (s PositionSet) Toggle(pp int) PositionSet {
	i, found := slices.BinarySearch(s, pp)
	if found {
		return slices.Delete(slices.Clone(s), i, i+1)
	}
	return slices.Insert(slices.Clone(s), i, pp)
}

// Ints returns a copy of the set that is never nil
func (s PositionSet) Ints() []int {
	out := make([]int, len(s))
	copy(out, s)
	return out
}

// Construction tracks the horses a user has picked for the bet being built.
// At most one mode is active at a time. Entering a mode clears only that
// mode's own set; the other sets persist until the ticket is built.
type Construction struct {
	betType   BetType
	amount    decimal.Decimal
	mode      Mode
	position  int // active finishing position in with mode, 0 when not per-position
	box       PositionSet
	key       PositionSet
	with      PositionSet
	positions [MaxPositions]PositionSet
}

// NewConstruction starts an idle construction for the bet type at the default amount
func NewConstruction(betType BetType) *Construction {
	return &Construction{
		betType: betType,
		amount:  DefaultAmount,
		mode:    ModeIdle,
	}
}

// BetType returns the selected bet type
func (c *Construction) BetType() BetType { return c.betType }

// Amount returns the per-unit stake
func (c *Construction) Amount() decimal.Decimal { return c.amount }

// Mode returns the active construction mode
func (c *Construction) Mode() Mode { return c.mode }

// ActivePosition returns the finishing position being picked in with mode, or 0
func (c *Construction) ActivePosition() int { return c.position }

func (c *Construction) IsBoxMode() bool  { return c.mode == ModeBox }
func (c *Construction) IsKeyMode() bool  { return c.mode == ModeKey }
func (c *Construction) IsWithMode() bool { return c.mode == ModeWith }

// BoxHorses returns the boxed post positions
func (c *Construction) BoxHorses() []int { return c.box.Ints() }

// KeyHorses returns the keyed post positions
func (c *Construction) KeyHorses() []int { return c.key.Ints() }

// WithHorses returns the post positions paired in two-position with mode
func (c *Construction) WithHorses() []int { return c.with.Ints() }

// PositionHorses returns the post positions picked for finishing position n (1-based)
func (c *Construction) PositionHorses(n int) []int {
	if n < 1 || n > MaxPositions {
		return []int{}
	}
	return c.positions[n-1].Ints()
}

// SetBetType switches the bet type. Modes are switched off; the amount and
// the picked sets are kept.
func (c *Construction) SetBetType(betType BetType) {
	c.betType = betType
	c.mode = ModeIdle
	c.position = 0
}

// SetAmount sets the per-unit stake, never below MinAmount
func (c *Construction) SetAmount(amount decimal.Decimal) {
	c.amount = ClampAmount(amount)
}

// ActivateBox enters box mode with an empty box
func (c *Construction) ActivateBox() bool {
	if !c.betType.IsCombinatorial() {
		return false
	}
	c.enter(ModeBox, 0)
	c.box = nil
	return true
}

// ActivateKey enters key mode with no key horses
func (c *Construction) ActivateKey() bool {
	if !c.betType.IsCombinatorial() {
		return false
	}
	c.enter(ModeKey, 0)
	c.key = nil
	return true
}

// ActivateWith enters with mode. Trifecta and superfecta pick horses per
// finishing position, starting with the winner.
func (c *Construction) ActivateWith() bool {
	if !c.betType.IsCombinatorial() {
		return false
	}
	if c.betType.UsesFinishPositions() {
		return c.ActivateWithPosition(1)
	}
	c.enter(ModeWith, 0)
	c.with = nil
	return true
}

// ActivateWithPosition enters with mode for finishing position n and clears
// that position's picks
func (c *Construction) ActivateWithPosition(n int) bool {
	if !c.betType.UsesFinishPositions() || n < 1 || n > c.betType.Arity() {
		return false
	}
	c.enter(ModeWith, n)
	c.positions[n-1] = nil
	return true
}

// Deactivate leaves the current mode without touching any set
func (c *Construction) Deactivate() {
	c.enter(ModeIdle, 0)
}

func (c *Construction) enter(mode Mode, position int) {
	c.mode = mode
	c.position = position
}

// Toggle adds or removes the horse in the active mode's set. Disqualified
// horses and idle mode leave the construction untouched.
func (c *Construction) Toggle(horse models.Horse) bool {
	if horse.Disqualified {
		return false
	}

	switch c.mode {
	case ModeBox:
		c.box = c.box.Toggle(horse.PP)
	case ModeKey:
		c.key = c.key.Toggle(horse.PP)
	case ModeWith:
		if c.position > 0 {
			c.positions[c.position-1] = c.positions[c.position-1].Toggle(horse.PP)
		} else {
			c.with = c.with.Toggle(horse.PP)
		}
	default:
		return false
	}
	return true
}

// IsEmpty reports whether no set holds a pick
func (c *Construction) IsEmpty() bool {
	if len(c.box) > 0 || len(c.key) > 0 || len(c.with) > 0 {
		return false
	}
	for _, p := range c.positions {
		if len(p) > 0 {
			return false
		}
	}
	return true
}

// Reset clears modes and picks and restores the default amount. The bet type is kept.
func (c *Construction) Reset() {
	c.enter(ModeIdle, 0)
	c.box = nil
	c.key = nil
	c.with = nil
	c.positions = [MaxPositions]PositionSet{}
	c.amount = DefaultAmount
}

// ConstructionState is the serializable view of a Construction
type ConstructionState struct {
	BetType        BetType         `json:"betType"`
	Amount         decimal.Decimal `json:"amount"`
	IsBoxMode      bool            `json:"isBoxMode"`
	IsKeyMode      bool            `json:"isKeyMode"`
	IsWithMode     bool            `json:"isWithMode"`
	WithPosition   int             `json:"withPosition,omitempty"`
	BoxHorses      []int           `json:"boxHorses"`
	KeyHorses      []int           `json:"keyHorses"`
	WithHorses     []int           `json:"withHorses"`
	WithPosition1  []int           `json:"withPosition1"`
	WithPosition2  []int           `json:"withPosition2"`
	WithPosition3  []int           `json:"withPosition3"`
	WithPosition4  []int           `json:"withPosition4"`
	BoxCost        decimal.Decimal `json:"boxCost"`
	Combinatorial  bool            `json:"combinatorial"`
	PositionsInUse int             `json:"positionsInUse"`
}

// Snapshot returns a copy of the construction state
func (c *Construction) Snapshot() ConstructionState {
	positionsInUse := 0
	if c.betType.UsesFinishPositions() {
		positionsInUse = c.betType.Arity()
	}
	return ConstructionState{
		BetType:        c.betType,
		Amount:         c.amount,
		IsBoxMode:      c.IsBoxMode(),
		IsKeyMode:      c.IsKeyMode(),
		IsWithMode:     c.IsWithMode(),
		WithPosition:   c.position,
		BoxHorses:      c.BoxHorses(),
		KeyHorses:      c.KeyHorses(),
		WithHorses:     c.WithHorses(),
		WithPosition1:  c.PositionHorses(1),
		WithPosition2:  c.PositionHorses(2),
		WithPosition3:  c.PositionHorses(3),
		WithPosition4:  c.PositionHorses(4),
		BoxCost:        BoxCost(len(c.box), c.betType, c.amount),
		Combinatorial:  c.betType.IsCombinatorial(),
		PositionsInUse: positionsInUse,
	}
}
