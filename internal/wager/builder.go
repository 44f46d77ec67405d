package wager

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/trackside/internal/models"
)

// HorseSource pushes the current horse list for a race whenever it changes
type HorseSource interface {
	Subscribe(fn func([]models.Horse)) (unsubscribe func())
}

// Submission is what a built ticket hands to the order callback
type Submission struct {
	Selections  []BetSelection  `json:"selections"`
	TotalCost   decimal.Decimal `json:"totalCost"`
	Payout      PayoutRange     `json:"payout"`
	SubmittedAt time.Time       `json:"submittedAt"`
}

// State is the full serializable view of a builder
type State struct {
	Construction ConstructionState `json:"construction"`
	RaceContext  RaceContext       `json:"raceContext"`
	Horses       []models.Horse    `json:"horses"`
	Summary
}

// BuilderOption configures a Builder
type BuilderOption func(*Builder)

// WithSubmitHandler sets the callback invoked by Submit
func WithSubmitHandler(fn func(Submission)) BuilderOption {
	return func(b *Builder) { b.onSubmit = fn }
}

// WithPruneHandler sets the callback invoked when a horse list update drops lines
func WithPruneHandler(fn func([]BetSelection)) BuilderOption {
	return func(b *Builder) { b.onPrune = fn }
}

// WithClock overrides the time source used for submissions
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

// Builder is the controller for one ticket building session. It is not safe
// for concurrent use.
type Builder struct {
	construction *Construction
	ticket       Ticket
	horses       []models.Horse
	races        RaceContext

	unsubscribe func()
	onSubmit    func(Submission)
	onPrune     func([]BetSelection)
	now         func() time.Time
}

// NewBuilder creates a builder for a win ticket with no horses loaded
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		construction: NewConstruction(BetTypeWin),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Construction exposes the in-progress bet
func (b *Builder) Construction() *Construction {
	return b.construction
}

// Ticket exposes the built lines
func (b *Builder) Ticket() *Ticket {
	return &b.ticket
}

// Horses returns the horse list the builder currently prices against
func (b *Builder) Horses() []models.Horse {
	out := make([]models.Horse, len(b.horses))
	copy(out, b.horses)
	return out
}

// RaceContext returns the races selections are attributed to
func (b *Builder) RaceContext() RaceContext {
	return b.races
}

// SetRaceContext changes the races used for new selections
func (b *Builder) SetRaceContext(rc RaceContext) {
	b.races = rc
}

// Attach subscribes the builder to src, replacing any previous source
func (b *Builder) Attach(src HorseSource) {
	b.Detach()
	b.unsubscribe = src.Subscribe(b.UpdateHorses)
}

// Detach stops receiving horse list updates
func (b *Builder) Detach() {
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
}

// UpdateHorses replaces the horse list and removes ticket lines for horses
// that are now disqualified
func (b *Builder) UpdateHorses(horses []models.Horse) {
	b.horses = make([]models.Horse, len(horses))
	copy(b.horses, horses)

	removed := b.ticket.PruneDisqualified(b.horses)
	if len(removed) > 0 && b.onPrune != nil {
		b.onPrune(removed)
	}
}

// SelectHorse handles a click on the horse at post position pp. With no mode
// active a straight bet gets one line at the default amount; otherwise the
// horse is toggled in the active mode's set.
func (b *Builder) SelectHorse(pp int) bool {
	horse, ok := b.horse(pp)
	if !ok || horse.Disqualified {
		return false
	}

	c := b.construction
	if c.Mode() != ModeIdle {
		return c.Toggle(horse)
	}
	if c.BetType().IsCombinatorial() {
		return false
	}

	b.ticket.Append(newSelection(horse, c.BetType(), DefaultAmount, b.races.RaceNumberFor(c.BetType())))
	return true
}

func (b *Builder) horse(pp int) (models.Horse, bool) {
	for _, h := range b.horses {
		if h.PP == pp {
			return h, true
		}
	}
	return models.Horse{}, false
}

// AddToTicket materializes the construction onto the ticket, resets the
// construction and returns the new lines
func (b *Builder) AddToTicket() []BetSelection {
	added := Materialize(b.construction, b.horses, b.races)
	b.ticket.Append(added...)
	b.construction.Reset()
	return added
}

// Summary prices the ticket against the current horse list
func (b *Builder) Summary() Summary {
	return b.ticket.Summary(b.horses)
}

// Submit hands the ticket to the submit handler. The ticket is left as is.
func (b *Builder) Submit() Submission {
	sum := b.Summary()
	sub := Submission{
		Selections:  sum.Selections,
		TotalCost:   sum.TotalCost,
		Payout:      sum.Payout,
		SubmittedAt: b.now(),
	}
	if b.onSubmit != nil {
		b.onSubmit(sub)
	}
	return sub
}

// State returns a snapshot of the whole session
func (b *Builder) State() State {
	return State{
		Construction: b.construction.Snapshot(),
		RaceContext:  b.races,
		Horses:       b.Horses(),
		Summary:      b.Summary(),
	}
}
