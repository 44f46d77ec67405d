package wager

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/trackside/internal/models"
)

type stubSource struct {
	mu   sync.Mutex
	subs map[int]func([]models.Horse)
	next int
}

func newStubSource() *stubSource {
	return &stubSource{subs: make(map[int]func([]models.Horse))}
}

func (s *stubSource) Subscribe(fn func([]models.Horse)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *stubSource) push(horses []models.Horse) {
	s.mu.Lock()
	subs := make([]func([]models.Horse), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(horses)
	}
}

func (s *stubSource) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func newLoadedBuilder(t *testing.T, betType BetType, horses []models.Horse, opts ...BuilderOption) *Builder {
	t.Helper()
	b := NewBuilder(opts...)
	b.UpdateHorses(horses)
	b.Construction().SetBetType(betType)
	return b
}

func TestExactaBoxScenario(t *testing.T) {
	b := newLoadedBuilder(t, BetTypeExacta, testHorses(6))

	require.True(t, b.Construction().ActivateBox())
	for _, pp := range []int{1, 3, 5} {
		require.True(t, b.SelectHorse(pp))
	}

	added := b.AddToTicket()
	require.Len(t, added, 3)
	for _, sel := range added {
		assert.True(t, sel.Amount.Equal(dec("12")))
		assert.True(t, sel.IsBoxBet)
		assert.Equal(t, BetTypeExacta, sel.BetType)
	}
	assert.True(t, b.Ticket().TotalCost().Equal(dec("36")))
	assert.True(t, b.Construction().IsEmpty())
	assert.Equal(t, BetTypeExacta, b.Construction().BetType())
}

func TestWinIdleClickScenario(t *testing.T) {
	horses := testHorses(4)
	horses[1].LiveOdds = dec("5.0")
	b := newLoadedBuilder(t, BetTypeWin, horses)

	require.True(t, b.SelectHorse(2))
	sels := b.Ticket().Selections()
	require.Len(t, sels, 1)
	assert.True(t, sels[0].Amount.Equal(dec("2")))
	assert.Equal(t, 2, sels[0].PP)
	assert.Equal(t, DefaultRaceNumber, sels[0].RaceNumber)

	sum := b.Summary()
	assert.True(t, sum.Payout.Low.Equal(dec("8")), sum.Payout.Low.String())
	assert.True(t, sum.Payout.High.Equal(dec("12")), sum.Payout.High.String())
}

func TestIdleClickOnCombinatorialTypeIsNoOp(t *testing.T) {
	b := newLoadedBuilder(t, BetTypeTrifecta, testHorses(4))
	assert.False(t, b.SelectHorse(1))
	assert.Zero(t, b.Ticket().Len())
}

func TestSelectUnknownOrScratchedHorse(t *testing.T) {
	horses := testHorses(3)
	horses[2].Disqualified = true
	b := newLoadedBuilder(t, BetTypeWin, horses)

	assert.False(t, b.SelectHorse(9))
	assert.False(t, b.SelectHorse(3))
	assert.Zero(t, b.Ticket().Len())
}

func TestDisqualificationPrunesTicket(t *testing.T) {
	src := newStubSource()
	horses := testHorses(4)

	var pruned []BetSelection
	b := NewBuilder(WithPruneHandler(func(sels []BetSelection) { pruned = append(pruned, sels...) }))
	b.Attach(src)
	src.push(horses)

	require.True(t, b.SelectHorse(1))
	require.True(t, b.SelectHorse(2))
	require.True(t, b.Ticket().TotalCost().Equal(dec("4")))

	updated := make([]models.Horse, len(horses))
	copy(updated, horses)
	updated[1].Disqualified = true
	src.push(updated)

	sels := b.Ticket().Selections()
	require.Len(t, sels, 1)
	assert.Equal(t, 1, sels[0].PP)
	assert.True(t, b.Ticket().TotalCost().Equal(dec("2")))
	require.Len(t, pruned, 1)
	assert.Equal(t, horses[1].ID, pruned[0].HorseID)
}

func TestDetachStopsUpdates(t *testing.T) {
	src := newStubSource()
	b := NewBuilder()
	b.Attach(src)
	require.Equal(t, 1, src.count())

	b.Attach(src)
	assert.Equal(t, 1, src.count(), "re-attaching replaces the old subscription")

	b.Detach()
	assert.Zero(t, src.count())
	src.push(testHorses(2))
	assert.Empty(t, b.Horses())
}

func TestSuperfectaWithPositionsScenario(t *testing.T) {
	b := newLoadedBuilder(t, BetTypeSuperfecta, testHorses(6))
	c := b.Construction()

	for pos := 1; pos <= 4; pos++ {
		require.True(t, c.ActivateWithPosition(pos))
		require.True(t, b.SelectHorse(pos))
	}

	added := b.AddToTicket()
	require.Len(t, added, 4)
	for i, sel := range added {
		assert.Equal(t, i+1, sel.PP)
		assert.True(t, sel.Amount.Equal(dec("2")))
		assert.False(t, sel.IsBoxBet)
		assert.False(t, sel.IsKeyHorse)
		assert.Equal(t, 7, sel.RaceNumber)
	}
}

func TestMaterializeOrderAndFlags(t *testing.T) {
	horses := testHorses(6)
	c := NewConstruction(BetTypeTrifecta)
	c.SetAmount(dec("3"))

	c.ActivateBox()
	c.Toggle(horses[3])
	c.Toggle(horses[1])
	c.ActivateKey()
	c.Toggle(horses[5])
	c.ActivateWithPosition(3)
	c.Toggle(horses[0])

	sels := Materialize(c, horses, RaceContext{CurrentRace: 4})
	require.Len(t, sels, 4)

	// two boxed horses can't fill three positions
	assert.Equal(t, []int{2, 4}, []int{sels[0].PP, sels[1].PP})
	assert.True(t, sels[0].IsBoxBet)
	assert.True(t, sels[0].Amount.IsZero())

	assert.Equal(t, 6, sels[2].PP)
	assert.True(t, sels[2].IsKeyHorse)
	assert.True(t, sels[2].Amount.Equal(dec("3")))

	assert.Equal(t, 1, sels[3].PP)
	assert.False(t, sels[3].IsKeyHorse)
	assert.Equal(t, 4, sels[3].RaceNumber)
}

func TestMaterializeSkipsStaleAndScratched(t *testing.T) {
	horses := testHorses(3)
	c := NewConstruction(BetTypeExacta)
	c.ActivateKey()
	c.Toggle(horses[0])
	c.Toggle(horses[1])

	horses[1].Disqualified = true
	sels := Materialize(c, horses[:2], RaceContext{})
	require.Len(t, sels, 1)
	assert.Equal(t, 1, sels[0].PP)

	assert.Empty(t, Materialize(NewConstruction(BetTypeExacta), horses, RaceContext{}))
}

func TestRaceNumberFor(t *testing.T) {
	rc := RaceContext{CurrentRace: 3, DailyDoubleRace: 5, PickThreeRace: 6}
	assert.Equal(t, 3, rc.RaceNumberFor(BetTypeWin))
	assert.Equal(t, 5, rc.RaceNumberFor(BetTypeDailyDouble))
	assert.Equal(t, 6, rc.RaceNumberFor(BetTypePickThree))

	empty := RaceContext{}
	for _, bt := range AllBetTypes() {
		assert.Equal(t, DefaultRaceNumber, empty.RaceNumberFor(bt))
	}
}

func TestDailyDoubleClickUsesItsRace(t *testing.T) {
	b := newLoadedBuilder(t, BetTypeDailyDouble, testHorses(3))
	b.SetRaceContext(RaceContext{CurrentRace: 2, DailyDoubleRace: 8})

	require.True(t, b.SelectHorse(1))
	assert.Equal(t, 8, b.Ticket().Selections()[0].RaceNumber)
}

func TestSubmitInvokesHandler(t *testing.T) {
	at := time.Date(2024, 5, 4, 18, 57, 0, 0, time.UTC)
	var got *Submission
	b := newLoadedBuilder(t, BetTypeWin, testHorses(3),
		WithClock(func() time.Time { return at }),
		WithSubmitHandler(func(s Submission) { got = &s }),
	)
	b.SelectHorse(1)
	b.SelectHorse(3)

	sub := b.Submit()
	require.NotNil(t, got)
	assert.Equal(t, sub, *got)
	assert.Equal(t, at, sub.SubmittedAt)
	assert.Len(t, sub.Selections, 2)
	assert.True(t, sub.TotalCost.Equal(dec("4")))
	assert.Equal(t, 2, b.Ticket().Len())
}

func TestStateIncludesConstructionAndSummary(t *testing.T) {
	b := newLoadedBuilder(t, BetTypeWin, testHorses(2))
	b.SelectHorse(2)

	st := b.State()
	assert.Equal(t, BetTypeWin, st.Construction.BetType)
	assert.Len(t, st.Horses, 2)
	assert.Equal(t, 1, st.Count)
	assert.True(t, st.TotalCost.Equal(dec("2")))
}
