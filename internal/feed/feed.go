// Package feed fans horse list updates out to the ticket builders watching a race.
package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/trackside/internal/logger"
	"github.com/yourusername/trackside/internal/models"
	"github.com/yourusername/trackside/internal/wager"
)

// HorseLoader supplies the stored field for a race the feed has not seen yet
type HorseLoader interface {
	GetByRaceID(ctx context.Context, raceID uuid.UUID) ([]models.Horse, error)
}

type raceChannel struct {
	latest []models.Horse
	known  bool
	subs   map[uint64]func([]models.Horse)
}

// Feed is a per-race observer registry. Subscribers are called synchronously
// from Publish, outside the feed's lock. Subscribing does not replay the
// latest list; callers seed from Latest first.
type Feed struct {
	mu     sync.RWMutex
	races  map[uuid.UUID]*raceChannel
	nextID uint64
	loader HorseLoader
	logger *logrus.Entry
}

// New creates a feed. loader may be nil, in which case unknown races start empty.
func New(loader HorseLoader, log *logrus.Logger) *Feed {
	return &Feed{
		races:  make(map[uuid.UUID]*raceChannel),
		loader: loader,
		logger: logger.OrDiscard(log).WithField("component", "feed"),
	}
}

func (f *Feed) channel(raceID uuid.UUID) *raceChannel {
	ch, ok := f.races[raceID]
	if !ok {
		ch = &raceChannel{subs: make(map[uint64]func([]models.Horse))}
		f.races[raceID] = ch
	}
	return ch
}

// Subscribe registers fn for horse list updates on raceID
func (f *Feed) Subscribe(raceID uuid.UUID, fn func([]models.Horse)) (unsubscribe func()) {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.channel(raceID).subs[id] = fn
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			ch, ok := f.races[raceID]
			if !ok {
				return
			}
			delete(ch.subs, id)
			if len(ch.subs) == 0 && !ch.known {
				delete(f.races, raceID)
			}
		})
	}
}

// Publish records horses as the latest list for raceID and notifies every
// subscriber. It returns the number of subscribers notified.
func (f *Feed) Publish(raceID uuid.UUID, horses []models.Horse) int {
	list := make([]models.Horse, len(horses))
	copy(list, horses)

	f.mu.Lock()
	ch := f.channel(raceID)
	ch.latest = list
	ch.known = true
	subs := make([]func([]models.Horse), 0, len(ch.subs))
	for _, fn := range ch.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()

	for _, fn := range subs {
		fn(list)
	}

	f.logger.WithFields(logrus.Fields{
		"race_id":     raceID,
		"horses":      len(list),
		"subscribers": len(subs),
	}).Debug("Published horse list")

	return len(subs)
}

// PublishHorses publishes in-process, for ingestion running beside the API
func (f *Feed) PublishHorses(ctx context.Context, raceID uuid.UUID, horses []models.Horse) error {
	f.Publish(raceID, horses)
	return nil
}

// Latest returns the current horse list for raceID, loading it on first use
func (f *Feed) Latest(ctx context.Context, raceID uuid.UUID) ([]models.Horse, error) {
	f.mu.RLock()
	ch, ok := f.races[raceID]
	if ok && ch.known {
		out := make([]models.Horse, len(ch.latest))
		copy(out, ch.latest)
		f.mu.RUnlock()
		return out, nil
	}
	f.mu.RUnlock()

	if f.loader == nil {
		return []models.Horse{}, nil
	}

	horses, err := f.loader.GetByRaceID(ctx, raceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load horses for race %s: %w", raceID, err)
	}

	f.mu.Lock()
	ch = f.channel(raceID)
	if !ch.known {
		ch.latest = horses
		ch.known = true
	}
	out := make([]models.Horse, len(ch.latest))
	copy(out, ch.latest)
	f.mu.Unlock()

	return out, nil
}

// Subscribers returns the number of subscribers on raceID
func (f *Feed) Subscribers(raceID uuid.UUID) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if ch, ok := f.races[raceID]; ok {
		return len(ch.subs)
	}
	return 0
}

// ForRace adapts one race of the feed to a builder's horse source
func (f *Feed) ForRace(raceID uuid.UUID) wager.HorseSource {
	return raceSource{feed: f, raceID: raceID}
}

type raceSource struct {
	feed   *Feed
	raceID uuid.UUID
}

func (s raceSource) Subscribe(fn func([]models.Horse)) func() {
	return s.feed.Subscribe(s.raceID, fn)
}
