package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/yourusername/trackside/internal/logger"
	"github.com/yourusername/trackside/internal/metrics"
	"github.com/yourusername/trackside/internal/models"
	"github.com/yourusername/trackside/internal/wager"
)

// Session errors
var (
	ErrNotFound    = errors.New("session not found")
	ErrEmptyTicket = errors.New("ticket has no selections")
)

// HorseFeed supplies a race's current field and its updates
type HorseFeed interface {
	Latest(ctx context.Context, raceID uuid.UUID) ([]models.Horse, error)
	ForRace(raceID uuid.UUID) wager.HorseSource
}

// Store holds open sessions. Reading a session extends its TTL.
type Store struct {
	cache *cache.Cache
	feed  HorseFeed
	audit *logger.AuditLogger
	ttl   time.Duration
	now   func() time.Time
}

// NewStore creates a session store. audit may be nil.
func NewStore(feed HorseFeed, audit *logger.AuditLogger, ttl, cleanupInterval time.Duration) *Store {
	s := &Store{
		cache: cache.New(ttl, cleanupInterval),
		feed:  feed,
		audit: audit,
		ttl:   ttl,
		now:   time.Now,
	}
	s.cache.OnEvicted(s.evicted)
	return s
}

// Open starts a session for raceID priced against the race's current field.
// The builder subscribes before the field is read, all under the session
// lock, so an update published meanwhile is applied after the seed.
func (s *Store) Open(ctx context.Context, raceID uuid.UUID, rc wager.RaceContext) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		RaceID:    raceID,
		CreatedAt: s.now(),
		audit:     s.audit,
	}
	sess.builder = wager.NewBuilder(
		wager.WithPruneHandler(sess.onPrune),
		wager.WithClock(s.now),
	)

	sess.mu.Lock()
	sess.builder.SetRaceContext(rc)
	sess.builder.Attach(lockedSource{src: s.feed.ForRace(raceID), mu: &sess.mu})
	horses, err := s.feed.Latest(ctx, raceID)
	if err != nil {
		sess.builder.Detach()
		sess.mu.Unlock()
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	sess.builder.UpdateHorses(horses)
	sess.mu.Unlock()

	s.cache.Set(sess.ID, sess, cache.DefaultExpiration)
	metrics.UpdateActiveSessions(s.cache.ItemCount())
	if s.audit != nil {
		s.audit.LogSessionOpened(sess.ID, raceID.String())
	}
	return sess, nil
}

// Get returns an open session and slides its expiry
func (s *Store) Get(id string) (*Session, error) {
	item, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	sess := item.(*Session)
	if !s.touch(sess) {
		return nil, ErrNotFound
	}
	return sess, nil
}

// touch resets the session's expiry. It fails once the session has been
// removed, so a closed session is never put back.
func (s *Store) touch(sess *Session) bool {
	return s.cache.Replace(sess.ID, sess, cache.DefaultExpiration) == nil
}

// Close ends a session and detaches it from the feed
func (s *Store) Close(id string) error {
	item, ok := s.cache.Get(id)
	if !ok {
		return ErrNotFound
	}
	sess := item.(*Session)
	sess.mu.Lock()
	sess.closeReason = "closed"
	sess.mu.Unlock()

	s.cache.Delete(id)
	return nil
}

// Len returns the number of open sessions, expired ones included until cleanup
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

// Flush closes every session
func (s *Store) Flush() {
	for id := range s.cache.Items() {
		_ = s.Close(id)
	}
}

func (s *Store) evicted(id string, item interface{}) {
	sess, ok := item.(*Session)
	if !ok {
		return
	}
	reason := sess.close()
	metrics.UpdateActiveSessions(s.cache.ItemCount())
	if s.audit != nil {
		s.audit.LogSessionClosed(id, reason)
	}
}
