// Package session keeps the in-progress tickets of API clients.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/trackside/internal/logger"
	"github.com/yourusername/trackside/internal/metrics"
	"github.com/yourusername/trackside/internal/models"
	"github.com/yourusername/trackside/internal/submission"
	"github.com/yourusername/trackside/internal/wager"
)

// Session is one client's ticket under construction for a race.
// All builder access goes through the session lock.
type Session struct {
	ID        string    `json:"id"`
	RaceID    uuid.UUID `json:"raceId"`
	CreatedAt time.Time `json:"createdAt"`

	mu          sync.Mutex
	builder     *wager.Builder
	closeReason string
	audit       *logger.AuditLogger
}

// Do runs fn with exclusive access to the builder
func (s *Session) Do(fn func(b *wager.Builder)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.builder)
}

// State returns a snapshot of the builder
func (s *Session) State() wager.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builder.State()
}

// Submit hands the ticket to submitter. The ticket stays on the session.
func (s *Session) Submit(ctx context.Context, submitter submission.Submitter) (submission.TicketSubmission, error) {
	s.mu.Lock()
	if s.builder.Ticket().Len() == 0 {
		s.mu.Unlock()
		return submission.TicketSubmission{}, ErrEmptyTicket
	}
	ticket := submission.NewTicketSubmission(s.ID, s.RaceID, s.builder.Submit())
	s.mu.Unlock()

	total, _ := ticket.TotalCost.Float64()
	if err := submitter.Submit(ctx, ticket); err != nil {
		metrics.RecordTicketSubmitted("failure", total)
		return ticket, fmt.Errorf("failed to submit ticket: %w", err)
	}
	metrics.RecordTicketSubmitted("success", total)
	return ticket, nil
}

func (s *Session) onPrune(removed []wager.BetSelection) {
	pps := make([]int, 0, len(removed))
	for _, sel := range removed {
		pps = append(pps, sel.PP)
	}
	metrics.RecordSelectionsPruned(len(removed))
	if s.audit != nil {
		s.audit.LogSelectionsPruned(s.ID, s.RaceID.String(), pps)
	}
}

func (s *Session) close() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.builder.Detach()
	if s.closeReason == "" {
		return "expired"
	}
	return s.closeReason
}

// lockedSource delivers horse list updates under the session lock
type lockedSource struct {
	src wager.HorseSource
	mu  *sync.Mutex
}

func (l lockedSource) Subscribe(fn func([]models.Horse)) func() {
	return l.src.Subscribe(func(horses []models.Horse) {
		l.mu.Lock()
		defer l.mu.Unlock()
		fn(horses)
	})
}
