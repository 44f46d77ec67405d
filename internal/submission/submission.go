// Package submission hands finished tickets to whatever places the wagers.
package submission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/trackside/internal/logger"
	"github.com/yourusername/trackside/internal/wager"
)

// TicketSubmission is a submitted ticket with the session it came from
type TicketSubmission struct {
	ID        uuid.UUID `json:"id"`
	SessionID string    `json:"sessionId"`
	RaceID    uuid.UUID `json:"raceId"`
	wager.Submission
}

// NewTicketSubmission stamps a builder submission with ids
func NewTicketSubmission(sessionID string, raceID uuid.UUID, sub wager.Submission) TicketSubmission {
	return TicketSubmission{
		ID:         uuid.New(),
		SessionID:  sessionID,
		RaceID:     raceID,
		Submission: sub,
	}
}

// Submitter places a submitted ticket
type Submitter interface {
	Submit(ctx context.Context, ticket TicketSubmission) error
}

// LogSubmitter only writes submissions to the audit log
type LogSubmitter struct {
	audit *logger.AuditLogger
}

// NewLogSubmitter creates a submitter backed by the audit log
func NewLogSubmitter(audit *logger.AuditLogger) *LogSubmitter {
	return &LogSubmitter{audit: audit}
}

// Submit logs the ticket
func (s *LogSubmitter) Submit(ctx context.Context, ticket TicketSubmission) error {
	auditSubmission(s.audit, ticket)
	return nil
}

func auditSubmission(audit *logger.AuditLogger, ticket TicketSubmission) {
	if audit == nil {
		return
	}
	submittedAt := ticket.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = time.Now()
	}
	audit.LogTicketSubmitted(
		ticket.SessionID,
		ticket.RaceID.String(),
		len(ticket.Selections),
		ticket.TotalCost.StringFixed(2),
		ticket.Payout.Low.StringFixed(2),
		ticket.Payout.High.StringFixed(2),
		submittedAt,
	)
}
