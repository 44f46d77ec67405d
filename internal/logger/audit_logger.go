package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger provides dedicated audit trail logging.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogTicketSubmitted logs a built ticket handed off for submission.
func (al *AuditLogger) LogTicketSubmitted(sessionID, raceID string, selections int, totalCost, payoutLow, payoutHigh string, submittedAt time.Time) {
	al.WithFields(logrus.Fields{
		"session_id":  sessionID,
		"race_id":     raceID,
		"selections":  selections,
		"total_cost":  totalCost,
		"payout_low":  payoutLow,
		"payout_high": payoutHigh,
		"timestamp":   submittedAt.Unix(),
	}).Info("Ticket submitted")
}

// LogSelectionsPruned logs ticket lines dropped because their horse was scratched.
func (al *AuditLogger) LogSelectionsPruned(sessionID, raceID string, postPositions []int) {
	al.WithFields(logrus.Fields{
		"session_id":     sessionID,
		"race_id":        raceID,
		"post_positions": postPositions,
		"count":          len(postPositions),
	}).Warn("Ticket selections pruned after scratch")
}

// LogSessionOpened logs a new ticket building session.
func (al *AuditLogger) LogSessionOpened(sessionID, raceID string) {
	al.WithFields(logrus.Fields{
		"session_id": sessionID,
		"race_id":    raceID,
		"event_type": "opened",
	}).Info("Ticket session opened")
}

// LogSessionClosed logs a ticket session ending by deletion or expiry.
func (al *AuditLogger) LogSessionClosed(sessionID, reason string) {
	al.WithFields(logrus.Fields{
		"session_id": sessionID,
		"event_type": "closed",
		"reason":     reason,
	}).Info("Ticket session closed")
}
