package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/trackside/internal/config"
	"github.com/yourusername/trackside/internal/logger"
	"github.com/yourusername/trackside/internal/wager"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func testSubmission() TicketSubmission {
	return NewTicketSubmission("sess-1", uuid.New(), wager.Submission{
		Selections: []wager.BetSelection{
			{HorseID: uuid.New(), HorseName: "Dust Devil", PP: 1, BetType: wager.BetTypeWin, Amount: decimal.NewFromInt(2), RaceNumber: 7},
		},
		TotalCost:   decimal.NewFromInt(2),
		Payout:      wager.PayoutRange{Low: decimal.NewFromInt(8), High: decimal.NewFromInt(12)},
		SubmittedAt: time.Date(2024, 5, 4, 22, 0, 0, 0, time.UTC),
	})
}

func auditBuffer() (*logger.AuditLogger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	return logger.NewAuditLogger(log), buf
}

func TestKafkaSubmitter(t *testing.T) {
	w := &fakeWriter{}
	audit, buf := auditBuffer()
	s := NewKafkaSubmitter(w, audit)
	ticket := testSubmission()

	require.NoError(t, s.Submit(context.Background(), ticket))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "sess-1", string(w.msgs[0].Key))
	assert.Equal(t, ticket.ID.String(), string(w.msgs[0].Headers[0].Value))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "sess-1", decoded["sessionId"])
	assert.Equal(t, "2", decoded["totalCost"])
	assert.Len(t, decoded["selections"], 1)

	assert.Contains(t, buf.String(), "Ticket submitted")

	require.NoError(t, s.Close())
	assert.True(t, w.closed)
}

func TestKafkaSubmitterWriteError(t *testing.T) {
	audit, buf := auditBuffer()
	s := NewKafkaSubmitter(&fakeWriter{err: errors.New("broker unavailable")}, audit)

	err := s.Submit(context.Background(), testSubmission())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
	assert.Empty(t, buf.String(), "failed submissions are not audited as submitted")
}

func TestLogSubmitter(t *testing.T) {
	audit, buf := auditBuffer()
	require.NoError(t, NewLogSubmitter(audit).Submit(context.Background(), testSubmission()))
	assert.Contains(t, buf.String(), `"total_cost":"2.00"`)

	assert.NoError(t, NewLogSubmitter(nil).Submit(context.Background(), testSubmission()))
}

func TestFromConfig(t *testing.T) {
	assert.IsType(t, &LogSubmitter{}, FromConfig(config.KafkaConfig{}, nil))

	s := FromConfig(config.KafkaConfig{Enabled: true, Brokers: []string{"localhost:9092"}}, nil)
	require.IsType(t, &KafkaSubmitter{}, s)
	w := s.(*KafkaSubmitter).writer.(*kafka.Writer)
	assert.Equal(t, DefaultTopic, w.Topic)
}
