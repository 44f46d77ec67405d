package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/yourusername/trackside/internal/config"
	"github.com/yourusername/trackside/internal/logger"
)

// DefaultTopic receives submitted tickets
const DefaultTopic = "tickets.submitted"

// MessageWriter is the part of kafka.Writer the submitter uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSubmitter publishes tickets as JSON keyed by session id
type KafkaSubmitter struct {
	writer MessageWriter
	audit  *logger.AuditLogger
}

// NewKafkaWriter builds a writer for the configured brokers and topic
func NewKafkaWriter(cfg config.KafkaConfig) *kafka.Writer {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
}

// NewKafkaSubmitter creates a submitter on writer. audit may be nil.
func NewKafkaSubmitter(writer MessageWriter, audit *logger.AuditLogger) *KafkaSubmitter {
	return &KafkaSubmitter{writer: writer, audit: audit}
}

// Submit writes the ticket to the topic
func (s *KafkaSubmitter) Submit(ctx context.Context, ticket TicketSubmission) error {
	payload, err := json.Marshal(ticket)
	if err != nil {
		return fmt.Errorf("failed to encode ticket: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(ticket.SessionID),
		Value: payload,
		Time:  ticket.SubmittedAt,
		Headers: []kafka.Header{
			{Key: "ticket_id", Value: []byte(ticket.ID.String())},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish ticket %s: %w", ticket.ID, err)
	}

	auditSubmission(s.audit, ticket)
	return nil
}

// Close flushes and closes the writer
func (s *KafkaSubmitter) Close() error {
	return s.writer.Close()
}

// FromConfig returns a KafkaSubmitter when Kafka is enabled, else a LogSubmitter
func FromConfig(cfg config.KafkaConfig, audit *logger.AuditLogger) Submitter {
	if !cfg.Enabled {
		return NewLogSubmitter(audit)
	}
	return NewKafkaSubmitter(NewKafkaWriter(cfg), audit)
}
