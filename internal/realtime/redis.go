package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/trackside/internal/config"
	"github.com/yourusername/trackside/internal/logger"
	"github.com/yourusername/trackside/internal/metrics"
	"github.com/yourusername/trackside/internal/models"
)

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// RedisPublisher publishes horse list updates for other processes
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *logrus.Entry
	now     func() time.Time
}

// NewRedisPublisher creates a publisher on channel, or DefaultChannel when empty
func NewRedisPublisher(client *redis.Client, channel string, log *logrus.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{
		client:  client,
		channel: channel,
		logger:  logger.OrDiscard(log).WithField("component", "redis_publisher"),
		now:     time.Now,
	}
}

// PublishHorses sends the race's current field to every subscriber
func (p *RedisPublisher) PublishHorses(ctx context.Context, raceID uuid.UUID, horses []models.Horse) error {
	payload, err := encodeUpdate(HorseListUpdate{RaceID: raceID, Horses: horses, UpdatedAt: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode horse list update: %w", err)
	}

	receivers, err := p.client.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish horse list update: %w", err)
	}

	metrics.RecordHorseListPublished()
	p.logger.WithFields(logrus.Fields{
		"race_id":   raceID,
		"horses":    len(horses),
		"receivers": receivers,
	}).Debug("Published horse list update")
	return nil
}

// RedisSubscriber receives horse list updates published by ingestion
type RedisSubscriber struct {
	client  *redis.Client
	channel string
	logger  *logrus.Entry
}

// NewRedisSubscriber creates a subscriber on channel, or DefaultChannel when empty
func NewRedisSubscriber(client *redis.Client, channel string, log *logrus.Logger) *RedisSubscriber {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisSubscriber{
		client:  client,
		channel: channel,
		logger:  logger.OrDiscard(log).WithField("component", "redis_subscriber"),
	}
}

// Run delivers updates to every handler until ctx is cancelled
func (s *RedisSubscriber) Run(ctx context.Context, handlers ...UpdateHandler) error {
	sub := s.client.Subscribe(ctx, s.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}
	s.logger.WithField("channel", s.channel).Info("Subscribed to horse list updates")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("redis subscription on %s closed", s.channel)
			}
			s.dispatch([]byte(msg.Payload), handlers)
		}
	}
}

func (s *RedisSubscriber) dispatch(payload []byte, handlers []UpdateHandler) {
	update, err := decodeUpdate(payload)
	if err != nil {
		s.logger.WithError(err).Warn("Dropping malformed horse list update")
		return
	}
	for _, h := range handlers {
		h(update)
	}
}
