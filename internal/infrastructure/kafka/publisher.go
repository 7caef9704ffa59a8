package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-commission-service/internal/domain"
	"github.com/segmentio/kafka-go"
)

const writeTimeout = 10 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes notices and payout events keyed by affiliate id so
// that one affiliate's messages stay ordered within a partition.
type KafkaPublisher struct {
	notifications messageWriter
	payouts       messageWriter
}

func NewKafkaPublisher(brokers []string, notificationsTopic, payoutsTopic string) *KafkaPublisher {
	return &KafkaPublisher{
		notifications: newWriter(brokers, notificationsTopic),
		payouts:       newWriter(brokers, payoutsTopic),
	}
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
	}
}

func (k *KafkaPublisher) PublishNotification(ctx context.Context, n *domain.Notification) error {
	return k.write(ctx, k.notifications, n.AffiliateID, NotificationEvent{
		NotificationID: n.ID,
		AffiliateID:    n.AffiliateID,
		Title:          n.Title,
		Text:           n.Text,
		Date:           n.Date,
	})
}

func (k *KafkaPublisher) PublishPayoutEvent(ctx context.Context, e domain.PayoutEvent) error {
	return k.write(ctx, k.payouts, e.AffiliateID, PayoutEvent{
		Type:          string(e.Type),
		PaymentID:     e.PaymentID,
		AffiliateID:   e.AffiliateID,
		TransactionID: e.TransactionID,
		Amount:        e.Amount,
		Currency:      e.Currency,
		OccurredAt:    e.OccurredAt,
	})
}

func (k *KafkaPublisher) write(ctx context.Context, w messageWriter, key string, event any) error {
	v, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	return w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: v,
		Time:  time.Now(),
	})
}

func (k *KafkaPublisher) Close() error {
	nErr := k.notifications.Close()
	pErr := k.payouts.Close()
	if nErr != nil {
		return nErr
	}
	return pErr
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishNotification(context.Context, *domain.Notification) error { return nil }

func (NoopPublisher) PublishPayoutEvent(context.Context, domain.PayoutEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
