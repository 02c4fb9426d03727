// Package kafka publishes audit events as JSON records to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "github.com/Kakrote/udyam-registration-app/pkg/platform/audit"
)

// Store implements audit.Store by producing one record per event, keyed by
// subject so events for one postal code or registration stay ordered.
type Store struct {
	client *kgo.Client
	topic  string
}

// record is the wire shape on the topic.
type record struct {
	Category     string          `json:"category"`
	Timestamp    time.Time       `json:"timestamp"`
	Action       string          `json:"action"`
	Subject      string          `json:"subject,omitempty"`
	Outcome      string          `json:"outcome,omitempty"`
	RequestID    string          `json:"requestId,omitempty"`
	ClientIP     string          `json:"clientIp,omitempty"`
	UserAgent    string          `json:"userAgent,omitempty"`
	Endpoint     string          `json:"endpoint,omitempty"`
	Method       string          `json:"method,omitempty"`
	StatusCode   int             `json:"statusCode,omitempty"`
	DurationMs   int64           `json:"durationMs,omitempty"`
	Payload      json.RawMessage `json:"requestData,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
}

// New connects to the brokers and verifies reachability.
func New(ctx context.Context, brokers []string, topic string) (*Store, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping kafka: %w", err)
	}
	return &Store{client: client, topic: topic}, nil
}

// EnsureTopic creates the topic if it does not already exist.
func (s *Store) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(s.client)
	resp, err := adm.CreateTopics(ctx, partitions, replicationFactor, nil, s.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", s.topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(record{
		Category:     string(event.Category),
		Timestamp:    event.Timestamp,
		Action:       event.Action,
		Subject:      event.Subject,
		Outcome:      event.Outcome,
		RequestID:    event.RequestID,
		ClientIP:     event.ClientIP,
		UserAgent:    event.UserAgent,
		Endpoint:     event.Endpoint,
		Method:       event.Method,
		StatusCode:   event.StatusCode,
		DurationMs:   event.DurationMs,
		Payload:      event.Payload,
		ErrorMessage: event.ErrorMessage,
	})
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	rec := &kgo.Record{Topic: s.topic, Key: []byte(event.Subject), Value: value}
	if err := s.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce audit record: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.client.Close()
}
