package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/metromap/internal/core/domain"
)

// Subscriber implements ports.EditorEventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// SubscribeDocuments consumes exported documents for persistence.
func (s *Subscriber) SubscribeDocuments(ctx context.Context, handler func(ctx context.Context, m *domain.SavedMap) error) error {
	return subscribeJSON(ctx, s, documentPrefix+">", "autosave", handler)
}

// SubscribeNameSuggestions consumes geocoded station names.
func (s *Subscriber) SubscribeNameSuggestions(ctx context.Context, handler func(ctx context.Context, sug *domain.NameSuggestion) error) error {
	return subscribeJSON(ctx, s, namingPrefix+">", "station-namer", handler)
}

// subscribeJSON decodes every message into T. Undecodable messages are
// terminated instead of redelivered.
func subscribeJSON[T any](ctx context.Context, s *Subscriber, subject, durable string, handler func(ctx context.Context, v *T) error) error {
	sub, err := s.js.Subscribe(subject, func(msg *nats.Msg) {
		var v T
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			slog.Warn("dropping undecodable message", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &v); err != nil {
			slog.Warn("message handler failed", "subject", msg.Subject, "error", err)
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
