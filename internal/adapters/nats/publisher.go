package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/metromap/internal/core/domain"
)

// Subjects carrying editor events. Frames and summaries of one map share the
// prefix EditorSubject(mapID) so a client can follow a map with one wildcard.
const (
	editorPrefix   = "metro.editor."
	documentPrefix = "metro.documents."
	namingPrefix   = "metro.naming."
)

// EditorSubject is the wildcard subject of every live event of one map.
func EditorSubject(mapID string) string {
	return editorPrefix + mapID + ".>"
}

// Publisher implements ports.EditorEventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			// live frames are only useful to clients catching up after a reconnect
			Name:      "METRO_EDITOR",
			Subjects:  []string{editorPrefix + ">"},
			Retention: nats.LimitsPolicy,
			MaxAge:    10 * time.Minute,
			Storage:   nats.MemoryStorage,
		},
		{
			// only the newest document of a map is worth persisting
			Name:              "METRO_DOCUMENTS",
			Subjects:          []string{documentPrefix + ">"},
			Retention:         nats.LimitsPolicy,
			MaxMsgsPerSubject: 1,
			MaxAge:            24 * time.Hour,
			Storage:           nats.FileStorage,
		},
		{
			Name:      "METRO_NAMING",
			Subjects:  []string{namingPrefix + ">"},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist; try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

func (p *Publisher) PublishFrame(ctx context.Context, mapID string, frame domain.Frame) error {
	return p.publishJSON(ctx, editorPrefix+mapID+".frame", frame)
}

func (p *Publisher) PublishSummary(ctx context.Context, mapID string, summary domain.Summary) error {
	return p.publishJSON(ctx, editorPrefix+mapID+".summary", summary)
}

func (p *Publisher) PublishDocument(ctx context.Context, m *domain.SavedMap) error {
	return p.publishJSON(ctx, documentPrefix+m.ID, m)
}

func (p *Publisher) PublishNameSuggestion(ctx context.Context, s *domain.NameSuggestion) error {
	return p.publishJSON(ctx, fmt.Sprintf("%s%s.%d", namingPrefix, s.MapID, s.StationID), s)
}

func (p *Publisher) publishJSON(ctx context.Context, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(subject, data, nats.Context(ctx))
	return err
}

// Conn exposes the underlying connection for health checks.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("metromap"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
