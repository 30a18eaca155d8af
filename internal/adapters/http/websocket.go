package http

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/metromap/internal/adapters/nats"
	"github.com/samirrijal/metromap/internal/pkg/metrics"
)

// wsMessage is sent from client to follow or stop following a map.
type wsMessage struct {
	Action string `json:"action"` // "subscribe" | "unsubscribe"
	MapID  string `json:"map_id"`
}

// wsEvent wraps a relayed editor event.
type wsEvent struct {
	MapID string          `json:"map_id"`
	Kind  string          `json:"kind"` // "frame" | "summary"
	Data  json.RawMessage `json:"data"`
}

// WebSocketHandler returns a handler that relays editor frames and
// summaries of the maps a client follows. A client may pass ?map_id= on
// the upgrade request to follow one map from the start, and send
// {"action":"subscribe","map_id":"..."} for more.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		if nc == nil {
			_ = c.WriteJSON(map[string]string{"error": "live updates are not available"})
			return
		}

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)

		var mu sync.Mutex
		subs := make(map[string]*nats.Subscription) // map id -> subscription

		// Helper: thread-safe write
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		subscribe := func(mapID string) error {
			s, err := nc.Subscribe(natsadapter.EditorSubject(mapID), func(msg *nats.Msg) {
				// metro.editor.<map>.frame|summary
				kind := msg.Subject[strings.LastIndexByte(msg.Subject, '.')+1:]
				_ = writeJSON(wsEvent{MapID: mapID, Kind: kind, Data: json.RawMessage(msg.Data)})
			})
			if err != nil {
				return err
			}
			subs[mapID] = s
			return nil
		}

		if mapID := c.Query("map_id"); mapID != "" {
			if err := subscribe(mapID); err != nil {
				slog.Warn("ws subscribe failed", "map_id", mapID, "error", err)
				return
			}
		}

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}
			if m.MapID == "" {
				_ = writeJSON(map[string]string{"error": "map_id is required"})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[m.MapID]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "map_id": m.MapID})
					continue
				}
				if err := subscribe(m.MapID); err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				_ = writeJSON(map[string]string{"status": "subscribed", "map_id": m.MapID})

			case "unsubscribe":
				if s, exists := subs[m.MapID]; exists {
					_ = s.Unsubscribe()
					delete(subs, m.MapID)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "map_id": m.MapID})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + m.MapID})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
