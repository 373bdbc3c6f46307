package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// Subscription is a registered listener. Admin subscriptions receive every
// event; others only events about their own complaints.
type Subscription struct {
	ViewerID string
	Admin    bool

	send chan []byte
	once sync.Once
}

// C returns the channel of encoded events. It is closed on unsubscribe or when
// the subscriber falls too far behind.
func (s *Subscription) C() <-chan []byte { return s.send }

func (s *Subscription) close() { s.once.Do(func() { close(s.send) }) }

func (s *Subscription) wants(ev Event) bool {
	return s.Admin || ev.Complaint.SubmitterID == s.ViewerID
}

// Hub fans lifecycle events out to websocket subscribers. It is safe for
// concurrent use.
type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a listener scoped to viewerID, or to everything when
// admin is true.
func (h *Hub) Subscribe(viewerID string, admin bool) *Subscription {
	s := &Subscription{ViewerID: viewerID, Admin: admin, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Unsubscribe removes s and closes its channel. It is idempotent.
func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
	s.close()
}

// Len reports the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Notify implements Notifier. Slow subscribers whose buffer is full are
// dropped rather than blocking the publisher.
func (h *Hub) Notify(_ context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("event", string(ev.Type)).Msg("encode event")
		return
	}

	var slow []*Subscription
	h.mu.RLock()
	for s := range h.subs {
		if !s.wants(ev) {
			continue
		}
		select {
		case s.send <- payload:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		log.Warn().Str("viewer_id", s.ViewerID).Msg("dropping slow event subscriber")
		h.Unsubscribe(s)
	}
}

// Serve pumps events to conn until the peer disconnects or the subscription
// is dropped. It blocks and closes conn before returning.
func (h *Hub) Serve(conn *websocket.Conn, viewerID string, admin bool) {
	sub := h.Subscribe(viewerID, admin)
	done := make(chan struct{})
	go func() {
		defer close(done)
		writePump(conn, sub)
	}()

	readPump(conn)
	h.Unsubscribe(sub)
	<-done
}

// readPump discards client frames and keeps the read deadline fresh via pongs.
func readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Msg("websocket read")
			}
			return
		}
	}
}

func writePump(conn *websocket.Conn, sub *Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
