// Package notify streams change events and alerts to WebSocket subscribers.
package notify

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"wallet-score/internal/domain"
	"wallet-score/internal/observability"
	"wallet-score/internal/watchlist"
)

// Message types.
const (
	TypeChange = "change"
	TypeAlert  = "alert"
)

// Message is one frame sent to subscribers.
type Message struct {
	Type   string              `json:"type"`
	Change *domain.ChangeEvent `json:"change,omitempty"`
	Alert  *watchlist.Alert    `json:"alert,omitempty"`
}

// HubConfig configures subscriber connections.
type HubConfig struct {
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is how long a subscriber may stay silent, pongs included.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing one frame.
	WriteTimeout time.Duration
	// SendBuffer is the per-subscriber queue length. Subscribers that fall
	// further behind are disconnected.
	SendBuffer int
}

// DefaultHubConfig returns default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		PingInterval: 30 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
		SendBuffer:   64,
	}
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// Hub fans out messages to every connected subscriber.
type Hub struct {
	config   HubConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	closed atomic.Bool
	wg     sync.WaitGroup
}

// NewHub creates a hub. A nil config uses DefaultHubConfig.
func NewHub(config *HubConfig, logger *zap.Logger) *Hub {
	cfg := DefaultHubConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		config: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
		subs:   make(map[*subscriber]struct{}),
	}
}

// ServeHTTP upgrades the request and registers the connection as a subscriber.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.closed.Load() {
		http.Error(w, "hub closed", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	s := &subscriber{conn: conn, send: make(chan []byte, h.config.SendBuffer)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	observability.UpdateAlertSubscribers(n)
	h.logger.Debug("subscriber connected", zap.String("remote", r.RemoteAddr), zap.Int("subscribers", n))

	h.wg.Add(2)
	go h.writeLoop(s)
	go h.readLoop(s)
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// NotifyChange broadcasts a significant change event.
func (h *Hub) NotifyChange(event domain.ChangeEvent) {
	h.broadcast(Message{Type: TypeChange, Change: &event})
}

// PublishAlert broadcasts alert and returns the number of subscribers it was
// queued for.
func (h *Hub) PublishAlert(alert *watchlist.Alert) int {
	if alert == nil {
		return 0
	}
	n := h.broadcast(Message{Type: TypeAlert, Alert: alert})
	observability.RecordAlertPublished()
	h.logger.Info("alert published", zap.String("title", alert.Title), zap.Int("subscribers", n))
	return n
}

func (h *Hub) broadcast(msg Message) int {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal hub message", zap.Error(err))
		return 0
	}

	var slow []*subscriber
	delivered := 0

	h.mu.RLock()
	for s := range h.subs {
		select {
		case s.send <- data:
			delivered++
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		h.logger.Warn("dropping slow subscriber", zap.String("remote", s.conn.RemoteAddr().String()))
		h.remove(s)
	}
	return delivered
}

// remove unregisters s and stops its write loop. Safe to call more than once.
func (h *Hub) remove(s *subscriber) {
	s.once.Do(func() {
		h.mu.Lock()
		delete(h.subs, s)
		n := len(h.subs)
		h.mu.Unlock()
		observability.UpdateAlertSubscribers(n)
		close(s.send)
	})
}

// writeLoop drains the subscriber queue and sends pings.
func (h *Hub) writeLoop(s *subscriber) {
	defer h.wg.Done()
	ticker := time.NewTicker(h.config.PingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.remove(s)
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(s)
				return
			}
		}
	}
}

// readLoop discards inbound frames and detects disconnects.
func (h *Hub) readLoop(s *subscriber) {
	defer h.wg.Done()
	defer h.remove(s)

	s.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Close disconnects all subscribers and waits for their goroutines.
func (h *Hub) Close() error {
	if h.closed.Swap(true) {
		return nil // Already closed
	}

	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		h.remove(s)
	}
	h.wg.Wait()
	return nil
}

var _ watchlist.Notifier = (*Hub)(nil)
