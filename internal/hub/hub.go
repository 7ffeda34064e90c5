package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/weiawesome/wes-io-dm/internal/domain"
	"github.com/weiawesome/wes-io-dm/internal/presence"
	"github.com/weiawesome/wes-io-dm/pkg/log"
	"github.com/weiawesome/wes-io-dm/pkg/metrics"
)

var ErrHubStopped = errors.New("hub stopped")

// Hub owns the live connections of this process. Connection lifecycle
// events are serialized through Run, which broadcasts the full online set
// after every connect and disconnect.
type Hub struct {
	registry   *presence.Registry
	clients    map[string]*Client // clientID -> client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	done       chan struct{}
	stopOnce   sync.Once
}

func NewHub(registry *presence.Registry) *Hub {
	return &Hub{
		registry:   registry,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes lifecycle events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer h.stop()

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				client.close()
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			metrics.WsConnections.Inc()

			l := log.L()
			l.Debug().Str(log.FieldConnID, client.ID).Str(log.FieldUserID, client.UserID).Msg("client registered")
			h.broadcastOnline()

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client.ID]
			if ok {
				delete(h.clients, client.ID)
				client.close()
			}
			h.mu.Unlock()
			if !ok {
				continue
			}
			metrics.WsConnections.Dec()

			l := log.L()
			l.Debug().Str(log.FieldConnID, client.ID).Str(log.FieldUserID, client.UserID).Msg("client unregistered")
			h.broadcastOnline()
		}
	}
}

func (h *Hub) stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register makes client the user's presence handle and queues the online
// broadcast. The registry is updated before Register returns, so a lookup
// right after it observes the new connection.
func (h *Hub) Register(client *Client) error {
	if prev := h.registry.Register(client.UserID, client); prev != nil && prev != presence.Handle(client) {
		l := log.L()
		l.Info().Str(log.FieldUserID, client.UserID).Str(log.FieldConnID, client.ID).Msg("connection superseded previous registration")
	}

	select {
	case h.register <- client:
		return nil
	case <-h.done:
		h.registry.Remove(client.UserID, client)
		return ErrHubStopped
	}
}

// Unregister drops client's presence entry if it is still current and
// queues the online broadcast. Calling it twice is harmless.
func (h *Hub) Unregister(client *Client) {
	h.registry.Remove(client.UserID, client)

	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// OnlineUserIDs returns the users currently registered on this process.
func (h *Hub) OnlineUserIDs() []string {
	return h.registry.OnlineUserIDs()
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcastOnline sends the full online set to every open connection.
// Clients whose buffer is full are disconnected.
func (h *Hub) broadcastOnline() {
	data, err := json.Marshal(domain.NewOnlineUsersEvent(h.registry.OnlineUserIDs()))
	if err != nil {
		l := log.L()
		l.Error().Err(err).Msg("failed to marshal online users")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if err := client.enqueue(data); err != nil {
			go h.Unregister(client)
		}
	}
}
