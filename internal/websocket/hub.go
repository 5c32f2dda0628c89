// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package websocket

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/shiori/internal/logging"
	"github.com/tomtom215/shiori/internal/metrics"
	"github.com/tomtom215/shiori/internal/models"
	"github.com/tomtom215/shiori/internal/store"
)

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// ErrHubStopped is returned by Attach once the hub has shut down.
var ErrHubStopped = errors.New("websocket hub stopped")

// Message types pushed to clients.
const (
	MessageTypeNotification   = "notification"
	MessageTypeUnseenCount    = "unseen_count"
	MessageTypeResync         = "resync"
	MessageTypeCheckCompleted = "check_completed"
	MessageTypePing           = "ping"
	MessageTypePong           = "pong"
)

// Message is the envelope for every frame.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// UnseenCountData carries the feed's unseen total.
type UnseenCountData struct {
	Unseen int `json:"unseen"`
}

// ResyncData tells clients to refetch everything after a bulk change.
type ResyncData struct {
	Reason string `json:"reason"`
}

// Hub tracks connected clients and fans messages out to them.
// It also observes the list store and pushes feed changes.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	// done is closed once the run loop exits so departing clients do not
	// block on Unregister.
	done     chan struct{}
	doneOnce sync.Once
}

// NewHub creates a hub. Run it with RunWithContext.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
	}
}

// RunWithContext processes registrations and broadcasts until ctx ends,
// then closes every client. Lifecycle events are drained before a
// broadcast so a just-registered client never misses one.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case c := <-h.Register:
			h.add(c)
			continue
		case c := <-h.Unregister:
			h.remove(c)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case c := <-h.Register:
			h.add(c)
		case c := <-h.Unregister:
			h.remove(c)
		case msg := <-h.broadcast:
			h.broadcastToClients(msg)
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Set(float64(n))
	logging.Info().Int("total_clients", n).Msg("websocket client connected")
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.Set(float64(n))
	logging.Info().Int("total_clients", n).Msg("websocket client disconnected")
}

func (h *Hub) shutdown(ctx context.Context) {
	h.doneOnce.Do(func() { close(h.done) })
	n := h.closeAllClients()
	reason := ShutdownReasonContextCanceled
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		reason = ShutdownReasonContextDeadline
	}
	// Cancellation is the normal stop path, so no error field.
	logging.Info().
		Str("component", "notification-hub").
		Str("reason", string(reason)).
		Int("clients_closed", n).
		Msg("websocket hub stopped")
}

// sortedClients must be called with mu held. Clients are visited in id
// order so delivery order is reproducible.
func (h *Hub) sortedClients() []*Client {
	out := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// broadcastToClients drops any client whose buffer is full.
func (h *Hub) broadcastToClients(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var slow []*Client
	for _, c := range h.sortedClients() {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		close(c.send)
		delete(h.clients, c)
	}
	if len(slow) > 0 {
		metrics.WSConnections.Set(float64(len(h.clients)))
		logging.Warn().Int("dropped", len(slow)).Msg("dropped slow websocket clients")
	}
}

func (h *Hub) closeAllClients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.sortedClients()
	for _, c := range clients {
		close(c.send)
		delete(h.clients, c)
	}
	metrics.WSConnections.Set(0)
	return len(clients)
}

// Attach queues initial for c and registers it. initial is delivered
// before any broadcast. It fails when ctx ends before the hub accepts c.
func (h *Hub) Attach(ctx context.Context, c *Client, initial ...Message) error {
	for _, msg := range initial {
		select {
		case c.send <- msg:
		default:
		}
	}
	select {
	case h.Register <- c:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// leave unregisters c unless the hub already stopped.
func (h *Hub) leave(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastJSON queues a message for every client. It never blocks; when
// the queue is full the message is dropped.
func (h *Hub) BroadcastJSON(messageType string, data any) {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
	default:
		logging.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping message")
	}
}

// OnCommit implements store.Observer. Mutations push each new
// notification and the new unseen total when it changed. Bulk changes
// such as import or reset push a single resync.
func (h *Hub) OnCommit(ctx context.Context, ev store.Event) {
	if ev.Reason != store.ReasonMutation || ev.Prev == nil || ev.Next == nil {
		h.BroadcastJSON(MessageTypeResync, ResyncData{Reason: string(ev.Reason)})
		return
	}

	known := make(map[string]bool, len(ev.Prev.Notifications))
	for i := range ev.Prev.Notifications {
		known[ev.Prev.Notifications[i].ID] = true
	}
	pushed := 0
	for i := range ev.Next.Notifications {
		n := ev.Next.Notifications[i]
		if !known[n.ID] {
			h.BroadcastJSON(MessageTypeNotification, n.Clone())
			pushed++
		}
	}

	before, after := unseen(ev.Prev), unseen(ev.Next)
	if before != after {
		h.BroadcastJSON(MessageTypeUnseenCount, UnseenCountData{Unseen: after})
	}
	if pushed > 0 {
		logging.Ctx(ctx).Debug().Int("notifications", pushed).Msg("pushed notifications to websocket clients")
	}
}

func unseen(d *models.ListData) int {
	n := 0
	for i := range d.Notifications {
		if !d.Notifications[i].Seen {
			n++
		}
	}
	return n
}

// MarshalMessage encodes a message as JSON.
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
