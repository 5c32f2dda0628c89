// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/shiori/internal/kv"
	"github.com/tomtom215/shiori/internal/models"
	"github.com/tomtom215/shiori/internal/store"
)

var testNow = time.Date(2026, 5, 13, 12, 0, 0, 0, time.UTC)

func runHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

// fakeClient has no connection; tests read its send buffer directly.
func fakeClient(hub *Hub, buffer int) *Client {
	return &Client{id: clientIDCounter.Add(1), hub: hub, send: make(chan Message, buffer)}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("client channel closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
		return Message{}
	}
}

func waitClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", hub.ClientCount(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	hub := runHub(t)
	a, b := fakeClient(hub, 4), fakeClient(hub, 4)
	hub.Register <- a
	hub.Register <- b
	waitClients(t, hub, 2)

	hub.BroadcastJSON(MessageTypeCheckCompleted, map[string]int{"updates": 2})
	for _, c := range []*Client{a, b} {
		if msg := receive(t, c); msg.Type != MessageTypeCheckCompleted {
			t.Errorf("client %d got %q", c.ID(), msg.Type)
		}
	}

	hub.Unregister <- a
	waitClients(t, hub, 1)
	if _, ok := <-a.send; ok {
		t.Error("unregistered client channel still open")
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := runHub(t)
	slow := fakeClient(hub, 1)
	fast := fakeClient(hub, 8)
	hub.Register <- slow
	hub.Register <- fast
	waitClients(t, hub, 2)

	hub.BroadcastJSON(MessageTypeResync, ResyncData{Reason: "a"})
	hub.BroadcastJSON(MessageTypeResync, ResyncData{Reason: "b"})

	waitClients(t, hub, 1)
	receive(t, fast)
	receive(t, fast)
}

func TestHub_StopsOnCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()

	c := fakeClient(hub, 1)
	hub.Register <- c
	waitClients(t, hub, 1)
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("RunWithContext() = %v, want context.Canceled", err)
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after stop", hub.ClientCount())
	}
	if _, ok := <-c.send; ok {
		t.Error("client channel still open after stop")
	}
}

func TestHub_OnCommit(t *testing.T) {
	ctx := context.Background()
	hub := runHub(t)
	c := fakeClient(hub, 16)
	hub.Register <- c
	waitClients(t, hub, 1)

	s := store.New(kv.NewMemoryStore(), nil, store.WithClock(func() time.Time { return testNow }))
	s.Subscribe(hub)

	if _, err := s.CreateProfile(ctx, "tester"); err != nil {
		t.Fatalf("CreateProfile() error = %v", err)
	}
	if msg := receive(t, c); msg.Type != MessageTypeResync {
		t.Fatalf("after profile creation got %q, want resync", msg.Type)
	}

	_, err := s.Update(ctx, func(d *models.ListData) error {
		d.Notifications = append(d.Notifications, models.NewNotification(models.UpdatePayload{
			MediaID: 1, Title: "show", MediaType: models.MediaTypeAnime, Diff: 1, Previous: 1, Current: 2,
		}, testNow))
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	msg := receive(t, c)
	if msg.Type != MessageTypeNotification {
		t.Fatalf("got %q, want notification", msg.Type)
	}
	n, ok := msg.Data.(models.Notification)
	if !ok || n.Kind() != models.NotificationUpdate {
		t.Errorf("notification data = %#v", msg.Data)
	}
	msg = receive(t, c)
	if got, ok := msg.Data.(UnseenCountData); msg.Type != MessageTypeUnseenCount || !ok || got.Unseen != 1 {
		t.Errorf("got %q %#v, want unseen_count 1", msg.Type, msg.Data)
	}

	// A mutation that leaves the feed alone pushes nothing.
	if _, err := s.ToggleCurrentlyWatching(ctx, 5); err != nil {
		t.Fatalf("ToggleCurrentlyWatching() error = %v", err)
	}
	select {
	case msg := <-c.send:
		t.Errorf("unexpected message %q", msg.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClient_EndToEnd(t *testing.T) {
	hub := runHub(t)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient(hub, conn)
		hub.Register <- c
		c.Start()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	waitClients(t, hub, 1)

	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Message
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if got.Type != MessageTypePong {
		t.Errorf("reply type = %q, want pong", got.Type)
	}

	hub.BroadcastJSON(MessageTypeUnseenCount, UnseenCountData{Unseen: 4})
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	data, _ := got.Data.(map[string]any)
	if got.Type != MessageTypeUnseenCount || data["unseen"] != float64(4) {
		t.Errorf("got %+v, want unseen_count 4", got)
	}
}

func TestMarshalMessage(t *testing.T) {
	b, err := MarshalMessage(Message{Type: MessageTypeResync, Data: ResyncData{Reason: "import"}})
	if err != nil {
		t.Fatalf("MarshalMessage() error = %v", err)
	}
	if want := `{"type":"resync","data":{"reason":"import"}}`; string(b) != want {
		t.Errorf("MarshalMessage() = %s, want %s", b, want)
	}
}

func TestHub_Attach(t *testing.T) {
	hub := runHub(t)
	c := fakeClient(hub, 4)
	greeting := Message{Type: MessageTypeUnseenCount, Data: UnseenCountData{Unseen: 3}}
	if err := hub.Attach(context.Background(), c, greeting); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	waitClients(t, hub, 1)

	hub.BroadcastJSON(MessageTypeResync, ResyncData{Reason: "import"})
	if msg := receive(t, c); msg.Type != MessageTypeUnseenCount {
		t.Errorf("first message = %q, want greeting", msg.Type)
	}
	if msg := receive(t, c); msg.Type != MessageTypeResync {
		t.Errorf("second message = %q, want resync", msg.Type)
	}
}

func TestHub_AttachWithoutRunningHub(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := hub.Attach(ctx, fakeClient(hub, 1)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Attach() error = %v, want deadline exceeded", err)
	}
}

func TestHub_AttachAfterShutdown(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := hub.RunWithContext(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("RunWithContext() error = %v", err)
	}

	err := hub.Attach(context.Background(), fakeClient(hub, 1))
	if !errors.Is(err, ErrHubStopped) {
		t.Errorf("Attach() error = %v, want ErrHubStopped", err)
	}
	// leave must not block once the hub is gone.
	hub.leave(fakeClient(hub, 1))
}
