// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

var (
	_ suture.Service = (*SchedulerService)(nil)
	_ suture.Service = (*HTTPServerService)(nil)
	_ suture.Service = (*HubService)(nil)
)

type fakeScheduler struct {
	startErr error
	starts   atomic.Int32
	stops    atomic.Int32
}

func (f *fakeScheduler) Start(context.Context) error {
	f.starts.Add(1)
	return f.startErr
}

func (f *fakeScheduler) Stop() { f.stops.Add(1) }

// fakeServer blocks in ListenAndServe until Shutdown unless listenErr is set.
type fakeServer struct {
	listenErr   error
	shutdownErr error
	started     chan struct{}
	stopped     chan struct{}
	shutdowns   atomic.Int32
}

func newFakeServer() *fakeServer {
	return &fakeServer{started: make(chan struct{}), stopped: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	close(f.started)
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stopped
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	close(f.stopped)
	return f.shutdownErr
}

type fakeHub struct{ runs atomic.Int32 }

func (f *fakeHub) RunWithContext(ctx context.Context) error {
	f.runs.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func serveUntilCanceled(t *testing.T, svc suture.Service, ready func()) error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()
	ready()
	cancel()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
		return nil
	}
}

func TestSchedulerService(t *testing.T) {
	t.Run("stops on cancellation", func(t *testing.T) {
		s := &fakeScheduler{}
		svc := NewSchedulerService("update-poller", s)
		err := serveUntilCanceled(t, svc, func() {
			for s.starts.Load() == 0 {
				time.Sleep(time.Millisecond)
			}
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
		if s.stops.Load() != 1 {
			t.Errorf("Stop calls = %d, want 1", s.stops.Load())
		}
		if svc.String() != "update-poller" {
			t.Errorf("String() = %q", svc.String())
		}
	})

	t.Run("start failure is returned", func(t *testing.T) {
		boom := errors.New("boom")
		svc := NewSchedulerService("reminder-engine", &fakeScheduler{startErr: boom})
		if err := svc.Serve(context.Background()); !errors.Is(err, boom) {
			t.Errorf("Serve() = %v, want wrapped boom", err)
		}
	})
}

func TestHTTPServerService(t *testing.T) {
	t.Run("default timeout", func(t *testing.T) {
		for _, d := range []time.Duration{0, -time.Second} {
			if got := NewHTTPServerService(newFakeServer(), d).shutdownTimeout; got != defaultShutdownTimeout {
				t.Errorf("timeout(%v) = %v, want %v", d, got, defaultShutdownTimeout)
			}
		}
	})

	t.Run("graceful shutdown", func(t *testing.T) {
		srv := newFakeServer()
		err := serveUntilCanceled(t, NewHTTPServerService(srv, time.Second), func() { <-srv.started })
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
		if srv.shutdowns.Load() != 1 {
			t.Errorf("Shutdown calls = %d, want 1", srv.shutdowns.Load())
		}
	})

	t.Run("listen failure", func(t *testing.T) {
		bind := errors.New("bind: address already in use")
		srv := newFakeServer()
		srv.listenErr = bind
		if err := NewHTTPServerService(srv, time.Second).Serve(context.Background()); !errors.Is(err, bind) {
			t.Errorf("Serve() = %v, want bind error", err)
		}
	})

	t.Run("shutdown failure", func(t *testing.T) {
		stuck := errors.New("shutdown timeout")
		srv := newFakeServer()
		srv.shutdownErr = stuck
		err := serveUntilCanceled(t, NewHTTPServerService(srv, time.Second), func() { <-srv.started })
		if !errors.Is(err, stuck) {
			t.Errorf("Serve() = %v, want shutdown error", err)
		}
	})
}

func TestHubService(t *testing.T) {
	hub := &fakeHub{}
	svc := NewHubService(hub)
	err := serveUntilCanceled(t, svc, func() {
		for hub.runs.Load() == 0 {
			time.Sleep(time.Millisecond)
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
	if svc.String() != "notification-hub" {
		t.Errorf("String() = %q", svc.String())
	}
}
