// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package services

import (
	"context"
	"fmt"
)

// Scheduler is a component with a Start/Stop lifecycle.
// *poller.Poller and *reminders.Engine satisfy it.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop()
}

// SchedulerService runs a Scheduler under supervision: Start on Serve,
// Stop once the context ends.
type SchedulerService struct {
	scheduler Scheduler
	name      string
}

// NewSchedulerService wraps s. name identifies it in supervisor logs.
func NewSchedulerService(name string, s Scheduler) *SchedulerService {
	return &SchedulerService{scheduler: s, name: name}
}

// Serve implements suture.Service. A Start failure is returned so the
// supervisor restarts the service with backoff.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("%s start failed: %w", s.name, err)
	}
	<-ctx.Done()
	// Stop waits for any run in flight.
	s.scheduler.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for suture's logs.
func (s *SchedulerService) String() string {
	return s.name
}
