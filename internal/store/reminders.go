// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package store

import (
	"context"
	"slices"
	"time"

	"github.com/tomtom215/shiori/internal/models"
	"github.com/tomtom215/shiori/internal/validation"
)

// ReminderInput is the user-editable part of a reminder.
type ReminderInput struct {
	MediaID              models.MediaID `json:"mediaId" validate:"required,gt=0"`
	Title                string         `json:"title" validate:"required,max=200"`
	Notes                string         `json:"notes" validate:"max=2000"`
	StartDateTime        time.Time      `json:"startDateTime" validate:"required"`
	RepeatOnDays         []int          `json:"repeatOnDays" validate:"max=7,dive,weekday"`
	AutoStopOnCompletion bool           `json:"autoStopOnCompletion"`
}

func (in *ReminderInput) days() models.Set[models.Weekday] {
	out := models.NewSet[models.Weekday]()
	for _, d := range in.RepeatOnDays {
		out.Add(models.Weekday(d))
	}
	return out
}

// AddReminder validates in and appends a new reminder.
func (s *Store) AddReminder(ctx context.Context, in ReminderInput) (models.Reminder, error) {
	if verr := validation.ValidateStruct(&in); verr != nil {
		return models.Reminder{}, verr
	}
	r := models.Reminder{
		ID:                   newID(),
		MediaID:              in.MediaID,
		Title:                in.Title,
		Notes:                in.Notes,
		StartDateTime:        in.StartDateTime,
		RepeatOnDays:         in.days(),
		AutoStopOnCompletion: in.AutoStopOnCompletion,
		CreatedAt:            s.now().UTC(),
	}
	_, err := s.Update(ctx, func(d *models.ListData) error {
		d.Reminders = append(d.Reminders, r)
		return nil
	})
	if err != nil {
		return models.Reminder{}, err
	}
	return r.Clone(), nil
}

// UpdateReminder replaces the editable fields of reminder id. Its
// notifications are kept.
func (s *Store) UpdateReminder(ctx context.Context, id string, in ReminderInput) (models.Reminder, error) {
	if verr := validation.ValidateStruct(&in); verr != nil {
		return models.Reminder{}, verr
	}
	var updated models.Reminder
	_, err := s.Update(ctx, func(d *models.ListData) error {
		i := slices.IndexFunc(d.Reminders, func(r models.Reminder) bool { return r.ID == id })
		if i < 0 {
			return ErrReminderNotFound
		}
		r := &d.Reminders[i]
		r.MediaID = in.MediaID
		r.Title = in.Title
		r.Notes = in.Notes
		r.StartDateTime = in.StartDateTime
		r.RepeatOnDays = in.days()
		r.AutoStopOnCompletion = in.AutoStopOnCompletion
		updated = r.Clone()
		return nil
	})
	return updated, err
}

// DeleteReminder removes reminder id together with every notification
// that references it.
func (s *Store) DeleteReminder(ctx context.Context, id string) error {
	_, err := s.Update(ctx, func(d *models.ListData) error {
		before := len(d.Reminders)
		d.Reminders = slices.DeleteFunc(d.Reminders, func(r models.Reminder) bool { return r.ID == id })
		if len(d.Reminders) == before {
			return ErrReminderNotFound
		}
		d.Notifications = slices.DeleteFunc(d.Notifications, func(n models.Notification) bool {
			rid, ok := n.ReminderID()
			return ok && rid == id
		})
		return nil
	})
	return err
}

// Reminder returns one reminder by id.
func (s *Store) Reminder(id string) (models.Reminder, bool) {
	for _, r := range s.ListData().Reminders {
		if r.ID == id {
			return r.Clone(), true
		}
	}
	return models.Reminder{}, false
}
