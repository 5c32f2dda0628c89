// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package models

import "time"

// Reminder is a user-defined rule that produces reminder notifications.
// An empty RepeatOnDays makes it one-shot; otherwise it repeats weekly on
// the listed weekdays (0=Sunday..6=Saturday) at StartDateTime's time of day.
type Reminder struct {
	ID                   string       `json:"id"`
	MediaID              MediaID      `json:"mediaId"`
	Title                string       `json:"title"`
	Notes                string       `json:"notes"`
	StartDateTime        time.Time    `json:"startDateTime"`
	RepeatOnDays         Set[Weekday] `json:"repeatOnDays"`
	AutoStopOnCompletion bool         `json:"autoStopOnCompletion"`
	CreatedAt            time.Time    `json:"createdAt"`
}

// Weekday is 0 (Sunday) through 6 (Saturday), matching time.Weekday.
type Weekday int

// Valid reports whether w is in 0..6.
func (w Weekday) Valid() bool {
	return w >= 0 && w <= 6
}

// IsRepeating reports whether the reminder recurs weekly.
func (r *Reminder) IsRepeating() bool {
	return r.RepeatOnDays.Len() > 0
}

// Clone returns a deep copy.
func (r Reminder) Clone() Reminder {
	r.RepeatOnDays = r.RepeatOnDays.Clone()
	return r
}
