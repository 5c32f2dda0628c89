// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package models

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// NotificationKind discriminates the notification payload.
type NotificationKind string

const (
	NotificationUpdate   NotificationKind = "update"
	NotificationReminder NotificationKind = "reminder"
	NotificationStorage  NotificationKind = "storage"
)

// NotificationPayload is implemented by UpdatePayload, ReminderPayload and
// StoragePayload only. Consumers switch on the concrete type.
type NotificationPayload interface {
	Kind() NotificationKind
}

// UpdatePayload reports new episodes or chapters for a tracked media.
type UpdatePayload struct {
	MediaID   MediaID   `json:"mediaId"`
	Title     string    `json:"title"`
	MediaType MediaType `json:"mediaType"`
	Diff      int       `json:"diff"`
	Previous  int       `json:"previous"`
	Current   int       `json:"current"`
}

// Kind implements NotificationPayload.
func (UpdatePayload) Kind() NotificationKind { return NotificationUpdate }

// ReminderPayload is emitted when a reminder becomes due.
type ReminderPayload struct {
	ReminderID string  `json:"reminderId"`
	MediaID    MediaID `json:"mediaId"`
	Title      string  `json:"title"`
	Notes      string  `json:"notes"`
}

// Kind implements NotificationPayload.
func (ReminderPayload) Kind() NotificationKind { return NotificationReminder }

// StoragePayload warns that a write was refused by the quota guard.
type StoragePayload struct {
	UsedBytes  int64  `json:"usedBytes"`
	QuotaBytes int64  `json:"quotaBytes"`
	Source     string `json:"source"`
}

// Kind implements NotificationPayload.
func (StoragePayload) Kind() NotificationKind { return NotificationStorage }

// Notification is one entry of the notification feed.
type Notification struct {
	ID        string
	Timestamp time.Time
	Seen      bool
	SeenAt    *time.Time
	Payload   NotificationPayload
}

// NewNotification creates an unseen notification with a fresh id.
func NewNotification(payload NotificationPayload, at time.Time) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Timestamp: at,
		Payload:   payload,
	}
}

// Kind returns the payload kind, or "" for an empty notification.
func (n *Notification) Kind() NotificationKind {
	if n.Payload == nil {
		return ""
	}
	return n.Payload.Kind()
}

// MediaID returns the media the notification refers to, if any.
func (n *Notification) MediaID() (MediaID, bool) {
	switch p := n.Payload.(type) {
	case UpdatePayload:
		return p.MediaID, true
	case ReminderPayload:
		return p.MediaID, true
	case StoragePayload:
		return 0, false
	}
	return 0, false
}

// ReminderID returns the reminder id for reminder notifications.
func (n *Notification) ReminderID() (string, bool) {
	if p, ok := n.Payload.(ReminderPayload); ok {
		return p.ReminderID, true
	}
	return "", false
}

// MarkSeen flags the notification as seen at t. Already-seen entries keep
// their original SeenAt.
func (n *Notification) MarkSeen(t time.Time) {
	if n.Seen {
		return
	}
	n.Seen = true
	n.SeenAt = &t
}

// Clone returns a copy that shares no pointers with n.
func (n Notification) Clone() Notification {
	if n.SeenAt != nil {
		t := *n.SeenAt
		n.SeenAt = &t
	}
	return n
}

type notificationWire struct {
	ID        string           `json:"id"`
	Type      NotificationKind `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Seen      bool             `json:"seen"`
	SeenAt    *time.Time       `json:"seenAt,omitempty"`
	Payload   json.RawMessage  `json:"payload"`
}

// MarshalJSON encodes the payload alongside a "type" discriminator.
func (n Notification) MarshalJSON() ([]byte, error) {
	if n.Payload == nil {
		return nil, fmt.Errorf("notification %s has no payload", n.ID)
	}
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(notificationWire{
		ID:        n.ID,
		Type:      n.Payload.Kind(),
		Timestamp: n.Timestamp,
		Seen:      n.Seen,
		SeenAt:    n.SeenAt,
		Payload:   payload,
	})
}

// UnmarshalJSON decodes the payload selected by the "type" discriminator.
func (n *Notification) UnmarshalJSON(data []byte) error {
	var wire notificationWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	var payload NotificationPayload
	switch wire.Type {
	case NotificationUpdate:
		var p UpdatePayload
		if err := json.Unmarshal(wire.Payload, &p); err != nil {
			return fmt.Errorf("decode update payload: %w", err)
		}
		payload = p
	case NotificationReminder:
		var p ReminderPayload
		if err := json.Unmarshal(wire.Payload, &p); err != nil {
			return fmt.Errorf("decode reminder payload: %w", err)
		}
		payload = p
	case NotificationStorage:
		var p StoragePayload
		if err := json.Unmarshal(wire.Payload, &p); err != nil {
			return fmt.Errorf("decode storage payload: %w", err)
		}
		payload = p
	default:
		return fmt.Errorf("unknown notification type %q", wire.Type)
	}

	*n = Notification{
		ID:        wire.ID,
		Timestamp: wire.Timestamp,
		Seen:      wire.Seen,
		SeenAt:    wire.SeenAt,
		Payload:   payload,
	}
	return nil
}
