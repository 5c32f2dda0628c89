// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package models

import (
	"fmt"
	"strconv"
	"time"
)

// DefaultStorageQuota is the soft storage limit applied to new profiles (1 GiB).
const DefaultStorageQuota int64 = 1 << 30

// ListKind names one of the four list memberships.
type ListKind string

const (
	ListPlanToWatch       ListKind = "planToWatch"
	ListCurrentlyWatching ListKind = "currentlyWatching"
	ListPlanToRead        ListKind = "planToRead"
	ListCurrentlyReading  ListKind = "currentlyReading"
)

// ListKinds lists every membership kind in display order.
var ListKinds = []ListKind{
	ListPlanToWatch,
	ListCurrentlyWatching,
	ListPlanToRead,
	ListCurrentlyReading,
}

// ParseListKind validates a list kind name.
func ParseListKind(s string) (ListKind, error) {
	for _, k := range ListKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown list kind %q", s)
}

// SensitiveGenres are hidden unless the profile explicitly unlocks them.
var SensitiveGenres = []string{"Ecchi", "Hentai"}

// ReadProgress tracks read chapters for one media.
type ReadProgress struct {
	Read     Set[string] `json:"read"`
	LastRead time.Time   `json:"lastRead"`
}

// CustomLinks holds user-supplied deep-link overrides for one media.
// Template is a serialized map from unit number to URL, parsed on read.
type CustomLinks struct {
	Template string `json:"template"`
	Ongoing  bool   `json:"ongoing"`
}

// ListData is the single persisted aggregate for a local profile.
type ListData struct {
	PlanToWatch       Set[MediaID] `json:"planToWatch"`
	CurrentlyWatching Set[MediaID] `json:"currentlyWatching"`
	PlanToRead        Set[MediaID] `json:"planToRead"`
	CurrentlyReading  Set[MediaID] `json:"currentlyReading"`

	WatchedEpisodes    map[MediaID]Set[string]   `json:"watchedEpisodes"`
	ReadChapters       map[MediaID]*ReadProgress `json:"readChapters"`
	CustomEpisodeLinks map[MediaID]CustomLinks   `json:"customEpisodeLinks"`

	Reminders     []Reminder     `json:"reminders"`
	Notifications []Notification `json:"notifications"`

	HiddenGenres             Set[string] `json:"hiddenGenres"`
	SensitiveContentUnlocked bool        `json:"sensitiveContentUnlocked"`
	StorageQuota             int64       `json:"storageQuota"`

	NotificationsLayout   []string `json:"notificationsLayout"`
	PinnedNotificationTab string   `json:"pinnedNotificationTab"`

	ExcludedItems        Set[MediaID] `json:"excludedItems"`
	ReadActivityIDs      Set[string]  `json:"readActivityIds"`
	PinnedNews           Set[string]  `json:"pinnedNews"`
	FavoriteNews         Set[string]  `json:"favoriteNews"`
	FollowedAnimeForNews Set[MediaID] `json:"followedAnimeForNews"`
}

// DefaultNotificationsLayout is the initial tab order of the notification feed.
var DefaultNotificationsLayout = []string{"all", "updates", "reminders", "storage"}

// NewListData returns a fully initialized aggregate with empty collections.
func NewListData() *ListData {
	return &ListData{
		PlanToWatch:           NewSet[MediaID](),
		CurrentlyWatching:     NewSet[MediaID](),
		PlanToRead:            NewSet[MediaID](),
		CurrentlyReading:      NewSet[MediaID](),
		WatchedEpisodes:       make(map[MediaID]Set[string]),
		ReadChapters:          make(map[MediaID]*ReadProgress),
		CustomEpisodeLinks:    make(map[MediaID]CustomLinks),
		Reminders:             []Reminder{},
		Notifications:         []Notification{},
		HiddenGenres:          NewSet[string](),
		StorageQuota:          DefaultStorageQuota,
		NotificationsLayout:   append([]string(nil), DefaultNotificationsLayout...),
		PinnedNotificationTab: DefaultNotificationsLayout[0],
		ExcludedItems:         NewSet[MediaID](),
		ReadActivityIDs:       NewSet[string](),
		PinnedNews:            NewSet[string](),
		FavoriteNews:          NewSet[string](),
		FollowedAnimeForNews:  NewSet[MediaID](),
	}
}

// Normalize fills nil collections left by decoding an older or partial
// aggregate so callers never have to nil-check.
func (d *ListData) Normalize() {
	if d.PlanToWatch == nil {
		d.PlanToWatch = NewSet[MediaID]()
	}
	if d.CurrentlyWatching == nil {
		d.CurrentlyWatching = NewSet[MediaID]()
	}
	if d.PlanToRead == nil {
		d.PlanToRead = NewSet[MediaID]()
	}
	if d.CurrentlyReading == nil {
		d.CurrentlyReading = NewSet[MediaID]()
	}
	if d.WatchedEpisodes == nil {
		d.WatchedEpisodes = make(map[MediaID]Set[string])
	}
	if d.ReadChapters == nil {
		d.ReadChapters = make(map[MediaID]*ReadProgress)
	}
	for id, rp := range d.ReadChapters {
		if rp == nil {
			delete(d.ReadChapters, id)
			continue
		}
		if rp.Read == nil {
			rp.Read = NewSet[string]()
		}
	}
	if d.CustomEpisodeLinks == nil {
		d.CustomEpisodeLinks = make(map[MediaID]CustomLinks)
	}
	if d.Reminders == nil {
		d.Reminders = []Reminder{}
	}
	if d.Notifications == nil {
		d.Notifications = []Notification{}
	}
	if d.HiddenGenres == nil {
		d.HiddenGenres = NewSet[string]()
	}
	if d.StorageQuota <= 0 {
		d.StorageQuota = DefaultStorageQuota
	}
	if d.NotificationsLayout == nil {
		d.NotificationsLayout = append([]string(nil), DefaultNotificationsLayout...)
	}
	if d.ExcludedItems == nil {
		d.ExcludedItems = NewSet[MediaID]()
	}
	if d.ReadActivityIDs == nil {
		d.ReadActivityIDs = NewSet[string]()
	}
	if d.PinnedNews == nil {
		d.PinnedNews = NewSet[string]()
	}
	if d.FavoriteNews == nil {
		d.FavoriteNews = NewSet[string]()
	}
	if d.FollowedAnimeForNews == nil {
		d.FollowedAnimeForNews = NewSet[MediaID]()
	}
}

// Clone returns a deep copy. Mutations on the copy never reach d.
func (d *ListData) Clone() *ListData {
	out := &ListData{
		PlanToWatch:              d.PlanToWatch.Clone(),
		CurrentlyWatching:        d.CurrentlyWatching.Clone(),
		PlanToRead:               d.PlanToRead.Clone(),
		CurrentlyReading:         d.CurrentlyReading.Clone(),
		WatchedEpisodes:          make(map[MediaID]Set[string], len(d.WatchedEpisodes)),
		ReadChapters:             make(map[MediaID]*ReadProgress, len(d.ReadChapters)),
		CustomEpisodeLinks:       make(map[MediaID]CustomLinks, len(d.CustomEpisodeLinks)),
		Reminders:                make([]Reminder, len(d.Reminders)),
		Notifications:            make([]Notification, len(d.Notifications)),
		HiddenGenres:             d.HiddenGenres.Clone(),
		SensitiveContentUnlocked: d.SensitiveContentUnlocked,
		StorageQuota:             d.StorageQuota,
		NotificationsLayout:      append([]string{}, d.NotificationsLayout...),
		PinnedNotificationTab:    d.PinnedNotificationTab,
		ExcludedItems:            d.ExcludedItems.Clone(),
		ReadActivityIDs:          d.ReadActivityIDs.Clone(),
		PinnedNews:               d.PinnedNews.Clone(),
		FavoriteNews:             d.FavoriteNews.Clone(),
		FollowedAnimeForNews:     d.FollowedAnimeForNews.Clone(),
	}
	for id, eps := range d.WatchedEpisodes {
		out.WatchedEpisodes[id] = eps.Clone()
	}
	for id, rp := range d.ReadChapters {
		if rp == nil {
			continue
		}
		out.ReadChapters[id] = &ReadProgress{Read: rp.Read.Clone(), LastRead: rp.LastRead}
	}
	for id, links := range d.CustomEpisodeLinks {
		out.CustomEpisodeLinks[id] = links
	}
	for i := range d.Reminders {
		out.Reminders[i] = d.Reminders[i].Clone()
	}
	for i := range d.Notifications {
		out.Notifications[i] = d.Notifications[i].Clone()
	}
	return out
}

// List returns the membership set for kind.
func (d *ListData) List(kind ListKind) Set[MediaID] {
	switch kind {
	case ListPlanToWatch:
		return d.PlanToWatch
	case ListCurrentlyWatching:
		return d.CurrentlyWatching
	case ListPlanToRead:
		return d.PlanToRead
	case ListCurrentlyReading:
		return d.CurrentlyReading
	}
	return nil
}

// TrackedIDs returns every id present in any of the four memberships.
func (d *ListData) TrackedIDs() Set[MediaID] {
	return d.PlanToWatch.
		Union(d.CurrentlyWatching).
		Union(d.PlanToRead).
		Union(d.CurrentlyReading)
}

// ActiveIDs returns the ids polled for new content: currently watching or reading.
func (d *ListData) ActiveIDs() Set[MediaID] {
	return d.CurrentlyWatching.Union(d.CurrentlyReading)
}

// Progress returns how many units of media id have been consumed.
func (d *ListData) Progress(id MediaID, t MediaType) int {
	if t.IsAnime() {
		return d.WatchedEpisodes[id].Len()
	}
	if rp := d.ReadChapters[id]; rp != nil {
		return rp.Read.Len()
	}
	return 0
}

// EffectiveHiddenGenres unions the built-in sensitive genres into the
// user's hidden set unless sensitive content has been unlocked.
func (d *ListData) EffectiveHiddenGenres() Set[string] {
	out := d.HiddenGenres.Clone()
	if !d.SensitiveContentUnlocked {
		for _, g := range SensitiveGenres {
			out.Add(g)
		}
	}
	return out
}

// UnitKey converts a positive episode/chapter number to its stored key.
func UnitKey(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("unit number must be positive, got %d", n)
	}
	return strconv.Itoa(n), nil
}
