// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

/*
Package websocket pushes notification-feed changes to connected browsers.

The Hub is a store.Observer. Every committed mutation is compared with the
previous snapshot and each notification that did not exist before is sent
as a "notification" message, followed by an "unseen_count" message when the
unseen total moved. Load, import, reset and sign-out send one "resync"
message instead, because the whole aggregate may have changed.

Messages are JSON envelopes:

	{"type": "notification", "data": {...}}
	{"type": "unseen_count", "data": {"unseen": 3}}
	{"type": "resync", "data": {"reason": "import"}}
	{"type": "check_completed", "data": {...}}

Clients may send {"type": "ping"} and receive {"type": "pong"}. Nothing
else a client sends has any effect.

A client whose 64-message buffer fills is disconnected rather than allowed
to stall delivery to the others.
*/
package websocket
