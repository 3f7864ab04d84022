// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

package adminsock

import "github.com/topicfs/topicfs/lib/codec"

// Response is the wire envelope for every reply: a success flag, an
// error message when OK is false, and an action-specific payload when
// OK is true and the action produces one.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// StatsRequest is the (empty) request body for the "stats" action.
type StatsRequest struct{}

// StatsResponse is the "stats" action's response payload.
type StatsResponse struct {
	Connected        bool   `cbor:"connected"`
	Topics           uint64 `cbor:"topics"`
	UptimeSeconds    uint64 `cbor:"uptime_seconds"`
	PendingPublishes uint64 `cbor:"pending_publishes"`
}

// CancelRequest is the "cancel" action's request payload.
type CancelRequest struct {
	Topic string `cbor:"topic"`
}

// CancelResponse is the "cancel" action's response payload.
type CancelResponse struct {
	OK bool `cbor:"ok"`
}

type actionHeader struct {
	Action string `cbor:"action"`
}
