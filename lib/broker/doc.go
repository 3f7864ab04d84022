// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package broker implements the MQTT broker client: a TCP connection,
// a holdback-delayed outbound publish queue, keepalive pings, and a
// background worker that both drains that queue and parses inbound
// PUBLISH frames.
//
// The single cooperative worker thread described by the original
// design is realized here as two goroutines coordinated over
// channels — a read loop that only ever reads the socket and invokes
// the publish callback, and a write loop that owns the outbound queue
// and the keepalive clock. Go's select is the natural replacement for
// the original's self-pipe-plus-poll(2) wait primitive: waking the
// write loop early (a new publish, a cancel, or shutdown) is a send
// on a buffered channel instead of a byte written to a pipe.
package broker
