// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package adminsock serves a CBOR request-response protocol on a Unix
// domain socket for operator introspection of a running topicfs
// daemon: topic counts, broker connection state, and an out-of-band
// cancel of a queued-but-not-yet-sent publish.
//
// Each connection carries exactly one request and receives exactly
// one response, then closes — there is no session state and no
// streaming, matching the teacher's service.SocketServer protocol.
package adminsock
