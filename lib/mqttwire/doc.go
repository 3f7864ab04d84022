// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package mqttwire implements the minimal subset of the MQTT 3.1.1
// wire protocol that a topicfs broker client needs: CONNECT/CONNACK,
// SUBSCRIBE/SUBACK to "+/#" at QoS 0, PINGREQ, DISCONNECT, and
// PUBLISH framing in both directions. It deliberately does not
// implement QoS 1/2, retained messages, authentication, or any packet
// type outside that list; anything else on the wire is either skipped
// (control packets we don't care about) or rejected as a protocol
// error (malformed PUBLISH framing).
package mqttwire
