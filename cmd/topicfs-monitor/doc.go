// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

// Command topicfs-monitor renders a read-only dashboard over a
// running topicfsd process. It never touches the tree or the broker
// directly — every number it shows comes from the admin socket or
// from reading the mounted filesystem like any other process would.
package main
