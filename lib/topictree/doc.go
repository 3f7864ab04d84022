// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package topictree implements the hierarchical, mutex-protected
// in-memory node store that backs the mounted filesystem: every
// received topic becomes a path of directory nodes terminating in a
// file node holding the topic's last payload.
//
// Every exported Tree method assumes the caller already holds the
// Tree's Mu mutex. This mirrors the original design's "all operations
// require the tree mutex held" contract and lets callers (the
// filesystem adapter, the publish glue) batch several tree operations
// — or a tree operation followed by a broker call made with the tree
// mutex still held — under one critical section without re-entering
// a package-internal lock.
package topictree
