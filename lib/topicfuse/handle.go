// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

package topicfuse

import "github.com/topicfs/topicfs/lib/topictree"

// nodeHandle is what a kernel file handle (fuse's Fh) refers to: either
// an open file (treeHandle set, a *topictree.Handle tracking poll state)
// or an open directory (treeHandle nil, dirEntries a snapshot taken at
// opendir time so concurrent mutation never corrupts an in-progress
// readdir).
type nodeHandle struct {
	node       *topictree.Node
	treeHandle *topictree.Handle
	dirEntries []topictree.DirEntry
}
