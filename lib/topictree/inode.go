// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

package topictree

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// rootInode is reserved for the tree root, matching the kernel
// filesystem device's convention that node id 0 (or the well-known
// root id) always refers to the mount's top-level directory.
const rootInode uint64 = 1

// Inode derives a stable identifier for node from its full path. The
// same path always yields the same inode, which is what lets the
// kernel's inode cache treat a lookup-by-parent-and-name and a later
// lookup-by-path of the same node as referring to one file. Using a
// content hash instead of the node's memory address (the original C
// implementation's approach) avoids depending on Go's non-moving heap
// as an inode-stability guarantee.
func (t *Tree) Inode(node *Node) uint64 {
	if node == t.root {
		return rootInode
	}
	path := t.Path(node)
	sum := blake3.Sum256([]byte(path))
	return binary.LittleEndian.Uint64(sum[:8])
}
