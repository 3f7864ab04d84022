// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

package topicfuse

import (
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/topicfs/topicfs/lib/topictree"
)

const (
	dirMode  = syscall.S_IFDIR | 0755
	fileMode = syscall.S_IFREG | 0644
)

// dirNlink is the flat link count reported for every directory,
// regardless of child count: "." and the directory's own entry in
// its parent, nothing more.
const dirNlink = 2

// fillAttr derives a kernel attribute record from a topic tree node.
// Directories report a flat nlink of 2 and a size of 0; files always
// report nlink 1 since hard links have no meaning here. mtime/ctime/
// atime are all the node's last-write time — the tree does not
// separately track metadata-change time.
func fillAttr(t *topictree.Tree, node *topictree.Node, out *fuse.Attr) {
	out.Ino = t.Inode(node)
	out.Atime, out.Atimensec = splitTime(node.ATime())
	out.Mtime, out.Mtimensec = splitTime(node.MTime())
	out.Ctime, out.Ctimensec = splitTime(node.MTime())
	out.Blksize = 4096

	switch node.Kind() {
	case topictree.Directory:
		out.Mode = dirMode
		out.Nlink = dirNlink
		out.Size = 0
	case topictree.File:
		out.Mode = fileMode
		out.Nlink = 1
		out.Size = uint64(len(node.Payload()))
		out.Blocks = (out.Size + 511) / 512
	}
}

func splitTime(ts time.Time) (sec uint64, nsec uint32) {
	if ts.IsZero() {
		return 0, 0
	}
	return uint64(ts.Unix()), uint32(ts.Nanosecond())
}

const attrValidity = time.Second
const entryValidity = time.Second
