// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

package topictree

import "time"

// Kind discriminates a Node's variant. Once set at creation it never
// changes: a directory node can gain or lose children but is never
// reinterpreted as a file, and vice versa. This is the tagged union
// called for in place of the original implementation's single struct
// that carried both a child set and a payload buffer regardless of
// which the node actually used.
type Kind int

const (
	// Directory nodes hold named children and present with directory
	// mode for as long as they exist — whether created explicitly by
	// Mkdir or implicitly as an intermediate segment of InsertPath,
	// and regardless of whether they currently have any children.
	Directory Kind = iota
	// File nodes hold a payload and a list of open handles.
	File
)

func (k Kind) String() string {
	if k == Directory {
		return "directory"
	}
	return "file"
}

// Node is a vertex in the topic tree: a path segment name plus either
// a child set (Directory) or a payload and handle list (File).
type Node struct {
	name   string
	kind   Kind
	parent *Node
	atime  time.Time
	mtime  time.Time

	// children is non-nil only for Directory nodes.
	children map[string]*Node

	// payload and handles are meaningful only for File nodes.
	payload []byte
	handles []*Handle
}

// Name returns the node's path segment. It never contains "/".
func (n *Node) Name() string { return n.name }

// Kind returns whether n is a Directory or a File.
func (n *Node) Kind() Kind { return n.kind }

// Parent returns n's parent, or nil for the tree root.
func (n *Node) Parent() *Node { return n.parent }

// ATime and MTime return the node's last-access and last-modified
// timestamps as recorded by the tree, in the broker client's clock.
func (n *Node) ATime() time.Time { return n.atime }
func (n *Node) MTime() time.Time { return n.mtime }

// Payload returns the file's current content. Callers must not mutate
// the returned slice; it is the node's live storage, not a copy.
func (n *Node) Payload() []byte { return n.payload }

// ChildCount returns the number of direct children of a Directory
// node. Zero for File nodes.
func (n *Node) ChildCount() int { return len(n.children) }

func newDirectory(name string, parent *Node, now time.Time) *Node {
	return &Node{
		name:     name,
		kind:     Directory,
		parent:   parent,
		atime:    now,
		mtime:    now,
		children: make(map[string]*Node),
	}
}

func newFile(name string, parent *Node, now time.Time) *Node {
	return &Node{
		name:   name,
		kind:   File,
		parent: parent,
		atime:  now,
		mtime:  now,
	}
}
