// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

package topictree

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/topicfs/topicfs/lib/fserrors"
)

// Tree owns the root Directory node. Callers outside this package
// must hold Mu for the duration of every call into Tree — the methods
// themselves never lock, so the top-level context can span a tree
// operation and a subsequent broker call (which has its own,
// separately-ordered mutex) inside one critical section.
type Tree struct {
	Mu sync.Mutex

	root *Node
}

// New returns an empty Tree with a bare root directory.
func New() *Tree {
	return &Tree{root: newDirectory("", nil, time.Time{})}
}

// Root returns the tree's root directory node.
func (t *Tree) Root() *Node { return t.root }

// Find descends path ("/"-separated, leading/trailing slashes
// ignored) from the root and returns the node at the end, or a
// NotFound error if any segment is missing.
func (t *Tree) Find(path string) (*Node, error) {
	node := t.root
	for _, seg := range splitPath(path) {
		child, err := t.LookupChild(node, seg)
		if err != nil {
			return nil, err
		}
		node = child
	}
	return node, nil
}

// LookupChild returns dir's child named name, or a NotFound error if
// dir has no such child, or NotADirectory if dir is not a directory.
func (t *Tree) LookupChild(dir *Node, name string) (*Node, error) {
	if dir.kind != Directory {
		return nil, fserrors.New(fserrors.NotADirectory, "%s is not a directory", dir.name)
	}
	child, ok := dir.children[name]
	if !ok {
		return nil, fserrors.New(fserrors.NotFound, "%q has no child %q", dir.name, name)
	}
	return child, nil
}

// InsertPath locates or creates the chain of directories for every
// segment but the last, then creates-or-updates the leaf as a file
// holding payload. It is all-or-nothing: if a later segment collides
// with an existing file (so the chain cannot be completed), every
// directory this call itself created is removed before returning the
// error, leaving pre-existing nodes untouched.
func (t *Tree) InsertPath(path string, payload []byte, now time.Time) (*Node, error) {
	segs := splitPath(path)
	if len(segs) == 0 {
		return nil, fserrors.New(fserrors.InvalidArgument, "empty topic path")
	}

	dir := t.root
	var created []*Node // directories created by this call, innermost last
	for _, seg := range segs[:len(segs)-1] {
		child, ok := dir.children[seg]
		if !ok {
			child = newDirectory(seg, dir, now)
			dir.children[seg] = child
			created = append(created, child)
		} else if child.kind != Directory {
			rollback(created)
			return nil, fserrors.New(fserrors.NotADirectory, "%q exists as a file", pathPrefix(segs, seg))
		}
		dir = child
	}

	leafName := segs[len(segs)-1]
	leaf, exists := dir.children[leafName]
	if exists && leaf.kind != File {
		rollback(created)
		return nil, fserrors.New(fserrors.IsADirectory, "%q exists as a directory", leafName)
	}
	if !exists {
		leaf = newFile(leafName, dir, now)
		dir.children[leafName] = leaf
	}
	leaf.payload = append(leaf.payload[:0], payload...)
	leaf.mtime = now
	for _, h := range leaf.handles {
		h.updated = true
	}
	return leaf, nil
}

// rollback removes directories created by an aborted InsertPath call,
// innermost first, so a partially built chain never lingers.
func rollback(created []*Node) {
	for i := len(created) - 1; i >= 0; i-- {
		node := created[i]
		delete(node.parent.children, node.name)
	}
}

// Mkdir creates an explicit directory child of parent. Fails with
// Exists if name is already taken, or NotADirectory if parent is not
// a directory.
func (t *Tree) Mkdir(parent *Node, name string, now time.Time) (*Node, error) {
	if parent.kind != Directory {
		return nil, fserrors.New(fserrors.NotADirectory, "%s is not a directory", parent.name)
	}
	if _, exists := parent.children[name]; exists {
		return nil, fserrors.New(fserrors.Exists, "%q already exists", name)
	}
	child := newDirectory(name, parent, now)
	parent.children[name] = child
	return child, nil
}

// CreateFile creates an empty file child of parent, for the kernel's
// atomic create-and-open request. Fails with Exists if name is taken.
func (t *Tree) CreateFile(parent *Node, name string, now time.Time) (*Node, error) {
	if parent.kind != Directory {
		return nil, fserrors.New(fserrors.NotADirectory, "%s is not a directory", parent.name)
	}
	if _, exists := parent.children[name]; exists {
		return nil, fserrors.New(fserrors.Exists, "%q already exists", name)
	}
	child := newFile(name, parent, now)
	parent.children[name] = child
	return child, nil
}

// Unlink removes a File child, releasing its payload and detaching
// every open handle. Fails with NotFound if no such child exists, or
// IsADirectory if the named child is a directory.
func (t *Tree) Unlink(parent *Node, name string) error {
	child, ok := parent.children[name]
	if !ok {
		return fserrors.New(fserrors.NotFound, "%q not found", name)
	}
	if child.kind != File {
		return fserrors.New(fserrors.IsADirectory, "%q is a directory", name)
	}
	delete(parent.children, name)
	child.handles = nil
	child.payload = nil
	return nil
}

// Rmdir removes a Directory child along with its entire subtree,
// releasing every descendant's payload and handles. Fails with
// NotFound if no such child exists, or NotADirectory if the named
// child is a file.
func (t *Tree) Rmdir(parent *Node, name string) error {
	child, ok := parent.children[name]
	if !ok {
		return fserrors.New(fserrors.NotFound, "%q not found", name)
	}
	if child.kind != Directory {
		return fserrors.New(fserrors.NotADirectory, "%q is a file", name)
	}
	delete(parent.children, name)
	destroySubtree(child)
	return nil
}

func destroySubtree(node *Node) {
	if node.kind == File {
		node.handles = nil
		node.payload = nil
		return
	}
	for _, child := range node.children {
		destroySubtree(child)
	}
	node.children = nil
}

// CountFiles returns the number of File nodes reachable from the
// root, for administrative reporting.
func (t *Tree) CountFiles() uint64 {
	return countFiles(t.root)
}

func countFiles(node *Node) uint64 {
	if node.kind == File {
		return 1
	}
	var total uint64
	for _, child := range node.children {
		total += countFiles(child)
	}
	return total
}

// DirEntry is one row of a Readdir result.
type DirEntry struct {
	Name string
	Kind Kind
}

// Readdir returns dir's entries in name-sorted order, prefixed by "."
// and "..". Fails with NotADirectory if dir is a file.
func (t *Tree) Readdir(dir *Node) ([]DirEntry, error) {
	if dir.kind != Directory {
		return nil, fserrors.New(fserrors.NotADirectory, "%s is not a directory", dir.name)
	}
	names := make([]string, 0, len(dir.children))
	for name := range dir.children {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]DirEntry, 0, len(names)+2)
	entries = append(entries, DirEntry{Name: ".", Kind: Directory})
	entries = append(entries, DirEntry{Name: "..", Kind: Directory})
	for _, name := range names {
		entries = append(entries, DirEntry{Name: name, Kind: dir.children[name].kind})
	}
	return entries, nil
}

// AttachHandle creates and attaches a new open handle to a File node.
// Fails with IsADirectory if node is a directory.
func (t *Tree) AttachHandle(node *Node) (*Handle, error) {
	if node.kind != File {
		return nil, fserrors.New(fserrors.IsADirectory, "%s is a directory", node.name)
	}
	h := &Handle{node: node}
	node.handles = append(node.handles, h)
	return h, nil
}

// DetachHandle removes h from its node's handle list. A no-op if h is
// already detached.
func (t *Tree) DetachHandle(node *Node, h *Handle) {
	for i, candidate := range node.handles {
		if candidate == h {
			node.handles = append(node.handles[:i], node.handles[i+1:]...)
			return
		}
	}
}

// ApplyPayload replaces node's payload, bumps mtime, and marks every
// attached handle updated. Fails with IsADirectory if node is a
// directory.
func (t *Tree) ApplyPayload(node *Node, payload []byte, now time.Time) error {
	if node.kind != File {
		return fserrors.New(fserrors.IsADirectory, "%s is a directory", node.name)
	}
	node.payload = append(node.payload[:0], payload...)
	node.mtime = now
	for _, h := range node.handles {
		h.updated = true
	}
	return nil
}

// DrainWokenPollTokens returns the kernel notify token of every handle
// on node that is both updated and has a stored poll token, clearing
// both on each — so a proactive wakeup (driven by a payload change
// rather than by the kernel re-polling) fires exactly once per token.
// Handles with no stored token are left for the next POLL opcode call
// to observe Updated itself.
func (t *Tree) DrainWokenPollTokens(node *Node) []uint64 {
	var tokens []uint64
	for _, h := range node.handles {
		if h.updated && h.hasPollToken {
			tokens = append(tokens, h.pollToken)
			h.updated = false
			h.hasPollToken = false
		}
	}
	return tokens
}

// Path reconstructs node's full slash-joined path from the root. The
// root itself has path "".
func (t *Tree) Path(node *Node) string {
	if node.parent == nil {
		return ""
	}
	var segs []string
	for n := node; n.parent != nil; n = n.parent {
		segs = append(segs, n.name)
	}
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return strings.Join(segs, "/")
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func pathPrefix(segs []string, upTo string) string {
	var out []string
	for _, s := range segs {
		out = append(out, s)
		if s == upTo {
			break
		}
	}
	return strings.Join(out, "/")
}
