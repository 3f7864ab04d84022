// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

package topictree

import (
	"testing"
	"time"

	"github.com/topicfs/topicfs/lib/fserrors"
)

func TestInsertPathCreatesIntermediateDirectories(t *testing.T) {
	tr := New()
	now := time.Unix(0, 0)

	leaf, err := tr.InsertPath("a/b/c", []byte("v"), now)
	if err != nil {
		t.Fatal(err)
	}
	if leaf.Kind() != File || leaf.Name() != "c" {
		t.Fatalf("leaf = %+v", leaf)
	}

	a, err := tr.LookupChild(tr.Root(), "a")
	if err != nil || a.Kind() != Directory {
		t.Fatalf("a: %v %v", a, err)
	}
	b, err := tr.LookupChild(a, "b")
	if err != nil || b.Kind() != Directory {
		t.Fatalf("b: %v %v", b, err)
	}
}

func TestInsertPathUpdatesExistingLeaf(t *testing.T) {
	tr := New()
	now := time.Unix(0, 0)

	leaf1, _ := tr.InsertPath("a/b", []byte("first"), now)
	leaf2, err := tr.InsertPath("a/b", []byte("second"), now.Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if leaf1 != leaf2 {
		t.Fatal("expected same node identity across re-publish")
	}
	if string(leaf2.Payload()) != "second" {
		t.Fatalf("payload = %q", leaf2.Payload())
	}
}

func TestInsertPathRollsBackOnFileCollision(t *testing.T) {
	tr := New()
	now := time.Unix(0, 0)

	if _, err := tr.InsertPath("a", []byte("file"), now); err != nil {
		t.Fatal(err)
	}
	// "a" is a file; "a/b" requires descending through it as a directory.
	if _, err := tr.InsertPath("a/b", []byte("x"), now); err == nil {
		t.Fatal("expected collision error")
	}

	// The pre-existing file "a" must be untouched.
	a, err := tr.LookupChild(tr.Root(), "a")
	if err != nil || a.Kind() != File || string(a.Payload()) != "file" {
		t.Fatalf("a corrupted: %+v %v", a, err)
	}
}

func TestInsertPathRollsBackPartiallyCreatedChain(t *testing.T) {
	tr := New()
	now := time.Unix(0, 0)

	// Pre-create "x" as a file two levels down so the chain fails
	// after successfully creating one new intermediate directory.
	if _, err := tr.InsertPath("p/x", []byte("file"), now); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.InsertPath("q/x/y", []byte("v"), now); err != nil {
		t.Fatal(err)
	}
	// Now attempt a path that collides with "x" being a file under "q".
	if _, err := tr.InsertPath("q/x/y/z", []byte("v"), now); err == nil {
		t.Fatal("expected collision error")
	}

	root := tr.Root()
	q, err := tr.LookupChild(root, "q")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tr.LookupChild(q, "x"); err != nil {
		t.Fatalf("pre-existing x under q should survive: %v", err)
	}
}

func TestMkdirRejectsDuplicateName(t *testing.T) {
	tr := New()
	now := time.Unix(0, 0)

	if _, err := tr.Mkdir(tr.Root(), "a", now); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Mkdir(tr.Root(), "a", now); !fserrors.Is(err, fserrors.Exists) {
		t.Fatalf("err = %v, want Exists", err)
	}
}

func TestUnlinkRejectsDirectory(t *testing.T) {
	tr := New()
	now := time.Unix(0, 0)
	tr.Mkdir(tr.Root(), "d", now)

	if err := tr.Unlink(tr.Root(), "d"); !fserrors.Is(err, fserrors.IsADirectory) {
		t.Fatalf("err = %v, want IsADirectory", err)
	}
}

func TestRmdirRemovesSubtreeAndDetachesHandles(t *testing.T) {
	tr := New()
	now := time.Unix(0, 0)
	leaf, _ := tr.InsertPath("a/b/c", []byte("v"), now)
	h, err := tr.AttachHandle(leaf)
	if err != nil {
		t.Fatal(err)
	}

	a, _ := tr.LookupChild(tr.Root(), "a")
	if err := tr.Rmdir(tr.Root(), "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := tr.LookupChild(tr.Root(), "a"); !fserrors.Is(err, fserrors.NotFound) {
		t.Fatalf("a should be gone: %v", err)
	}
	_ = a
	if len(leaf.handles) != 0 {
		t.Fatal("handle list should be cleared on subtree destruction")
	}
	_ = h
}

func TestReaddirIsNameSortedWithDotEntries(t *testing.T) {
	tr := New()
	now := time.Unix(0, 0)
	tr.InsertPath("a/zeta", []byte("1"), now)
	tr.InsertPath("a/alpha", []byte("2"), now)
	tr.InsertPath("a/mid", []byte("3"), now)

	dir, _ := tr.LookupChild(tr.Root(), "a")
	entries, err := tr.Readdir(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{".", "..", "alpha", "mid", "zeta"}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, name := range want {
		if entries[i].Name != name {
			t.Fatalf("entry %d = %q, want %q", i, entries[i].Name, name)
		}
	}
}

func TestApplyPayloadMarksHandlesUpdated(t *testing.T) {
	tr := New()
	now := time.Unix(0, 0)
	leaf, _ := tr.InsertPath("t", []byte("v1"), now)
	h1, _ := tr.AttachHandle(leaf)
	h2, _ := tr.AttachHandle(leaf)
	h1.ConsumeUpdated()
	h2.ConsumeUpdated()

	if err := tr.ApplyPayload(leaf, []byte("v2"), now.Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	if !h1.Updated() || !h2.Updated() {
		t.Fatal("expected both handles updated")
	}
	if string(leaf.Payload()) != "v2" {
		t.Fatalf("payload = %q", leaf.Payload())
	}
}

func TestDetachHandleRemovesFromList(t *testing.T) {
	tr := New()
	now := time.Unix(0, 0)
	leaf, _ := tr.InsertPath("t", []byte("v"), now)
	h, _ := tr.AttachHandle(leaf)

	tr.DetachHandle(leaf, h)
	if len(leaf.handles) != 0 {
		t.Fatal("handle not detached")
	}
}

func TestPathReconstructsFullTopic(t *testing.T) {
	tr := New()
	now := time.Unix(0, 0)
	leaf, _ := tr.InsertPath("a/b/c", []byte("v"), now)

	if got := tr.Path(leaf); got != "a/b/c" {
		t.Fatalf("Path = %q, want %q", got, "a/b/c")
	}
}

func TestDirectoryPresentationSurvivesEmptyChildSet(t *testing.T) {
	// A directory node, once created, presents as a directory for its
	// whole lifetime, whether it was created via Mkdir or implicitly
	// as an InsertPath intermediate — even after every child is
	// removed. The tagged-union Kind makes this automatic.
	tr := New()
	now := time.Unix(0, 0)
	tr.InsertPath("a/b", []byte("v"), now)

	a, _ := tr.LookupChild(tr.Root(), "a")
	if err := tr.Unlink(a, "b"); err != nil {
		t.Fatal(err)
	}
	if a.Kind() != Directory {
		t.Fatal("a should remain a directory after losing its only child")
	}
}

func TestCountFilesCountsOnlyLeaves(t *testing.T) {
	tr := New()
	now := time.Unix(0, 0)
	tr.InsertPath("room/light", []byte("on"), now)
	tr.InsertPath("room/temp", []byte("21"), now)
	tr.InsertPath("outside/temp", []byte("5"), now)

	if got := tr.CountFiles(); got != 3 {
		t.Fatalf("CountFiles() = %d, want 3", got)
	}
}

func TestDrainWokenPollTokensFiresOncePerToken(t *testing.T) {
	tr := New()
	now := time.Unix(0, 0)
	node, err := tr.InsertPath("room/light", []byte("on"), now)
	if err != nil {
		t.Fatal(err)
	}

	h, err := tr.AttachHandle(node)
	if err != nil {
		t.Fatal(err)
	}
	h.SetPollToken(42)

	if tokens := tr.DrainWokenPollTokens(node); len(tokens) != 0 {
		t.Fatalf("expected no tokens before an update, got %v", tokens)
	}

	if err := tr.ApplyPayload(node, []byte("off"), now); err != nil {
		t.Fatal(err)
	}
	tokens := tr.DrainWokenPollTokens(node)
	if len(tokens) != 1 || tokens[0] != 42 {
		t.Fatalf("tokens = %v, want [42]", tokens)
	}

	if tokens := tr.DrainWokenPollTokens(node); len(tokens) != 0 {
		t.Fatalf("token should not fire twice, got %v", tokens)
	}
}
