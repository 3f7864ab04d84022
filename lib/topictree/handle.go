// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

package topictree

// Handle is an ephemeral record attached to a File node for the
// lifetime of one opened kernel file descriptor. A Handle holds a
// non-owning back-reference to its node: the node's handle list owns
// the Handle, and DetachHandle (or the node's own destruction) is
// what ends its life.
type Handle struct {
	node *Node

	// pollToken is the kernel-supplied opaque notify identifier,
	// present once the kernel has asked to be woken on this handle
	// via POLL with schedule-notify set.
	pollToken    uint64
	hasPollToken bool

	// updated is set whenever the node's payload changes while this
	// handle is attached, and cleared the next time a POLL observes
	// it — not by the write that caused it, per the design note that
	// the updated flag must survive until a poll actually consumes it.
	updated bool
}

// Node returns the file node this handle is attached to.
func (h *Handle) Node() *Node { return h.node }

// PollToken returns the stored kernel notify token and whether one has
// been stored since the handle was opened or last cleared.
func (h *Handle) PollToken() (token uint64, ok bool) { return h.pollToken, h.hasPollToken }

// SetPollToken stores token as the handle's kernel notify target.
func (h *Handle) SetPollToken(token uint64) {
	h.pollToken = token
	h.hasPollToken = true
}

// Updated reports whether the node's payload has changed since the
// last call to ConsumeUpdated.
func (h *Handle) Updated() bool { return h.updated }

// ConsumeUpdated reports and clears the handle's updated flag. The
// POLL opcode handler calls this exactly once per poll request.
func (h *Handle) ConsumeUpdated() bool {
	wasUpdated := h.updated
	h.updated = false
	return wasUpdated
}
