// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package topicfuse adapts a *topictree.Tree to the kernel's
// filesystem device using github.com/hanwen/go-fuse/v2/fuse's
// low-level RawFileSystem interface — the raw opcode-dispatch layer,
// not the higher-level node-tree convenience package used elsewhere
// in similar projects for read-mostly content stores. The raw layer
// is required here because POLL wakeups need direct access to the
// kernel's notify-handle token (PollIn.Kh) and Server.NotifyPollWakeup,
// neither of which the high-level layer exposes.
//
// FileSystem embeds fuse.NewDefaultRawFileSystem() so every opcode
// this filesystem does not care about (symlinks, locks, extended
// attributes, rename) answers ENOSYS without an explicit override,
// matching the opcode table's "unknown opcodes reply ENOSYS" rule —
// including Rename, which has no coherent mapping onto a topic tree
// and is therefore deliberately left unimplemented.
package topicfuse
