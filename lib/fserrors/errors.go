// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

// Package fserrors defines the internal error-kind vocabulary shared
// by the topic tree, the broker client, and the filesystem adapter.
// Every component that can fail reports one of these kinds; mapping a
// kind to a kernel errno happens only at the lib/topicfuse boundary,
// never inside the tree or broker packages, per the rule that the
// core stays free of kernel-specific error codes.
package fserrors

import "fmt"

// Kind classifies an internal failure. The zero Kind is never used
// for a real error; Error.Kind is always one of the named constants.
type Kind int

const (
	// NotFound means a path does not resolve to any node.
	NotFound Kind = iota + 1
	// NotADirectory means an operation expected a directory component.
	NotADirectory
	// IsADirectory means an operation expected a file component.
	IsADirectory
	// Exists means a name collides with an existing child.
	Exists
	// NoMemory means an allocation failed.
	NoMemory
	// IoProtocol means a device or socket read/write failed or was short.
	IoProtocol
	// ProtocolError means a received frame was malformed or out of sequence.
	ProtocolError
	// NotRunning means the broker worker has exited.
	NotRunning
	// InvalidArgument means a value fell outside its domain.
	InvalidArgument
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not-found"
	case NotADirectory:
		return "not-a-directory"
	case IsADirectory:
		return "is-a-directory"
	case Exists:
		return "exists"
	case NoMemory:
		return "no-memory"
	case IoProtocol:
		return "io-protocol"
	case ProtocolError:
		return "protocol-error"
	case NotRunning:
		return "not-running"
	case InvalidArgument:
		return "invalid-argument"
	default:
		return fmt.Sprintf("fserrors.Kind(%d)", int(k))
	}
}

// Error is the single explicit result type every fallible tree,
// buffer, and broker-client operation returns, replacing the mix of
// return-with-errno patterns the original implementation used.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// New builds an *Error with the given kind and a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	fsErr, ok := err.(*Error)
	return ok && fsErr.Kind == kind
}
