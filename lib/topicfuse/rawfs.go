// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

package topicfuse

import (
	"log/slog"
	"sync"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/topicfs/topicfs/lib/clock"
	"github.com/topicfs/topicfs/lib/fserrors"
	"github.com/topicfs/topicfs/lib/topictree"
)

const rootNodeID = 1

// PublishFunc hands a write against a file node off to the broker
// client. FileSystem calls it with the node's full topic path and the
// new payload whenever a WRITE opcode lands at offset 0.
type PublishFunc func(topic string, payload []byte) error

// FileSystem implements fuse.RawFileSystem over a *topictree.Tree.
// Every method that does not touch the tree or an open handle is
// inherited from the embedded default implementation and answers
// ENOSYS, which is the correct response for opcodes this filesystem
// has no use for (symlinks, hardlinks, rename, locks, xattrs).
type FileSystem struct {
	fuse.RawFileSystem

	tree    *topictree.Tree
	clk     clock.Clock
	logger  *slog.Logger
	publish PublishFunc

	server *fuse.Server

	mu      sync.Mutex
	inodes  map[uint64]*topictree.Node
	handles map[uint64]*nodeHandle
	nextFh  uint64
}

// New returns a FileSystem serving tree. publish may be nil, in which
// case writes fail with EIO instead of reaching a broker.
func New(tree *topictree.Tree, clk clock.Clock, logger *slog.Logger, publish PublishFunc) *FileSystem {
	fs := &FileSystem{
		RawFileSystem: fuse.NewDefaultRawFileSystem(),
		tree:          tree,
		clk:           clk,
		logger:        logger,
		publish:       publish,
		inodes:        map[uint64]*topictree.Node{rootNodeID: tree.Root()},
		handles:       map[uint64]*nodeHandle{},
	}
	return fs
}

func (fs *FileSystem) String() string { return "topicfs" }

// Init stores the server handle so Write can drive poll wakeups once a
// publish lands on a node the kernel is watching.
func (fs *FileSystem) Init(server *fuse.Server) { fs.server = server }

func (fs *FileSystem) registerLocked(node *topictree.Node) uint64 {
	ino := fs.tree.Inode(node)
	fs.mu.Lock()
	fs.inodes[ino] = node
	fs.mu.Unlock()
	return ino
}

func (fs *FileSystem) resolve(nodeID uint64) (*topictree.Node, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	node, ok := fs.inodes[nodeID]
	return node, ok
}

func (fs *FileSystem) allocFh(h *nodeHandle) uint64 {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.nextFh++
	fh := fs.nextFh
	fs.handles[fh] = h
	return fh
}

func (fs *FileSystem) handleFor(fh uint64) (*nodeHandle, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	h, ok := fs.handles[fh]
	return h, ok
}

func (fs *FileSystem) freeFh(fh uint64) {
	fs.mu.Lock()
	delete(fs.handles, fh)
	fs.mu.Unlock()
}

// toStatus maps a *fserrors.Error to a kernel errno. This is the sole
// place in the module where a topicfs error kind becomes a
// syscall.Errno — everywhere else, errors travel as *fserrors.Error.
func toStatus(err error) fuse.Status {
	if err == nil {
		return fuse.OK
	}
	fe, ok := err.(*fserrors.Error)
	if !ok {
		return fuse.EIO
	}
	switch fe.Kind {
	case fserrors.NotFound:
		return fuse.ENOENT
	case fserrors.NotADirectory:
		return fuse.Status(syscall.ENOTDIR)
	case fserrors.IsADirectory:
		return fuse.Status(syscall.EISDIR)
	case fserrors.Exists:
		return fuse.Status(syscall.EEXIST)
	case fserrors.NoMemory:
		return fuse.Status(syscall.ENOMEM)
	case fserrors.InvalidArgument:
		return fuse.EINVAL
	case fserrors.IoProtocol, fserrors.ProtocolError, fserrors.NotRunning:
		return fuse.EIO
	default:
		return fuse.EIO
	}
}

func (fs *FileSystem) Lookup(cancel <-chan struct{}, header *fuse.InHeader, name string, out *fuse.EntryOut) fuse.Status {
	fs.tree.Mu.Lock()
	defer fs.tree.Mu.Unlock()

	parent, ok := fs.resolve(header.NodeId)
	if !ok {
		return fuse.ENOENT
	}
	child, err := fs.tree.LookupChild(parent, name)
	if err != nil {
		return toStatus(err)
	}
	ino := fs.registerLocked(child)
	out.NodeId = ino
	out.Generation = 1
	fillAttr(fs.tree, child, &out.Attr)
	out.SetEntryTimeout(entryValidity)
	out.SetAttrTimeout(attrValidity)
	return fuse.OK
}

func (fs *FileSystem) Forget(nodeid, nlookup uint64) {
	if nodeid == rootNodeID {
		return
	}
	fs.mu.Lock()
	delete(fs.inodes, nodeid)
	fs.mu.Unlock()
}

func (fs *FileSystem) GetAttr(cancel <-chan struct{}, input *fuse.GetAttrIn, out *fuse.AttrOut) fuse.Status {
	fs.tree.Mu.Lock()
	defer fs.tree.Mu.Unlock()

	node, ok := fs.resolve(input.NodeId)
	if !ok {
		return fuse.ENOENT
	}
	fillAttr(fs.tree, node, &out.Attr)
	out.SetTimeout(attrValidity)
	return fuse.OK
}

func (fs *FileSystem) Mkdir(cancel <-chan struct{}, input *fuse.MkdirIn, name string, out *fuse.EntryOut) fuse.Status {
	fs.tree.Mu.Lock()
	defer fs.tree.Mu.Unlock()

	parent, ok := fs.resolve(input.NodeId)
	if !ok {
		return fuse.ENOENT
	}
	child, err := fs.tree.Mkdir(parent, name, fs.clk.Now())
	if err != nil {
		return toStatus(err)
	}
	ino := fs.registerLocked(child)
	out.NodeId = ino
	out.Generation = 1
	fillAttr(fs.tree, child, &out.Attr)
	out.SetEntryTimeout(entryValidity)
	out.SetAttrTimeout(attrValidity)
	return fuse.OK
}

func (fs *FileSystem) Unlink(cancel <-chan struct{}, header *fuse.InHeader, name string) fuse.Status {
	fs.tree.Mu.Lock()
	defer fs.tree.Mu.Unlock()

	parent, ok := fs.resolve(header.NodeId)
	if !ok {
		return fuse.ENOENT
	}
	return toStatus(fs.tree.Unlink(parent, name))
}

func (fs *FileSystem) Rmdir(cancel <-chan struct{}, header *fuse.InHeader, name string) fuse.Status {
	fs.tree.Mu.Lock()
	defer fs.tree.Mu.Unlock()

	parent, ok := fs.resolve(header.NodeId)
	if !ok {
		return fuse.ENOENT
	}
	return toStatus(fs.tree.Rmdir(parent, name))
}

func (fs *FileSystem) Open(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	fs.tree.Mu.Lock()
	defer fs.tree.Mu.Unlock()

	node, ok := fs.resolve(input.NodeId)
	if !ok {
		return fuse.ENOENT
	}
	if node.Kind() != topictree.File {
		return fuse.Status(syscall.EISDIR)
	}
	treeHandle, err := fs.tree.AttachHandle(node)
	if err != nil {
		return toStatus(err)
	}
	out.Fh = fs.allocFh(&nodeHandle{node: node, treeHandle: treeHandle})
	return fuse.OK
}

func (fs *FileSystem) Create(cancel <-chan struct{}, input *fuse.CreateIn, name string, out *fuse.CreateOut) fuse.Status {
	fs.tree.Mu.Lock()
	defer fs.tree.Mu.Unlock()

	parent, ok := fs.resolve(input.NodeId)
	if !ok {
		return fuse.ENOENT
	}
	child, err := fs.tree.CreateFile(parent, name, fs.clk.Now())
	if err != nil {
		return toStatus(err)
	}
	treeHandle, err := fs.tree.AttachHandle(child)
	if err != nil {
		return toStatus(err)
	}

	ino := fs.registerLocked(child)
	out.NodeId = ino
	out.Generation = 1
	fillAttr(fs.tree, child, &out.EntryOut.Attr)
	out.SetEntryTimeout(entryValidity)
	out.SetAttrTimeout(attrValidity)
	out.OpenOut.Fh = fs.allocFh(&nodeHandle{node: child, treeHandle: treeHandle})
	return fuse.OK
}

func (fs *FileSystem) Release(cancel <-chan struct{}, input *fuse.ReleaseIn) {
	fs.mu.Lock()
	h, ok := fs.handles[input.Fh]
	delete(fs.handles, input.Fh)
	fs.mu.Unlock()
	if !ok {
		return
	}
	fs.tree.Mu.Lock()
	fs.tree.DetachHandle(h.node, h.treeHandle)
	fs.tree.Mu.Unlock()
}

func (fs *FileSystem) Read(cancel <-chan struct{}, input *fuse.ReadIn, buf []byte) (fuse.ReadResult, fuse.Status) {
	h, ok := fs.handleFor(input.Fh)
	if !ok {
		return nil, fuse.EBADF
	}

	fs.tree.Mu.Lock()
	payload := h.node.Payload()
	fs.tree.Mu.Unlock()

	offset := int(input.Offset)
	if offset >= len(payload) {
		return fuse.ReadResultData(nil), fuse.OK
	}
	end := offset + len(buf)
	if end > len(payload) {
		end = len(payload)
	}
	return fuse.ReadResultData(payload[offset:end]), fuse.OK
}

// Write only accepts offset 0: a topic's payload is a single whole
// message, not a byte range, so a partial overwrite has no coherent
// meaning and is rejected rather than silently reinterpreted.
func (fs *FileSystem) Write(cancel <-chan struct{}, input *fuse.WriteIn, data []byte) (uint32, fuse.Status) {
	if input.Offset != 0 {
		return 0, fuse.EINVAL
	}
	h, ok := fs.handleFor(input.Fh)
	if !ok {
		return 0, fuse.EBADF
	}

	fs.tree.Mu.Lock()
	err := fs.tree.ApplyPayload(h.node, data, fs.clk.Now())
	var tokens []uint64
	if err == nil {
		tokens = fs.tree.DrainWokenPollTokens(h.node)
	}
	topic := fs.tree.Path(h.node)
	fs.tree.Mu.Unlock()

	if err != nil {
		return 0, toStatus(err)
	}

	if fs.server != nil {
		for _, token := range tokens {
			fs.server.NotifyPollWakeup(token)
		}
	}

	if fs.publish != nil {
		if err := fs.publish(topic, data); err != nil {
			fs.logger.Error("publish after write failed", "topic", topic, "error", err)
			return 0, fuse.EIO
		}
	}
	return uint32(len(data)), fuse.OK
}

func (fs *FileSystem) OpenDir(cancel <-chan struct{}, input *fuse.OpenIn, out *fuse.OpenOut) fuse.Status {
	fs.tree.Mu.Lock()
	node, ok := fs.resolve(input.NodeId)
	if !ok {
		fs.tree.Mu.Unlock()
		return fuse.ENOENT
	}
	entries, err := fs.tree.Readdir(node)
	fs.tree.Mu.Unlock()
	if err != nil {
		return toStatus(err)
	}
	out.Fh = fs.allocFh(&nodeHandle{node: node, dirEntries: entries})
	return fuse.OK
}

func (fs *FileSystem) ReadDir(cancel <-chan struct{}, input *fuse.ReadIn, out *fuse.DirEntryList) fuse.Status {
	h, ok := fs.handleFor(input.Fh)
	if !ok {
		return fuse.EBADF
	}
	fs.tree.Mu.Lock()
	defer fs.tree.Mu.Unlock()

	for i := int(input.Offset); i < len(h.dirEntries); i++ {
		entry := h.dirEntries[i]
		mode := uint32(fileMode)
		if entry.Kind == topictree.Directory {
			mode = uint32(dirMode)
		}
		ino := fs.tree.Inode(h.node)
		if entry.Name != "." && entry.Name != ".." {
			if child, err := fs.tree.LookupChild(h.node, entry.Name); err == nil {
				ino = fs.registerLocked(child)
			}
		}
		if !out.AddDirEntry(fuse.DirEntry{Ino: ino, Mode: mode, Name: entry.Name}) {
			break
		}
	}
	return fuse.OK
}

func (fs *FileSystem) ReleaseDir(input *fuse.ReleaseIn) {
	fs.freeFh(input.Fh)
}

// Poll implements the kernel's readiness check for a file's payload
// having changed since it was last observed. When the kernel asks to
// be woken later (PollScheduleNotify set in input.Flags) the handle's
// notify token is stored so a future Write can call
// Server.NotifyPollWakeup directly instead of waiting for a repoll.
func (fs *FileSystem) Poll(cancel <-chan struct{}, input *fuse.PollIn, out *fuse.PollOut) fuse.Status {
	h, ok := fs.handleFor(input.Fh)
	if !ok || h.treeHandle == nil {
		return fuse.EBADF
	}

	fs.tree.Mu.Lock()
	ready := h.treeHandle.ConsumeUpdated()
	if !ready && input.Kh != 0 {
		h.treeHandle.SetPollToken(input.Kh)
	}
	fs.tree.Mu.Unlock()

	// A topic file is always writable; it is readable only once an
	// update has arrived since the last read, mirroring the original
	// mqttfs_poll.c's unconditional POLLOUT plus conditional POLLIN.
	out.Revents = syscall.POLLOUT
	if ready {
		out.Revents |= syscall.POLLIN
	}
	return fuse.OK
}
