// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

package topicfuse

import (
	"fmt"

	"github.com/hanwen/go-fuse/v2/fuse"
)

// MountOptions controls how the filesystem is attached to the kernel.
type MountOptions struct {
	MountPoint string
	FsName     string
	Debug      bool
	AllowOther bool
}

// Mount creates the kernel connection for fs and starts serving
// requests in a background goroutine. Call the returned *fuse.Server's
// Unmount to detach, or Wait to block until the kernel connection
// closes (typically because something else unmounted it).
func Mount(fs *FileSystem, opts MountOptions) (*fuse.Server, error) {
	name := opts.FsName
	if name == "" {
		name = "topicfs"
	}
	mountOpts := &fuse.MountOptions{
		FsName:     name,
		Name:       "topicfs",
		Debug:      opts.Debug,
		AllowOther: opts.AllowOther,
	}
	server, err := fuse.NewServer(fs, opts.MountPoint, mountOpts)
	if err != nil {
		return nil, fmt.Errorf("mount %s: %w", opts.MountPoint, err)
	}
	go server.Serve()
	if err := server.WaitMount(); err != nil {
		return nil, fmt.Errorf("mount %s: %w", opts.MountPoint, err)
	}
	return server, nil
}
