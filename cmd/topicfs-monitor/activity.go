// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// previewLimit bounds how many bytes of a topic's payload are read
// for the activity log's inline preview.
const previewLimit = 64

// walkActivity re-walks mountpoint and returns an activityEntry for
// every file found, merging against previous so a topic whose mtime
// hasn't changed keeps its original Seen timestamp (the first time
// the monitor noticed that value) rather than resetting on every
// poll. This is how the monitor learns about publishes without the
// admin socket streaming them: it is the same information a kernel
// readdir would show any other process looking at the mount.
func walkActivity(mountpoint string, previous []activityEntry) ([]activityEntry, error) {
	if mountpoint == "" {
		return nil, nil
	}

	known := make(map[string]activityEntry, len(previous))
	for _, e := range previous {
		known[e.Topic] = e
	}

	var out []activityEntry
	err := filepath.WalkDir(mountpoint, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries rather than aborting the whole walk
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}

		topic := topicFromPath(mountpoint, path)
		modTime := info.ModTime()

		if prior, ok := known[topic]; ok && prior.ModTime.Equal(modTime) {
			out = append(out, prior)
			return nil
		}

		out = append(out, activityEntry{
			Topic:   topic,
			ModTime: modTime,
			Seen:    time.Now(),
			Preview: readPreview(path),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func topicFromPath(mountpoint, path string) string {
	rel, err := filepath.Rel(mountpoint, path)
	if err != nil {
		return path
	}
	return strings.ReplaceAll(rel, string(filepath.Separator), "/")
}

func readPreview(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	if len(data) > previewLimit {
		data = data[:previewLimit]
	}
	return strings.ReplaceAll(strings.TrimSpace(string(data)), "\n", " ")
}
