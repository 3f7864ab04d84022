// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

package adminsock

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/topicfs/topicfs/lib/codec"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startTestServer(t *testing.T) (string, context.CancelFunc) {
	t.Helper()
	dir := t.TempDir()
	socketPath := filepath.Join(dir, "admin.sock")

	srv := New(socketPath, discardLogger())
	srv.Handle("stats", func(ctx context.Context, raw []byte) (any, error) {
		return StatsResponse{Connected: true, Topics: 7, UptimeSeconds: 42}, nil
	})
	srv.Handle("cancel", func(ctx context.Context, raw []byte) (any, error) {
		var req CancelRequest
		if err := codec.Unmarshal(raw, &req); err != nil {
			return nil, err
		}
		if req.Topic == "" {
			return nil, errors.New("missing topic")
		}
		return CancelResponse{OK: true}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Serve(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(socketPath); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("admin socket never appeared")
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Cleanup(func() {
		cancel()
		<-done
	})
	return socketPath, cancel
}

func TestStatsRoundTrip(t *testing.T) {
	socketPath, _ := startTestServer(t)

	stats, err := Stats(context.Background(), socketPath)
	if err != nil {
		t.Fatal(err)
	}
	if !stats.Connected || stats.Topics != 7 || stats.UptimeSeconds != 42 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestCancelRoundTrip(t *testing.T) {
	socketPath, _ := startTestServer(t)

	resp, err := Cancel(context.Background(), socketPath, "room/light")
	if err != nil {
		t.Fatal(err)
	}
	if !resp.OK {
		t.Fatal("expected ok=true")
	}
}

func TestCancelMissingTopicFails(t *testing.T) {
	socketPath, _ := startTestServer(t)

	if _, err := Cancel(context.Background(), socketPath, ""); err == nil {
		t.Fatal("expected an error for an empty topic")
	}
}

func TestUnknownActionFails(t *testing.T) {
	socketPath, _ := startTestServer(t)

	var out struct{}
	err := call(context.Background(), socketPath, "bogus", struct{}{}, &out)
	if err == nil {
		t.Fatal("expected an error for an unregistered action")
	}
}
