// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/topicfs/topicfs/lib/adminsock"
	"github.com/topicfs/topicfs/lib/broker"
	"github.com/topicfs/topicfs/lib/clock"
	"github.com/topicfs/topicfs/lib/codec"
	"github.com/topicfs/topicfs/lib/fserrors"
	"github.com/topicfs/topicfs/lib/topicfuse"
	"github.com/topicfs/topicfs/lib/topictree"
)

// TopicService is the top-level context that owns every long-lived
// piece of a running topicfsd: the in-memory tree, the broker
// connection, the mounted filesystem, and the optional admin socket.
// It is the concrete realization of spec.md's component F.
type TopicService struct {
	cfg    Config
	logger *slog.Logger
	clk    clock.Clock

	tree      *topictree.Tree
	brokerCli *broker.Client
	fs        *topicfuse.FileSystem
	server    *fuse.Server
	admin     *adminsock.Server

	startedAt time.Time
}

// NewTopicService constructs a service from a validated Config. The
// returned service does nothing until Run is called.
func NewTopicService(cfg Config, logger *slog.Logger) *TopicService {
	return &TopicService{
		cfg:    cfg,
		logger: logger,
		clk:    clock.Real(),
		tree:   topictree.New(),
	}
}

// Run connects to the broker, mounts the filesystem, and optionally
// starts the admin socket, then blocks until ctx is cancelled. On
// return every resource it opened has been torn down.
func (s *TopicService) Run(ctx context.Context) error {
	s.startedAt = s.clk.Now()
	s.fs = topicfuse.New(s.tree, s.clk, s.logger, s.publishWrite)

	brokerCli, err := broker.Dial(ctx, broker.Config{
		Host:      s.cfg.Host,
		Port:      s.cfg.Port,
		Keepalive: s.cfg.Keepalive,
		Holdback:  s.cfg.Holdback,
	}, s.clk, s.storePublish, s.logger)
	if err != nil {
		return err
	}
	s.brokerCli = brokerCli
	defer s.brokerCli.Destroy()

	server, err := topicfuse.Mount(s.fs, topicfuse.MountOptions{
		MountPoint: s.cfg.Mountpoint,
		FsName:     "topicfs",
	})
	if err != nil {
		return err
	}
	s.server = server
	defer s.server.Unmount()

	if s.cfg.AdminSocket != "" {
		s.admin = adminsock.New(s.cfg.AdminSocket, s.logger)
		s.admin.Handle("stats", s.handleStats)
		s.admin.Handle("cancel", s.handleCancel)

		adminErr := make(chan error, 1)
		go func() { adminErr <- s.admin.Serve(ctx) }()

		select {
		case <-ctx.Done():
		case err := <-adminErr:
			if err != nil {
				s.logger.Error("admin socket exited", "error", err)
			}
		}
		return nil
	}

	<-ctx.Done()
	return nil
}

// storePublish applies an inbound PUBLISH frame to the tree and wakes
// any file descriptor blocked in poll() on the affected node. It is
// the broker.Client's OnPublish callback, so it runs on the client's
// read-loop goroutine and must not block.
func (s *TopicService) storePublish(topic, payload []byte) {
	s.tree.Mu.Lock()
	node, err := s.tree.InsertPath(string(topic), payload, s.clk.Now())
	var tokens []uint64
	if err == nil {
		tokens = s.tree.DrainWokenPollTokens(node)
	}
	s.tree.Mu.Unlock()

	if err != nil {
		s.logger.Error("store_publish failed", "topic", string(topic), "error", err)
		return
	}
	if s.server != nil {
		for _, token := range tokens {
			s.server.NotifyPollWakeup(token)
		}
	}
}

// publishWrite is topicfuse.FileSystem's hook for turning a WRITE
// opcode into an outbound broker publish.
func (s *TopicService) publishWrite(topic string, payload []byte) error {
	return s.brokerCli.Publish(topic, payload)
}

func (s *TopicService) handleStats(ctx context.Context, raw []byte) (any, error) {
	s.tree.Mu.Lock()
	topics := s.tree.CountFiles()
	s.tree.Mu.Unlock()

	return adminsock.StatsResponse{
		Connected:     s.brokerCli.Running(),
		Topics:        topics,
		UptimeSeconds: uint64(s.clk.Now().Sub(s.startedAt) / time.Second),
	}, nil
}

func (s *TopicService) handleCancel(ctx context.Context, raw []byte) (any, error) {
	var req adminsock.CancelRequest
	if err := codec.Unmarshal(raw, &req); err != nil {
		return nil, fserrors.New(fserrors.InvalidArgument, "decoding cancel request: %v", err)
	}
	if req.Topic == "" {
		return nil, fserrors.New(fserrors.InvalidArgument, "topic is required")
	}
	s.brokerCli.Cancel(req.Topic)
	return adminsock.CancelResponse{OK: true}, nil
}
