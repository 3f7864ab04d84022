// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/topicfs/topicfs/lib/buffer"
	"github.com/topicfs/topicfs/lib/clock"
	"github.com/topicfs/topicfs/lib/fserrors"
	"github.com/topicfs/topicfs/lib/mqttwire"
)

// pingGuard ensures a PING is emitted strictly before the broker's
// keepalive grace window expires, matching the original design's
// 100ms safety margin.
const pingGuard = 100 * time.Millisecond

// Config configures a broker connection.
type Config struct {
	Host      string
	Port      uint16
	Keepalive time.Duration
	Holdback  time.Duration
}

// OnPublish is invoked exactly once per received PUBLISH frame, on
// the client's read-loop goroutine. topic and payload are borrowed
// slices valid only for the duration of the call; callers that need
// the data afterward must copy it.
type OnPublish func(topic, payload []byte)

// Client owns one broker connection's socket, outbound queue, and
// background goroutines. The zero Client is not usable; construct one
// with Dial.
type Client struct {
	conn      net.Conn
	clk       clock.Clock
	keepalive time.Duration
	holdback  time.Duration
	onPublish OnPublish
	logger    *slog.Logger

	running  atomic.Bool
	stopOnce sync.Once
	stopped  chan struct{}

	mu    sync.Mutex
	queue []outboundMsg

	wake chan struct{}

	writerDone chan struct{}
	readerDone chan struct{}
}

type outboundMsg struct {
	sendAt  time.Time
	topic   string
	payload []byte
}

// Dial connects to cfg's broker, performs the CONNECT/CONNACK and
// SUBSCRIBE/SUBACK handshake synchronously, and starts the background
// read and write loops. Any step failing closes the connection and
// returns an error; no partial client escapes a failed Dial.
func Dial(ctx context.Context, cfg Config, clk clock.Clock, onPublish OnPublish, logger *slog.Logger) (*Client, error) {
	dialer := net.Dialer{}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fserrors.New(fserrors.IoProtocol, "dial %s: %v", addr, err)
	}

	if err := handshake(conn, cfg.Keepalive); err != nil {
		conn.Close()
		return nil, err
	}

	c := &Client{
		conn:       conn,
		clk:        clk,
		keepalive:  cfg.Keepalive,
		holdback:   cfg.Holdback,
		onPublish:  onPublish,
		logger:     logger,
		stopped:    make(chan struct{}),
		wake:       make(chan struct{}, 1),
		writerDone: make(chan struct{}),
		readerDone: make(chan struct{}),
	}
	c.running.Store(true)

	go c.readLoop()
	go c.writeLoop()
	return c, nil
}

func handshake(conn net.Conn, keepalive time.Duration) error {
	if _, err := conn.Write(mqttwire.EncodeConnect(uint16(keepalive / time.Second))); err != nil {
		return fserrors.New(fserrors.IoProtocol, "write CONNECT: %v", err)
	}
	connack := make([]byte, 4)
	if _, err := io.ReadFull(conn, connack); err != nil {
		return fserrors.New(fserrors.IoProtocol, "read CONNACK: %v", err)
	}
	if err := mqttwire.DecodeConnAck(connack); err != nil {
		return fserrors.New(fserrors.ProtocolError, "%v", err)
	}

	if _, err := conn.Write(mqttwire.EncodeSubscribe()); err != nil {
		return fserrors.New(fserrors.IoProtocol, "write SUBSCRIBE: %v", err)
	}
	suback := make([]byte, 5)
	if _, err := io.ReadFull(conn, suback); err != nil {
		return fserrors.New(fserrors.IoProtocol, "read SUBACK: %v", err)
	}
	if err := mqttwire.DecodeSubAck(suback); err != nil {
		return fserrors.New(fserrors.ProtocolError, "%v", err)
	}
	return nil
}

// Running reports whether the background worker is still active.
func (c *Client) Running() bool { return c.running.Load() }

// Publish validates and enqueues topic/payload for sending no sooner
// than Config.Holdback from now. It returns NotRunning if the worker
// has already exited, and InvalidArgument if the frame would not
// encode under the wire protocol's length limits.
func (c *Client) Publish(topic string, payload []byte) error {
	if len(topic) > 0xffff {
		return fserrors.New(fserrors.InvalidArgument, "topic length %d exceeds 65535", len(topic))
	}
	if 2+uint64(len(topic))+uint64(len(payload)) > mqttwire.MaxRemainingLength {
		return fserrors.New(fserrors.InvalidArgument, "publish frame exceeds %d bytes", mqttwire.MaxRemainingLength)
	}
	if !c.running.Load() {
		return fserrors.New(fserrors.NotRunning, "broker worker has exited")
	}

	msg := outboundMsg{
		sendAt:  c.clk.Now().Add(c.holdback),
		topic:   topic,
		payload: append([]byte(nil), payload...),
	}
	c.mu.Lock()
	c.queue = append(c.queue, msg)
	c.mu.Unlock()
	c.signalWake()
	return nil
}

// Cancel removes every queued, not-yet-sent record for topic. It
// never fails visibly; a topic with nothing queued is a silent no-op.
func (c *Client) Cancel(topic string) {
	c.mu.Lock()
	filtered := c.queue[:0]
	for _, msg := range c.queue {
		if msg.topic != topic {
			filtered = append(filtered, msg)
		}
	}
	c.queue = filtered
	c.mu.Unlock()
}

// Destroy stops the worker, best-effort sends DISCONNECT, and closes
// the connection. It blocks until both background goroutines have
// exited. Destroy is idempotent.
func (c *Client) Destroy() {
	c.running.Store(false)
	c.stopOnce.Do(func() { close(c.stopped) })
	c.signalWake()
	<-c.writerDone

	c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	c.conn.Write(mqttwire.EncodeDisconnect()) // best-effort
	c.conn.Close()
	<-c.readerDone
}

func (c *Client) signalWake() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// fail records a fatal error, flips running false, wakes the writer,
// and closes the socket so both goroutines unblock promptly. Safe to
// call from either goroutine; only the first call has effect.
func (c *Client) fail(err error) {
	c.running.Store(false)
	c.stopOnce.Do(func() {
		c.logger.Error("broker worker exiting", "error", err)
		close(c.stopped)
		c.conn.Close()
	})
}

// readLoop is the sole goroutine that reads the socket and invokes
// onPublish, so inbound publishes apply in strict socket order.
func (c *Client) readLoop() {
	defer close(c.readerDone)

	var buf buffer.Buffer
	readChunk := make([]byte, 4096)
readLoop:
	for {
		n, err := c.conn.Read(readChunk)
		if err != nil {
			if c.running.Load() {
				c.fail(fserrors.New(fserrors.IoProtocol, "broker read: %v", err))
			}
			return
		}
		if n == 0 {
			c.fail(fserrors.New(fserrors.IoProtocol, "broker read returned zero bytes"))
			return
		}
		dst := buf.Reserve(n)
		copy(dst, readChunk[:n])
		buf.Grow(n)

		for {
			res := mqttwire.Parse(buf.Bytes())
			switch res.Status {
			case mqttwire.Success:
				c.onPublish(res.Topic, res.Payload)
				buf.Compact(res.Consumed)
			case mqttwire.Skipped:
				buf.Compact(res.Consumed)
			case mqttwire.ReadMore:
				continue readLoop
			case mqttwire.Error:
				c.fail(fserrors.New(fserrors.ProtocolError, "%v", res.Err))
				return
			}
		}
	}
}

// writeLoop owns the outbound queue and the keepalive clock.
func (c *Client) writeLoop() {
	defer close(c.writerDone)

	lastActivity := c.clk.Now()
	for {
		now := c.clk.Now()
		nextPub, ok := c.drainOutbound(now)
		if !ok {
			return
		}

		nextPing := lastActivity.Add(c.keepalive - pingGuard)
		if !nextPing.After(now) {
			if _, err := c.conn.Write(mqttwire.EncodePing()); err != nil {
				c.fail(fserrors.New(fserrors.IoProtocol, "write PING: %v", err))
				return
			}
			lastActivity = now
			nextPing = lastActivity.Add(c.keepalive - pingGuard)
		}

		deadline := nextPub
		if nextPing.Before(deadline) {
			deadline = nextPing
		}
		timeout := deadline.Sub(now)
		if timeout <= 0 {
			timeout = time.Millisecond
		}

		select {
		case <-c.wake:
		case <-c.clk.After(timeout):
		case <-c.stopped:
			return
		}
	}
}

// drainOutbound sends every queued record whose deadline has passed,
// in FIFO order, under the outbound mutex for the duration of the
// sends (matching the contract that draining and sending share one
// critical section). It returns the next pending deadline (or a
// far-future sentinel if the queue is empty) and false if a write
// failed and the worker must exit.
func (c *Client) drainOutbound(now time.Time) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for len(c.queue) > 0 && !c.queue[0].sendAt.After(now) {
		msg := c.queue[0]
		frame, err := mqttwire.EncodePublish(msg.topic, msg.payload)
		if err != nil {
			// Already validated at Publish time; should not happen.
			c.queue = c.queue[1:]
			continue
		}
		if _, err := c.conn.Write(frame); err != nil {
			c.fail(fserrors.New(fserrors.IoProtocol, "write PUBLISH: %v", err))
			return time.Time{}, false
		}
		c.queue = c.queue[1:]
	}
	if len(c.queue) == 0 {
		return now.Add(24 * time.Hour), true
	}
	return c.queue[0].sendAt, true
}
