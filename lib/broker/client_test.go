// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/topicfs/topicfs/lib/clock"
	"github.com/topicfs/topicfs/lib/mqttwire"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeBroker accepts exactly one connection and performs the server
// side of the CONNECT/SUBSCRIBE handshake, then hands the raw
// connection to the test for further scripted interaction.
type fakeBroker struct {
	listener net.Listener
	conns    chan net.Conn
}

func startFakeBroker(t *testing.T) *fakeBroker {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	fb := &fakeBroker{listener: ln, conns: make(chan net.Conn, 1)}
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		if err := serveHandshake(conn); err != nil {
			conn.Close()
			return
		}
		fb.conns <- conn
	}()
	t.Cleanup(func() { ln.Close() })
	return fb
}

func serveHandshake(conn net.Conn) error {
	connect := make([]byte, 14)
	if _, err := io.ReadFull(conn, connect); err != nil {
		return err
	}
	if _, err := conn.Write([]byte{0x20, 0x02, 0x00, 0x00}); err != nil {
		return err
	}
	subscribe := make([]byte, 10)
	if _, err := io.ReadFull(conn, subscribe); err != nil {
		return err
	}
	_, err := conn.Write([]byte{0x90, 0x03, 0x00, 0x01, 0x00})
	return err
}

func (fb *fakeBroker) port(t *testing.T) uint16 {
	_, portStr, err := net.SplitHostPort(fb.listener.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatal(err)
	}
	return uint16(port)
}

func (fb *fakeBroker) conn(t *testing.T) net.Conn {
	t.Helper()
	select {
	case c := <-fb.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("broker never received a connection")
		return nil
	}
}

func dialTestClient(t *testing.T, fb *fakeBroker, keepalive, holdback time.Duration, onPublish OnPublish) *Client {
	t.Helper()
	if onPublish == nil {
		onPublish = func([]byte, []byte) {}
	}
	cfg := Config{Host: "127.0.0.1", Port: fb.port(t), Keepalive: keepalive, Holdback: holdback}
	c, err := Dial(context.Background(), cfg, clock.Real(), onPublish, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Destroy)
	return c
}

func TestDialPerformsHandshakeAndStartsRunning(t *testing.T) {
	fb := startFakeBroker(t)
	c := dialTestClient(t, fb, time.Minute, 0, nil)
	if !c.Running() {
		t.Fatal("client should be running after a successful Dial")
	}
}

func TestPublishDelaysByHoldback(t *testing.T) {
	fb := startFakeBroker(t)
	c := dialTestClient(t, fb, time.Minute, 150*time.Millisecond, nil)
	serverConn := fb.conn(t)

	if err := c.Publish("room/light", []byte("ON")); err != nil {
		t.Fatal(err)
	}

	serverConn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	probe := make([]byte, 1)
	if _, err := serverConn.Read(probe); err == nil {
		t.Fatal("PUBLISH arrived before holdback elapsed")
	}

	serverConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	header := make([]byte, 2)
	if _, err := io.ReadFull(serverConn, header); err != nil {
		t.Fatalf("PUBLISH never arrived: %v", err)
	}
	if header[0] != 0x30 {
		t.Fatalf("packet type = %#x, want 0x30", header[0])
	}
}

func TestPublishFrameMatchesTopicAndPayload(t *testing.T) {
	fb := startFakeBroker(t)
	c := dialTestClient(t, fb, time.Minute, 0, nil)
	serverConn := fb.conn(t)

	if err := c.Publish("room/light", []byte("ON")); err != nil {
		t.Fatal(err)
	}

	serverConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	frame := readOneFrame(t, serverConn)
	res := mqttwire.Parse(frame)
	if res.Status != mqttwire.Success {
		t.Fatalf("status = %v", res.Status)
	}
	if string(res.Topic) != "room/light" || string(res.Payload) != "ON" {
		t.Fatalf("topic=%q payload=%q", res.Topic, res.Payload)
	}
}

func readOneFrame(t *testing.T, conn net.Conn) []byte {
	t.Helper()
	header := make([]byte, 2)
	if _, err := io.ReadFull(conn, header); err != nil {
		t.Fatal(err)
	}
	remaining := int(header[1])
	body := make([]byte, remaining)
	if _, err := io.ReadFull(conn, body); err != nil {
		t.Fatal(err)
	}
	return append(header, body...)
}

func TestCancelPreventsQueuedPublish(t *testing.T) {
	fb := startFakeBroker(t)
	c := dialTestClient(t, fb, time.Minute, 500*time.Millisecond, nil)
	serverConn := fb.conn(t)

	if err := c.Publish("a", []byte("x")); err != nil {
		t.Fatal(err)
	}
	c.Cancel("a")

	serverConn.SetReadDeadline(time.Now().Add(700 * time.Millisecond))
	probe := make([]byte, 1)
	if _, err := serverConn.Read(probe); err == nil {
		t.Fatal("cancelled publish was still sent")
	}
}

func TestPublishRejectsOversizedTopic(t *testing.T) {
	fb := startFakeBroker(t)
	c := dialTestClient(t, fb, time.Minute, 0, nil)
	fb.conn(t)

	topic := make([]byte, 0x10000)
	if err := c.Publish(string(topic), nil); err == nil {
		t.Fatal("expected rejection")
	}
}

func TestOnPublishInvokedForInboundFrame(t *testing.T) {
	fb := startFakeBroker(t)

	var mu sync.Mutex
	var gotTopic, gotPayload string
	received := make(chan struct{}, 1)

	onPublish := func(topic, payload []byte) {
		mu.Lock()
		gotTopic = string(topic)
		gotPayload = string(payload)
		mu.Unlock()
		received <- struct{}{}
	}
	c := dialTestClient(t, fb, time.Minute, 0, onPublish)
	serverConn := fb.conn(t)

	frame, err := mqttwire.EncodePublish("sensors/temp", []byte("21.5"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := serverConn.Write(frame); err != nil {
		t.Fatal(err)
	}

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("onPublish never invoked")
	}
	_ = c

	mu.Lock()
	defer mu.Unlock()
	if gotTopic != "sensors/temp" || gotPayload != "21.5" {
		t.Fatalf("topic=%q payload=%q", gotTopic, gotPayload)
	}
}

func TestDestroyStopsWorkerAndSendsDisconnect(t *testing.T) {
	fb := startFakeBroker(t)
	cfg := Config{Host: "127.0.0.1", Port: fb.port(t), Keepalive: time.Minute, Holdback: 0}
	c, err := Dial(context.Background(), cfg, clock.Real(), func([]byte, []byte) {}, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	serverConn := fb.conn(t)

	c.Destroy()
	if c.Running() {
		t.Fatal("client should not be running after Destroy")
	}

	serverConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	header := make([]byte, 2)
	if _, err := io.ReadFull(serverConn, header); err != nil {
		t.Fatalf("DISCONNECT never arrived: %v", err)
	}
	if header[0] != 0xe0 {
		t.Fatalf("packet type = %#x, want 0xe0 (DISCONNECT)", header[0])
	}
}

func TestKeepaliveSendsPingBeforeGuardWindow(t *testing.T) {
	fb := startFakeBroker(t)
	keepalive := 300 * time.Millisecond
	dialTestClient(t, fb, keepalive, 0, nil)
	serverConn := fb.conn(t)

	serverConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	header := make([]byte, 2)
	if _, err := io.ReadFull(serverConn, header); err != nil {
		t.Fatalf("PING never arrived: %v", err)
	}
	if header[0] != 0xd0 {
		t.Fatalf("packet type = %#x, want 0xd0 (PING)", header[0])
	}
}
