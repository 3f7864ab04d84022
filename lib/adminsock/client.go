// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

package adminsock

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/topicfs/topicfs/lib/codec"
)

const dialTimeout = 2 * time.Second
const callTimeout = 5 * time.Second

// Stats dials socketPath, issues a "stats" request, and returns the
// decoded response. Intended for the monitor TUI's polling loop.
func Stats(ctx context.Context, socketPath string) (StatsResponse, error) {
	var out StatsResponse
	if err := call(ctx, socketPath, "stats", StatsRequest{}, &out); err != nil {
		return StatsResponse{}, err
	}
	return out, nil
}

// Cancel dials socketPath and issues a "cancel" request for topic.
func Cancel(ctx context.Context, socketPath, topic string) (CancelResponse, error) {
	var out CancelResponse
	if err := call(ctx, socketPath, "cancel", CancelRequest{Topic: topic}, &out); err != nil {
		return CancelResponse{}, err
	}
	return out, nil
}

func call(ctx context.Context, socketPath, action string, request any, out any) error {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return fmt.Errorf("dial admin socket %s: %w", socketPath, err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(callTimeout))

	encoded, err := codec.Marshal(request)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", action, err)
	}
	wrapped, err := withAction(action, encoded)
	if err != nil {
		return fmt.Errorf("wrap %s request: %w", action, err)
	}
	if _, err := conn.Write(wrapped); err != nil {
		return fmt.Errorf("write %s request: %w", action, err)
	}

	var response Response
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		return fmt.Errorf("read %s response: %w", action, err)
	}
	if !response.OK {
		return fmt.Errorf("%s: %s", action, response.Error)
	}
	if out != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, out); err != nil {
			return fmt.Errorf("decode %s response: %w", action, err)
		}
	}
	return nil
}

// withAction merges a CBOR-encoded action-specific body (a map-shaped
// value) with the {"action": name} discriminator by re-decoding into
// a generic map, since CBOR has no native "embed a struct plus an
// extra field" composition the way a literal could.
func withAction(action string, body []byte) ([]byte, error) {
	var fields map[string]codec.RawMessage
	if err := codec.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]codec.RawMessage{}
	}
	actionBytes, err := codec.Marshal(action)
	if err != nil {
		return nil, err
	}
	fields["action"] = actionBytes
	return codec.Marshal(fields)
}
