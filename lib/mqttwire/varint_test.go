// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

package mqttwire

import "testing"

func TestEncodeRemainingLengthBoundaries(t *testing.T) {
	cases := []struct {
		length uint32
		want   []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{16383, []byte{0xff, 0x7f}},
		{16384, []byte{0x80, 0x80, 0x01}},
		{2097151, []byte{0xff, 0xff, 0x7f}},
		{2097152, []byte{0x80, 0x80, 0x80, 0x01}},
		{MaxRemainingLength, []byte{0xff, 0xff, 0xff, 0x7f}},
	}
	for _, c := range cases {
		got, ok := EncodeRemainingLength(nil, c.length)
		if !ok {
			t.Fatalf("length %d: encode failed", c.length)
		}
		if string(got) != string(c.want) {
			t.Fatalf("length %d: got %v, want %v", c.length, got, c.want)
		}
	}
}

func TestEncodeRemainingLengthRejectsOverflow(t *testing.T) {
	if _, ok := EncodeRemainingLength(nil, MaxRemainingLength+1); ok {
		t.Fatal("expected failure for length beyond 4-byte varint range")
	}
}

func TestDecodeRemainingLengthRoundTrip(t *testing.T) {
	for _, length := range []uint32{0, 1, 127, 128, 16383, 16384, 2097151, 2097152, MaxRemainingLength} {
		encoded, ok := EncodeRemainingLength(nil, length)
		if !ok {
			t.Fatalf("length %d: encode failed", length)
		}
		value, consumed, needMore, malformed := decodeRemainingLength(encoded, 0)
		if needMore || malformed {
			t.Fatalf("length %d: needMore=%v malformed=%v", length, needMore, malformed)
		}
		if value != length || consumed != len(encoded) {
			t.Fatalf("length %d: got value=%d consumed=%d", length, value, consumed)
		}
	}
}

func TestDecodeRemainingLengthNeedsMoreOnTruncation(t *testing.T) {
	encoded, _ := EncodeRemainingLength(nil, 16384)
	_, _, needMore, malformed := decodeRemainingLength(encoded[:len(encoded)-1], 0)
	if !needMore || malformed {
		t.Fatalf("needMore=%v malformed=%v, want needMore=true", needMore, malformed)
	}
}

func TestDecodeRemainingLengthMalformedOnFifthContinuation(t *testing.T) {
	buf := []byte{0x80, 0x80, 0x80, 0x80}
	_, _, needMore, malformed := decodeRemainingLength(buf, 0)
	if needMore || !malformed {
		t.Fatalf("needMore=%v malformed=%v, want malformed=true", needMore, malformed)
	}
}
