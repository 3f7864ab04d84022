// Copyright 2026 The topicfs Authors
// SPDX-License-Identifier: Apache-2.0

package mqttwire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTopicTooLong is returned when a topic or payload cannot be
// represented within the protocol's length fields.
var ErrTopicTooLong = errors.New("mqttwire: topic or payload too large to encode")

// subscribeFilter is the single wildcard filter topicfs subscribes
// to on every connection: every topic at every depth.
const subscribeFilter = "+/#"

// EncodeConnect returns the 14-byte CONNECT packet for an anonymous,
// clean-session client with the given keepalive (seconds).
func EncodeConnect(keepaliveSeconds uint16) []byte {
	buf := make([]byte, 14)
	buf[0] = 0x10 // packet type: CONNECT
	buf[1] = 12   // remaining length
	binary.BigEndian.PutUint16(buf[2:4], 4)
	copy(buf[4:8], "MQTT")
	buf[8] = 4    // protocol level: 3.1.1
	buf[9] = 0x02 // connect flags: clean session
	binary.BigEndian.PutUint16(buf[10:12], keepaliveSeconds)
	binary.BigEndian.PutUint16(buf[12:14], 0) // client id length: 0
	return buf
}

// DecodeConnAck validates a 4-byte CONNACK packet. It is the caller's
// job to have read exactly 4 bytes from the socket first; DecodeConnAck
// does no framing of its own.
func DecodeConnAck(buf []byte) error {
	if len(buf) != 4 {
		return fmt.Errorf("mqttwire: CONNACK must be 4 bytes, got %d", len(buf))
	}
	if buf[0] != 0x20 || buf[1] != 2 || buf[2] != 0x00 || buf[3] != 0x00 {
		return fmt.Errorf("mqttwire: broker rejected CONNECT (connack bytes %#v)", buf)
	}
	return nil
}

// EncodeSubscribe returns the 10-byte SUBSCRIBE packet that requests
// every topic ("+/#") at QoS 0, with packet identifier 1.
func EncodeSubscribe() []byte {
	buf := make([]byte, 10)
	buf[0] = 0x82 // packet type: SUBSCRIBE, reserved bits 0010
	buf[1] = 8    // remaining length
	binary.BigEndian.PutUint16(buf[2:4], 1)
	binary.BigEndian.PutUint16(buf[4:6], uint16(len(subscribeFilter)))
	copy(buf[6:9], subscribeFilter)
	buf[9] = 0x00 // requested QoS
	return buf
}

// DecodeSubAck validates a 5-byte SUBACK packet for packet identifier 1.
func DecodeSubAck(buf []byte) error {
	if len(buf) != 5 {
		return fmt.Errorf("mqttwire: SUBACK must be 5 bytes, got %d", len(buf))
	}
	if buf[0] != 0x90 || buf[1] != 3 || binary.BigEndian.Uint16(buf[2:4]) != 1 || buf[4] != 0x00 {
		return fmt.Errorf("mqttwire: broker rejected SUBSCRIBE (suback bytes %#v)", buf)
	}
	return nil
}

// EncodePing returns the 2-byte PINGREQ packet.
func EncodePing() []byte { return []byte{0xd0, 0x00} }

// EncodeDisconnect returns the 2-byte DISCONNECT packet.
func EncodeDisconnect() []byte { return []byte{0xe0, 0x00} }

// EncodePublish returns a complete QoS-0 PUBLISH packet for topic and
// payload. It fails if the topic exceeds 65535 bytes or the total
// variable-header-plus-payload exceeds MaxRemainingLength.
func EncodePublish(topic string, payload []byte) ([]byte, error) {
	if len(topic) > 0xffff {
		return nil, ErrTopicTooLong
	}
	remaining := uint64(2) + uint64(len(topic)) + uint64(len(payload))
	if remaining > MaxRemainingLength {
		return nil, ErrTopicTooLong
	}

	buf := make([]byte, 0, 5+2+len(topic)+len(payload))
	buf = append(buf, 0x30) // packet type: PUBLISH, QoS 0, no DUP/RETAIN
	buf, ok := EncodeRemainingLength(buf, uint32(remaining))
	if !ok {
		return nil, ErrTopicTooLong
	}
	var topicLen [2]byte
	binary.BigEndian.PutUint16(topicLen[:], uint16(len(topic)))
	buf = append(buf, topicLen[:]...)
	buf = append(buf, topic...)
	buf = append(buf, payload...)
	return buf, nil
}
