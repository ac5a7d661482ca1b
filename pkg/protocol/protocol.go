// Package protocol defines the JSON frames exchanged between trackd
// clients and the daemon over a websocket connection.
//
// Clients send subscribe/unsubscribe/set/ping frames; the daemon answers
// with update/error/pong frames. Tracked values are opaque JSON payloads
// and are never inspected by the protocol layer.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MsgType identifies a frame.
type MsgType string

// Client→server frame types.
const (
	MsgSubscribe   MsgType = "subscribe"
	MsgUnsubscribe MsgType = "unsubscribe"
	MsgSet         MsgType = "set"
	MsgPing        MsgType = "ping"
)

// Server→client frame types.
const (
	MsgUpdate MsgType = "update"
	MsgError  MsgType = "error"
	MsgPong   MsgType = "pong"
)

// Mode selects which listener lifecycle a subscription maps onto.
type Mode string

const (
	// ModeOnce delivers the first-ever value, immediately if one is
	// already cached.
	ModeOnce Mode = "once"

	// ModeEvery delivers the current value (if any) and every assignment
	// after that, until unsubscribed.
	ModeEvery Mode = "every"

	// ModeNext delivers the next assignment only.
	ModeNext Mode = "next"
)

// MaxFrameSize is the largest accepted frame, matching the daemon's
// default websocket read limit.
const MaxFrameSize = 1 << 20

// Decode and validation errors.
var (
	ErrEmptyFrame    = errors.New("protocol: empty frame")
	ErrFrameTooLarge = errors.New("protocol: frame exceeds size limit")
	ErrUnknownType   = errors.New("protocol: unknown frame type")
	ErrMissingName   = errors.New("protocol: missing tracker name")
	ErrInvalidMode   = errors.New("protocol: invalid subscription mode")
	ErrMissingValue  = errors.New("protocol: set frame without value")
)

// Error codes carried in server error frames.
const (
	CodeInvalidFrame   = "invalid_frame"
	CodeUnknownTracker = "unknown_tracker"
	CodeInternal       = "internal"
)

// ClientFrame is a frame sent by a client.
type ClientFrame struct {
	Type MsgType `json:"type"`

	// Name is the tracker the frame addresses. Required except for ping.
	Name string `json:"name,omitempty"`

	// Mode selects the listener lifecycle for subscribe frames.
	Mode Mode `json:"mode,omitempty"`

	// Value is the payload for set frames.
	Value json.RawMessage `json:"value,omitempty"`

	// Silent makes a set frame bypass notification.
	Silent bool `json:"silent,omitempty"`
}

// ServerFrame is a frame sent by the daemon.
type ServerFrame struct {
	Type    MsgType         `json:"type"`
	Name    string          `json:"name,omitempty"`
	Value   json.RawMessage `json:"value,omitempty"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
}

// DecodeClientFrame parses and validates a client frame.
func DecodeClientFrame(data []byte) (*ClientFrame, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}
	if len(data) > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}

	var f ClientFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("protocol: decode frame: %w", err)
	}

	switch f.Type {
	case MsgPing:
		return &f, nil

	case MsgSubscribe:
		if f.Name == "" {
			return nil, ErrMissingName
		}
		switch f.Mode {
		case ModeOnce, ModeEvery, ModeNext:
		case "":
			f.Mode = ModeEvery
		default:
			return nil, ErrInvalidMode
		}
		return &f, nil

	case MsgUnsubscribe:
		if f.Name == "" {
			return nil, ErrMissingName
		}
		return &f, nil

	case MsgSet:
		if f.Name == "" {
			return nil, ErrMissingName
		}
		if len(f.Value) == 0 {
			return nil, ErrMissingValue
		}
		return &f, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, f.Type)
	}
}

// EncodeServerFrame serializes a server frame.
func EncodeServerFrame(f *ServerFrame) ([]byte, error) {
	return json.Marshal(f)
}

// DecodeServerFrame parses a server frame. Used by client tooling.
func DecodeServerFrame(data []byte) (*ServerFrame, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}
	var f ServerFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("protocol: decode frame: %w", err)
	}
	switch f.Type {
	case MsgUpdate, MsgError, MsgPong:
		return &f, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, f.Type)
	}
}

// NewUpdate builds an update frame for a tracker value.
func NewUpdate(name string, value json.RawMessage) *ServerFrame {
	return &ServerFrame{Type: MsgUpdate, Name: name, Value: value}
}

// NewError builds an error frame.
func NewError(code, message string) *ServerFrame {
	return &ServerFrame{Type: MsgError, Code: code, Message: message}
}

// NewPong builds a pong frame.
func NewPong() *ServerFrame {
	return &ServerFrame{Type: MsgPong}
}
