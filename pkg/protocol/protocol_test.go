package protocol

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestDecodeSubscribe(t *testing.T) {
	f, err := DecodeClientFrame([]byte(`{"type":"subscribe","name":"build","mode":"next"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Type != MsgSubscribe || f.Name != "build" || f.Mode != ModeNext {
		t.Errorf("unexpected frame: %+v", f)
	}
}

func TestDecodeSubscribeDefaultsToEvery(t *testing.T) {
	f, err := DecodeClientFrame([]byte(`{"type":"subscribe","name":"build"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Mode != ModeEvery {
		t.Errorf("expected default mode %q, got %q", ModeEvery, f.Mode)
	}
}

func TestDecodeSubscribeInvalidMode(t *testing.T) {
	_, err := DecodeClientFrame([]byte(`{"type":"subscribe","name":"build","mode":"always"}`))
	if !errors.Is(err, ErrInvalidMode) {
		t.Errorf("expected ErrInvalidMode, got %v", err)
	}
}

func TestDecodeSet(t *testing.T) {
	f, err := DecodeClientFrame([]byte(`{"type":"set","name":"build","value":{"ok":true},"silent":true}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Silent {
		t.Error("expected silent flag to survive decoding")
	}
	if !bytes.Contains(f.Value, []byte(`"ok"`)) {
		t.Errorf("unexpected value payload: %s", f.Value)
	}
}

func TestDecodeRejectsMissingName(t *testing.T) {
	for _, raw := range []string{
		`{"type":"subscribe"}`,
		`{"type":"unsubscribe"}`,
		`{"type":"set","value":1}`,
	} {
		if _, err := DecodeClientFrame([]byte(raw)); !errors.Is(err, ErrMissingName) {
			t.Errorf("frame %s: expected ErrMissingName, got %v", raw, err)
		}
	}
}

func TestDecodeRejectsSetWithoutValue(t *testing.T) {
	_, err := DecodeClientFrame([]byte(`{"type":"set","name":"build"}`))
	if !errors.Is(err, ErrMissingValue) {
		t.Errorf("expected ErrMissingValue, got %v", err)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := DecodeClientFrame([]byte(`{"type":"publish","name":"build"}`))
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
}

func TestDecodeEmptyAndOversized(t *testing.T) {
	if _, err := DecodeClientFrame(nil); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("expected ErrEmptyFrame, got %v", err)
	}

	big := []byte(`{"type":"set","name":"build","value":"` + strings.Repeat("x", MaxFrameSize) + `"}`)
	if _, err := DecodeClientFrame(big); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestServerFrameRoundTrip(t *testing.T) {
	data, err := EncodeServerFrame(NewUpdate("build", []byte(`{"status":"green"}`)))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	f, err := DecodeServerFrame(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if f.Type != MsgUpdate || f.Name != "build" {
		t.Errorf("unexpected frame: %+v", f)
	}
	if !bytes.Contains(f.Value, []byte("green")) {
		t.Errorf("unexpected value: %s", f.Value)
	}
}

func TestDecodeServerFrameRejectsClientTypes(t *testing.T) {
	_, err := DecodeServerFrame([]byte(`{"type":"subscribe","name":"build"}`))
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
}
