package ws

import (
	"encoding/json"
	"testing"
)

func TestEncodeEventRoundTrip(t *testing.T) {
	t.Parallel()
	frame := EncodeEvent("roomAssigned", map[string]string{"roomId": "ex-aaaa"})
	if frame == nil {
		t.Fatal("EncodeEvent returned nil")
	}

	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if env.Event != "roomAssigned" {
		t.Errorf("event: got %q, want roomAssigned", env.Event)
	}

	var data map[string]string
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data["roomId"] != "ex-aaaa" {
		t.Errorf("data: got %v", data)
	}
}

func TestEnvelopeFlatStringPayload(t *testing.T) {
	t.Parallel()
	// leaveRoom sends the bare userId as the payload
	var env Envelope
	if err := json.Unmarshal([]byte(`{"event":"leaveRoom","data":"u1"}`), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	var userID string
	if err := json.Unmarshal(env.Data, &userID); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if userID != "u1" {
		t.Errorf("userId: got %q, want u1", userID)
	}
}

func TestEncodeEventUnmarshalableData(t *testing.T) {
	t.Parallel()
	if frame := EncodeEvent("x", func() {}); frame != nil {
		t.Errorf("got %q, want nil for unmarshalable data", frame)
	}
}
