package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/sonar-array/internal/sonar"
)

func TestFormatPayload(t *testing.T) {
	r := sonar.Reading{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Sensor:    1,
		Distance:  300,
		Width:     175,
		Status:    sonar.StatusOK,
	}

	payload, err := FormatPayload("front", r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Sonar.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("unexpected timestamp: %s", parsed.Sonar.Timestamp)
	}
	if parsed.Sonar.Machine != "front" {
		t.Errorf("unexpected machine: %s", parsed.Sonar.Machine)
	}
	if parsed.Sonar.Sensor != 1 {
		t.Errorf("unexpected sensor: %d", parsed.Sonar.Sensor)
	}
	if parsed.Sonar.Status != "OK" {
		t.Errorf("unexpected status: %s", parsed.Sonar.Status)
	}
	if parsed.Sonar.DistanceMM == nil || *parsed.Sonar.DistanceMM != 300 {
		t.Errorf("unexpected distance: %v", parsed.Sonar.DistanceMM)
	}
	if parsed.Sonar.WidthTicks != 175 {
		t.Errorf("unexpected width: %d", parsed.Sonar.WidthTicks)
	}
}

func TestFormatPayloadNoReadingExactJSON(t *testing.T) {
	r := sonar.Reading{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Sensor:    0,
		Distance:  sonar.NoReading,
		Status:    sonar.StatusNoReading,
	}

	payload, err := FormatPayload("front", r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"sonar":{"timestamp":"2026-02-03T10:30:45Z","machine":"front","sensor":0,"status":"NO_READING","distance_mm":null,"width_ticks":0}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	r := sonar.Reading{
		Timestamp: time.Date(2026, 2, 3, 12, 0, 0, 0, loc),
		Distance:  10,
		Status:    sonar.StatusOK,
	}

	payload, err := FormatPayload("front", r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Sonar.Timestamp != "2026-02-03T10:00:00Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Sonar.Timestamp)
	}
}

func TestTopics(t *testing.T) {
	if got := ReadingsTopic("front"); got != "sensors/sonar/front/readings" {
		t.Errorf("unexpected readings topic: %s", got)
	}
	if got := SystemTopic("front"); got != "sensors/sonar/front/system" {
		t.Errorf("unexpected system topic: %s", got)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	r := sonar.Reading{Timestamp: time.Now(), Sensor: 2, Distance: 120, Status: sonar.StatusOK}
	if err := f.Publish(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Readings) != 1 {
		t.Fatalf("expected 1 reading, got %d", len(f.Readings))
	}
	if f.Readings[0].Sensor != 2 {
		t.Errorf("unexpected sensor: %d", f.Readings[0].Sensor)
	}
	if len(f.Payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(f.Payloads))
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("simulated error")

	err := f.Publish(sonar.Reading{Timestamp: time.Now()})
	if err == nil {
		t.Error("expected error to be returned")
	}
	if len(f.Readings) != 0 {
		t.Errorf("expected 0 readings on error, got %d", len(f.Readings))
	}
}

func TestFakePublisherClose(t *testing.T) {
	f := NewFakePublisher()

	if f.Closed {
		t.Error("should not be closed initially")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.Publish(sonar.Reading{Timestamp: time.Now()})
	f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP"})
	f.Connected = true
	f.Close()

	f.Reset()

	if len(f.Readings) != 0 || len(f.Payloads) != 0 {
		t.Error("readings not cleared")
	}
	if len(f.SystemEvents) != 0 || len(f.SystemPayloads) != 0 {
		t.Error("system events not cleared")
	}
	if f.Closed || f.Connected {
		t.Error("flags not cleared")
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-03T10:30:45Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 3, 10, 30, 45, 0, time.UTC),
		Event:     "OFFLINE",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-03T10:30:45Z","event":"OFFLINE"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"HEARTBEAT"}}`)

	payload, err := FormatSystemPayload(SystemEvent{Event: "HEARTBEAT", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload, got %s", payload)
	}
}

func TestFakePublisherRecordsRetainedFlag(t *testing.T) {
	f := NewFakePublisher()

	f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true})
	f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "HEARTBEAT"})

	if !f.SystemEvents[0].Retained {
		t.Error("STARTUP should be retained")
	}
	if f.SystemEvents[1].Retained {
		t.Error("HEARTBEAT should not be retained")
	}
}

func TestFakePublisherPreservesOrder(t *testing.T) {
	f := NewFakePublisher()

	for i := 0; i < 5; i++ {
		f.Publish(sonar.Reading{Timestamp: time.Now(), Sensor: i % 2, Tick: uint64(i)})
	}

	for i, r := range f.Readings {
		if r.Tick != uint64(i) {
			t.Errorf("reading %d: expected tick %d, got %d", i, i, r.Tick)
		}
	}
}
