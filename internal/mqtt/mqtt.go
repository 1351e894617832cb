// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/sonar-array/internal/sonar"
)

// TopicPrefix is the root of every topic published by the daemon.
const TopicPrefix = "sensors/sonar"

// ReadingsTopic is the topic for sensor readings of the named array.
func ReadingsTopic(name string) string {
	return TopicPrefix + "/" + name + "/readings"
}

// SystemTopic is the topic for system lifecycle events of the named array.
func SystemTopic(name string) string {
	return TopicPrefix + "/" + name + "/system"
}

// Publisher publishes readings to MQTT.
type Publisher interface {
	// Publish sends a sensor reading to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(r sonar.Reading) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Sonar ReadingPayload `json:"sonar"`
}

// ReadingPayload contains the reading details.
type ReadingPayload struct {
	Timestamp  string `json:"timestamp"`
	Machine    string `json:"machine"`
	Sensor     int    `json:"sensor"`
	Status     string `json:"status"`
	DistanceMM *int32 `json:"distance_mm"` // null when there is no reading
	WidthTicks uint64 `json:"width_ticks"`
}

// FormatPayload creates the JSON payload for a reading.
func FormatPayload(machine string, r sonar.Reading) ([]byte, error) {
	p := Payload{
		Sonar: ReadingPayload{
			Timestamp:  r.Timestamp.UTC().Format(time.RFC3339Nano),
			Machine:    machine,
			Sensor:     r.Sensor,
			Status:     string(r.Status),
			WidthTicks: r.Width,
		},
	}
	if r.Distance.Valid() {
		mm := int32(r.Distance)
		p.Sonar.DistanceMM = &mm
	}
	return json.Marshal(p)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
