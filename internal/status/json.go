package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Machine       MachineJSON  `json:"machine"`
	Sensors       []SensorJSON `json:"sensors"`
	Ready         bool         `json:"ready"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MachineJSON reports the state machine's cycle position.
type MachineJSON struct {
	Name         string `json:"name"`
	ID           int    `json:"id"`
	State        string `json:"state"`
	ActiveSensor int    `json:"active_sensor"`
	Ticks        uint64 `json:"ticks"`
	Revolutions  uint64 `json:"revolutions"`
	Dropped      uint64 `json:"dropped_readings"`
}

// SensorJSON is the JSON representation of one sensor row.
type SensorJSON struct {
	Index      int    `json:"index"`
	TriggerPin int    `json:"trigger_pin"`
	EchoPin    int    `json:"echo_pin"`
	DistanceMM *int32 `json:"distance_mm"`
	Status     string `json:"status"`
	UpdatedAt  string `json:"updated_at,omitempty"`
	Readings   int    `json:"readings"`
	Timeouts   int    `json:"timeouts"`
	Garbage    int    `json:"garbage"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TriggerPins  []int  `json:"trigger_pins"`
	EchoPins     []int  `json:"echo_pins"`
	TickUs       int64  `json:"tick_us"`
	MaxLoops     int    `json:"maxloops"`
	GarbageTicks int    `json:"garbage_ticks"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	Broker       string `json:"broker"`
	HTTPAddr     string `json:"http_addr"`
}

func buildSensor(s Sensor) SensorJSON {
	sj := SensorJSON{
		Index:      s.Index,
		TriggerPin: s.TriggerPin,
		EchoPin:    s.EchoPin,
		Status:     string(s.Status),
		Readings:   s.Counts.Readings,
		Timeouts:   s.Counts.Timeouts,
		Garbage:    s.Counts.Garbage,
	}
	if sj.Status == "" {
		sj.Status = "PENDING"
	}
	if s.Distance.Valid() {
		mm := int32(s.Distance)
		sj.DistanceMM = &mm
	}
	if !s.UpdatedAt.IsZero() {
		sj.UpdatedAt = s.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return sj
}

func buildInner(snap Snapshot) StatusInner {
	sensors := make([]SensorJSON, 0, len(snap.Sensors))
	for _, s := range snap.Sensors {
		sensors = append(sensors, buildSensor(s))
	}

	state := snap.Machine.State
	if state == "" {
		state = "UNKNOWN"
	}

	return StatusInner{
		Machine: MachineJSON{
			Name:         snap.Config.Name,
			ID:           snap.Config.ID,
			State:        state,
			ActiveSensor: snap.Machine.ActiveSensor,
			Ticks:        snap.Machine.Ticks,
			Revolutions:  snap.Machine.Revolutions,
			Dropped:      snap.Machine.Dropped,
		},
		Sensors:       sensors,
		Ready:         snap.Ready(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			TriggerPins:  snap.Config.TriggerPins,
			EchoPins:     snap.Config.EchoPins,
			TickUs:       snap.Config.TickUs,
			MaxLoops:     snap.Config.MaxLoops,
			GarbageTicks: snap.Config.GarbageTicks,
			HeartbeatMs:  snap.Config.HeartbeatMs,
			Broker:       snap.Config.Broker,
			HTTPAddr:     snap.Config.HTTPAddr,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
