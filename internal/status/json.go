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
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	BootID        string         `json:"boot_id"`
	State         string         `json:"state"`
	Code          string         `json:"code"`
	Indicator     string         `json:"indicator"`
	Fan           string         `json:"fan"`
	Ready         bool           `json:"ready"`
	Reservoir     ReservoirJSON  `json:"reservoir"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Counts        CountsJSON     `json:"event_counts"`
	LastEvent     *LastEventJSON `json:"last_event,omitempty"`
	Config        ConfigJSON     `json:"config"`
}

// ReservoirJSON reports the latest ADC reading.
type ReservoirJSON struct {
	Sample       *uint16 `json:"sample"`
	Low          bool    `json:"low"`
	ADCFaults    int     `json:"adc_faults"`
	LastADCError string  `json:"last_adc_error,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Reset           int `json:"reset"`
	ToggleStartStop int `json:"start_stop"`
	LowReservoir    int `json:"low_reservoir"`
	ToggleRunIdle   int `json:"run_idle"`
	Ignored         int `json:"ignored"`
}

// LastEventJSON is the most recent fired transition.
type LastEventJSON struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	From      string `json:"from"`
	To        string `json:"to"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs       int64  `json:"poll_ms"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	ToggleMs     int64  `json:"toggle_ms"`
	Broker       string `json:"broker"`
	HTTPAddr     string `json:"http_addr"`
	ADCChannel   uint8  `json:"adc_channel"`
	LowThreshold uint16 `json:"low_threshold"`
	Hysteresis   uint16 `json:"hysteresis"`
	Simulated    bool   `json:"simulated"`
}

func fanString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		BootID:        snap.BootID,
		State:         snap.Status.String(),
		Code:          string(rune(snap.Status)),
		Indicator:     string(snap.Output.Color),
		Fan:           fanString(snap.Output.FanOn),
		Ready:         snap.Initialized,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Reservoir: ReservoirJSON{
			Low:          snap.ReservoirLow,
			ADCFaults:    snap.ADCFaults,
			LastADCError: snap.LastADCError,
		},
		Counts: CountsJSON{
			Reset:           snap.Counts.Reset,
			ToggleStartStop: snap.Counts.ToggleStartStop,
			LowReservoir:    snap.Counts.LowReservoir,
			ToggleRunIdle:   snap.Counts.ToggleRunIdle,
			Ignored:         snap.Counts.Ignored,
		},
		Config: ConfigJSON{
			PollMs:       snap.Config.PollMs,
			HeartbeatMs:  snap.Config.HeartbeatMs,
			ToggleMs:     snap.Config.ToggleMs,
			Broker:       snap.Config.Broker,
			HTTPAddr:     snap.Config.HTTPAddr,
			ADCChannel:   snap.Config.ADCChannel,
			LowThreshold: snap.Config.LowThreshold,
			Hysteresis:   snap.Config.Hysteresis,
			Simulated:    snap.Config.Simulated,
		},
	}

	if snap.SampleValid {
		v := snap.Sample
		inner.Reservoir.Sample = &v
	}
	if tr := snap.LastEvent; tr != nil {
		inner.LastEvent = &LastEventJSON{
			Timestamp: tr.Timestamp.UTC().Format(time.RFC3339),
			Event:     tr.Event.String(),
			From:      tr.From.String(),
			To:        tr.To.String(),
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
