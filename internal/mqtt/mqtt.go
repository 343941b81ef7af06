// Package mqtt provides MQTT telemetry and command input with abstraction for testing.
package mqtt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/humidifier/internal/logic"
)

// TopicEvents is the MQTT topic for status transitions.
const TopicEvents = "home/humidifier/controller/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/humidifier/controller/system"

// TopicCommand is the MQTT topic the controller accepts event codes on.
const TopicCommand = "home/humidifier/controller/command"

// Publisher publishes controller telemetry to MQTT.
type Publisher interface {
	// Publish sends a status transition to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(tr logic.Transition) error

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
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "ADC_FAULT"
	Reason     string // e.g., "SIGTERM", "conversion timeout"
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for a transition.
type Payload struct {
	Controller TransitionPayload `json:"controller"`
}

// TransitionPayload contains the transition details.
type TransitionPayload struct {
	Timestamp string      `json:"timestamp"`
	Event     string      `json:"event"`
	Code      string      `json:"code"`
	From      StatusState `json:"from"`
	To        StatusState `json:"to"`
	Indicator string      `json:"indicator"`
	Fan       string      `json:"fan"`
}

// StatusState is a status in both its long and wire forms.
type StatusState struct {
	State string `json:"state"`
	Code  string `json:"code"`
}

func statusState(s logic.Status) StatusState {
	return StatusState{State: s.String(), Code: string(rune(s))}
}

// FanState renders a fan flag the way payloads and the status page show it.
func FanState(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

// FormatPayload creates the JSON payload for a transition.
func FormatPayload(tr logic.Transition) ([]byte, error) {
	payload := Payload{
		Controller: TransitionPayload{
			Timestamp: tr.Timestamp.UTC().Format(time.RFC3339),
			Event:     tr.Event.String(),
			Code:      string(rune(tr.Event)),
			From:      statusState(tr.From),
			To:        statusState(tr.To),
			Indicator: string(tr.Output.Color),
			Fan:       FanState(tr.Output.FanOn),
		},
	}
	return json.Marshal(payload)
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

// commandJSON is the structured form of a command payload.
type commandJSON struct {
	Event string `json:"event"`
}

// ParseCommand decodes a command payload. It accepts a bare event code
// ("T") or a JSON object ({"event":"T"}); surrounding whitespace is ignored.
func ParseCommand(payload []byte) (logic.Event, error) {
	p := bytes.TrimSpace(payload)
	if len(p) > 0 && p[0] == '{' {
		var c commandJSON
		if err := json.Unmarshal(p, &c); err != nil {
			return 0, fmt.Errorf("decode command: %w", err)
		}
		return logic.ParseEvent(c.Event)
	}
	return logic.ParseEvent(string(p))
}
