// Package logic contains the pure controller rules: statuses, events, the
// transition table, the status-to-output mapping and the reservoir comparator.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"fmt"
	"time"
)

// Status is the single-character operating status of the controller.
type Status byte

const (
	StatusError    Status = 'E'
	StatusRunning  Status = 'R'
	StatusIdle     Status = 'I'
	StatusDisabled Status = 'D'
)

// Statuses lists every defined status in table order.
var Statuses = []Status{StatusError, StatusRunning, StatusIdle, StatusDisabled}

// Valid reports whether s is one of the four defined statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusError, StatusRunning, StatusIdle, StatusDisabled:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s {
	case StatusError:
		return "ERROR"
	case StatusRunning:
		return "RUNNING"
	case StatusIdle:
		return "IDLE"
	case StatusDisabled:
		return "DISABLED"
	}
	return fmt.Sprintf("UNKNOWN(%q)", byte(s))
}

// Event is a single-character input code. Codes outside the four defined
// events are carried as-is and ignored by the transition table.
type Event byte

const (
	EventReset           Event = 'R'
	EventToggleStartStop Event = 'S'
	EventLowReservoir    Event = 'L'
	EventToggleRunIdle   Event = 'T'
)

// Events lists every defined event in table order.
var Events = []Event{EventReset, EventToggleStartStop, EventLowReservoir, EventToggleRunIdle}

// Known reports whether e is one of the four defined events.
func (e Event) Known() bool {
	switch e {
	case EventReset, EventToggleStartStop, EventLowReservoir, EventToggleRunIdle:
		return true
	}
	return false
}

func (e Event) String() string {
	switch e {
	case EventReset:
		return "RESET"
	case EventToggleStartStop:
		return "START_STOP"
	case EventLowReservoir:
		return "LOW_RESERVOIR"
	case EventToggleRunIdle:
		return "RUN_IDLE"
	}
	return fmt.Sprintf("UNKNOWN(%q)", byte(e))
}

// ParseEvent converts a wire code into an Event. Exactly one character is
// required; unrecognised characters are returned without error.
func ParseEvent(code string) (Event, error) {
	if len(code) != 1 {
		return 0, fmt.Errorf("event code must be one character, got %q", code)
	}
	return Event(code[0]), nil
}

// Color is an indicator LED colour.
type Color string

const (
	ColorRed    Color = "RED"
	ColorGreen  Color = "GREEN"
	ColorBlue   Color = "BLUE"
	ColorYellow Color = "YELLOW"
)

// Colors lists the indicator colours in self-test order.
var Colors = []Color{ColorRed, ColorGreen, ColorBlue, ColorYellow}

// Output is the actuator configuration implied by a status.
type Output struct {
	Color Color
	FanOn bool
}

// Transition records one fired rule of the transition table.
type Transition struct {
	Timestamp time.Time
	Event     Event
	From      Status
	To        Status
	Output    Output
}

// EventCounts tracks fired transitions per event since startup.
// Ignored counts events that matched no rule (including unknown codes).
type EventCounts struct {
	Reset           int
	ToggleStartStop int
	LowReservoir    int
	ToggleRunIdle   int
	Ignored         int
}

// Add records one handled event.
func (c *EventCounts) Add(e Event, fired bool) {
	if !fired {
		c.Ignored++
		return
	}
	switch e {
	case EventReset:
		c.Reset++
	case EventToggleStartStop:
		c.ToggleStartStop++
	case EventLowReservoir:
		c.LowReservoir++
	case EventToggleRunIdle:
		c.ToggleRunIdle++
	}
}
