// Package controller holds the controller state machine and applies the
// output configuration for each status to the indicator and fan.
package controller

import (
	"errors"
	"sync"
	"time"

	"github.com/sweeney/humidifier/internal/logic"
)

// ErrAlreadyInitialized is returned by a second call to Init.
var ErrAlreadyInitialized = errors.New("controller: already initialized")

// Outputs drives the indicator and fan lines.
type Outputs interface {
	InitOutputs()
	SetColor(c logic.Color)
	SetFan(on bool)
}

// Initializer prepares a peripheral for use.
type Initializer interface {
	Init()
}

// Machine owns the current status. Every fired rule synchronously applies
// the matching output configuration. Machine is safe for concurrent use;
// status and peripheral writes are serialised under one lock.
type Machine struct {
	mu          sync.Mutex
	out         Outputs
	adc         Initializer
	status      logic.Status
	initialized bool
	counts      logic.EventCounts
}

// New creates a Machine driving out and initialising adc. Status is Idle but
// no peripheral is touched until Init.
func New(out Outputs, adc Initializer) *Machine {
	return &Machine{
		out:    out,
		adc:    adc,
		status: logic.StatusIdle,
	}
}

// Init sets Idle, configures the indicator and fan (including the colour
// self-test), initialises the ADC and applies the Idle output.
func (m *Machine) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return ErrAlreadyInitialized
	}
	m.status = logic.StatusIdle
	m.out.InitOutputs()
	if m.adc != nil {
		m.adc.Init()
	}
	m.initialized = true
	m.applyIdle()
	return nil
}

// HandleEvent applies e and returns the resulting status. Events that match
// no rule, and any event before Init, leave the status unchanged.
func (m *Machine) HandleEvent(e logic.Event) logic.Status {
	tr, _ := m.Apply(e, time.Time{})
	return tr.To
}

// Apply is HandleEvent that also reports the transition record and whether a
// rule fired. now is stamped on the record.
func (m *Machine) Apply(e logic.Event, now time.Time) (logic.Transition, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.status
	tr := logic.Transition{
		Timestamp: now,
		Event:     e,
		From:      from,
		To:        from,
		Output:    logic.OutputFor(from),
	}
	if !m.initialized {
		return tr, false
	}

	next, fired := logic.Next(from, e)
	m.counts.Add(e, fired)
	if !fired {
		return tr, false
	}

	m.status = next
	m.apply()

	tr.To = next
	tr.Output = logic.OutputFor(next)
	return tr, true
}

// Status returns the current status.
func (m *Machine) Status() logic.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Output returns the output configuration implied by the current status.
func (m *Machine) Output() logic.Output {
	m.mu.Lock()
	defer m.mu.Unlock()
	return logic.OutputFor(m.status)
}

// Counts returns a copy of the per-event counts.
func (m *Machine) Counts() logic.EventCounts {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts
}

// Initialized reports whether Init has completed.
func (m *Machine) Initialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// apply dispatches to the output method for the current status.
// Caller must hold mu.
func (m *Machine) apply() bool {
	switch m.status {
	case logic.StatusError:
		return m.applyError()
	case logic.StatusRunning:
		return m.applyRunning()
	case logic.StatusIdle:
		return m.applyIdle()
	case logic.StatusDisabled:
		return m.applyDisabled()
	}
	return false
}

// The apply* methods refuse to touch the peripherals unless the machine is
// in the matching status. Caller must hold mu.

func (m *Machine) applyError() bool {
	if m.status != logic.StatusError {
		return false
	}
	m.out.SetColor(logic.ColorRed)
	m.out.SetFan(false)
	return true
}

func (m *Machine) applyRunning() bool {
	if m.status != logic.StatusRunning {
		return false
	}
	m.out.SetColor(logic.ColorBlue)
	m.out.SetFan(true)
	return true
}

func (m *Machine) applyIdle() bool {
	if m.status != logic.StatusIdle {
		return false
	}
	m.out.SetColor(logic.ColorGreen)
	m.out.SetFan(false)
	return true
}

func (m *Machine) applyDisabled() bool {
	if m.status != logic.StatusDisabled {
		return false
	}
	m.out.SetColor(logic.ColorYellow)
	m.out.SetFan(false)
	return true
}
