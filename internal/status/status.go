// Package status provides a thread-safe status tracker for the controller daemon.
// It is read by the HTTP handlers and by the MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/humidifier/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs       int64
	HeartbeatMs  int64
	ToggleMs     int64
	Broker       string
	HTTPAddr     string
	ADCChannel   uint8
	LowThreshold uint16
	Hysteresis   uint16
	Simulated    bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	BootID        string
	Status        logic.Status
	Output        logic.Output
	Initialized   bool
	Counts        logic.EventCounts
	Sample        uint16
	SampleValid   bool
	ReservoirLow  bool
	ADCFaults     int
	LastADCError  string
	LastEvent     *logic.Transition
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given boot ID, start time and config.
func NewTracker(bootID string, startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			BootID:    bootID,
			Status:    logic.StatusIdle,
			Output:    logic.OutputFor(logic.StatusIdle),
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update sets the machine status, output and event counts.
// Called from runLoop after every handled event and tick.
func (t *Tracker) Update(s logic.Status, out logic.Output, initialized bool, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Status = s
	t.snap.Output = out
	t.snap.Initialized = initialized
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetSample records the latest reservoir sample and comparator state.
func (t *Tracker) SetSample(v uint16, low bool) {
	t.mu.Lock()
	t.snap.Sample = v
	t.snap.SampleValid = true
	t.snap.ReservoirLow = low
	t.mu.Unlock()
}

// RecordADCFault counts a failed conversion.
func (t *Tracker) RecordADCFault(err error) {
	t.mu.Lock()
	t.snap.ADCFaults++
	t.snap.LastADCError = err.Error()
	t.mu.Unlock()
}

// SetLastEvent records the most recent fired transition.
func (t *Tracker) SetLastEvent(tr logic.Transition) {
	t.mu.Lock()
	t.snap.LastEvent = &tr
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.LastEvent != nil {
		tr := *s.LastEvent
		s.LastEvent = &tr
	}
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
