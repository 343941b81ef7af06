package logic

import "time"

// ReservoirMonitor turns raw ADC samples into LowReservoir events.
// It fires once on the falling edge through LowThreshold and re-arms only
// after the level recovers to LowThreshold+Hysteresis.
type ReservoirMonitor struct {
	LowThreshold uint16
	Hysteresis   uint16

	low      bool
	observed bool
	last     uint16
}

// NewReservoirMonitor creates a monitor with the given threshold and hysteresis.
func NewReservoirMonitor(lowThreshold, hysteresis uint16) *ReservoirMonitor {
	return &ReservoirMonitor{LowThreshold: lowThreshold, Hysteresis: hysteresis}
}

// Observe records a sample and reports whether a LowReservoir event should be
// emitted. A first sample already below the threshold fires immediately.
func (m *ReservoirMonitor) Observe(sample uint16) bool {
	m.observed = true
	m.last = sample

	if m.low {
		if uint32(sample) >= uint32(m.LowThreshold)+uint32(m.Hysteresis) {
			m.low = false
		}
		return false
	}

	if sample < m.LowThreshold {
		m.low = true
		return true
	}
	return false
}

// Low reports whether the monitor currently considers the reservoir low.
func (m *ReservoirMonitor) Low() bool {
	return m.low
}

// Last returns the most recent sample and whether any sample has been observed.
func (m *ReservoirMonitor) Last() (uint16, bool) {
	return m.last, m.observed
}

// Schedule tracks a fixed-interval activity such as heartbeats or the
// periodic run/idle toggle.
type Schedule struct {
	last time.Time
}

// NewSchedule creates a schedule whose first interval starts at start.
func NewSchedule(start time.Time) *Schedule {
	return &Schedule{last: start}
}

// Due reports whether interval has elapsed since the last due time, and if
// so restarts the interval at now. An interval <= 0 disables the schedule.
func (s *Schedule) Due(now time.Time, interval time.Duration) bool {
	if interval <= 0 {
		return false
	}
	if now.Sub(s.last) < interval {
		return false
	}
	s.last = now
	return true
}
