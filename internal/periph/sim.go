package periph

import "sync"

// DefaultPollsPerConversion is how many ADCSRA reads a simulated conversion
// stays busy for.
const DefaultPollsPerConversion = 3

// Conversion records the channel selection latched when a conversion started.
type Conversion struct {
	Mux     uint16 // ADMUX MUX4:0 at start
	Bank    bool   // ADCSRB MUX5 at start
	Channel int    // effective channel 0-15
}

// SimPort is an in-memory register file with a simulated successive
// approximation ADC. It is used by tests and by the daemon's -sim mode.
// SimPort is safe for concurrent use.
type SimPort struct {
	mu sync.Mutex

	regs    [numRegisters]uint16
	samples [16]uint16
	record  bool
	writes  [numRegisters][]uint16

	// PollsPerConversion is the number of ADCSRA reads a conversion stays busy.
	PollsPerConversion int

	// stuck keeps ADSC asserted forever once a conversion starts.
	stuck bool

	converting  bool
	remaining   int
	conversions int
	last        Conversion
}

// NewSimPort creates a SimPort with all registers zero. It keeps no write
// history, so it can back a long-running daemon.
func NewSimPort() *SimPort {
	return &SimPort{PollsPerConversion: DefaultPollsPerConversion}
}

// NewRecordingSimPort is NewSimPort with write history enabled for Writes.
func NewRecordingSimPort() *SimPort {
	s := NewSimPort()
	s.record = true
	return s
}

// SetSample sets the value the given channel converts to.
func (s *SimPort) SetSample(channel int, v uint16) {
	s.mu.Lock()
	s.samples[channel&0x0F] = v & ResultMask
	s.mu.Unlock()
}

// SetStuck sets or clears stuck mode.
func (s *SimPort) SetStuck(stuck bool) {
	s.mu.Lock()
	s.stuck = stuck
	s.mu.Unlock()
}

// Read returns the register value. Reading ADCSRA advances a pending conversion.
func (s *SimPort) Read(r Register) uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r >= numRegisters {
		return 0
	}
	if r == ADCSRA && s.converting && !s.stuck {
		s.remaining--
		if s.remaining <= 0 {
			s.complete()
		}
	}
	return s.regs[r]
}

// Write stores the register value. Setting ADSC with ADEN set starts a
// conversion; writes to the ADC result register are ignored.
func (s *SimPort) Write(r Register, v uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r >= numRegisters {
		return
	}
	if s.record {
		s.writes[r] = append(s.writes[r], v)
	}

	switch r {
	case ADC:
		return
	case ADCSRA:
		old := s.regs[ADCSRA]
		// ADIF is cleared by writing one to it.
		v = v&^ADIF | old&ADIF&^(v&ADIF)
		if s.converting {
			// ADSC cannot be cleared while busy.
			v |= ADSC
		}
		s.regs[ADCSRA] = v
		if v&ADSC != 0 && !s.converting && v&ADEN != 0 {
			s.start()
		}
		return
	}
	s.regs[r] = v
}

func (s *SimPort) start() {
	mux := s.regs[ADMUX] & MUX
	bank := s.regs[ADCSRB]&MUX5 != 0
	ch := int(mux & 0x07)
	if bank {
		ch += 8
	}
	s.last = Conversion{Mux: mux, Bank: bank, Channel: ch}
	s.conversions++
	s.converting = true
	s.remaining = s.PollsPerConversion
	if s.remaining <= 0 {
		s.complete()
	}
}

func (s *SimPort) complete() {
	v := s.samples[s.last.Channel]
	if s.regs[ADMUX]&ADLAR != 0 {
		v <<= 6
	}
	s.regs[ADC] = v
	s.regs[ADCSRA] = (s.regs[ADCSRA] &^ ADSC) | ADIF
	s.converting = false
}

// Peek returns a register value without side effects.
func (s *SimPort) Peek(r Register) uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r >= numRegisters {
		return 0
	}
	return s.regs[r]
}

// Writes returns a copy of every value written to r, oldest first. It is
// always empty unless the port was created by NewRecordingSimPort.
func (s *SimPort) Writes(r Register) []uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r >= numRegisters {
		return nil
	}
	out := make([]uint16, len(s.writes[r]))
	copy(out, s.writes[r])
	return out
}

// Conversions returns the number of conversions started.
func (s *SimPort) Conversions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversions
}

// LastConversion returns the selection latched by the most recent conversion.
func (s *SimPort) LastConversion() Conversion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Reset clears registers, samples, history and stuck mode.
func (s *SimPort) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs = [numRegisters]uint16{}
	s.samples = [16]uint16{}
	s.writes = [numRegisters][]uint16{}
	s.stuck = false
	s.converting = false
	s.remaining = 0
	s.conversions = 0
	s.last = Conversion{}
}
