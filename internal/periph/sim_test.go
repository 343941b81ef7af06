package periph

import "testing"

func TestSimPortRegisterFile(t *testing.T) {
	s := NewSimPort()

	s.Write(PORTA, 0xA5)
	if got := s.Read(PORTA); got != 0xA5 {
		t.Errorf("PORTA: got %#x, want 0xa5", got)
	}

	SetBits(s, PORTA, 0x02)
	if got := s.Read(PORTA); got != 0xA7 {
		t.Errorf("after SetBits: got %#x, want 0xa7", got)
	}

	ClearBits(s, PORTA, 0x81)
	if got := s.Read(PORTA); got != 0x26 {
		t.Errorf("after ClearBits: got %#x, want 0x26", got)
	}

	Update(s, PORTA, 0x0F, 0x01)
	if got := s.Read(PORTA); got != 0x21 {
		t.Errorf("after Update: got %#x, want 0x21", got)
	}

	if !Bit(s, PORTA, 0x20) {
		t.Error("expected bit 5 set")
	}
	if Bit(s, PORTA, 0x40) {
		t.Error("expected bit 6 clear")
	}
}

func TestSimPortConversion(t *testing.T) {
	s := NewSimPort()
	s.SetSample(2, 517)

	s.Write(ADCSRA, ADEN)
	s.Write(ADMUX, REFS0|2)
	s.Write(ADCSRA, ADEN|ADSC)

	polls := 0
	for s.Read(ADCSRA)&ADSC != 0 {
		polls++
		if polls > 100 {
			t.Fatal("conversion never completed")
		}
	}

	if polls != DefaultPollsPerConversion-1 {
		t.Errorf("busy polls: got %d, want %d", polls, DefaultPollsPerConversion-1)
	}
	if got := s.Read(ADC); got != 517 {
		t.Errorf("ADC: got %d, want 517", got)
	}
	if s.Peek(ADCSRA)&ADIF == 0 {
		t.Error("expected ADIF set after conversion")
	}
	if s.Conversions() != 1 {
		t.Errorf("conversions: got %d, want 1", s.Conversions())
	}
}

func TestSimPortBankSelect(t *testing.T) {
	s := NewSimPort()
	s.SetSample(3, 100)
	s.SetSample(11, 900)
	s.PollsPerConversion = 0

	s.Write(ADCSRA, ADEN)
	s.Write(ADMUX, 3)
	s.Write(ADCSRB, MUX5)
	s.Write(ADCSRA, ADEN|ADSC)

	last := s.LastConversion()
	if last.Channel != 11 || !last.Bank || last.Mux != 3 {
		t.Errorf("last conversion: got %+v, want channel 11 bank=true mux=3", last)
	}
	if got := s.Read(ADC); got != 900 {
		t.Errorf("ADC: got %d, want 900", got)
	}
}

func TestSimPortRequiresEnable(t *testing.T) {
	s := NewSimPort()
	s.Write(ADCSRA, ADSC)

	for i := 0; i < 10; i++ {
		if s.Read(ADCSRA)&ADSC == 0 {
			t.Fatal("conversion should not run with ADEN clear")
		}
	}
	if s.Conversions() != 0 {
		t.Errorf("conversions: got %d, want 0", s.Conversions())
	}
}

func TestSimPortStuck(t *testing.T) {
	s := NewSimPort()
	s.SetStuck(true)
	s.Write(ADCSRA, ADEN|ADSC)

	for i := 0; i < 50; i++ {
		if s.Read(ADCSRA)&ADSC == 0 {
			t.Fatal("stuck conversion completed")
		}
	}

	// Software cannot clear ADSC while busy.
	s.Write(ADCSRA, ADEN)
	if s.Peek(ADCSRA)&ADSC == 0 {
		t.Error("ADSC cleared by write during conversion")
	}

	s.SetStuck(false)
	for i := 0; i < 10 && s.Read(ADCSRA)&ADSC != 0; i++ {
	}
	if s.Peek(ADCSRA)&ADSC != 0 {
		t.Error("conversion did not finish after unsticking")
	}
}

func TestSimPortLeftAdjust(t *testing.T) {
	s := NewSimPort()
	s.PollsPerConversion = 0
	s.SetSample(0, 0x3FF)
	s.Write(ADMUX, ADLAR)
	s.Write(ADCSRA, ADEN|ADSC)

	if got := s.Read(ADC); got != 0xFFC0 {
		t.Errorf("left-adjusted ADC: got %#x, want 0xffc0", got)
	}
}

func TestSimPortIgnoresResultWrites(t *testing.T) {
	s := NewSimPort()
	s.Write(ADC, 0x1234)
	if got := s.Read(ADC); got != 0 {
		t.Errorf("ADC: got %#x, want 0", got)
	}
}

func TestSimPortWritesHistory(t *testing.T) {
	s := NewRecordingSimPort()
	s.Write(PORTA, 1)
	s.Write(PORTA, 2)
	s.Write(DDRA, 0xFF)

	got := s.Writes(PORTA)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("PORTA writes: got %v, want [1 2]", got)
	}

	s.Reset()
	s.Write(PORTA, 3)
	if got := s.Writes(PORTA); len(got) != 1 || got[0] != 3 {
		t.Errorf("expected recording to survive Reset, got %v", got)
	}
	s.Reset()
	if len(s.Writes(PORTA)) != 0 {
		t.Error("expected history cleared after Reset")
	}
	if s.Peek(DDRA) != 0 {
		t.Error("expected registers cleared after Reset")
	}
	if s.PollsPerConversion != DefaultPollsPerConversion {
		t.Errorf("PollsPerConversion: got %d, want %d", s.PollsPerConversion, DefaultPollsPerConversion)
	}
}

func TestRegisterString(t *testing.T) {
	if PORTA.String() != "PORTA" || ADCSRA.String() != "ADCSRA" {
		t.Errorf("unexpected names: %s %s", PORTA, ADCSRA)
	}
	if Register(99).String() != "REG(99)" {
		t.Errorf("unexpected name for unknown register: %s", Register(99))
	}
}

func TestSimPortDefaultKeepsNoHistory(t *testing.T) {
	s := NewSimPort()
	s.SetSample(0, 321)
	for i := 0; i < 1000; i++ {
		s.Write(PORTA, uint16(i))
		s.Write(ADCSRA, ADEN|ADSC)
		for s.Read(ADCSRA)&ADSC != 0 {
		}
	}

	for _, r := range []Register{PORTA, DDRA, ADMUX, ADCSRA, ADCSRB, ADC} {
		if n := len(s.Writes(r)); n != 0 {
			t.Errorf("%s: got %d retained writes, want 0", r, n)
		}
	}
	if got := s.Peek(ADC); got != 321 {
		t.Errorf("ADC: got %d, want 321", got)
	}
	if got := s.Conversions(); got != 1000 {
		t.Errorf("conversions: got %d, want 1000", got)
	}
}
