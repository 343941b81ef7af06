package indicator

import (
	"testing"
	"time"

	"github.com/sweeney/humidifier/internal/logic"
	"github.com/sweeney/humidifier/internal/periph"
)

func newTestDriver() (*Driver, *periph.SimPort) {
	port := periph.NewSimPort()
	d := New(port, DefaultPins())
	d.Hold = 0
	return d, port
}

// assertedLines counts colour lines at their active level.
func assertedLines(d *Driver) int {
	n := 0
	for _, l := range d.colorLines() {
		if d.asserted(l) {
			n++
		}
	}
	return n
}

func TestSetColorExactlyOne(t *testing.T) {
	d, _ := newTestDriver()

	for _, c := range logic.Colors {
		t.Run(string(c), func(t *testing.T) {
			d.SetColor(c)
			if n := assertedLines(d); n != 1 {
				t.Fatalf("asserted lines: got %d, want 1", n)
			}
			got, ok := d.Color()
			if !ok || got != c {
				t.Errorf("Color: got (%s, %v), want (%s, true)", got, ok, c)
			}
		})
	}
}

func TestSetColorTransitionsBetweenAllPairs(t *testing.T) {
	d, _ := newTestDriver()
	for _, from := range logic.Colors {
		for _, to := range logic.Colors {
			d.SetColor(from)
			d.SetColor(to)
			if got, ok := d.Color(); !ok || got != to {
				t.Errorf("%s -> %s: got (%s, %v)", from, to, got, ok)
			}
		}
	}
}

func TestRegisterLevels(t *testing.T) {
	d, port := newTestDriver()

	// RGB is common-anode: the selected line is driven low.
	d.SetColor(logic.ColorGreen)
	got := port.Peek(periph.PORTA)
	want := uint16(1<<1 | 1<<5) // red and blue high, green low, yellow low
	if got != want {
		t.Errorf("green: PORTA got %#08b, want %#08b", got, want)
	}

	// Yellow is active-high.
	d.SetColor(logic.ColorYellow)
	got = port.Peek(periph.PORTA)
	want = uint16(1<<1 | 1<<3 | 1<<5 | 1<<7)
	if got != want {
		t.Errorf("yellow: PORTA got %#08b, want %#08b", got, want)
	}

	d.Off()
	got = port.Peek(periph.PORTA)
	want = uint16(1<<1 | 1<<3 | 1<<5)
	if got != want {
		t.Errorf("off: PORTA got %#08b, want %#08b", got, want)
	}
}

func TestOffClearsYellow(t *testing.T) {
	d, _ := newTestDriver()
	d.SetColor(logic.ColorYellow)
	d.SetColor(logic.ColorRed)

	if got, ok := d.Color(); !ok || got != logic.ColorRed {
		t.Errorf("Color: got (%s, %v), want RED", got, ok)
	}
}

func TestColorPreservesFan(t *testing.T) {
	d, _ := newTestDriver()
	d.SetFan(true)

	for _, c := range logic.Colors {
		d.SetColor(c)
		if !d.FanOn() {
			t.Errorf("fan turned off by SetColor(%s)", c)
		}
	}
	d.Off()
	if !d.FanOn() {
		t.Error("fan turned off by Off")
	}
}

func TestSetFan(t *testing.T) {
	d, port := newTestDriver()

	d.SetFan(true)
	if !d.FanOn() {
		t.Error("expected fan on")
	}
	if port.Peek(periph.PORTA)&(1<<2) == 0 {
		t.Error("expected PA2 high")
	}

	d.SetFan(false)
	if d.FanOn() {
		t.Error("expected fan off")
	}
}

func TestOffReadsBackNoColor(t *testing.T) {
	d, _ := newTestDriver()
	d.SetColor(logic.ColorBlue)
	d.Off()
	if _, ok := d.Color(); ok {
		t.Error("expected no colour after Off")
	}
}

func TestUnknownColorLeavesOff(t *testing.T) {
	d, _ := newTestDriver()
	d.SetColor(logic.ColorRed)
	d.SetColor(logic.Color("PURPLE"))
	if n := assertedLines(d); n != 0 {
		t.Errorf("asserted lines: got %d, want 0", n)
	}
}

func TestInitOutputsSelfTest(t *testing.T) {
	port := periph.NewSimPort()
	d := New(port, DefaultPins())

	var holds []time.Duration
	var shown []logic.Color
	d.Hold = 10 * time.Millisecond
	d.Sleep = func(h time.Duration) {
		holds = append(holds, h)
		c, _ := d.Color()
		shown = append(shown, c)
	}

	d.InitOutputs()

	wantDir := uint16(1<<1 | 1<<2 | 1<<3 | 1<<5 | 1<<7)
	if got := port.Peek(periph.DDRA); got != wantDir {
		t.Errorf("DDRA: got %#08b, want %#08b", got, wantDir)
	}

	if len(shown) != 4 {
		t.Fatalf("self-test steps: got %d, want 4", len(shown))
	}
	for i, c := range logic.Colors {
		if shown[i] != c {
			t.Errorf("step %d: got %s, want %s", i, shown[i], c)
		}
		if holds[i] != 10*time.Millisecond {
			t.Errorf("step %d hold: got %v, want 10ms", i, holds[i])
		}
	}

	if n := assertedLines(d); n != 0 {
		t.Errorf("after self-test: %d lines asserted, want 0", n)
	}
	if d.FanOn() {
		t.Error("fan should be off after InitOutputs")
	}
}

func TestInitOutputsZeroHoldSkipsSleep(t *testing.T) {
	d, _ := newTestDriver()
	d.Sleep = func(time.Duration) { t.Error("Sleep called with zero hold") }
	d.InitOutputs()
}

func TestCustomPins(t *testing.T) {
	port := periph.NewSimPort()
	pins := Pins{
		Red:    Line{Bit: 0},
		Green:  Line{Bit: 1},
		Blue:   Line{Bit: 2},
		Yellow: Line{Bit: 3},
		Fan:    Line{Bit: 4, ActiveLow: true},
	}
	d := New(port, pins)
	d.Hold = 0

	d.SetColor(logic.ColorBlue)
	d.SetFan(true)
	if got := port.Peek(periph.PORTA); got != 1<<2 {
		t.Errorf("PORTA: got %#08b, want %#08b", got, 1<<2)
	}
	if !d.FanOn() {
		t.Error("active-low fan should read back on")
	}
}
