// Package indicator drives the four-colour status LED and the fan line
// through a peripheral Port.
package indicator

import (
	"time"

	"github.com/sweeney/humidifier/internal/logic"
	"github.com/sweeney/humidifier/internal/periph"
)

// DefaultSelfTestHold is how long each colour is shown during the startup
// diagnostic.
const DefaultSelfTestHold = 500 * time.Millisecond

// Line is one PORTA output bit and its electrical polarity.
type Line struct {
	Bit       uint8
	ActiveLow bool
}

func (l Line) mask() uint16 {
	return 1 << l.Bit
}

// Pins maps the indicator and fan to PORTA bits.
type Pins struct {
	Red    Line
	Green  Line
	Blue   Line
	Yellow Line
	Fan    Line
}

// DefaultPins returns the board wiring: a common-anode RGB LED on PA1/PA3/PA5
// (active-low), a separate yellow LED on PA7 and the fan driver on PA2.
func DefaultPins() Pins {
	return Pins{
		Red:    Line{Bit: 1, ActiveLow: true},
		Green:  Line{Bit: 3, ActiveLow: true},
		Blue:   Line{Bit: 5, ActiveLow: true},
		Yellow: Line{Bit: 7},
		Fan:    Line{Bit: 2},
	}
}

// Driver translates colour and fan requests into PORTA writes.
type Driver struct {
	port periph.Port
	pins Pins

	// Hold is how long each colour is shown by InitOutputs.
	Hold time.Duration
	// Sleep is used for the self-test hold; defaults to time.Sleep.
	Sleep func(time.Duration)
}

// New creates a Driver on port with the given wiring.
func New(port periph.Port, pins Pins) *Driver {
	return &Driver{
		port:  port,
		pins:  pins,
		Hold:  DefaultSelfTestHold,
		Sleep: time.Sleep,
	}
}

func (d *Driver) colorLine(c logic.Color) (Line, bool) {
	switch c {
	case logic.ColorRed:
		return d.pins.Red, true
	case logic.ColorGreen:
		return d.pins.Green, true
	case logic.ColorBlue:
		return d.pins.Blue, true
	case logic.ColorYellow:
		return d.pins.Yellow, true
	}
	return Line{}, false
}

func (d *Driver) colorLines() []Line {
	return []Line{d.pins.Red, d.pins.Green, d.pins.Blue, d.pins.Yellow}
}

func (d *Driver) asserted(l Line) bool {
	high := periph.Bit(d.port, periph.PORTA, l.mask())
	return high != l.ActiveLow
}

func (d *Driver) write(l Line, active bool) {
	if active != l.ActiveLow {
		periph.SetBits(d.port, periph.PORTA, l.mask())
	} else {
		periph.ClearBits(d.port, periph.PORTA, l.mask())
	}
}

// InitOutputs configures the colour and fan lines as outputs, runs the
// diagnostic sequence (red, green, blue, yellow) and leaves everything off.
func (d *Driver) InitOutputs() {
	var dir uint16
	for _, l := range d.colorLines() {
		dir |= l.mask()
	}
	dir |= d.pins.Fan.mask()
	periph.SetBits(d.port, periph.DDRA, dir)

	d.SetFan(false)
	for _, c := range logic.Colors {
		d.SetColor(c)
		if d.Hold > 0 && d.Sleep != nil {
			d.Sleep(d.Hold)
		}
	}
	d.Off()
}

// SetFan drives the fan line.
func (d *Driver) SetFan(on bool) {
	d.write(d.pins.Fan, on)
}

// Off deasserts all four colour lines in one write, leaving the fan and any
// unrelated PORTA bits untouched.
func (d *Driver) Off() {
	var clear, set uint16
	for _, l := range d.colorLines() {
		if l.ActiveLow {
			set |= l.mask()
		} else {
			clear |= l.mask()
		}
	}
	periph.Update(d.port, periph.PORTA, clear, set)
}

// SetColor turns every colour off and then asserts exactly the requested one.
// An unknown colour leaves the indicator off.
func (d *Driver) SetColor(c logic.Color) {
	d.Off()
	if l, ok := d.colorLine(c); ok {
		d.write(l, true)
	}
}

// Color reads back the asserted colour. It reports false unless exactly one
// colour line is asserted.
func (d *Driver) Color() (logic.Color, bool) {
	var found logic.Color
	n := 0
	for _, c := range logic.Colors {
		l, _ := d.colorLine(c)
		if d.asserted(l) {
			found = c
			n++
		}
	}
	if n != 1 {
		return "", false
	}
	return found, true
}

// FanOn reads back the fan line.
func (d *Driver) FanOn() bool {
	return d.asserted(d.pins.Fan)
}
