//go:build linux

package periph

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// LinePort backs the PORTA/DDRA registers with Linux GPIO character device
// lines. Each mapped PORTA bit drives one line offset on the chip. All other
// registers are forwarded to the inner Port, since the GPIO chardev has no ADC.
type LinePort struct {
	mu sync.Mutex

	chip    *gpiocdev.Chip
	offsets map[uint8]int
	lines   map[uint8]*gpiocdev.Line
	inner   Port

	data uint16
	dir  uint16
	err  error
}

// NewLinePort opens the named chip. offsets maps PORTA bit numbers to line
// offsets; lines are only requested once DDRA marks them as outputs.
func NewLinePort(chipName string, offsets map[uint8]int, inner Port) (*LinePort, error) {
	for bit := range offsets {
		if bit > 7 {
			return nil, fmt.Errorf("gpio: PORTA bit %d out of range", bit)
		}
	}

	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	return &LinePort{
		chip:    chip,
		offsets: offsets,
		lines:   make(map[uint8]*gpiocdev.Line),
		inner:   inner,
	}, nil
}

// Read returns the PORTA/DDRA image or the inner register value.
func (p *LinePort) Read(r Register) uint16 {
	switch r {
	case PORTA:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.data
	case DDRA:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.dir
	}
	return p.inner.Read(r)
}

// Write updates the PORTA/DDRA image and drives the lines, or forwards to
// the inner Port. Line errors are logged and retained for Err.
func (p *LinePort) Write(r Register, v uint16) {
	switch r {
	case PORTA:
		p.mu.Lock()
		defer p.mu.Unlock()
		p.data = v & 0xFF
		p.drive()
		return
	case DDRA:
		p.mu.Lock()
		defer p.mu.Unlock()
		p.dir = v & 0xFF
		p.configure()
		return
	}
	p.inner.Write(r, v)
}

func (p *LinePort) level(bit uint8) int {
	if p.data&(1<<bit) != 0 {
		return 1
	}
	return 0
}

func (p *LinePort) configure() {
	for _, bit := range p.bits() {
		offset := p.offsets[bit]
		output := p.dir&(1<<bit) != 0
		line, requested := p.lines[bit]

		switch {
		case output && !requested:
			l, err := p.chip.RequestLine(offset, gpiocdev.AsOutput(p.level(bit)))
			if err != nil {
				p.fail(fmt.Errorf("request line %d (PORTA bit %d): %w", offset, bit, err))
				continue
			}
			p.lines[bit] = l
		case !output && requested:
			if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
				p.fail(fmt.Errorf("reconfigure line %d: %w", offset, err))
			}
			if err := line.Close(); err != nil {
				p.fail(fmt.Errorf("close line %d: %w", offset, err))
			}
			delete(p.lines, bit)
		}
	}
}

func (p *LinePort) drive() {
	for _, bit := range p.bits() {
		line, ok := p.lines[bit]
		if !ok {
			continue
		}
		if err := line.SetValue(p.level(bit)); err != nil {
			p.fail(fmt.Errorf("set line %d: %w", p.offsets[bit], err))
		}
	}
}

func (p *LinePort) bits() []uint8 {
	bits := make([]uint8, 0, len(p.offsets))
	for bit := range p.offsets {
		bits = append(bits, bit)
	}
	sort.Slice(bits, func(i, j int) bool { return bits[i] < bits[j] })
	return bits
}

func (p *LinePort) fail(err error) {
	log.Printf("gpio: %v", err)
	if p.err == nil {
		p.err = err
	}
}

// Err returns and clears the first line error since the last call.
func (p *LinePort) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.err
	p.err = nil
	return err
}

// Close releases GPIO resources.
// Lines are reconfigured to input with pull-down before closing so the fan
// driver and LED are left in their boot default state.
func (p *LinePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for _, bit := range p.bits() {
		line, ok := p.lines[bit]
		if !ok {
			continue
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line %d: %w", p.offsets[bit], err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line %d: %w", p.offsets[bit], err))
		}
		delete(p.lines, bit)
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		p.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
