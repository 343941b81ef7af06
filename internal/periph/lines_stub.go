//go:build !linux

package periph

import "errors"

// LinePort is not available on non-Linux platforms.
type LinePort struct{}

// NewLinePort returns an error on non-Linux platforms.
func NewLinePort(chipName string, offsets map[uint8]int, inner Port) (*LinePort, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (p *LinePort) Read(r Register) uint16 {
	return 0
}

// Write is not implemented on non-Linux platforms.
func (p *LinePort) Write(r Register, v uint16) {}

// Err is not implemented on non-Linux platforms.
func (p *LinePort) Err() error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (p *LinePort) Close() error {
	return nil
}
