// Package adc operates the successive-approximation ADC in single-conversion,
// software-triggered, polled mode.
package adc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/humidifier/internal/periph"
)

// DefaultTimeout bounds one conversion. At clock/128 a 10-bit conversion on a
// 16MHz part takes about 104us (first conversion about 200us).
const DefaultTimeout = 10 * time.Millisecond

// MaxChannel is the highest selectable channel (8 channels per MUX5 bank).
const MaxChannel = 15

var (
	// ErrInvalidChannel is returned for channels outside 0-15.
	ErrInvalidChannel = errors.New("adc: invalid channel")
	// ErrConversionTimeout is returned when ADSC does not clear in time.
	ErrConversionTimeout = errors.New("adc: conversion timeout")
)

// Channel selects an analog input, 0-15.
type Channel uint8

// Sample is a right-adjusted 10-bit conversion result, 0-1023.
type Sample uint16

// Reader owns the ADC registers of a Port.
type Reader struct {
	port periph.Port
	now  func() time.Time

	// Timeout bounds the busy-poll of a single conversion.
	// Zero or negative means DefaultTimeout.
	Timeout time.Duration
}

// New creates a Reader on port with DefaultTimeout.
func New(port periph.Port) *Reader {
	return &Reader{port: port, now: time.Now, Timeout: DefaultTimeout}
}

// Init enables the converter with software-only triggering, no interrupt,
// the slowest prescaler, AVCC reference, right-adjusted result and channel 0.
func (r *Reader) Init() {
	p := r.port
	periph.Update(p, periph.ADCSRA, periph.ADATE|periph.ADIE|periph.ADPS, periph.ADEN|periph.ADPS)
	periph.ClearBits(p, periph.ADCSRB, periph.MUX5|periph.ADTS)
	periph.Update(p, periph.ADMUX, periph.REFS1|periph.ADLAR|periph.MUX, periph.REFS0)
}

// Read starts a conversion on ch and blocks until it completes, the Timeout
// elapses or ctx is done. Channels 8-15 are selected through the MUX5 bank bit.
func (r *Reader) Read(ctx context.Context, ch Channel) (Sample, error) {
	if ch > MaxChannel {
		return 0, fmt.Errorf("%w: %d", ErrInvalidChannel, ch)
	}

	p := r.port
	mux := uint16(ch)
	var bank uint16
	if ch > 7 {
		mux -= 8
		bank = periph.MUX5
	}
	periph.Update(p, periph.ADMUX, periph.MUX, mux)
	periph.Update(p, periph.ADCSRB, periph.MUX5, bank)

	periph.SetBits(p, periph.ADCSRA, periph.ADSC)

	if err := r.wait(ctx); err != nil {
		return 0, fmt.Errorf("read channel %d: %w", ch, err)
	}
	return Sample(p.Read(periph.ADC) & periph.ResultMask), nil
}

func (r *Reader) wait(ctx context.Context) error {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	deadline := r.now().Add(timeout)
	for periph.Bit(r.port, periph.ADCSRA, periph.ADSC) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !r.now().Before(deadline) {
			return ErrConversionTimeout
		}
	}
	return nil
}
