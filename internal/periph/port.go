// Package periph provides register-level peripheral access with hardware
// abstraction. The controller code talks to a Port; the simulated
// implementation allows testing without hardware and the line-backed
// implementation drives real GPIO through the Linux character device.
package periph

import "fmt"

// Register names a peripheral register. The layout follows the ATmega2560
// the board was designed around.
type Register uint8

const (
	PORTA  Register = iota // GPIO data, indicator and fan lines
	DDRA                   // GPIO direction, 1 = output
	ADMUX                  // ADC reference, adjust and channel select
	ADCSRA                 // ADC control and status A
	ADCSRB                 // ADC control and status B (MUX5, trigger source)
	ADC                    // ADC result, 16-bit view of ADCL/ADCH

	numRegisters
)

func (r Register) String() string {
	switch r {
	case PORTA:
		return "PORTA"
	case DDRA:
		return "DDRA"
	case ADMUX:
		return "ADMUX"
	case ADCSRA:
		return "ADCSRA"
	case ADCSRB:
		return "ADCSRB"
	case ADC:
		return "ADC"
	}
	return fmt.Sprintf("REG(%d)", uint8(r))
}

// ADCSRA bits.
const (
	ADEN  = 1 << 7 // enable
	ADSC  = 1 << 6 // start conversion, reads 1 while busy
	ADATE = 1 << 5 // auto trigger
	ADIF  = 1 << 4 // conversion complete flag
	ADIE  = 1 << 3 // conversion complete interrupt
	ADPS  = 0x07   // prescaler select, 111 = clock/128
)

// ADCSRB bits.
const (
	MUX5 = 1 << 3 // bank select for channels 8-15
	ADTS = 0x07   // auto trigger source
)

// ADMUX bits.
const (
	REFS1 = 1 << 7
	REFS0 = 1 << 6 // REFS1:0 = 01 selects AVCC
	ADLAR = 1 << 5 // left-adjust result
	MUX   = 0x1F   // MUX4:0 channel select
)

// ResultMask keeps the 10-bit conversion result.
const ResultMask = 0x03FF

// Port reads and writes peripheral registers.
// Implementations must be owned by a single caller at a time.
type Port interface {
	Read(r Register) uint16
	Write(r Register, v uint16)
}

// SetBits sets mask in r with a read-modify-write.
func SetBits(p Port, r Register, mask uint16) {
	p.Write(r, p.Read(r)|mask)
}

// ClearBits clears mask in r with a read-modify-write.
func ClearBits(p Port, r Register, mask uint16) {
	p.Write(r, p.Read(r)&^mask)
}

// Update clears then sets bits in r with a single write.
func Update(p Port, r Register, clear, set uint16) {
	p.Write(r, (p.Read(r)&^clear)|set)
}

// Bit reports whether any bit of mask is set in r.
func Bit(p Port, r Register, mask uint16) bool {
	return p.Read(r)&mask != 0
}
