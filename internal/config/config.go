// Package config loads the board wiring and reservoir thresholds from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/humidifier/internal/adc"
	"github.com/sweeney/humidifier/internal/indicator"
)

// Config is the board configuration file.
type Config struct {
	GPIO           GPIOConfig      `yaml:"gpio"`
	ADC            ADCConfig       `yaml:"adc"`
	Reservoir      ReservoirConfig `yaml:"reservoir"`
	SelfTestHoldMs int             `yaml:"self_test_hold_ms"`
}

// GPIOConfig maps the indicator and fan to PORTA bits and chip line offsets.
type GPIOConfig struct {
	Chip   string     `yaml:"chip"`
	Red    LineConfig `yaml:"red"`
	Green  LineConfig `yaml:"green"`
	Blue   LineConfig `yaml:"blue"`
	Yellow LineConfig `yaml:"yellow"`
	Fan    LineConfig `yaml:"fan"`
}

// LineConfig is one output line.
type LineConfig struct {
	Bit       uint8 `yaml:"bit"`
	Offset    int   `yaml:"offset"`
	ActiveLow bool  `yaml:"active_low"`
}

// ADCConfig selects the reservoir channel and conversion timeout.
type ADCConfig struct {
	Channel   uint8 `yaml:"channel"`
	TimeoutMs int   `yaml:"timeout_ms"`
}

// ReservoirConfig sets the LowReservoir comparator.
type ReservoirConfig struct {
	LowThreshold uint16 `yaml:"low_threshold"`
	Hysteresis   uint16 `yaml:"hysteresis"`
}

// Default returns the built-in board: LED on PA1/PA3/PA5/PA7, fan on PA2,
// wired to gpiochip0 lines 23/25/27/29/24, reservoir on ADC0.
func Default() Config {
	return Config{
		GPIO: GPIOConfig{
			Chip:   "gpiochip0",
			Red:    LineConfig{Bit: 1, Offset: 23, ActiveLow: true},
			Green:  LineConfig{Bit: 3, Offset: 25, ActiveLow: true},
			Blue:   LineConfig{Bit: 5, Offset: 27, ActiveLow: true},
			Yellow: LineConfig{Bit: 7, Offset: 29},
			Fan:    LineConfig{Bit: 2, Offset: 24},
		},
		ADC: ADCConfig{
			Channel:   0,
			TimeoutMs: int(adc.DefaultTimeout / time.Millisecond),
		},
		Reservoir: ReservoirConfig{
			LowThreshold: 200,
			Hysteresis:   20,
		},
		SelfTestHoldMs: int(indicator.DefaultSelfTestHold / time.Millisecond),
	}
}

// Load reads the configuration from the given path. Keys absent from the
// file keep their Default values.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := Default()
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) lines() []struct {
	name string
	line LineConfig
} {
	return []struct {
		name string
		line LineConfig
	}{
		{"red", c.GPIO.Red},
		{"green", c.GPIO.Green},
		{"blue", c.GPIO.Blue},
		{"yellow", c.GPIO.Yellow},
		{"fan", c.GPIO.Fan},
	}
}

// Validate checks bit ranges, uniqueness and ADC limits.
func (c *Config) Validate() error {
	if c.GPIO.Chip == "" {
		return fmt.Errorf("gpio.chip must be set")
	}

	bits := make(map[uint8]string)
	offsets := make(map[int]string)
	for _, l := range c.lines() {
		if l.line.Bit > 7 {
			return fmt.Errorf("gpio.%s.bit %d out of range 0-7", l.name, l.line.Bit)
		}
		if l.line.Offset < 0 {
			return fmt.Errorf("gpio.%s.offset %d is negative", l.name, l.line.Offset)
		}
		if other, dup := bits[l.line.Bit]; dup {
			return fmt.Errorf("gpio.%s.bit %d already used by %s", l.name, l.line.Bit, other)
		}
		if other, dup := offsets[l.line.Offset]; dup {
			return fmt.Errorf("gpio.%s.offset %d already used by %s", l.name, l.line.Offset, other)
		}
		bits[l.line.Bit] = l.name
		offsets[l.line.Offset] = l.name
	}

	if c.ADC.Channel > adc.MaxChannel {
		return fmt.Errorf("adc.channel %d out of range 0-%d", c.ADC.Channel, adc.MaxChannel)
	}
	if c.ADC.TimeoutMs <= 0 {
		return fmt.Errorf("adc.timeout_ms must be positive")
	}
	if c.Reservoir.LowThreshold > 1023 {
		return fmt.Errorf("reservoir.low_threshold %d out of range 0-1023", c.Reservoir.LowThreshold)
	}
	if c.SelfTestHoldMs < 0 {
		return fmt.Errorf("self_test_hold_ms must not be negative")
	}
	return nil
}

// Pins returns the indicator wiring.
func (c *Config) Pins() indicator.Pins {
	line := func(l LineConfig) indicator.Line {
		return indicator.Line{Bit: l.Bit, ActiveLow: l.ActiveLow}
	}
	return indicator.Pins{
		Red:    line(c.GPIO.Red),
		Green:  line(c.GPIO.Green),
		Blue:   line(c.GPIO.Blue),
		Yellow: line(c.GPIO.Yellow),
		Fan:    line(c.GPIO.Fan),
	}
}

// Offsets returns the PORTA bit to chip line offset map.
func (c *Config) Offsets() map[uint8]int {
	out := make(map[uint8]int)
	for _, l := range c.lines() {
		out[l.line.Bit] = l.line.Offset
	}
	return out
}

// SelfTestHold returns the per-colour self-test duration.
func (c *Config) SelfTestHold() time.Duration {
	return time.Duration(c.SelfTestHoldMs) * time.Millisecond
}

// ADCTimeout returns the conversion timeout.
func (c *Config) ADCTimeout() time.Duration {
	return time.Duration(c.ADC.TimeoutMs) * time.Millisecond
}
