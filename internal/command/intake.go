// Package command collects externally submitted event codes (MQTT, HTTP) and
// hands them to the control loop through a single bounded channel.
package command

import (
	"errors"
	"log"

	"golang.org/x/time/rate"

	"github.com/sweeney/humidifier/internal/logic"
)

// DefaultQueueSize is the number of commands buffered for the control loop.
const DefaultQueueSize = 16

var (
	// ErrRateLimited is returned when commands arrive faster than the limit.
	ErrRateLimited = errors.New("command: rate limited")
	// ErrQueueFull is returned when the control loop is not keeping up.
	ErrQueueFull = errors.New("command: queue full")
)

// Command is one submitted event and where it came from.
type Command struct {
	Event  logic.Event
	Source string // e.g. "mqtt", "http"
}

// Submitter accepts commands.
type Submitter interface {
	Submit(e logic.Event, source string) error
}

// Intake is a rate-limited, non-blocking command queue. Submit is safe to call
// from any goroutine; C is drained by the control loop only.
type Intake struct {
	ch  chan Command
	lim *rate.Limiter
}

// NewIntake creates an Intake allowing perSecond commands with the given
// burst. perSecond <= 0 disables rate limiting.
func NewIntake(perSecond float64, burst, queueSize int) *Intake {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &Intake{
		ch:  make(chan Command, queueSize),
		lim: rate.NewLimiter(limit, burst),
	}
}

// Submit queues e without blocking.
func (in *Intake) Submit(e logic.Event, source string) error {
	if !in.lim.Allow() {
		log.Printf("command: dropping %s from %s: rate limited", e, source)
		return ErrRateLimited
	}
	select {
	case in.ch <- Command{Event: e, Source: source}:
		return nil
	default:
		log.Printf("command: dropping %s from %s: queue full", e, source)
		return ErrQueueFull
	}
}

// C returns the receive side of the queue.
func (in *Intake) C() <-chan Command {
	return in.ch
}
