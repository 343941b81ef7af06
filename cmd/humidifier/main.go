// Command humidifier drives the humidifier indicator, fan and reservoir ADC and
// reports state changes over MQTT and HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/humidifier/internal/adc"
	"github.com/sweeney/humidifier/internal/command"
	"github.com/sweeney/humidifier/internal/config"
	"github.com/sweeney/humidifier/internal/controller"
	"github.com/sweeney/humidifier/internal/indicator"
	"github.com/sweeney/humidifier/internal/logic"
	"github.com/sweeney/humidifier/internal/mqtt"
	"github.com/sweeney/humidifier/internal/periph"
	"github.com/sweeney/humidifier/internal/status"
	"github.com/sweeney/humidifier/internal/web"
)

type options struct {
	configPath  string
	poll        time.Duration
	broker      string
	heartbeat   time.Duration
	toggle      time.Duration
	httpAddr    string
	sim         bool
	simLevel    uint
	printState  bool
	commandRate float64
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "Board configuration YAML (empty for built-in defaults)")
	flag.DurationVar(&o.poll, "poll", 100*time.Millisecond, "Reservoir ADC polling interval")
	flag.StringVar(&o.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.DurationVar(&o.toggle, "toggle", 0, "Periodic run/idle toggle interval (0 to disable)")
	flag.StringVar(&o.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.BoolVar(&o.sim, "sim", false, "Use the simulated port instead of GPIO lines")
	flag.UintVar(&o.simLevel, "sim-level", 512, "Reservoir ADC reading (0-1023). The GPIO chardev has no ADC, so this fixed value is the reservoir level in every mode")
	flag.BoolVar(&o.printState, "print-state", false, "Initialise, sample the reservoir once, print state and exit")
	flag.Float64Var(&o.commandRate, "command-rate", 5, "Maximum external commands per second (0 for unlimited)")

	flag.Parse()

	if err := run(o); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// validate rejects flag values that would fail later at runtime.
func (o options) validate() error {
	if o.poll <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", o.poll)
	}
	if o.simLevel > periph.ResultMask {
		return fmt.Errorf("sim-level %d out of range 0-%d", o.simLevel, periph.ResultMask)
	}
	return nil
}

func run(o options) error {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = *loaded
	}
	if err := o.validate(); err != nil {
		return err
	}

	// The GPIO chardev has no converter, so the reservoir channel always
	// comes from the simulated ADC.
	sim := periph.NewSimPort()
	sim.SetSample(int(cfg.ADC.Channel), uint16(o.simLevel))

	var port periph.Port = sim
	if !o.sim {
		log.Printf("adc: no converter on %s, reservoir channel %d reads fixed -sim-level %d",
			cfg.GPIO.Chip, cfg.ADC.Channel, o.simLevel)
		lines, err := periph.NewLinePort(cfg.GPIO.Chip, cfg.Offsets(), sim)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer lines.Close()
		port = lines
	}

	driver := indicator.New(port, cfg.Pins())
	driver.Hold = cfg.SelfTestHold()
	reader := adc.New(port)
	reader.Timeout = cfg.ADCTimeout()

	machine := controller.New(driver, reader)
	if err := machine.Init(); err != nil {
		return fmt.Errorf("init controller: %w", err)
	}
	log.Printf("controller: initialised, status=%s", machine.Status())

	ch := adc.Channel(cfg.ADC.Channel)

	// Print state mode
	if o.printState {
		sample, err := reader.Read(context.Background(), ch)
		if err != nil {
			return fmt.Errorf("read adc: %w", err)
		}
		out := machine.Output()
		fmt.Printf("status: %s, indicator: %s, fan: %s, reservoir[%d]: %d (simulated)\n",
			machine.Status(), out.Color, mqtt.FanState(out.FanOn), ch, sample)
		return nil
	}

	bootID := uuid.New().String()
	intake := command.NewIntake(o.commandRate, 2, command.DefaultQueueSize)

	publisher, err := mqtt.NewRealPublisher(o.broker, "humidifier-"+bootID[:8], func(e logic.Event) {
		intake.Submit(e, "mqtt")
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(bootID, time.Now(), status.Config{
		PollMs:       o.poll.Milliseconds(),
		HeartbeatMs:  o.heartbeat.Milliseconds(),
		ToggleMs:     o.toggle.Milliseconds(),
		Broker:       o.broker,
		HTTPAddr:     o.httpAddr,
		ADCChannel:   cfg.ADC.Channel,
		LowThreshold: cfg.Reservoir.LowThreshold,
		Hysteresis:   cfg.Reservoir.Hysteresis,
		Simulated:    o.sim,
	})
	tracker.Update(machine.Status(), machine.Output(), machine.Initialized(), machine.Counts())
	tracker.SetMQTTConnected(publisher.IsConnected())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker, intake)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", o.httpAddr)
	}

	log.Printf("started: boot=%s poll=%v broker=%s heartbeat=%v toggle=%v sim=%v reservoir=simulated(%d)",
		bootID, o.poll, o.broker, o.heartbeat, o.toggle, o.sim, o.simLevel)

	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	monitor := logic.NewReservoirMonitor(cfg.Reservoir.LowThreshold, cfg.Reservoir.Hysteresis)
	loopCfg := loopConfig{Channel: ch, Heartbeat: o.heartbeat, Toggle: o.toggle}

	return runLoop(machine, reader, monitor, publisher, publisher, tracker, loopCfg, time.Now, ticker.C, intake.C(), sigCh)
}

// sampler is the reservoir ADC as seen by the loop.
type sampler interface {
	Read(ctx context.Context, ch adc.Channel) (adc.Sample, error)
}

type loopConfig struct {
	Channel   adc.Channel
	Heartbeat time.Duration
	Toggle    time.Duration
}

// runLoop is the single owner of the machine. Every event source (reservoir
// ticks, periodic toggle, external commands) is serialised through it.
func runLoop(machine *controller.Machine, reader sampler, monitor *logic.ReservoirMonitor, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, cfg loopConfig, now func() time.Time, tick <-chan time.Time, commands <-chan command.Command, sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startTime := now()
	heartbeat := logic.NewSchedule(startTime)
	toggle := logic.NewSchedule(startTime)
	adcFaulted := false

	refresh := func() {
		if tracker == nil {
			return
		}
		tracker.Update(machine.Status(), machine.Output(), machine.Initialized(), machine.Counts())
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
	}

	systemEvent := func(t time.Time, name, reason string, retained bool) mqtt.SystemEvent {
		event := mqtt.SystemEvent{
			Timestamp: t,
			Event:     name,
			Reason:    reason,
			Retained:  retained,
		}
		if tracker != nil {
			refresh()
			event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), name, reason)
		}
		return event
	}

	handle := func(e logic.Event, t time.Time, source string) {
		tr, fired := machine.Apply(e, t)
		if !fired {
			log.Printf("event: %s from %s ignored in %s", e, source, tr.From)
			refresh()
			return
		}
		log.Printf("event: %s from %s: %s -> %s (indicator=%s fan=%s)",
			e, source, tr.From, tr.To, tr.Output.Color, mqtt.FanState(tr.Output.FanOn))
		if tracker != nil {
			tracker.SetLastEvent(tr)
		}
		refresh()
		if err := publisher.Publish(tr); err != nil {
			log.Printf("publish error: %v", err)
			// Don't crash on publish failure
		}
	}

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			if err := publisher.PublishSystem(systemEvent(now(), "SHUTDOWN", signalName, true)); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case cmd := <-commands:
			handle(cmd.Event, now(), cmd.Source)

		case <-tick:
			t := now()
			sample, err := reader.Read(ctx, cfg.Channel)
			if err != nil {
				log.Printf("adc: %v", err)
				if tracker != nil {
					tracker.RecordADCFault(err)
				}
				// One ADC_FAULT per fault episode.
				if !adcFaulted {
					adcFaulted = true
					if err := publisher.PublishSystem(systemEvent(t, "ADC_FAULT", err.Error(), false)); err != nil {
						log.Printf("adc fault publish error: %v", err)
					}
				}
			} else {
				if adcFaulted {
					log.Printf("adc: recovered, sample=%d", sample)
					adcFaulted = false
				}
				fire := monitor.Observe(uint16(sample))
				if tracker != nil {
					tracker.SetSample(uint16(sample), monitor.Low())
				}
				if fire {
					log.Printf("reservoir: sample %d below %d", sample, monitor.LowThreshold)
					handle(logic.EventLowReservoir, t, "reservoir")
				}
			}

			if toggle.Due(t, cfg.Toggle) {
				handle(logic.EventToggleRunIdle, t, "toggle")
			}

			if heartbeat.Due(t, cfg.Heartbeat) {
				counts := machine.Counts()
				log.Printf("heartbeat: uptime=%v status=%s reset=%d start_stop=%d low=%d run_idle=%d ignored=%d",
					t.Sub(startTime), machine.Status(), counts.Reset, counts.ToggleStartStop,
					counts.LowReservoir, counts.ToggleRunIdle, counts.Ignored)
				if err := publisher.PublishSystem(systemEvent(t, "HEARTBEAT", "", false)); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			refresh()
		}
	}
}
