// Command freezerd runs the freezer compressor control loop: it samples
// the temperature probes, drives the compressor relay, appends telemetry
// to the SD datalog, and serves status over HTTP and MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/freezerx/freezerd/internal/configstore"
	"github.com/freezerx/freezerd/internal/datalog"
	"github.com/freezerx/freezerd/internal/engine"
	"github.com/freezerx/freezerd/internal/mqtt"
	"github.com/freezerx/freezerd/internal/relay"
	"github.com/freezerx/freezerd/internal/sdcard"
	"github.com/freezerx/freezerd/internal/sensor"
	"github.com/freezerx/freezerd/internal/spi"
	"github.com/freezerx/freezerd/internal/status"
	"github.com/freezerx/freezerd/internal/watchdog"
	"github.com/freezerx/freezerd/internal/web"
)

type options struct {
	tick       time.Duration
	broker     string
	httpAddr   string
	configPath string
	chip       string

	pinSCK        int
	pinMOSI       int
	pinMISO       int
	pinSDCS       int
	pinADCCS      int
	pinCompressor int
	pinRunLED     int
	pinFaultLED   int

	watchdogDev string
	printState  bool
}

func main() {
	var opts options
	flag.DurationVar(&opts.tick, "tick", time.Second, "Control loop interval")
	flag.StringVar(&opts.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	flag.StringVar(&opts.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.StringVar(&opts.configPath, "config", "/etc/freezerd/config.yaml", "Control parameter file")
	flag.StringVar(&opts.chip, "chip", "gpiochip0", "GPIO chip name")
	flag.IntVar(&opts.pinSCK, "pin-sck", spi.DefaultPinSCK, "BCM pin number for SPI clock")
	flag.IntVar(&opts.pinMOSI, "pin-mosi", spi.DefaultPinMOSI, "BCM pin number for SPI MOSI")
	flag.IntVar(&opts.pinMISO, "pin-miso", spi.DefaultPinMISO, "BCM pin number for SPI MISO")
	flag.IntVar(&opts.pinSDCS, "pin-sd-cs", spi.DefaultPinCS, "BCM pin number for SD card chip select")
	flag.IntVar(&opts.pinADCCS, "pin-adc-cs", spi.DefaultPinADCCS, "BCM pin number for ADC chip select")
	flag.IntVar(&opts.pinCompressor, "pin-compressor", relay.DefaultPinCompressor, "BCM pin number for compressor relay")
	flag.IntVar(&opts.pinRunLED, "pin-run-led", relay.DefaultPinRunLED, "BCM pin number for run LED")
	flag.IntVar(&opts.pinFaultLED, "pin-fault-led", relay.DefaultPinFaultLED, "BCM pin number for fault LED")
	flag.StringVar(&opts.watchdogDev, "watchdog", "", "Hardware watchdog device (empty to disable)")
	flag.BoolVar(&opts.printState, "print-state", false, "Read the probes once, print temperatures, and exit")
	flag.Parse()

	setLogLevel()

	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// setLogLevel reads LOGLEVEL from the environment.
func setLogLevel() {
	switch os.Getenv("LOGLEVEL") {
	case "panic":
		log.SetLevel(log.PanicLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "trace":
		log.SetLevel(log.TraceLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

func run(opts options) error {
	// Shared SPI bus: SD card owns the data lines, the ADC borrows them
	// with its own chip select.
	sdBus, err := spi.NewBitBang(opts.chip, opts.pinSCK, opts.pinMOSI, opts.pinMISO, opts.pinSDCS)
	if err != nil {
		return fmt.Errorf("init spi: %w", err)
	}
	defer sdBus.Close()

	adcBus, err := spi.NewSharedBitBang(sdBus, opts.pinADCCS)
	if err != nil {
		return fmt.Errorf("init adc bus: %w", err)
	}

	sensors := sensor.NewMCP3008(adcBus)
	defer sensors.Close()

	// Print state mode
	if opts.printState {
		r, err := sensors.Read()
		if err != nil {
			return fmt.Errorf("read sensors: %w", err)
		}
		fmt.Printf("cabinet: %.2f °C, compressor head: %.2f °C\n", r.Primary, r.Secondary)
		return nil
	}

	driver, err := relay.NewRealDriver(opts.chip, opts.pinCompressor, opts.pinRunLED, opts.pinFaultLED)
	if err != nil {
		return fmt.Errorf("init relay: %w", err)
	}
	defer driver.Close()

	// Load control parameters
	store := configstore.New(opts.configPath, log.WithField("component", "configstore"))
	cfg, err := store.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Initialize the datalog card. A missing or broken card disables
	// logging but never stops the control loop.
	var dlog *datalog.Log
	card := sdcard.New(sdBus)
	if err := card.Init(); err != nil {
		log.WithError(err).Warn("sd card init failed, datalog disabled")
	} else {
		dlog = datalog.New(card)
		log.Info("sd card initialized, datalog enabled")
	}

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(opts.broker, log.WithField("component", "mqtt"))
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		TickMs:     opts.tick.Milliseconds(),
		Broker:     opts.broker,
		HTTPPort:   opts.httpAddr,
		ConfigPath: opts.configPath,
	})
	tracker.SetControl(cfg)
	tracker.SetLoggingEnabled(dlog != nil)

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.WithError(err).Warn("failed to publish startup event")
	} else {
		log.Info("published startup event")
	}

	// Config updates arrive from the HTTP handler, are persisted at once,
	// and take effect on the next control tick.
	var pending atomic.Pointer[engine.Config]
	applyCfg := func(next engine.Config) error {
		if err := store.Save(next); err != nil {
			return err
		}
		pending.Store(&next)
		log.WithField("target", next.TargetTemperature).Info("config update accepted")
		return nil
	}

	// Remote config commands feed the same queue as the HTTP endpoint,
	// with the same validation.
	err = publisher.SubscribeConfigSet(func(next engine.Config) {
		if err := configstore.Validate(next); err != nil {
			log.WithError(err).Warn("rejected remote config command")
			return
		}
		if err := applyCfg(next); err != nil {
			log.WithError(err).Warn("failed to apply remote config command")
		}
	})
	if err != nil {
		log.WithError(err).Warn("config command subscription failed")
	}

	// Start HTTP status server
	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker, applyCfg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.WithField("addr", opts.httpAddr).Info("http status server listening")
	}

	// Arm the hardware watchdog last so a failed init never reboots the
	// machine.
	var feeder watchdog.Feeder
	if opts.watchdogDev != "" {
		wd, err := watchdog.NewRealFeeder(opts.watchdogDev)
		if err != nil {
			return fmt.Errorf("init watchdog: %w", err)
		}
		defer wd.Close()
		feeder = wd
	}

	log.WithFields(log.Fields{
		"tick":   opts.tick,
		"broker": opts.broker,
		"target": cfg.TargetTemperature,
	}).Info("started")

	ticker := time.NewTicker(opts.tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	deps := loopDeps{
		sensors:    sensors,
		driver:     driver,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		dlog:       dlog,
		feeder:     feeder,
		pending:    &pending,
	}
	return runLoop(deps, cfg, time.Now, ticker.C, sigCh)
}

// loopDeps collects the collaborators of the control loop so tests can
// substitute fakes.
type loopDeps struct {
	sensors    sensor.Reader
	driver     relay.Driver
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	dlog       *datalog.Log
	feeder     watchdog.Feeder
	pending    *atomic.Pointer[engine.Config]
}

func runLoop(deps loopDeps, cfg engine.Config, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	var hist engine.History

	for {
		select {
		case s := <-sig:
			log.WithField("signal", s).Info("shutting down")
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if deps.tracker != nil {
				if deps.mqttStatus != nil {
					deps.tracker.SetMQTTConnected(deps.mqttStatus.IsConnected())
				}
				snap := deps.tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := deps.publisher.PublishSystem(event); err != nil {
				log.WithError(err).Warn("failed to publish shutdown event")
			} else {
				log.Info("published shutdown event")
			}
			// The relay driver drops the compressor on Close; do it here
			// too so the contactor opens before MQTT teardown.
			if err := deps.driver.SetCompressor(false); err != nil {
				log.WithError(err).Error("failed to drop compressor on shutdown")
			}
			return nil

		case <-tick:
			t := now()

			// Apply a queued config update at a tick boundary so one
			// decision never mixes parameter sets.
			if next := deps.pending.Swap(nil); next != nil {
				cfg = *next
				if deps.tracker != nil {
					deps.tracker.SetControl(cfg)
				}
				log.WithField("target", cfg.TargetTemperature).Info("config update applied")
			}

			reading, err := deps.sensors.Read()
			if err != nil {
				// No decision without data. The watchdog is not fed
				// either: a persistently dead sensor bus ends in a
				// reboot rather than a compressor stuck in its last
				// state.
				log.WithError(err).Error("sensor read error")
				continue
			}

			millis := uint32(t.Sub(startTime).Milliseconds())
			prev := hist.PrevStatus
			out := engine.Evaluate(cfg, engine.Reading{
				Primary:   reading.Primary,
				Secondary: reading.Secondary,
			}, millis, &hist)

			if err := deps.driver.SetCompressor(out.ActualOn); err != nil {
				log.WithError(err).Error("relay actuation error")
			}
			if err := deps.driver.SetFault(hist.Faulted); err != nil {
				log.WithError(err).Error("fault LED error")
			}

			if deps.tracker != nil {
				deps.tracker.Update(out)
				if deps.mqttStatus != nil {
					deps.tracker.SetMQTTConnected(deps.mqttStatus.IsConnected())
				}
			}

			if deps.dlog != nil {
				rec := engine.Record{Millis: millis, Config: cfg, Output: out}
				data, err := rec.MarshalBinary()
				if err == nil {
					err = deps.dlog.Append(data)
				}
				if err != nil {
					log.WithError(err).Warn("datalog append failed")
				}
				if deps.tracker != nil {
					deps.tracker.CountAppend(err == nil)
				}
			}

			if out.Changed {
				log.WithFields(log.Fields{
					"state":      out.Status,
					"previous":   prev,
					"cabinet":    fmt.Sprintf("%.1f", out.Primary),
					"compressor": out.ActualOn,
				}).Info("state change")
				event := mqtt.Event{
					Timestamp:    t,
					Status:       out.Status,
					Previous:     prev,
					Primary:      out.Primary,
					Secondary:    out.Secondary,
					CompressorOn: out.ActualOn,
				}
				if err := deps.publisher.Publish(event); err != nil {
					log.WithError(err).Warn("publish error")
					// Don't crash on publish failure
				}
			}

			// A latched fault stops the feeding: if the operator does not
			// intervene, the hardware watchdog reboots into a clean
			// startup delay cycle.
			if deps.feeder != nil && !hist.Faulted {
				if err := deps.feeder.Feed(); err != nil {
					log.WithError(err).Error("watchdog feed error")
				}
			}
		}
	}
}
