// Command horn-controller drives a battery-powered horn from a Linux
// single-board computer: it debounces the horn button, plays tone patterns,
// guards the battery against deep discharge and publishes state changes to MQTT.
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

	"github.com/sweeney/horn-controller/internal/config"
	"github.com/sweeney/horn-controller/internal/gpio"
	"github.com/sweeney/horn-controller/internal/logic"
	"github.com/sweeney/horn-controller/internal/mqtt"
	"github.com/sweeney/horn-controller/internal/pwm"
	"github.com/sweeney/horn-controller/internal/status"
	"github.com/sweeney/horn-controller/internal/store"
	"github.com/sweeney/horn-controller/internal/tick"
	"github.com/sweeney/horn-controller/internal/web"
)

func main() {
	def := config.Default()
	configPath := flag.String("config", "", "YAML config file (pin map, PWM channel, timing)")
	poll := flag.Duration("poll", def.PollInterval, "Polling interval; each poll is one controller tick")
	broker := flag.String("broker", def.Broker, "MQTT broker address")
	heartbeat := flag.Duration("heartbeat", def.Heartbeat, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", def.HTTPAddr, "HTTP status address (empty to disable)")
	stateFile := flag.String("state-file", def.StateFile, "File holding the persisted mode")
	pwmChip := flag.Int("pwm-chip", def.PWM.Chip, "sysfs PWM chip number for the tone")
	pwmChannel := flag.Int("pwm-channel", def.PWM.Channel, "PWM channel on the chip")
	printState := flag.Bool("print-state", false, "Print current inputs and stored mode and exit")

	flag.Parse()

	cfg := def
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("fatal: %v", err)
		}
	}

	// Flags given on the command line override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "poll":
			cfg.PollInterval = *poll
		case "broker":
			cfg.Broker = *broker
		case "heartbeat":
			cfg.Heartbeat = *heartbeat
		case "http":
			cfg.HTTPAddr = *httpAddr
		case "state-file":
			cfg.StateFile = *stateFile
		case "pwm-chip":
			cfg.PWM.Chip = *pwmChip
		case "pwm-channel":
			cfg.PWM.Channel = *pwmChannel
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: invalid configuration: %v", err)
	}

	if err := run(cfg, *configPath, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config, configPath string, printState bool) error {
	// Initialize GPIO
	board, err := gpio.NewRealBoard(cfg.Pins)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer board.Close()

	modes := store.New(cfg.StateFile)
	mode := loadMode(modes)

	// Print state mode
	if printState {
		s, err := board.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Println(formatSample(s, mode))
		return nil
	}

	// Initialize tone output
	tone, err := pwm.NewSysfsTone(cfg.PWM.SysfsRoot, cfg.PWM.Chip, cfg.PWM.Channel, cfg.PWM.Timebase)
	if err != nil {
		return fmt.Errorf("init pwm: %w", err)
	}
	defer tone.Close()

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(cfg.Broker)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      cfg.PollInterval.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		HTTPPort:    cfg.HTTPAddr,
		StateFile:   cfg.StateFile,
		ConfigFile:  configPath,
		PWM:         fmt.Sprintf("pwmchip%d/pwm%d", cfg.PWM.Chip, cfg.PWM.Channel),
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.Update(logic.DeviceState{Guard: logic.StateInit, Mode: mode}, logic.EventCounts{})

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
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, cfg.PWM.Timebase, cfg.Timing)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)
	}

	log.Printf("started: poll=%v broker=%s heartbeat=%v mode=%s", cfg.PollInterval, cfg.Broker, cfg.Heartbeat, mode)

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loopDeps{
		board:      board,
		outputs:    hardware{Board: board, Tone: tone},
		controller: logic.Config{Timing: cfg.Timing, Timebase: cfg.PWM.Timebase, Mode: mode},
		modes:      modes,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		heartbeat:  cfg.Heartbeat,
	}, time.Now, ticker.C, sigCh)
}

// hardware joins the GPIO lines and the tone channel into the controller's outputs.
type hardware struct {
	gpio.Board
	pwm.Tone
}

// modeSaver persists the mode after a change.
type modeSaver interface {
	Save(m logic.Mode) error
}

// loopDeps are the collaborators of runLoop. tracker, modes and mqttStatus may be nil.
type loopDeps struct {
	board      gpio.Board
	outputs    logic.Outputs
	controller logic.Config
	modes      modeSaver
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	heartbeat  time.Duration
}

func runLoop(d loopDeps, now func() time.Time, ticks <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	clock := tick.NewClock(startTime)
	ctrl := logic.NewController(d.controller, d.outputs, startTime)
	readFailing := false

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			d.outputs.SetHorn(false)
			d.outputs.StopTone()

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
			if d.tracker != nil {
				if d.mqttStatus != nil {
					d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
				}
				d.tracker.Update(ctrl.State(), ctrl.EventCountsSnapshot())
				event.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := d.publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-ticks:
			t := now()
			sample, err := d.board.Read()
			if err != nil {
				// Log the first failure of a run only; at 1 kHz anything else floods the log.
				if !readFailing {
					log.Printf("gpio read error: %v", err)
					readFailing = true
				}
				continue
			}
			if readFailing {
				log.Printf("gpio read recovered")
				readFailing = false
			}

			events := ctrl.Step(logic.Input{
				Tick:              clock.Now(t),
				Switch:            sample.Switch,
				ComparatorTripped: sample.Tripped,
				PowerGood:         sample.PowerGood,
				ChargerFault:      sample.ChargerFault,
				Time:              t,
			})

			for _, event := range events {
				logEvent(event)
				if event.Type == logic.EventModeChanged && d.modes != nil {
					if err := d.modes.Save(event.Mode); err != nil {
						log.Printf("mode save error: %v", err)
					}
				}
				if err := d.publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			if d.tracker != nil {
				d.tracker.Record(events...)
			}

			// Check for heartbeat
			if hbData := ctrl.CheckHeartbeat(t, d.heartbeat); hbData != nil {
				log.Printf("heartbeat: uptime=%v honks=%d transitions=%d mode_changes=%d charge_cycles=%d",
					hbData.Uptime, hbData.Counts.Honks, hbData.Counts.Transitions,
					hbData.Counts.ModeChanges, hbData.Counts.ChargeCycles)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if d.tracker != nil {
					if d.mqttStatus != nil {
						d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
					}
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						d.tracker.SetNetwork(net)
					}
					d.tracker.Update(ctrl.State(), ctrl.EventCountsSnapshot())
					hbEvent.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := d.publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			// Update status tracker for HTTP consumers
			if d.tracker != nil {
				d.tracker.Update(ctrl.State(), ctrl.EventCountsSnapshot())
				if d.mqttStatus != nil {
					d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
				}
			}
		}
	}
}

func logEvent(e logic.Event) {
	switch e.Type {
	case logic.EventState:
		log.Printf("event: %s %s -> %s (tick=%d)", e.Type, e.From, e.To, e.Tick)
	case logic.EventModeChanged:
		log.Printf("event: %s mode=%s", e.Type, e.Mode)
	default:
		log.Printf("event: %s (tick=%d low_voltage=%v)", e.Type, e.Tick, e.LowVoltage)
	}
}

// loadMode reads the persisted mode. Storage problems are logged and the
// default mode is used: a horn that cannot remember its mode still has to honk.
func loadMode(s *store.Store) logic.Mode {
	mode, rewritten, err := s.Load()
	if err != nil {
		log.Printf("mode load error: %v (using %s)", err, mode)
		return mode
	}
	if rewritten {
		log.Printf("mode: no valid record in %s, wrote default %s", s.Path(), mode)
	}
	return mode
}

func formatSample(s gpio.Sample, mode logic.Mode) string {
	return fmt.Sprintf("switch: %s, comparator: %s, power: %s, charger: %s, mode: %s",
		status.SwitchString(s.Switch), levelString(s.Tripped, "TRIPPED", "OK"),
		levelString(s.PowerGood, "PRESENT", "ABSENT"), levelString(s.ChargerFault, "ASSERTED", "CLEAR"), mode)
}

func levelString(active bool, on, off string) string {
	if active {
		return on
	}
	return off
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
