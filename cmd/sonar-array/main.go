// Command sonar-array drives a multiplexed array of ultrasonic range sensors
// and publishes each distance reading to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sweeney/sonar-array/internal/gpio"
	"github.com/sweeney/sonar-array/internal/logging"
	"github.com/sweeney/sonar-array/internal/mqtt"
	"github.com/sweeney/sonar-array/internal/sonar"
	"github.com/sweeney/sonar-array/internal/status"
	"github.com/sweeney/sonar-array/internal/web"
)

type options struct {
	id          int
	name        string
	chip        string
	trigger     []int
	echo        []int
	poll        time.Duration
	maxLoops    int
	maxRange    int
	garbage     int
	triggerHold int
	speed       uint
	broker      string
	httpAddr    string
	heartbeat   time.Duration
	printDOT    bool
	simulate    []sonar.Distance
}

func main() {
	var opts options
	flag.IntVar(&opts.id, "id", 0, "Machine identifier")
	flag.StringVar(&opts.name, "name", "array", "Machine name, used in MQTT topics")
	flag.StringVar(&opts.chip, "chip", gpio.DefaultChip, "GPIO character device")
	trigger := flag.String("trigger", joinPins(gpio.DefaultTriggerPins), "Comma-separated BCM trigger pins")
	echo := flag.String("echo", joinPins(gpio.DefaultEchoPins), "Comma-separated BCM echo pins")
	flag.DurationVar(&opts.poll, "poll", 100*time.Microsecond, "Step interval (one echo sample per step)")
	flag.IntVar(&opts.maxLoops, "maxloops", 0, "Watchdog bound in steps per sensor (0 derives it from -max-range)")
	flag.IntVar(&opts.maxRange, "max-range", 4000, "Maximum measurable range in mm")
	flag.IntVar(&opts.garbage, "garbage", 3, "Minimum credible echo width in steps (0 or 1 disables)")
	flag.IntVar(&opts.triggerHold, "trigger-hold", 1, "Steps to hold the trigger line high")
	flag.UintVar(&opts.speed, "speed", sonar.DefaultSpeedOfSound, "Speed of sound in m/s")
	flag.StringVar(&opts.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	flag.StringVar(&opts.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.DurationVar(&opts.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.BoolVar(&opts.printDOT, "dot", false, "Print the state graph in Graphviz DOT and exit")
	simulate := flag.String("simulate", "", "Comma-separated distances in mm; drives simulated sensors instead of GPIO")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	logConsole := flag.Bool("log-console", false, "Human-readable console logs")

	flag.Parse()

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(2)
	}
	logger, levelVar := logging.New(logging.Options{Level: level, Console: *logConsole, Output: os.Stderr})

	if err := opts.parse(*trigger, *echo, *simulate); err != nil {
		logger.Error("invalid flags", "err", err)
		os.Exit(2)
	}

	if err := run(opts, logger, levelVar); err != nil {
		logger.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func (o *options) parse(trigger, echo, simulate string) error {
	var err error
	if o.trigger, err = parsePins(trigger); err != nil {
		return fmt.Errorf("-trigger: %w", err)
	}
	if o.echo, err = parsePins(echo); err != nil {
		return fmt.Errorf("-echo: %w", err)
	}
	if simulate == "" {
		return nil
	}
	mm, err := parsePins(simulate)
	if err != nil {
		return fmt.Errorf("-simulate: %w", err)
	}
	if len(mm) != len(o.trigger) {
		return fmt.Errorf("-simulate: %d distances for %d sensors", len(mm), len(o.trigger))
	}
	for _, d := range mm {
		o.simulate = append(o.simulate, sonar.Distance(d))
	}
	return nil
}

// machineConfig builds the sonar configuration, deriving the watchdog bound
// from the maximum range when none is given.
func (o options) machineConfig() sonar.Config {
	maxLoops := o.maxLoops
	if maxLoops == 0 {
		maxLoops = sonar.MaxLoopsFor(sonar.Distance(o.maxRange), o.poll, uint32(o.speed), o.garbage)
	}
	return sonar.Config{
		ID:               o.id,
		Name:             o.name,
		NumPins:          len(o.trigger),
		TriggerPins:      o.trigger,
		EchoPins:         o.echo,
		MaxLoops:         maxLoops,
		TickDuration:     o.poll,
		GarbageTicks:     o.garbage,
		TriggerHoldTicks: o.triggerHold,
		SpeedOfSound:     uint32(o.speed),
	}
}

func openPins(o options, log *slog.Logger) (gpio.Bank, error) {
	if o.simulate == nil {
		return gpio.NewRealPins(o.chip, o.trigger, o.echo, log)
	}
	sim := gpio.NewSimPins(o.trigger, o.echo)
	delay := int((sonar.EchoStartLatency + o.poll - 1) / o.poll)
	for i, d := range o.simulate {
		width := int(sonar.WidthFor(d, o.poll, uint32(o.speed)))
		sim.SetEcho(o.echo[i], gpio.Echo{Delay: delay, Width: width})
	}
	log.Info("using simulated sensors", "distances", o.simulate)
	return sim, nil
}

func run(o options, log *slog.Logger, level *slog.LevelVar) error {
	cfg := o.machineConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// The graph is rendered without touching any pins.
	if o.printDOT {
		m, err := sonar.New(cfg, gpio.NewFakePins(nil))
		if err != nil {
			return err
		}
		fmt.Print(m.DOT())
		return nil
	}

	pins, err := openPins(o, log)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() {
		if err := pins.Close(); err != nil {
			log.Warn("gpio close", "err", err)
		}
	}()

	machine, err := sonar.New(cfg, pins, sonar.WithLogger(log))
	if err != nil {
		return fmt.Errorf("init machine: %w", err)
	}

	publisher, err := mqtt.NewRealPublisher(o.broker, cfg.Name, log)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Name:         cfg.Name,
		ID:           cfg.ID,
		TriggerPins:  cfg.TriggerPins,
		EchoPins:     cfg.EchoPins,
		TickUs:       cfg.TickDuration.Microseconds(),
		MaxLoops:     cfg.MaxLoops,
		GarbageTicks: cfg.GarbageTicks,
		HeartbeatMs:  o.heartbeat.Milliseconds(),
		Broker:       o.broker,
		HTTPAddr:     o.httpAddr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Warn("failed to publish startup event", "err", err)
	} else {
		log.Info("published startup event")
	}

	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker, machine.DOT())
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server error", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("http status server listening", "addr", o.httpAddr)
	}

	log.Info("started",
		"sensors", cfg.NumPins,
		"poll", cfg.TickDuration,
		"maxloops", cfg.MaxLoops,
		"garbage", cfg.GarbageTicks,
		"broker", o.broker,
		"heartbeat", o.heartbeat,
	)

	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// SIGHUP toggles debug logging without a restart.
	hupCh := make(chan os.Signal, 1)
	signal.Notify(hupCh, syscall.SIGHUP)
	defer func() {
		signal.Stop(hupCh)
		close(hupCh)
	}()
	go watchLevel(hupCh, level, level.Level(), log)

	return runLoop(machine, publisher, publisher, tracker, o.heartbeat, time.Now, ticker.C, sigCh, log)
}

// watchLevel flips the log level between base and debug on each signal
// until hup is closed.
func watchLevel(hup <-chan os.Signal, level *slog.LevelVar, base slog.Level, log *slog.Logger) {
	for range hup {
		next := logging.Toggle(level, base)
		log.Warn("log level changed", "level", next.String())
	}
}

func runLoop(machine *sonar.Machine, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal, log *slog.Logger) error {
	lastHeartbeat := now()

	for {
		select {
		case s := <-sig:
			log.Info("shutting down", "signal", s)
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
			if tracker != nil {
				refresh(machine, mqttStatus, tracker)
				event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Warn("failed to publish shutdown event", "err", err)
			} else {
				log.Info("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			machine.Step()

			readings := machine.Drain()
			for _, r := range readings {
				r.Timestamp = t
				log.Debug("reading", "sensor", r.Sensor, "distance", r.Distance, "width", r.Width, "status", r.Status)
				if err := publisher.Publish(r); err != nil {
					log.Warn("publish error", "sensor", r.Sensor, "err", err)
					// Don't stop measuring on publish failure
				}
				if tracker != nil {
					tracker.Record(r)
				}
			}

			if tracker != nil {
				tracker.SetMachine(machineStatus(machine))
				if len(readings) > 0 {
					tracker.SetCounts(machine.Counts())
				}
			}

			if heartbeat <= 0 || t.Sub(lastHeartbeat) < heartbeat {
				continue
			}
			lastHeartbeat = t
			log.Info("heartbeat",
				"ticks", machine.Ticks(),
				"revolutions", machine.Revolutions(),
				"dropped", machine.Dropped(),
			)
			hbEvent := mqtt.SystemEvent{
				Timestamp: t,
				Event:     "HEARTBEAT",
			}
			if tracker != nil {
				refresh(machine, mqttStatus, tracker)
				// Refresh network info for heartbeat
				if net := readNetworkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
				hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Warn("heartbeat publish error", "err", err)
			}
		}
	}
}

func machineStatus(m *sonar.Machine) status.Machine {
	return status.Machine{
		State:        m.StateName(),
		ActiveSensor: m.Index(),
		Ticks:        m.Ticks(),
		Revolutions:  m.Revolutions(),
		Dropped:      m.Dropped(),
	}
}

func refresh(m *sonar.Machine, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker) {
	tracker.SetMachine(machineStatus(m))
	tracker.SetCounts(m.Counts())
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
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

// parsePins parses a comma-separated list of non-negative integers.
func parsePins(s string) ([]int, error) {
	var pins []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("bad value %q: %w", f, err)
		}
		if n < 0 {
			return nil, fmt.Errorf("bad value %q: negative", f)
		}
		pins = append(pins, n)
	}
	return pins, nil
}

func joinPins(pins []int) string {
	parts := make([]string, len(pins))
	for i, p := range pins {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}
