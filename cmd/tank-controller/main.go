// Command tank-controller drives the fill pumps and discharge valve of a water tank
// from two level sensors and a stop input, publishing transitions to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/sweeney/tank-controller/internal/config"
	"github.com/sweeney/tank-controller/internal/gpio"
	"github.com/sweeney/tank-controller/internal/logic"
	"github.com/sweeney/tank-controller/internal/mqtt"
	"github.com/sweeney/tank-controller/internal/status"
	"github.com/sweeney/tank-controller/internal/web"
)

// Remote commands waiting for the control loop.
const commandQueue = 8

type options struct {
	cfg        config.Config
	printState bool
	demo       bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if opts.demo {
		runDemo(os.Stdout, time.Now())
		return
	}

	if err := run(opts.cfg, opts.printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// parseFlags builds the configuration from defaults, an optional YAML file
// and any flags given explicitly on the command line, in that order.
func parseFlags(args []string) (options, error) {
	def := config.Default()
	fs := pflag.NewFlagSet("tank-controller", pflag.ContinueOnError)

	configPath := fs.StringP("config", "c", "", "YAML configuration file")
	poll := fs.Duration("poll", def.Poll, "GPIO polling interval")
	debounce := fs.Duration("debounce", def.Debounce, "Debounce duration")
	broker := fs.String("broker", def.Broker, "MQTT broker address")
	heartbeat := fs.Duration("heartbeat", def.Heartbeat, "Heartbeat interval (0 to disable)")
	httpAddr := fs.String("http", def.HTTP, "HTTP status address (empty to disable)")
	driver := fs.String("driver", def.Driver, `GPIO driver ("gpiocdev" or "rpio")`)
	token := fs.String("token", "", "Bearer token required by POST /command (empty disables)")
	brokerUser := fs.String("broker-user", "", "MQTT broker username")
	brokerPassword := fs.String("broker-password", "", "MQTT broker password")
	pinLow := fs.Int("pin-low", def.Pins.Low, "BCM pin number for the low-level sensor")
	pinHigh := fs.Int("pin-high", def.Pins.High, "BCM pin number for the high-level sensor")
	pinStop := fs.Int("pin-stop", def.Pins.Stop, "BCM pin number for the stop button")
	pinPump1 := fs.Int("pin-pump1", def.Pins.Pump1, "BCM pin number for pump 1")
	pinPump2 := fs.Int("pin-pump2", def.Pins.Pump2, "BCM pin number for pump 2")
	pinValve := fs.Int("pin-valve", def.Pins.Valve, "BCM pin number for the discharge valve")
	printState := fs.Bool("print-state", false, "Print current input levels and exit")
	demo := fs.Bool("demo", false, "Run the controller through a scripted cycle without hardware and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	cfg := def
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return options{}, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "poll":
			cfg.Poll = *poll
		case "debounce":
			cfg.Debounce = *debounce
		case "broker":
			cfg.Broker = *broker
		case "heartbeat":
			cfg.Heartbeat = *heartbeat
		case "http":
			cfg.HTTP = *httpAddr
		case "driver":
			cfg.Driver = *driver
		case "token":
			cfg.AuthToken = *token
		case "broker-user":
			cfg.BrokerUser = *brokerUser
		case "broker-password":
			cfg.BrokerPassword = *brokerPassword
		case "pin-low":
			cfg.Pins.Low = *pinLow
		case "pin-high":
			cfg.Pins.High = *pinHigh
		case "pin-stop":
			cfg.Pins.Stop = *pinStop
		case "pin-pump1":
			cfg.Pins.Pump1 = *pinPump1
		case "pin-pump2":
			cfg.Pins.Pump2 = *pinPump2
		case "pin-valve":
			cfg.Pins.Valve = *pinValve
		}
	})

	if err := cfg.Validate(); err != nil {
		return options{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return options{cfg: cfg, printState: *printState, demo: *demo}, nil
}

// subscribeCommands forwards remote commands to the control loop. A command
// arriving while the queue is full is dropped.
func subscribeCommands(src mqtt.CommandSource, commands chan<- logic.Edge) error {
	return src.Subscribe(func(edge logic.Edge) {
		select {
		case commands <- edge:
			log.Printf("mqtt command: %s", edge)
		default:
			log.Printf("mqtt command %s dropped: queue full", edge)
		}
	})
}

func run(cfg config.Config, printState bool) error {
	// Initialize GPIO
	device, err := gpio.Open(cfg.Driver, cfg.Pins.GPIO())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer device.Close()

	// Print state mode
	if printState {
		levels, err := device.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("Low level: %s, High level: %s, Stop: %s\n",
			logic.OnOff(levels.Low), logic.OnOff(levels.High), logic.OnOff(levels.Stop))
		return nil
	}

	// Initialize MQTT
	publisher := mqtt.NewRealPublisher(cfg.Broker, cfg.BrokerUser, cfg.BrokerPassword)
	defer publisher.Close()

	commands := make(chan logic.Edge, commandQueue)
	if err := subscribeCommands(publisher, commands); err != nil {
		return fmt.Errorf("subscribe commands: %w", err)
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      cfg.Poll.Milliseconds(),
		DebounceMs:  cfg.Debounce.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		HTTPAddr:    cfg.HTTP,
		Driver:      cfg.Driver,
	})

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

	var notify func()
	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker, commands, cfg.AuthToken)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("http server error: %v", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.Printf("http shutdown: %v", err)
			}
		}()
		notify = srv.Notify
		log.Printf("http status server listening on %s", cfg.HTTP)
	}

	log.Printf("started: driver=%s poll=%v debounce=%v broker=%s heartbeat=%v",
		cfg.Driver, cfg.Poll, cfg.Debounce, cfg.Broker, cfg.Heartbeat)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		reader:     device,
		writer:     device,
		publisher:  publisher,
		mqttStatus: publisher,
		tracker:    tracker,
		notify:     notify,
		commands:   commands,
		debounce:   cfg.Debounce,
		heartbeat:  cfg.Heartbeat,
		now:        time.Now,
	}
	return l.run(ticker.C, sigCh)
}

// runDemo walks a controller through one fill and discharge cycle on a
// simulated clock, printing the status after each step.
func runDemo(w io.Writer, start time.Time) {
	c := logic.NewController(start)
	now := start

	step := func(label string) {
		fmt.Fprintf(w, "-- %s\n%s\n", label, c.Status())
	}

	step("start")
	c.EnergizeLowLevel(now)
	step("low level energized")
	c.EnergizeHighLevel(now)
	step("high level energized")
	now = now.Add(logic.DischargeDelay)
	c.Tick(now)
	step(fmt.Sprintf("after %v", logic.DischargeDelay))
	c.RequestStop(now)
	step("stop requested")
}
