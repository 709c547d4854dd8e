package main

import (
	"log"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/tank-controller/internal/gpio"
	"github.com/sweeney/tank-controller/internal/logic"
	"github.com/sweeney/tank-controller/internal/mqtt"
	"github.com/sweeney/tank-controller/internal/status"
)

// loop owns the Controller. Everything that changes controller state
// arrives through run's select: poll ticks, remote commands and signals.
type loop struct {
	reader     gpio.Reader
	writer     gpio.Writer
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus // optional
	tracker    *status.Tracker       // optional
	notify     func()                // optional, called when the tracker changed
	commands   <-chan logic.Edge
	debounce   time.Duration
	heartbeat  time.Duration
	now        func() time.Time

	controller *logic.Controller
	debouncer  *logic.Debouncer
	applied    gpio.Outputs
	synced     bool // applied matches the hardware
}

func (l *loop) run(tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := l.now()
	l.controller = logic.NewController(startTime)
	l.debouncer = logic.NewDebouncer(l.debounce)

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			l.shutdown(signalName(s))
			return nil

		case edge := <-l.commands:
			t := l.now()
			log.Printf("command: %s", edge)
			l.settle(l.controller.Apply(edge, t), t)

		case <-tick:
			t := l.now()
			var events []logic.Event

			levels, err := l.reader.Read()
			if err != nil {
				// The discharge deadline still runs without fresh inputs
				log.Printf("gpio read error: %v", err)
			} else {
				edges := l.debouncer.Process(logic.Input{
					Low:  levels.Low,
					High: levels.High,
					Stop: levels.Stop,
					Time: t,
				})
				for _, edge := range edges {
					log.Printf("input: %s", edge)
					events = append(events, l.controller.Apply(edge, t)...)
				}
			}
			events = append(events, l.controller.Tick(t)...)
			l.settle(events, t)
			l.checkHeartbeat(t)
		}
	}
}

// settle drives the outputs to match the controller, then publishes events
// and refreshes the tracker. A failed write is retried on the next call.
func (l *loop) settle(events []logic.Event, t time.Time) {
	want := gpio.OutputsFor(l.controller.Status())
	if !l.synced || want != l.applied {
		if err := l.writer.Write(want); err != nil {
			log.Printf("gpio write error: %v", err)
			l.synced = false
		} else {
			l.applied = want
			l.synced = true
		}
	}

	for _, event := range events {
		s := event.State
		log.Printf("event: %s (display=%q pump_1=%s pump_2=%s valve=%s)",
			event.Type, s.Display, logic.OnOff(s.Pump1), logic.OnOff(s.Pump2), logic.OpenClosed(s.Valve))
		if err := l.publisher.Publish(event); err != nil {
			log.Printf("publish error: %v", err)
			// Don't crash on publish failure
		}
	}

	l.updateTracker()
}

func (l *loop) checkHeartbeat(t time.Time) {
	hbData := l.controller.CheckHeartbeat(t, l.heartbeat)
	if hbData == nil {
		return
	}
	log.Printf("heartbeat: uptime=%v fills=%d fulls=%d discharges=%d stops=%d",
		hbData.Uptime, hbData.Counts.Fills, hbData.Counts.Fulls, hbData.Counts.Discharges, hbData.Counts.Stops)

	hbEvent := mqtt.SystemEvent{
		Timestamp: hbData.Timestamp,
		Event:     "HEARTBEAT",
	}
	if l.tracker != nil {
		snap := l.tracker.Snapshot()
		hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
	}
	if err := l.publisher.PublishSystem(hbEvent); err != nil {
		log.Printf("heartbeat publish error: %v", err)
	}
}

func (l *loop) updateTracker() {
	if l.tracker == nil {
		return
	}
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
	}
	changed := l.tracker.Update(l.controller.Status(), l.debouncer.IsBaselined(), l.controller.EventCountsSnapshot())
	if changed && l.notify != nil {
		l.notify()
	}
}

// shutdown turns every output off and publishes SHUTDOWN with a final snapshot.
func (l *loop) shutdown(reason string) {
	if err := l.writer.Write(gpio.Outputs{}); err != nil {
		log.Printf("gpio write error during shutdown: %v", err)
	}

	event := mqtt.SystemEvent{
		Timestamp: l.now(),
		Event:     "SHUTDOWN",
		Reason:    reason,
		Retained:  true,
	}
	if l.tracker != nil {
		l.updateTracker()
		snap := l.tracker.Snapshot()
		event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", reason)
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	} else {
		log.Printf("published shutdown event")
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
