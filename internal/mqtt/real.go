package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/tank-controller/internal/logic"
)

// outboxCapacity bounds the messages held while the broker is unreachable.
const outboxCapacity = 256

// RealPublisher publishes to an actual MQTT broker and receives commands from it.
type RealPublisher struct {
	client paho.Client

	mu        sync.Mutex
	outbox    *outbox
	connected bool // at least one successful connect
	replaying bool // outbox is being drained; new messages queue behind it
	handler   func(logic.Edge)
}

// NewRealPublisher creates a publisher for the given broker. The connection
// is retried in the background; messages published before it is up are held
// in the outbox and replayed on connect. Username and password are sent to
// the broker when username is non-empty.
func NewRealPublisher(broker, username, password string) *RealPublisher {
	p := &RealPublisher{outbox: newOutbox(outboxCapacity)}

	// The broker sends the will long after it is registered, so it carries no timestamp.
	will, _ := FormatSystemPayload(SystemEvent{Event: "OFFLINE"})

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("tank-controller").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})
	if username != "" {
		opts.SetUsername(username).SetPassword(password)
	}

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

func (p *RealPublisher) onConnect(c paho.Client) {
	reconnect, handler := p.markConnected()

	log.Printf("mqtt: connected (reconnect=%v)", reconnect)
	if handler != nil {
		p.subscribe(handler)
	}
	// Tokens must not be waited on from inside a paho callback.
	go p.replay(reconnect)
}

// markConnected records a successful connect and holds new messages in the
// outbox until replay has drained it.
func (p *RealPublisher) markConnected() (reconnect bool, handler func(logic.Edge)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	reconnect = p.connected
	p.connected = true
	p.replaying = true
	return reconnect, p.handler
}

// replay announces a reconnect, then publishes the outbox oldest first until
// it is empty. Messages sent meanwhile are queued behind the backlog.
func (p *RealPublisher) replay(reconnect bool) {
	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		if err := p.publish(pendingMsg{topic: TopicSystem, payload: payload, qos: 1}); err != nil {
			log.Printf("mqtt: publish reconnected: %v", err)
		}
	}

	for {
		p.mu.Lock()
		msgs, dropped := p.outbox.flush()
		if len(msgs) == 0 {
			p.replaying = false
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		if dropped > 0 {
			log.Printf("mqtt: %d buffered messages were dropped while offline", dropped)
		}
		for i, m := range msgs {
			if !p.client.IsConnectionOpen() {
				// The next onConnect picks these up again.
				p.mu.Lock()
				p.outbox.requeue(msgs[i:])
				p.replaying = false
				p.mu.Unlock()
				return
			}
			if err := p.publish(m); err != nil {
				log.Printf("mqtt: replay to %s: %v", m.topic, err)
			}
		}
	}
}

// send publishes now, or holds the message in the outbox while disconnected
// or while older messages are still waiting to go out.
func (p *RealPublisher) send(m pendingMsg) error {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() || p.replaying || p.outbox.len() > 0 {
		p.outbox.add(m)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.publish(m)
}

func (p *RealPublisher) publish(m pendingMsg) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Publish sends a controller transition to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.send(pendingMsg{topic: TopicEvents, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	return p.send(pendingMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// Subscribe listens for commands on TopicCommands. The subscription is
// renewed on every reconnect.
func (p *RealPublisher) Subscribe(handler func(logic.Edge)) error {
	p.mu.Lock()
	p.handler = handler
	p.mu.Unlock()

	if p.client.IsConnectionOpen() {
		p.subscribe(handler)
	}
	return nil
}

func (p *RealPublisher) subscribe(handler func(logic.Edge)) {
	p.client.Subscribe(TopicCommands, 1, func(_ paho.Client, msg paho.Message) {
		cmd, err := ParseCommand(msg.Payload())
		if err != nil {
			log.Printf("mqtt: ignoring command: %v", err)
			return
		}
		handler(cmd)
	})
}

// IsConnected reports whether the broker connection is currently up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
