package mqtt

import (
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/horn-controller/internal/logic"
)

const (
	bufferCapacity = 256
	publishTimeout = 5 * time.Second
)

// client is the subset of paho.Client used by RealPublisher.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// RealPublisher publishes to an actual MQTT broker.
//
// Publish and PublishSystem never block the caller: messages are appended to
// a single FIFO drained by a sender goroutine. While the broker is
// unreachable or slow the FIFO keeps the newest bufferCapacity messages, and
// they are delivered in the order they were published.
type RealPublisher struct {
	client client

	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}

	mu        sync.Mutex
	pending   *ringBuffer
	connected bool
	everUp    bool
	closed    bool
}

// NewRealPublisher creates a publisher for the given broker. The connection
// is made in the background and retried until it succeeds.
func NewRealPublisher(broker string) (*RealPublisher, error) {
	if _, err := url.Parse(broker); err != nil {
		return nil, fmt.Errorf("parse broker %q: %w", broker, err)
	}

	p := newPublisher(nil)

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("horn-controller").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(WillPayload()), 1, true).
		SetOnConnectHandler(func(paho.Client) { p.setConnected(true) }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
			p.setConnected(false)
		})

	c := paho.NewClient(opts)
	p.client = c
	go p.run()
	c.Connect()

	return p, nil
}

func newPublisher(c client) *RealPublisher {
	return &RealPublisher{
		client:  c,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		pending: newRingBuffer(bufferCapacity),
	}
}

// Publish queues a controller event for the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.enqueue(bufferedMsg{topic: Topic, payload: payload})
}

// PublishSystem queues a system lifecycle event for the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) - lifecycle events should survive a flaky link
	return p.enqueue(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) enqueue(msg bufferedMsg) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("publisher closed")
	}
	p.pending.push(msg)
	p.signal()
	return nil
}

func (p *RealPublisher) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *RealPublisher) setConnected(up bool) {
	p.mu.Lock()
	reconnect := up && p.everUp && !p.connected
	p.connected = up
	if up {
		p.everUp = true
	}
	p.mu.Unlock()

	if !up {
		return
	}
	if reconnect {
		log.Printf("mqtt: reconnected")
		p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
	}
	p.signal()
}

// run is the sender goroutine. It exits after a final flush once Close is called.
func (p *RealPublisher) run() {
	defer close(p.stopped)
	for {
		select {
		case <-p.wake:
			p.flush()
		case <-p.done:
			p.flush()
			return
		}
	}
}

// flush delivers pending messages oldest first until the FIFO is empty, the
// connection is down, or a delivery fails. A failed message goes back to the
// head of the FIFO, so nothing published later can overtake it.
func (p *RealPublisher) flush() {
	for {
		p.mu.Lock()
		if !p.connected {
			p.mu.Unlock()
			return
		}
		msg, ok := p.pending.pop()
		p.mu.Unlock()
		if !ok {
			return
		}

		if err := p.deliver(msg); err != nil {
			log.Printf("mqtt: %v", err)
			p.mu.Lock()
			p.pending.pushFront(msg)
			p.mu.Unlock()
			return
		}
	}
}

func (p *RealPublisher) deliver(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// Close flushes queued messages and disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	<-p.stopped

	p.mu.Lock()
	if lost := p.pending.drainAll(); len(lost) > 0 {
		log.Printf("mqtt: discarding %d undelivered messages", len(lost))
	}
	p.mu.Unlock()

	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
