package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// DefaultBufferSize is how many messages are held while disconnected.
const DefaultBufferSize = 100

// Options configures a RealClient.
type Options struct {
	Broker   string
	ClientID string

	// WillTopic and WillPayload set the broker-published last will. Empty
	// topic disables it.
	WillTopic   string
	WillPayload []byte

	BufferSize int
	Logger     *slog.Logger

	// OnConnectionChange, if set, is called with true on every (re)connect
	// and false when the connection drops.
	OnConnectionChange func(connected bool)
}

// RealClient is a Client backed by a paho connection. It reconnects on its
// own, restores subscriptions after a reconnect and replays messages
// published while the connection was down.
type RealClient struct {
	client paho.Client
	logger *slog.Logger
	notify func(bool)

	outbox *outbox

	mu   sync.Mutex
	subs map[string]func([]byte)
}

// NewRealClient starts connecting to the broker. A broker that is down at
// startup is not an error: the client keeps retrying in the background and
// buffers publishes until it gets through.
func NewRealClient(opts Options) (*RealClient, error) {
	if opts.Broker == "" {
		return nil, fmt.Errorf("no broker configured")
	}
	if opts.ClientID == "" {
		opts.ClientID = "flashlight"
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &RealClient{
		logger: logger,
		notify: opts.OnConnectionChange,
		subs:   make(map[string]func([]byte)),
	}
	c.outbox = newOutbox(opts.BufferSize, func(m bufferedMsg) error {
		return c.publish(m.topic, m.qos, m.retained, m.payload)
	}, logger)

	po := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost)
	if opts.WillTopic != "" {
		po.SetBinaryWill(opts.WillTopic, opts.WillPayload, 1, true)
	}

	c.client = paho.NewClient(po)
	token := c.client.Connect()
	if token.WaitTimeout(10*time.Second) && token.Error() != nil {
		return nil, fmt.Errorf("connect to broker: %w", token.Error())
	}
	if !c.client.IsConnectionOpen() {
		logger.Warn("mqtt broker not reachable yet, retrying in background", "broker", opts.Broker)
	}
	return c, nil
}

// Publish sends payload to topic. While disconnected, and until the messages
// buffered meanwhile have been replayed, it buffers instead.
func (c *RealClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	return c.outbox.publish(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
}

func (c *RealClient) publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers handler for topic. The subscription is restored after
// every reconnect.
func (c *RealClient) Subscribe(topic string, handler func(payload []byte)) error {
	c.mu.Lock()
	c.subs[topic] = handler
	c.mu.Unlock()

	if !c.client.IsConnectionOpen() {
		// onConnect subscribes once the connection is up.
		return nil
	}
	return c.subscribe(topic, handler)
}

func (c *RealClient) subscribe(topic string, handler func([]byte)) error {
	token := c.client.Subscribe(topic, 1, func(_ paho.Client, m paho.Message) {
		handler(m.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe %s: timeout", topic)
	}
	return token.Error()
}

// IsConnected reports whether the broker connection is up.
func (c *RealClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000) // 1 second timeout
	return nil
}

// onConnect runs on paho's goroutine, so the blocking work moves elsewhere.
func (c *RealClient) onConnect(paho.Client) {
	c.logger.Info("mqtt connected")
	gen := c.outbox.connected()
	if c.notify != nil {
		c.notify(true)
	}
	go c.restore(gen)
}

func (c *RealClient) restore(gen uint64) {
	c.mu.Lock()
	subs := make(map[string]func([]byte), len(c.subs))
	for t, h := range c.subs {
		subs[t] = h
	}
	c.mu.Unlock()

	for topic, h := range subs {
		if err := c.subscribe(topic, h); err != nil {
			c.logger.Warn("mqtt resubscribe failed", "topic", topic, "error", err)
		}
	}
	c.outbox.replay(gen)
}

func (c *RealClient) onConnectionLost(_ paho.Client, err error) {
	c.logger.Warn("mqtt connection lost", "error", err)
	c.outbox.disconnected()
	if c.notify != nil {
		c.notify(false)
	}
}
