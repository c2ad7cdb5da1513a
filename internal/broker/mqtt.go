package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

const (
	QoSAtLeastOnce byte = 1
	QoSExactlyOnce byte = 2

	HeartbeatTopic = "device/sync"
)

var ErrNotConnected = errors.New("mqtt client not connected")

// GroupTopic is where a group's playlist is published, retained.
func GroupTopic(groupID string) string { return "ads/" + groupID }

// DeviceTopic carries unicast commands for one device.
func DeviceTopic(deviceID string) string { return "device/" + deviceID }

type Handler func(topic string, payload []byte)

type Config struct {
	BrokerURL      string
	ClientID       string
	Username       string
	Password       string
	ConnectTimeout time.Duration
}

type subscription struct {
	qos     byte
	handler Handler
}

// Client is the process-wide broker connection. paho serialises concurrent
// publishes internally so callers need no extra locking.
type Client struct {
	client mqtt.Client

	mu   sync.Mutex
	subs map[string]subscription
}

// Connect dials the broker and blocks until connected or cfg.ConnectTimeout passes.
func Connect(cfg Config) (*Client, error) {
	c := &Client{subs: make(map[string]subscription)}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOrderMatters(false)
	opts.SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
		log.Debug().Str("topic", msg.Topic()).Msg("unhandled mqtt message")
	})
	opts.OnConnect = func(mc mqtt.Client) {
		log.Info().Str("broker", cfg.BrokerURL).Msg("connected to MQTT broker")
		c.resubscribe()
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	}

	c.client = mqtt.NewClient(opts)

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	token := c.client.Connect()
	if !token.WaitTimeout(timeout) {
		c.client.Disconnect(250)
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: timed out after %s", cfg.BrokerURL, timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", cfg.BrokerURL, err)
	}
	return c, nil
}

// New wraps an existing paho client.
func New(client mqtt.Client) *Client {
	return &Client{client: client, subs: make(map[string]subscription)}
}

// Publish sends payload and waits for the broker's acknowledgement or ctx.
func (c *Client) Publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error {
	if !c.client.IsConnectionOpen() {
		return fmt.Errorf("publish %s: %w", topic, ErrNotConnected)
	}
	token := c.client.Publish(topic, qos, retained, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers handler for topic. The subscription is restored after reconnects.
func (c *Client) Subscribe(ctx context.Context, topic string, qos byte, handler Handler) error {
	c.mu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()

	return c.subscribe(ctx, topic, subscription{qos: qos, handler: handler})
}

func (c *Client) subscribe(ctx context.Context, topic string, s subscription) error {
	token := c.client.Subscribe(topic, s.qos, func(_ mqtt.Client, msg mqtt.Message) {
		s.handler(msg.Topic(), msg.Payload())
	})
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("subscribe %s: %w", topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	log.Info().Str("topic", topic).Uint8("qos", s.qos).Msg("subscribed")
	return nil
}

func (c *Client) resubscribe() {
	c.mu.Lock()
	subs := make(map[string]subscription, len(c.subs))
	for t, s := range c.subs {
		subs[t] = s
	}
	c.mu.Unlock()

	for topic, s := range subs {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := c.subscribe(ctx, topic, s); err != nil {
				log.Error().Err(err).Str("topic", topic).Msg("failed to restore subscription")
			}
		}()
	}
}

// Ping reports whether the connection is currently usable.
func (c *Client) Ping(ctx context.Context) error {
	if !c.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	return nil
}

// Close disconnects, giving in-flight work quiesce milliseconds to finish.
func (c *Client) Close(quiesce uint) {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(quiesce)
		log.Info().Msg("MQTT client disconnected")
	}
}
