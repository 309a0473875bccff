package notify

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tphakala/audiophile/internal/conf"
	"github.com/tphakala/audiophile/internal/logger"
	"github.com/tphakala/audiophile/internal/observability/metrics"
)

const sinkMQTT = "mqtt"

// MQTTConfig holds the configuration for the MQTT publisher.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string // prefix; events go to <Topic>/<kind>
	Retain   bool

	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// MQTTConfigFromSettings builds an MQTTConfig with default timeouts.
func MQTTConfigFromSettings(s *conf.Settings) MQTTConfig {
	clientID := s.MQTT.ClientID
	if clientID == "" {
		clientID = s.Main.Name
	}
	return MQTTConfig{
		Broker:            s.MQTT.Broker,
		ClientID:          clientID,
		Username:          s.MQTT.Username,
		Password:          s.MQTT.Password,
		Topic:             s.MQTT.Topic,
		Retain:            s.MQTT.Retain,
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

// MQTTPublisher publishes events to an MQTT broker.
type MQTTPublisher struct {
	config         MQTTConfig
	internalClient mqtt.Client
	mu             sync.Mutex
	metrics        *metrics.NotifyMetrics
	log            logger.Logger
}

// NewMQTTPublisher creates an unconnected publisher. m may be nil.
func NewMQTTPublisher(cfg MQTTConfig, m *metrics.NotifyMetrics) *MQTTPublisher {
	return &MQTTPublisher{
		config:  cfg,
		metrics: m,
		log:     GetLogger().With(logger.String("sink", sinkMQTT)),
	}
}

// Name returns "mqtt".
func (c *MQTTPublisher) Name() string { return sinkMQTT }

// Topic returns the topic an event is published to.
func (c *MQTTPublisher) Topic(ev *Event) string {
	return strings.TrimSuffix(c.config.Topic, "/") + "/" + ev.Kind()
}

// Connect resolves the broker host and connects. The paho client keeps
// reconnecting on its own after the first successful connect.
func (c *MQTTPublisher) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	u, err := url.Parse(c.config.Broker)
	if err != nil {
		return fmt.Errorf("invalid broker URL: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("invalid broker URL %q: missing host", c.config.Broker)
	}

	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return fmt.Errorf("failed to resolve hostname %s: %w", host, err)
		}
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	c.internalClient = mqtt.NewClient(opts)

	token := c.internalClient.Connect()
	if !token.WaitTimeout(c.config.ConnectTimeout) {
		return fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connection error: %w", err)
	}

	c.metrics.UpdateConnectionStatus(sinkMQTT, true)
	return nil
}

// IsConnected reports whether the broker connection is up.
func (c *MQTTPublisher) IsConnected() bool {
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Publish sends ev as JSON to <topic>/<kind>.
func (c *MQTTPublisher) Publish(ctx context.Context, ev *Event) error {
	payload, err := ev.Marshal()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.IsConnected() {
		return fmt.Errorf("not connected to MQTT broker")
	}

	start := time.Now()
	token := c.internalClient.Publish(c.Topic(ev), 0, c.config.Retain, payload)

	timeout := c.config.PublishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return err
	}

	c.metrics.RecordDelivery(sinkMQTT, len(payload), time.Since(start))
	return nil
}

// Close disconnects from the broker.
func (c *MQTTPublisher) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.internalClient != nil && c.internalClient.IsConnected() {
		c.internalClient.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
		c.metrics.UpdateConnectionStatus(sinkMQTT, false)
	}
	return nil
}

func (c *MQTTPublisher) onConnect(_ mqtt.Client) {
	c.log.Info("connected to MQTT broker", logger.String("broker", c.config.Broker))
	c.metrics.UpdateConnectionStatus(sinkMQTT, true)
}

func (c *MQTTPublisher) onConnectionLost(_ mqtt.Client, err error) {
	c.log.Warn("connection to MQTT broker lost",
		logger.String("broker", c.config.Broker),
		logger.Error(err))
	c.metrics.UpdateConnectionStatus(sinkMQTT, false)
	c.metrics.RecordError(sinkMQTT)
}
