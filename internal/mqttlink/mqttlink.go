// Package mqttlink carries telemetry snapshots over an MQTT broker: the
// monitor publishes them, remote dashboards subscribe to them.
package mqttlink

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/shaunagostinho/ins-dash/internal/telemetry"
)

type Config struct {
	Host     string
	Port     int
	UseTLS   bool
	Username string
	Password string
	Topic    string
	QoS      byte
}

// BrokerURL returns the broker address in paho form.
func (c Config) BrokerURL() string {
	scheme := "tcp"
	if c.UseTLS {
		scheme = "tls"
	}
	port := c.Port
	if port == 0 {
		port = 1883
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.Host, port)
}

func (c Config) validate() error {
	if c.Host == "" {
		return fmt.Errorf("mqtt: host is required")
	}
	if c.Topic == "" {
		return fmt.Errorf("mqtt: topic is required")
	}
	return nil
}

func clientOptions(cfg Config, role string, onConnect mqtt.OnConnectHandler) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL())
	opts.SetClientID("insdash_" + role + "_" + uuid.NewString()[:8])
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(5 * time.Second)

	opts.SetOnConnectHandler(onConnect)
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("[mqtt] %s connection lost: %v (will auto-reconnect)", role, err)
	})
	opts.SetReconnectingHandler(func(client mqtt.Client, opts *mqtt.ClientOptions) {
		log.Printf("[mqtt] %s reconnecting...", role)
	})
	return opts
}

// connect starts the initial connection. A broker that is down is not fatal:
// paho keeps retrying in the background.
func connect(client mqtt.Client, cfg Config, role string) {
	log.Printf("[mqtt] %s connecting to %s", role, cfg.BrokerURL())
	token := client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		log.Printf("[mqtt] %s connection timeout (will retry in background)", role)
		return
	}
	if err := token.Error(); err != nil {
		log.Printf("[mqtt] %s initial connection failed: %v (will retry in background)", role, err)
	}
}

// Publisher sends every snapshot to the configured topic as a retained
// message, so late subscribers get the current state immediately.
type Publisher struct {
	client mqtt.Client
	cfg    Config
}

func NewPublisher(cfg Config) (*Publisher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	opts := clientOptions(cfg, "publisher", func(mqtt.Client) {
		log.Printf("[mqtt] publisher connected to broker")
	})
	p := &Publisher{client: mqtt.NewClient(opts), cfg: cfg}
	connect(p.client, cfg, "publisher")
	return p, nil
}

func (p *Publisher) Publish(snap *telemetry.Snapshot) error {
	if !p.client.IsConnected() {
		return fmt.Errorf("mqtt: not connected")
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("mqtt: marshal snapshot: %w", err)
	}
	token := p.client.Publish(p.cfg.Topic, p.cfg.QoS, true, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt: publish to %s timed out", p.cfg.Topic)
	}
	return token.Error()
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}

// Subscriber keeps the most recent payload received on the topic.
type Subscriber struct {
	client mqtt.Client
	cfg    Config

	mu       sync.RWMutex
	latest   []byte
	received time.Time
}

func NewSubscriber(cfg Config) (*Subscriber, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	s := &Subscriber{cfg: cfg}
	// Subscribing from the connect handler restores the subscription after
	// every reconnect.
	opts := clientOptions(cfg, "subscriber", func(client mqtt.Client) {
		log.Printf("[mqtt] subscriber connected to broker")
		s.subscribe(client)
	})
	s.client = mqtt.NewClient(opts)
	connect(s.client, cfg, "subscriber")
	return s, nil
}

func (s *Subscriber) subscribe(client mqtt.Client) {
	token := client.Subscribe(s.cfg.Topic, s.cfg.QoS, s.handle)
	if token.Wait() && token.Error() != nil {
		log.Printf("[mqtt] failed to subscribe to %s: %v", s.cfg.Topic, token.Error())
		return
	}
	log.Printf("[mqtt] subscribed to %s", s.cfg.Topic)
}

func (s *Subscriber) handle(_ mqtt.Client, msg mqtt.Message) {
	s.store(msg.Payload(), time.Now())
}

func (s *Subscriber) store(payload []byte, at time.Time) {
	buf := make([]byte, len(payload))
	copy(buf, payload)
	s.mu.Lock()
	s.latest = buf
	s.received = at
	s.mu.Unlock()
}

// Latest returns the last payload and when it arrived. ok is false until the
// first message.
func (s *Subscriber) Latest() (payload []byte, at time.Time, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, time.Time{}, false
	}
	return s.latest, s.received, true
}

func (s *Subscriber) Close() {
	s.client.Disconnect(250)
}
