package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/jbleroy/fieldops/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker        string          `json:"broker"`
	ClientID      string          `json:"client_id"`
	Username      string          `json:"username"`
	Password      string          `json:"password"`
	TopicPrefix   string          `json:"topic_prefix"`
	PositionTopic string          `json:"position_topic"`
	UseTLS        bool            `json:"use_tls"`
	ClientCert    string          `json:"client_cert"`
	ClientKey     string          `json:"client_key"`
	CABundle      string          `json:"ca_bundle"`
	AuthMethod    string          `json:"auth_method"`
	QoS           map[string]byte `json:"qos"`
	LWTTopic      string          `json:"lwt_topic"`
	LWTPayload    string          `json:"lwt_payload"`
	LWTQoS        byte            `json:"lwt_qos"`
	LWTRetain     bool            `json:"lwt_retain"`
	MaxRetries    int             `json:"max_retries"`
	BackoffMS     int             `json:"backoff_ms"`
	TLSConfig     *tls.Config     `json:"-"`
}

// Prefix returns the mission event topic prefix with the default applied.
func (c Config) Prefix() string {
	if c.TopicPrefix == "" {
		return "fieldops/missions"
	}
	return c.TopicPrefix
}

// pahoClient narrows paho.Client to what this package uses, so tests can
// substitute a mock.
type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
	Unsubscribe(topics ...string) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Client wraps a Paho connection with retrying publishes.
type Client struct {
	cli        pahoClient
	qos        map[string]byte
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
}

// NewClient connects to the MQTT broker.
func NewClient(cfg Config) (*Client, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	opts.OnConnect = func(_ paho.Client) {
		log.Infof("MQTT connected")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}

	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &Client{
		cli:        c,
		qos:        cfg.QoS,
		logger:     log,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

func (c *Client) qosFor(class string) byte {
	if q, ok := c.qos[class]; ok {
		return q
	}
	return 0
}

// Publish sends a payload with exponential backoff on transient failures.
func (c *Client) Publish(topic string, qos byte, payload []byte) error {
	retries := c.maxRetries
	if retries <= 0 {
		retries = 3
	}
	backoff := c.backoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	var publishErr error
	for attempt := 0; attempt <= retries; attempt++ {
		token := c.cli.Publish(topic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			return nil
		}
		c.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		time.Sleep(backoff * time.Duration(1<<attempt))
	}
	return publishErr
}

// Subscribe registers a handler for a topic filter.
func (c *Client) Subscribe(topic string, qos byte, cb paho.MessageHandler) error {
	if token := c.cli.Subscribe(topic, qos, cb); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// Unsubscribe removes a subscription.
func (c *Client) Unsubscribe(topic string) error {
	if token := c.cli.Unsubscribe(topic); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// Disconnect gracefully closes the MQTT connection.
func (c *Client) Disconnect() {
	if c.cli != nil && c.cli.IsConnected() {
		c.cli.Disconnect(250)
	}
}
