package notify

import (
	"context"
	"fmt"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const DefaultMQTTTopic = "planner/changes"

type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
}

// MQTT signals over a broker topic at QoS 1.
type MQTT struct {
	client mqtt.Client
	topic  string
	origin string
	log    *zap.Logger

	mu   sync.Mutex
	subs map[chan struct{}]struct{}
	once sync.Once
}

func NewMQTT(cfg MQTTConfig, log *zap.Logger) (*MQTT, error) {
	if log == nil {
		log = zap.NewNop()
	}
	m := &MQTT{topic: cfg.Topic, origin: newOrigin(), log: log, subs: map[chan struct{}]struct{}{}}
	if m.topic == "" {
		m.topic = DefaultMQTTTopic
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "planner-" + m.origin[len("origin:"):][:8]
	}
	opts.SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	// Resubscribe after every (re)connect.
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		if token := c.Subscribe(m.topic, 1, m.onMessage); token.Wait() && token.Error() != nil {
			m.log.Warn("mqtt subscribe failed", zap.String("topic", m.topic), zap.Error(token.Error()))
		}
	})

	m.client = mqtt.NewClient(opts)
	if token := m.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return m, nil
}

func (m *MQTT) onMessage(_ mqtt.Client, msg mqtt.Message) {
	if !m.deliver(msg.Payload()) {
		return
	}
	m.mu.Lock()
	for ch := range m.subs {
		signal(ch)
	}
	m.mu.Unlock()
}

func (m *MQTT) deliver(payload []byte) bool {
	return string(payload) != m.origin
}

func (m *MQTT) Publish(ctx context.Context) error {
	token := m.client.Publish(m.topic, 1, false, []byte(m.origin))
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", m.topic, token.Error())
	}
	return nil
}

func (m *MQTT) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()
	go func() {
		<-ctx.Done()
		m.mu.Lock()
		if _, ok := m.subs[ch]; ok {
			delete(m.subs, ch)
			close(ch)
		}
		m.mu.Unlock()
	}()
	return ch, nil
}

func (m *MQTT) Close() error {
	m.once.Do(func() {
		m.client.Disconnect(250)
		m.mu.Lock()
		for ch := range m.subs {
			delete(m.subs, ch)
			close(ch)
		}
		m.mu.Unlock()
	})
	return nil
}
