package live

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MQTTFeed subscribes to a broker topic that mirrors reading changes, for
// deployments where the warehouse gateway publishes over MQTT instead of
// Redis.
type MQTTFeed struct {
	broker string
	topic  string
	log    *zap.Logger
}

// NewMQTTFeed builds a feed for the given broker URL and topic.
func NewMQTTFeed(broker, topic string, log *zap.Logger) *MQTTFeed {
	if log == nil {
		log = zap.L()
	}
	return &MQTTFeed{broker: broker, topic: topic, log: log}
}

// Subscribe connects and subscribes, honoring the context deadline for
// both steps.
func (f *MQTTFeed) Subscribe(ctx context.Context) (Handle, error) {
	h := &mqttHandle{notify: make(chan struct{}, 1), log: f.log}
	h.state.Store(int32(Connecting))

	opts := mqtt.NewClientOptions().
		AddBroker(f.broker).
		SetClientID("warehouse-sync-" + uuid.NewString()[:8]).
		SetConnectTimeout(remaining(ctx))

	client := mqtt.NewClient(opts)
	if token := client.Connect(); !token.WaitTimeout(remaining(ctx)) || token.Error() != nil {
		h.state.Store(int32(Failed))
		return nil, fmt.Errorf("live: mqtt connect: %w", tokenErr(token))
	}

	onMessage := func(_ mqtt.Client, _ mqtt.Message) {
		select {
		case h.notify <- struct{}{}:
		default:
		}
	}
	if token := client.Subscribe(f.topic, 0, onMessage); !token.WaitTimeout(remaining(ctx)) || token.Error() != nil {
		client.Disconnect(250)
		h.state.Store(int32(Failed))
		return nil, fmt.Errorf("live: mqtt subscribe: %w", tokenErr(token))
	}

	h.client = client
	h.state.Store(int32(Active))
	return h, nil
}

func remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
		return time.Millisecond
	}
	return 10 * time.Second
}

func tokenErr(t mqtt.Token) error {
	if err := t.Error(); err != nil {
		return err
	}
	return context.DeadlineExceeded
}

type mqttHandle struct {
	client mqtt.Client
	notify chan struct{}
	state  atomic.Int32
	once   sync.Once
	log    *zap.Logger
}

func (h *mqttHandle) State() State            { return State(h.state.Load()) }
func (h *mqttHandle) Notify() <-chan struct{} { return h.notify }

func (h *mqttHandle) Close() {
	h.once.Do(func() {
		h.state.Store(int32(Closed))
		if h.client != nil {
			h.client.Disconnect(250)
		}
	})
}
