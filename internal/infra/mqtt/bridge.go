// Package mqtt publishes switch state to an MQTT broker and accepts command
// lines from it.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"smart-switch/internal/application"
	"smart-switch/internal/domain"
)

const publishTimeout = 5 * time.Second

var ErrNotConnected = errors.New("mqtt client not connected")

// Client is the subset of the paho client the bridge uses.
type Client interface {
	Connect() paho.Token
	IsConnected() bool
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
	Unsubscribe(topics ...string) paho.Token
}

var newClient = func(opts *paho.ClientOptions) Client {
	return paho.NewClient(opts)
}

type Options struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
}

// StatePayload is the retained message published for every state change.
type StatePayload struct {
	ID      uint8  `json:"id"`
	Status  string `json:"status"`
	TimerID *uint8 `json:"timer_id,omitempty"`
	On      string `json:"on"`
	Off     string `json:"off"`
	Source  string `json:"source"`
}

// Bridge is both a Notifier and a CommandSource.
type Bridge struct {
	opts    Options
	client  Client
	handler application.LineHandler
	logger  *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	running bool
}

// Connect dials the broker. handler may be nil when only publishing.
func Connect(opts Options, handler application.LineHandler, logger *slog.Logger) (*Bridge, error) {
	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true)
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}

	client := newClient(co)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to %s: %w", opts.Broker, token.Error())
	}
	logger.Info("connected to mqtt broker", "broker", opts.Broker, "client_id", opts.ClientID)

	return &Bridge{
		opts:    opts,
		client:  client,
		handler: handler,
		logger:  logger,
		ctx:     context.Background(),
	}, nil
}

func (b *Bridge) Name() string {
	return "mqtt"
}

func (b *Bridge) StateTopic(id uint8) string {
	return b.opts.TopicPrefix + "/switch/" + strconv.Itoa(int(id)) + "/state"
}

func (b *Bridge) CommandTopic() string { return b.opts.TopicPrefix + "/command" }
func (b *Bridge) ReplyTopic() string   { return b.opts.TopicPrefix + "/reply" }

func (b *Bridge) Notify(_ context.Context, change domain.StateChange) error {
	payload, err := json.Marshal(newStatePayload(change))
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	return b.publish(b.StateTopic(change.Switch.ID), true, payload)
}

// Start subscribes to the command topic.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running || b.handler == nil {
		return nil
	}
	b.ctx = ctx

	token := b.client.Subscribe(b.CommandTopic(), b.opts.QoS, b.onCommand)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribing to %s: %w", b.CommandTopic(), token.Error())
	}
	b.running = true
	b.logger.Info("listening for mqtt commands", "topic", b.CommandTopic())
	return nil
}

func (b *Bridge) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		b.running = false
		if token := b.client.Unsubscribe(b.CommandTopic()); !token.WaitTimeout(publishTimeout) {
			b.logger.Warn("unsubscribe timed out", "topic", b.CommandTopic())
		}
	}
	if b.client.IsConnected() {
		b.client.Disconnect(250)
	}
	return nil
}

func (b *Bridge) onCommand(_ paho.Client, msg paho.Message) {
	b.mu.Lock()
	ctx := b.ctx
	b.mu.Unlock()

	line := string(msg.Payload())
	reply := b.handler.HandleLine(ctx, line)
	b.logger.Debug("mqtt command handled", "line", line, "reply", reply)

	if err := b.publish(b.ReplyTopic(), false, []byte(reply)); err != nil {
		b.logger.Error("publishing reply", "error", err)
	}
}

func (b *Bridge) publish(topic string, retained bool, payload []byte) error {
	if !b.client.IsConnected() {
		return ErrNotConnected
	}
	token := b.client.Publish(topic, b.opts.QoS, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing to %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

func newStatePayload(change domain.StateChange) StatePayload {
	sw := change.Switch
	p := StatePayload{
		ID:     sw.ID,
		Status: onOff(sw.Status),
		On:     fmt.Sprintf("%02d:%02d", sw.OnHour, sw.OnMinute),
		Off:    fmt.Sprintf("%02d:%02d", sw.OffHour, sw.OffMinute),
		Source: string(change.Source),
	}
	if sw.HasTimer() {
		timer := sw.TimerID
		p.TimerID = &timer
	}
	return p
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
