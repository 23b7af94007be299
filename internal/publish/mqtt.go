// Package publish forwards call events to an MQTT broker.
//
// MQTT is well-suited for the device's home: a phone on a shelf, a broker on
// the LAN, and whatever home-automation glue wants to react to calls.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/retrophonic/rotaryd/internal/events"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
)

// MQTT publishes every bus event as JSON to one topic.
type MQTT struct {
	client mqtt.Client
	topic  string
	log    *slog.Logger
}

// NewMQTT connects to the broker. Connection failure is a startup error;
// publish failures later are logged and dropped.
func NewMQTT(broker, clientID, topic string, logger *slog.Logger) (*MQTT, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("mqtt: connect to %s timed out", broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect to %s: %w", broker, err)
	}
	logger.Info("mqtt connected", "broker", broker, "topic", topic)
	return &MQTT{client: client, topic: topic, log: logger}, nil
}

// Run drains the subscription until ctx is cancelled.
func (p *MQTT) Run(ctx context.Context, sub <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			p.publish(ev)
		}
	}
}

func (p *MQTT) publish(ev events.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("mqtt encode failed", "error", err)
		return
	}
	tok := p.client.Publish(p.topic, 0, false, payload)
	if !tok.WaitTimeout(publishTimeout) {
		p.log.Warn("mqtt publish timed out", "type", ev.Type)
		return
	}
	if err := tok.Error(); err != nil {
		p.log.Warn("mqtt publish failed", "type", ev.Type, "error", err)
	}
}

// Close disconnects from the broker.
func (p *MQTT) Close() {
	p.client.Disconnect(uint(publishTimeout / time.Millisecond))
}
