// Package mqtt bridges an MQTT telemetry topic into the ingestion
// engine. Field deployments publish readings over MQTT where HTTP is
// impractical; the bridge decodes the same Reading payload the HTTP
// endpoint accepts and feeds it to Engine.Ingest.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ecofy/backend/pkg/telemetry"
)

// Ingester is the slice of the engine the bridge needs.
type Ingester interface {
	Ingest(ctx context.Context, r telemetry.Reading) error
}

// Bridge subscribes to one topic and forwards decoded readings.
type Bridge struct {
	client  paho.Client
	topic   string
	ingest  Ingester
	log     zerolog.Logger
	timeout time.Duration
}

// DecodeReading parses one MQTT payload. Split out so malformed-payload
// handling is testable without a broker.
func DecodeReading(payload []byte) (telemetry.Reading, error) {
	var r telemetry.Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return telemetry.Reading{}, fmt.Errorf("decoding telemetry payload: %w", err)
	}
	if r.SerialNumber == "" {
		return telemetry.Reading{}, fmt.Errorf("telemetry payload missing serialNumber")
	}
	return r, nil
}

// NewBridge connects to the broker and subscribes. Call Close to
// disconnect.
func NewBridge(brokerURL, topic string, ingest Ingester, log zerolog.Logger) (*Bridge, error) {
	b := &Bridge{
		topic:   topic,
		ingest:  ingest,
		log:     log.With().Str("component", "mqtt").Logger(),
		timeout: 30 * time.Second,
	}

	opts := paho.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID("ecofy-backend-" + uuid.NewString()).
		SetOrderMatters(false).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(c paho.Client) {
			// Resubscribe after every (re)connect; subscriptions do not
			// survive a clean-session reconnect.
			token := c.Subscribe(topic, 1, b.handleMessage)
			token.Wait()
			if err := token.Error(); err != nil {
				b.log.Error().Err(err).Str("topic", topic).Msg("subscribe failed")
				return
			}
			b.log.Info().Str("topic", topic).Msg("subscribed to telemetry topic")
		})

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", brokerURL, token.Error())
	}
	b.client = client
	return b, nil
}

// handleMessage decodes and ingests one payload. Malformed payloads and
// rejected readings are logged and dropped; the subscription stays up.
func (b *Bridge) handleMessage(_ paho.Client, msg paho.Message) {
	reading, err := DecodeReading(msg.Payload())
	if err != nil {
		b.log.Warn().Err(err).Str("topic", msg.Topic()).Msg("dropping malformed telemetry payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	if err := b.ingest.Ingest(ctx, reading); err != nil {
		b.log.Warn().Err(err).Str("serial", reading.SerialNumber).Msg("reading rejected")
	}
}

// Close disconnects from the broker, allowing in-flight work to finish.
func (b *Bridge) Close() {
	b.client.Disconnect(250)
}
