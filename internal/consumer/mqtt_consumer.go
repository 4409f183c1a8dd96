package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/metrics"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/mqtt"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/service"

	"go.uber.org/zap"
)

// Subscriber is the inbound half of the bus
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// MQTTConsumer routes device messages to the services by topic purpose
type MQTTConsumer struct {
	bus        Subscriber
	topics     mqtt.Topics
	qos        byte
	recordUnit string
	timeout    time.Duration

	registry  service.RegistryService
	ingestion service.IngestionService
	settings  service.SettingsService

	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewMQTTConsumer(
	bus Subscriber,
	topics mqtt.Topics,
	qos byte,
	recordUnit string,
	registry service.RegistryService,
	ingestion service.IngestionService,
	settings service.SettingsService,
	m *metrics.Metrics,
	logger *zap.Logger,
) *MQTTConsumer {
	return &MQTTConsumer{
		bus:        bus,
		topics:     topics,
		qos:        qos,
		recordUnit: recordUnit,
		timeout:    10 * time.Second,
		registry:   registry,
		ingestion:  ingestion,
		settings:   settings,
		metrics:    m,
		logger:     logger,
	}
}

type dataMessage struct {
	DeviceID   string   `json:"deviceId"`
	MACAddress string   `json:"macAddress"`
	SPLValue   *float64 `json:"splValue"`
}

type statusMessage struct {
	Status string `json:"status"`
}

type infoMessage struct {
	MACAddress string `json:"macAddress"`
}

// Start subscribes to the inbound topics and blocks until ctx is done
func (c *MQTTConsumer) Start(ctx context.Context) error {
	for _, topic := range c.topics.Inbound() {
		if err := c.bus.Subscribe(topic, c.qos, c.handleMessage); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
	}

	c.logger.Info("MQTT consumer started", zap.Strings("topics", c.topics.Inbound()))

	<-ctx.Done()
	return nil
}

func (c *MQTTConsumer) Stop() {
	if err := c.bus.Unsubscribe(c.topics.Inbound()...); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}
	c.logger.Info("MQTT consumer stopped")
}

func (c *MQTTConsumer) handleMessage(topic string, payload []byte) error {
	c.logger.Debug("Received MQTT message",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	// 1. device id and purpose from the topic
	deviceID, purpose, ok := c.topics.Parse(topic)
	if !ok {
		return fmt.Errorf("invalid topic format: %s", topic)
	}
	c.metrics.BusMessage(purpose)

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	// 2. route
	switch purpose {
	case mqtt.PurposeData:
		var msg dataMessage
		if err := c.decode(topic, payload, &msg); err != nil {
			return err
		}
		return c.ingestion.IngestBusReading(ctx, service.BusReading{
			DeviceID:   msg.DeviceID,
			MACAddress: msg.MACAddress,
			SPLValue:   msg.SPLValue,
		})

	case mqtt.PurposeStatus:
		var msg statusMessage
		if err := c.decode(topic, payload, &msg); err != nil {
			return err
		}
		_, err := c.settings.HandleBusStatusUpdate(ctx, deviceID, msg.Status)
		return err

	case mqtt.PurposeSettingsUpdate:
		var raw map[string]any
		if err := c.decode(topic, payload, &raw); err != nil {
			return err
		}
		patch, err := service.ParseSettingsPatch(raw, c.recordUnit)
		if err != nil {
			return err
		}
		_, err = c.settings.HandleBusSettingsUpdate(ctx, deviceID, patch)
		return err

	case mqtt.PurposeInfo:
		var msg infoMessage
		if err := c.decode(topic, payload, &msg); err != nil {
			return err
		}
		return c.handleInfo(ctx, deviceID, msg)

	default:
		c.logger.Debug("Ignoring message on unhandled topic", zap.String("topic", topic))
		return nil
	}
}

// handleInfo registers the MAC on first contact and refreshes last_seen
func (c *MQTTConsumer) handleInfo(ctx context.Context, topicDeviceID string, msg infoMessage) error {
	if msg.MACAddress == "" {
		c.logger.Debug("Info message without macAddress", zap.String("device_id", topicDeviceID))
		return nil
	}

	deviceID, err := c.registry.ResolveDevice(ctx, msg.MACAddress)
	if err != nil {
		return err
	}
	if deviceID != topicDeviceID {
		c.logger.Info("Device announced under a different id",
			zap.String("topic_device_id", topicDeviceID),
			zap.String("device_id", deviceID),
			zap.String("mac_address", msg.MACAddress),
		)
	}
	return c.ingestion.IngestBusReading(ctx, service.BusReading{DeviceID: deviceID, MACAddress: msg.MACAddress})
}

// decode drops malformed payloads with a log line; the error goes back to the client wrapper
func (c *MQTTConsumer) decode(topic string, payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		c.logger.Warn("Dropping malformed MQTT message",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return nil
}
