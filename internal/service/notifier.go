package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/metrics"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/mqtt"

	"go.uber.org/zap"
)

// PublishResult outcome of a best-effort bus publish. Callers may ignore it;
// failures are already logged and counted.
type PublishResult struct {
	Topic    string
	Retained bool
	Err      error
}

func (r PublishResult) OK() bool { return r.Err == nil }

// Notifier publishes JSON payloads to device topics
type Notifier struct {
	bus     mqtt.Publisher
	topics  mqtt.Topics
	qos     byte
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewNotifier(bus mqtt.Publisher, topics mqtt.Topics, qos byte, m *metrics.Metrics, logger *zap.Logger) *Notifier {
	return &Notifier{
		bus:     bus,
		topics:  topics,
		qos:     qos,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Now send timestamp for payloads
func (n *Notifier) Now() time.Time {
	return n.now().UTC()
}

// Publish marshals payload and publishes it to <prefix>/<deviceID>/<purpose>
func (n *Notifier) Publish(deviceID, purpose string, retained bool, payload any) PublishResult {
	res := PublishResult{Topic: n.topics.Device(deviceID, purpose), Retained: retained}

	b, err := json.Marshal(payload)
	if err != nil {
		res.Err = fmt.Errorf("failed to marshal %s payload: %w", purpose, err)
	} else if n.bus == nil {
		res.Err = fmt.Errorf("message bus not configured")
	} else {
		res.Err = n.bus.Publish(res.Topic, n.qos, retained, b)
	}

	if res.Err != nil {
		n.metrics.PublishFailed(purpose)
		n.logger.Warn("Bus publish failed",
			zap.String("topic", res.Topic),
			zap.Bool("retained", retained),
			zap.Error(res.Err),
		)
		return res
	}

	n.logger.Debug("Bus publish", zap.String("topic", res.Topic), zap.Bool("retained", retained))
	return res
}
