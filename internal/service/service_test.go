package service

import (
	"testing"
	"time"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/classifier"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/events"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/metrics"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/mqtt"

	"go.uber.org/zap"
)

type testEnv struct {
	devices *memDevices
	sounds  *memSounds
	bus     *fakeBus
	kv      *memKV
	topics  mqtt.Topics
	metrics *metrics.Metrics

	notifier   *Notifier
	cache      *DeviceCache
	registry   RegistryService
	ingestion  IngestionService
	settings   SettingsService
	deviceSvc  DeviceService
	soundSvc   SoundService
	classifier classifier.Classifier
}

func newTestEnv(t *testing.T, devices ...*domain.Device) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	env := &testEnv{
		devices:    newMemDevices(devices...),
		sounds:     newMemSounds(),
		bus:        newFakeBus(),
		kv:         newMemKV(),
		topics:     mqtt.NewTopics("spl/device"),
		metrics:    metrics.NewMetrics(),
		classifier: fixedClassifier{label: classifier.LabelJackhammer},
	}
	env.notifier = NewNotifier(env.bus, env.topics, 1, env.metrics, logger)
	env.notifier.now = func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }
	env.cache = NewDeviceCache(env.kv, time.Minute, env.metrics, logger)
	env.registry = NewRegistryService(env.devices, domain.UnitSeconds, logger)
	env.ingestion = NewIngestionService(env.devices, env.sounds, env.classifier, env.notifier, events.NopSink{}, env.cache, env.metrics, logger)
	env.settings = NewSettingsService(env.devices, env.notifier, env.cache, logger)
	env.deviceSvc = NewDeviceService(env.devices, env.cache, env.topics, domain.UnitSeconds, logger)
	env.soundSvc = NewSoundService(env.devices, env.sounds, logger)
	return env
}

func testDevice(id string, number int, mac, status string) *domain.Device {
	d := &domain.Device{
		DeviceID:     id,
		DeviceNumber: number,
		Name:         "Device " + id,
		Status:       status,
		CreatedAt:    time.Now().Add(-time.Hour),
		UpdatedAt:    time.Now().Add(-time.Hour),
	}
	if mac != "" {
		d.MACAddress = strp(mac)
	}
	return d
}
