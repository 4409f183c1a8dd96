package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, int64(10<<20), cfg.HTTP.MaxUploadBytes)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "spl", cfg.Database.Database)
	assert.True(t, cfg.Database.Migrate)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, "spl/device", cfg.MQTT.TopicPrefix)
	assert.Equal(t, "random", cfg.Classifier.Mode)
	assert.Equal(t, "redis", cfg.Events.Sink)
	assert.Equal(t, 30*time.Second, cfg.Cache.DeviceTTL)
	assert.Equal(t, "seconds", cfg.Devices.RecordDurationUnit)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Development)
	assert.True(t, cfg.Log.Sampling)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Empty(t, cfg.Auth.DevAPIKey)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DB_MIGRATE", "false")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("MQTT_QOS", "2")
	t.Setenv("MQTT_TOPIC_PREFIX", "noise/device/")
	t.Setenv("EVENTS_SINK", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("DEVICE_CACHE_TTL", "1m")
	t.Setenv("AUTH_DEV_API_KEY", "dev-key")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_DEVELOPMENT", "true")
	t.Setenv("LOG_SAMPLING", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.False(t, cfg.Database.Migrate)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, byte(2), cfg.MQTT.QoS)
	assert.Equal(t, "noise/device", cfg.MQTT.TopicPrefix)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, time.Minute, cfg.Cache.DeviceTTL)
	assert.Equal(t, "dev-key", cfg.Auth.DevAPIKey)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Development)
	assert.False(t, cfg.Log.Sampling)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("remote classifier without url", func(t *testing.T) {
		t.Setenv("CLASSIFIER_MODE", "remote")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("kafka sink without brokers", func(t *testing.T) {
		t.Setenv("EVENTS_SINK", "kafka")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("unknown record duration unit", func(t *testing.T) {
		t.Setenv("RECORD_DURATION_UNIT", "hours")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestGetDSN(t *testing.T) {
	c := DatabaseConfig{Host: "h", Port: 1, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=h port=1 user=u password=p dbname=d sslmode=disable", c.GetDSN())
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_VAR", "test-value")
	assert.Equal(t, "test-value", getEnv("TEST_VAR", "default"))
	assert.Equal(t, "default-value", getEnv("NON_EXISTENT_VAR", "default-value"))
}
