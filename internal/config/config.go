package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
	Migrate  bool
}

// GetDSN builds the lib/pq connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig broker settings
type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	QoS         byte
	TopicPrefix string // e.g. "spl/device"
}

// LoadFromEnv overrides fields from <prefix>_HOST, <prefix>_PORT, ...
func (c *DatabaseConfig) LoadFromEnv(prefix string) {
	if host := os.Getenv(prefix + "_HOST"); host != "" {
		c.Host = host
	}
	if port := os.Getenv(prefix + "_PORT"); port != "" {
		c.Port = parseInt(port, c.Port)
	}
	if user := os.Getenv(prefix + "_USER"); user != "" {
		c.User = user
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if database := os.Getenv(prefix + "_NAME"); database != "" {
		c.Database = database
	}
	if sslMode := os.Getenv(prefix + "_SSLMODE"); sslMode != "" {
		c.SSLMode = sslMode
	}
	if maxConns := os.Getenv(prefix + "_MAX_CONNS"); maxConns != "" {
		c.MaxConns = parseInt(maxConns, c.MaxConns)
	}
	if maxIdle := os.Getenv(prefix + "_MAX_IDLE"); maxIdle != "" {
		c.MaxIdle = parseInt(maxIdle, c.MaxIdle)
	}
	if migrate := os.Getenv(prefix + "_MIGRATE"); migrate != "" {
		c.Migrate = migrate == "true"
	}
}

// LoadFromEnv overrides Redis fields from <prefix>_ADDR, <prefix>_PASSWORD, <prefix>_DB
func (c *RedisConfig) LoadFromEnv(prefix string) {
	if addr := os.Getenv(prefix + "_ADDR"); addr != "" {
		c.Addr = addr
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if db := os.Getenv(prefix + "_DB"); db != "" {
		c.DB = parseInt(db, c.DB)
	}
}

// LoadFromEnv overrides MQTT fields from <prefix>_BROKER, <prefix>_CLIENT_ID, ...
func (c *MQTTConfig) LoadFromEnv(prefix string) {
	if broker := os.Getenv(prefix + "_BROKER"); broker != "" {
		c.Broker = broker
	}
	if clientID := os.Getenv(prefix + "_CLIENT_ID"); clientID != "" {
		c.ClientID = clientID
	}
	if username := os.Getenv(prefix + "_USERNAME"); username != "" {
		c.Username = username
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		c.Password = password
	}
	if qos := os.Getenv(prefix + "_QOS"); qos != "" {
		if v, err := strconv.Atoi(qos); err == nil && v >= 0 && v <= 2 {
			c.QoS = byte(v)
		}
	}
	if prefixTopic := os.Getenv(prefix + "_TOPIC_PREFIX"); prefixTopic != "" {
		c.TopicPrefix = strings.TrimSuffix(prefixTopic, "/")
	}
}

// Config spl-relay configuration
type Config struct {
	HTTP struct {
		Addr           string
		MaxUploadBytes int64
	}
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	Classifier struct {
		Mode    string // "random" or "remote"
		URL     string
		Timeout time.Duration
	}

	Events struct {
		Sink         string // "redis", "kafka" or "none"
		Stream       string
		KafkaBrokers []string
		KafkaTopic   string
	}

	Auth struct {
		DevAPIKey string // empty disables the development key
	}

	Cache struct {
		DeviceTTL time.Duration
	}

	Devices struct {
		RecordDurationUnit string
	}

	Log struct {
		Level       string
		Format      string
		Development bool
		Sampling    bool
	}

	Metrics struct {
		Enabled bool
	}
}

// Load reads the configuration from the environment
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.HTTP.MaxUploadBytes = int64(parseInt(getEnv("HTTP_MAX_UPLOAD_BYTES", "10485760"), 10<<20))

	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "spl"
	cfg.Database.SSLMode = "disable"
	cfg.Database.MaxConns = 20
	cfg.Database.MaxIdle = 5
	cfg.Database.Migrate = true
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT.Broker = "tcp://localhost:1883"
	cfg.MQTT.ClientID = "spl-relay"
	cfg.MQTT.QoS = 1
	cfg.MQTT.TopicPrefix = "spl/device"
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.Classifier.Mode = getEnv("CLASSIFIER_MODE", "random")
	cfg.Classifier.URL = getEnv("CLASSIFIER_URL", "")
	cfg.Classifier.Timeout = parseDuration(getEnv("CLASSIFIER_TIMEOUT", "10s"), 10*time.Second)
	if cfg.Classifier.Mode != "random" && cfg.Classifier.Mode != "remote" {
		return nil, fmt.Errorf("invalid CLASSIFIER_MODE: %s (must be 'random' or 'remote')", cfg.Classifier.Mode)
	}
	if cfg.Classifier.Mode == "remote" && cfg.Classifier.URL == "" {
		return nil, fmt.Errorf("CLASSIFIER_URL is required when CLASSIFIER_MODE=remote")
	}

	cfg.Events.Sink = getEnv("EVENTS_SINK", "redis")
	cfg.Events.Stream = getEnv("EVENTS_STREAM", "spl:readings:stream")
	cfg.Events.KafkaBrokers = splitList(getEnv("KAFKA_BROKERS", ""))
	cfg.Events.KafkaTopic = getEnv("KAFKA_TOPIC", "spl.readings")
	switch cfg.Events.Sink {
	case "redis", "none":
	case "kafka":
		if len(cfg.Events.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("KAFKA_BROKERS is required when EVENTS_SINK=kafka")
		}
	default:
		return nil, fmt.Errorf("invalid EVENTS_SINK: %s", cfg.Events.Sink)
	}

	cfg.Auth.DevAPIKey = getEnv("AUTH_DEV_API_KEY", "")
	cfg.Cache.DeviceTTL = parseDuration(getEnv("DEVICE_CACHE_TTL", "30s"), 30*time.Second)

	cfg.Devices.RecordDurationUnit = getEnv("RECORD_DURATION_UNIT", "seconds")
	if cfg.Devices.RecordDurationUnit != "seconds" && cfg.Devices.RecordDurationUnit != "minutes" {
		return nil, fmt.Errorf("invalid RECORD_DURATION_UNIT: %s", cfg.Devices.RecordDurationUnit)
	}

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")
	cfg.Log.Development = getEnv("LOG_DEVELOPMENT", "false") == "true"
	cfg.Log.Sampling = getEnv("LOG_SAMPLING", "true") == "true"
	cfg.Metrics.Enabled = getEnv("METRICS_ENABLED", "true") == "true"

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
