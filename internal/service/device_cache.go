package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/cache"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/metrics"

	"go.uber.org/zap"
)

const (
	deviceCacheKeyPrefix = "spl:device:"
	deviceGenKeyPrefix   = "spl:device-gen:"
)

// DeviceCache read-through cache of device documents. A nil kv disables it.
// Cache failures never fail the request.
//
// Every Invalidate bumps a per-device generation; a load only fills the
// cache if the generation it started from is still current, so a device
// read before a concurrent write is never stored after that write.
type DeviceCache struct {
	kv      cache.KV
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewDeviceCache(kv cache.KV, ttl time.Duration, m *metrics.Metrics, logger *zap.Logger) *DeviceCache {
	return &DeviceCache{kv: kv, ttl: ttl, metrics: m, logger: logger}
}

func deviceCacheKey(deviceID string) string {
	return deviceCacheKeyPrefix + deviceID
}

func deviceGenKey(deviceID string) string {
	return deviceGenKeyPrefix + deviceID
}

// Get returns the cached device or calls load and caches its result
func (c *DeviceCache) Get(ctx context.Context, deviceID string, load func(context.Context, string) (*domain.Device, error)) (*domain.Device, error) {
	if c == nil || c.kv == nil {
		return load(ctx, deviceID)
	}

	key := deviceCacheKey(deviceID)
	raw, err := c.kv.Get(ctx, key)
	switch {
	case err == nil:
		var d domain.Device
		if jerr := json.Unmarshal([]byte(raw), &d); jerr == nil {
			c.metrics.CacheHit()
			return &d, nil
		}
		c.logger.Warn("Dropping undecodable cached device", zap.String("device_id", deviceID))
	case !errors.Is(err, cache.ErrMiss):
		c.logger.Warn("Device cache read failed", zap.String("device_id", deviceID), zap.Error(err))
	}
	c.metrics.CacheMiss()

	genKey := deviceGenKey(deviceID)
	gen, genErr := c.kv.Get(ctx, genKey)
	if errors.Is(genErr, cache.ErrMiss) {
		gen, genErr = "0", nil
	}

	d, err := load(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		c.logger.Warn("Device cache generation read failed", zap.String("device_id", deviceID), zap.Error(genErr))
		return d, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return d, nil
	}
	stored, err := c.kv.SetIfUnchanged(ctx, key, string(b), c.ttl, genKey, gen)
	switch {
	case err != nil:
		c.logger.Warn("Device cache write failed", zap.String("device_id", deviceID), zap.Error(err))
	case !stored:
		c.logger.Debug("Skipped caching device invalidated during load", zap.String("device_id", deviceID))
	}
	return d, nil
}

func (c *DeviceCache) Invalidate(ctx context.Context, deviceID string) {
	if c == nil || c.kv == nil {
		return
	}
	if _, err := c.kv.Incr(ctx, deviceGenKey(deviceID)); err != nil {
		c.logger.Warn("Device cache generation bump failed", zap.String("device_id", deviceID), zap.Error(err))
	}
	if err := c.kv.Delete(ctx, deviceCacheKey(deviceID)); err != nil {
		c.logger.Warn("Device cache invalidation failed", zap.String("device_id", deviceID), zap.Error(err))
	}
}
