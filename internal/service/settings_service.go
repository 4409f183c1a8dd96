package service

import (
	"context"
	"time"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/mqtt"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/repository"

	"go.uber.org/zap"
)

// SettingsService device configuration relay between clients, store and devices
type SettingsService interface {
	// UpdateSettings persists the present fields and publishes them retained
	// to <prefix>/<id>/settings.
	UpdateSettings(ctx context.Context, deviceID string, patch SettingsPatch) (*UpdateSettingsResponse, error)
	UpdateStatus(ctx context.Context, deviceID, status string) (*UpdateStatusResponse, error)

	// Device-initiated variants, triggered from the bus
	HandleBusSettingsUpdate(ctx context.Context, deviceID string, patch SettingsPatch) (PublishResult, error)
	HandleBusStatusUpdate(ctx context.Context, deviceID, status string) (PublishResult, error)
}

type settingsService struct {
	devicesRepo repository.DevicesRepository
	notifier    *Notifier
	cache       *DeviceCache
	logger      *zap.Logger
}

func NewSettingsService(devicesRepo repository.DevicesRepository, notifier *Notifier, cache *DeviceCache, logger *zap.Logger) SettingsService {
	return &settingsService{
		devicesRepo: devicesRepo,
		notifier:    notifier,
		cache:       cache,
		logger:      logger,
	}
}

// UpdateSettingsResponse updateSettings result
type UpdateSettingsResponse struct {
	DeviceID string
	Applied  map[string]any
	Publish  PublishResult
}

// UpdateStatusResponse updateStatus result
type UpdateStatusResponse struct {
	DeviceID string
	Status   string
	Publish  PublishResult
}

type statusPayload struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type settingsConfirmPayload struct {
	DeviceID        string         `json:"deviceId"`
	Success         bool           `json:"success"`
	UpdatedSettings map[string]any `json:"updatedSettings,omitempty"`
	Error           string         `json:"error,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}

type statusConfirmPayload struct {
	DeviceID  string    `json:"deviceId"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *settingsService) UpdateSettings(ctx context.Context, deviceID string, patch SettingsPatch) (*UpdateSettingsResponse, error) {
	// 1. validate
	if deviceID == "" {
		return nil, domain.InvalidInputf("deviceId is required")
	}
	if patch.Empty() {
		return nil, domain.InvalidInputf("no settings provided")
	}

	// 2. persist; a missing device surfaces as ErrNotFound
	if err := s.devicesRepo.UpdateSettings(ctx, deviceID, patch.devicePatch()); err != nil {
		s.logger.Error("UpdateSettings failed", zap.String("device_id", deviceID), zap.Error(err))
		return nil, err
	}
	s.cache.Invalidate(ctx, deviceID)

	// 3. retained publish so a reconnecting device gets the latest settings
	applied := patch.Applied()
	payload := make(map[string]any, len(applied)+1)
	for k, v := range applied {
		payload[k] = v
	}
	payload["timestamp"] = s.notifier.Now()
	res := s.notifier.Publish(deviceID, mqtt.PurposeSettings, true, payload)

	s.logger.Info("Device settings updated",
		zap.String("device_id", deviceID),
		zap.Any("settings", applied),
		zap.Bool("published", res.OK()),
	)
	return &UpdateSettingsResponse{DeviceID: deviceID, Applied: applied, Publish: res}, nil
}

func (s *settingsService) UpdateStatus(ctx context.Context, deviceID, status string) (*UpdateStatusResponse, error) {
	if deviceID == "" {
		return nil, domain.InvalidInputf("deviceId is required")
	}
	if status == "" {
		return nil, domain.InvalidInputf("status is required")
	}
	normalized, ok := domain.NormalizeStatus(status)
	if !ok {
		return nil, domain.InvalidInputf("invalid status: %s (must be Active or Inactive)", status)
	}

	if _, err := s.devicesRepo.GetDevice(ctx, deviceID); err != nil {
		return nil, err
	}
	if err := s.devicesRepo.UpdateSettings(ctx, deviceID, repository.DevicePatch{Status: &normalized}); err != nil {
		s.logger.Error("UpdateStatus failed", zap.String("device_id", deviceID), zap.Error(err))
		return nil, err
	}
	s.cache.Invalidate(ctx, deviceID)

	res := s.notifier.Publish(deviceID, mqtt.PurposeSettings, true, statusPayload{
		Status:    normalized,
		Timestamp: s.notifier.Now(),
	})

	s.logger.Info("Device status updated",
		zap.String("device_id", deviceID),
		zap.String("status", normalized),
	)
	return &UpdateStatusResponse{DeviceID: deviceID, Status: normalized, Publish: res}, nil
}

// HandleBusSettingsUpdate persists settings a device reports as applied and
// answers on settings/confirm. The settings topic is not echoed.
func (s *settingsService) HandleBusSettingsUpdate(ctx context.Context, deviceID string, patch SettingsPatch) (PublishResult, error) {
	if patch.Empty() {
		return PublishResult{}, domain.InvalidInputf("no settings provided")
	}

	err := s.devicesRepo.UpdateSettings(ctx, deviceID, patch.devicePatch())
	confirm := settingsConfirmPayload{
		DeviceID:  deviceID,
		Success:   err == nil,
		Timestamp: s.notifier.Now(),
	}
	if err != nil {
		confirm.Error = err.Error()
		s.logger.Warn("Device settings update rejected", zap.String("device_id", deviceID), zap.Error(err))
	} else {
		confirm.UpdatedSettings = patch.Applied()
		s.cache.Invalidate(ctx, deviceID)
	}

	res := s.notifier.Publish(deviceID, mqtt.PurposeSettingsConfirm, false, confirm)
	return res, err
}

func (s *settingsService) HandleBusStatusUpdate(ctx context.Context, deviceID, status string) (PublishResult, error) {
	normalized, ok := domain.NormalizeStatus(status)
	if !ok {
		return PublishResult{}, domain.InvalidInputf("invalid status: %q", status)
	}

	patch := repository.DevicePatch{Status: &normalized, TouchLastSeen: true}
	if err := s.devicesRepo.UpdateSettings(ctx, deviceID, patch); err != nil {
		return PublishResult{}, err
	}
	s.cache.Invalidate(ctx, deviceID)

	res := s.notifier.Publish(deviceID, mqtt.PurposeStatusConfirm, false, statusConfirmPayload{
		DeviceID:  deviceID,
		Status:    normalized,
		Timestamp: s.notifier.Now(),
	})
	return res, nil
}
