package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/mqtt"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/repository"

	"go.uber.org/zap"
)

// DeviceService device management for the web client
type DeviceService interface {
	ListDevices(ctx context.Context) ([]*domain.Device, error)
	GetDevice(ctx context.Context, deviceID string) (*domain.Device, error)
	RegisterDevice(ctx context.Context, req RegisterDeviceRequest) (*RegisterDeviceResponse, error)
	DeleteDevice(ctx context.Context, deviceID string) error
}

type deviceService struct {
	devicesRepo repository.DevicesRepository
	cache       *DeviceCache
	topics      mqtt.Topics
	recordUnit  string
	logger      *zap.Logger
}

func NewDeviceService(devicesRepo repository.DevicesRepository, cache *DeviceCache, topics mqtt.Topics, recordUnit string, logger *zap.Logger) DeviceService {
	return &deviceService{
		devicesRepo: devicesRepo,
		cache:       cache,
		topics:      topics,
		recordUnit:  recordUnit,
		logger:      logger,
	}
}

// RegisterDeviceRequest UI registration
type RegisterDeviceRequest struct {
	Name       string         `json:"name"`
	Location   string         `json:"location"`
	Address    domain.Address `json:"address"`
	Latitude   *float64       `json:"latitude"`
	Longitude  *float64       `json:"longitude"`
	MACAddress string         `json:"macAddress"`
	// Settings holds the optional initial configuration
	Settings SettingsPatch `json:"-"`
}

// RegisterDeviceResponse the new device and its credentials
type RegisterDeviceResponse struct {
	Device      *domain.Device
	APIKey      string
	AccessToken string
	Docs        APIKeyDocs
}

// APIKeyDocs usage notes handed to whoever flashes the device
type APIKeyDocs struct {
	APIKey         string            `json:"apiKey"`
	Header         string            `json:"header"`
	UploadEndpoint string            `json:"uploadEndpoint"`
	Topics         map[string]string `json:"topics"`
	Example        string            `json:"example"`
}

func (s *deviceService) ListDevices(ctx context.Context) ([]*domain.Device, error) {
	devices, err := s.devicesRepo.ListDevices(ctx)
	if err != nil {
		s.logger.Error("ListDevices failed", zap.Error(err))
		return nil, err
	}
	if devices == nil {
		devices = []*domain.Device{}
	}
	return devices, nil
}

func (s *deviceService) GetDevice(ctx context.Context, deviceID string) (*domain.Device, error) {
	if deviceID == "" {
		return nil, domain.InvalidInputf("deviceId is required")
	}
	return s.cache.Get(ctx, deviceID, s.devicesRepo.GetDevice)
}

func (s *deviceService) RegisterDevice(ctx context.Context, req RegisterDeviceRequest) (*RegisterDeviceResponse, error) {
	// 1. validate
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.InvalidInputf("name is required")
	}
	if req.Latitude != nil && (*req.Latitude < -90 || *req.Latitude > 90) {
		return nil, domain.InvalidInputf("latitude out of range")
	}
	if req.Longitude != nil && (*req.Longitude < -180 || *req.Longitude > 180) {
		return nil, domain.InvalidInputf("longitude out of range")
	}

	d := &domain.Device{
		Name:           name,
		Location:       strings.TrimSpace(req.Location),
		Address:        req.Address,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		Status:         domain.StatusActive,
		NoiseThreshold: req.Settings.NoiseThreshold,
		SamplingPeriod: req.Settings.SamplingPeriod,
	}
	if req.Settings.Status != nil {
		d.Status = *req.Settings.Status
	}
	if req.Settings.RecordDuration != nil {
		unit := s.recordUnit
		if req.Settings.RecordDurationUnit != nil {
			unit = *req.Settings.RecordDurationUnit
		}
		d.RecordDuration = &domain.RecordDuration{Value: *req.Settings.RecordDuration, Unit: unit}
	}
	if strings.TrimSpace(req.MACAddress) != "" {
		mac := domain.NormalizeMAC(req.MACAddress)
		if mac == "" {
			return nil, domain.InvalidInputf("invalid macAddress")
		}
		d.MACAddress = &mac
	}

	// 2. credentials
	creds := NewDeviceCredentials()
	d.AccessToken = creds.AccessToken
	d.APIKey = &creds.APIKey

	// 3. insert under the next device number
	created, err := s.devicesRepo.CreateDevice(ctx, d)
	if err != nil {
		s.logger.Error("RegisterDevice failed", zap.String("name", name), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Device registered",
		zap.String("device_id", created.DeviceID),
		zap.String("name", created.Name),
	)
	return &RegisterDeviceResponse{
		Device:      created,
		APIKey:      creds.APIKey,
		AccessToken: creds.AccessToken,
		Docs:        s.apiKeyDocs(created.DeviceID, creds.APIKey),
	}, nil
}

func (s *deviceService) DeleteDevice(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return domain.InvalidInputf("deviceId is required")
	}
	if err := s.devicesRepo.DeleteDevice(ctx, deviceID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, deviceID)
	s.logger.Info("Device deleted", zap.String("device_id", deviceID))
	return nil
}

func (s *deviceService) apiKeyDocs(deviceID, apiKey string) APIKeyDocs {
	upload := fmt.Sprintf("/api/recordings/upload/%s?spl_value=<dB>", deviceID)
	return APIKeyDocs{
		APIKey:         apiKey,
		Header:         "X-API-Key",
		UploadEndpoint: upload,
		Topics: map[string]string{
			"data":       s.topics.Device(deviceID, mqtt.PurposeData),
			"status":     s.topics.Device(deviceID, mqtt.PurposeStatus),
			"settings":   s.topics.Device(deviceID, mqtt.PurposeSettings),
			"prediction": s.topics.Device(deviceID, mqtt.PurposePrediction),
		},
		Example: fmt.Sprintf(
			"curl -X POST -H 'X-API-Key: %s' -H 'Content-Type: audio/wav' --data-binary @clip.wav '%s'",
			apiKey, strings.Replace(upload, "<dB>", "65.5", 1)),
	}
}
