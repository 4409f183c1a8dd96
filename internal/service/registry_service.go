package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RegistryService maps hardware MAC addresses to device ids
type RegistryService interface {
	// ResolveDevice returns the id of the device with this MAC, registering
	// a new Active device on first contact.
	ResolveDevice(ctx context.Context, macAddress string) (string, error)
}

type registryService struct {
	devicesRepo repository.DevicesRepository
	recordUnit  string
	logger      *zap.Logger
}

// NewRegistryService recordUnit is the record_duration_unit given to new devices
func NewRegistryService(devicesRepo repository.DevicesRepository, recordUnit string, logger *zap.Logger) RegistryService {
	return &registryService{
		devicesRepo: devicesRepo,
		recordUnit:  recordUnit,
		logger:      logger,
	}
}

func (s *registryService) ResolveDevice(ctx context.Context, macAddress string) (string, error) {
	mac := domain.NormalizeMAC(macAddress)
	if mac == "" {
		return "", domain.InvalidInputf("macAddress is required")
	}

	d, err := s.devicesRepo.GetDeviceByMAC(ctx, mac)
	if err == nil {
		return d.DeviceID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}

	deviceID, created, err := s.devicesRepo.CreateDeviceForMAC(ctx, mac, NewDeviceCredentials(), s.recordUnit)
	if err != nil {
		s.logger.Error("Failed to register device",
			zap.String("mac_address", mac),
			zap.Error(err),
		)
		return "", err
	}
	if created {
		s.logger.Info("Registered new device on first contact",
			zap.String("mac_address", mac),
			zap.String("device_id", deviceID),
		)
	}
	return deviceID, nil
}

// NewDeviceCredentials fresh access token and API key
func NewDeviceCredentials() repository.DeviceCredentials {
	return repository.DeviceCredentials{
		AccessToken: uuid.NewString(),
		APIKey:      "spl_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
	}
}
