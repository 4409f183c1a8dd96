package repository

import (
	"context"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"
)

// DevicesRepository device persistence
type DevicesRepository interface {
	ListDevices(ctx context.Context) ([]*domain.Device, error)
	GetDevice(ctx context.Context, deviceID string) (*domain.Device, error)
	GetDeviceByMAC(ctx context.Context, mac string) (*domain.Device, error)
	GetDeviceByAPIKey(ctx context.Context, apiKey string) (*domain.Device, error)

	// CreateDevice allocates the next device number and inserts d (UI registration).
	CreateDevice(ctx context.Context, d *domain.Device) (*domain.Device, error)

	// CreateDeviceForMAC allocates the next device number and inserts an Active
	// device for mac. If another writer registered mac first, its id is returned
	// with created=false.
	CreateDeviceForMAC(ctx context.Context, mac string, creds DeviceCredentials, unit string) (deviceID string, created bool, err error)

	// UpdateSettings writes only the non-nil fields of patch and stamps updated_at.
	UpdateSettings(ctx context.Context, deviceID string, patch DevicePatch) error

	// RecordReading refreshes last_seen and the last reading fields.
	RecordReading(ctx context.Context, deviceID string, update ReadingUpdate) error

	TouchLastSeen(ctx context.Context, deviceID string) error
	DeleteDevice(ctx context.Context, deviceID string) error
}

// DeviceCredentials generated secrets for a new device
type DeviceCredentials struct {
	AccessToken string
	APIKey      string
}

// DevicePatch partial device update; nil fields are left unchanged
type DevicePatch struct {
	NoiseThreshold     *float64
	SamplingPeriod     *float64
	RecordDuration     *float64
	RecordDurationUnit *string
	Status             *string
	TouchLastSeen      bool
}

// Empty reports whether the patch carries no field besides timestamps
func (p DevicePatch) Empty() bool {
	return p.NoiseThreshold == nil && p.SamplingPeriod == nil && p.RecordDuration == nil &&
		p.RecordDurationUnit == nil && p.Status == nil
}

// ReadingUpdate device fields refreshed by every ingested reading
type ReadingUpdate struct {
	SPLValue    float64
	Results     *string
	RecordingID *string
}
