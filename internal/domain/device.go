package domain

import (
	"strings"
	"time"
)

// Device statuses
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// Record duration units. The unit is carried with the value because the
// device firmware and the web client disagree on it.
const (
	UnitSeconds = "seconds"
	UnitMinutes = "minutes"
)

// Device one physical sensor unit (devices table)
type Device struct {
	DeviceID     string  `json:"deviceId"`
	DeviceNumber int     `json:"deviceNumber"`
	MACAddress   *string `json:"macAddress,omitempty"`

	Name      string   `json:"name"`
	Location  string   `json:"location"`
	Address   Address  `json:"address"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	Status         string          `json:"status"`
	NoiseThreshold *float64        `json:"noiseThreshold,omitempty"`
	SamplingPeriod *float64        `json:"samplingPeriod,omitempty"`
	RecordDuration *RecordDuration `json:"recordDuration,omitempty"`

	LastSeen        *time.Time `json:"lastSeen,omitempty"`
	LastSPLValue    *float64   `json:"lastSPLValue,omitempty"`
	LastResults     *string    `json:"lastResults,omitempty"`
	LastRecordingID *string    `json:"lastRecordingId,omitempty"`

	AccessToken string  `json:"-"`
	APIKey      *string `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Address geocoded location components
type Address struct {
	Street      string `json:"street,omitempty"`
	Subdistrict string `json:"subdistrict,omitempty"`
	District    string `json:"district,omitempty"`
	Province    string `json:"province,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
}

// RecordDuration a duration value tagged with its unit
type RecordDuration struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// NormalizeMAC strips ':' and '-' separators and lower-cases. Idempotent.
func NormalizeMAC(mac string) string {
	mac = strings.TrimSpace(mac)
	mac = strings.NewReplacer(":", "", "-", "").Replace(mac)
	return strings.ToLower(mac)
}

// NormalizeStatus maps case-insensitive input onto Active/Inactive.
// ok is false for anything else.
func NormalizeStatus(status string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active":
		return StatusActive, true
	case "inactive":
		return StatusInactive, true
	default:
		return "", false
	}
}

// NormalizeUnit validates a record duration unit; empty returns def.
func NormalizeUnit(unit, def string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "":
		return def, true
	case "s", "sec", "second", UnitSeconds:
		return UnitSeconds, true
	case "m", "min", "minute", UnitMinutes:
		return UnitMinutes, true
	default:
		return "", false
	}
}
