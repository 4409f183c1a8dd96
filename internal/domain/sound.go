package domain

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// SoundIDWidth zero-padding of reading identifiers ("00001")
const SoundIDWidth = 5

// Sound one persisted reading (sounds table)
type Sound struct {
	SoundID        string      `json:"soundId"`
	DeviceID       string      `json:"deviceId"`
	SPLValue       float64     `json:"splValue"`
	CapturedAt     CaptureTime `json:"capturedAt"`
	AudioBase64    string      `json:"audio,omitempty"`
	AudioURL       string      `json:"audioUrl,omitempty"`
	Classification string      `json:"classification,omitempty"`
	MACAddress     string      `json:"macAddress,omitempty"`
	Verified       bool        `json:"verified"`
	VerifiedBy     string      `json:"verifiedBy,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// CaptureTime a timestamp decomposed into seconds and nanoseconds
type CaptureTime struct {
	Seconds     int64 `json:"seconds"`
	Nanoseconds int32 `json:"nanoseconds"`
}

func NewCaptureTime(t time.Time) CaptureTime {
	return CaptureTime{Seconds: t.Unix(), Nanoseconds: int32(t.Nanosecond())}
}

func (c CaptureTime) Time() time.Time {
	return time.Unix(c.Seconds, int64(c.Nanoseconds)).UTC()
}

// RoundSPL rounds a sound level to 2 decimals
func RoundSPL(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatSoundID zero-pads n to SoundIDWidth digits
func FormatSoundID(n int64) string {
	return fmt.Sprintf("%0*d", SoundIDWidth, n)
}

// ParseSoundID is the inverse of FormatSoundID
func ParseSoundID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, InvalidInputf("invalid sound id: %q", id)
	}
	return n, nil
}
