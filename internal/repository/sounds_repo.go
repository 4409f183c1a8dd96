package repository

import (
	"context"
	"time"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"
)

// SoundsRepository reading persistence
type SoundsRepository interface {
	// CreateSound allocates the next sequential id, stores s under it and
	// returns the id. s.SoundID is set on success.
	CreateSound(ctx context.Context, s *domain.Sound) (string, error)
	GetSound(ctx context.Context, soundID string) (*domain.Sound, error)
	ListDeviceSounds(ctx context.Context, deviceID string, q SoundQuery) ([]*domain.Sound, error)
	VerifySound(ctx context.Context, soundID string, v SoundVerification) error
}

// SoundQuery history filter; zero times are open bounds
type SoundQuery struct {
	From  time.Time
	To    time.Time
	Limit int
}

// SoundVerification human review of a reading
type SoundVerification struct {
	Verified       bool
	VerifiedBy     string
	Classification *string
}
