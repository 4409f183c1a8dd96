package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/classifier"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/repository"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Sound history limits
const (
	DefaultSoundLimit = 100
	MaxSoundLimit     = 1000
)

// SoundExportHeader column order of the xlsx export
var SoundExportHeader = []string{
	"Recording ID",
	"Device ID",
	"Captured At",
	"SPL (dB)",
	"Classification",
	"Verified",
	"Verified By",
}

// SoundService reading history and human verification
type SoundService interface {
	ListDeviceSounds(ctx context.Context, req ListSoundsRequest) ([]*domain.Sound, error)
	GetSound(ctx context.Context, soundID string) (*domain.Sound, error)
	VerifySound(ctx context.Context, req VerifySoundRequest) (*domain.Sound, error)
	ExportDeviceSounds(ctx context.Context, req ListSoundsRequest) ([]byte, error)
}

type soundService struct {
	devicesRepo repository.DevicesRepository
	soundsRepo  repository.SoundsRepository
	logger      *zap.Logger
}

func NewSoundService(devicesRepo repository.DevicesRepository, soundsRepo repository.SoundsRepository, logger *zap.Logger) SoundService {
	return &soundService{
		devicesRepo: devicesRepo,
		soundsRepo:  soundsRepo,
		logger:      logger,
	}
}

// ListSoundsRequest history window; zero From/To are open, Limit is clamped
type ListSoundsRequest struct {
	DeviceID string
	From     time.Time
	To       time.Time
	Limit    int
}

// VerifySoundRequest review of one reading
type VerifySoundRequest struct {
	SoundID        string
	Verified       bool
	VerifiedBy     string
	Classification *string
}

func (s *soundService) ListDeviceSounds(ctx context.Context, req ListSoundsRequest) ([]*domain.Sound, error) {
	if req.DeviceID == "" {
		return nil, domain.InvalidInputf("deviceId is required")
	}
	if !req.From.IsZero() && !req.To.IsZero() && req.To.Before(req.From) {
		return nil, domain.InvalidInputf("to must not be before from")
	}
	if _, err := s.devicesRepo.GetDevice(ctx, req.DeviceID); err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultSoundLimit
	}
	if limit > MaxSoundLimit {
		limit = MaxSoundLimit
	}

	sounds, err := s.soundsRepo.ListDeviceSounds(ctx, req.DeviceID, repository.SoundQuery{
		From:  req.From,
		To:    req.To,
		Limit: limit,
	})
	if err != nil {
		s.logger.Error("ListDeviceSounds failed", zap.String("device_id", req.DeviceID), zap.Error(err))
		return nil, err
	}
	if sounds == nil {
		sounds = []*domain.Sound{}
	}
	return sounds, nil
}

func (s *soundService) GetSound(ctx context.Context, soundID string) (*domain.Sound, error) {
	if _, err := domain.ParseSoundID(soundID); err != nil {
		return nil, err
	}
	return s.soundsRepo.GetSound(ctx, soundID)
}

func (s *soundService) VerifySound(ctx context.Context, req VerifySoundRequest) (*domain.Sound, error) {
	if _, err := domain.ParseSoundID(req.SoundID); err != nil {
		return nil, err
	}
	if req.Classification != nil && !classifier.IsLabel(*req.Classification) {
		return nil, domain.InvalidInputf("invalid classification: %s (must be one of %s)",
			*req.Classification, strings.Join(classifier.Labels, ", "))
	}
	verifiedBy := strings.TrimSpace(req.VerifiedBy)
	if req.Verified && verifiedBy == "" {
		return nil, domain.InvalidInputf("verifiedBy is required")
	}
	if !req.Verified {
		verifiedBy = ""
	}

	err := s.soundsRepo.VerifySound(ctx, req.SoundID, repository.SoundVerification{
		Verified:       req.Verified,
		VerifiedBy:     verifiedBy,
		Classification: req.Classification,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Recording verification updated",
		zap.String("sound_id", req.SoundID),
		zap.Bool("verified", req.Verified),
		zap.String("verified_by", verifiedBy),
	)
	return s.soundsRepo.GetSound(ctx, req.SoundID)
}

func (s *soundService) ExportDeviceSounds(ctx context.Context, req ListSoundsRequest) ([]byte, error) {
	if req.Limit <= 0 {
		req.Limit = MaxSoundLimit
	}
	sounds, err := s.ListDeviceSounds(ctx, req)
	if err != nil {
		return nil, err
	}
	return GenerateSoundExport(sounds)
}

// GenerateSoundExport renders sounds as a single-sheet xlsx workbook
func GenerateSoundExport(sounds []*domain.Sound) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Sounds"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range SoundExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}
	if err := f.SetColWidth(sheetName, "A", "G", 18); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	for i, snd := range sounds {
		verified := "No"
		if snd.Verified {
			verified = "Yes"
		}
		row := []any{
			snd.SoundID,
			snd.DeviceID,
			snd.CapturedAt.Time().Format(time.RFC3339),
			snd.SPLValue,
			snd.Classification,
			verified,
			snd.VerifiedBy,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
