package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/classifier"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/events"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/metrics"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/mqtt"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/repository"

	"go.uber.org/zap"
)

// Ingestion sources
const (
	SourceHTTP = "http"
	SourceMQTT = "mqtt"
)

// IngestionService persists readings arriving over HTTP or the bus
type IngestionService interface {
	IngestHTTPUpload(ctx context.Context, req UploadRequest) (*UploadResponse, error)
	// IngestBusReading ignores (logs) messages lacking ids or naming unknown devices.
	IngestBusReading(ctx context.Context, req BusReading) error
}

type ingestionService struct {
	devicesRepo repository.DevicesRepository
	soundsRepo  repository.SoundsRepository
	classifier  classifier.Classifier
	notifier    *Notifier
	sink        events.Sink
	cache       *DeviceCache
	metrics     *metrics.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

func NewIngestionService(
	devicesRepo repository.DevicesRepository,
	soundsRepo repository.SoundsRepository,
	cls classifier.Classifier,
	notifier *Notifier,
	sink events.Sink,
	cache *DeviceCache,
	m *metrics.Metrics,
	logger *zap.Logger,
) IngestionService {
	if sink == nil {
		sink = events.NopSink{}
	}
	return &ingestionService{
		devicesRepo: devicesRepo,
		soundsRepo:  soundsRepo,
		classifier:  cls,
		notifier:    notifier,
		sink:        sink,
		cache:       cache,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}
}

// UploadRequest one HTTP audio upload
type UploadRequest struct {
	DeviceID string
	SPLValue float64
	Audio    []byte
}

// UploadResponse recording id and the top label
type UploadResponse struct {
	RecordingID    string
	Results        string
	Classification *classifier.Classification
	Publish        PublishResult
}

// BusReading payload of a .../data message
type BusReading struct {
	DeviceID   string
	MACAddress string
	SPLValue   *float64
}

type predictionPayload struct {
	DeviceID    string                  `json:"deviceId"`
	RecordingID string                  `json:"recordingId"`
	SPLValue    float64                 `json:"splValue"`
	Results     string                  `json:"results"`
	Confidence  float64                 `json:"confidence"`
	Predictions []classifier.Prediction `json:"predictions"`
	Timestamp   time.Time               `json:"timestamp"`
}

func (s *ingestionService) IngestHTTPUpload(ctx context.Context, req UploadRequest) (*UploadResponse, error) {
	// 1. device must exist; nothing is written otherwise
	if req.DeviceID == "" {
		return nil, domain.InvalidInputf("deviceId is required")
	}
	if len(req.Audio) == 0 {
		return nil, domain.InvalidInputf("No audio data received")
	}
	device, err := s.devicesRepo.GetDevice(ctx, req.DeviceID)
	if err != nil {
		return nil, err
	}

	// 2-3. inline audio + classification
	encoded := base64.StdEncoding.EncodeToString(req.Audio)
	start := time.Now()
	result, err := s.classifier.Classify(ctx, req.Audio)
	s.metrics.ObserveClassification(time.Since(start))
	if err != nil {
		s.logger.Error("Classification failed", zap.String("device_id", req.DeviceID), zap.Error(err))
		return nil, err
	}

	// 4-5. id allocation + insert (one transaction)
	capturedAt := s.now()
	sound := &domain.Sound{
		DeviceID:       device.DeviceID,
		SPLValue:       domain.RoundSPL(req.SPLValue),
		CapturedAt:     domain.NewCaptureTime(capturedAt),
		AudioBase64:    encoded,
		Classification: result.Label,
	}
	if device.MACAddress != nil {
		sound.MACAddress = *device.MACAddress
	}
	recordingID, err := s.soundsRepo.CreateSound(ctx, sound)
	if err != nil {
		s.logger.Error("Failed to store recording", zap.String("device_id", req.DeviceID), zap.Error(err))
		return nil, err
	}

	// 6. device state
	label := result.Label
	if err := s.devicesRepo.RecordReading(ctx, device.DeviceID, repository.ReadingUpdate{
		SPLValue:    sound.SPLValue,
		Results:     &label,
		RecordingID: &recordingID,
	}); err != nil {
		s.logger.Error("Failed to update device after upload",
			zap.String("device_id", req.DeviceID),
			zap.String("recording_id", recordingID),
			zap.Error(err),
		)
		return nil, err
	}
	s.cache.Invalidate(ctx, device.DeviceID)
	s.metrics.ReadingIngested(SourceHTTP)

	// 7. best-effort notification
	res := s.notifier.Publish(device.DeviceID, mqtt.PurposePrediction, false, predictionPayload{
		DeviceID:    device.DeviceID,
		RecordingID: recordingID,
		SPLValue:    sound.SPLValue,
		Results:     result.Label,
		Confidence:  result.Confidence,
		Predictions: result.Predictions,
		Timestamp:   s.notifier.Now(),
	})

	// 8. fan-out
	s.emit(ctx, sound, SourceHTTP, capturedAt)

	s.logger.Info("Recording ingested",
		zap.String("device_id", device.DeviceID),
		zap.String("recording_id", recordingID),
		zap.Float64("spl_value", sound.SPLValue),
		zap.String("results", result.Label),
		zap.Int("audio_bytes", len(req.Audio)),
	)

	return &UploadResponse{
		RecordingID:    recordingID,
		Results:        result.Label,
		Classification: result,
		Publish:        res,
	}, nil
}

func (s *ingestionService) IngestBusReading(ctx context.Context, req BusReading) error {
	if strings.TrimSpace(req.DeviceID) == "" || strings.TrimSpace(req.MACAddress) == "" {
		s.logger.Warn("Ignoring data message without deviceId or macAddress",
			zap.String("device_id", req.DeviceID),
			zap.String("mac_address", req.MACAddress),
		)
		return nil
	}

	device, err := s.devicesRepo.GetDevice(ctx, req.DeviceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("Ignoring data message for unknown device", zap.String("device_id", req.DeviceID))
			return nil
		}
		return err
	}

	mac := domain.NormalizeMAC(req.MACAddress)
	if device.MACAddress != nil && *device.MACAddress != mac {
		s.logger.Warn("Data message MAC differs from registered MAC",
			zap.String("device_id", device.DeviceID),
			zap.String("registered_mac", *device.MACAddress),
			zap.String("message_mac", mac),
		)
	}

	if req.SPLValue == nil {
		if err := s.devicesRepo.TouchLastSeen(ctx, device.DeviceID); err != nil {
			return err
		}
		s.cache.Invalidate(ctx, device.DeviceID)
		return nil
	}

	capturedAt := s.now()
	sound := &domain.Sound{
		DeviceID:   device.DeviceID,
		SPLValue:   domain.RoundSPL(*req.SPLValue),
		CapturedAt: domain.NewCaptureTime(capturedAt),
		MACAddress: mac,
	}
	recordingID, err := s.soundsRepo.CreateSound(ctx, sound)
	if err != nil {
		return err
	}
	if err := s.devicesRepo.RecordReading(ctx, device.DeviceID, repository.ReadingUpdate{SPLValue: sound.SPLValue}); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, device.DeviceID)
	s.metrics.ReadingIngested(SourceMQTT)
	s.emit(ctx, sound, SourceMQTT, capturedAt)

	s.logger.Debug("Bus reading stored",
		zap.String("device_id", device.DeviceID),
		zap.String("recording_id", recordingID),
		zap.Float64("spl_value", sound.SPLValue),
	)
	return nil
}

func (s *ingestionService) emit(ctx context.Context, sound *domain.Sound, source string, capturedAt time.Time) {
	err := s.sink.Emit(ctx, events.ReadingEvent{
		DeviceID:       sound.DeviceID,
		RecordingID:    sound.SoundID,
		SPLValue:       sound.SPLValue,
		Classification: sound.Classification,
		Source:         source,
		CapturedAt:     capturedAt.UTC(),
	})
	if err != nil {
		s.logger.Warn("Reading event not delivered",
			zap.String("device_id", sound.DeviceID),
			zap.String("recording_id", sound.SoundID),
			zap.Error(err),
		)
	}
}
