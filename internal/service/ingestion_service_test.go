package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/classifier"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIngestHTTPUpload_Device3(t *testing.T) {
	env := newTestEnv(t, testDevice("3", 3, "aabbccddeeff", domain.StatusActive))
	ctx := context.Background()
	audio := []byte("RIFF....WAVEfmt ")

	resp, err := env.ingestion.IngestHTTPUpload(ctx, UploadRequest{DeviceID: "3", SPLValue: 90.5, Audio: audio})
	require.NoError(t, err)

	assert.Len(t, resp.RecordingID, 5)
	assert.Equal(t, "00001", resp.RecordingID)
	assert.True(t, classifier.IsLabel(resp.Results))
	assert.True(t, resp.Publish.OK())

	d, err := env.devices.GetDevice(ctx, "3")
	require.NoError(t, err)
	require.NotNil(t, d.LastSPLValue)
	assert.Equal(t, 90.5, *d.LastSPLValue)
	assert.Equal(t, resp.Results, *d.LastResults)
	assert.Equal(t, resp.RecordingID, *d.LastRecordingID)
	assert.NotNil(t, d.LastSeen)

	s, err := env.sounds.GetSound(ctx, resp.RecordingID)
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(audio), s.AudioBase64)
	assert.Equal(t, "aabbccddeeff", s.MACAddress)
	assert.Equal(t, resp.Results, s.Classification)
	assert.NotZero(t, s.CapturedAt.Seconds)

	msgs := env.bus.on("spl/device/3/prediction")
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].Retained)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &payload))
	assert.Equal(t, "3", payload["deviceId"])
	assert.Equal(t, "00001", payload["recordingId"])
	assert.Equal(t, 90.5, payload["splValue"])
	assert.Equal(t, resp.Results, payload["results"])
	assert.Contains(t, payload, "timestamp")
	assert.Len(t, payload["predictions"], len(classifier.Labels))
}

func TestIngestHTTPUpload_RealRandomClassifier(t *testing.T) {
	env := newTestEnv(t, testDevice("3", 3, "", domain.StatusActive))
	svc := NewIngestionService(env.devices, env.sounds, classifier.NewRandomClassifier(nil),
		env.notifier, nil, env.cache, env.metrics, zap.NewNop())

	resp, err := svc.IngestHTTPUpload(context.Background(), UploadRequest{DeviceID: "3", SPLValue: 70.126, Audio: []byte{1}})
	require.NoError(t, err)
	assert.True(t, classifier.IsLabel(resp.Results))

	s, err := env.sounds.GetSound(context.Background(), resp.RecordingID)
	require.NoError(t, err)
	assert.Equal(t, 70.13, s.SPLValue)
}

func TestIngestHTTPUpload_UnknownDeviceWritesNothing(t *testing.T) {
	env := newTestEnv(t, testDevice("1", 1, "aa", domain.StatusActive))

	_, err := env.ingestion.IngestHTTPUpload(context.Background(), UploadRequest{DeviceID: "42", SPLValue: 60, Audio: []byte{1, 2}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, env.sounds.count())
	assert.Zero(t, env.devices.writeCount())
	assert.Empty(t, env.bus.messages)
}

func TestIngestHTTPUpload_EmptyAudio(t *testing.T) {
	env := newTestEnv(t, testDevice("1", 1, "", domain.StatusActive))
	_, err := env.ingestion.IngestHTTPUpload(context.Background(), UploadRequest{DeviceID: "1", SPLValue: 60})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestHTTPUpload_SequentialIDs(t *testing.T) {
	env := newTestEnv(t, testDevice("1", 1, "", domain.StatusActive), testDevice("2", 2, "", domain.StatusActive))
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		deviceID := fmt.Sprint(1 + i%2)
		resp, err := env.ingestion.IngestHTTPUpload(ctx, UploadRequest{DeviceID: deviceID, SPLValue: 50, Audio: []byte{byte(i)}})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("%05d", i), resp.RecordingID)
	}
}

func TestIngestHTTPUpload_PublishFailureNotSurfaced(t *testing.T) {
	env := newTestEnv(t, testDevice("3", 3, "", domain.StatusActive))
	env.bus.err = errors.New("not connected")

	resp, err := env.ingestion.IngestHTTPUpload(context.Background(), UploadRequest{DeviceID: "3", SPLValue: 61, Audio: []byte{1}})
	require.NoError(t, err)
	assert.False(t, resp.Publish.OK())
	assert.Equal(t, "spl/device/3/prediction", resp.Publish.Topic)
	assert.Equal(t, 1, env.sounds.count())
}

func TestIngestHTTPUpload_ClassifierAndStoreFailures(t *testing.T) {
	env := newTestEnv(t, testDevice("3", 3, "", domain.StatusActive))
	svc := NewIngestionService(env.devices, env.sounds, fixedClassifier{err: domain.Upstream("classifier", errors.New("down"))},
		env.notifier, nil, env.cache, env.metrics, zap.NewNop())
	_, err := svc.IngestHTTPUpload(context.Background(), UploadRequest{DeviceID: "3", SPLValue: 61, Audio: []byte{1}})
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Zero(t, env.sounds.count())

	env.sounds.err = domain.Upstream("failed to insert sound", errStoreDown)
	_, err = env.ingestion.IngestHTTPUpload(context.Background(), UploadRequest{DeviceID: "3", SPLValue: 61, Audio: []byte{1}})
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.ErrorContains(t, err, "store unavailable")
}

func TestIngestBusReading_StoresRoundedReading(t *testing.T) {
	env := newTestEnv(t, testDevice("4", 4, "aabbcc", domain.StatusActive))
	ctx := context.Background()

	err := env.ingestion.IngestBusReading(ctx, BusReading{DeviceID: "4", MACAddress: "AA:BB:CC", SPLValue: f64p(65.1289)})
	require.NoError(t, err)

	s, err := env.sounds.GetSound(ctx, "00001")
	require.NoError(t, err)
	assert.Equal(t, 65.13, s.SPLValue)
	assert.Empty(t, s.AudioBase64)
	assert.Empty(t, s.Classification)
	assert.Equal(t, "aabbcc", s.MACAddress)

	d, _ := env.devices.GetDevice(ctx, "4")
	assert.Equal(t, 65.13, *d.LastSPLValue)
	assert.Nil(t, d.LastResults)
	assert.Empty(t, env.bus.messages)
}

func TestIngestBusReading_Ignored(t *testing.T) {
	env := newTestEnv(t, testDevice("4", 4, "aabbcc", domain.StatusActive))
	ctx := context.Background()

	require.NoError(t, env.ingestion.IngestBusReading(ctx, BusReading{MACAddress: "aabbcc", SPLValue: f64p(60)}))
	require.NoError(t, env.ingestion.IngestBusReading(ctx, BusReading{DeviceID: "4", SPLValue: f64p(60)}))
	require.NoError(t, env.ingestion.IngestBusReading(ctx, BusReading{DeviceID: "99", MACAddress: "ff", SPLValue: f64p(60)}))

	assert.Zero(t, env.sounds.count())
	assert.Zero(t, env.devices.writeCount())
}

func TestIngestBusReading_WithoutSPLOnlyRefreshesLastSeen(t *testing.T) {
	env := newTestEnv(t, testDevice("4", 4, "aabbcc", domain.StatusActive))
	ctx := context.Background()

	require.NoError(t, env.ingestion.IngestBusReading(ctx, BusReading{DeviceID: "4", MACAddress: "aabbcc"}))

	d, _ := env.devices.GetDevice(ctx, "4")
	assert.NotNil(t, d.LastSeen)
	assert.Nil(t, d.LastSPLValue)
	assert.Zero(t, env.sounds.count())
}

func TestIngestBusReading_StoreErrorReturned(t *testing.T) {
	env := newTestEnv(t, testDevice("4", 4, "aabbcc", domain.StatusActive))
	env.devices.err = domain.Upstream("failed to query device", errStoreDown)

	err := env.ingestion.IngestBusReading(context.Background(), BusReading{DeviceID: "4", MACAddress: "aabbcc", SPLValue: f64p(1)})
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestIngestBusReading_ConcurrentReadingsGetDistinctIDs(t *testing.T) {
	env := newTestEnv(t, testDevice("4", 4, "aabbcc", domain.StatusActive))
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, env.ingestion.IngestBusReading(ctx, BusReading{DeviceID: "4", MACAddress: "aabbcc", SPLValue: f64p(float64(i))}))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n, env.sounds.count())
	for i := 1; i <= n; i++ {
		_, err := env.sounds.GetSound(ctx, domain.FormatSoundID(int64(i)))
		assert.NoError(t, err)
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.ReadingEvent
	err    error
}

func (r *recordingSink) Emit(_ context.Context, ev events.ReadingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingSink) Close() error { return nil }

func TestIngestion_EmitsReadingEvents(t *testing.T) {
	env := newTestEnv(t, testDevice("3", 3, "aabbcc", domain.StatusActive))
	sink := &recordingSink{err: errors.New("stream full")}
	svc := NewIngestionService(env.devices, env.sounds, env.classifier, env.notifier, sink, env.cache, env.metrics, zap.NewNop())
	ctx := context.Background()

	_, err := svc.IngestHTTPUpload(ctx, UploadRequest{DeviceID: "3", SPLValue: 80, Audio: []byte{1}})
	require.NoError(t, err)
	require.NoError(t, svc.IngestBusReading(ctx, BusReading{DeviceID: "3", MACAddress: "aabbcc", SPLValue: f64p(55)}))

	require.Len(t, sink.events, 2)
	assert.Equal(t, SourceHTTP, sink.events[0].Source)
	assert.Equal(t, "00001", sink.events[0].RecordingID)
	assert.Equal(t, classifier.LabelJackhammer, sink.events[0].Classification)
	assert.Equal(t, SourceMQTT, sink.events[1].Source)
	assert.Equal(t, "00002", sink.events[1].RecordingID)
}
