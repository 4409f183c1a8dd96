package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/cache"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/classifier"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/repository"
)

// memDevices in-memory DevicesRepository
type memDevices struct {
	mu      sync.Mutex
	devices map[string]*domain.Device
	counter int64
	writes  int
	err     error
}

func newMemDevices(devices ...*domain.Device) *memDevices {
	m := &memDevices{devices: map[string]*domain.Device{}}
	for _, d := range devices {
		m.devices[d.DeviceID] = d
		if int64(d.DeviceNumber) > m.counter {
			m.counter = int64(d.DeviceNumber)
		}
	}
	return m
}

func (m *memDevices) get(id string) (*domain.Device, error) {
	if m.err != nil {
		return nil, m.err
	}
	d, ok := m.devices[id]
	if !ok {
		return nil, domain.NotFoundf("device not found: %s", id)
	}
	return d, nil
}

func (m *memDevices) copyOf(d *domain.Device) *domain.Device {
	c := *d
	return &c
}

func (m *memDevices) ListDevices(context.Context) ([]*domain.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*domain.Device
	for _, d := range m.devices {
		out = append(out, m.copyOf(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceNumber < out[j].DeviceNumber })
	return out, nil
}

func (m *memDevices) GetDevice(_ context.Context, id string) (*domain.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.get(id)
	if err != nil {
		return nil, err
	}
	return m.copyOf(d), nil
}

func (m *memDevices) GetDeviceByMAC(_ context.Context, mac string) (*domain.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, d := range m.devices {
		if d.MACAddress != nil && *d.MACAddress == mac {
			return m.copyOf(d), nil
		}
	}
	return nil, domain.NotFoundf("device not found: %s", mac)
}

func (m *memDevices) GetDeviceByAPIKey(_ context.Context, key string) (*domain.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.devices {
		if d.APIKey != nil && *d.APIKey == key {
			return m.copyOf(d), nil
		}
	}
	return nil, domain.NotFoundf("device not found: api key")
}

func (m *memDevices) CreateDevice(_ context.Context, d *domain.Device) (*domain.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.MACAddress != nil {
		for _, existing := range m.devices {
			if existing.MACAddress != nil && *existing.MACAddress == *d.MACAddress {
				return nil, domain.InvalidInputf("device with this MAC address already exists")
			}
		}
	}
	m.counter++
	c := m.copyOf(d)
	c.DeviceNumber = int(m.counter)
	c.DeviceID = strconv.FormatInt(m.counter, 10)
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.devices[c.DeviceID] = c
	m.writes++
	return m.copyOf(c), nil
}

func (m *memDevices) CreateDeviceForMAC(_ context.Context, mac string, creds repository.DeviceCredentials, unit string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	for _, d := range m.devices {
		if d.MACAddress != nil && *d.MACAddress == mac {
			return d.DeviceID, false, nil
		}
	}
	m.counter++
	id := strconv.FormatInt(m.counter, 10)
	now := time.Now()
	macCopy := mac
	key := creds.APIKey
	m.devices[id] = &domain.Device{
		DeviceID:     id,
		DeviceNumber: int(m.counter),
		MACAddress:   &macCopy,
		Status:       domain.StatusActive,
		AccessToken:  creds.AccessToken,
		APIKey:       &key,
		LastSeen:     &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.writes++
	return id, true, nil
}

func (m *memDevices) UpdateSettings(_ context.Context, id string, p repository.DevicePatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.get(id)
	if err != nil {
		return err
	}
	if p.NoiseThreshold != nil {
		v := *p.NoiseThreshold
		d.NoiseThreshold = &v
	}
	if p.SamplingPeriod != nil {
		v := *p.SamplingPeriod
		d.SamplingPeriod = &v
	}
	if p.RecordDuration != nil {
		unit := domain.UnitSeconds
		if p.RecordDurationUnit != nil {
			unit = *p.RecordDurationUnit
		}
		d.RecordDuration = &domain.RecordDuration{Value: *p.RecordDuration, Unit: unit}
	}
	if p.Status != nil {
		d.Status = *p.Status
	}
	now := time.Now()
	if p.TouchLastSeen {
		d.LastSeen = &now
	}
	d.UpdatedAt = now
	m.writes++
	return nil
}

func (m *memDevices) RecordReading(_ context.Context, id string, u repository.ReadingUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.get(id)
	if err != nil {
		return err
	}
	now := time.Now()
	spl := u.SPLValue
	d.LastSeen = &now
	d.LastSPLValue = &spl
	if u.Results != nil {
		v := *u.Results
		d.LastResults = &v
	}
	if u.RecordingID != nil {
		v := *u.RecordingID
		d.LastRecordingID = &v
	}
	m.writes++
	return nil
}

func (m *memDevices) TouchLastSeen(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.get(id)
	if err != nil {
		return err
	}
	now := time.Now()
	d.LastSeen = &now
	m.writes++
	return nil
}

func (m *memDevices) DeleteDevice(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.get(id); err != nil {
		return err
	}
	delete(m.devices, id)
	m.writes++
	return nil
}

func (m *memDevices) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// memSounds in-memory SoundsRepository with a serialized counter
type memSounds struct {
	mu      sync.Mutex
	sounds  map[string]*domain.Sound
	order   []string
	counter int64
	err     error
}

func newMemSounds() *memSounds {
	return &memSounds{sounds: map[string]*domain.Sound{}}
}

func (m *memSounds) CreateSound(_ context.Context, s *domain.Sound) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.counter++
	id := domain.FormatSoundID(m.counter)
	c := *s
	c.SoundID = id
	m.sounds[id] = &c
	m.order = append(m.order, id)
	s.SoundID = id
	return id, nil
}

func (m *memSounds) GetSound(_ context.Context, id string) (*domain.Sound, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sounds[id]
	if !ok {
		return nil, domain.NotFoundf("sound not found: %s", id)
	}
	c := *s
	return &c, nil
}

func (m *memSounds) ListDeviceSounds(_ context.Context, deviceID string, q repository.SoundQuery) ([]*domain.Sound, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Sound
	for i := len(m.order) - 1; i >= 0 && len(out) < q.Limit; i-- {
		s := m.sounds[m.order[i]]
		if s.DeviceID != deviceID {
			continue
		}
		c := *s
		c.AudioBase64 = ""
		out = append(out, &c)
	}
	return out, nil
}

func (m *memSounds) VerifySound(_ context.Context, id string, v repository.SoundVerification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sounds[id]
	if !ok {
		return domain.NotFoundf("sound not found: %s", id)
	}
	s.Verified = v.Verified
	s.VerifiedBy = v.VerifiedBy
	if v.Classification != nil {
		s.Classification = *v.Classification
	}
	return nil
}

func (m *memSounds) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sounds)
}

type published struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// fakeBus records publishes and keeps the last retained message per topic,
// like a broker does.
type fakeBus struct {
	mu       sync.Mutex
	messages []published
	retained map[string][]byte
	err      error
}

func newFakeBus() *fakeBus {
	return &fakeBus{retained: map[string][]byte{}}
}

func (b *fakeBus) Publish(topic string, qos byte, retained bool, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.messages = append(b.messages, published{Topic: topic, QoS: qos, Retained: retained, Payload: payload})
	if retained {
		b.retained[topic] = payload
	}
	return nil
}

// Connect simulates a subscriber (re)connecting: it receives only the retained message
func (b *fakeBus) Connect(topic string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.retained[topic]
	return p, ok
}

func (b *fakeBus) on(topic string) []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []published
	for _, m := range b.messages {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// memKV in-memory cache.KV
type memKV struct {
	mu   sync.Mutex
	data map[string]string
	gets int
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (k *memKV) Get(_ context.Context, key string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.gets++
	v, ok := k.data[key]
	if !ok {
		return "", cache.ErrMiss
	}
	return v, nil
}

func (k *memKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.data[key] = value
	return nil
}

func (k *memKV) Incr(_ context.Context, key string) (int64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	n, _ := strconv.ParseInt(k.data[key], 10, 64)
	n++
	k.data[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (k *memKV) SetIfUnchanged(_ context.Context, key, value string, _ time.Duration, guardKey, guard string) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	cur, ok := k.data[guardKey]
	if !ok {
		cur = "0"
	}
	if cur != guard {
		return false, nil
	}
	k.data[key] = value
	return true, nil
}

func (k *memKV) Delete(_ context.Context, keys ...string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, key := range keys {
		delete(k.data, key)
	}
	return nil
}

// fixedClassifier always returns the same label
type fixedClassifier struct {
	label string
	err   error
}

func (f fixedClassifier) Classify(context.Context, []byte) (*classifier.Classification, error) {
	if f.err != nil {
		return nil, f.err
	}
	preds := []classifier.Prediction{{Label: f.label, Confidence: 88}}
	for _, l := range classifier.Labels {
		if l != f.label {
			preds = append(preds, classifier.Prediction{Label: l, Confidence: 1})
		}
	}
	return &classifier.Classification{Label: f.label, Confidence: 88, Predictions: preds}, nil
}

var errStoreDown = errors.New("store unavailable")

func strp(s string) *string { return &s }

func f64p(f float64) *float64 { return &f }

// memComplaints in-memory ComplaintsRepository
type memComplaints struct {
	mu         sync.Mutex
	complaints map[string]*domain.Complaint
	comments   []*domain.Comment
}

func newMemComplaints() *memComplaints {
	return &memComplaints{complaints: map[string]*domain.Complaint{}}
}

func (m *memComplaints) ListComplaints(_ context.Context, status string) ([]*domain.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Complaint
	for _, c := range m.complaints {
		if status == "" || c.Status == status {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memComplaints) GetComplaint(_ context.Context, id string) (*domain.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.complaints[id]
	if !ok {
		return nil, domain.NotFoundf("complaint not found: %s", id)
	}
	cp := *c
	return &cp, nil
}

func (m *memComplaints) CreateComplaint(_ context.Context, c *domain.Complaint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.complaints[c.ComplaintID] = &cp
	return nil
}

func (m *memComplaints) UpdateComplaintStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.complaints[id]
	if !ok {
		return domain.NotFoundf("complaint not found: %s", id)
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	return nil
}

func (m *memComplaints) DeleteComplaint(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.complaints[id]; !ok {
		return domain.NotFoundf("complaint not found: %s", id)
	}
	delete(m.complaints, id)
	kept := m.comments[:0]
	for _, c := range m.comments {
		if c.ComplaintID != id {
			kept = append(kept, c)
		}
	}
	m.comments = kept
	return nil
}

func (m *memComplaints) AddComment(_ context.Context, c *domain.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.complaints[c.ComplaintID]; !ok {
		return domain.NotFoundf("complaint not found: %s", c.ComplaintID)
	}
	c.CreatedAt = time.Now()
	cp := *c
	m.comments = append(m.comments, &cp)
	return nil
}

func (m *memComplaints) ListComments(_ context.Context, id string) ([]*domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Comment
	for _, c := range m.comments {
		if c.ComplaintID == id {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}
