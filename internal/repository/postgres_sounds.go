package repository

import (
	"context"
	"database/sql"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"

	"go.uber.org/zap"
)

// PostgresSoundsRepo sounds table
type PostgresSoundsRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresSoundsRepo(db *sql.DB, logger *zap.Logger) *PostgresSoundsRepo {
	return &PostgresSoundsRepo{db: db, logger: logger}
}

// CreateSound runs id allocation and insert in one transaction
func (r *PostgresSoundsRepo) CreateSound(ctx context.Context, s *domain.Sound) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", domain.Upstream("failed to begin transaction", err)
	}
	defer tx.Rollback()

	n, err := nextCounterValue(ctx, tx, CounterSounds)
	if err != nil {
		return "", domain.Upstream("failed to allocate recording id", err)
	}
	soundID := domain.FormatSoundID(n)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sounds (
			sound_id, device_id, spl_value, captured_seconds, captured_nanos,
			audio_base64, audio_url, classification, mac_address, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`,
		soundID, s.DeviceID, s.SPLValue, s.CapturedAt.Seconds, s.CapturedAt.Nanoseconds,
		emptyToNull(s.AudioBase64), emptyToNull(s.AudioURL), emptyToNull(s.Classification), emptyToNull(s.MACAddress),
	)
	if err != nil {
		return "", domain.Upstream("failed to insert sound", err)
	}

	if err := tx.Commit(); err != nil {
		return "", domain.Upstream("failed to commit sound", err)
	}

	s.SoundID = soundID
	return soundID, nil
}

func (r *PostgresSoundsRepo) GetSound(ctx context.Context, soundID string) (*domain.Sound, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT sound_id, device_id, spl_value, captured_seconds, captured_nanos,
			audio_base64, audio_url, classification, mac_address, verified, verified_by, created_at
		 FROM sounds WHERE sound_id = $1`,
		soundID,
	)

	var (
		s                                       domain.Sound
		audio, audioURL, label, mac, verifiedBy sql.NullString
	)
	err := row.Scan(&s.SoundID, &s.DeviceID, &s.SPLValue, &s.CapturedAt.Seconds, &s.CapturedAt.Nanoseconds,
		&audio, &audioURL, &label, &mac, &s.Verified, &verifiedBy, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NotFoundf("sound not found: %s", soundID)
		}
		return nil, domain.Upstream("failed to query sound", err)
	}
	s.AudioBase64 = audio.String
	s.AudioURL = audioURL.String
	s.Classification = label.String
	s.MACAddress = mac.String
	s.VerifiedBy = verifiedBy.String
	return &s, nil
}

// ListDeviceSounds newest first, without audio payloads
func (r *PostgresSoundsRepo) ListDeviceSounds(ctx context.Context, deviceID string, q SoundQuery) ([]*domain.Sound, error) {
	var from, to sql.NullInt64
	if !q.From.IsZero() {
		from = sql.NullInt64{Int64: q.From.Unix(), Valid: true}
	}
	if !q.To.IsZero() {
		to = sql.NullInt64{Int64: q.To.Unix(), Valid: true}
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT sound_id, device_id, spl_value, captured_seconds, captured_nanos,
			audio_url, classification, mac_address, verified, verified_by, created_at
		 FROM sounds
		 WHERE device_id = $1
		   AND ($2::BIGINT IS NULL OR captured_seconds >= $2)
		   AND ($3::BIGINT IS NULL OR captured_seconds <= $3)
		 ORDER BY captured_seconds DESC, captured_nanos DESC
		 LIMIT $4`,
		deviceID, from, to, q.Limit,
	)
	if err != nil {
		return nil, domain.Upstream("failed to list sounds", err)
	}
	defer rows.Close()

	var out []*domain.Sound
	for rows.Next() {
		var (
			s                              domain.Sound
			audioURL, label, mac, verifier sql.NullString
		)
		if err := rows.Scan(&s.SoundID, &s.DeviceID, &s.SPLValue, &s.CapturedAt.Seconds, &s.CapturedAt.Nanoseconds,
			&audioURL, &label, &mac, &s.Verified, &verifier, &s.CreatedAt); err != nil {
			return nil, domain.Upstream("failed to scan sound", err)
		}
		s.AudioURL = audioURL.String
		s.Classification = label.String
		s.MACAddress = mac.String
		s.VerifiedBy = verifier.String
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Upstream("failed to list sounds", err)
	}
	return out, nil
}

func (r *PostgresSoundsRepo) VerifySound(ctx context.Context, soundID string, v SoundVerification) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sounds SET
			verified = $2,
			verified_by = $3,
			classification = COALESCE($4, classification)
		 WHERE sound_id = $1`,
		soundID, v.Verified, emptyToNull(v.VerifiedBy), nullString(v.Classification),
	)
	if err != nil {
		return domain.Upstream("failed to verify sound", err)
	}
	return requireAffected(res, "sound not found: "+soundID)
}

func emptyToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
