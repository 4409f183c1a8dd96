package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"

	"go.uber.org/zap"
)

const deviceColumns = `
	device_id, device_number, mac_address, name, location,
	street, subdistrict, district, province, postal_code,
	latitude, longitude, status, noise_threshold, sampling_period,
	record_duration, record_duration_unit, last_seen, last_spl_value,
	last_results, last_recording_id, access_token, api_key,
	created_at, updated_at`

// PostgresDevicesRepo devices table
type PostgresDevicesRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresDevicesRepo(db *sql.DB, logger *zap.Logger) *PostgresDevicesRepo {
	return &PostgresDevicesRepo{db: db, logger: logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(s rowScanner) (*domain.Device, error) {
	var (
		d              domain.Device
		mac            sql.NullString
		lat, lng       sql.NullFloat64
		threshold      sql.NullFloat64
		samplingPeriod sql.NullFloat64
		recordDuration sql.NullFloat64
		unit           string
		lastSeen       sql.NullTime
		lastSPL        sql.NullFloat64
		lastResults    sql.NullString
		lastRecording  sql.NullString
		apiKey         sql.NullString
	)
	err := s.Scan(
		&d.DeviceID, &d.DeviceNumber, &mac, &d.Name, &d.Location,
		&d.Address.Street, &d.Address.Subdistrict, &d.Address.District, &d.Address.Province, &d.Address.PostalCode,
		&lat, &lng, &d.Status, &threshold, &samplingPeriod,
		&recordDuration, &unit, &lastSeen, &lastSPL,
		&lastResults, &lastRecording, &d.AccessToken, &apiKey,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.MACAddress = strPtr(mac)
	d.Latitude = floatPtr(lat)
	d.Longitude = floatPtr(lng)
	d.NoiseThreshold = floatPtr(threshold)
	d.SamplingPeriod = floatPtr(samplingPeriod)
	if recordDuration.Valid {
		d.RecordDuration = &domain.RecordDuration{Value: recordDuration.Float64, Unit: unit}
	}
	d.LastSeen = timePtr(lastSeen)
	d.LastSPLValue = floatPtr(lastSPL)
	d.LastResults = strPtr(lastResults)
	d.LastRecordingID = strPtr(lastRecording)
	d.APIKey = strPtr(apiKey)
	return &d, nil
}

func (r *PostgresDevicesRepo) getOne(ctx context.Context, where string, arg any, what string) (*domain.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE ` + where + ` LIMIT 1`
	d, err := scanDevice(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NotFoundf("device not found: %s", what)
		}
		return nil, domain.Upstream("failed to query device", err)
	}
	return d, nil
}

// ListDevices all devices ordered by device number
func (r *PostgresDevicesRepo) ListDevices(ctx context.Context) ([]*domain.Device, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY device_number`)
	if err != nil {
		return nil, domain.Upstream("failed to list devices", err)
	}
	defer rows.Close()

	var out []*domain.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, domain.Upstream("failed to scan device", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Upstream("failed to list devices", err)
	}
	return out, nil
}

func (r *PostgresDevicesRepo) GetDevice(ctx context.Context, deviceID string) (*domain.Device, error) {
	return r.getOne(ctx, `device_id = $1`, deviceID, deviceID)
}

func (r *PostgresDevicesRepo) GetDeviceByMAC(ctx context.Context, mac string) (*domain.Device, error) {
	return r.getOne(ctx, `mac_address = $1`, mac, mac)
}

func (r *PostgresDevicesRepo) GetDeviceByAPIKey(ctx context.Context, apiKey string) (*domain.Device, error) {
	return r.getOne(ctx, `api_key = $1`, apiKey, "api key")
}

// CreateDevice inserts a UI-registered device under the next device number
func (r *PostgresDevicesRepo) CreateDevice(ctx context.Context, d *domain.Device) (*domain.Device, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.Upstream("failed to begin transaction", err)
	}
	defer tx.Rollback()

	n, err := nextCounterValue(ctx, tx, CounterDevices)
	if err != nil {
		return nil, domain.Upstream("failed to allocate device number", err)
	}

	var recordDuration sql.NullFloat64
	unit := domain.UnitSeconds
	if d.RecordDuration != nil {
		recordDuration = sql.NullFloat64{Float64: d.RecordDuration.Value, Valid: true}
		unit = d.RecordDuration.Unit
	}

	row := tx.QueryRowContext(ctx,
		`INSERT INTO devices (
			device_id, device_number, mac_address, name, location,
			street, subdistrict, district, province, postal_code,
			latitude, longitude, status, noise_threshold, sampling_period,
			record_duration, record_duration_unit, access_token, api_key,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW(), NOW())
		RETURNING `+deviceColumns,
		strconv.FormatInt(n, 10), n, nullString(d.MACAddress), d.Name, d.Location,
		d.Address.Street, d.Address.Subdistrict, d.Address.District, d.Address.Province, d.Address.PostalCode,
		nullFloat(d.Latitude), nullFloat(d.Longitude), d.Status, nullFloat(d.NoiseThreshold), nullFloat(d.SamplingPeriod),
		recordDuration, unit, d.AccessToken, nullString(d.APIKey),
	)
	created, err := scanDevice(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.InvalidInputf("device with this MAC address already exists")
		}
		return nil, domain.Upstream("failed to insert device", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, domain.Upstream("failed to commit device", err)
	}
	return created, nil
}

// CreateDeviceForMAC registers a device on first contact
func (r *PostgresDevicesRepo) CreateDeviceForMAC(ctx context.Context, mac string, creds DeviceCredentials, unit string) (string, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, domain.Upstream("failed to begin transaction", err)
	}
	defer tx.Rollback()

	n, err := nextCounterValue(ctx, tx, CounterDevices)
	if err != nil {
		return "", false, domain.Upstream("failed to allocate device number", err)
	}

	var deviceID string
	err = tx.QueryRowContext(ctx,
		`INSERT INTO devices (
			device_id, device_number, mac_address, status, access_token, api_key,
			record_duration_unit, last_seen, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW(), NOW())
		ON CONFLICT (mac_address) DO NOTHING
		RETURNING device_id`,
		strconv.FormatInt(n, 10), n, mac, domain.StatusActive, creds.AccessToken, creds.APIKey, unit,
	).Scan(&deviceID)

	if err == sql.ErrNoRows {
		// Lost the race for this MAC; the rollback also returns the counter value.
		tx.Rollback()
		existing, err := r.GetDeviceByMAC(ctx, mac)
		if err != nil {
			return "", false, err
		}
		r.logger.Info("Concurrent first contact resolved to existing device",
			zap.String("mac_address", mac),
			zap.String("device_id", existing.DeviceID),
		)
		return existing.DeviceID, false, nil
	}
	if err != nil {
		return "", false, domain.Upstream("failed to insert device", err)
	}

	if err := tx.Commit(); err != nil {
		return "", false, domain.Upstream("failed to commit device", err)
	}
	return deviceID, true, nil
}

// UpdateSettings partial update; ErrNotFound when the device does not exist
func (r *PostgresDevicesRepo) UpdateSettings(ctx context.Context, deviceID string, patch DevicePatch) error {
	sets := []string{"updated_at = NOW()"}
	args := []any{deviceID}
	add := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.NoiseThreshold != nil {
		add("noise_threshold", *patch.NoiseThreshold)
	}
	if patch.SamplingPeriod != nil {
		add("sampling_period", *patch.SamplingPeriod)
	}
	if patch.RecordDuration != nil {
		add("record_duration", *patch.RecordDuration)
	}
	if patch.RecordDurationUnit != nil {
		add("record_duration_unit", *patch.RecordDurationUnit)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.TouchLastSeen {
		sets = append(sets, "last_seen = NOW()")
	}

	query := `UPDATE devices SET ` + strings.Join(sets, ", ") + ` WHERE device_id = $1`
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.Upstream("failed to update device", err)
	}
	return requireAffected(res, "device not found: "+deviceID)
}

func (r *PostgresDevicesRepo) RecordReading(ctx context.Context, deviceID string, update ReadingUpdate) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE devices SET
			last_seen = NOW(),
			last_spl_value = $2,
			last_results = COALESCE($3, last_results),
			last_recording_id = COALESCE($4, last_recording_id)
		 WHERE device_id = $1`,
		deviceID, update.SPLValue, nullString(update.Results), nullString(update.RecordingID),
	)
	if err != nil {
		return domain.Upstream("failed to update device reading", err)
	}
	return requireAffected(res, "device not found: "+deviceID)
}

func (r *PostgresDevicesRepo) TouchLastSeen(ctx context.Context, deviceID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE devices SET last_seen = NOW() WHERE device_id = $1`, deviceID)
	if err != nil {
		return domain.Upstream("failed to update last seen", err)
	}
	return requireAffected(res, "device not found: "+deviceID)
}

func (r *PostgresDevicesRepo) DeleteDevice(ctx context.Context, deviceID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE device_id = $1`, deviceID)
	if err != nil {
		return domain.Upstream("failed to delete device", err)
	}
	return requireAffected(res, "device not found: "+deviceID)
}

func requireAffected(res sql.Result, notFound string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Upstream("failed to read affected rows", err)
	}
	if n == 0 {
		return domain.NotFoundf("%s", notFound)
	}
	return nil
}
