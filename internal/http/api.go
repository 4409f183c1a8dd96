package httpapi

import (
	"net/http"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/auth"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/service"

	"go.uber.org/zap"
)

// API handlers for every /api route
type API struct {
	devices    service.DeviceService
	settings   service.SettingsService
	ingestion  service.IngestionService
	sounds     service.SoundService
	complaints service.ComplaintService

	maxUploadBytes int64
	recordUnit     string
	logger         *zap.Logger
}

// APIOptions collaborators of NewAPI
type APIOptions struct {
	Devices    service.DeviceService
	Settings   service.SettingsService
	Ingestion  service.IngestionService
	Sounds     service.SoundService
	Complaints service.ComplaintService

	MaxUploadBytes     int64
	RecordDurationUnit string
	Logger             *zap.Logger
}

func NewAPI(opts APIOptions) *API {
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	unit := opts.RecordDurationUnit
	if unit == "" {
		unit = domain.UnitSeconds
	}
	return &API{
		devices:        opts.Devices,
		settings:       opts.Settings,
		ingestion:      opts.Ingestion,
		sounds:         opts.Sounds,
		complaints:     opts.Complaints,
		maxUploadBytes: maxUpload,
		recordUnit:     unit,
		logger:         opts.Logger,
	}
}

// principalFor returns the caller if allowed to act on deviceID, writing 403 otherwise
func (a *API) principalFor(w http.ResponseWriter, r *http.Request, deviceID string) (*auth.Principal, bool) {
	p := auth.FromContext(r.Context())
	if !p.CanManageDevice(deviceID) {
		writeError(w, a.logger, domain.Forbiddenf("not allowed to manage device %s", deviceID))
		return nil, false
	}
	return p, true
}

// requireUser writes 403 unless the caller is a user account
func (a *API) requireUser(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	p := auth.FromContext(r.Context())
	if !p.IsUser() {
		writeError(w, a.logger, domain.Forbiddenf("user credential required"))
		return nil, false
	}
	return p, true
}
