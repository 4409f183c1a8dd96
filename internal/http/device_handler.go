package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/service"

	"github.com/gorilla/mux"
)

// ListDevices GET /api/devices
func (a *API) ListDevices(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireUser(w, r); !ok {
		return
	}
	devices, err := a.devices.ListDevices(r.Context())
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "devices": devices})
}

// GetDevice GET /api/devices/{deviceId}
func (a *API) GetDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceId"]
	if _, ok := a.principalFor(w, r, deviceID); !ok {
		return
	}
	d, err := a.devices.GetDevice(r.Context(), deviceID)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "device": d})
}

// registerDeviceBody RegisterDeviceRequest plus optional initial settings
type registerDeviceBody struct {
	service.RegisterDeviceRequest
	Settings map[string]any `json:"settings"`
}

// RegisterDevice POST /api/devices
func (a *API) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireUser(w, r); !ok {
		return
	}

	var body registerDeviceBody
	if err := readBodyJSON(r, maxJSONBody, &body); err != nil {
		writeError(w, a.logger, err)
		return
	}
	req := body.RegisterDeviceRequest
	if body.Settings != nil {
		patch, err := service.ParseSettingsPatch(body.Settings, a.recordUnit)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		req.Settings = patch
	}

	resp, err := a.devices.RegisterDevice(r.Context(), req)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":     true,
		"message":     "Device registered",
		"device":      resp.Device,
		"apiKey":      resp.APIKey,
		"accessToken": resp.AccessToken,
		"docs":        resp.Docs,
	})
}

// DeleteDevice DELETE /api/devices/{deviceId}
func (a *API) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceId"]
	if _, ok := a.requireUser(w, r); !ok {
		return
	}
	if err := a.devices.DeleteDevice(r.Context(), deviceID); err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Device deleted",
		"deviceId": deviceID,
	})
}

// UpdateSettings PUT /api/devices/{deviceId}
func (a *API) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceId"]
	if _, ok := a.principalFor(w, r, deviceID); !ok {
		return
	}

	var raw map[string]any
	if err := readBodyJSON(r, maxJSONBody, &raw); err != nil {
		writeError(w, a.logger, err)
		return
	}
	patch, err := service.ParseSettingsPatch(raw, a.recordUnit)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	resp, err := a.settings.UpdateSettings(r.Context(), deviceID, patch)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"message":         "Settings updated",
		"deviceId":        resp.DeviceID,
		"updatedSettings": resp.Applied,
		"published":       resp.Publish.OK(),
	})
}

// UpdateStatus PUT /api/devices/{deviceId}/status
func (a *API) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceId"]
	if _, ok := a.principalFor(w, r, deviceID); !ok {
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := readBodyJSON(r, maxJSONBody, &body); err != nil {
		writeError(w, a.logger, err)
		return
	}

	resp, err := a.settings.UpdateStatus(r.Context(), deviceID, body.Status)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Status updated",
		"deviceId": resp.DeviceID,
		"status":   resp.Status,
	})
}

// ListDeviceSounds GET /api/devices/{deviceId}/sounds?from=&to=&limit=
func (a *API) ListDeviceSounds(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceId"]
	if _, ok := a.principalFor(w, r, deviceID); !ok {
		return
	}
	req, err := soundsRequest(r, deviceID)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	sounds, err := a.sounds.ListDeviceSounds(r.Context(), req)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "sounds": sounds})
}

// ExportDeviceSounds GET /api/devices/{deviceId}/sounds/export
func (a *API) ExportDeviceSounds(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceId"]
	if _, ok := a.principalFor(w, r, deviceID); !ok {
		return
	}
	req, err := soundsRequest(r, deviceID)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	b, err := a.sounds.ExportDeviceSounds(r.Context(), req)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	filename := fmt.Sprintf("sounds_%s_%s.xlsx", deviceID, time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func soundsRequest(r *http.Request, deviceID string) (service.ListSoundsRequest, error) {
	q := r.URL.Query()
	req := service.ListSoundsRequest{DeviceID: deviceID, Limit: parseInt(q.Get("limit"), 0)}
	var err error
	if req.From, err = parseTimeParam("from", q.Get("from")); err != nil {
		return req, err
	}
	if req.To, err = parseTimeParam("to", q.Get("to")); err != nil {
		return req, err
	}
	return req, nil
}

// parseTimeParam RFC3339 or unix seconds; empty is the zero time
func parseTimeParam(name, v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, domain.InvalidInputf("%s must be RFC3339 or unix seconds", name)
	}
	return t, nil
}
