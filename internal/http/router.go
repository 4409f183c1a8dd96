// Package httpapi is the relay's REST surface.
package httpapi

import (
	"net/http"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/auth"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/metrics"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RouterOptions collaborators of NewRouter
type RouterOptions struct {
	API           *API
	Authenticator auth.Authenticator
	Metrics       *metrics.Metrics
	// Health reports dependency state for GET /health; nil always reports ok.
	Health  func() map[string]string
	Logger  *zap.Logger
	Origins []string
}

// NewRouter wires every route; /api routes require a key, /health and /metrics do not.
func NewRouter(opts RouterOptions) http.Handler {
	a := opts.API
	r := mux.NewRouter()
	r.Use(recoverMiddleware(opts.Logger), loggingMiddleware(opts.Logger), metricsMiddleware(opts.Metrics))

	r.HandleFunc("/health", healthHandler(opts.Health)).Methods(http.MethodGet)
	r.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware(opts.Authenticator, opts.Logger))

	// recordings
	api.HandleFunc("/recordings/upload/{deviceId}", a.UploadRecording).Methods(http.MethodPost)

	// devices
	api.HandleFunc("/devices", a.ListDevices).Methods(http.MethodGet)
	api.HandleFunc("/devices", a.RegisterDevice).Methods(http.MethodPost)
	api.HandleFunc("/devices/{deviceId}", a.GetDevice).Methods(http.MethodGet)
	api.HandleFunc("/devices/{deviceId}", a.UpdateSettings).Methods(http.MethodPut)
	api.HandleFunc("/devices/{deviceId}", a.DeleteDevice).Methods(http.MethodDelete)
	api.HandleFunc("/devices/{deviceId}/status", a.UpdateStatus).Methods(http.MethodPut)
	api.HandleFunc("/devices/{deviceId}/sounds", a.ListDeviceSounds).Methods(http.MethodGet)
	api.HandleFunc("/devices/{deviceId}/sounds/export", a.ExportDeviceSounds).Methods(http.MethodGet)

	// sounds
	api.HandleFunc("/sounds/{soundId}", a.GetSound).Methods(http.MethodGet)
	api.HandleFunc("/sounds/{soundId}/verify", a.VerifySound).Methods(http.MethodPut)

	// complaints
	api.HandleFunc("/complaints", a.ListComplaints).Methods(http.MethodGet)
	api.HandleFunc("/complaints", a.CreateComplaint).Methods(http.MethodPost)
	api.HandleFunc("/complaints/{complaintId}", a.GetComplaint).Methods(http.MethodGet)
	api.HandleFunc("/complaints/{complaintId}", a.DeleteComplaint).Methods(http.MethodDelete)
	api.HandleFunc("/complaints/{complaintId}/status", a.SetComplaintStatus).Methods(http.MethodPut)
	api.HandleFunc("/complaints/{complaintId}/comments", a.ListComments).Methods(http.MethodGet)
	api.HandleFunc("/complaints/{complaintId}/comments", a.AddComment).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Message: "Route not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Message: "Method not allowed"})
	})

	origins := opts.Origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-API-Key"}),
	)(r)
}

func healthHandler(check func() map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		deps := map[string]string{}
		if check != nil {
			deps = check()
		}
		status, code := "ok", http.StatusOK
		for _, v := range deps {
			if v != "ok" {
				status, code = "degraded", http.StatusServiceUnavailable
				break
			}
		}
		writeJSON(w, code, map[string]any{
			"success":      code == http.StatusOK,
			"status":       status,
			"dependencies": deps,
		})
	}
}
