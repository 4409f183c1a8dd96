package httpapi

import (
	"net/http"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/auth"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/service"

	"github.com/gorilla/mux"
)

// GetSound GET /api/sounds/{soundId}
func (a *API) GetSound(w http.ResponseWriter, r *http.Request) {
	s, err := a.sounds.GetSound(r.Context(), mux.Vars(r)["soundId"])
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	if !auth.FromContext(r.Context()).CanManageDevice(s.DeviceID) {
		writeError(w, a.logger, domain.Forbiddenf("not allowed to read recording %s", s.SoundID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "sound": s})
}

// VerifySound PUT /api/sounds/{soundId}/verify
func (a *API) VerifySound(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireUser(w, r)
	if !ok {
		return
	}

	var body struct {
		Verified       bool    `json:"verified"`
		VerifiedBy     string  `json:"verifiedBy"`
		Classification *string `json:"classification"`
	}
	if err := readBodyJSON(r, maxJSONBody, &body); err != nil {
		writeError(w, a.logger, err)
		return
	}
	if body.VerifiedBy == "" {
		body.VerifiedBy = p.Name
	}
	if body.VerifiedBy == "" {
		body.VerifiedBy = p.ID
	}

	s, err := a.sounds.VerifySound(r.Context(), service.VerifySoundRequest{
		SoundID:        mux.Vars(r)["soundId"],
		Verified:       body.Verified,
		VerifiedBy:     body.VerifiedBy,
		Classification: body.Classification,
	})
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Recording updated", "sound": s})
}
