package httpapi

import (
	"net/http"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/auth"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/service"

	"github.com/gorilla/mux"
)

// ListComplaints GET /api/complaints?status=verified|unverified
func (a *API) ListComplaints(w http.ResponseWriter, r *http.Request) {
	list, err := a.complaints.ListComplaints(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "complaints": list})
}

// GetComplaint GET /api/complaints/{complaintId}
func (a *API) GetComplaint(w http.ResponseWriter, r *http.Request) {
	c, err := a.complaints.GetComplaint(r.Context(), mux.Vars(r)["complaintId"])
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "complaint": c})
}

// CreateComplaint POST /api/complaints
func (a *API) CreateComplaint(w http.ResponseWriter, r *http.Request) {
	var req service.CreateComplaintRequest
	if err := readBodyJSON(r, maxJSONBody, &req); err != nil {
		writeError(w, a.logger, err)
		return
	}
	c, err := a.complaints.CreateComplaint(r.Context(), auth.FromContext(r.Context()), req)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "Complaint created", "complaint": c})
}

// SetComplaintStatus PUT /api/complaints/{complaintId}/status
func (a *API) SetComplaintStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := readBodyJSON(r, maxJSONBody, &body); err != nil {
		writeError(w, a.logger, err)
		return
	}
	c, err := a.complaints.SetComplaintStatus(r.Context(), auth.FromContext(r.Context()), mux.Vars(r)["complaintId"], body.Status)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Complaint status updated", "complaint": c})
}

// DeleteComplaint DELETE /api/complaints/{complaintId}
func (a *API) DeleteComplaint(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["complaintId"]
	if err := a.complaints.DeleteComplaint(r.Context(), auth.FromContext(r.Context()), id); err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Complaint deleted", "complaintId": id})
}

// ListComments GET /api/complaints/{complaintId}/comments
func (a *API) ListComments(w http.ResponseWriter, r *http.Request) {
	list, err := a.complaints.ListComments(r.Context(), mux.Vars(r)["complaintId"])
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "comments": list})
}

// AddComment POST /api/complaints/{complaintId}/comments
func (a *API) AddComment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Body string `json:"body"`
	}
	if err := readBodyJSON(r, maxJSONBody, &body); err != nil {
		writeError(w, a.logger, err)
		return
	}
	c, err := a.complaints.AddComment(r.Context(), auth.FromContext(r.Context()), mux.Vars(r)["complaintId"], body.Body)
	if err != nil {
		writeError(w, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "comment": c})
}
