package httpapi

import (
	"errors"
	"io"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/domain"
	"github.com/Kpwiin/Seniorproject2024v1-sub000/internal/service"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

var (
	errFileTooLarge     = domain.InvalidInputf("File too large")
	errInvalidFileType  = domain.InvalidInputf("Invalid file type")
	errMalformedUpload  = domain.InvalidInputf("Malformed multipart body")
	multipartAudioParts = []string{"audio", "file"}
)

// UploadRecording POST /api/recordings/upload/{deviceId}?spl_value=<float>
// The body is the raw audio; a multipart body with an "audio" or "file" part is also accepted.
func (a *API) UploadRecording(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deviceID := mux.Vars(r)["deviceId"]
	if _, ok := a.principalFor(w, r, deviceID); !ok {
		return
	}

	// 1. spl_value
	raw := strings.TrimSpace(r.URL.Query().Get("spl_value"))
	if raw == "" {
		writeError(w, a.logger, domain.InvalidInputf("spl_value is required"))
		return
	}
	spl, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(spl) || math.IsInf(spl, 0) {
		writeError(w, a.logger, domain.InvalidInputf("spl_value must be a number"))
		return
	}

	// 2. body, buffered in full up to the limit
	audio, err := a.readAudio(w, r)
	if err != nil {
		a.logger.Warn("Rejected upload", zap.String("device_id", deviceID), zap.Error(err))
		writeError(w, a.logger, err)
		return
	}

	// 3. ingest
	resp, err := a.ingestion.IngestHTTPUpload(ctx, service.UploadRequest{
		DeviceID: deviceID,
		SPLValue: spl,
		Audio:    audio,
	})
	if err != nil {
		writeError(w, a.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Audio uploaded and classified",
		"recordingId": resp.RecordingID,
		"results":     resp.Results,
	})
}

func (a *API) readAudio(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes)

	mediaType, params, err := parseContentType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, errInvalidFileType
	}
	if mediaType == "multipart/form-data" {
		return a.readMultipartAudio(r, params["boundary"])
	}
	if !isAudioType(mediaType) {
		return nil, errInvalidFileType
	}
	return readLimited(r.Body)
}

func (a *API) readMultipartAudio(r *http.Request, boundary string) ([]byte, error) {
	if boundary == "" {
		return nil, errMalformedUpload
	}
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, errMalformedUpload
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, domain.InvalidInputf("No audio data received")
		}
		if err != nil {
			if isTooLarge(err) {
				return nil, errFileTooLarge
			}
			return nil, errMalformedUpload
		}
		if !isAudioPart(part.FormName()) {
			_ = part.Close()
			continue
		}
		partType, _, err := parseContentType(part.Header.Get("Content-Type"))
		if err != nil || !isAudioType(partType) {
			return nil, errInvalidFileType
		}
		audio, err := readLimited(part)
		if err != nil && errors.Is(err, errFileTooLarge) {
			return nil, err
		}
		if err != nil {
			return nil, errMalformedUpload
		}
		return audio, nil
	}
}

func readLimited(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		if isTooLarge(err) {
			return nil, errFileTooLarge
		}
		return nil, domain.InvalidInputf("failed to read upload: %v", err)
	}
	return b, nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func parseContentType(v string) (string, map[string]string, error) {
	if strings.TrimSpace(v) == "" {
		return "", nil, nil
	}
	mediaType, params, err := mime.ParseMediaType(v)
	return strings.ToLower(mediaType), params, err
}

// isAudioType empty (devices often omit it), audio/* or octet-stream
func isAudioType(mediaType string) bool {
	return mediaType == "" || mediaType == "application/octet-stream" || strings.HasPrefix(mediaType, "audio/")
}

func isAudioPart(name string) bool {
	for _, n := range multipartAudioParts {
		if name == n {
			return true
		}
	}
	return false
}
