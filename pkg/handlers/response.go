package handlers

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
)

const (
	typeError   string = "error"
	typeDetails string = "details"

	maxBodyBytes = 1 << 20
)

const (
	msgUnauthorized       = "Unauthorized"
	msgInvalidCredentials = "Invalid email or password"
	msgEmailTaken         = "Email already registered"
	msgValidation         = "Validation failed"
	msgInternal           = "Internal server error"
)

func DecodeJSONBody(w http.ResponseWriter, r *http.Request, logger *slog.Logger, req any) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		writeError(w, logger, http.StatusBadRequest, "invalid Content-Type")
		return false
	}

	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(req); err != nil {
		writeError(w, logger, http.StatusBadRequest, "bad json")
		return false
	}

	return true
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, data any) bool {
	resp, err := json.Marshal(data)
	if err != nil {
		logger.Error("failed to serialize JSON response", "error", err)
		writeError(w, logger, http.StatusInternalServerError, msgInternal)
		return false
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(resp); err != nil {
		logger.Error("failed to write response to client", "error", err)
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{typeError: msg}); err != nil {
		logger.Error("failed to write error response", "status", status, "error", err)
	}
}
