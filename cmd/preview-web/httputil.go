package main

import (
	"encoding/json"
	"net/http"

	"github.com/fpang/image-preview-service/internal/preview"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func httpError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusForError maps pipeline error classifications to HTTP statuses.
func statusForError(err *preview.Error) int {
	switch err.Type {
	case preview.ErrTypeMissingInput:
		return http.StatusBadRequest
	case preview.ErrTypeDownload, preview.ErrTypeRender:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
