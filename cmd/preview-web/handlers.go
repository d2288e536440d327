package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/image-preview-service/internal/preview"
	"github.com/fpang/image-preview-service/internal/tempfile"
)

// maxMultipartMemory caps how much of a parsed multipart form is held in
// memory; larger file parts spill to disk.
const maxMultipartMemory = 32 << 20

// thumbnailer is the slice of the preview pipeline the handlers need.
type thumbnailer interface {
	Process(ctx context.Context, req preview.Request) (*preview.Result, error)
}

type server struct {
	pipeline  thumbnailer
	toolName  string
	uploadDir string
}

func newServer(pipeline thumbnailer, toolName, uploadDir string) *server {
	return &server{pipeline: pipeline, toolName: toolName, uploadDir: uploadDir}
}

// handleThumbnail implements POST /thumbnail: a multipart file field "image"
// (preferred) or a form field "imageUrl". Responds with the thumbnail data
// URI, the size-gated original data URI, and the metadata record.
func (s *server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		httpError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		log.Debug().Err(err).Msg("Rejected malformed form data")
		httpError(w, http.StatusBadRequest, "Malformed form data")
		return
	}

	req, err := s.buildRequest(r)
	if err != nil {
		log.Error().Err(err).Msg("Failed to receive upload")
		httpError(w, http.StatusInternalServerError, "Failed to receive upload")
		return
	}

	result, err := s.pipeline.Process(r.Context(), req)
	if err != nil {
		var perr *preview.Error
		if errors.As(err, &perr) {
			status := statusForError(perr)
			log.Error().Err(err).Int("status", status).Msg("Preview request failed")
			httpError(w, status, perr.Message)
			return
		}
		log.Error().Err(err).Msg("Preview request failed")
		httpError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleHealthz reports liveness plus the active image tool, so deploys can
// verify provider wiring without sending a real image.
func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"tool":   s.toolName,
	})
}

// buildRequest extracts the image source from the HTTP request. A multipart
// "image" file takes precedence over the "imageUrl" form field; the uploaded
// part is spooled to the upload directory and owned by the pipeline from
// there on.
func (s *server) buildRequest(r *http.Request) (preview.Request, error) {
	file, header, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		path, err := s.saveUpload(file, header.Filename)
		if err != nil {
			return preview.Request{}, err
		}
		return preview.Request{UploadedPath: path}, nil
	}

	return preview.Request{RemoteURL: strings.TrimSpace(r.FormValue("imageUrl"))}, nil
}

// saveUpload spools one multipart part to a uniquely named working file.
func (s *server) saveUpload(file multipart.File, filename string) (string, error) {
	path := tempfile.NewPath(s.uploadDir, strings.ToLower(filepath.Ext(filename)))

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close upload: %w", err)
	}

	log.Debug().Str("path", path).Str("filename", filename).Msg("Received image upload")
	return path, nil
}
