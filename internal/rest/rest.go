package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/daypick/daypick/internal/apperr"
	log "github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// RespondJSON writes data as a JSON body with the given status code.
func RespondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Errorf("failed to encode JSON response: %v", err)
	}
}

// WriteError maps the shared error taxonomy to HTTP status codes.
// Unrecognized errors become 500 without leaking internals.
func WriteError(w http.ResponseWriter, err error) {
	var validation *apperr.ValidationError
	if errors.As(err, &validation) {
		RespondJSON(w, http.StatusBadRequest, ErrorResponse{Error: validation.Error(), Fields: validation.FieldErrors})
		return
	}

	switch {
	case errors.Is(err, apperr.ErrInvalidRange):
		RespondJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		RespondJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperr.ErrForbidden):
		RespondJSON(w, http.StatusForbidden, ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperr.ErrIllegalTransition),
		errors.Is(err, apperr.ErrPhaseClosed),
		errors.Is(err, apperr.ErrConflict):
		// Stale client view of the event: refetch and retry if still valid.
		RespondJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		log.Errorf("internal error: %v", err)
		RespondJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

// FrontendHandler serves a single-page frontend from a directory, falling
// back to the index document for client-side routes.
type FrontendHandler struct {
	dir   string
	index string
}

func NewFrontendHandler(dir, index string) *FrontendHandler {
	return &FrontendHandler{dir: dir, index: index}
}

func (h *FrontendHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(h.dir, filepath.Clean("/"+r.URL.Path))

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		http.ServeFile(w, r, filepath.Join(h.dir, h.index))
		return
	}
	http.ServeFile(w, r, path)
}
