package http

import (
	"errors"
	"net/http"
	"strings"

	"maks/internal/core"
	"maks/internal/log"
	"maks/internal/secure"
	"maks/internal/services"
	"maks/internal/storage"
)

// sanitizeInput drops control characters other than tab and newlines and
// trims surrounding whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// User-facing messages.
const (
	msgBadRequest     = "Nederīgs pieprasījums"
	msgLocked         = "Sesija ir bloķēta"
	msgWrongPIN       = "Nepareizs PIN kods"
	msgNotInitialized = "PIN kods vēl nav iestatīts"
	msgAlreadySetUp   = "PIN kods jau ir iestatīts"
	msgNotFound       = "Ieraksts nav atrasts"
	msgStorage        = "Neizdevās saglabāt"
	msgUndecryptable  = "Neizdevās atšifrēt ierakstu"
	msgSheetsDisabled = "Google Sheets eksports nav konfigurēts"
	msgInternal       = "Iekšēja kļūda"
)

// writeError maps err onto a status code and a JSON error body. Unexpected
// errors are logged with the request's logger.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		ValidationFailed(ve.Field, ve.Err.Error()).Write(w)
	case errors.Is(err, errBadBody):
		BadRequestError(msgBadRequest).Write(w)
	case errors.Is(err, secure.ErrLocked):
		ErrorResponse(http.StatusLocked, msgLocked).Write(w)
	case errors.Is(err, secure.ErrIncorrectSecret):
		ErrorResponse(http.StatusUnauthorized, msgWrongPIN).Write(w)
	case errors.Is(err, secure.ErrNotInitialized):
		ErrorResponse(http.StatusConflict, msgNotInitialized).Write(w)
	case errors.Is(err, secure.ErrAlreadyInitialized):
		ErrorResponse(http.StatusConflict, msgAlreadySetUp).Write(w)
	case errors.Is(err, storage.ErrNotFound):
		NotFoundError(msgNotFound).Write(w)
	case errors.Is(err, services.ErrSheetsDisabled):
		ErrorResponse(http.StatusNotImplemented, msgSheetsDisabled).Write(w)
	case services.IsStorageError(err):
		s.logError(r, op, err, "storage")
		ErrorResponse(http.StatusServiceUnavailable, msgStorage).Write(w)
	case errors.Is(err, secure.ErrWrongKeyOrCorrupt):
		s.logError(r, op, err, "decrypt")
		InternalServerError(msgUndecryptable).Write(w)
	default:
		s.logError(r, op, err, "internal")
		InternalServerError(msgInternal).Write(w)
	}
}

func (s *Server) logError(r *http.Request, op string, err error, kind string) {
	logger := log.NewStructuredLogger(log.FromContext(r.Context()))
	logger.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op,
		log.NewFields().WithErrorType(kind))
}
