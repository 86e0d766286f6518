package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"maks/internal/log"
	"maks/internal/report"
	"maks/internal/secure"
)

// handleReportXLSX streams the yearly workbook as a download. The workbook
// is rendered into memory first so a failure still yields a JSON error.
func (s *Server) handleReportXLSX(w http.ResponseWriter, r *http.Request, sess *secure.Session) {
	year, err := parseYear(r.PathValue("year"))
	if err != nil {
		s.writeError(w, r, "report xlsx", err)
		return
	}
	rep, err := s.reports.Build(r.Context(), sess, year)
	if err != nil {
		s.writeError(w, r, "report xlsx", err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, rep); err != nil {
		s.writeError(w, r, "report xlsx", fmt.Errorf("render workbook: %w", err))
		return
	}

	h := w.Header()
	h.Set("Content-Type", report.ContentType)
	h.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, rep.Filename()))
	h.Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Workbook download interrupted", log.FieldError, err)
	}
}

func (s *Server) handleReportSheets(w http.ResponseWriter, r *http.Request, sess *secure.Session) {
	year, err := parseYear(r.PathValue("year"))
	if err != nil {
		s.writeError(w, r, "report sheets", err)
		return
	}
	ref, err := s.reports.PushToSheets(r.Context(), sess, year)
	if err != nil {
		s.writeError(w, r, "report sheets", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "ref": ref})
}
