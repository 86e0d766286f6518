package http

import (
	"net/http"

	"maks/internal/core"
	"maks/internal/secure"
	"maks/internal/services"
)

type entryRequest struct {
	Date        string     `json:"date"`
	Amount      numberText `json:"amount"`
	Mode        string     `json:"mode"`
	Description string     `json:"description"`
	Dependents  int        `json:"dependents"`
	HasTaxBook  bool       `json:"hasTaxBook"`
}

type monthRequest struct {
	Rate       *numberText `json:"rate"`
	Hours      *numberText `json:"hours"`
	Dependents *int        `json:"dependents"`
	HasTaxBook *bool       `json:"hasTaxBook"`
}

type correctionRequest struct {
	Correction numberText `json:"correction"`
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request, sess *secure.Session) {
	month, err := queryMonthFilter(r.URL.Query())
	if err != nil {
		s.writeError(w, r, "list entries", err)
		return
	}
	entries, err := s.ledger.ListEntries(r.Context(), sess, month)
	if err != nil {
		s.writeError(w, r, "list entries", err)
		return
	}
	views := make([]entryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, newEntryView(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": views})
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request, sess *secure.Session) {
	var req entryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "add entry", err)
		return
	}
	added, err := s.ledger.AddEntry(r.Context(), sess, services.EntryInput{
		Date:        sanitizeInput(req.Date),
		Amount:      sanitizeInput(string(req.Amount)),
		Mode:        services.InputMode(sanitizeInput(req.Mode)),
		Description: sanitizeInput(req.Description),
		Dependents:  req.Dependents,
		HasTaxBook:  req.HasTaxBook,
	})
	if err != nil {
		s.writeError(w, r, "add entry", err)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/entries/"+added.Entry.ID).
		JSON(newAddedEntryView(added)).
		Write(w)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request, sess *secure.Session) {
	if err := s.ledger.DeleteEntry(r.Context(), sess, r.PathValue("id")); err != nil {
		s.writeError(w, r, "delete entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetMonth(w http.ResponseWriter, r *http.Request, sess *secure.Session) {
	key, err := pathMonthKey(r)
	if err != nil {
		s.writeError(w, r, "read month", err)
		return
	}
	rec, err := s.ledger.EffectiveMonthRecord(r.Context(), sess, key)
	if err != nil {
		s.writeError(w, r, "read month", err)
		return
	}
	writeJSON(w, http.StatusOK, newEffectiveMonthView(key, rec))
}

func (s *Server) handleSaveMonth(w http.ResponseWriter, r *http.Request, sess *secure.Session) {
	key, err := pathMonthKey(r)
	if err != nil {
		s.writeError(w, r, "save month", err)
		return
	}
	var req monthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "save month", err)
		return
	}
	patch := core.MonthPatch{Dependents: req.Dependents, HasTaxBook: req.HasTaxBook}
	if patch.Rate, err = decimalField("rate", req.Rate); err != nil {
		s.writeError(w, r, "save month", err)
		return
	}
	if patch.Hours, err = decimalField("hours", req.Hours); err != nil {
		s.writeError(w, r, "save month", err)
		return
	}

	saved, err := s.ledger.SaveMonthRecord(r.Context(), sess, key, patch)
	if err != nil {
		s.writeError(w, r, "save month", err)
		return
	}
	writeJSON(w, http.StatusOK, newMonthView(key, saved, true, nil))
}

func (s *Server) handleGetCorrection(w http.ResponseWriter, r *http.Request, sess *secure.Session) {
	c, err := s.ledger.GetCorrection(r.Context(), sess)
	if err != nil {
		s.writeError(w, r, "read correction", err)
		return
	}
	writeJSON(w, http.StatusOK, correctionView{Correction: euros(c)})
}

func (s *Server) handleSaveCorrection(w http.ResponseWriter, r *http.Request, sess *secure.Session) {
	var req correctionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "save correction", err)
		return
	}
	amount, err := core.ParseSignedDecimal(string(req.Correction))
	if err != nil {
		s.writeError(w, r, "save correction", core.Invalid("correction", err))
		return
	}
	saved, err := s.ledger.SaveCorrection(r.Context(), sess, amount)
	if err != nil {
		s.writeError(w, r, "save correction", err)
		return
	}
	writeJSON(w, http.StatusOK, correctionView{Correction: euros(saved)})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, sess *secure.Session) {
	key, err := queryMonthOrNow(r.URL.Query(), s.now())
	if err != nil {
		s.writeError(w, r, "summary", err)
		return
	}
	d, err := s.ledger.Dashboard(r.Context(), sess, key)
	if err != nil {
		s.writeError(w, r, "summary", err)
		return
	}
	writeJSON(w, http.StatusOK, newDashboardView(d))
}

func (s *Server) handleYear(w http.ResponseWriter, r *http.Request, sess *secure.Session) {
	year, err := parseYear(r.PathValue("year"))
	if err != nil {
		s.writeError(w, r, "year", err)
		return
	}
	y, err := s.ledger.Year(r.Context(), sess, year)
	if err != nil {
		s.writeError(w, r, "year", err)
		return
	}
	writeJSON(w, http.StatusOK, newYearView(y))
}
