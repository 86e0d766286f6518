package http

import (
	"net/http"

	"maks/internal/secure"
)

type securityStatus struct {
	State string `json:"state"`
}

type pinRequest struct {
	PIN     string `json:"pin"`
	Confirm string `json:"confirm"`
}

func statusOf(sess *secure.Session) securityStatus {
	return securityStatus{State: sess.State().String()}
}

func (s *Server) handleSecurityStatus(w http.ResponseWriter, r *http.Request, sess *secure.Session) {
	writeJSON(w, http.StatusOK, statusOf(sess))
}

func (s *Server) handleSecuritySetup(w http.ResponseWriter, r *http.Request, sess *secure.Session) {
	var req pinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "setup", err)
		return
	}
	if err := s.security.Setup(r.Context(), sess, req.PIN, req.Confirm); err != nil {
		s.writeError(w, r, "setup", err)
		return
	}
	writeJSON(w, http.StatusCreated, statusOf(sess))
}

func (s *Server) handleSecurityUnlock(w http.ResponseWriter, r *http.Request, sess *secure.Session) {
	var req pinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, "unlock", err)
		return
	}
	if err := s.security.Unlock(r.Context(), sess, req.PIN); err != nil {
		s.writeError(w, r, "unlock", err)
		return
	}
	writeJSON(w, http.StatusOK, statusOf(sess))
}

func (s *Server) handleSecurityLock(w http.ResponseWriter, r *http.Request, sess *secure.Session) {
	s.security.Lock(sess)
	writeJSON(w, http.StatusOK, statusOf(sess))
}
