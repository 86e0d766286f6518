package http

import (
	"net/http"

	"maks/internal/log"
	"maks/internal/secure"
)

const sessionCookie = "maks_session"

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *secure.Session)

// withSession resolves the session cookie. Requests without a live session
// get a fresh one, opened for the server's user, and a new cookie.
func (s *Server) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(sessionCookie); err == nil {
			if sess, ok := s.sessions.Get(c.Value); ok {
				next(w, r, sess)
				return
			}
		}

		sess, err := s.security.Open(r.Context(), s.userID)
		if err != nil {
			s.writeError(w, r, "open session", err)
			return
		}
		token := s.sessions.Add(sess)
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteStrictMode,
		})
		log.FromContext(r.Context()).DebugContext(r.Context(), "Session opened",
			log.FieldUserID, sess.UserID(),
			log.FieldState, sess.State().String())
		next(w, r, sess)
	}
}
