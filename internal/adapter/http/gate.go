package adapthttp

import (
	"net/http"
	"strings"

	"secrets/internal/app"
	"secrets/internal/domain"
)

const sessionCookie = "session"

// Admission is the outcome of Gate.Admit. A nil User means denied.
type Admission struct {
	User *domain.User
}

// Allowed reports whether the request carried a live session.
func (a Admission) Allowed() bool {
	return a.User != nil
}

// Gate admits requests that carry a live session token. It never redirects;
// callers decide what a denial means for them.
type Gate struct {
	sessions *app.SessionManager
}

// NewGate returns a Gate resolving tokens through sessions.
func NewGate(sessions *app.SessionManager) *Gate {
	return &Gate{sessions: sessions}
}

// Admit resolves the token attached to r. Errors are storage failures only;
// a missing, expired or destroyed token is a denied Admission.
func (g *Gate) Admit(r *http.Request) (Admission, error) {
	token := tokenFromRequest(r)
	if token == "" {
		return Admission{}, nil
	}
	u, err := g.sessions.Resolve(r.Context(), token)
	if err != nil {
		return Admission{}, err
	}
	return Admission{User: u}, nil
}

// tokenFromRequest reads the session cookie, falling back to a bearer
// Authorization header.
func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// admit is called at the top of every protected handler. It writes the
// redirect or error response itself and reports whether to continue.
func (s *Server) admit(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	a, err := s.gate.Admit(r)
	if err != nil {
		s.serverError(w, r, err)
		return nil, false
	}
	if !a.Allowed() {
		http.Redirect(w, r, "/login", http.StatusFound)
		return nil, false
	}
	s.refreshSessionCookie(w, r)
	return a.User, true
}

// refreshSessionCookie re-issues the session cookie with a fresh lifetime
// when sessions slide, so the browser keeps it as long as the server does.
func (s *Server) refreshSessionCookie(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Sliding() {
		return
	}
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		s.setSessionCookie(w, c.Value)
	}
}
