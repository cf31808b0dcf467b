package adapthttp

import (
	"errors"
	"net/http"

	"secrets/internal/app"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	a, err := s.gate.Admit(r)
	if err != nil {
		s.log.Warn(r.Context(), "home: session lookup failed", "error", err)
	}
	if a.Allowed() {
		s.refreshSessionCookie(w, r)
	}
	s.page(w, r, http.StatusOK, ViewHome, ViewData{User: a.User})
}

func (s *Server) handleSecrets(w http.ResponseWriter, r *http.Request) {
	u, ok := s.admit(w, r)
	if !ok {
		return
	}

	users, err := s.notes.Visible(r.Context(), u)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.page(w, r, http.StatusOK, ViewSecrets, ViewData{User: u, Users: users})
}

func (s *Server) handleSubmitPage(w http.ResponseWriter, r *http.Request) {
	u, ok := s.admit(w, r)
	if !ok {
		return
	}
	s.page(w, r, http.StatusOK, ViewSubmit, ViewData{User: u})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	u, ok := s.admit(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.page(w, r, http.StatusBadRequest, ViewSubmit, ViewData{User: u, Message: "Your secret cannot be empty."})
		return
	}

	err := s.notes.Submit(r.Context(), u.ID, formValue(r, "note", "secret"))
	if errors.Is(err, app.ErrEmptyNote) {
		s.page(w, r, http.StatusBadRequest, ViewSubmit, ViewData{User: u, Message: "Your secret cannot be empty."})
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/secrets", http.StatusFound)
}
