package adapthttp

import (
	"errors"
	"net/http"

	"secrets/internal/app"
	"secrets/internal/credential"
	"secrets/internal/domain"
)

const (
	stateCookie    = "oauth_state"
	stateCookieAge = 600

	msgInvalidRegistration = "Enter an email address and a password."
	msgRegistrationFailed  = "That account could not be created. Try another email or log in."
	msgLocalDisabled       = "Password accounts are disabled here. Sign in with a provider instead."
)

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.page(w, r, http.StatusOK, ViewLogin, ViewData{
		Failed:    r.URL.Query().Get("failed") != "",
		Providers: s.providers(),
	})
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.page(w, r, http.StatusOK, ViewRegister, ViewData{Providers: s.providers()})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.page(w, r, http.StatusBadRequest, ViewRegister, ViewData{Message: msgInvalidRegistration, Providers: s.providers()})
		return
	}
	identifier := formValue(r, "identifier", "username")
	secret := formValue(r, "secret", "password")

	token, _, err := s.auth.Register(r.Context(), identifier, secret)
	switch {
	case errors.Is(err, domain.ErrInvalidSecret), errors.Is(err, app.ErrInvalidIdentifier):
		s.page(w, r, http.StatusBadRequest, ViewRegister, ViewData{Message: msgInvalidRegistration, Providers: s.providers()})
		return
	case errors.Is(err, credential.ErrUnsupported):
		s.page(w, r, http.StatusForbidden, ViewRegister, ViewData{Message: msgLocalDisabled, Providers: s.providers()})
		return
	case errors.Is(err, domain.ErrDuplicateIdentifier):
		s.page(w, r, http.StatusConflict, ViewRegister, ViewData{Message: msgRegistrationFailed, Providers: s.providers()})
		return
	case err != nil:
		s.serverError(w, r, err)
		return
	}

	s.setSessionCookie(w, token)
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/login?failed=1", http.StatusFound)
		return
	}
	identifier := formValue(r, "identifier", "username")
	secret := formValue(r, "secret", "password")

	token, err := s.auth.Login(r.Context(), identifier, secret)
	if errors.Is(err, app.ErrInvalidCredentials) || errors.Is(err, credential.ErrUnsupported) {
		http.Redirect(w, r, "/login?failed=1", http.StatusFound)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.setSessionCookie(w, token)
	http.Redirect(w, r, "/secrets", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), tokenFromRequest(r)); err != nil {
		s.serverError(w, r, err)
		return
	}
	s.clearCookie(w, sessionCookie, "/")
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleFederatedStart(w http.ResponseWriter, r *http.Request) {
	if s.federated == nil || s.states == nil {
		http.NotFound(w, r)
		return
	}
	name := r.PathValue("provider")
	flow, err := s.federated.Start(name)
	if errors.Is(err, app.ErrUnknownProvider) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	nonce, err := generateNonce()
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	state, err := s.states.Issue(name, nonce)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	target, err := flow.Redirect(s.callbackURL(name), state)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    nonce,
		Path:     "/auth/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode, // Lax so the provider's redirect back carries it
		MaxAge:   stateCookieAge,
	})
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleFederatedCallback(w http.ResponseWriter, r *http.Request) {
	if s.federated == nil || s.states == nil {
		http.NotFound(w, r)
		return
	}
	name := r.PathValue("provider")
	flow, err := s.federated.Resume(name)
	if errors.Is(err, app.ErrUnknownProvider) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.clearCookie(w, stateCookie, "/auth/")

	var nonce string
	if c, err := r.Cookie(stateCookie); err == nil {
		nonce = c.Value
	}
	params := r.URL.Query()
	if err := s.states.Verify(params.Get("state"), name, nonce); err != nil {
		s.log.Warn(r.Context(), "federated login rejected", "provider", name, "error", err)
		http.Redirect(w, r, "/login?failed=1", http.StatusFound)
		return
	}

	token, _, err := flow.Callback(r.Context(), params)
	if err != nil {
		http.Redirect(w, r, "/login?failed=1", http.StatusFound)
		return
	}

	s.setSessionCookie(w, token)
	http.Redirect(w, r, "/secrets", http.StatusFound)
}
