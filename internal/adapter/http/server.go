// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"net/http"
	"strings"

	"secrets/internal/app"
	"secrets/internal/logging"
)

// StateCodec signs and checks the OAuth state parameter.
type StateCodec interface {
	Issue(provider, nonce string) (string, error)
	Verify(state, provider, nonce string) error
}

// Options carries the collaborators of a Server. Federated and States are
// optional; without them the /auth routes answer 404.
type Options struct {
	Auth      *app.AuthService
	Sessions  *app.SessionManager
	Notes     *app.NotesService
	Federated *app.FederatedLogin
	States    StateCodec
	Renderer  Renderer
	Logger    logging.Logger

	// PublicURL is the externally visible base URL used to build provider
	// callback addresses.
	PublicURL     string
	SecureCookies bool
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	auth      *app.AuthService
	sessions  *app.SessionManager
	notes     *app.NotesService
	federated *app.FederatedLogin
	states    StateCodec
	gate      *Gate
	render    Renderer
	log       logging.Logger
	publicURL string
	secure    bool
}

// New creates a Server wired to the given application services.
func New(o Options) *Server {
	log := o.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Server{
		auth:      o.Auth,
		sessions:  o.Sessions,
		notes:     o.Notes,
		federated: o.Federated,
		states:    o.States,
		gate:      NewGate(o.Sessions),
		render:    o.Renderer,
		log:       log,
		publicURL: strings.TrimRight(o.PublicURL, "/"),
		secure:    o.SecureCookies,
	}
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /register", s.handleRegisterPage)
	mux.HandleFunc("POST /register", s.handleRegister)
	mux.HandleFunc("GET /logout", s.handleLogout)

	mux.HandleFunc("GET /secrets", s.handleSecrets)
	mux.HandleFunc("GET /submit", s.handleSubmitPage)
	mux.HandleFunc("POST /submit", s.handleSubmit)

	mux.HandleFunc("GET /auth/{provider}", s.handleFederatedStart)
	mux.HandleFunc("GET /auth/{provider}/callback", s.handleFederatedCallback)

	return s.loggingMiddleware(withNoCache(mux))
}

func (s *Server) providers() []string {
	if s.federated == nil {
		return nil
	}
	return s.federated.Providers()
}
