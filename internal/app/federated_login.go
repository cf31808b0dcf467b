package app

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"

	"secrets/internal/domain"
	"secrets/internal/logging"
)

var (
	// ErrFederatedLoginFailed is the only failure a federated login reports
	// to callers; the cause is logged.
	ErrFederatedLoginFailed = errors.New("authentication failed")
	// ErrUnknownProvider indicates that no provider is registered under a name.
	ErrUnknownProvider = errors.New("unknown identity provider")
	// ErrInvalidTransition indicates a flow step called out of order.
	ErrInvalidTransition = errors.New("invalid federated login transition")
)

// DefaultScopes are requested from every provider.
var DefaultScopes = []string{"openid", "profile", "email"}

// Provider is the provider-integration boundary. The OAuth wire protocol is
// encapsulated behind it.
type Provider interface {
	Name() string
	BuildRedirect(scopes []string, callbackURL, state string) string
	// ExchangeCallback validates the raw callback parameters and returns the
	// asserted identity, or a *domain.ProviderError.
	ExchangeCallback(ctx context.Context, params url.Values) (*domain.FederatedIdentity, error)
}

// FlowState is a step of a federated login attempt.
type FlowState int

const (
	FlowInit FlowState = iota
	FlowRedirected
	FlowCallbackReceived
	FlowAuthenticated
	FlowFailed
)

func (s FlowState) String() string {
	switch s {
	case FlowInit:
		return "init"
	case FlowRedirected:
		return "redirected_to_provider"
	case FlowCallbackReceived:
		return "callback_received"
	case FlowAuthenticated:
		return "authenticated"
	case FlowFailed:
		return "failed"
	default:
		return fmt.Sprintf("FlowState(%d)", int(s))
	}
}

// FederatedLogin orchestrates logins delegated to external providers.
type FederatedLogin struct {
	providers map[string]Provider
	users     *UserStore
	sessions  *SessionManager
	scopes    []string
	log       logging.Logger
}

// NewFederatedLogin registers providers by name.
func NewFederatedLogin(users *UserStore, sessions *SessionManager, log logging.Logger, providers ...Provider) *FederatedLogin {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &FederatedLogin{
		providers: m,
		users:     users,
		sessions:  sessions,
		scopes:    DefaultScopes,
		log:       log,
	}
}

// Providers lists the registered provider names.
func (f *FederatedLogin) Providers() []string {
	names := make([]string, 0, len(f.providers))
	for n := range f.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Start opens a new attempt in FlowInit.
func (f *FederatedLogin) Start(provider string) (*Flow, error) {
	p, ok := f.providers[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return &Flow{login: f, provider: p, state: FlowInit}, nil
}

// Resume picks up an attempt whose user agent came back from the provider.
// Nothing about the attempt is stored server-side before the callback, so an
// abandoned attempt leaves no state behind.
func (f *FederatedLogin) Resume(provider string) (*Flow, error) {
	p, ok := f.providers[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return &Flow{login: f, provider: p, state: FlowRedirected}, nil
}

// Flow is one login attempt. It is not safe for concurrent use.
type Flow struct {
	login    *FederatedLogin
	provider Provider
	state    FlowState
}

// State returns the current step.
func (fl *Flow) State() FlowState {
	return fl.state
}

// Redirect produces the provider URL the user agent must visit.
func (fl *Flow) Redirect(callbackURL, state string) (string, error) {
	if fl.state != FlowInit {
		return "", ErrInvalidTransition
	}
	target := fl.provider.BuildRedirect(fl.login.scopes, callbackURL, state)
	fl.state = FlowRedirected
	return target, nil
}

// Callback validates the provider response, reconciles the identity into a
// local user through find-or-create and establishes a session. Every failure
// ends in FlowFailed and is reported as ErrFederatedLoginFailed.
func (fl *Flow) Callback(ctx context.Context, params url.Values) (string, *domain.User, error) {
	if fl.state != FlowRedirected {
		return "", nil, ErrInvalidTransition
	}
	fl.state = FlowCallbackReceived

	ident, err := fl.provider.ExchangeCallback(ctx, params)
	if err != nil {
		return fl.fail(ctx, "provider exchange", err)
	}
	if ident == nil || ident.Subject == "" {
		return fl.fail(ctx, "provider exchange", errors.New("empty identity"))
	}
	ident.Provider = fl.provider.Name()

	u, err := fl.login.users.FindOrCreate(ctx, *ident)
	if err != nil {
		return fl.fail(ctx, "find or create", err)
	}

	token, err := fl.login.sessions.Establish(ctx, u.ID)
	if err != nil {
		return fl.fail(ctx, "establish session", err)
	}

	fl.state = FlowAuthenticated
	return token, sanitize(u), nil
}

func (fl *Flow) fail(ctx context.Context, step string, err error) (string, *domain.User, error) {
	fl.state = FlowFailed
	fl.login.log.Warn(ctx, "federated login failed", "provider", fl.provider.Name(), "step", step, "error", err)
	return "", nil, ErrFederatedLoginFailed
}
