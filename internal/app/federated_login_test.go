package app

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"

	"secrets/internal/adapter/memory"
	"secrets/internal/domain"
	"secrets/internal/logging"
)

type fakeProvider struct {
	name       string
	exchangeFn func(ctx context.Context, params url.Values) (*domain.FederatedIdentity, error)
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) BuildRedirect(scopes []string, callbackURL, state string) string {
	q := url.Values{}
	q.Set("scope", strings.Join(scopes, " "))
	q.Set("redirect_uri", callbackURL)
	q.Set("state", state)
	return "https://idp.example.com/authorize?" + q.Encode()
}

func (p *fakeProvider) ExchangeCallback(ctx context.Context, params url.Values) (*domain.FederatedIdentity, error) {
	if p.exchangeFn != nil {
		return p.exchangeFn(ctx, params)
	}
	if e := params.Get("error"); e != "" {
		return nil, &domain.ProviderError{Provider: p.name, Reason: e}
	}
	return &domain.FederatedIdentity{Subject: params.Get("code"), DisplayName: "Gina"}, nil
}

func newFederated(t *testing.T, p Provider) (*FederatedLogin, *SessionManager, *countingUsers) {
	t.Helper()
	mem := memory.New()
	db := &countingUsers{UserRepository: mem}
	sessions := NewSessionManager(mem.NewSessionRepo(), db)
	return NewFederatedLogin(NewUserStore(db), sessions, logging.Discard(), p), sessions, db
}

func TestFlow_HappyPath(t *testing.T) {
	ctx := context.Background()
	login, sessions, db := newFederated(t, &fakeProvider{name: "g"})

	flow, err := login.Start("g")
	if err != nil {
		t.Fatal(err)
	}
	if flow.State() != FlowInit {
		t.Fatalf("expected init, got %s", flow.State())
	}

	target, err := flow.Redirect("https://app.example.com/auth/g/callback", "st")
	if err != nil {
		t.Fatal(err)
	}
	if flow.State() != FlowRedirected {
		t.Fatalf("expected redirected, got %s", flow.State())
	}
	u, _ := url.Parse(target)
	if u.Query().Get("scope") != "openid profile email" || u.Query().Get("redirect_uri") == "" {
		t.Errorf("redirect missing scopes or callback: %s", target)
	}
	if db.Count() != 0 {
		t.Fatal("redirect must not create records")
	}

	cb, _ := login.Resume("g")
	token, user, err := cb.Callback(ctx, url.Values{"code": {"123"}})
	if err != nil {
		t.Fatalf("Callback: %v", err)
	}
	if cb.State() != FlowAuthenticated {
		t.Fatalf("expected authenticated, got %s", cb.State())
	}
	if user.FederatedID != "g:123" || user.Credential != "" {
		t.Errorf("unexpected user %+v", user)
	}
	got, _ := sessions.Resolve(ctx, token)
	if got == nil || got.ID != user.ID {
		t.Error("session should resolve to the federated user")
	}
}

func TestFlow_TwoCallbacksConverge(t *testing.T) {
	ctx := context.Background()
	login, sessions, db := newFederated(t, &fakeProvider{name: "g"})

	type result struct {
		flow  *Flow
		token string
		user  *domain.User
		err   error
	}
	results := make([]result, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			flow, _ := login.Resume("g")
			tok, u, err := flow.Callback(ctx, url.Values{"code": {"123"}})
			results[i] = result{flow, tok, u, err}
		}(i)
	}
	wg.Wait()

	if db.Count() != 1 {
		t.Fatalf("expected exactly one user, got %d", db.Count())
	}
	for i, r := range results {
		if r.err != nil {
			t.Fatalf("flow %d: %v", i, r.err)
		}
		if r.flow.State() != FlowAuthenticated {
			t.Errorf("flow %d: state %s", i, r.flow.State())
		}
		got, _ := sessions.Resolve(ctx, r.token)
		if got == nil || got.ID != results[0].user.ID {
			t.Errorf("flow %d: session does not reference the shared user", i)
		}
	}
	if results[0].token == results[1].token {
		t.Error("each flow should establish its own session")
	}
}

func TestFlow_ProviderDenied(t *testing.T) {
	ctx := context.Background()
	login, _, db := newFederated(t, &fakeProvider{name: "g"})

	flow, _ := login.Resume("g")
	token, u, err := flow.Callback(ctx, url.Values{"error": {"access_denied"}})
	if !errors.Is(err, ErrFederatedLoginFailed) {
		t.Fatalf("expected ErrFederatedLoginFailed, got %v", err)
	}
	if strings.Contains(err.Error(), "access_denied") {
		t.Error("provider detail leaked to caller")
	}
	if token != "" || u != nil || flow.State() != FlowFailed {
		t.Errorf("unexpected outcome token=%q user=%v state=%s", token, u, flow.State())
	}
	if db.Count() != 0 {
		t.Error("failed flow must not create users")
	}
}

func TestFlow_PersistenceFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("db down")
	users := &mockUserRepo{
		createFn: func(ctx context.Context, u *domain.User) (*domain.User, error) { return nil, boom },
	}
	created := false
	sessions := NewSessionManager(&mockSessionRepo{
		createFn: func(ctx context.Context, s *domain.Session) error {
			created = true
			return nil
		},
	}, users)
	login := NewFederatedLogin(NewUserStore(users), sessions, logging.Discard(), &fakeProvider{name: "g"})

	flow, _ := login.Resume("g")
	if _, _, err := flow.Callback(ctx, url.Values{"code": {"1"}}); !errors.Is(err, ErrFederatedLoginFailed) {
		t.Fatalf("expected ErrFederatedLoginFailed, got %v", err)
	}
	if created {
		t.Error("no session may be established after a persistence failure")
	}
	if flow.State() != FlowFailed {
		t.Errorf("expected failed, got %s", flow.State())
	}
}

func TestFlow_EmptyIdentity(t *testing.T) {
	login, _, _ := newFederated(t, &fakeProvider{
		name: "g",
		exchangeFn: func(ctx context.Context, params url.Values) (*domain.FederatedIdentity, error) {
			return &domain.FederatedIdentity{}, nil
		},
	})
	flow, _ := login.Resume("g")
	if _, _, err := flow.Callback(context.Background(), url.Values{}); !errors.Is(err, ErrFederatedLoginFailed) {
		t.Errorf("expected ErrFederatedLoginFailed, got %v", err)
	}
}

func TestFlow_InvalidTransitions(t *testing.T) {
	ctx := context.Background()
	login, _, _ := newFederated(t, &fakeProvider{name: "g"})

	flow, _ := login.Start("g")
	if _, _, err := flow.Callback(ctx, url.Values{"code": {"1"}}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("callback before redirect: got %v", err)
	}

	resumed, _ := login.Resume("g")
	if _, err := resumed.Redirect("cb", "st"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("redirect after redirect: got %v", err)
	}
	if _, _, err := resumed.Callback(ctx, url.Values{"code": {"1"}}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := resumed.Callback(ctx, url.Values{"code": {"1"}}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second callback: got %v", err)
	}
}

func TestFederatedLogin_UnknownProvider(t *testing.T) {
	login, _, _ := newFederated(t, &fakeProvider{name: "g"})
	if _, err := login.Start("github"); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Start: got %v", err)
	}
	if _, err := login.Resume("github"); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("Resume: got %v", err)
	}
	if got := login.Providers(); len(got) != 1 || got[0] != "g" {
		t.Errorf("Providers() = %v", got)
	}
}

func TestFlowState_String(t *testing.T) {
	if FlowCallbackReceived.String() != "callback_received" || FlowState(42).String() != "FlowState(42)" {
		t.Error("unexpected FlowState names")
	}
}
