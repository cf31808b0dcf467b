package adapthttp_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	adapthttp "secrets/internal/adapter/http"
	"secrets/internal/adapter/memory"
	"secrets/internal/app"
	"secrets/internal/domain"
)

func requestWithToken(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/secrets", nil)
	if token != "" {
		r.AddCookie(&http.Cookie{Name: "session", Value: token})
	}
	return r
}

func TestGateAdmit(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	db := memory.New()
	u, err := db.Create(ctx, &domain.User{ID: "u1", Identifier: "a@x.com", Credential: "rep", CreatedAt: now})
	if err != nil {
		t.Fatal(err)
	}
	sessions := app.NewSessionManager(db.NewSessionRepo(), db, app.WithTTL(time.Hour), app.WithClock(clock))
	gate := adapthttp.NewGate(sessions)

	t.Run("no token", func(t *testing.T) {
		a, err := gate.Admit(requestWithToken(""))
		if err != nil || a.Allowed() {
			t.Fatalf("expected denied, got %+v, %v", a, err)
		}
	})

	live, err := sessions.Establish(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("live token", func(t *testing.T) {
		a, err := gate.Admit(requestWithToken(live))
		if err != nil || !a.Allowed() {
			t.Fatalf("expected allowed, got %+v, %v", a, err)
		}
		if a.User.ID != u.ID || a.User.Identifier != u.Identifier {
			t.Fatalf("admitted wrong user %+v", a.User)
		}
		if a.User.Credential != "" {
			t.Fatal("admitted user must not carry the credential")
		}
	})

	t.Run("destroyed token", func(t *testing.T) {
		tok, _ := sessions.Establish(ctx, u.ID)
		if err := sessions.Destroy(ctx, tok); err != nil {
			t.Fatal(err)
		}
		if a, _ := gate.Admit(requestWithToken(tok)); a.Allowed() {
			t.Fatal("destroyed token admitted")
		}
		if a, _ := gate.Admit(requestWithToken(live)); !a.Allowed() {
			t.Fatal("destroying one session affected another")
		}
	})

	t.Run("expired token", func(t *testing.T) {
		now = now.Add(2 * time.Hour)
		if a, _ := gate.Admit(requestWithToken(live)); a.Allowed() {
			t.Fatal("expired token admitted")
		}
	})
}
