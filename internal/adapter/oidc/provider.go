// Package oidc integrates OpenID Connect identity providers through
// go-oidc and x/oauth2.
package oidc

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"secrets/internal/app"
	"secrets/internal/domain"
)

// Options configures a Provider.
type Options struct {
	Name         string
	Issuer       string
	ClientID     string
	ClientSecret string
	// RedirectURL must match the callback registered with the provider.
	RedirectURL string
	// HTTPClient is used for discovery and the code exchange. Nil means
	// http.DefaultClient.
	HTTPClient *http.Client
}

// Provider is an app.Provider backed by an OpenID Connect issuer.
type Provider struct {
	name     string
	oauth    oauth2.Config
	verifier *oidc.IDTokenVerifier
	client   *http.Client
}

// NewProvider runs discovery against opts.Issuer and returns a Provider.
func NewProvider(ctx context.Context, opts Options) (*Provider, error) {
	if opts.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, opts.HTTPClient)
	}
	p, err := oidc.NewProvider(ctx, opts.Issuer)
	if err != nil {
		return nil, err
	}
	return newProvider(opts, p.Endpoint(), p.Verifier(&oidc.Config{ClientID: opts.ClientID})), nil
}

func newProvider(opts Options, endpoint oauth2.Endpoint, verifier *oidc.IDTokenVerifier) *Provider {
	return &Provider{
		name: opts.Name,
		oauth: oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  opts.RedirectURL,
		},
		verifier: verifier,
		client:   opts.HTTPClient,
	}
}

// Name returns the provider name used in routes.
func (p *Provider) Name() string {
	return p.name
}

// BuildRedirect returns the authorization URL.
func (p *Provider) BuildRedirect(scopes []string, callbackURL, state string) string {
	cfg := p.oauth
	cfg.Scopes = scopes
	if callbackURL != "" {
		cfg.RedirectURL = callbackURL
	}
	return cfg.AuthCodeURL(state)
}

// ExchangeCallback redeems the authorization code and verifies the ID token.
func (p *Provider) ExchangeCallback(ctx context.Context, params url.Values) (*domain.FederatedIdentity, error) {
	if e := params.Get("error"); e != "" {
		return nil, p.fail("denied", errors.New(e))
	}
	code := params.Get("code")
	if code == "" {
		return nil, p.fail("missing code", nil)
	}

	if p.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	}
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, p.fail("code exchange", err)
	}

	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, p.fail("no id_token", nil)
	}
	idToken, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, p.fail("verify id_token", err)
	}

	var claims struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, p.fail("parse claims", err)
	}
	if claims.Sub == "" {
		return nil, p.fail("empty subject", nil)
	}

	return &domain.FederatedIdentity{
		Provider:    p.name,
		Subject:     claims.Sub,
		Email:       claims.Email,
		DisplayName: claims.Name,
	}, nil
}

func (p *Provider) fail(reason string, err error) error {
	return &domain.ProviderError{Provider: p.name, Reason: reason, Err: err}
}

var _ app.Provider = (*Provider)(nil)
