package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// DefaultScopes are the scopes requested from the connected app.
var DefaultScopes = []string{"api", "refresh_token"}

// TokenSet is the outcome of a successful exchange. It is owned by the
// current org's pipeline run and is never persisted.
type TokenSet struct {
	AccessToken string
	InstanceURL string
	TokenType   string
}

// Config describes the fixed endpoint pair of one Salesforce instance.
type Config struct {
	// InstanceURL is the org's base URL, e.g. https://mycompany.my.salesforce.com.
	InstanceURL  string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	// HTTPClient overrides the client used for the token request. Tests use
	// it to point the exchange at a fake endpoint.
	HTTPClient *http.Client
}

// Endpoint returns the instance's authorize/token endpoint pair.
func Endpoint(instanceURL string) oauth2.Endpoint {
	base := strings.TrimRight(instanceURL, "/")
	return oauth2.Endpoint{
		AuthURL:  base + "/services/oauth2/authorize",
		TokenURL: base + "/services/oauth2/token",
	}
}

func oauthConfig(cfg Config) oauth2.Config {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	return oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     Endpoint(cfg.InstanceURL),
		RedirectURL:  cfg.RedirectURL,
		Scopes:       scopes,
	}
}

// AuthCodeURL builds the browser URL for the session, carrying the S256
// challenge and the CSRF state.
func AuthCodeURL(cfg Config, session *Session) string {
	oc := oauthConfig(cfg)
	return oc.AuthCodeURL(session.State,
		oauth2.SetAuthURLParam("code_challenge", session.CodeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// Exchange swaps the authorization code for an access token, sending the
// original code verifier so the server can recompute the challenge. The code
// is single-use, so a failed exchange is terminal for the session.
func Exchange(ctx context.Context, cfg Config, session *Session, code string) (*TokenSet, error) {
	if cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, cfg.HTTPClient)
	}
	oc := oauthConfig(cfg)
	token, err := oc.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", session.CodeVerifier))
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) {
			return nil, &AuthenticationError{Code: rErr.ErrorCode, Description: rErr.ErrorDescription}
		}
		return nil, &AuthenticationError{Code: "token_exchange_failed", Description: err.Error()}
	}
	ts := &TokenSet{
		AccessToken: token.AccessToken,
		InstanceURL: cfg.InstanceURL,
		TokenType:   token.TokenType,
	}
	// The server-confirmed instance URL may differ from the requested one.
	if confirmed, ok := token.Extra("instance_url").(string); ok && confirmed != "" {
		ts.InstanceURL = confirmed
	}
	return ts, nil
}

// Mask shortens a secret for log output, keeping at most a four-character
// prefix.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:4] + "****"
}
