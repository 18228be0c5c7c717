// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package forward

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/jwt"
)

// newClient returns an HTTP client authenticating its requests as configured: a JWT bearer
// grant signed with the private key, a client credentials grant, a static bearer token or
// nothing at all.
func newClient(ctx context.Context, cfg config) *http.Client {
	var source oauth2.TokenSource
	switch {
	case len(cfg.PrivateKey) > 0:
		assertion := &jwt.Config{
			Subject:      cfg.ClientID,
			PrivateKey:   []byte(cfg.PrivateKey),
			PrivateKeyID: cfg.PrivateKeyID,
			TokenURL:     cfg.AuthEndpoint,
		}
		source = assertion.TokenSource(ctx)
	case len(cfg.ClientID) > 0:
		credentials := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.AuthEndpoint,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		source = credentials.TokenSource(ctx)
	case len(cfg.Token) > 0:
		source = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
	}

	if source == nil {
		return &http.Client{}
	}

	return &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, source),
			Base:   http.DefaultTransport,
		},
	}
}
