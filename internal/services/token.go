package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/desertthunder/mbx/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

// tokenLeeway is how long before expiry a token is considered stale.
const tokenLeeway = 30 * time.Second

// TokenFetchFunc obtains a fresh token from an upstream token endpoint.
type TokenFetchFunc func(ctx context.Context) (*oauth2.Token, error)

// TokenSource is an adapter-owned token cell. Concurrent callers that find the token stale share a
// single in-flight refresh.
type TokenSource struct {
	fetch TokenFetchFunc
	group singleflight.Group
	now   func() time.Time

	mu    sync.Mutex
	token *oauth2.Token
}

// NewTokenSource creates a cell that refreshes through fetch.
func NewTokenSource(fetch TokenFetchFunc) *TokenSource {
	return &TokenSource{fetch: fetch, now: time.Now}
}

// ClientCredentialsSource creates a cell backed by the OAuth2 client credentials grant.
func ClientCredentialsSource(cfg clientcredentials.Config, httpClient *http.Client) *TokenSource {
	return NewTokenSource(func(ctx context.Context) (*oauth2.Token, error) {
		if httpClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		}
		return cfg.Token(ctx)
	})
}

// Token returns the cached token, refreshing it when it is missing or within 30s of expiry.
func (s *TokenSource) Token(ctx context.Context) (*oauth2.Token, error) {
	if tok := s.current(); tok != nil {
		return tok, nil
	}

	// The flight outlives any single caller's cancellation since other callers may be waiting on it.
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do("token", func() (any, error) {
		if tok := s.current(); tok != nil {
			return tok, nil
		}
		tok, err := s.fetch(flightCtx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
		}
		if tok == nil || tok.AccessToken == "" {
			return nil, fmt.Errorf("%w: empty access token", shared.ErrRefreshFailed)
		}
		s.mu.Lock()
		s.token = tok
		s.mu.Unlock()
		return tok, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*oauth2.Token), nil
}

// Invalidate drops the cached token so the next call refreshes. Used after the upstream rejects it.
func (s *TokenSource) Invalidate() {
	s.mu.Lock()
	s.token = nil
	s.mu.Unlock()
}

func (s *TokenSource) current() *oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token == nil {
		return nil
	}
	if !s.token.Expiry.IsZero() && !s.now().Add(tokenLeeway).Before(s.token.Expiry) {
		return nil
	}
	return s.token
}
