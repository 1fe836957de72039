package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mbx/internal/cache"
	"github.com/desertthunder/mbx/internal/shared"
	"golang.org/x/time/rate"
)

// ClientOptions configures an adapter's upstream connection.
type ClientOptions struct {
	BaseURL      string        // overrides the production API root
	TokenURL     string        // overrides the OAuth2 token endpoint
	ClientID     string        // OAuth2 client id
	ClientSecret string        // OAuth2 client secret
	CountryCode  string        // market used for catalog availability
	UserAgent    string        // sent on every request when set
	RateLimit    float64       // requests per second; zero disables limiting
	HTTPClient   *http.Client  // defaults to [http.DefaultClient]
	Store        cache.Store   // raw response cache; nil disables caching
	TTL          time.Duration // raw response lifetime
	Logger       *log.Logger   // defaults to [log.Default]
}

// bodyCheck inspects a 2xx body for errors reported in-band. A non-nil error keeps the body out of the cache.
type bodyCheck func(endpoint string, body []byte) error

// client performs rate-limited, classified and cached GET requests for one adapter.
type client struct {
	namespace string
	baseURL   string
	http      *http.Client
	header    http.Header
	tokens    *TokenSource
	limiter   *rate.Limiter
	check     bodyCheck
	logger    *log.Logger
	get       cache.Func1[string, json.RawMessage]
}

func newClient(namespace, defaultBaseURL string, o ClientOptions) *client {
	c := &client{
		namespace: namespace,
		baseURL:   strings.TrimRight(defaultBaseURL, "/"),
		http:      o.HTTPClient,
		header:    make(http.Header),
		logger:    o.Logger,
	}
	if o.BaseURL != "" {
		c.baseURL = strings.TrimRight(o.BaseURL, "/")
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	c.logger = shared.WithLogger(c.logger, "provider", namespace)
	if o.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(o.RateLimit), 1)
	}
	c.header.Set("Accept", "application/json")
	if o.UserAgent != "" {
		c.header.Set("User-Agent", o.UserAgent)
	}
	c.get = cache.Wrap1(o.Store, cache.Options{Namespace: namespace, Name: "get", TTL: o.TTL, Logger: c.logger}, c.fetch)
	return c
}

// getJSON fetches path with query through the cache and decodes the body into out.
func (c *client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	raw, err := c.get(ctx, endpoint)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &shared.ProviderError{Provider: c.namespace, Endpoint: path, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// fetch performs one uncached GET. A 401 on a token-backed client invalidates the token and retries once.
func (c *client) fetch(ctx context.Context, endpoint string) (json.RawMessage, error) {
	body, status, err := c.do(ctx, endpoint)
	if err == nil && status == http.StatusUnauthorized && c.tokens != nil {
		c.logger.Debug("token rejected, refreshing", "endpoint", endpoint)
		c.tokens.Invalidate()
		body, status, err = c.do(ctx, endpoint)
	}
	if err != nil {
		return nil, err
	}

	if status < 200 || status >= 300 {
		return nil, &shared.ProviderError{Provider: c.namespace, Endpoint: endpoint, StatusCode: status}
	}
	if c.check != nil {
		if err := c.check(endpoint, body); err != nil {
			return nil, err
		}
	}
	return json.RawMessage(body), nil
}

func (c *client) do(ctx context.Context, endpoint string) ([]byte, int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: failed to create request: %w", shared.ErrInvalidInput, err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	if c.tokens != nil {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, 0, &shared.ProviderError{Provider: c.namespace, Endpoint: endpoint, StatusCode: http.StatusUnauthorized, Err: err}
		}
		tok.SetAuthHeader(req)
	}

	c.logger.Debug("request", "endpoint", endpoint)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, &shared.ProviderError{Provider: c.namespace, Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &shared.ProviderError{Provider: c.namespace, Endpoint: endpoint, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	return body, resp.StatusCode, nil
}

// pathID escapes an upstream id for use as a path segment.
func pathID(id string) string {
	return url.PathEscape(strings.TrimSpace(id))
}
