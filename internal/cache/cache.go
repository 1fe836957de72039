package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Store persists encoded results by key.
type Store interface {
	// Get returns the value for key and whether a live entry exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set writes value under key. A zero ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Maintainer is implemented by stores that support housekeeping.
type Maintainer interface {
	Prune(ctx context.Context) (int, error) // Prune removes expired entries
	Clear(ctx context.Context) (int, error) // Clear removes every entry
}

// Options configures a wrapped function.
type Options struct {
	Namespace string        // provider namespace owning the call
	Name      string        // function identity, unique within the namespace
	TTL       time.Duration // entry lifetime; zero never expires
	Logger    *log.Logger   // receives store failures; defaults to [log.Default]
}

// CallOption adjusts a single call of a wrapped function.
type CallOption func(*callConfig)

type callConfig struct {
	noCache bool
}

// NoCache skips the lookup for this call. The fresh result is still written.
func NoCache() CallOption {
	return func(c *callConfig) { c.noCache = true }
}

type bypassKey struct{}

// WithBypass marks every wrapped call made with ctx as [NoCache].
func WithBypass(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassKey{}, true)
}

// Bypassed reports whether ctx was created by [WithBypass].
func Bypassed(ctx context.Context) bool {
	v, _ := ctx.Value(bypassKey{}).(bool)
	return v
}

// Func1 is a memoized one-argument call.
type Func1[A, R any] func(ctx context.Context, a A, opts ...CallOption) (R, error)

// Func2 is a memoized two-argument call.
type Func2[A, B, R any] func(ctx context.Context, a A, b B, opts ...CallOption) (R, error)

// Func3 is a memoized three-argument call.
type Func3[A, B, C, R any] func(ctx context.Context, a A, b B, c C, opts ...CallOption) (R, error)

// Wrap1 memoizes fn in store.
func Wrap1[A, R any](store Store, o Options, fn func(context.Context, A) (R, error)) Func1[A, R] {
	return func(ctx context.Context, a A, opts ...CallOption) (R, error) {
		return call(ctx, store, o, opts, []any{a}, func(ctx context.Context) (R, error) { return fn(ctx, a) })
	}
}

// Wrap2 memoizes fn in store.
func Wrap2[A, B, R any](store Store, o Options, fn func(context.Context, A, B) (R, error)) Func2[A, B, R] {
	return func(ctx context.Context, a A, b B, opts ...CallOption) (R, error) {
		return call(ctx, store, o, opts, []any{a, b}, func(ctx context.Context) (R, error) { return fn(ctx, a, b) })
	}
}

// Wrap3 memoizes fn in store.
func Wrap3[A, B, C, R any](store Store, o Options, fn func(context.Context, A, B, C) (R, error)) Func3[A, B, C, R] {
	return func(ctx context.Context, a A, b B, c C, opts ...CallOption) (R, error) {
		return call(ctx, store, o, opts, []any{a, b, c}, func(ctx context.Context) (R, error) { return fn(ctx, a, b, c) })
	}
}

// Key returns the store key for a call with the given positional arguments.
func Key(namespace, name string, args ...any) (string, error) {
	if args == nil {
		args = []any{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to encode cache key arguments: %w", err)
	}
	return strings.Join([]string{namespace, name, string(encoded)}, ":"), nil
}

func call[R any](ctx context.Context, store Store, o Options, opts []CallOption, args []any, fn func(context.Context) (R, error)) (R, error) {
	if store == nil {
		return fn(ctx)
	}

	var cfg callConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := o.Logger
	if logger == nil {
		logger = log.Default()
	}

	key, err := Key(o.Namespace, o.Name, args...)
	if err != nil {
		logger.Warn("cache key unavailable, calling through", "namespace", o.Namespace, "name", o.Name, "err", err)
		return fn(ctx)
	}

	if !cfg.noCache && !Bypassed(ctx) {
		raw, ok, err := store.Get(ctx, key)
		switch {
		case err != nil:
			logger.Warn("cache read failed", "key", key, "err", err)
		case ok:
			var cached R
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
			logger.Warn("cache entry undecodable, refreshing", "key", key)
		}
	}

	result, err := fn(ctx)
	if err != nil {
		return result, err
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		logger.Warn("cache encode failed", "key", key, "err", err)
		return result, nil
	}
	if err := store.Set(ctx, key, encoded, o.TTL); err != nil {
		logger.Warn("cache write failed", "key", key, "err", err)
	}
	return result, nil
}
