package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
)

const namespaceSeparator = ":"

// Adapter exposes JSON get/set/remove/clear over a durable and an ephemeral
// backend. It never returns errors: failed reads look like missing data and
// failed writes are logged.
type Adapter struct {
	durable   Backend
	ephemeral Backend
	namespace string
}

// NewAdapter creates an adapter over the two scope backends
func NewAdapter(durable, ephemeral Backend) *Adapter {
	return &Adapter{durable: durable, ephemeral: ephemeral}
}

// WithNamespace returns an adapter whose keys are isolated under ns
func (a *Adapter) WithNamespace(ns string) *Adapter {
	return &Adapter{durable: a.durable, ephemeral: a.ephemeral, namespace: ns}
}

// Namespace returns the key namespace, empty for the root adapter
func (a *Adapter) Namespace() string {
	return a.namespace
}

func (a *Adapter) backend(scope Scope) Backend {
	if scope == Durable {
		return a.durable
	}
	return a.ephemeral
}

func (a *Adapter) prefix() string {
	if a.namespace == "" {
		return ""
	}
	return a.namespace + namespaceSeparator
}

func (a *Adapter) fullKey(key string) string {
	return a.prefix() + key
}

// Get decodes the value under key into v and reports whether it was found
func (a *Adapter) Get(ctx context.Context, key string, scope Scope, v any) bool {
	data, err := a.backend(scope).Get(ctx, a.fullKey(key))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Str("key", key).Stringer("scope", scope).Msg("storage get failed")
		}
		return false
	}
	if len(data) == 0 {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Warn().Err(err).Str("key", key).Stringer("scope", scope).Msg("storage value is not valid JSON")
		return false
	}
	return true
}

// Set encodes value as JSON and stores it under key
func (a *Adapter) Set(ctx context.Context, key string, value any, scope Scope) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Error().Err(err).Str("key", key).Stringer("scope", scope).Msg("storage set error")
		return
	}
	if err := a.backend(scope).Set(ctx, a.fullKey(key), data); err != nil {
		log.Error().Err(err).Str("key", key).Stringer("scope", scope).Msg("storage set error")
	}
}

// Remove deletes key
func (a *Adapter) Remove(ctx context.Context, key string, scope Scope) {
	if err := a.backend(scope).Delete(ctx, a.fullKey(key)); err != nil {
		log.Error().Err(err).Str("key", key).Stringer("scope", scope).Msg("storage remove error")
	}
}

// Clear deletes every key in the adapter's namespace for scope
func (a *Adapter) Clear(ctx context.Context, scope Scope) {
	if err := a.backend(scope).DeletePrefix(ctx, a.prefix()); err != nil {
		log.Error().Err(err).Stringer("scope", scope).Msg("storage clear error")
	}
}

// Get is a typed convenience over Adapter.Get
func Get[T any](ctx context.Context, a *Adapter, key string, scope Scope) (T, bool) {
	var v T
	ok := a.Get(ctx, key, scope, &v)
	return v, ok
}
