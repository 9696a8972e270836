package storage

import "context"

// Prefixed is a view of a Backend whose keys all live under a fixed prefix.
// It lets both scopes share one physical store without seeing each other.
type Prefixed struct {
	backend Backend
	prefix  string
}

// WithPrefix returns a view of b under prefix
func WithPrefix(b Backend, prefix string) *Prefixed {
	return &Prefixed{backend: b, prefix: prefix}
}

func (p *Prefixed) Name() string {
	return p.backend.Name()
}

func (p *Prefixed) Get(ctx context.Context, key string) ([]byte, error) {
	return p.backend.Get(ctx, p.prefix+key)
}

func (p *Prefixed) Set(ctx context.Context, key string, value []byte) error {
	return p.backend.Set(ctx, p.prefix+key, value)
}

func (p *Prefixed) Delete(ctx context.Context, key string) error {
	return p.backend.Delete(ctx, p.prefix+key)
}

func (p *Prefixed) DeletePrefix(ctx context.Context, prefix string) error {
	return p.backend.DeletePrefix(ctx, p.prefix+prefix)
}
