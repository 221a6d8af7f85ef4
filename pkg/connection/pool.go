package connection

import (
	"context"
	"sort"
	"sync"

	"github.com/adfharrison1/go-filestore/pkg/storage"
)

// Pool hands out one connected Manager per database name over a shared backend.
type Pool struct {
	backend storage.Backend
	opts    []Option

	mu       sync.Mutex
	managers map[string]*Manager
}

// NewPool creates a pool; opts apply to every manager it creates
func NewPool(backend storage.Backend, opts ...Option) *Pool {
	return &Pool{
		backend:  backend,
		opts:     opts,
		managers: make(map[string]*Manager),
	}
}

// Manager returns the connected manager for database, connecting it on first use.
func (p *Pool) Manager(ctx context.Context, database string) (*Manager, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if m, exists := p.managers[database]; exists {
		return m, nil
	}

	m := NewManager(p.backend, p.opts...)
	if err := m.Connect(ctx, database, ""); err != nil {
		return nil, err
	}
	p.managers[database] = m
	return m, nil
}

// Databases returns the names of the connected databases in lexical order
func (p *Pool) Databases() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.managers))
	for name := range p.managers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close flushes every namespace through the backend
func (p *Pool) Close(ctx context.Context) error {
	return p.backend.Close(ctx)
}
