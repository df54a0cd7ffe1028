package db

import (
	"context"
	"fmt"
	"sync"

	"github.com/yardtrackpro/yardtrack-backend/pkg/config"
	"github.com/yardtrackpro/yardtrack-backend/pkg/logger"
)

// OpenFunc establishes a new client.
type OpenFunc func(ctx context.Context) (*Client, error)

// Lazy opens the shared client on first use and reuses it for the lifetime
// of the process. A failed open leaves the provider empty so the next call
// tries again.
type Lazy struct {
	open OpenFunc

	mu     sync.Mutex
	client *Client
}

func NewLazy(open OpenFunc) *Lazy {
	return &Lazy{open: open}
}

// NewLazyFromConfig defers New(cfg) until the first repository call.
func NewLazyFromConfig(cfg config.DBConfig, logg *logger.Logger) *Lazy {
	return NewLazy(func(ctx context.Context) (*Client, error) {
		client, err := New(ctx, cfg, logg)
		if err != nil {
			return nil, err
		}
		if err := client.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("pinging database: %w", err)
		}
		return client, nil
	})
}

func (l *Lazy) Conn(ctx context.Context) (*Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.client != nil {
		return l.client, nil
	}
	if l.open == nil {
		return nil, fmt.Errorf("db provider has no opener")
	}

	client, err := l.open(ctx)
	if err != nil {
		return nil, err
	}
	l.client = client
	return client, nil
}

func (l *Lazy) Ping(ctx context.Context) error {
	client, err := l.Conn(ctx)
	if err != nil {
		return err
	}
	return client.Ping(ctx)
}

// Close releases the client if one was opened.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.client == nil {
		return nil
	}
	err := l.client.Close()
	l.client = nil
	return err
}
