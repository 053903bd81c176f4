package tenantdb

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DB is the client surface of a tenant database. *pgxpool.Pool satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Dialer opens a client for a tenant connection string.
type Dialer func(ctx context.Context, connString string) (DB, error)

// PoolDialer returns a Dialer that opens a pgxpool.Pool capped at maxConns.
// Pools connect lazily, so dialing does not touch the network.
func PoolDialer(maxConns int32) Dialer {
	return func(ctx context.Context, connString string) (DB, error) {
		cfg, err := pgxpool.ParseConfig(connString)
		if err != nil {
			return nil, fmt.Errorf("parse tenant connection string: %w", err)
		}
		if maxConns > 0 {
			cfg.MaxConns = maxConns
		}
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open tenant pool: %w", err)
		}
		return pool, nil
	}
}

// Handle is the cached client of one tenant database, shared by every request
// for that tenant. It also remembers how the tenant's users table is shaped.
type Handle struct {
	db DB

	mu       sync.Mutex
	probed   bool
	tsColumn string
}

func (h *Handle) DB() DB {
	return h.db
}

// Registry keeps at most one Handle per distinct connection string for the
// lifetime of the process.
//
// There is no size limit and no automatic eviction. Release is the only way
// to shrink it and is called when a project is deleted.
type Registry struct {
	dial   Dialer
	logger *zap.Logger

	mu      sync.Mutex
	handles map[string]*Handle
}

func NewRegistry(dial Dialer, logger *zap.Logger) *Registry {
	return &Registry{
		dial:    dial,
		logger:  logger,
		handles: make(map[string]*Handle),
	}
}

// Get returns the cached handle for connString, dialing it on first use.
// Failed dials are not cached.
func (r *Registry) Get(ctx context.Context, connString string) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handles[connString]; ok {
		return h, nil
	}

	db, err := r.dial(ctx, connString)
	if err != nil {
		return nil, err
	}
	h := &Handle{db: db}
	r.handles[connString] = h
	r.logger.Debug("tenant client opened", zap.Int("open_clients", len(r.handles)))
	return h, nil
}

// Release closes and forgets the handle for connString. Unknown strings are ignored.
func (r *Registry) Release(connString string) {
	r.mu.Lock()
	h, ok := r.handles[connString]
	delete(r.handles, connString)
	n := len(r.handles)
	r.mu.Unlock()

	if !ok {
		return
	}
	h.db.Close()
	r.logger.Debug("tenant client released", zap.Int("open_clients", n))
}

// Shutdown closes every handle. The registry stays usable afterwards.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	handles := r.handles
	r.handles = make(map[string]*Handle)
	r.mu.Unlock()

	for _, h := range handles {
		h.db.Close()
	}
	r.logger.Info("tenant clients closed", zap.Int("count", len(handles)))
}

// Len returns the number of open handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
