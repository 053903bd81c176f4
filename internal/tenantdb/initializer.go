package tenantdb

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const usersTableDDL = `
CREATE TABLE IF NOT EXISTS "users" (
	id SERIAL PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	email VARCHAR(255) UNIQUE NOT NULL,
	"createdAt" TIMESTAMP DEFAULT now(),
	"updatedAt" TIMESTAMP DEFAULT now()
)`

// Conn is a single short-lived connection. *pgx.Conn satisfies it.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close(ctx context.Context) error
}

type Connector func(ctx context.Context, connString string) (Conn, error)

func PgxConnector(ctx context.Context, connString string) (Conn, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Initializer creates the fixed users schema in a freshly provisioned
// tenant database. It never uses the Registry: the connection it opens is
// closed before Initialize returns.
type Initializer struct {
	connect Connector
	logger  *zap.Logger
}

func NewInitializer(connect Connector, logger *zap.Logger) *Initializer {
	return &Initializer{connect: connect, logger: logger}
}

func (i *Initializer) Initialize(ctx context.Context, connString string) error {
	conn, err := i.connect(ctx, connString)
	if err != nil {
		return fmt.Errorf("%w: connect: %w", ErrSchemaInitFailed, err)
	}
	defer func() {
		if err := conn.Close(context.Background()); err != nil {
			i.logger.Warn("failed to close schema init connection", zap.Error(err))
		}
	}()

	if _, err := conn.Exec(ctx, usersTableDDL); err != nil {
		return fmt.Errorf("%w: %w", ErrSchemaInitFailed, err)
	}

	i.logger.Info("tenant database initialized with users table")
	return nil
}
