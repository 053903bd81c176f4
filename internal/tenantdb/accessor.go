package tenantdb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Harshitk-cp/tenantctl/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// ClientSource hands out tenant handles. *Registry implements it.
type ClientSource interface {
	Get(ctx context.Context, connString string) (*Handle, error)
}

// Accessor reads and writes the users table of tenant databases. Every call is
// a single statement on the shared handle; there are no transactions.
type Accessor struct {
	clients ClientSource
	logger  *zap.Logger
}

func NewAccessor(clients ClientSource, logger *zap.Logger) *Accessor {
	return &Accessor{clients: clients, logger: logger}
}

// ListUsers returns the tenant's users, newest id first. It never fails: when
// the tenant cannot be read the result is an empty slice and the cause is logged.
func (a *Accessor) ListUsers(ctx context.Context, connString string) []domain.User {
	h, err := a.clients.Get(ctx, connString)
	if err != nil {
		a.logger.Warn("tenant client unavailable", zap.Error(err))
		return []domain.User{}
	}

	col := h.timestampColumn(ctx)
	users, err := listUsers(ctx, h.DB(), timestampExpr(col))
	if err == nil {
		return users
	}

	if col != "" {
		a.logger.Warn("list users with timestamp column failed, retrying without it",
			zap.String("column", col), zap.Error(err))
		h.invalidateProbe()
		users, err = listUsers(ctx, h.DB(), nowExpr)
		if err == nil {
			return users
		}
	}

	a.logger.Warn("list users failed", zap.Error(err))
	return []domain.User{}
}

// CreateUser inserts a user. Empty name or email is rejected before any
// database work. Email uniqueness is left to the tenant schema.
func (a *Accessor) CreateUser(ctx context.Context, connString, name, email string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return nil, ErrInvalidUser
	}

	h, err := a.clients.Get(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}

	col := h.timestampColumn(ctx)
	u, err := insertUser(ctx, h.DB(), name, email, col)
	if err != nil && col != "" && hasCode(err, codeUndefinedColumn) {
		a.logger.Warn("insert with timestamp column failed, retrying without it",
			zap.String("column", col), zap.Error(err))
		h.invalidateProbe()
		u, err = insertUser(ctx, h.DB(), name, email, "")
	}
	if err != nil {
		if hasCode(err, codeUniqueViolation) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("%w: %w", ErrCreateFailed, err)
	}
	return u, nil
}

func listUsers(ctx context.Context, db DB, tsExpr string) ([]domain.User, error) {
	rows, err := db.Query(ctx,
		`SELECT id, name, email, `+tsExpr+` FROM "users" ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		var (
			u       domain.User
			created *time.Time
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &created); err != nil {
			return nil, err
		}
		u.CreatedAt = timeOrNow(created)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func insertUser(ctx context.Context, db DB, name, email, col string) (*domain.User, error) {
	var sql string
	if col == "" {
		sql = `INSERT INTO "users" (name, email) VALUES ($1, $2)
			RETURNING id, name, email, ` + nowExpr
	} else {
		ident := timestampExpr(col)
		sql = `INSERT INTO "users" (name, email, ` + ident + `) VALUES ($1, $2, ` + nowExpr + `)
			RETURNING id, name, email, ` + ident
	}

	var (
		u       domain.User
		created *time.Time
	)
	if err := db.QueryRow(ctx, sql, name, email).Scan(&u.ID, &u.Name, &u.Email, &created); err != nil {
		return nil, err
	}
	u.CreatedAt = timeOrNow(created)
	return &u, nil
}

func timeOrNow(t *time.Time) time.Time {
	if t == nil {
		return time.Now().UTC()
	}
	return *t
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
