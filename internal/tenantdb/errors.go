package tenantdb

import "errors"

var (
	ErrInvalidUser      = errors.New("name and email are required")
	ErrDuplicateEmail   = errors.New("a user with this email already exists")
	ErrCreateFailed     = errors.New("failed to create user")
	ErrSchemaInitFailed = errors.New("failed to initialize tenant schema")
)

// SQLSTATE codes the accessor reacts to.
const (
	codeUniqueViolation = "23505"
	codeUndefinedColumn = "42703"
)
