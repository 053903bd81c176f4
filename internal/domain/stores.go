package domain

import "context"

type ProjectStore interface {
	Create(ctx context.Context, p *Project) error
	GetByID(ctx context.Context, id int64) (*Project, error)
	List(ctx context.Context) ([]Project, error)
	Delete(ctx context.Context, id int64) error
}

// Provisioner creates and destroys isolated databases at the hosting vendor.
type Provisioner interface {
	CreateDatabase(ctx context.Context, name string) (*ProvisionedDatabase, error)
	DeleteDatabase(ctx context.Context, externalID string) error
	WaitUntilReady(ctx context.Context, connString string) error
}

type SchemaInitializer interface {
	Initialize(ctx context.Context, connString string) error
}

// UserAccessor reads and writes the users table of a tenant database.
// ListUsers degrades to an empty slice instead of failing.
type UserAccessor interface {
	ListUsers(ctx context.Context, connString string) []User
	CreateUser(ctx context.Context, connString, name, email string) (*User, error)
}

// ClientReleaser drops the cached client of a tenant database.
type ClientReleaser interface {
	Release(connString string)
}
