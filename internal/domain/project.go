package domain

import "time"

// Project is a tenant registered in the catalog database. Each project owns
// exactly one provisioned database, reachable through DatabaseURL.
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	DatabaseURL string    `json:"databaseUrl"`
	ExternalID  string    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProvisionedDatabase is what the provisioning vendor returns for a new database.
type ProvisionedDatabase struct {
	ExternalID       string
	ConnectionString string
}
