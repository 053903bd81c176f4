package provisioning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/tenantctl/internal/domain"
	"github.com/jackc/pgx/v5"
)

var (
	ErrProvisioningFailed  = errors.New("provisioning failed")
	ErrProvisioningTimeout = errors.New("provisioned database not ready in time")
	// ErrNotFound reports that the vendor has no database with the given id.
	ErrNotFound = errors.New("provisioned database not found")
)

// Provider constants
const (
	ProviderNeon = "neon"
	ProviderMock = "mock"
)

// PingFunc issues a single liveness probe against a database.
type PingFunc func(ctx context.Context, connString string) error

// Options configures the provisioning backend.
type Options struct {
	APIURL          string
	APIKey          string
	OrgID           string
	RegionID        string
	PostgresVersion string

	ReadyAttempts uint
	ReadyDelay    time.Duration

	// MockDatabaseURL is returned for every database created by the mock provider.
	MockDatabaseURL string
}

// NewClient creates a provisioner based on the provider name.
// Returns an error if the provider is unknown, the Neon API key is empty or
// the mock provider has no database URL.
func NewClient(provider string, opts Options) (domain.Provisioner, error) {
	switch provider {
	case ProviderNeon:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("NEON_API_KEY is required for Neon provider")
		}
		return NewNeonClient(opts), nil

	case ProviderMock:
		if opts.MockDatabaseURL == "" {
			return nil, fmt.Errorf("MOCK_TENANT_DATABASE_URL is required for mock provider")
		}
		m := NewMockClient()
		m.ConnectionString = opts.MockDatabaseURL
		return m, nil

	default:
		return nil, fmt.Errorf("unknown provisioner: %s (valid options: neon, mock)", provider)
	}
}

// PgxPing opens a one-off connection, runs SELECT 1 and closes it again.
func PgxPing(ctx context.Context, connString string) error {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(context.Background()) }()

	var one int
	return conn.QueryRow(ctx, "SELECT 1").Scan(&one)
}
