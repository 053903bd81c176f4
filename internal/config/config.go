package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by TENANTCTL_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("TENANTCTL_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Missing files are fine; the process environment still applies.
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

// DatabaseURL is the connection string of the catalog database.
func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// Provisioner returns the configured provisioning backend.
// Defaults to "neon" if not set.
// Valid values: neon, mock
func Provisioner() string {
	p := os.Getenv("PROVISIONER")
	if p == "" {
		return "neon"
	}
	return p
}

func NeonAPIKey() string {
	return os.Getenv("NEON_API_KEY")
}

func NeonOrgID() string {
	return os.Getenv("NEON_ORG_ID")
}

func NeonAPIURL() string {
	u := os.Getenv("NEON_API_URL")
	if u == "" {
		return "https://console.neon.tech/api/v2"
	}
	return u
}

func NeonRegionID() string {
	r := os.Getenv("NEON_REGION_ID")
	if r == "" {
		return "aws-ap-southeast-1"
	}
	return r
}

func NeonPostgresVersion() string {
	v := os.Getenv("NEON_POSTGRES_VERSION")
	if v == "" {
		return "17"
	}
	return v
}

// MockTenantDatabaseURL is handed out for every project when PROVISIONER=mock.
func MockTenantDatabaseURL() string {
	return os.Getenv("MOCK_TENANT_DATABASE_URL")
}

// ReadyAttempts returns how many liveness probes are issued against a freshly
// provisioned database before giving up. Defaults to 10.
func ReadyAttempts() uint {
	n, err := strconv.Atoi(os.Getenv("READY_ATTEMPTS"))
	if err != nil || n <= 0 {
		return 10
	}
	return uint(n)
}

// ReadyDelay returns the fixed pause between liveness probes. Defaults to 2s.
func ReadyDelay() time.Duration {
	d, err := time.ParseDuration(os.Getenv("READY_DELAY"))
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// TenantPoolMaxConns caps the pool opened for each tenant database. Defaults to 4.
func TenantPoolMaxConns() int32 {
	n, err := strconv.Atoi(os.Getenv("TENANT_POOL_MAX_CONNS"))
	if err != nil || n <= 0 {
		return 4
	}
	return int32(n)
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
