package provisioning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Harshitk-cp/tenantctl/internal/domain"
	"github.com/avast/retry-go/v4"
	"github.com/tidwall/gjson"
)

// NeonClient provisions one Neon project per tenant.
type NeonClient struct {
	apiURL          string
	apiKey          string
	orgID           string
	regionID        string
	postgresVersion string
	readyAttempts   uint
	readyDelay      time.Duration
	httpClient      *http.Client
	ping            PingFunc
}

func NewNeonClient(opts Options) *NeonClient {
	attempts := opts.ReadyAttempts
	if attempts == 0 {
		attempts = 10
	}
	delay := opts.ReadyDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return &NeonClient{
		apiURL:          strings.TrimRight(opts.APIURL, "/"),
		apiKey:          opts.APIKey,
		orgID:           opts.OrgID,
		regionID:        opts.RegionID,
		postgresVersion: opts.PostgresVersion,
		readyAttempts:   attempts,
		readyDelay:      delay,
		httpClient:      &http.Client{Timeout: 60 * time.Second},
		ping:            PgxPing,
	}
}

// WithPing replaces the liveness probe used by WaitUntilReady.
func (c *NeonClient) WithPing(ping PingFunc) *NeonClient {
	c.ping = ping
	return c
}

type neonProjectSpec struct {
	Name            string `json:"name"`
	OrgID           string `json:"org_id,omitempty"`
	RegionID        string `json:"region_id,omitempty"`
	PostgresVersion string `json:"postgres_version,omitempty"`
}

type neonCreateRequest struct {
	Project neonProjectSpec `json:"project"`
}

func (c *NeonClient) CreateDatabase(ctx context.Context, name string) (*domain.ProvisionedDatabase, error) {
	body, err := json.Marshal(neonCreateRequest{Project: neonProjectSpec{
		Name:            name,
		OrgID:           c.orgID,
		RegionID:        c.regionID,
		PostgresVersion: c.postgresVersion,
	}})
	if err != nil {
		return nil, fmt.Errorf("marshal neon request: %w", err)
	}

	respBody, err := c.do(ctx, http.MethodPost, "/projects", body)
	if err != nil {
		return nil, err
	}

	externalID := gjson.GetBytes(respBody, "project.id").String()
	if externalID == "" {
		externalID = gjson.GetBytes(respBody, "id").String()
	}
	connString := gjson.GetBytes(respBody, "connection_uris.0.connection_uri").String()
	if connString == "" {
		return nil, fmt.Errorf("%w: response has no connection uri", ErrProvisioningFailed)
	}

	return &domain.ProvisionedDatabase{
		ExternalID:       externalID,
		ConnectionString: connString,
	}, nil
}

// DeleteDatabase removes the Neon project. A project that is already gone
// yields an error matching ErrNotFound.
func (c *NeonClient) DeleteDatabase(ctx context.Context, externalID string) error {
	if externalID == "" {
		return fmt.Errorf("%w: empty project id", ErrProvisioningFailed)
	}
	_, err := c.do(ctx, http.MethodDelete, "/projects/"+url.PathEscape(externalID), nil)
	return err
}

// WaitUntilReady probes the new database on a fixed schedule until it answers
// or the attempt budget runs out.
func (c *NeonClient) WaitUntilReady(ctx context.Context, connString string) error {
	err := retry.Do(
		func() error { return c.ping(ctx, connString) },
		retry.Context(ctx),
		retry.Attempts(c.readyAttempts),
		retry.Delay(c.readyDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvisioningTimeout, err)
	}
	return nil
}

func (c *NeonClient) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create neon request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: neon request: %v", ErrProvisioningFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read neon response: %v", ErrProvisioningFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := gjson.GetBytes(respBody, "message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %w: neon API returned status %d: %s", ErrProvisioningFailed, ErrNotFound, resp.StatusCode, msg)
		}
		return nil, fmt.Errorf("%w: neon API returned status %d: %s", ErrProvisioningFailed, resp.StatusCode, msg)
	}

	return respBody, nil
}
