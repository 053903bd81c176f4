package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Harshitk-cp/tenantctl/internal/domain"
	"github.com/Harshitk-cp/tenantctl/internal/provisioning"
	"github.com/Harshitk-cp/tenantctl/internal/store"
	"github.com/Harshitk-cp/tenantctl/internal/tenantdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memCatalog is an in-memory ProjectStore.
type memCatalog struct {
	mu       sync.Mutex
	nextID   int64
	projects map[int64]domain.Project
	listErr  error
}

func newMemCatalog() *memCatalog {
	return &memCatalog{projects: make(map[int64]domain.Project)}
}

func (c *memCatalog) Create(ctx context.Context, p *domain.Project) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	p.ID = c.nextID
	p.CreatedAt = time.Now().Add(time.Duration(c.nextID) * time.Millisecond)
	p.UpdatedAt = p.CreatedAt
	c.projects[p.ID] = *p
	return nil
}

func (c *memCatalog) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (c *memCatalog) List(ctx context.Context) ([]domain.Project, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listErr != nil {
		return nil, c.listErr
	}
	out := []domain.Project{}
	for id := c.nextID; id > 0; id-- {
		if p, ok := c.projects[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *memCatalog) Delete(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.projects[id]; !ok {
		return store.ErrNotFound
	}
	delete(c.projects, id)
	return nil
}

type nopSchema struct {
	initialized []string
}

func (s *nopSchema) Initialize(ctx context.Context, connString string) error {
	s.initialized = append(s.initialized, connString)
	return nil
}

// memUsers is an in-memory UserAccessor that enforces email uniqueness per tenant.
type memUsers struct {
	mu    sync.Mutex
	users map[string][]domain.User
}

func (m *memUsers) ListUsers(ctx context.Context, connString string) []domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.users[connString]
	out := make([]domain.User, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		out = append(out, stored[i])
	}
	return out
}

func (m *memUsers) CreateUser(ctx context.Context, connString, name, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users[connString] {
		if u.Email == email {
			return nil, tenantdb.ErrDuplicateEmail
		}
	}
	u := domain.User{ID: int64(len(m.users[connString]) + 1), Name: name, Email: email, CreatedAt: time.Now()}
	m.users[connString] = append(m.users[connString], u)
	return &u, nil
}

type fakeClients struct {
	released []string
}

func (f *fakeClients) Release(connString string) { f.released = append(f.released, connString) }
func (f *fakeClients) Len() int                  { return 3 }

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

type testApp struct {
	app         *App
	catalog     *memCatalog
	provisioner *provisioning.MockClient
	clients     *fakeClients
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ta := &testApp{
		catalog:     newMemCatalog(),
		provisioner: provisioning.NewMockClient(),
		clients:     &fakeClients{},
	}
	ta.app = NewAppWithDeps(Deps{
		Catalog:     ta.catalog,
		CatalogPing: fakePinger{},
		Provisioner: ta.provisioner,
		Schema:      &nopSchema{},
		Users:       &memUsers{users: make(map[string][]domain.User)},
		Clients:     ta.clients,
	}, zap.NewNop())
	t.Cleanup(ta.app.Close)
	return ta
}

func (ta *testApp) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ta.app.Router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestEndToEnd_ProjectAndUsers(t *testing.T) {
	ta := newTestApp(t)

	rec := ta.do(t, http.MethodPost, "/projects", `{"name":"Acme"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	project := decode[map[string]any](t, rec)
	require.NotNil(t, project["id"])
	assert.Equal(t, "Acme", project["name"])
	assert.NotEmpty(t, project["databaseUrl"])
	assert.NotContains(t, project, "ExternalID")
	id := int64(project["id"].(float64))

	path := "/projects/" + jsonNumber(id) + "/users"

	rec = ta.do(t, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = ta.do(t, http.MethodPost, path, `{"name":"Alice","email":"alice@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := decode[map[string]any](t, rec)
	assert.Equal(t, "Alice", user["name"])
	assert.Equal(t, "alice@example.com", user["email"])
	assert.NotNil(t, user["id"])
	_, err := time.Parse(time.RFC3339Nano, user["createdAt"].(string))
	assert.NoError(t, err)

	rec = ta.do(t, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[[]map[string]any](t, rec)
	require.Len(t, users, 1)
	assert.Equal(t, user["id"], users[0]["id"])
	assert.Equal(t, "alice@example.com", users[0]["email"])
}

func TestListProjects_NewestFirst(t *testing.T) {
	ta := newTestApp(t)

	for _, name := range []string{"Alpha", "Beta"} {
		rec := ta.do(t, http.MethodPost, "/projects", `{"name":"`+name+`"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := ta.do(t, http.MethodGet, "/projects", "")
	require.Equal(t, http.StatusOK, rec.Code)
	projects := decode[[]map[string]any](t, rec)
	require.Len(t, projects, 2)
	assert.Equal(t, "Beta", projects[0]["name"])
}

func TestListProjects_CatalogFailureRendersEmpty(t *testing.T) {
	ta := newTestApp(t)
	ta.catalog.listErr = errors.New("catalog down")

	rec := ta.do(t, http.MethodGet, "/projects", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCreateProject_Validation(t *testing.T) {
	ta := newTestApp(t)

	for _, body := range []string{`{}`, `{"name":""}`, `{"name":"   "}`, `not json`} {
		rec := ta.do(t, http.MethodPost, "/projects", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Contains(t, decode[map[string]string](t, rec), "error")
	}
	assert.Empty(t, ta.provisioner.CreateCalls)
}

func TestCreateFields_TooLong(t *testing.T) {
	ta := newTestApp(t)
	long := strings.Repeat("a", 256)

	rec := ta.do(t, http.MethodPost, "/projects", `{"name":"`+long+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name must be at most 255 characters", decode[map[string]string](t, rec)["error"])
	assert.Empty(t, ta.provisioner.CreateCalls)

	require.Equal(t, http.StatusCreated, ta.do(t, http.MethodPost, "/projects", `{"name":"`+strings.Repeat("a", 255)+`"}`).Code)

	rec = ta.do(t, http.MethodPost, "/projects/1/users", `{"name":"Alice","email":"`+long+`@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email must be at most 255 characters", decode[map[string]string](t, rec)["error"])

	rec = ta.do(t, http.MethodPost, "/projects/1/users", `{"email":"alice@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name and email are required", decode[map[string]string](t, rec)["error"])
}

func TestCreateProject_ProvisioningFailureIsGeneric(t *testing.T) {
	ta := newTestApp(t)
	ta.provisioner.CreateError = errors.New("neon API returned status 401: invalid api key sk-123")

	rec := ta.do(t, http.MethodPost, "/projects", `{"name":"Acme"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"failed to create project"}`, rec.Body.String())
}

func TestListUsers_UnknownOrMalformedProjectIsEmpty(t *testing.T) {
	ta := newTestApp(t)

	for _, path := range []string{"/projects/999999/users", "/projects/abc/users", "/projects/-1/users"} {
		rec := ta.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, `[]`, rec.Body.String(), path)
	}
}

func TestCreateUser_Errors(t *testing.T) {
	ta := newTestApp(t)
	rec := ta.do(t, http.MethodPost, "/projects", `{"name":"Acme"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"non-numeric id", "/projects/abc/users", `{"name":"Alice","email":"alice@example.com"}`, http.StatusBadRequest},
		{"unknown project", "/projects/999999/users", `{"name":"Alice","email":"alice@example.com"}`, http.StatusNotFound},
		{"missing name", "/projects/1/users", `{"email":"alice@example.com"}`, http.StatusBadRequest},
		{"missing email", "/projects/1/users", `{"name":"Alice"}`, http.StatusBadRequest},
		{"blank email", "/projects/1/users", `{"name":"Alice","email":"  "}`, http.StatusBadRequest},
		{"bad json", "/projects/1/users", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ta.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Contains(t, decode[map[string]string](t, rec), "error")
		})
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	ta := newTestApp(t)
	require.Equal(t, http.StatusCreated, ta.do(t, http.MethodPost, "/projects", `{"name":"Acme"}`).Code)

	body := `{"name":"Alice","email":"alice@example.com"}`
	require.Equal(t, http.StatusCreated, ta.do(t, http.MethodPost, "/projects/1/users", body).Code)

	rec := ta.do(t, http.MethodPost, "/projects/1/users", body)
	assert.Equal(t, http.StatusConflict, rec.Code)

	users := decode[[]map[string]any](t, ta.do(t, http.MethodGet, "/projects/1/users", ""))
	assert.Len(t, users, 1)
}

func TestGetAndDeleteProject(t *testing.T) {
	ta := newTestApp(t)
	require.Equal(t, http.StatusCreated, ta.do(t, http.MethodPost, "/projects", `{"name":"Acme"}`).Code)

	rec := ta.do(t, http.MethodGet, "/projects/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Acme", decode[map[string]any](t, rec)["name"])

	assert.Equal(t, http.StatusBadRequest, ta.do(t, http.MethodGet, "/projects/abc", "").Code)

	rec = ta.do(t, http.MethodDelete, "/projects/1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{ta.provisioner.ConnectionString}, ta.clients.released)
	assert.Equal(t, []string{"mock-project-1"}, ta.provisioner.DeleteCalls)

	assert.Equal(t, http.StatusNotFound, ta.do(t, http.MethodGet, "/projects/1", "").Code)
	assert.Equal(t, http.StatusNotFound, ta.do(t, http.MethodDelete, "/projects/1", "").Code)
}

func TestAPIPrefix(t *testing.T) {
	ta := newTestApp(t)

	rec := ta.do(t, http.MethodPost, "/api/projects", `{"name":"Acme"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ta.do(t, http.MethodGet, "/api/projects/1/users", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	ta := newTestApp(t)
	rec := ta.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, rec)["status"])

	down := NewAppWithDeps(Deps{
		Catalog:     newMemCatalog(),
		CatalogPing: fakePinger{err: errors.New("dial tcp: refused")},
		Provisioner: provisioning.NewMockClient(),
		Schema:      &nopSchema{},
		Users:       &memUsers{users: map[string][]domain.User{}},
		Clients:     &fakeClients{},
	}, zap.NewNop())
	defer down.Close()

	rec = httptest.NewRecorder()
	down.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "refused")
}

func TestMetrics(t *testing.T) {
	ta := newTestApp(t)
	ta.do(t, http.MethodGet, "/projects/abc", "")

	rec := ta.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode[map[string]any](t, rec)
	assert.Equal(t, float64(3), m["tenant_clients"])
	requests := m["requests"].(map[string]any)
	assert.GreaterOrEqual(t, requests["request_count"].(float64), float64(2))
	assert.Equal(t, float64(1), requests["client_error_count"])
}

func TestRequestIDHeader(t *testing.T) {
	ta := newTestApp(t)
	rec := ta.do(t, http.MethodGet, "/projects", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
