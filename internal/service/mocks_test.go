package service

import (
	"context"

	"github.com/Harshitk-cp/tenantctl/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockProjectStore mocks the ProjectStore interface.
type MockProjectStore struct {
	mock.Mock
}

func (m *MockProjectStore) Create(ctx context.Context, p *domain.Project) error {
	args := m.Called(ctx, p)
	if args.Error(0) == nil {
		p.ID = 1
	}
	return args.Error(0)
}

func (m *MockProjectStore) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectStore) List(ctx context.Context) ([]domain.Project, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Project), args.Error(1)
}

func (m *MockProjectStore) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSchemaInitializer mocks the SchemaInitializer interface.
type MockSchemaInitializer struct {
	mock.Mock
}

func (m *MockSchemaInitializer) Initialize(ctx context.Context, connString string) error {
	args := m.Called(ctx, connString)
	return args.Error(0)
}

// MockUserAccessor mocks the UserAccessor interface.
type MockUserAccessor struct {
	mock.Mock
}

func (m *MockUserAccessor) ListUsers(ctx context.Context, connString string) []domain.User {
	args := m.Called(ctx, connString)
	return args.Get(0).([]domain.User)
}

func (m *MockUserAccessor) CreateUser(ctx context.Context, connString, name, email string) (*domain.User, error) {
	args := m.Called(ctx, connString, name, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type releaseRecorder struct {
	released []string
}

func (r *releaseRecorder) Release(connString string) {
	r.released = append(r.released, connString)
}
