package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/tenantctl/internal/domain"
	"github.com/Harshitk-cp/tenantctl/internal/store"
	"github.com/Harshitk-cp/tenantctl/internal/tenantdb"
	"go.uber.org/zap"
)

type UserService struct {
	projects domain.ProjectStore
	users    domain.UserAccessor
	logger   *zap.Logger
}

func NewUserService(projects domain.ProjectStore, users domain.UserAccessor, logger *zap.Logger) *UserService {
	return &UserService{projects: projects, users: users, logger: logger}
}

// List returns the users of a project. Unknown projects and catalog failures
// both yield an empty list.
func (s *UserService) List(ctx context.Context, projectID int64) []domain.User {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("failed to load project for user listing",
				zap.Int64("project_id", projectID), zap.Error(err))
		}
		return []domain.User{}
	}
	return s.users.ListUsers(ctx, p.DatabaseURL)
}

func (s *UserService) Create(ctx context.Context, projectID int64, name, email string) (*domain.User, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: name and email are required", ErrValidation)
	}

	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	u, err := s.users.CreateUser(ctx, p.DatabaseURL, name, email)
	if err != nil {
		switch {
		case errors.Is(err, tenantdb.ErrInvalidUser):
			return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
		case errors.Is(err, tenantdb.ErrDuplicateEmail):
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return u, nil
}
