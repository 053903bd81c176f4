package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Harshitk-cp/tenantctl/internal/domain"
	"github.com/Harshitk-cp/tenantctl/internal/provisioning"
	"github.com/Harshitk-cp/tenantctl/internal/store"
	"go.uber.org/zap"
)

// compensationTimeout bounds cleanup work that must outlive a cancelled request.
const compensationTimeout = 30 * time.Second

type ProjectService struct {
	store       domain.ProjectStore
	provisioner domain.Provisioner
	schema      domain.SchemaInitializer
	clients     domain.ClientReleaser
	logger      *zap.Logger
}

func NewProjectService(
	s domain.ProjectStore,
	provisioner domain.Provisioner,
	schema domain.SchemaInitializer,
	clients domain.ClientReleaser,
	logger *zap.Logger,
) *ProjectService {
	return &ProjectService{
		store:       s,
		provisioner: provisioner,
		schema:      schema,
		clients:     clients,
		logger:      logger,
	}
}

func (s *ProjectService) List(ctx context.Context) ([]domain.Project, error) {
	return s.store.List(ctx)
}

func (s *ProjectService) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return p, nil
}

// Create provisions a database for a new project, waits for it to accept
// connections, creates the users table and only then records the project in
// the catalog. If any step after provisioning fails the database is deleted
// again, so callers never see a half-created project.
func (s *ProjectService) Create(ctx context.Context, name string) (*domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrValidation)
	}

	log := s.logger.With(zap.String("project_name", name))

	db, err := s.provisioner.CreateDatabase(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("provision database: %w", err)
	}
	log = log.With(zap.String("external_id", db.ExternalID))
	log.Info("tenant database provisioned")

	if err := s.provisioner.WaitUntilReady(ctx, db.ConnectionString); err != nil {
		s.deprovision(ctx, log, db.ExternalID)
		return nil, fmt.Errorf("wait for database: %w", err)
	}

	if err := s.schema.Initialize(ctx, db.ConnectionString); err != nil {
		s.deprovision(ctx, log, db.ExternalID)
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	p := &domain.Project{
		Name:        name,
		DatabaseURL: db.ConnectionString,
		ExternalID:  db.ExternalID,
	}
	if err := s.store.Create(ctx, p); err != nil {
		s.deprovision(ctx, log, db.ExternalID)
		return nil, fmt.Errorf("save project: %w", err)
	}

	log.Info("project created", zap.Int64("project_id", p.ID))
	return p, nil
}

// Delete tears a project down: deletes the vendor database, removes the
// catalog row and drops the cached tenant client. The row is removed after the
// database so a failed deprovisioning can be retried; a database the vendor no
// longer knows counts as deleted.
func (s *ProjectService) Delete(ctx context.Context, id int64) error {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	log := s.logger.With(zap.Int64("project_id", id), zap.String("external_id", p.ExternalID))

	if p.ExternalID != "" {
		err := s.provisioner.DeleteDatabase(ctx, p.ExternalID)
		switch {
		case errors.Is(err, provisioning.ErrNotFound):
			log.Info("tenant database already deleted")
		case err != nil:
			return fmt.Errorf("deprovision database: %w", err)
		}
	}

	// The database is gone, so its client is useless whatever happens to the row.
	defer s.clients.Release(p.DatabaseURL)

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrProjectNotFound
		}
		return err
	}

	log.Info("project deleted")
	return nil
}

func (s *ProjectService) deprovision(ctx context.Context, log *zap.Logger, externalID string) {
	if externalID == "" {
		log.Warn("cannot roll back provisioned database without an external id")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if err := s.provisioner.DeleteDatabase(ctx, externalID); err != nil && !errors.Is(err, provisioning.ErrNotFound) {
		log.Error("failed to roll back provisioned database", zap.Error(err))
		return
	}
	log.Info("provisioned database rolled back")
}
