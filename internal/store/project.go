package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Harshitk-cp/tenantctl/internal/domain"
	"github.com/jackc/pgx/v5"
)

// ProjectStore is the catalog of tenants. It is the only place that knows
// which projects exist and where their databases live.
type ProjectStore struct {
	db DBTX
}

func NewProjectStore(db DBTX) *ProjectStore {
	return &ProjectStore{db: db}
}

func (s *ProjectStore) Create(ctx context.Context, p *domain.Project) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO projects (name, database_url, external_id) VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		p.Name, p.DatabaseURL, p.ExternalID,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (s *ProjectStore) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	p := &domain.Project{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name, database_url, external_id, created_at, updated_at
		 FROM projects WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.DatabaseURL, &p.ExternalID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// List returns all projects, newest first.
func (s *ProjectStore) List(ctx context.Context) ([]domain.Project, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, database_url, external_id, created_at, updated_at
		 FROM projects ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []domain.Project{}
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.DatabaseURL, &p.ExternalID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

func (s *ProjectStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
