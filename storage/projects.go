package storage

import (
	"context"
	"database/sql"

	"taskdeck/domain"
)

// ProjectStore implements domain.ProjectStore over Postgres.
type ProjectStore struct {
	db *DB
}

func NewProjectStore(db *DB) *ProjectStore {
	return &ProjectStore{db: db}
}

const projectColumns = "id, name, description, owner_id, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var p domain.Project
	var description sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &description, &p.OwnerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	p.Description = description.String
	return &p, nil
}

func (s *ProjectStore) GetAll(ctx context.Context, ownerID string) ([]domain.Project, error) {
	rows, err := s.db.pool.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (s *ProjectStore) GetByID(ctx context.Context, ownerID, id string) (*domain.Project, error) {
	row := s.db.pool.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1 AND owner_id = $2`, id, ownerID)
	return scanProject(row)
}

// GetByIDAny resolves a project regardless of owner. Used by upsert and
// update, which need the stored owner to decide authorization themselves.
func (s *ProjectStore) GetByIDAny(ctx context.Context, id string) (*domain.Project, error) {
	row := s.db.pool.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	return scanProject(row)
}

func (s *ProjectStore) Insert(ctx context.Context, ownerID, id, name, description string) (*domain.Project, error) {
	var row *sql.Row
	if id != "" {
		row = s.db.pool.QueryRowContext(ctx,
			`INSERT INTO projects (id, name, description, owner_id) VALUES ($1, $2, $3, $4) RETURNING `+projectColumns,
			id, name, description, ownerID)
	} else {
		row = s.db.pool.QueryRowContext(ctx,
			`INSERT INTO projects (name, description, owner_id) VALUES ($1, $2, $3) RETURNING `+projectColumns,
			name, description, ownerID)
	}
	p, err := scanProject(row)
	if err != nil {
		return nil, translateError(err)
	}
	return p, nil
}

func (s *ProjectStore) Update(ctx context.Context, id, name, description string) (*domain.Project, error) {
	row := s.db.pool.QueryRowContext(ctx,
		`UPDATE projects SET name = $1, description = $2 WHERE id = $3 RETURNING `+projectColumns,
		name, description, id)
	return scanProject(row)
}

func (s *ProjectStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.pool.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	return err
}
