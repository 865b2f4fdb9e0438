package storage

import (
	"context"
	"database/sql"
	"time"

	"taskdeck/domain"
)

// TaskStore implements domain.TaskStore over Postgres.
type TaskStore struct {
	db *DB
}

func NewTaskStore(db *DB) *TaskStore {
	return &TaskStore{db: db}
}

const taskColumns = "tasks.id, tasks.project_id, tasks.name, tasks.due, tasks.description, tasks.priority, tasks.finished, tasks.created_at, tasks.updated_at"

func scanTask(row rowScanner) (*domain.Task, error) {
	var t domain.Task
	var due time.Time
	var description sql.NullString
	if err := row.Scan(&t.ID, &t.ProjectID, &t.Name, &due, &description, &t.Priority, &t.Finished, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	t.Due = domain.Due{Time: due}
	t.Description = description.String
	return &t, nil
}

func (s *TaskStore) queryTasks(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	rows, err := s.db.pool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) GetByProject(ctx context.Context, projectID string) ([]domain.Task, error) {
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE project_id = $1 ORDER BY due`, projectID)
}

// GetByDueDate matches tasks whose due timestamp falls on the given calendar
// day, scoped to the owner through the parent project.
func (s *TaskStore) GetByDueDate(ctx context.Context, ownerID string, day time.Time) ([]domain.Task, error) {
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 JOIN projects ON tasks.project_id = projects.id
		 WHERE tasks.due::date = $1::date AND projects.owner_id = $2
		 ORDER BY tasks.due`, day, ownerID)
}

func (s *TaskStore) GetByPriority(ctx context.Context, ownerID string, priority domain.Priority) ([]domain.Task, error) {
	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 JOIN projects ON tasks.project_id = projects.id
		 WHERE tasks.priority = $1 AND projects.owner_id = $2
		 ORDER BY tasks.due`, string(priority), ownerID)
}

func (s *TaskStore) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	row := s.db.pool.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	return scanTask(row)
}

func (s *TaskStore) Insert(ctx context.Context, draft domain.TaskDraft) (*domain.Task, error) {
	var row *sql.Row
	if draft.ID != "" {
		row = s.db.pool.QueryRowContext(ctx,
			`INSERT INTO tasks (id, project_id, name, due, description, priority)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+taskColumns,
			draft.ID, draft.ProjectID, draft.Name, draft.Due.Time, draft.Description, string(draft.Priority))
	} else {
		row = s.db.pool.QueryRowContext(ctx,
			`INSERT INTO tasks (project_id, name, due, description, priority)
			 VALUES ($1, $2, $3, $4, $5) RETURNING `+taskColumns,
			draft.ProjectID, draft.Name, draft.Due.Time, draft.Description, string(draft.Priority))
	}
	t, err := scanTask(row)
	if err != nil {
		return nil, translateError(err)
	}
	return t, nil
}

func (s *TaskStore) Update(ctx context.Context, id string, upd domain.TaskUpdate) (*domain.Task, error) {
	row := s.db.pool.QueryRowContext(ctx,
		`UPDATE tasks SET name = $2, description = $3, due = $4, priority = $5
		 WHERE id = $1 RETURNING `+taskColumns,
		id, upd.Name, upd.Description, upd.Due.Time, string(upd.Priority))
	return scanTask(row)
}

func (s *TaskStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.pool.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return err
}

// Toggle flips finished in a single statement so concurrent toggles cannot
// lose a flip. Returns nil when the task does not exist.
func (s *TaskStore) Toggle(ctx context.Context, id string) (*domain.Task, error) {
	row := s.db.pool.QueryRowContext(ctx,
		`UPDATE tasks SET finished = NOT finished WHERE id = $1 RETURNING `+taskColumns, id)
	return scanTask(row)
}
