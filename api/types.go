package api

import (
	"context"

	"taskdeck/domain"
)

// ProjectDirectory is the project service surface handlers depend on.
type ProjectDirectory interface {
	List(ctx context.Context, ownerID string) ([]domain.Project, error)
	Get(ctx context.Context, ownerID, id string) (*domain.Project, error)
	Create(ctx context.Context, ownerID, id, name, description string) (*domain.Project, error)
	Upsert(ctx context.Context, ownerID, id string, name, description *string) (*domain.Project, error)
	Update(ctx context.Context, ownerID, id string, name, description *string) (*domain.Project, error)
	Delete(ctx context.Context, ownerID, id string) (*domain.Project, error)
	SubscribeChanged(ctx context.Context) <-chan domain.ProjectEvent
}

// TaskDirectory is the task service surface handlers depend on.
type TaskDirectory interface {
	List(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.Task, error)
	Create(ctx context.Context, ownerID string, draft domain.TaskDraft) (*domain.Task, error)
	Upsert(ctx context.Context, ownerID string, draft domain.TaskDraft) (*domain.Task, error)
	Update(ctx context.Context, ownerID, id string, upd domain.TaskUpdate) (*domain.Task, error)
	Delete(ctx context.Context, ownerID, id string) (*domain.Task, error)
	Toggle(ctx context.Context, id string) (*domain.Task, error)
	SubscribeChanged(ctx context.Context) <-chan domain.TaskEvent
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Pinger reports storage reachability for health checks.
type Pinger interface {
	Ping(context.Context) error
}
