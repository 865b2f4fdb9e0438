package domain

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"taskdeck/pubsub"
)

// TaskStore persists tasks. GetByID is unscoped; ownership of a task is
// resolved through its parent project by the service.
type TaskStore interface {
	GetByProject(ctx context.Context, projectID string) ([]Task, error)
	GetByDueDate(ctx context.Context, ownerID string, day time.Time) ([]Task, error)
	GetByPriority(ctx context.Context, ownerID string, priority Priority) ([]Task, error)
	GetByID(ctx context.Context, id string) (*Task, error)
	Insert(ctx context.Context, draft TaskDraft) (*Task, error)
	Update(ctx context.Context, id string, upd TaskUpdate) (*Task, error)
	Delete(ctx context.Context, id string) error
	Toggle(ctx context.Context, id string) (*Task, error)
}

// TaskDraft carries the caller-supplied fields of a create or upsert.
type TaskDraft struct {
	ID          string
	ProjectID   string
	Name        string
	Due         Due
	Description string
	Priority    Priority
}

// TaskUpdate carries the caller-supplied fields of an update. Zero values
// mean "not supplied": an empty field keeps its stored value, so fields
// cannot be cleared through update, only overwritten.
type TaskUpdate struct {
	Name        string
	Description string
	Due         Due
	Priority    Priority
}

// TaskFilter selects tasks by exactly one criterion, in the fixed precedence
// ProjectID > DueDate > Priority.
type TaskFilter struct {
	OwnerID   string
	ProjectID string
	DueDate   string
	Priority  Priority
}

// TaskService enforces project ownership on task mutations and publishes a
// change event after every successful write.
type TaskService struct {
	store    TaskStore
	projects ProjectStore
	events   *pubsub.Topic[TaskEvent]
	log      *log.Logger
}

func NewTaskService(store TaskStore, projects ProjectStore, events *pubsub.Topic[TaskEvent], logger *log.Logger) *TaskService {
	return &TaskService{store: store, projects: projects, events: events, log: logger}
}

// List dispatches on the first filter field present. With no filter it
// returns an empty slice: there is intentionally no list-all-tasks path.
func (s *TaskService) List(ctx context.Context, f TaskFilter) ([]Task, error) {
	if f.ProjectID != "" {
		return s.store.GetByProject(ctx, f.ProjectID)
	}
	if f.DueDate != "" {
		day, err := ParseDueDate(f.DueDate)
		if err != nil {
			return nil, ErrInvalidDueDate
		}
		return s.store.GetByDueDate(ctx, f.OwnerID, day)
	}
	if f.Priority != "" {
		if !f.Priority.Valid() {
			return nil, BadRequest("priority is invalid")
		}
		return s.store.GetByPriority(ctx, f.OwnerID, f.Priority)
	}
	return []Task{}, nil
}

func (s *TaskService) ListByProject(ctx context.Context, projectID string) ([]Task, error) {
	return s.store.GetByProject(ctx, projectID)
}

// Create inserts a task after verifying its parent project exists under the
// caller's ownership.
func (s *TaskService) Create(ctx context.Context, ownerID string, draft TaskDraft) (*Task, error) {
	if err := validateDraft(&draft); err != nil {
		return nil, err
	}
	if err := s.authorizeProject(ctx, ownerID, draft.ProjectID); err != nil {
		return nil, err
	}
	return s.insert(ctx, draft)
}

// Upsert updates the task named by draft.ID when it exists under the same
// project, otherwise falls through to create. Empty draft fields keep their
// stored values on update.
func (s *TaskService) Upsert(ctx context.Context, ownerID string, draft TaskDraft) (*Task, error) {
	if err := validateDraft(&draft); err != nil {
		return nil, err
	}
	if err := s.authorizeProject(ctx, ownerID, draft.ProjectID); err != nil {
		return nil, err
	}
	if draft.ID != "" {
		existing, err := s.store.GetByID(ctx, draft.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if existing.ProjectID != draft.ProjectID {
				return nil, ErrProjectMismatch
			}
			upd := TaskUpdate{Name: draft.Name, Description: draft.Description, Due: draft.Due, Priority: draft.Priority}
			return s.applyUpdate(ctx, existing, upd)
		}
	}
	return s.insert(ctx, draft)
}

// Update modifies an existing task. The task is resolved first, then its
// parent project is checked against the caller.
func (s *TaskService) Update(ctx context.Context, ownerID, id string, upd TaskUpdate) (*Task, error) {
	existing, err := s.resolveOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return s.applyUpdate(ctx, existing, upd)
}

// Delete removes the task and returns its pre-deletion snapshot.
func (s *TaskService) Delete(ctx context.Context, ownerID, id string) (*Task, error) {
	existing, err := s.resolveOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return nil, err
	}
	s.events.Publish(TaskEvent{Type: EventDeleted, Data: *existing})
	return existing, nil
}

// Toggle flips the finished flag for any caller: unlike every other task
// mutation it performs no ownership check. TestToggleIgnoresCaller pins this
// behavior; revisit it there before adding the check.
func (s *TaskService) Toggle(ctx context.Context, id string) (*Task, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	task, err := s.store.Toggle(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// SubscribeChanged returns a live event stream bound to ctx. Callers filter
// by project scope themselves; see api.streamTasks.
func (s *TaskService) SubscribeChanged(ctx context.Context) <-chan TaskEvent {
	return s.events.Subscribe(ctx)
}

func validateDraft(draft *TaskDraft) error {
	if draft.ProjectID == "" {
		return BadRequest("project_id required")
	}
	if draft.Name == "" {
		return ErrNameRequired
	}
	if draft.Due.IsZero() {
		return BadRequest("due required")
	}
	if draft.Priority == "" {
		draft.Priority = PriorityLow
	}
	if !draft.Priority.Valid() {
		return BadRequest("priority is invalid")
	}
	return nil
}

func (s *TaskService) authorizeProject(ctx context.Context, ownerID, projectID string) error {
	project, err := s.projects.GetByID(ctx, ownerID, projectID)
	if err != nil {
		return err
	}
	if project == nil {
		s.log.WithFields(log.Fields{"project_id": projectID, "caller": ownerID}).Warn("task mutation denied: project missing or not owned")
		return ErrProjectNotFound
	}
	return nil
}

// resolveOwned loads the task and verifies the caller owns its parent
// project. A missing project and an owner mismatch produce the same error.
func (s *TaskService) resolveOwned(ctx context.Context, ownerID, id string) (*Task, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrTaskNotFound
	}
	project, err := s.projects.GetByID(ctx, ownerID, existing.ProjectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		s.log.WithFields(log.Fields{"task_id": id, "caller": ownerID}).Warn("task mutation denied")
		return nil, ErrUnauthorized
	}
	return existing, nil
}

func (s *TaskService) insert(ctx context.Context, draft TaskDraft) (*Task, error) {
	task, err := s.store.Insert(ctx, draft)
	if err != nil {
		return nil, err
	}
	s.events.Publish(TaskEvent{Type: EventAdded, Data: *task})
	return task, nil
}

// applyUpdate merges supplied fields over the stored row and writes the
// result. Read and write are separate statements: concurrent updates to the
// same task resolve last-writer-wins.
func (s *TaskService) applyUpdate(ctx context.Context, existing *Task, upd TaskUpdate) (*Task, error) {
	if upd.Name == "" {
		upd.Name = existing.Name
	}
	if upd.Description == "" {
		upd.Description = existing.Description
	}
	if upd.Due.IsZero() {
		upd.Due = existing.Due
	}
	if upd.Priority == "" {
		upd.Priority = existing.Priority
	} else if !upd.Priority.Valid() {
		return nil, BadRequest("priority is invalid")
	}
	updated, err := s.store.Update(ctx, existing.ID, upd)
	if err != nil {
		return nil, err
	}
	s.events.Publish(TaskEvent{Type: EventUpdated, Data: *updated})
	return updated, nil
}
