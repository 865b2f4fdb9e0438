package domain

import (
	"context"

	log "github.com/sirupsen/logrus"

	"taskdeck/pubsub"
)

// ProjectStore persists projects. Owner-scoped reads return nil when the row
// is absent or owned by someone else, so callers cannot tell the two apart.
type ProjectStore interface {
	GetAll(ctx context.Context, ownerID string) ([]Project, error)
	GetByID(ctx context.Context, ownerID, id string) (*Project, error)
	GetByIDAny(ctx context.Context, id string) (*Project, error)
	Insert(ctx context.Context, ownerID, id, name, description string) (*Project, error)
	Update(ctx context.Context, id, name, description string) (*Project, error)
	Delete(ctx context.Context, id string) error
}

// ProjectService enforces ownership and upsert reconciliation on top of the
// store and publishes a change event after every successful write.
type ProjectService struct {
	store  ProjectStore
	events *pubsub.Topic[ProjectEvent]
	log    *log.Logger
}

func NewProjectService(store ProjectStore, events *pubsub.Topic[ProjectEvent], logger *log.Logger) *ProjectService {
	return &ProjectService{store: store, events: events, log: logger}
}

func (s *ProjectService) List(ctx context.Context, ownerID string) ([]Project, error) {
	return s.store.GetAll(ctx, ownerID)
}

// Get returns nil without error when the project does not exist or belongs to
// another owner.
func (s *ProjectService) Get(ctx context.Context, ownerID, id string) (*Project, error) {
	return s.store.GetByID(ctx, ownerID, id)
}

// Create inserts a project, honoring a client-supplied id when present so
// clients can generate ids up front.
func (s *ProjectService) Create(ctx context.Context, ownerID, id, name, description string) (*Project, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	project, err := s.store.Insert(ctx, ownerID, id, name, description)
	if err != nil {
		return nil, err
	}
	s.events.Publish(ProjectEvent{Type: EventAdded, Data: *project})
	return project, nil
}

// Upsert updates the project named by id when it already exists, otherwise
// creates one. Nil fields keep their stored values on update.
func (s *ProjectService) Upsert(ctx context.Context, ownerID, id string, name, description *string) (*Project, error) {
	if id != "" {
		existing, err := s.store.GetByIDAny(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if existing.OwnerID != ownerID {
				s.log.WithFields(log.Fields{"project_id": id, "caller": ownerID}).Warn("project upsert denied: owner mismatch")
				return nil, ErrUnauthorized
			}
			return s.applyUpdate(ctx, existing, name, description)
		}
	}
	if name == nil {
		return nil, ErrNameRequired
	}
	var desc string
	if description != nil {
		desc = *description
	}
	return s.Create(ctx, ownerID, id, *name, desc)
}

// Update modifies an existing project. A missing row and an owner mismatch
// produce the same error.
func (s *ProjectService) Update(ctx context.Context, ownerID, id string, name, description *string) (*Project, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	existing, err := s.store.GetByIDAny(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil || existing.OwnerID != ownerID {
		s.log.WithFields(log.Fields{"project_id": id, "caller": ownerID, "found": existing != nil}).Warn("project update denied")
		return nil, ErrUnauthorized
	}
	return s.applyUpdate(ctx, existing, name, description)
}

// applyUpdate merges supplied fields over the stored row and writes the
// result. The read and the write are separate statements: concurrent updates
// to the same project resolve last-writer-wins.
func (s *ProjectService) applyUpdate(ctx context.Context, existing *Project, name, description *string) (*Project, error) {
	newName := existing.Name
	if name != nil {
		newName = *name
	}
	newDescription := existing.Description
	if description != nil {
		newDescription = *description
	}
	updated, err := s.store.Update(ctx, existing.ID, newName, newDescription)
	if err != nil {
		return nil, err
	}
	s.events.Publish(ProjectEvent{Type: EventUpdated, Data: *updated})
	return updated, nil
}

// Delete removes the project and returns its pre-deletion snapshot. Tasks
// under it are removed by the schema's cascading foreign key.
func (s *ProjectService) Delete(ctx context.Context, ownerID, id string) (*Project, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	existing, err := s.store.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		s.log.WithFields(log.Fields{"project_id": id, "caller": ownerID}).Warn("project delete denied")
		return nil, ErrUnauthorized
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return nil, err
	}
	s.events.Publish(ProjectEvent{Type: EventDeleted, Data: *existing})
	return existing, nil
}

// SubscribeChanged returns a live event stream bound to ctx. Callers filter
// by ownership themselves; see api.streamProjects.
func (s *ProjectService) SubscribeChanged(ctx context.Context) <-chan ProjectEvent {
	return s.events.Subscribe(ctx)
}
