package domain

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// newFakeStores returns an in-memory store pair wired together so project
// deletion cascades to tasks, mirroring the schema's foreign key.
func newFakeStores() (*fakeProjectStore, *fakeTaskStore) {
	ps := &fakeProjectStore{projects: map[string]Project{}}
	ts := &fakeTaskStore{tasks: map[string]Task{}, projects: ps}
	ps.cascade = ts
	return ps, ts
}

type fakeProjectStore struct {
	projects map[string]Project
	cascade  *fakeTaskStore
	seq      int
	queries  int
}

func (f *fakeProjectStore) seed(p Project) {
	f.projects[p.ID] = p
}

func (f *fakeProjectStore) GetAll(ctx context.Context, ownerID string) ([]Project, error) {
	f.queries++
	out := []Project{}
	for _, p := range f.projects {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeProjectStore) GetByID(ctx context.Context, ownerID, id string) (*Project, error) {
	f.queries++
	p, ok := f.projects[id]
	if !ok || p.OwnerID != ownerID {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeProjectStore) GetByIDAny(ctx context.Context, id string) (*Project, error) {
	f.queries++
	p, ok := f.projects[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeProjectStore) Insert(ctx context.Context, ownerID, id, name, description string) (*Project, error) {
	f.queries++
	if id == "" {
		f.seq++
		id = fmt.Sprintf("project-%d", f.seq)
	}
	if _, exists := f.projects[id]; exists {
		return nil, BadRequest("id already exists")
	}
	now := time.Now()
	p := Project{ID: id, Name: name, Description: description, OwnerID: ownerID, CreatedAt: now, UpdatedAt: now}
	f.projects[id] = p
	return &p, nil
}

func (f *fakeProjectStore) Update(ctx context.Context, id, name, description string) (*Project, error) {
	f.queries++
	p := f.projects[id]
	p.Name = name
	p.Description = description
	p.UpdatedAt = time.Now()
	f.projects[id] = p
	return &p, nil
}

func (f *fakeProjectStore) Delete(ctx context.Context, id string) error {
	f.queries++
	delete(f.projects, id)
	if f.cascade != nil {
		f.cascade.deleteByProject(id)
	}
	return nil
}

type fakeTaskStore struct {
	tasks    map[string]Task
	projects *fakeProjectStore
	seq      int
	queries  int
}

func (f *fakeTaskStore) seed(t Task) {
	f.tasks[t.ID] = t
}

func (f *fakeTaskStore) deleteByProject(projectID string) {
	for id, t := range f.tasks {
		if t.ProjectID == projectID {
			delete(f.tasks, id)
		}
	}
}

func (f *fakeTaskStore) owner(t Task) string {
	p, ok := f.projects.projects[t.ProjectID]
	if !ok {
		return ""
	}
	return p.OwnerID
}

func (f *fakeTaskStore) GetByProject(ctx context.Context, projectID string) ([]Task, error) {
	f.queries++
	out := []Task{}
	for _, t := range f.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTaskStore) GetByDueDate(ctx context.Context, ownerID string, day time.Time) ([]Task, error) {
	f.queries++
	out := []Task{}
	for _, t := range f.tasks {
		sameDay := t.Due.Year() == day.Year() && t.Due.YearDay() == day.YearDay()
		if sameDay && f.owner(t) == ownerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTaskStore) GetByPriority(ctx context.Context, ownerID string, priority Priority) ([]Task, error) {
	f.queries++
	out := []Task{}
	for _, t := range f.tasks {
		if t.Priority == priority && f.owner(t) == ownerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTaskStore) GetByID(ctx context.Context, id string) (*Task, error) {
	f.queries++
	t, ok := f.tasks[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (f *fakeTaskStore) Insert(ctx context.Context, draft TaskDraft) (*Task, error) {
	f.queries++
	id := draft.ID
	if id == "" {
		f.seq++
		id = fmt.Sprintf("task-%d", f.seq)
	}
	if _, exists := f.tasks[id]; exists {
		return nil, BadRequest("id already exists")
	}
	now := time.Now()
	t := Task{
		ID:          id,
		ProjectID:   draft.ProjectID,
		Name:        draft.Name,
		Due:         draft.Due,
		Description: draft.Description,
		Priority:    draft.Priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.tasks[id] = t
	return &t, nil
}

func (f *fakeTaskStore) Update(ctx context.Context, id string, upd TaskUpdate) (*Task, error) {
	f.queries++
	t := f.tasks[id]
	t.Name = upd.Name
	t.Description = upd.Description
	t.Due = upd.Due
	t.Priority = upd.Priority
	t.UpdatedAt = time.Now()
	f.tasks[id] = t
	return &t, nil
}

func (f *fakeTaskStore) Delete(ctx context.Context, id string) error {
	f.queries++
	delete(f.tasks, id)
	return nil
}

func (f *fakeTaskStore) Toggle(ctx context.Context, id string) (*Task, error) {
	f.queries++
	t, ok := f.tasks[id]
	if !ok {
		return nil, nil
	}
	t.Finished = !t.Finished
	t.UpdatedAt = time.Now()
	f.tasks[id] = t
	return &t, nil
}
