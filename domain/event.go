package domain

type EventType string

const (
	EventAdded   EventType = "ADDED"
	EventUpdated EventType = "UPDATED"
	EventDeleted EventType = "DELETED"
)

// ProjectEvent notifies subscribers of a project mutation. Data holds the
// post-mutation snapshot, or the pre-deletion snapshot for DELETED.
type ProjectEvent struct {
	Type EventType `json:"type"`
	Data Project   `json:"data"`
}

// TaskEvent is the task counterpart of ProjectEvent.
type TaskEvent struct {
	Type EventType `json:"type"`
	Data Task      `json:"data"`
}
