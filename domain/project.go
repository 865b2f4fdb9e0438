package domain

import "time"

// Project is a user-owned container of tasks. Only the owner may read or
// mutate it; tasks carry no owner of their own and inherit authorization
// through their parent project.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Tasks       []Task    `json:"tasks,omitempty"`
}
