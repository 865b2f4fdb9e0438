package domain

import (
	"fmt"
	"strconv"
	"time"
)

type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Task is a dated board item belonging to exactly one project.
type Task struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Name        string    `json:"name"`
	Due         Due       `json:"due"`
	Description string    `json:"description"`
	Priority    Priority  `json:"priority"`
	Finished    bool      `json:"finished"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// dueWireFormat is the rendering clients see, e.g. "15/01/2024 09:30".
const dueWireFormat = "02/01/2006 15:04"

var dueParseFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	dueWireFormat,
}

// Due is a task deadline. It marshals in the wire format above and accepts a
// handful of common layouts on input.
type Due struct {
	time.Time
}

func (d Due) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(strconv.Quote(d.Format(dueWireFormat))), nil
}

func (d *Due) UnmarshalJSON(data []byte) error {
	raw, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("due must be a string: %s", data)
	}
	if raw == "" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := parseDue(raw)
	if err != nil {
		return err
	}
	d.Time = parsed
	return nil
}

func parseDue(raw string) (time.Time, error) {
	for _, layout := range dueParseFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable due value %q", raw)
}

// ParseDueDate parses a calendar-date filter value, truncating any time
// component to the start of the day.
func ParseDueDate(raw string) (time.Time, error) {
	t, err := parseDue(raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.Truncate(24 * time.Hour), nil
}
