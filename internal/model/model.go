package model

import (
	"encoding/json"
	"time"
)

type Note struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"ownerId"`
	Title        *string         `json:"title"`
	BodyMarkdown *string         `json:"bodyMarkdown"`
	BodyHTML     *string         `json:"bodyHtml"`
	Metadata     json.RawMessage `json:"metadata"`
	IsEncrypted  bool            `json:"isEncrypted"`
	SortIndex    int64           `json:"sortIndex"`
	ProjectID    *string         `json:"projectId"`
	ParentID     *string         `json:"parentId"`
	ArchivedAt   *time.Time      `json:"archivedAt"`
	DeletedAt    *time.Time      `json:"deletedAt"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`

	Task  *Task  `json:"task,omitempty"`
	Event *Event `json:"event,omitempty"`
	Tags  []Tag  `json:"tags"`
}

type Task struct {
	ID             string          `json:"id"`
	NoteID         string          `json:"noteId"`
	DueAt          *time.Time      `json:"dueAt"`
	Priority       *int64          `json:"priority"`
	CompletedAt    *time.Time      `json:"completedAt"`
	RecurrenceRule *string         `json:"recurrenceRule"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type Event struct {
	ID             string          `json:"id"`
	NoteID         string          `json:"noteId"`
	StartAt        time.Time       `json:"startAt"`
	EndAt          time.Time       `json:"endAt"`
	IsAllDay       bool            `json:"isAllDay"`
	Location       *string         `json:"location"`
	RecurrenceRule *string         `json:"recurrenceRule"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

type TagScope string

const (
	TagScopeUser   TagScope = "user"
	TagScopeSystem TagScope = "system"
)

type Tag struct {
	ID          string    `json:"id"`
	Scope       TagScope  `json:"scope"`
	OwnerID     *string   `json:"ownerId"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// VisibleTo reports whether ownerID may attach the tag to a note.
func (t Tag) VisibleTo(ownerID string) bool {
	if t.Scope == TagScopeSystem {
		return true
	}
	return t.OwnerID != nil && *t.OwnerID == ownerID
}

type NoteTag struct {
	NoteID    string    `json:"noteId"`
	TagID     string    `json:"tagId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Project struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Include selects which relations are materialized on a Note.
type Include struct {
	Task  bool
	Event bool
	Tags  bool
}

var IncludeAll = Include{Task: true, Event: true, Tags: true}

// State is the lifecycle state of a Note.
type State string

const (
	StateActive   State = "active"
	StateArchived State = "archived"
	StateDeleted  State = "deleted"
)

// State derives the lifecycle state from the timestamps. Deleted wins over
// Archived.
func (n Note) State() State {
	switch {
	case n.DeletedAt != nil:
		return StateDeleted
	case n.ArchivedAt != nil:
		return StateArchived
	default:
		return StateActive
	}
}

// ParseState accepts the lowercase state names.
func ParseState(value string) (State, bool) {
	switch State(value) {
	case StateActive, StateArchived, StateDeleted:
		return State(value), true
	}
	return "", false
}
