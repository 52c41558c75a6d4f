package note

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/Joseda-hg/lazynote/internal/db"
	"github.com/Joseda-hg/lazynote/internal/errs"
	"github.com/Joseda-hg/lazynote/internal/model"
)

// MaxPriority bounds Task.Priority.
const MaxPriority = 5

// Action is what a sub-record sync does to an optional 1:1 child.
type Action int

const (
	ActionNone Action = iota
	ActionCreate
	ActionUpdate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	}
	return "none"
}

// PlanSubRecord decides the action for a child given whether it exists and
// the requested value: unset leaves it, clear removes it if present, set
// upserts it.
func PlanSubRecord[T any](exists bool, requested model.Optional[T]) Action {
	switch {
	case requested.IsSet() && exists:
		return ActionUpdate
	case requested.IsSet():
		return ActionCreate
	case requested.IsClear() && exists:
		return ActionDelete
	}
	return ActionNone
}

// TaskInput carries task fields. Unset fields are left alone on update.
type TaskInput struct {
	DueAt          model.Optional[time.Time]       `json:"dueAt"`
	Priority       model.Optional[int64]           `json:"priority"`
	CompletedAt    model.Optional[time.Time]       `json:"completedAt"`
	RecurrenceRule model.Optional[string]          `json:"recurrenceRule"`
	Metadata       model.Optional[json.RawMessage] `json:"metadata"`
}

func (in TaskInput) validate() error {
	if priority, ok := in.Priority.Get(); ok && (priority < 0 || priority > MaxPriority) {
		return errs.New(errs.ValidationError, "task priority must be between 0 and %d", MaxPriority).WithDetail("field", "priority")
	}
	return nil
}

func (in TaskInput) patch(now time.Time) db.TaskPatch {
	return db.TaskPatch{
		DueAt:          in.DueAt,
		Priority:       in.Priority,
		CompletedAt:    in.CompletedAt,
		RecurrenceRule: in.RecurrenceRule,
		Metadata:       in.Metadata,
		UpdatedAt:      now,
	}
}

// EventInput carries event fields. StartAt and EndAt are required to create.
type EventInput struct {
	StartAt        model.Optional[time.Time]       `json:"startAt"`
	EndAt          model.Optional[time.Time]       `json:"endAt"`
	IsAllDay       model.Optional[bool]            `json:"isAllDay"`
	Location       model.Optional[string]          `json:"location"`
	RecurrenceRule model.Optional[string]          `json:"recurrenceRule"`
	Metadata       model.Optional[json.RawMessage] `json:"metadata"`
}

func (in EventInput) validateCreate() error {
	var missing []string
	if !in.StartAt.IsSet() {
		missing = append(missing, "startAt")
	}
	if !in.EndAt.IsSet() {
		missing = append(missing, "endAt")
	}
	if len(missing) > 0 {
		return errs.New(errs.ValidationError, "event requires %s", strings.Join(missing, " and ")).WithDetail("missing", missing)
	}
	return nil
}

func (in EventInput) validateUpdate() error {
	if in.StartAt.IsClear() || in.EndAt.IsClear() {
		return errs.New(errs.ValidationError, "event start and end cannot be cleared")
	}
	return nil
}

func (in EventInput) patch(now time.Time) db.EventPatch {
	isAllDay := in.IsAllDay
	if isAllDay.IsClear() {
		isAllDay = model.Set(false)
	}
	return db.EventPatch{
		StartAt:        in.StartAt,
		EndAt:          in.EndAt,
		IsAllDay:       isAllDay,
		Location:       in.Location,
		RecurrenceRule: in.RecurrenceRule,
		Metadata:       in.Metadata,
		UpdatedAt:      now,
	}
}

// uniqueTagIDs drops blanks and repeats, keeping first-seen order.
func uniqueTagIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}

// syncTags replaces the note's tag links with tagIDs. Every tag must be
// visible to the owner. With replace false nothing is deleted first.
func (s *Service) syncTags(ctx context.Context, q *db.Queries, noteID, ownerID string, tagIDs []string, replace bool) error {
	desired := uniqueTagIDs(tagIDs)
	for _, tagID := range desired {
		tag, err := q.GetTag(ctx, tagID)
		if errors.Is(err, db.ErrNotFound) || (err == nil && !tag.VisibleTo(ownerID)) {
			return errs.New(errs.NotFound, "tag %s not found", tagID).WithDetail("tagId", tagID)
		}
		if err != nil {
			return err
		}
	}

	if replace {
		if _, err := q.ClearNoteTags(ctx, noteID); err != nil {
			return err
		}
	}

	now := s.now()
	for _, tagID := range desired {
		if err := q.AssignTagToNote(ctx, noteID, tagID, now); err != nil {
			return translate(err, "tag %s on note %s", tagID, noteID)
		}
	}
	return nil
}

func (s *Service) syncTask(ctx context.Context, q *db.Queries, noteID string, exists bool, requested model.Optional[TaskInput]) error {
	in, _ := requested.Get()
	now := s.now()

	switch PlanSubRecord(exists, requested) {
	case ActionCreate:
		task := model.Task{
			ID:             s.newID(),
			NoteID:         noteID,
			DueAt:          in.DueAt.Ptr(),
			Priority:       in.Priority.Ptr(),
			CompletedAt:    in.CompletedAt.Ptr(),
			RecurrenceRule: in.RecurrenceRule.Ptr(),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if metadata, ok := in.Metadata.Get(); ok {
			task.Metadata = metadata
		}
		if _, err := q.CreateTask(ctx, task); err != nil {
			return translate(err, "task for note %s", noteID)
		}
	case ActionUpdate:
		if _, err := q.UpdateTask(ctx, noteID, in.patch(now)); err != nil {
			return translate(err, "task for note %s", noteID)
		}
	case ActionDelete:
		if err := q.DeleteTaskByNote(ctx, noteID); err != nil && !errors.Is(err, db.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (s *Service) syncEvent(ctx context.Context, q *db.Queries, noteID string, exists bool, requested model.Optional[EventInput]) error {
	in, _ := requested.Get()
	now := s.now()

	switch PlanSubRecord(exists, requested) {
	case ActionCreate:
		if err := in.validateCreate(); err != nil {
			return err
		}
		startAt, _ := in.StartAt.Get()
		endAt, _ := in.EndAt.Get()
		isAllDay, _ := in.IsAllDay.Get()
		event := model.Event{
			ID:             s.newID(),
			NoteID:         noteID,
			StartAt:        startAt,
			EndAt:          endAt,
			IsAllDay:       isAllDay,
			Location:       in.Location.Ptr(),
			RecurrenceRule: in.RecurrenceRule.Ptr(),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if metadata, ok := in.Metadata.Get(); ok {
			event.Metadata = metadata
		}
		if _, err := q.CreateEvent(ctx, event); err != nil {
			return translate(err, "event for note %s", noteID)
		}
	case ActionUpdate:
		if err := in.validateUpdate(); err != nil {
			return err
		}
		if _, err := q.UpdateEvent(ctx, noteID, in.patch(now)); err != nil {
			return translate(err, "event for note %s", noteID)
		}
	case ActionDelete:
		if err := q.DeleteEventByNote(ctx, noteID); err != nil && !errors.Is(err, db.ErrNotFound) {
			return err
		}
	}
	return nil
}
