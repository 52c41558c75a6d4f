package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/Joseda-hg/lazynote/internal/model"
)

const taskColumns = "id, note_id, due_at, priority, completed_at, recurrence_rule, metadata, created_at, updated_at"

type TaskPatch struct {
	DueAt          model.Optional[time.Time]
	Priority       model.Optional[int64]
	CompletedAt    model.Optional[time.Time]
	RecurrenceRule model.Optional[string]
	Metadata       model.Optional[json.RawMessage]
	UpdatedAt      time.Time
}

func (q *Queries) CreateTask(ctx context.Context, task model.Task) (model.Task, error) {
	_, err := q.exec(ctx, "INSERT INTO tasks ("+taskColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		task.ID,
		task.NoteID,
		nullTime(task.DueAt),
		nullInt64(task.Priority),
		nullTime(task.CompletedAt),
		nullString(task.RecurrenceRule),
		nullJSON(task.Metadata),
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return model.Task{}, err
	}
	return q.GetTaskByNote(ctx, task.NoteID)
}

func (q *Queries) GetTaskByNote(ctx context.Context, noteID string) (model.Task, error) {
	row := q.queryRow(ctx, "SELECT "+taskColumns+" FROM tasks WHERE note_id = ?", noteID)
	return scanTask(row)
}

func (q *Queries) UpdateTask(ctx context.Context, noteID string, patch TaskPatch) (model.Task, error) {
	var u updateBuilder
	setOptional(&u, "due_at", patch.DueAt)
	setOptional(&u, "priority", patch.Priority)
	setOptional(&u, "completed_at", patch.CompletedAt)
	setOptional(&u, "recurrence_rule", patch.RecurrenceRule)
	setOptionalJSON(&u, "metadata", patch.Metadata)
	u.set("updated_at", patch.UpdatedAt)

	args := append(u.args, noteID)
	result, err := q.exec(ctx, "UPDATE tasks SET "+strings.Join(u.sets, ", ")+" WHERE note_id = ?", args...)
	if err != nil {
		return model.Task{}, err
	}
	if err := requireAffected(result); err != nil {
		return model.Task{}, err
	}
	return q.GetTaskByNote(ctx, noteID)
}

func (q *Queries) DeleteTaskByNote(ctx context.Context, noteID string) error {
	result, err := q.exec(ctx, "DELETE FROM tasks WHERE note_id = ?", noteID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func scanTask(row rowScanner) (model.Task, error) {
	var (
		task           model.Task
		dueAt          sql.NullTime
		priority       sql.NullInt64
		completedAt    sql.NullTime
		recurrenceRule sql.NullString
		metadata       sql.NullString
	)
	err := row.Scan(
		&task.ID,
		&task.NoteID,
		&dueAt,
		&priority,
		&completedAt,
		&recurrenceRule,
		&metadata,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return model.Task{}, mapError(err)
	}

	task.DueAt = timePtr(dueAt)
	task.Priority = int64Ptr(priority)
	task.CompletedAt = timePtr(completedAt)
	task.RecurrenceRule = stringPtr(recurrenceRule)
	task.Metadata = rawJSON(metadata)
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
	return task, nil
}
