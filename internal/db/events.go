package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/Joseda-hg/lazynote/internal/model"
)

const eventColumns = "id, note_id, start_at, end_at, is_all_day, location, recurrence_rule, metadata, created_at, updated_at"

type EventPatch struct {
	StartAt        model.Optional[time.Time]
	EndAt          model.Optional[time.Time]
	IsAllDay       model.Optional[bool]
	Location       model.Optional[string]
	RecurrenceRule model.Optional[string]
	Metadata       model.Optional[json.RawMessage]
	UpdatedAt      time.Time
}

func (q *Queries) CreateEvent(ctx context.Context, event model.Event) (model.Event, error) {
	_, err := q.exec(ctx, "INSERT INTO events ("+eventColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		event.ID,
		event.NoteID,
		event.StartAt,
		event.EndAt,
		event.IsAllDay,
		nullString(event.Location),
		nullString(event.RecurrenceRule),
		nullJSON(event.Metadata),
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return model.Event{}, err
	}
	return q.GetEventByNote(ctx, event.NoteID)
}

func (q *Queries) GetEventByNote(ctx context.Context, noteID string) (model.Event, error) {
	row := q.queryRow(ctx, "SELECT "+eventColumns+" FROM events WHERE note_id = ?", noteID)
	return scanEvent(row)
}

func (q *Queries) UpdateEvent(ctx context.Context, noteID string, patch EventPatch) (model.Event, error) {
	var u updateBuilder
	setOptional(&u, "start_at", patch.StartAt)
	setOptional(&u, "end_at", patch.EndAt)
	setOptional(&u, "is_all_day", patch.IsAllDay)
	setOptional(&u, "location", patch.Location)
	setOptional(&u, "recurrence_rule", patch.RecurrenceRule)
	setOptionalJSON(&u, "metadata", patch.Metadata)
	u.set("updated_at", patch.UpdatedAt)

	args := append(u.args, noteID)
	result, err := q.exec(ctx, "UPDATE events SET "+strings.Join(u.sets, ", ")+" WHERE note_id = ?", args...)
	if err != nil {
		return model.Event{}, err
	}
	if err := requireAffected(result); err != nil {
		return model.Event{}, err
	}
	return q.GetEventByNote(ctx, noteID)
}

func (q *Queries) DeleteEventByNote(ctx context.Context, noteID string) error {
	result, err := q.exec(ctx, "DELETE FROM events WHERE note_id = ?", noteID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func scanEvent(row rowScanner) (model.Event, error) {
	var (
		event          model.Event
		location       sql.NullString
		recurrenceRule sql.NullString
		metadata       sql.NullString
	)
	err := row.Scan(
		&event.ID,
		&event.NoteID,
		&event.StartAt,
		&event.EndAt,
		&event.IsAllDay,
		&location,
		&recurrenceRule,
		&metadata,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return model.Event{}, mapError(err)
	}

	event.StartAt = event.StartAt.UTC()
	event.EndAt = event.EndAt.UTC()
	event.Location = stringPtr(location)
	event.RecurrenceRule = stringPtr(recurrenceRule)
	event.Metadata = rawJSON(metadata)
	event.CreatedAt = event.CreatedAt.UTC()
	event.UpdatedAt = event.UpdatedAt.UTC()
	return event, nil
}
