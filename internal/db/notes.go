package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Joseda-hg/lazynote/internal/model"
)

const noteColumns = "id, owner_id, title, body_markdown, body_html, metadata, is_encrypted, sort_index, project_id, parent_id, archived_at, deleted_at, created_at, updated_at"

// NoteSortColumns maps the sortable field names accepted by listings to columns.
var NoteSortColumns = map[string]string{
	"createdAt":  "created_at",
	"updatedAt":  "updated_at",
	"title":      "title",
	"sortIndex":  "sort_index",
	"archivedAt": "archived_at",
	"deletedAt":  "deleted_at",
}

// NoteQuery selects notes of one owner in one lifecycle state.
type NoteQuery struct {
	OwnerID   string
	State     model.State
	ProjectID *string
	TagID     *string
	ParentID  model.Optional[string]
	Search    string
	SortBy    string
	Desc      bool
	Limit     int
	Offset    int
}

// NotePatch lists the columns an update touches. Unset fields are left alone.
type NotePatch struct {
	Title        model.Optional[string]
	BodyMarkdown model.Optional[string]
	BodyHTML     model.Optional[string]
	Metadata     model.Optional[json.RawMessage]
	IsEncrypted  model.Optional[bool]
	SortIndex    model.Optional[int64]
	ProjectID    model.Optional[string]
	ParentID     model.Optional[string]
	ArchivedAt   model.Optional[time.Time]
	DeletedAt    model.Optional[time.Time]
	UpdatedAt    time.Time
}

func (q *Queries) CreateNote(ctx context.Context, note model.Note) (model.Note, error) {
	metadata := note.Metadata
	if len(metadata) == 0 {
		metadata = json.RawMessage("{}")
	}

	_, err := q.exec(ctx, "INSERT INTO notes ("+noteColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		note.ID,
		note.OwnerID,
		nullString(note.Title),
		nullString(note.BodyMarkdown),
		nullString(note.BodyHTML),
		string(metadata),
		note.IsEncrypted,
		note.SortIndex,
		nullString(note.ProjectID),
		nullString(note.ParentID),
		nullTime(note.ArchivedAt),
		nullTime(note.DeletedAt),
		note.CreatedAt,
		note.UpdatedAt,
	)
	if err != nil {
		return model.Note{}, err
	}
	return q.GetNote(ctx, note.ID)
}

func (q *Queries) GetNote(ctx context.Context, id string) (model.Note, error) {
	row := q.queryRow(ctx, "SELECT "+noteColumns+" FROM notes WHERE id = ?", id)
	return scanNote(row)
}

// UpdateNote applies patch in a single statement and reads the row back.
func (q *Queries) UpdateNote(ctx context.Context, id string, patch NotePatch) (model.Note, error) {
	var u updateBuilder
	setOptional(&u, "title", patch.Title)
	setOptional(&u, "body_markdown", patch.BodyMarkdown)
	setOptional(&u, "body_html", patch.BodyHTML)
	if metadata, ok := patch.Metadata.Get(); ok && len(metadata) > 0 {
		u.set("metadata", string(metadata))
	} else if patch.Metadata.Present() {
		u.set("metadata", "{}")
	}
	setOptional(&u, "is_encrypted", patch.IsEncrypted)
	setOptional(&u, "sort_index", patch.SortIndex)
	setOptional(&u, "project_id", patch.ProjectID)
	setOptional(&u, "parent_id", patch.ParentID)
	setOptional(&u, "archived_at", patch.ArchivedAt)
	setOptional(&u, "deleted_at", patch.DeletedAt)
	u.set("updated_at", patch.UpdatedAt)

	args := append(u.args, id)
	result, err := q.exec(ctx, "UPDATE notes SET "+strings.Join(u.sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return model.Note{}, err
	}
	if err := requireAffected(result); err != nil {
		return model.Note{}, err
	}
	return q.GetNote(ctx, id)
}

func (q *Queries) DeleteNote(ctx context.Context, id string) error {
	result, err := q.exec(ctx, "DELETE FROM notes WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// DetachChildren clears parent_id on every child of parentID.
func (q *Queries) DetachChildren(ctx context.Context, parentID string, updatedAt time.Time) (int64, error) {
	result, err := q.exec(ctx, "UPDATE notes SET parent_id = NULL, updated_at = ? WHERE parent_id = ?", updatedAt, parentID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DetachProject clears project_id on every note of projectID.
func (q *Queries) DetachProject(ctx context.Context, projectID string, updatedAt time.Time) (int64, error) {
	result, err := q.exec(ctx, "UPDATE notes SET project_id = NULL, updated_at = ? WHERE project_id = ?", updatedAt, projectID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (q *Queries) ListNotes(ctx context.Context, query NoteQuery) ([]model.Note, error) {
	where, args, err := noteWhere(query)
	if err != nil {
		return nil, err
	}

	column, ok := NoteSortColumns[query.SortBy]
	if !ok {
		return nil, fmt.Errorf("unsupported sort field %q", query.SortBy)
	}
	direction := "ASC"
	if query.Desc {
		direction = "DESC"
	}

	statement := fmt.Sprintf("SELECT %s FROM notes WHERE %s ORDER BY %s %s, id %s LIMIT ? OFFSET ?", noteColumns, where, column, direction, direction)
	args = append(args, query.Limit, query.Offset)

	rows, err := q.query(ctx, statement, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []model.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

func (q *Queries) CountNotes(ctx context.Context, query NoteQuery) (int, error) {
	where, args, err := noteWhere(query)
	if err != nil {
		return 0, err
	}

	var total int
	if err := q.queryRow(ctx, "SELECT COUNT(*) FROM notes WHERE "+where, args...).Scan(&total); err != nil {
		return 0, mapError(err)
	}
	return total, nil
}

func noteWhere(query NoteQuery) (string, []any, error) {
	clauses := []string{"owner_id = ?"}
	args := []any{query.OwnerID}

	switch query.State {
	case model.StateActive:
		clauses = append(clauses, "archived_at IS NULL", "deleted_at IS NULL")
	case model.StateArchived:
		clauses = append(clauses, "archived_at IS NOT NULL", "deleted_at IS NULL")
	case model.StateDeleted:
		clauses = append(clauses, "deleted_at IS NOT NULL")
	default:
		return "", nil, fmt.Errorf("unsupported note state %q", query.State)
	}

	if query.ProjectID != nil {
		clauses = append(clauses, "project_id = ?")
		args = append(args, *query.ProjectID)
	}
	if query.TagID != nil {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM note_tags nt WHERE nt.note_id = notes.id AND nt.tag_id = ?)")
		args = append(args, *query.TagID)
	}
	if parentID, ok := query.ParentID.Get(); ok {
		clauses = append(clauses, "parent_id = ?")
		args = append(args, parentID)
	} else if query.ParentID.IsClear() {
		clauses = append(clauses, "parent_id IS NULL")
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		clauses = append(clauses, `(LOWER(COALESCE(title, '')) LIKE ? ESCAPE '\' OR LOWER(COALESCE(body_markdown, '')) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	return strings.Join(clauses, " AND "), args, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return replacer.Replace(value)
}

func scanNote(row rowScanner) (model.Note, error) {
	var (
		note         model.Note
		title        sql.NullString
		bodyMarkdown sql.NullString
		bodyHTML     sql.NullString
		metadata     string
		projectID    sql.NullString
		parentID     sql.NullString
		archivedAt   sql.NullTime
		deletedAt    sql.NullTime
	)
	err := row.Scan(
		&note.ID,
		&note.OwnerID,
		&title,
		&bodyMarkdown,
		&bodyHTML,
		&metadata,
		&note.IsEncrypted,
		&note.SortIndex,
		&projectID,
		&parentID,
		&archivedAt,
		&deletedAt,
		&note.CreatedAt,
		&note.UpdatedAt,
	)
	if err != nil {
		return model.Note{}, mapError(err)
	}

	note.Title = stringPtr(title)
	note.BodyMarkdown = stringPtr(bodyMarkdown)
	note.BodyHTML = stringPtr(bodyHTML)
	note.Metadata = json.RawMessage(metadata)
	note.ProjectID = stringPtr(projectID)
	note.ParentID = stringPtr(parentID)
	note.ArchivedAt = timePtr(archivedAt)
	note.DeletedAt = timePtr(deletedAt)
	note.CreatedAt = note.CreatedAt.UTC()
	note.UpdatedAt = note.UpdatedAt.UTC()
	note.Tags = []model.Tag{}
	return note, nil
}
