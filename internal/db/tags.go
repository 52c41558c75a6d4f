package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/Joseda-hg/lazynote/internal/model"
)

const tagColumns = "id, scope, owner_id, name, color, description, created_at"

func (q *Queries) CreateTag(ctx context.Context, tag model.Tag) (model.Tag, error) {
	_, err := q.exec(ctx, "INSERT INTO tags ("+tagColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		tag.ID,
		string(tag.Scope),
		nullString(tag.OwnerID),
		tag.Name,
		tag.Color,
		nullString(tag.Description),
		tag.CreatedAt,
	)
	if err != nil {
		return model.Tag{}, err
	}
	return q.GetTag(ctx, tag.ID)
}

func (q *Queries) GetTag(ctx context.Context, id string) (model.Tag, error) {
	row := q.queryRow(ctx, "SELECT "+tagColumns+" FROM tags WHERE id = ?", id)
	return scanTag(row)
}

// FindTagClash returns a tag in the same scope and owner that already uses
// name or color.
func (q *Queries) FindTagClash(ctx context.Context, scope model.TagScope, ownerID *string, name, color string) (model.Tag, error) {
	owner := ""
	if ownerID != nil {
		owner = *ownerID
	}
	row := q.queryRow(ctx, "SELECT "+tagColumns+" FROM tags WHERE scope = ? AND COALESCE(owner_id, '') = ? AND (name = ? OR color = ?) LIMIT 1",
		string(scope), owner, name, color)
	return scanTag(row)
}

// ListVisibleTags returns the owner's user tags followed by system tags.
func (q *Queries) ListVisibleTags(ctx context.Context, ownerID string) ([]model.Tag, error) {
	rows, err := q.query(ctx, "SELECT "+tagColumns+" FROM tags WHERE owner_id = ? OR scope = ? ORDER BY scope DESC, name ASC",
		ownerID, string(model.TagScopeSystem))
	if err != nil {
		return nil, err
	}
	return collectTags(rows)
}

func (q *Queries) DeleteTag(ctx context.Context, id string) error {
	result, err := q.exec(ctx, "DELETE FROM tags WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// ClearTagLinks removes every note association of a tag.
func (q *Queries) ClearTagLinks(ctx context.Context, tagID string) error {
	_, err := q.exec(ctx, "DELETE FROM note_tags WHERE tag_id = ?", tagID)
	return err
}

// ClearNoteTags removes every tag association of a note.
func (q *Queries) ClearNoteTags(ctx context.Context, noteID string) (int64, error) {
	result, err := q.exec(ctx, "DELETE FROM note_tags WHERE note_id = ?", noteID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (q *Queries) AssignTagToNote(ctx context.Context, noteID, tagID string, createdAt time.Time) error {
	_, err := q.exec(ctx, "INSERT INTO note_tags (note_id, tag_id, created_at) VALUES (?, ?, ?)", noteID, tagID, createdAt)
	return err
}

func (q *Queries) ListTagsForNote(ctx context.Context, noteID string) ([]model.Tag, error) {
	rows, err := q.query(ctx, "SELECT t.id, t.scope, t.owner_id, t.name, t.color, t.description, t.created_at FROM tags t JOIN note_tags nt ON nt.tag_id = t.id WHERE nt.note_id = ? ORDER BY t.name ASC",
		noteID)
	if err != nil {
		return nil, err
	}
	return collectTags(rows)
}

func collectTags(rows *sql.Rows) ([]model.Tag, error) {
	defer rows.Close()

	tags := []model.Tag{}
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func scanTag(row rowScanner) (model.Tag, error) {
	var (
		tag         model.Tag
		scope       string
		ownerID     sql.NullString
		description sql.NullString
	)
	if err := row.Scan(&tag.ID, &scope, &ownerID, &tag.Name, &tag.Color, &description, &tag.CreatedAt); err != nil {
		return model.Tag{}, mapError(err)
	}
	tag.Scope = model.TagScope(scope)
	tag.OwnerID = stringPtr(ownerID)
	tag.Description = stringPtr(description)
	tag.CreatedAt = tag.CreatedAt.UTC()
	return tag, nil
}
