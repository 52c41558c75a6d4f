package note

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Joseda-hg/lazynote/internal/db"
	"github.com/Joseda-hg/lazynote/internal/errs"
	"github.com/Joseda-hg/lazynote/internal/model"
)

// maxAncestorDepth stops the parent cycle walk on corrupted trees.
const maxAncestorDepth = 1000

// CreateInput describes a new note. A nil TagIDs, Task or Event means the
// relation was not requested.
type CreateInput struct {
	Title        *string         `json:"title"`
	BodyMarkdown *string         `json:"bodyMarkdown"`
	BodyHTML     *string         `json:"bodyHtml"`
	Metadata     json.RawMessage `json:"metadata"`
	IsEncrypted  bool            `json:"isEncrypted"`
	SortIndex    int64           `json:"sortIndex"`
	ProjectID    *string         `json:"projectId"`
	ParentID     *string         `json:"parentId"`
	TagIDs       []string        `json:"tagIds"`
	Task         *TaskInput      `json:"task"`
	Event        *EventInput     `json:"event"`
}

func (in CreateInput) hasRelations() bool {
	return in.TagIDs != nil || in.Task != nil || in.Event != nil
}

// UpdateInput describes a partial update. Unset fields are left alone,
// cleared fields are nulled and set fields overwrite.
type UpdateInput struct {
	Title        model.Optional[string]          `json:"title"`
	BodyMarkdown model.Optional[string]          `json:"bodyMarkdown"`
	BodyHTML     model.Optional[string]          `json:"bodyHtml"`
	Metadata     model.Optional[json.RawMessage] `json:"metadata"`
	IsEncrypted  model.Optional[bool]            `json:"isEncrypted"`
	SortIndex    model.Optional[int64]           `json:"sortIndex"`
	ProjectID    model.Optional[string]          `json:"projectId"`
	ParentID     model.Optional[string]          `json:"parentId"`
	TagIDs       model.Optional[[]string]        `json:"tagIds"`
	Task         model.Optional[TaskInput]       `json:"task"`
	Event        model.Optional[EventInput]      `json:"event"`
}

func (in UpdateInput) hasRelations() bool {
	return in.TagIDs.Present() || in.Task.Present() || in.Event.Present()
}

// Create inserts a note. Without tags, task or event it is a single insert;
// otherwise the note and its relations are written in one transaction.
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (model.Note, error) {
	if in.Task != nil {
		if err := in.Task.validate(); err != nil {
			return model.Note{}, err
		}
	}
	if in.Event != nil {
		if err := in.Event.validateCreate(); err != nil {
			return model.Note{}, err
		}
	}

	now := s.now()
	note := model.Note{
		ID:           s.newID(),
		OwnerID:      ownerID,
		Title:        in.Title,
		BodyMarkdown: in.BodyMarkdown,
		BodyHTML:     in.BodyHTML,
		Metadata:     in.Metadata,
		IsEncrypted:  in.IsEncrypted,
		SortIndex:    in.SortIndex,
		ProjectID:    in.ProjectID,
		ParentID:     in.ParentID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if note.BodyHTML == nil && note.BodyMarkdown != nil && !note.IsEncrypted {
		html, err := s.renderer.Render(*note.BodyMarkdown)
		if err != nil {
			return model.Note{}, err
		}
		note.BodyHTML = &html
	}

	if !in.hasRelations() {
		if err := s.checkReferences(ctx, s.store.Queries, note.ID, ownerID, optionalFromPtr(in.ProjectID), optionalFromPtr(in.ParentID)); err != nil {
			return model.Note{}, err
		}
		created, err := s.store.Queries.CreateNote(ctx, note)
		if err != nil {
			return model.Note{}, translate(err, "note %s", note.ID)
		}
		s.logger.Debug("note created", "id", created.ID)
		return created, nil
	}

	var result model.Note
	err := s.store.RunInTx(ctx, func(q *db.Queries) error {
		if err := s.checkReferences(ctx, q, note.ID, ownerID, optionalFromPtr(in.ProjectID), optionalFromPtr(in.ParentID)); err != nil {
			return err
		}
		if _, err := q.CreateNote(ctx, note); err != nil {
			return translate(err, "note %s", note.ID)
		}
		if in.TagIDs != nil {
			if err := s.syncTags(ctx, q, note.ID, ownerID, in.TagIDs, false); err != nil {
				return err
			}
		}
		if in.Task != nil {
			if err := s.syncTask(ctx, q, note.ID, false, model.Set(*in.Task)); err != nil {
				return err
			}
		}
		if in.Event != nil {
			if err := s.syncEvent(ctx, q, note.ID, false, model.Set(*in.Event)); err != nil {
				return err
			}
		}

		var err error
		result, err = s.loadAggregate(ctx, q, note.ID, model.IncludeAll)
		return err
	})
	if err != nil {
		return model.Note{}, err
	}

	s.logger.Debug("note created", "id", result.ID, "tags", len(result.Tags), "task", result.Task != nil, "event", result.Event != nil)
	return result, nil
}

// Update applies in to an owned note. Scalar-only updates are one statement;
// updates touching tags, task or event run in one transaction in the order
// note, tags, task, event, re-read.
func (s *Service) Update(ctx context.Context, id, ownerID string, in UpdateInput) (model.Note, error) {
	current, err := s.loadOwnedNote(ctx, s.store.Queries, id, ownerID, model.IncludeAll)
	if err != nil {
		return model.Note{}, s.hideOwnership(err, id)
	}

	if task, ok := in.Task.Get(); ok {
		if err := task.validate(); err != nil {
			return model.Note{}, err
		}
	}

	patch, err := s.notePatch(current, in)
	if err != nil {
		return model.Note{}, err
	}

	if !in.hasRelations() {
		if err := s.checkReferences(ctx, s.store.Queries, id, ownerID, in.ProjectID, in.ParentID); err != nil {
			return model.Note{}, err
		}
		updated, err := s.store.Queries.UpdateNote(ctx, id, patch)
		if err != nil {
			return model.Note{}, translate(err, "note %s", id)
		}
		updated.Task, updated.Event, updated.Tags = current.Task, current.Event, current.Tags
		s.logger.Debug("note updated", "id", id)
		return updated, nil
	}

	var result model.Note
	err = s.store.RunInTx(ctx, func(q *db.Queries) error {
		if err := s.checkReferences(ctx, q, id, ownerID, in.ProjectID, in.ParentID); err != nil {
			return err
		}
		if _, err := q.UpdateNote(ctx, id, patch); err != nil {
			return translate(err, "note %s", id)
		}
		if in.TagIDs.Present() {
			tagIDs, _ := in.TagIDs.Get()
			if err := s.syncTags(ctx, q, id, ownerID, tagIDs, true); err != nil {
				return err
			}
		}
		if err := s.syncTask(ctx, q, id, current.Task != nil, in.Task); err != nil {
			return err
		}
		if err := s.syncEvent(ctx, q, id, current.Event != nil, in.Event); err != nil {
			return err
		}

		var err error
		result, err = s.loadAggregate(ctx, q, id, model.IncludeAll)
		return err
	})
	if err != nil {
		return model.Note{}, err
	}

	s.logger.Debug("note updated", "id", id, "tags", len(result.Tags), "task", result.Task != nil, "event", result.Event != nil)
	return result, nil
}

func (s *Service) notePatch(current model.Note, in UpdateInput) (db.NotePatch, error) {
	patch := db.NotePatch{
		Title:        in.Title,
		BodyMarkdown: in.BodyMarkdown,
		BodyHTML:     in.BodyHTML,
		Metadata:     in.Metadata,
		IsEncrypted:  in.IsEncrypted,
		SortIndex:    in.SortIndex,
		ProjectID:    in.ProjectID,
		ParentID:     in.ParentID,
		UpdatedAt:    s.now(),
	}

	encrypted := current.IsEncrypted
	if value, ok := in.IsEncrypted.Get(); ok {
		encrypted = value
	}

	if !in.BodyHTML.IsUnset() {
		return patch, nil
	}

	// Encrypted bodies never keep HTML rendered from an earlier plaintext.
	if encrypted {
		if in.BodyMarkdown.Present() || !current.IsEncrypted {
			patch.BodyHTML = model.Clear[string]()
		}
		return patch, nil
	}

	if markdown, ok := in.BodyMarkdown.Get(); ok {
		html, err := s.renderer.Render(markdown)
		if err != nil {
			return db.NotePatch{}, err
		}
		patch.BodyHTML = model.Set(html)
	} else if in.BodyMarkdown.IsClear() {
		patch.BodyHTML = model.Clear[string]()
	}
	return patch, nil
}

// checkReferences verifies that a set project and parent belong to the owner
// and that the parent is not the note or one of its descendants.
func (s *Service) checkReferences(ctx context.Context, q *db.Queries, noteID, ownerID string, projectID, parentID model.Optional[string]) error {
	if id, ok := projectID.Get(); ok {
		project, err := q.GetProject(ctx, id)
		if errors.Is(err, db.ErrNotFound) || (err == nil && project.OwnerID != ownerID) {
			return errs.New(errs.NotFound, "project %s not found", id).WithDetail("projectId", id)
		}
		if err != nil {
			return err
		}
	}

	id, ok := parentID.Get()
	if !ok {
		return nil
	}
	if id == noteID {
		return errs.New(errs.ValidationError, "note cannot be its own parent").WithDetail("parentId", id)
	}

	next := &id
	for depth := 0; next != nil && depth < maxAncestorDepth; depth++ {
		ancestor, err := q.GetNote(ctx, *next)
		if errors.Is(err, db.ErrNotFound) || (err == nil && ancestor.OwnerID != ownerID) {
			if depth == 0 {
				return errs.New(errs.NotFound, "parent note %s not found", id).WithDetail("parentId", id)
			}
			return nil
		}
		if err != nil {
			return err
		}
		if ancestor.ID == noteID {
			return errs.New(errs.ValidationError, "parent %s is a descendant of note %s", id, noteID).WithDetail("parentId", id)
		}
		next = ancestor.ParentID
	}
	return nil
}

func optionalFromPtr(value *string) model.Optional[string] {
	if value == nil {
		return model.Unset[string]()
	}
	return model.Set(*value)
}
