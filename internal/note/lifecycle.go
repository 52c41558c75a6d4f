package note

import (
	"context"
	"errors"
	"time"

	"github.com/Joseda-hg/lazynote/internal/db"
	"github.com/Joseda-hg/lazynote/internal/errs"
	"github.com/Joseda-hg/lazynote/internal/model"
)

// Transition is a lifecycle operation on a note.
type Transition string

const (
	TransitionArchive    Transition = "archive"
	TransitionUnarchive  Transition = "unarchive"
	TransitionSoftDelete Transition = "soft_delete"
	TransitionRestore    Transition = "restore"
	TransitionHardDelete Transition = "hard_delete"
)

// Next returns the state reached by applying t to state, or a Conflict error
// when the transition is not allowed. Hard delete reports StateDeleted; the
// row is removed by the caller.
func Next(state model.State, t Transition) (model.State, error) {
	switch t {
	case TransitionArchive:
		switch state {
		case model.StateArchived:
			return state, errs.New(errs.Conflict, "note is already archived")
		case model.StateDeleted:
			return state, errs.New(errs.Conflict, "note is deleted; restore it before archiving")
		}
		return model.StateArchived, nil
	case TransitionUnarchive:
		if state != model.StateArchived {
			return state, errs.New(errs.Conflict, "note is not archived")
		}
		return model.StateActive, nil
	case TransitionSoftDelete:
		if state == model.StateDeleted {
			return state, errs.New(errs.Conflict, "note is already deleted")
		}
		return model.StateDeleted, nil
	case TransitionRestore:
		if state != model.StateDeleted {
			return state, errs.New(errs.Conflict, "note is not deleted")
		}
		return model.StateActive, nil
	case TransitionHardDelete:
		return model.StateDeleted, nil
	}
	return state, errs.New(errs.ValidationError, "unknown transition %q", t)
}

// StateOf is the lifecycle state of n. Deleted wins over Archived.
func StateOf(n model.Note) model.State {
	return n.State()
}

// lifecyclePatch sets the timestamps for a soft transition. Restore always
// lands on Active, so it clears the archive flag too.
func lifecyclePatch(t Transition, now time.Time) db.NotePatch {
	patch := db.NotePatch{UpdatedAt: now}
	switch t {
	case TransitionArchive:
		patch.ArchivedAt = model.Set(now)
	case TransitionUnarchive:
		patch.ArchivedAt = model.Clear[time.Time]()
	case TransitionSoftDelete:
		patch.DeletedAt = model.Set(now)
	case TransitionRestore:
		patch.DeletedAt = model.Clear[time.Time]()
		patch.ArchivedAt = model.Clear[time.Time]()
	}
	return patch
}

func (s *Service) Archive(ctx context.Context, id, ownerID string) (model.Note, error) {
	return s.transition(ctx, id, ownerID, TransitionArchive)
}

func (s *Service) Unarchive(ctx context.Context, id, ownerID string) (model.Note, error) {
	return s.transition(ctx, id, ownerID, TransitionUnarchive)
}

func (s *Service) SoftDelete(ctx context.Context, id, ownerID string) (model.Note, error) {
	return s.transition(ctx, id, ownerID, TransitionSoftDelete)
}

func (s *Service) Restore(ctx context.Context, id, ownerID string) (model.Note, error) {
	return s.transition(ctx, id, ownerID, TransitionRestore)
}

func (s *Service) transition(ctx context.Context, id, ownerID string, t Transition) (model.Note, error) {
	current, err := s.loadOwnedNote(ctx, s.store.Queries, id, ownerID, model.IncludeAll)
	if err != nil {
		return model.Note{}, s.hideOwnership(err, id)
	}

	if _, err := Next(StateOf(current), t); err != nil {
		var domainErr *errs.Error
		if errors.As(err, &domainErr) {
			domainErr.WithDetail("id", id).WithDetail("state", string(StateOf(current)))
		}
		return model.Note{}, err
	}

	updated, err := s.store.Queries.UpdateNote(ctx, id, lifecyclePatch(t, s.now()))
	if err != nil {
		return model.Note{}, translate(err, "note %s", id)
	}
	updated.Task, updated.Event, updated.Tags = current.Task, current.Event, current.Tags

	s.logger.Debug("note transitioned", "id", id, "transition", string(t), "state", string(updated.State()))
	return updated, nil
}

// HardDelete removes the note and its task, event and tag links. Children
// are detached, not deleted.
func (s *Service) HardDelete(ctx context.Context, id, ownerID string) error {
	err := s.store.RunInTx(ctx, func(q *db.Queries) error {
		current, err := s.loadOwnedNote(ctx, q, id, ownerID, model.Include{})
		if err != nil {
			return err
		}
		if _, err := Next(current.State(), TransitionHardDelete); err != nil {
			return err
		}

		if err := q.DeleteTaskByNote(ctx, id); err != nil && !errors.Is(err, db.ErrNotFound) {
			return err
		}
		if err := q.DeleteEventByNote(ctx, id); err != nil && !errors.Is(err, db.ErrNotFound) {
			return err
		}
		if _, err := q.ClearNoteTags(ctx, id); err != nil {
			return err
		}
		detached, err := q.DetachChildren(ctx, id, s.now())
		if err != nil {
			return err
		}
		if err := q.DeleteNote(ctx, id); err != nil {
			return translate(err, "note %s", id)
		}

		s.logger.Debug("note hard deleted", "id", id, "detachedChildren", detached)
		return nil
	})
	if err != nil {
		return s.hideOwnership(err, id)
	}
	return nil
}
