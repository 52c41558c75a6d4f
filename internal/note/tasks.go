package note

import (
	"context"
	"errors"
	"time"

	"github.com/Joseda-hg/lazynote/internal/db"
	"github.com/Joseda-hg/lazynote/internal/errs"
	"github.com/Joseda-hg/lazynote/internal/model"
)

// CompleteTask stamps the note's task as completed. An already completed
// task keeps its original timestamp.
func (s *Service) CompleteTask(ctx context.Context, noteID, ownerID string) (model.Task, error) {
	return s.setCompletion(ctx, noteID, ownerID, true)
}

// UncompleteTask clears the completion timestamp.
func (s *Service) UncompleteTask(ctx context.Context, noteID, ownerID string) (model.Task, error) {
	return s.setCompletion(ctx, noteID, ownerID, false)
}

func (s *Service) setCompletion(ctx context.Context, noteID, ownerID string, done bool) (model.Task, error) {
	note, err := s.loadOwnedNote(ctx, s.store.Queries, noteID, ownerID, model.Include{Task: true})
	if err != nil {
		return model.Task{}, s.hideOwnership(err, noteID)
	}
	if note.Task == nil {
		return model.Task{}, errs.New(errs.NotFound, "note %s has no task", noteID).WithDetail("noteId", noteID)
	}

	task := *note.Task
	if (task.CompletedAt != nil) == done {
		return task, nil
	}

	now := s.now()
	patch := db.TaskPatch{CompletedAt: model.Clear[time.Time](), UpdatedAt: now}
	if done {
		patch.CompletedAt = model.Set(now)
	}

	updated, err := s.store.Queries.UpdateTask(ctx, noteID, patch)
	if errors.Is(err, db.ErrNotFound) {
		return model.Task{}, errs.Wrap(errs.NotFound, err, "note %s has no task", noteID)
	}
	if err != nil {
		return model.Task{}, err
	}

	s.logger.Debug("task completion changed", "note", noteID, "completed", done)
	return updated, nil
}
