// Package note implements the note aggregate: atomic writes of a note with
// its task, event and tags, the archive/trash lifecycle and filtered reads.
package note

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Joseda-hg/lazynote/internal/db"
	"github.com/Joseda-hg/lazynote/internal/errs"
	"github.com/Joseda-hg/lazynote/internal/model"
)

type Service struct {
	store    *db.Store
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	renderer Renderer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithRenderer(renderer Renderer) Option {
	return func(s *Service) {
		s.renderer = renderer
	}
}

func NewService(store *db.Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
		renderer: NewMarkdownRenderer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// loadOwnedNote is the single ownership gate for every read and write. A
// missing note is NotFound; a foreign note is PermissionDenied.
func (s *Service) loadOwnedNote(ctx context.Context, q *db.Queries, id, ownerID string, include model.Include) (model.Note, error) {
	note, err := q.GetNote(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return model.Note{}, errs.New(errs.NotFound, "note %s not found", id)
	}
	if err != nil {
		return model.Note{}, fmt.Errorf("load note %s: %w", id, err)
	}
	if note.OwnerID != ownerID {
		return model.Note{}, errs.New(errs.PermissionDenied, "note %s not found", id)
	}
	return s.attachRelations(ctx, q, note, include)
}

// loadAggregate reads a note with the requested relations, without an
// ownership check.
func (s *Service) loadAggregate(ctx context.Context, q *db.Queries, id string, include model.Include) (model.Note, error) {
	note, err := q.GetNote(ctx, id)
	if err != nil {
		return model.Note{}, translate(err, "note %s", id)
	}
	return s.attachRelations(ctx, q, note, include)
}

func (s *Service) attachRelations(ctx context.Context, q *db.Queries, note model.Note, include model.Include) (model.Note, error) {
	if include.Tags {
		tags, err := q.ListTagsForNote(ctx, note.ID)
		if err != nil {
			return model.Note{}, fmt.Errorf("load tags for note %s: %w", note.ID, err)
		}
		note.Tags = tags
	}
	if include.Task {
		task, err := q.GetTaskByNote(ctx, note.ID)
		switch {
		case err == nil:
			note.Task = &task
		case !errors.Is(err, db.ErrNotFound):
			return model.Note{}, fmt.Errorf("load task for note %s: %w", note.ID, err)
		}
	}
	if include.Event {
		event, err := q.GetEventByNote(ctx, note.ID)
		switch {
		case err == nil:
			note.Event = &event
		case !errors.Is(err, db.ErrNotFound):
			return model.Note{}, fmt.Errorf("load event for note %s: %w", note.ID, err)
		}
	}
	return note, nil
}

// hideOwnership collapses PermissionDenied into NotFound for callers.
func (s *Service) hideOwnership(err error, id string) error {
	if errs.Is(err, errs.PermissionDenied) {
		s.logger.Debug("foreign note access", "id", id)
	}
	return errs.HideOwnership(err)
}

// translate maps store sentinels onto domain kinds and leaves other errors
// untouched.
func translate(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, db.ErrNotFound):
		return errs.Wrap(errs.NotFound, err, "%s not found", what)
	case errors.Is(err, db.ErrConflict):
		return errs.Wrap(errs.AlreadyExists, err, "%s already exists", what)
	}
	return err
}
