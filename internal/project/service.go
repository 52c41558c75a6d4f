// Package project groups notes under named, owner-scoped projects.
package project

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Joseda-hg/lazynote/internal/db"
	"github.com/Joseda-hg/lazynote/internal/errs"
	"github.com/Joseda-hg/lazynote/internal/model"
)

type Service struct {
	store  *db.Store
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(store *db.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (model.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Project{}, errs.New(errs.ValidationError, "project name is required").WithDetail("field", "name")
	}

	now := s.now()
	created, err := s.store.Queries.CreateProject(ctx, model.Project{
		ID:          s.newID(),
		OwnerID:     ownerID,
		Name:        name,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return model.Project{}, err
	}
	s.logger.Debug("project created", "id", created.ID)
	return created, nil
}

func (s *Service) Get(ctx context.Context, id, ownerID string) (model.Project, error) {
	return s.loadOwned(ctx, s.store.Queries, id, ownerID)
}

func (s *Service) List(ctx context.Context, ownerID string) ([]model.Project, error) {
	return s.store.Queries.ListProjects(ctx, ownerID)
}

// Delete removes the project. Its notes stay and lose the project reference.
func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	return s.store.RunInTx(ctx, func(q *db.Queries) error {
		if _, err := s.loadOwned(ctx, q, id, ownerID); err != nil {
			return err
		}
		detached, err := q.DetachProject(ctx, id, s.now())
		if err != nil {
			return err
		}
		if err := q.DeleteProject(ctx, id); err != nil {
			return err
		}
		s.logger.Debug("project deleted", "id", id, "detachedNotes", detached)
		return nil
	})
}

func (s *Service) loadOwned(ctx context.Context, q *db.Queries, id, ownerID string) (model.Project, error) {
	project, err := q.GetProject(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return model.Project{}, errs.New(errs.NotFound, "project %s not found", id)
	}
	if err != nil {
		return model.Project{}, err
	}
	if project.OwnerID != ownerID {
		return model.Project{}, errs.HideOwnership(errs.New(errs.PermissionDenied, "project %s not found", id))
	}
	return project, nil
}
