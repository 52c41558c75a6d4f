// Package tag manages user and system tags and ranks them for pickers.
package tag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"

	"github.com/Joseda-hg/lazynote/internal/db"
	"github.com/Joseda-hg/lazynote/internal/errs"
	"github.com/Joseda-hg/lazynote/internal/model"
)

const defaultSuggestLimit = 10

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
	Name        string         `json:"name"`
	Color       string         `json:"color"`
	Description *string        `json:"description"`
	Scope       model.TagScope `json:"scope"`
}

// Create adds a tag. User tags belong to ownerID; system tags have no owner.
// Name and color are unique within one scope and owner.
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (model.Tag, error) {
	name := strings.TrimSpace(in.Name)
	color := strings.ToLower(strings.TrimSpace(in.Color))
	if name == "" {
		return model.Tag{}, errs.New(errs.ValidationError, "tag name is required").WithDetail("field", "name")
	}
	if color == "" {
		return model.Tag{}, errs.New(errs.ValidationError, "tag color is required").WithDetail("field", "color")
	}

	scope := in.Scope
	if scope == "" {
		scope = model.TagScopeUser
	}
	var owner *string
	switch scope {
	case model.TagScopeUser:
		owner = &ownerID
	case model.TagScopeSystem:
	default:
		return model.Tag{}, errs.New(errs.ValidationError, "unknown tag scope %q", scope).WithDetail("field", "scope")
	}

	clash, err := s.store.Queries.FindTagClash(ctx, scope, owner, name, color)
	switch {
	case err == nil:
		field := "color"
		if clash.Name == name {
			field = "name"
		}
		return model.Tag{}, errs.New(errs.AlreadyExists, "tag with this %s already exists", field).WithDetail("field", field).WithDetail("tagId", clash.ID)
	case !errors.Is(err, db.ErrNotFound):
		return model.Tag{}, fmt.Errorf("check tag uniqueness: %w", err)
	}

	created, err := s.store.Queries.CreateTag(ctx, model.Tag{
		ID:          s.newID(),
		Scope:       scope,
		OwnerID:     owner,
		Name:        name,
		Color:       color,
		Description: in.Description,
		CreatedAt:   s.now(),
	})
	if errors.Is(err, db.ErrConflict) {
		return model.Tag{}, errs.Wrap(errs.AlreadyExists, err, "tag %q already exists", name)
	}
	if err != nil {
		return model.Tag{}, err
	}

	s.logger.Debug("tag created", "id", created.ID, "scope", string(scope))
	return created, nil
}

// List returns the owner's tags followed by system tags.
func (s *Service) List(ctx context.Context, ownerID string) ([]model.Tag, error) {
	return s.store.Queries.ListVisibleTags(ctx, ownerID)
}

// Delete removes one of the owner's user tags and its note links. System and
// foreign tags report NotFound.
func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	return s.store.RunInTx(ctx, func(q *db.Queries) error {
		tag, err := q.GetTag(ctx, id)
		if errors.Is(err, db.ErrNotFound) {
			return errs.New(errs.NotFound, "tag %s not found", id)
		}
		if err != nil {
			return err
		}
		if tag.Scope != model.TagScopeUser || tag.OwnerID == nil || *tag.OwnerID != ownerID {
			return errs.HideOwnership(errs.New(errs.PermissionDenied, "tag %s not found", id))
		}

		if err := q.ClearTagLinks(ctx, id); err != nil {
			return err
		}
		if err := q.DeleteTag(ctx, id); err != nil {
			return err
		}
		s.logger.Debug("tag deleted", "id", id)
		return nil
	})
}

// Suggest ranks the owner's visible tags against pattern, best match first.
// An empty pattern returns the first tags in listing order.
func (s *Service) Suggest(ctx context.Context, ownerID, pattern string, limit int) ([]model.Tag, error) {
	if limit <= 0 {
		limit = defaultSuggestLimit
	}
	tags, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return tags[:min(limit, len(tags))], nil
	}

	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = tag.Name
	}
	matches := fuzzy.Find(pattern, names)

	result := make([]model.Tag, 0, min(limit, len(matches)))
	for _, match := range matches {
		if len(result) == limit {
			break
		}
		result = append(result, tags[match.Index])
	}
	return result, nil
}
