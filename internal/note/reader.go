package note

import (
	"context"
	"fmt"

	"github.com/Joseda-hg/lazynote/internal/db"
	"github.com/Joseda-hg/lazynote/internal/errs"
	"github.com/Joseda-hg/lazynote/internal/model"
)

// Get returns an owned note with the requested relations. A foreign note is
// reported exactly like a missing one.
func (s *Service) Get(ctx context.Context, id, ownerID string, include model.Include) (model.Note, error) {
	note, err := s.loadOwnedNote(ctx, s.store.Queries, id, ownerID, include)
	if err != nil {
		return model.Note{}, s.hideOwnership(err, id)
	}
	return note, nil
}

func (s *Service) ListActive(ctx context.Context, ownerID string, filter model.Filter, pagination model.Pagination) (model.Page, error) {
	return s.List(ctx, ownerID, model.StateActive, filter, pagination)
}

func (s *Service) ListArchived(ctx context.Context, ownerID string, filter model.Filter, pagination model.Pagination) (model.Page, error) {
	return s.List(ctx, ownerID, model.StateArchived, filter, pagination)
}

func (s *Service) ListDeleted(ctx context.Context, ownerID string, filter model.Filter, pagination model.Pagination) (model.Page, error) {
	return s.List(ctx, ownerID, model.StateDeleted, filter, pagination)
}

// List returns one page of the owner's notes in state. Without a sort field
// active and archived notes come newest first and deleted notes most
// recently modified first.
func (s *Service) List(ctx context.Context, ownerID string, state model.State, filter model.Filter, pagination model.Pagination) (model.Page, error) {
	query, err := buildQuery(ownerID, state, filter)
	if err != nil {
		return model.Page{}, err
	}

	pagination = pagination.Clamp()
	query.Limit = pagination.Limit
	query.Offset = pagination.Offset()

	total, err := s.store.Queries.CountNotes(ctx, query)
	if err != nil {
		return model.Page{}, fmt.Errorf("count %s notes: %w", state, err)
	}
	notes, err := s.store.Queries.ListNotes(ctx, query)
	if err != nil {
		return model.Page{}, fmt.Errorf("list %s notes: %w", state, err)
	}

	data := make([]model.Note, 0, len(notes))
	for _, note := range notes {
		full, err := s.attachRelations(ctx, s.store.Queries, note, model.IncludeAll)
		if err != nil {
			return model.Page{}, err
		}
		data = append(data, full)
	}

	s.logger.Debug("notes listed", "owner", ownerID, "state", string(state), "total", total, "page", pagination.Page)
	return model.Page{Data: data, Pagination: model.NewPageInfo(pagination, total)}, nil
}

func buildQuery(ownerID string, state model.State, filter model.Filter) (db.NoteQuery, error) {
	sortBy := filter.SortBy
	desc := true
	if sortBy == "" {
		sortBy = "createdAt"
		if state == model.StateDeleted {
			sortBy = "updatedAt"
		}
	} else if _, ok := db.NoteSortColumns[sortBy]; !ok {
		return db.NoteQuery{}, errs.New(errs.ValidationError, "cannot sort notes by %q", sortBy).WithDetail("sortBy", sortBy)
	}

	switch filter.Order {
	case "":
	case model.SortAsc:
		desc = false
	case model.SortDesc:
		desc = true
	default:
		return db.NoteQuery{}, errs.New(errs.ValidationError, "unknown sort order %q", filter.Order).WithDetail("order", string(filter.Order))
	}

	return db.NoteQuery{
		OwnerID:   ownerID,
		State:     state,
		ProjectID: filter.ProjectID,
		TagID:     filter.TagID,
		ParentID:  filter.ParentID,
		Search:    filter.Search,
		SortBy:    sortBy,
		Desc:      desc,
	}, nil
}
