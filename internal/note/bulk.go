package note

import (
	"context"

	"github.com/Joseda-hg/lazynote/internal/errs"
	"github.com/Joseda-hg/lazynote/internal/model"
)

func (s *Service) ArchiveMany(ctx context.Context, ids []string, ownerID string) ([]model.Note, error) {
	return s.transitionMany(ctx, ids, ownerID, TransitionArchive)
}

func (s *Service) UnarchiveMany(ctx context.Context, ids []string, ownerID string) ([]model.Note, error) {
	return s.transitionMany(ctx, ids, ownerID, TransitionUnarchive)
}

func (s *Service) SoftDeleteMany(ctx context.Context, ids []string, ownerID string) ([]model.Note, error) {
	return s.transitionMany(ctx, ids, ownerID, TransitionSoftDelete)
}

func (s *Service) RestoreMany(ctx context.Context, ids []string, ownerID string) ([]model.Note, error) {
	return s.transitionMany(ctx, ids, ownerID, TransitionRestore)
}

// transitionMany applies t to each id in order and returns the notes that
// moved. Domain failures skip the id; anything else stops the batch.
func (s *Service) transitionMany(ctx context.Context, ids []string, ownerID string, t Transition) ([]model.Note, error) {
	moved := make([]model.Note, 0, len(ids))
	for _, id := range ids {
		note, err := s.transition(ctx, id, ownerID, t)
		if err != nil {
			if errs.IsDomain(err) {
				kind, _ := errs.KindOf(err)
				s.logger.Debug("bulk item skipped", "id", id, "transition", string(t), "kind", string(kind))
				continue
			}
			return nil, err
		}
		moved = append(moved, note)
	}
	return moved, nil
}
