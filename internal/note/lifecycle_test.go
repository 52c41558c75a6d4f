package note

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Joseda-hg/lazynote/internal/db"
	"github.com/Joseda-hg/lazynote/internal/errs"
	"github.com/Joseda-hg/lazynote/internal/model"
)

var softTransitions = []Transition{TransitionArchive, TransitionUnarchive, TransitionSoftDelete, TransitionRestore}

func TestNextGuards(t *testing.T) {
	tests := []struct {
		name  string
		from  model.State
		t     Transition
		want  model.State
		fails bool
	}{
		{"archive active", model.StateActive, TransitionArchive, model.StateArchived, false},
		{"archive archived", model.StateArchived, TransitionArchive, model.StateArchived, true},
		{"archive deleted", model.StateDeleted, TransitionArchive, model.StateDeleted, true},
		{"unarchive archived", model.StateArchived, TransitionUnarchive, model.StateActive, false},
		{"unarchive active", model.StateActive, TransitionUnarchive, model.StateActive, true},
		{"unarchive deleted", model.StateDeleted, TransitionUnarchive, model.StateDeleted, true},
		{"delete active", model.StateActive, TransitionSoftDelete, model.StateDeleted, false},
		{"delete archived", model.StateArchived, TransitionSoftDelete, model.StateDeleted, false},
		{"delete deleted", model.StateDeleted, TransitionSoftDelete, model.StateDeleted, true},
		{"restore deleted", model.StateDeleted, TransitionRestore, model.StateActive, false},
		{"restore active", model.StateActive, TransitionRestore, model.StateActive, true},
		{"restore archived", model.StateArchived, TransitionRestore, model.StateArchived, true},
		{"purge active", model.StateActive, TransitionHardDelete, model.StateDeleted, false},
		{"purge deleted", model.StateDeleted, TransitionHardDelete, model.StateDeleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.from, tt.t)
			assert.Equal(t, tt.want, got)
			if tt.fails {
				assert.True(t, errs.Is(err, errs.Conflict), "want conflict, got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}

	_, err := Next(model.StateActive, Transition("explode"))
	assert.True(t, errs.Is(err, errs.ValidationError))
}

func TestStateOfPrefersDeleted(t *testing.T) {
	now := baseTime
	assert.Equal(t, model.StateActive, StateOf(model.Note{}))
	assert.Equal(t, model.StateArchived, StateOf(model.Note{ArchivedAt: &now}))
	assert.Equal(t, model.StateDeleted, StateOf(model.Note{DeletedAt: &now}))
	assert.Equal(t, model.StateDeleted, StateOf(model.Note{ArchivedAt: &now, DeletedAt: &now}))
}

// Random transition sequences against a real store must agree with Next and
// leave the note in exactly the state Next predicts.
func testLifecycleMatchesNext(t *rapid.T) {
	svc, _, cleanup := openTestService(t)
	defer cleanup()
	ctx := context.Background()

	created, err := svc.Create(ctx, "U1", CreateInput{Title: ptr("lifecycle")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	state := model.StateActive
	steps := rapid.SliceOfN(rapid.SampledFrom(softTransitions), 1, 12).Draw(t, "transitions")
	for _, step := range steps {
		want, guardErr := Next(state, step)

		var note model.Note
		switch step {
		case TransitionArchive:
			note, err = svc.Archive(ctx, created.ID, "U1")
		case TransitionUnarchive:
			note, err = svc.Unarchive(ctx, created.ID, "U1")
		case TransitionSoftDelete:
			note, err = svc.SoftDelete(ctx, created.ID, "U1")
		case TransitionRestore:
			note, err = svc.Restore(ctx, created.ID, "U1")
		}

		if guardErr != nil {
			if !errs.Is(err, errs.Conflict) {
				t.Fatalf("%s from %s: want conflict, got %v", step, state, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s from %s: %v", step, state, err)
		}
		if got := StateOf(note); got != want {
			t.Fatalf("%s from %s: state %s, want %s", step, state, got, want)
		}
		if step == TransitionRestore && (note.ArchivedAt != nil || note.DeletedAt != nil) {
			t.Fatalf("restore left timestamps archived=%v deleted=%v", note.ArchivedAt, note.DeletedAt)
		}
		state = want
	}

	stored, err := svc.Get(ctx, created.ID, "U1", model.Include{})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if StateOf(stored) != state {
		t.Fatalf("stored state %s, want %s", StateOf(stored), state)
	}
}

func TestLifecycleMatchesNext(t *testing.T) {
	rapid.Check(t, testLifecycleMatchesNext)
}

func TestListingsPartitionNotesByState(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		svc, _, cleanup := openTestService(t)
		defer cleanup()
		ctx := context.Background()

		count := rapid.IntRange(1, 6).Draw(t, "notes")
		for i := 0; i < count; i++ {
			created, err := svc.Create(ctx, "U1", CreateInput{})
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			for _, step := range rapid.SliceOfN(rapid.SampledFrom(softTransitions), 0, 4).Draw(t, "steps") {
				// Guard failures are expected here; only the final partition matters.
				_, _ = svc.transition(ctx, created.ID, "U1", step)
			}
		}

		seen := 0
		for _, state := range []model.State{model.StateActive, model.StateArchived, model.StateDeleted} {
			page, err := svc.List(ctx, "U1", state, model.Filter{}, model.Pagination{Limit: model.MaxPageLimit})
			if err != nil {
				t.Fatalf("list %s: %v", state, err)
			}
			for _, note := range page.Data {
				if StateOf(note) != state {
					t.Fatalf("note %s listed as %s but is %s", note.ID, state, StateOf(note))
				}
			}
			seen += page.Pagination.Total
		}
		if seen != count {
			t.Fatalf("listings cover %d notes, want %d", seen, count)
		}
	})
}

func TestLifecycleScenario(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedTag(t, store, "T1", "U1", "one")
	seedTag(t, store, "T2", "U1", "two")

	n1, err := svc.Create(ctx, "U1", CreateInput{Title: ptr("N1"), TagIDs: []string{"T1", "T2"}})
	require.NoError(t, err)

	assertListed := func(state model.State, want bool) {
		t.Helper()
		page, err := svc.List(ctx, "U1", state, model.Filter{}, model.Pagination{})
		require.NoError(t, err)
		found := false
		for _, note := range page.Data {
			if note.ID == n1.ID {
				found = true
				assert.Len(t, note.Tags, 2)
			}
		}
		assert.Equal(t, want, found, "listed in %s", state)
	}

	assertListed(model.StateActive, true)

	_, err = svc.Archive(ctx, n1.ID, "U1")
	require.NoError(t, err)
	assertListed(model.StateArchived, true)
	assertListed(model.StateActive, false)

	_, err = svc.SoftDelete(ctx, n1.ID, "U1")
	require.NoError(t, err)
	assertListed(model.StateDeleted, true)
	assertListed(model.StateArchived, false)
	assertListed(model.StateActive, false)

	_, err = svc.Archive(ctx, n1.ID, "U1")
	assert.True(t, errs.Is(err, errs.Conflict))

	restored, err := svc.Restore(ctx, n1.ID, "U1")
	require.NoError(t, err)
	assert.Nil(t, restored.ArchivedAt)
	assert.Nil(t, restored.DeletedAt)
	assertListed(model.StateActive, true)

	_, err = svc.Get(ctx, n1.ID, "U2", model.IncludeAll)
	assert.True(t, errs.Is(err, errs.NotFound))
}

func TestTransitionOnForeignNoteIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "U1", CreateInput{})
	require.NoError(t, err)

	_, err = svc.Archive(ctx, created.ID, "U2")
	assert.True(t, errs.Is(err, errs.NotFound))
	assert.NotContains(t, err.Error(), "permission")
	assert.True(t, errs.Is(errors.Unwrap(err), errs.PermissionDenied))

	err = svc.HardDelete(ctx, created.ID, "U2")
	assert.True(t, errs.Is(err, errs.NotFound))

	stored, err := svc.Get(ctx, created.ID, "U1", model.Include{})
	require.NoError(t, err)
	assert.Equal(t, model.StateActive, StateOf(stored))
}

func TestHardDeleteRemovesAggregateAndDetachesChildren(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedTag(t, store, "T1", "U1", "one")

	parent, err := svc.Create(ctx, "U1", CreateInput{
		Title:  ptr("parent"),
		TagIDs: []string{"T1"},
		Task:   &TaskInput{},
		Event:  &EventInput{StartAt: model.Set(baseTime), EndAt: model.Set(baseTime.Add(time.Hour))},
	})
	require.NoError(t, err)
	child, err := svc.Create(ctx, "U1", CreateInput{Title: ptr("child"), ParentID: &parent.ID})
	require.NoError(t, err)

	require.NoError(t, svc.HardDelete(ctx, parent.ID, "U1"))

	_, err = svc.Get(ctx, parent.ID, "U1", model.IncludeAll)
	assert.True(t, errs.Is(err, errs.NotFound))

	_, err = store.Queries.GetTaskByNote(ctx, parent.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
	_, err = store.Queries.GetEventByNote(ctx, parent.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
	cleared, err := store.Queries.ClearNoteTags(ctx, parent.ID)
	require.NoError(t, err)
	assert.Zero(t, cleared)

	orphan, err := svc.Get(ctx, child.ID, "U1", model.Include{})
	require.NoError(t, err)
	assert.Nil(t, orphan.ParentID)

	tag, err := store.Queries.GetTag(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "one", tag.Name)
}

func TestHardDeleteFromAnyState(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	archived, err := svc.Create(ctx, "U1", CreateInput{})
	require.NoError(t, err)
	_, err = svc.Archive(ctx, archived.ID, "U1")
	require.NoError(t, err)

	active, err := svc.Create(ctx, "U1", CreateInput{})
	require.NoError(t, err)

	require.NoError(t, svc.HardDelete(ctx, archived.ID, "U1"))
	require.NoError(t, svc.HardDelete(ctx, active.ID, "U1"))

	err = svc.HardDelete(ctx, active.ID, "U1")
	assert.True(t, errs.Is(err, errs.NotFound))
}
