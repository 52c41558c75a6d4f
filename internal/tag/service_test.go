package tag

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joseda-hg/lazynote/internal/db"
	"github.com/Joseda-hg/lazynote/internal/errs"
	"github.com/Joseda-hg/lazynote/internal/model"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *db.Store) {
	t.Helper()
	conn, err := db.Open(db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	store := db.NewStore(conn, db.DriverSQLite)
	return NewService(store, WithClock(func() time.Time { return baseTime })), store
}

func TestCreateAndList(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	work, err := svc.Create(ctx, "U1", CreateInput{Name: " work ", Color: "#FF0000"})
	require.NoError(t, err)
	assert.Equal(t, "work", work.Name)
	assert.Equal(t, "#ff0000", work.Color)
	assert.Equal(t, model.TagScopeUser, work.Scope)
	require.NotNil(t, work.OwnerID)
	assert.Equal(t, "U1", *work.OwnerID)

	inbox, err := svc.Create(ctx, "admin", CreateInput{Name: "inbox", Color: "#00ff00", Scope: model.TagScopeSystem})
	require.NoError(t, err)
	assert.Nil(t, inbox.OwnerID)

	_, err = svc.Create(ctx, "U2", CreateInput{Name: "private", Color: "#0000ff"})
	require.NoError(t, err)

	tags, err := svc.List(ctx, "U1")
	require.NoError(t, err)
	var names []string
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	assert.Equal(t, []string{"work", "inbox"}, names)
}

func TestCreateRejectsDuplicates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "U1", CreateInput{Name: "work", Color: "#ff0000"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, "U1", CreateInput{Name: "work", Color: "#123456"})
	assert.True(t, errs.Is(err, errs.AlreadyExists))

	_, err = svc.Create(ctx, "U1", CreateInput{Name: "other", Color: "#FF0000"})
	assert.True(t, errs.Is(err, errs.AlreadyExists))

	_, err = svc.Create(ctx, "U2", CreateInput{Name: "work", Color: "#ff0000"})
	assert.NoError(t, err)

	_, err = svc.Create(ctx, "U1", CreateInput{Name: "", Color: "#000000"})
	assert.True(t, errs.Is(err, errs.ValidationError))

	_, err = svc.Create(ctx, "U1", CreateInput{Name: "x", Color: "#000000", Scope: "team"})
	assert.True(t, errs.Is(err, errs.ValidationError))
}

func TestDeleteOnlyOwnUserTags(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	mine, err := svc.Create(ctx, "U1", CreateInput{Name: "mine", Color: "#111111"})
	require.NoError(t, err)
	system, err := svc.Create(ctx, "U1", CreateInput{Name: "global", Color: "#222222", Scope: model.TagScopeSystem})
	require.NoError(t, err)

	_, err = store.Queries.CreateNote(ctx, model.Note{ID: "n1", OwnerID: "U1", CreatedAt: baseTime, UpdatedAt: baseTime})
	require.NoError(t, err)
	require.NoError(t, store.Queries.AssignTagToNote(ctx, "n1", mine.ID, baseTime))

	assert.True(t, errs.Is(svc.Delete(ctx, mine.ID, "U2"), errs.NotFound))
	assert.True(t, errs.Is(svc.Delete(ctx, system.ID, "U1"), errs.NotFound))
	assert.True(t, errs.Is(svc.Delete(ctx, "missing", "U1"), errs.NotFound))

	require.NoError(t, svc.Delete(ctx, mine.ID, "U1"))

	_, err = store.Queries.GetTag(ctx, mine.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
	linked, err := store.Queries.ListTagsForNote(ctx, "n1")
	require.NoError(t, err)
	assert.Empty(t, linked)
}

func TestSuggestRanksVisibleTags(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i, name := range []string{"groceries", "work", "workshop", "reading"} {
		_, err := svc.Create(ctx, "U1", CreateInput{Name: name, Color: string(rune('a' + i))})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, "U2", CreateInput{Name: "workout", Color: "z"})
	require.NoError(t, err)

	suggestions, err := svc.Suggest(ctx, "U1", "wrk", 5)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	assert.Equal(t, "work", suggestions[0].Name)
	assert.Equal(t, "workshop", suggestions[1].Name)

	limited, err := svc.Suggest(ctx, "U1", "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := svc.Suggest(ctx, "U1", "zzz", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}
