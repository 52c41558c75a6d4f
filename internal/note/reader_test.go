package note

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joseda-hg/lazynote/internal/errs"
	"github.com/Joseda-hg/lazynote/internal/model"
)

func noteIDs(notes []model.Note) []string {
	ids := make([]string, 0, len(notes))
	for _, note := range notes {
		ids = append(ids, note.ID)
	}
	return ids
}

func TestListDefaultsToNewestFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, "U1", CreateInput{Title: ptr("first")})
	require.NoError(t, err)
	second, err := svc.Create(ctx, "U1", CreateInput{Title: ptr("second")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "U2", CreateInput{Title: ptr("someone else")})
	require.NoError(t, err)

	page, err := svc.ListActive(ctx, "U1", model.Filter{}, model.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID, first.ID}, noteIDs(page.Data))
	assert.Equal(t, model.PageInfo{Page: 1, Limit: model.DefaultPageLimit, Total: 2, TotalPages: 1}, page.Pagination)

	asc, err := svc.ListActive(ctx, "U1", model.Filter{SortBy: "title", Order: model.SortAsc}, model.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, second.ID}, noteIDs(asc.Data))
}

func TestListDeletedDefaultsToLastModified(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	older, err := svc.Create(ctx, "U1", CreateInput{Title: ptr("older")})
	require.NoError(t, err)
	newer, err := svc.Create(ctx, "U1", CreateInput{Title: ptr("newer")})
	require.NoError(t, err)

	_, err = svc.SoftDelete(ctx, newer.ID, "U1")
	require.NoError(t, err)
	_, err = svc.SoftDelete(ctx, older.ID, "U1")
	require.NoError(t, err)

	page, err := svc.ListDeleted(ctx, "U1", model.Filter{}, model.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, []string{older.ID, newer.ID}, noteIDs(page.Data))
}

func TestListFilters(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedTag(t, store, "T1", "U1", "work")
	seedProject(t, store, "P1", "U1")

	root, err := svc.Create(ctx, "U1", CreateInput{Title: ptr("Quarterly Plan"), ProjectID: ptr("P1")})
	require.NoError(t, err)
	child, err := svc.Create(ctx, "U1", CreateInput{Title: ptr("notes"), BodyMarkdown: ptr("review the PLAN"), ParentID: &root.ID, TagIDs: []string{"T1"}})
	require.NoError(t, err)
	other, err := svc.Create(ctx, "U1", CreateInput{Title: ptr("groceries")})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter model.Filter
		want   []string
	}{
		{"project", model.Filter{ProjectID: ptr("P1")}, []string{root.ID}},
		{"tag", model.Filter{TagID: ptr("T1")}, []string{child.ID}},
		{"parent", model.Filter{ParentID: model.Set(root.ID)}, []string{child.ID}},
		{"roots", model.Filter{ParentID: model.Clear[string]()}, []string{root.ID, other.ID}},
		{"search title and body", model.Filter{Search: "plan"}, []string{root.ID, child.ID}},
		{"search wildcard literal", model.Filter{Search: "%"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.ListActive(ctx, "U1", tt.filter, model.Pagination{})
			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, page.Data)
				return
			}
			assert.ElementsMatch(t, tt.want, noteIDs(page.Data))
		})
	}
}

func TestListPaginationClamps(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, "U1", CreateInput{})
		require.NoError(t, err)
	}

	page, err := svc.ListActive(ctx, "U1", model.Filter{}, model.Pagination{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, model.PageInfo{Page: 2, Limit: 2, Total: 5, TotalPages: 3}, page.Pagination)

	clamped, err := svc.ListActive(ctx, "U1", model.Filter{}, model.Pagination{Page: -4, Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, clamped.Pagination.Page)
	assert.Equal(t, model.MaxPageLimit, clamped.Pagination.Limit)
	assert.Len(t, clamped.Data, 5)

	beyond, err := svc.ListActive(ctx, "U1", model.Filter{}, model.Pagination{Page: 9, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, beyond.Data)
	assert.Equal(t, 5, beyond.Pagination.Total)
}

func TestListRejectsUnknownSort(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.ListActive(ctx, "U1", model.Filter{SortBy: "owner_id; DROP TABLE notes"}, model.Pagination{})
	assert.True(t, errs.Is(err, errs.ValidationError))

	_, err = svc.ListActive(ctx, "U1", model.Filter{Order: "sideways"}, model.Pagination{})
	assert.True(t, errs.Is(err, errs.ValidationError))
}

func TestBulkSkipsDomainFailures(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, "U1", CreateInput{})
	require.NoError(t, err)
	b, err := svc.Create(ctx, "U1", CreateInput{})
	require.NoError(t, err)
	foreign, err := svc.Create(ctx, "U2", CreateInput{})
	require.NoError(t, err)

	_, err = svc.Archive(ctx, b.ID, "U1")
	require.NoError(t, err)

	archived, err := svc.ArchiveMany(ctx, []string{a.ID, b.ID, foreign.ID, "missing"}, "U1")
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, noteIDs(archived))

	deleted, err := svc.SoftDeleteMany(ctx, []string{a.ID, b.ID}, "U1")
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, noteIDs(deleted))

	restored, err := svc.RestoreMany(ctx, []string{b.ID, a.ID}, "U1")
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, a.ID}, noteIDs(restored))

	unarchived, err := svc.UnarchiveMany(ctx, []string{a.ID}, "U1")
	require.NoError(t, err)
	assert.Empty(t, unarchived)
}

func TestTreeNestsChildrenUnderParents(t *testing.T) {
	root := model.Note{ID: "root"}
	child := model.Note{ID: "child", ParentID: ptr("root")}
	grandchild := model.Note{ID: "grandchild", ParentID: ptr("child")}
	orphan := model.Note{ID: "orphan", ParentID: ptr("elsewhere")}

	rows := Tree([]model.Note{grandchild, orphan, child, root}, nil)
	require.Len(t, rows, 4)

	var order []string
	depths := map[string]int{}
	for _, row := range rows {
		order = append(order, row.Note.ID)
		depths[row.Note.ID] = row.Depth
	}
	assert.Equal(t, []string{"orphan", "root", "child", "grandchild"}, order)
	assert.Equal(t, map[string]int{"orphan": 0, "root": 0, "child": 1, "grandchild": 2}, depths)
	assert.True(t, rows[1].HasChildren)

	collapsed := Tree([]model.Note{root, child, grandchild}, map[string]bool{"child": true})
	assert.Len(t, collapsed, 2)
	assert.Empty(t, Tree(nil, nil))
}

func TestTreeKeepsNotesInParentLoops(t *testing.T) {
	root := model.Note{ID: "root"}
	a := model.Note{ID: "a", ParentID: ptr("b")}
	b := model.Note{ID: "b", ParentID: ptr("a")}
	c := model.Note{ID: "c", ParentID: ptr("b")}
	self := model.Note{ID: "self", ParentID: ptr("self")}

	rows := Tree([]model.Note{root, c, a, b, self}, nil)
	require.Len(t, rows, 5)

	var order []string
	depths := map[string]int{}
	for _, row := range rows {
		order = append(order, row.Note.ID)
		depths[row.Note.ID] = row.Depth
	}
	assert.Equal(t, []string{"root", "b", "c", "a", "self"}, order)
	assert.Equal(t, map[string]int{"root": 0, "b": 0, "c": 1, "a": 1, "self": 0}, depths)

	collapsed := Tree([]model.Note{a, b}, map[string]bool{"a": true})
	require.Len(t, collapsed, 1)
	assert.Equal(t, "a", collapsed[0].Note.ID)
}
