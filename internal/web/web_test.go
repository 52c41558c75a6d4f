package web

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joseda-hg/lazynote/internal/db"
	"github.com/Joseda-hg/lazynote/internal/errs"
	"github.com/Joseda-hg/lazynote/internal/model"
	"github.com/Joseda-hg/lazynote/internal/note"
	"github.com/Joseda-hg/lazynote/internal/project"
	"github.com/Joseda-hg/lazynote/internal/tag"
)

func newTestServer(t *testing.T, defaultOwner string) http.Handler {
	t.Helper()
	conn, err := db.Open(db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	store := db.NewStore(conn, db.DriverSQLite)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(
		note.NewService(store, note.WithLogger(logger)),
		tag.NewService(store, tag.WithLogger(logger)),
		project.NewService(store, project.WithLogger(logger)),
		defaultOwner,
		logger,
	).Handler()
}

func do(t *testing.T, handler http.Handler, method, path, owner, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if owner != "" {
		req.Header.Set(OwnerHeader, owner)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &value), rec.Body.String())
	return value
}

func TestNoteLifecycleOverHTTP(t *testing.T) {
	handler := newTestServer(t, "")

	rec := do(t, handler, http.MethodPost, "/api/notes", "U1", `{"title":"Plan","bodyMarkdown":"*soon*","task":{"priority":3}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[model.Note](t, rec)
	require.NotNil(t, created.Task)
	require.NotNil(t, created.BodyHTML)
	assert.Contains(t, *created.BodyHTML, "<em>soon</em>")

	rec = do(t, handler, http.MethodPatch, "/api/notes/"+created.ID, "U1", `{"title":null,"task":null}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[model.Note](t, rec)
	assert.Nil(t, updated.Title)
	assert.Nil(t, updated.Task)

	rec = do(t, handler, http.MethodPost, "/api/notes/"+created.ID+"/archive", "U1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, handler, http.MethodPost, "/api/notes/"+created.ID+"/archive", "U1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, handler, http.MethodGet, "/api/notes?state=archived", "U1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeBody[model.Page](t, rec)
	assert.Equal(t, 1, page.Pagination.Total)

	rec = do(t, handler, http.MethodDelete, "/api/notes/"+created.ID, "U1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	deleted := decodeBody[model.Note](t, rec)
	assert.NotNil(t, deleted.DeletedAt)

	rec = do(t, handler, http.MethodPost, "/api/notes/"+created.ID+"/restore", "U1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	restored := decodeBody[model.Note](t, rec)
	assert.Nil(t, restored.ArchivedAt)
	assert.Nil(t, restored.DeletedAt)

	rec = do(t, handler, http.MethodDelete, "/api/notes/"+created.ID+"/purge", "U1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, handler, http.MethodGet, "/api/notes/"+created.ID, "U1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForeignNoteIs404WithNeutralMessage(t *testing.T) {
	handler := newTestServer(t, "")

	rec := do(t, handler, http.MethodPost, "/api/notes", "U1", `{"title":"secret"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[model.Note](t, rec)

	foreign := do(t, handler, http.MethodGet, "/api/notes/"+created.ID, "U2", "")
	missing := do(t, handler, http.MethodGet, "/api/notes/nope", "U2", "")
	assert.Equal(t, http.StatusNotFound, foreign.Code)
	assert.Equal(t, http.StatusNotFound, missing.Code)

	body := decodeBody[errorBody](t, foreign)
	assert.Equal(t, string(errs.NotFound), body.Error.Kind)
	assert.NotContains(t, foreign.Body.String(), "permission")
}

func TestValidationAndBadRequests(t *testing.T) {
	handler := newTestServer(t, "")

	rec := do(t, handler, http.MethodPost, "/api/notes", "U1", `{"event":{"startAt":"2026-03-01T09:00:00Z"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody[errorBody](t, rec)
	assert.Equal(t, string(errs.ValidationError), body.Error.Kind)

	rec = do(t, handler, http.MethodPost, "/api/notes", "U1", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, handler, http.MethodGet, "/api/notes?state=limbo", "U1", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, handler, http.MethodGet, "/api/notes?limit=lots", "U1", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, handler, http.MethodGet, "/api/notes", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBulkArchiveSkipsFailures(t *testing.T) {
	handler := newTestServer(t, "U1")

	var ids []string
	for i := 0; i < 2; i++ {
		rec := do(t, handler, http.MethodPost, "/api/notes", "", `{}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		ids = append(ids, decodeBody[model.Note](t, rec).ID)
	}

	payload, err := json.Marshal(map[string][]string{"ids": {ids[0], "missing", ids[1]}})
	require.NoError(t, err)
	rec := do(t, handler, http.MethodPost, "/api/bulk/notes/archive", "", string(payload))
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeBody[struct {
		Data []model.Note `json:"data"`
	}](t, rec)
	assert.Len(t, result.Data, 2)

	rec = do(t, handler, http.MethodPost, "/api/bulk/notes/explode", "", `{"ids":[]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTagsProjectsAndTasks(t *testing.T) {
	handler := newTestServer(t, "")

	rec := do(t, handler, http.MethodPost, "/api/tags", "U1", `{"name":"work","color":"#F00"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	workTag := decodeBody[model.Tag](t, rec)

	rec = do(t, handler, http.MethodPost, "/api/tags", "U1", `{"name":"work","color":"#0F0"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, handler, http.MethodGet, "/api/tags/suggest?q=wk", "U1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	suggestions := decodeBody[[]model.Tag](t, rec)
	require.Len(t, suggestions, 1)
	assert.Equal(t, workTag.ID, suggestions[0].ID)

	rec = do(t, handler, http.MethodPost, "/api/projects", "U1", `{"name":"Launch"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	launch := decodeBody[model.Project](t, rec)

	body := `{"title":"ship","projectId":"` + launch.ID + `","tagIds":["` + workTag.ID + `"],"task":{}}`
	rec = do(t, handler, http.MethodPost, "/api/notes", "U1", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[model.Note](t, rec)
	assert.Len(t, created.Tags, 1)

	rec = do(t, handler, http.MethodPost, "/api/notes/"+created.ID+"/task/complete", "U1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	task := decodeBody[model.Task](t, rec)
	assert.NotNil(t, task.CompletedAt)

	rec = do(t, handler, http.MethodGet, "/api/notes?tagId="+workTag.ID, "U1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeBody[model.Page](t, rec).Pagination.Total)

	rec = do(t, handler, http.MethodDelete, "/api/projects/"+launch.ID, "U1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, handler, http.MethodGet, "/api/notes/"+created.ID, "U1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decodeBody[model.Note](t, rec).ProjectID)

	rec = do(t, handler, http.MethodDelete, "/api/tags/"+workTag.ID, "U2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, handler, http.MethodDelete, "/api/tags/"+workTag.ID, "U1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestIndexRendersNoteTree(t *testing.T) {
	handler := newTestServer(t, "U1")

	rec := do(t, handler, http.MethodPost, "/api/notes", "", `{"title":"Parent <b>","bodyMarkdown":"hello <script>x</script>"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	parent := decodeBody[model.Note](t, rec)
	rec = do(t, handler, http.MethodPost, "/api/notes", "", `{"title":"Child","parentId":"`+parent.ID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, handler, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	html := rec.Body.String()
	assert.Contains(t, html, "Parent &lt;b&gt;")
	assert.Contains(t, html, "margin-left: 20px")
	assert.NotContains(t, html, "<script>")
}

func TestIndexIgnoresStoredBodyHTML(t *testing.T) {
	handler := newTestServer(t, "U1")

	rec := do(t, handler, http.MethodPost, "/api/notes", "", `{"title":"planted","bodyMarkdown":"**safe**","bodyHtml":"<script>alert(1)</script>"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = do(t, handler, http.MethodPost, "/api/notes", "", `{"title":"html only","bodyHtml":"<img src=x onerror=alert(2)>"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, handler, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	html := rec.Body.String()
	assert.NotContains(t, html, "<script>")
	assert.NotContains(t, html, "onerror")
	assert.Contains(t, html, "<strong>safe</strong>")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusFor(errs.NotFound))
	assert.Equal(t, http.StatusNotFound, StatusFor(errs.PermissionDenied))
	assert.Equal(t, http.StatusConflict, StatusFor(errs.Conflict))
	assert.Equal(t, http.StatusConflict, StatusFor(errs.AlreadyExists))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(errs.ValidationError))
	assert.Equal(t, http.StatusInternalServerError, StatusFor("mystery"))
}
