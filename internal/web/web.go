package web

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Joseda-hg/lazynote/internal/errs"
	"github.com/Joseda-hg/lazynote/internal/model"
	"github.com/Joseda-hg/lazynote/internal/note"
	"github.com/Joseda-hg/lazynote/internal/project"
	"github.com/Joseda-hg/lazynote/internal/tag"
)

// OwnerHeader carries the caller's identity.
const OwnerHeader = "X-Owner-ID"

//go:embed templates/*.tmpl
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.tmpl"))

type Server struct {
	notes        *note.Service
	tags         *tag.Service
	projects     *project.Service
	defaultOwner string
	renderer     note.Renderer
	logger       *slog.Logger
}

type noteRow struct {
	Note     model.Note
	Body     template.HTML
	IndentPx int
}

// NewServer wires the services into an HTTP API. Requests without an owner
// header act as defaultOwner; an empty defaultOwner makes the header
// mandatory.
func NewServer(notes *note.Service, tags *tag.Service, projects *project.Service, defaultOwner string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{notes: notes, tags: tags, projects: projects, defaultOwner: defaultOwner, renderer: note.NewMarkdownRenderer(), logger: logger}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.indexHandler)

	mux.HandleFunc("GET /api/notes", s.listNotesHandler)
	mux.HandleFunc("POST /api/notes", s.createNoteHandler)
	mux.HandleFunc("GET /api/notes/{id}", s.getNoteHandler)
	mux.HandleFunc("PATCH /api/notes/{id}", s.updateNoteHandler)
	mux.HandleFunc("DELETE /api/notes/{id}", s.lifecycleHandler(note.TransitionSoftDelete))
	mux.HandleFunc("DELETE /api/notes/{id}/purge", s.purgeNoteHandler)
	mux.HandleFunc("POST /api/notes/{id}/archive", s.lifecycleHandler(note.TransitionArchive))
	mux.HandleFunc("POST /api/notes/{id}/unarchive", s.lifecycleHandler(note.TransitionUnarchive))
	mux.HandleFunc("POST /api/notes/{id}/restore", s.lifecycleHandler(note.TransitionRestore))
	mux.HandleFunc("POST /api/notes/{id}/task/complete", s.taskCompletionHandler(true))
	mux.HandleFunc("POST /api/notes/{id}/task/uncomplete", s.taskCompletionHandler(false))
	mux.HandleFunc("POST /api/bulk/notes/{action}", s.bulkHandler)

	mux.HandleFunc("GET /api/tags", s.listTagsHandler)
	mux.HandleFunc("POST /api/tags", s.createTagHandler)
	mux.HandleFunc("GET /api/tags/suggest", s.suggestTagsHandler)
	mux.HandleFunc("DELETE /api/tags/{id}", s.deleteTagHandler)

	mux.HandleFunc("GET /api/projects", s.listProjectsHandler)
	mux.HandleFunc("POST /api/projects", s.createProjectHandler)
	mux.HandleFunc("GET /api/projects/{id}", s.getProjectHandler)
	mux.HandleFunc("DELETE /api/projects/{id}", s.deleteProjectHandler)
	return mux
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	filter, pagination, err := filterFromRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	pagination.Limit = model.MaxPageLimit

	page, err := s.notes.ListActive(r.Context(), owner, filter, pagination)
	if err != nil {
		s.writeError(w, err)
		return
	}

	rows := make([]noteRow, 0, len(page.Data))
	for _, row := range note.Tree(page.Data, nil) {
		rows = append(rows, noteRow{Note: row.Note, Body: s.renderBody(row.Note), IndentPx: row.Depth * 20})
	}

	data := struct {
		Owner string
		Total int
		Rows  []noteRow
	}{Owner: owner, Total: page.Pagination.Total, Rows: rows}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.Error("render index", "err", err)
	}
}

// renderBody renders the markdown body for the index page. Stored bodyHtml
// is client writable, so it is never emitted as is.
func (s *Server) renderBody(n model.Note) template.HTML {
	if n.IsEncrypted || n.BodyMarkdown == nil {
		return ""
	}
	html, err := s.renderer.Render(*n.BodyMarkdown)
	if err != nil {
		s.logger.Warn("render note body", "id", n.ID, "err", err)
		return ""
	}
	return template.HTML(html)
}

func (s *Server) listNotesHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}

	state := model.StateActive
	if value := strings.TrimSpace(r.URL.Query().Get("state")); value != "" {
		parsed, ok := model.ParseState(value)
		if !ok {
			s.writeError(w, errs.New(errs.ValidationError, "unknown state %q", value).WithDetail("state", value))
			return
		}
		state = parsed
	}

	filter, pagination, err := filterFromRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	page, err := s.notes.List(r.Context(), owner, state, filter, pagination)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) createNoteHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	var input note.CreateInput
	if !s.decode(w, r, &input) {
		return
	}

	created, err := s.notes.Create(r.Context(), owner, input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getNoteHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}

	found, err := s.notes.Get(r.Context(), r.PathValue("id"), owner, includeFromRequest(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) updateNoteHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	var input note.UpdateInput
	if !s.decode(w, r, &input) {
		return
	}

	updated, err := s.notes.Update(r.Context(), r.PathValue("id"), owner, input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) lifecycleHandler(t note.Transition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := s.owner(w, r)
		if !ok {
			return
		}

		id := r.PathValue("id")
		var (
			result model.Note
			err    error
		)
		switch t {
		case note.TransitionArchive:
			result, err = s.notes.Archive(r.Context(), id, owner)
		case note.TransitionUnarchive:
			result, err = s.notes.Unarchive(r.Context(), id, owner)
		case note.TransitionSoftDelete:
			result, err = s.notes.SoftDelete(r.Context(), id, owner)
		case note.TransitionRestore:
			result, err = s.notes.Restore(r.Context(), id, owner)
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) purgeNoteHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	if err := s.notes.HardDelete(r.Context(), r.PathValue("id"), owner); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) taskCompletionHandler(done bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, ok := s.owner(w, r)
		if !ok {
			return
		}

		var (
			task model.Task
			err  error
		)
		if done {
			task, err = s.notes.CompleteTask(r.Context(), r.PathValue("id"), owner)
		} else {
			task, err = s.notes.UncompleteTask(r.Context(), r.PathValue("id"), owner)
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, task)
	}
}

type bulkRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) bulkHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	var input bulkRequest
	if !s.decode(w, r, &input) {
		return
	}

	var (
		moved []model.Note
		err   error
	)
	switch action := r.PathValue("action"); action {
	case "archive":
		moved, err = s.notes.ArchiveMany(r.Context(), input.IDs, owner)
	case "unarchive":
		moved, err = s.notes.UnarchiveMany(r.Context(), input.IDs, owner)
	case "delete":
		moved, err = s.notes.SoftDeleteMany(r.Context(), input.IDs, owner)
	case "restore":
		moved, err = s.notes.RestoreMany(r.Context(), input.IDs, owner)
	default:
		err = errs.New(errs.NotFound, "unknown bulk action %q", action)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": moved})
}

func (s *Server) listTagsHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	tags, err := s.tags.List(r.Context(), owner)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) createTagHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	var input tag.CreateInput
	if !s.decode(w, r, &input) {
		return
	}

	created, err := s.tags.Create(r.Context(), owner, input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) suggestTagsHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}

	limit := 0
	if value := strings.TrimSpace(r.URL.Query().Get("limit")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			s.writeError(w, errs.New(errs.ValidationError, "limit must be a number").WithDetail("limit", value))
			return
		}
		limit = parsed
	}

	tags, err := s.tags.Suggest(r.Context(), owner, r.URL.Query().Get("q"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) deleteTagHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	if err := s.tags.Delete(r.Context(), r.PathValue("id"), owner); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listProjectsHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	projects, err := s.projects.List(r.Context(), owner)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) createProjectHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	var input project.CreateInput
	if !s.decode(w, r, &input) {
		return
	}

	created, err := s.projects.Create(r.Context(), owner, input)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getProjectHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	found, err := s.projects.Get(r.Context(), r.PathValue("id"), owner)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) deleteProjectHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(w, r)
	if !ok {
		return
	}
	if err := s.projects.Delete(r.Context(), r.PathValue("id"), owner); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
	if owner == "" {
		owner = s.defaultOwner
	}
	if owner == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: errorPayload{Kind: "unauthenticated", Message: OwnerHeader + " header is required"}})
		return "", false
	}
	return owner, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: errorPayload{Kind: "bad_request", Message: "invalid JSON body: " + err.Error()}})
		return false
	}
	return true
}

func filterFromRequest(r *http.Request) (model.Filter, model.Pagination, error) {
	query := r.URL.Query()
	filter := model.Filter{
		Search: strings.TrimSpace(query.Get("q")),
		SortBy: strings.TrimSpace(query.Get("sortBy")),
		Order:  model.SortOrder(strings.ToLower(strings.TrimSpace(query.Get("order")))),
	}
	if value := strings.TrimSpace(query.Get("projectId")); value != "" {
		filter.ProjectID = &value
	}
	if value := strings.TrimSpace(query.Get("tagId")); value != "" {
		filter.TagID = &value
	}
	if value := strings.TrimSpace(query.Get("parentId")); value != "" {
		filter.ParentID = model.Set(value)
	} else if query.Get("root") == "true" {
		filter.ParentID = model.Clear[string]()
	}

	var pagination model.Pagination
	for name, target := range map[string]*int{"page": &pagination.Page, "limit": &pagination.Limit} {
		value := strings.TrimSpace(query.Get(name))
		if value == "" {
			continue
		}
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return model.Filter{}, model.Pagination{}, errs.New(errs.ValidationError, "%s must be a number", name).WithDetail(name, value)
		}
		*target = parsed
	}
	return filter, pagination, nil
}

func includeFromRequest(r *http.Request) model.Include {
	value := strings.TrimSpace(r.URL.Query().Get("include"))
	if value == "" {
		return model.IncludeAll
	}
	var include model.Include
	for _, part := range strings.Split(value, ",") {
		switch strings.TrimSpace(part) {
		case "task":
			include.Task = true
		case "event":
			include.Event = true
		case "tags":
			include.Tags = true
		}
	}
	return include
}

type errorPayload struct {
	Kind    string         `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type errorBody struct {
	Error errorPayload `json:"error"`
}

// StatusFor maps a domain error kind to an HTTP status.
func StatusFor(kind errs.Kind) int {
	switch kind {
	case errs.NotFound, errs.PermissionDenied:
		return http.StatusNotFound
	case errs.Conflict, errs.AlreadyExists:
		return http.StatusConflict
	case errs.ValidationError:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var domainErr *errs.Error
	if !errors.As(err, &domainErr) {
		s.logger.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: errorPayload{Kind: "internal", Message: "internal server error"}})
		return
	}

	kind := domainErr.Kind
	if kind == errs.PermissionDenied {
		kind = errs.NotFound
	}
	writeJSON(w, StatusFor(kind), errorBody{Error: errorPayload{Kind: string(kind), Message: domainErr.Message, Details: domainErr.Details}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
