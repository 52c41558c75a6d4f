package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Joseda-hg/lazynote/internal/model"
	"github.com/Joseda-hg/lazynote/internal/note"
)

type formField struct {
	Label string
	Value string
}

const (
	fieldTitle = iota
	fieldBody
	fieldTags
	fieldDue
	fieldPriority
)

func buildFormFields(n *model.Note) []formField {
	fields := []formField{
		{Label: "Title"},
		{Label: "Body"},
		{Label: "Tags (→ pick)"},
		{Label: "Due (YYYY-MM-DD)"},
		{Label: "Priority (0-5)"},
	}

	if n == nil {
		return fields
	}

	if n.Title != nil {
		fields[fieldTitle].Value = *n.Title
	}
	if n.BodyMarkdown != nil {
		fields[fieldBody].Value = *n.BodyMarkdown
	}
	fields[fieldTags].Value = joinTags(n.Tags)
	if n.Task != nil {
		if n.Task.DueAt != nil {
			fields[fieldDue].Value = n.Task.DueAt.Format("2006-01-02")
		}
		if n.Task.Priority != nil {
			fields[fieldPriority].Value = strconv.FormatInt(*n.Task.Priority, 10)
		}
	}
	return fields
}

// formValues is the parsed content of the note form.
type formValues struct {
	Title    *string
	Body     *string
	TagNames []string
	DueAt    *time.Time
	Priority *int64
}

func (v formValues) hasTask() bool {
	return v.DueAt != nil || v.Priority != nil
}

func parseFormFields(fields []formField) (formValues, error) {
	priority, err := parsePriority(fields[fieldPriority].Value)
	if err != nil {
		return formValues{}, err
	}

	dueAt, err := parseDue(fields[fieldDue].Value)
	if err != nil {
		return formValues{}, err
	}

	return formValues{
		Title:    optionalText(fields[fieldTitle].Value),
		Body:     optionalText(fields[fieldBody].Value),
		TagNames: parseTags(fields[fieldTags].Value),
		DueAt:    dueAt,
		Priority: priority,
	}, nil
}

// createInput turns form values into a note create request. tagIDs has
// already been resolved from TagNames.
func (v formValues) createInput(tagIDs []string) note.CreateInput {
	input := note.CreateInput{Title: v.Title, BodyMarkdown: v.Body}
	if len(tagIDs) > 0 {
		input.TagIDs = tagIDs
	}
	if v.hasTask() {
		input.Task = &note.TaskInput{
			DueAt:    model.FromPtr(v.DueAt),
			Priority: model.FromPtr(v.Priority),
		}
	}
	return input
}

// updateInput replaces title, body and tags. An existing task has its due
// date and priority overwritten; a missing one is created only when the form
// carries task fields.
func (v formValues) updateInput(current model.Note, tagIDs []string) note.UpdateInput {
	input := note.UpdateInput{
		Title:        model.FromPtr(v.Title),
		BodyMarkdown: model.FromPtr(v.Body),
		TagIDs:       model.Set(tagIDs),
	}
	if current.Task != nil || v.hasTask() {
		input.Task = model.Set(note.TaskInput{
			DueAt:    model.FromPtr(v.DueAt),
			Priority: model.FromPtr(v.Priority),
		})
	}
	return input
}

func optionalText(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func parsePriority(value string) (*int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || parsed < 0 || parsed > note.MaxPriority {
		return nil, fmt.Errorf("invalid priority")
	}
	return &parsed, nil
}

func parseDue(value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid due date")
	}
	return &parsed, nil
}

func parseTags(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}

func joinTags(tags []model.Tag) string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	return strings.Join(names, ",")
}

// completeTagField replaces the fragment after the last comma with pick.
func completeTagField(value, pick string) string {
	index := strings.LastIndex(value, ",")
	if index < 0 {
		return pick
	}
	return value[:index+1] + pick
}

func lastTagFragment(value string) string {
	index := strings.LastIndex(value, ",")
	return strings.TrimSpace(value[index+1:])
}
