package tui

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/Joseda-hg/lazynote/internal/model"
)

type tagCountEntry struct {
	ID    string
	Name  string
	Count int
	Owned bool
}

func formatTags(tags []model.Tag) string {
	if len(tags) == 0 {
		return "no tags"
	}
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		parts = append(parts, tag.Name)
	}
	return strings.Join(parts, ",")
}

func noteTitle(n model.Note) string {
	if n.Title != nil && strings.TrimSpace(*n.Title) != "" {
		return *n.Title
	}
	return "(untitled)"
}

func formatNoteSummary(n model.Note) string {
	parts := []string{noteTitle(n)}
	if n.Task != nil {
		check := "[ ]"
		if n.Task.CompletedAt != nil {
			check = "[x]"
		}
		if n.Task.Priority != nil {
			check = fmt.Sprintf("%s p%d", check, *n.Task.Priority)
		}
		parts = append(parts, check)
	}
	if n.Event != nil {
		parts = append(parts, n.Event.StartAt.Format("Jan 2 15:04"))
	}
	parts = append(parts, formatTags(n.Tags))
	return strings.Join(parts, " | ")
}

func formatNoteDetail(n model.Note) string {
	lines := []string{
		noteTitle(n),
		fmt.Sprintf("State: %s", n.State()),
		fmt.Sprintf("Updated: %s", n.UpdatedAt.Format("2006-01-02 15:04")),
		fmt.Sprintf("Tags: %s", formatTags(n.Tags)),
	}
	if n.Task != nil {
		status := "open"
		if n.Task.CompletedAt != nil {
			status = "completed " + n.Task.CompletedAt.Format("2006-01-02")
		}
		due := "n/a"
		if n.Task.DueAt != nil {
			due = n.Task.DueAt.Format("2006-01-02")
		}
		lines = append(lines, fmt.Sprintf("Task: %s | due %s", status, due))
	}
	if n.Event != nil {
		when := fmt.Sprintf("%s - %s", n.Event.StartAt.Format("2006-01-02 15:04"), n.Event.EndAt.Format("2006-01-02 15:04"))
		if n.Event.IsAllDay {
			when = n.Event.StartAt.Format("2006-01-02") + " (all day)"
		}
		if n.Event.Location != nil {
			when += " @ " + *n.Event.Location
		}
		lines = append(lines, "Event: "+when)
	}

	lines = append(lines, "")
	switch {
	case n.IsEncrypted:
		lines = append(lines, "(encrypted)")
	case n.BodyMarkdown != nil:
		lines = append(lines, *n.BodyMarkdown)
	}
	return strings.Join(lines, "\n")
}

// tagColor derives a stable color for tags created from the terminal.
func tagColor(name string) string {
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(strings.ToLower(name)))
	return fmt.Sprintf("#%06x", hash.Sum32()&0xffffff)
}
