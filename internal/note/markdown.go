package note

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Renderer turns a markdown body into HTML.
type Renderer interface {
	Render(markdown string) (string, error)
}

type goldmarkRenderer struct {
	md goldmark.Markdown
}

// NewMarkdownRenderer renders GitHub flavoured markdown. Raw HTML in the
// source is omitted from the output.
func NewMarkdownRenderer() Renderer {
	return goldmarkRenderer{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

func (r goldmarkRenderer) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}
