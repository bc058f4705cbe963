package notification

import (
	"sort"
	"strings"

	"github.com/aliskhannn/notification-dispatcher/internal/config"
)

// Renderer resolves the title and content of an event type and substitutes
// {{key}} placeholders with request metadata.
type Renderer struct {
	templates map[string]config.Template
}

// NewRenderer creates a Renderer over the configured templates. Event types
// are matched case-insensitively.
func NewRenderer(templates map[string]config.Template) *Renderer {
	normalized := make(map[string]config.Template, len(templates))
	for k, t := range templates {
		normalized[strings.ToLower(k)] = t
	}
	return &Renderer{templates: normalized}
}

// Render returns the rendered title and content. An explicit title or content
// overrides the template of the event type.
func (r *Renderer) Render(eventType, title, content string, meta map[string]string) (string, string, error) {
	tmpl, ok := r.templates[strings.ToLower(eventType)]
	if title == "" {
		title = tmpl.Title
	}
	if content == "" {
		content = tmpl.Content
	}

	if !ok && (title == "" || content == "") {
		return "", "", ErrTemplateNotFound
	}

	replacer := placeholders(meta)
	return replacer.Replace(title), replacer.Replace(content), nil
}

func placeholders(meta map[string]string) *strings.Replacer {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{{"+k+"}}", meta[k])
	}
	return strings.NewReplacer(pairs...)
}
