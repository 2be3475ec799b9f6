// Package knowledge loads shared knowledge-base documents from builtin, file,
// GCS and Notion sources and imports them into the assistant's store.
package knowledge

import (
	"context"
	"strings"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

const (
	// MaxTitleLen caps document titles, in characters.
	MaxTitleLen = 140
	// MaxTags caps the number of tags kept per document.
	MaxTags = 20
)

// Source yields knowledge documents from one origin.
type Source interface {
	// Name identifies the source in logs and on stored documents.
	Name() string
	Load(ctx context.Context) ([]domain.KnowledgeDoc, error)
}

// Normalize trims title and text, caps the title and tag count and drops
// blank tags.
func Normalize(doc domain.KnowledgeDoc) domain.KnowledgeDoc {
	doc.Title = strings.TrimSpace(doc.Title)
	if r := []rune(doc.Title); len(r) > MaxTitleLen {
		doc.Title = string(r[:MaxTitleLen])
	}
	doc.Text = strings.TrimSpace(doc.Text)
	doc.Tags = NormalizeTags(doc.Tags)
	return doc
}

// NormalizeTags drops blank tags and keeps at most MaxTags.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, t)
		if len(out) == MaxTags {
			break
		}
	}
	return out
}
