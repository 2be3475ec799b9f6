package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// seedDoc is the JSON shape of file and GCS seed documents.
type seedDoc struct {
	Title string   `json:"title"`
	Text  string   `json:"text"`
	Tags  []string `json:"tags"`
}

// decodeSeed parses a JSON array of seed documents.
func decodeSeed(data []byte, source string) ([]domain.KnowledgeDoc, error) {
	var raw []seedDoc
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding seed documents: %w", err)
	}
	out := make([]domain.KnowledgeDoc, 0, len(raw))
	for _, r := range raw {
		out = append(out, domain.KnowledgeDoc{Title: r.Title, Text: r.Text, Tags: r.Tags, Source: source})
	}
	return out, nil
}

// FileSource reads a local JSON array of {title, text, tags} objects.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file" }

func (s FileSource) Load(ctx context.Context) ([]domain.KnowledgeDoc, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("FileSource.Load: reading %s: %w", s.Path, err)
	}
	docs, err := decodeSeed(data, s.Name())
	if err != nil {
		return nil, fmt.Errorf("FileSource.Load: %w", err)
	}
	return docs, nil
}
