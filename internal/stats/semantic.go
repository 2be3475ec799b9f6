package stats

import (
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// EmbeddingDims is the number of hashed feature slots per embedding.
const EmbeddingDims = 512

// HashScheme names the token hash behind the embeddings. Changing it changes
// every score, so it is versioned.
const HashScheme = "fnv1a-32/v1"

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// Tokenize lower-cases text and splits it into ASCII alphanumeric runs.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// Document is one retrievable text blob.
type Document struct {
	Source   string            `json:"source"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SemanticHit is a scored Document.
type SemanticHit struct {
	Source   string            `json:"source"`
	Text     string            `json:"text"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Embedder builds L2-normalized hashed bag-of-words vectors.
type Embedder struct {
	dims int
}

// NewEmbedder returns an Embedder with dims slots (EmbeddingDims when dims <= 0).
func NewEmbedder(dims int) *Embedder {
	if dims <= 0 {
		dims = EmbeddingDims
	}
	return &Embedder{dims: dims}
}

// Embed maps text to a unit vector. Text without tokens maps to the zero vector.
func (e *Embedder) Embed(text string) []float64 {
	vec := make([]float64, e.dims)
	for _, tok := range Tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%uint32(e.dims)]++
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// Cosine is the dot product of two normalized vectors.
func Cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// Search scores docs against query and returns the top max(1, limit) hits,
// highest score first. Documents with blank text are skipped. Equal scores
// keep corpus order.
func (e *Embedder) Search(query string, docs []Document, limit int) []SemanticHit {
	q := e.Embed(query)
	hits := make([]SemanticHit, 0, len(docs))
	for _, doc := range docs {
		text := strings.TrimSpace(doc.Text)
		if text == "" {
			continue
		}
		hits = append(hits, SemanticHit{
			Source:   doc.Source,
			Text:     text,
			Score:    Cosine(q, e.Embed(text)),
			Metadata: doc.Metadata,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if limit < 1 {
		limit = 1
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

func memoryDocument(m domain.MemoryEntry) Document {
	return Document{
		Source:   "memory",
		Text:     m.Text,
		Metadata: map[string]string{"id": m.ID, "tags": strings.Join(m.Tags, ",")},
	}
}

func knowledgeDocument(k domain.KnowledgeDoc) Document {
	return Document{
		Source:   "knowledge",
		Text:     fmt.Sprintf("%s. %s", k.Title, k.Text),
		Metadata: map[string]string{"id": k.ID, "tags": strings.Join(k.Tags, ",")},
	}
}

func transactionDocument(tx domain.Transaction) Document {
	return Document{
		Source: "transaction",
		Text: fmt.Sprintf("%s. Category: %s. Amount: %s. Type: %s",
			tx.Description, tx.CategoryOrOther(), strconv.FormatFloat(tx.Amount, 'f', -1, 64), tx.Type),
		Metadata: map[string]string{"id": tx.ID, "date": tx.OccurredAt.Format(dateLayout)},
	}
}
