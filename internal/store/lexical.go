package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/Harshitk-cp/orgbrain/internal/domain"
)

// LexicalRetriever ranks snippets by token overlap with the query. It serves
// as the retriever when no database is configured.
type LexicalRetriever struct {
	mu   sync.RWMutex
	docs map[string]string
}

func NewLexicalRetriever() *LexicalRetriever {
	return &LexicalRetriever{docs: make(map[string]string)}
}

func (r *LexicalRetriever) Add(ctx context.Context, id, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[id] = content
	return nil
}

func (r *LexicalRetriever) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs), nil
}

func (r *LexicalRetriever) Search(ctx context.Context, query string, k int) ([]domain.Snippet, error) {
	out := []domain.Snippet{}
	if k <= 0 {
		return out, nil
	}
	terms := tokenSet(query)

	r.mu.RLock()
	for id, content := range r.docs {
		doc := tokenSet(content)
		var hits int
		for t := range terms {
			if doc[t] {
				hits++
			}
		}
		score := 0.0
		if len(terms) > 0 {
			score = float64(hits) / float64(len(terms))
		}
		out = append(out, domain.Snippet{ID: id, Content: content, Score: score})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(tok) > 2 {
			set[tok] = true
		}
	}
	return set
}

// DefaultKnowledge seeds an empty retriever.
var DefaultKnowledge = []domain.Snippet{
	{ID: "org_policy", Content: "Company policy: decisions affecting hiring, compensation or performance reviews must be shared with HR. The CEO has visibility into every decision."},
	{ID: "product", Content: "Product overview: the assistant aggregates employee updates, tracks organizational decisions and keeps a versioned record of what the company currently believes."},
	{ID: "engineering", Content: "Engineering practices: reliability and infrastructure incidents are escalated to the engineering team; technical decisions record their rationale and evidence."},
}

// Seedable is a Retriever that can report its size.
type Seedable interface {
	domain.Retriever
	Count(ctx context.Context) (int, error)
}

// SeedKnowledge adds the default snippets when the retriever is empty.
func SeedKnowledge(ctx context.Context, r Seedable) error {
	n, err := r.Count(ctx)
	if err != nil || n > 0 {
		return err
	}
	for _, sn := range DefaultKnowledge {
		if err := r.Add(ctx, sn.ID, sn.Content); err != nil {
			return err
		}
	}
	return nil
}
