// Package search provides a small, deterministic, concurrency-safe in-memory
// index over announcement text.
//
//   - No logging in the library (callers decide how/what to log)
//   - Functional options (Option pattern)
//   - Unicode-aware tokenization with full case folding (golang.org/x/text)
//   - Mutable: documents are added or replaced as announcements are created
//   - Deterministic scoring and sorting (stable order for ties)
//
// Scoring uses Jaccard similarity between the query token set and each
// document's token set: score = |Q ∩ D| / |Q ∪ D|.
package search

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

// Result is a ranked document id with its similarity score.
type Result struct {
	ID    string
	Score float64
}

// Index is the interface the service layer depends on.
type Index interface {
	Put(id string, fields ...string)
	Delete(id string)
	TopK(query string, k int) []Result
	Len() int
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	stopwords map[string]struct{}
	defaultK  int
}

func defaultConfig() config {
	return config{
		stopwords: nil,
		defaultK:  20,
	}
}

// WithStopwords drops the given words from both documents and queries.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = fold(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

// WithDefaultK sets the result cap used when TopK is called with k <= 0.
func WithDefaultK(k int) Option {
	return func(c *config) {
		if k > 0 {
			c.defaultK = k
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	tokens map[string]struct{}
}

// MemoryIndex is the default Index. The zero value is not usable; call New.
type MemoryIndex struct {
	cfg config

	mu   sync.RWMutex
	docs map[string]doc
}

// New returns an empty MemoryIndex.
func New(opts ...Option) *MemoryIndex {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &MemoryIndex{cfg: cfg, docs: make(map[string]doc)}
}

// Put indexes the concatenation of fields under id, replacing any previous
// document with that id. Documents without tokens are removed.
func (i *MemoryIndex) Put(id string, fields ...string) {
	toks := tokenize(strings.Join(fields, " "), i.cfg.stopwords)

	i.mu.Lock()
	defer i.mu.Unlock()
	if len(toks) == 0 {
		delete(i.docs, id)
		return
	}
	i.docs[id] = doc{tokens: toks}
}

// Delete removes id from the index.
func (i *MemoryIndex) Delete(id string) {
	i.mu.Lock()
	delete(i.docs, id)
	i.mu.Unlock()
}

// Len returns the number of indexed documents.
func (i *MemoryIndex) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.docs)
}

// TopK returns up to k best-matching document ids by Jaccard similarity.
// Ties are broken by id so the order is deterministic.
func (i *MemoryIndex) TopK(q string, k int) []Result {
	if strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = i.cfg.defaultK
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}
	qLen := len(qTokens)

	i.mu.RLock()
	buf := make([]Result, 0, min(k*4, len(i.docs)))
	for id, d := range i.docs {
		over := overlap(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		union := float64(qLen + len(d.tokens) - over)
		if union <= 0 {
			continue
		}
		buf = append(buf, Result{ID: id, Score: float64(over) / union})
	}
	i.mu.RUnlock()

	if len(buf) == 0 {
		return nil
	}
	sort.Slice(buf, func(a, b int) bool {
		if buf[a].Score != buf[b].Score {
			return buf[a].Score > buf[b].Score
		}
		return buf[a].ID < buf[b].ID
	})
	if k < len(buf) {
		buf = buf[:k]
	}
	return buf
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

// fold applies Unicode full case folding, so "STRASSE" and "straße" meet.
func fold(s string) string {
	return cases.Fold().String(s)
}

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(fold(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := 0
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
