// Package keywords extracts corpus-level keywords with TF-IDF weighting.
package keywords

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/reviewlens/reviewlens/internal/config"
)

// ErrEmptyVocabulary is returned when no document yields a single term.
var ErrEmptyVocabulary = errors.New("empty vocabulary; documents may only contain stop words")

// tokens of two or more word characters
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Vectorizer turns documents into L2-normalized TF-IDF rows over a vocabulary
// of unigrams and n-grams. N-grams are built after stop word removal.
type Vectorizer struct {
	MaxFeatures int
	MinN        int
	MaxN        int
	StopWords   map[string]bool
}

// NewVectorizer creates a vectorizer with the English stop word list.
func NewVectorizer(cfg config.KeywordConfig) *Vectorizer {
	v := &Vectorizer{
		MaxFeatures: cfg.MaxFeatures,
		MinN:        cfg.MinNgram,
		MaxN:        cfg.MaxNgram,
		StopWords:   englishStopWords,
	}
	if v.MinN < 1 {
		v.MinN = 1
	}
	if v.MaxN < v.MinN {
		v.MaxN = v.MinN
	}
	return v
}

// Model is a fitted vocabulary with the weighted document rows.
type Model struct {
	Terms []string          // sorted vocabulary
	IDF   []float64         // parallel to Terms
	Rows  []map[int]float64 // per document, term index -> weight
}

// Analyze lowercases, tokenizes, drops stop words and emits the n-grams of doc.
func (v *Vectorizer) Analyze(doc string) []string {
	var words []string
	for _, w := range tokenPattern.FindAllString(strings.ToLower(doc), -1) {
		if !v.StopWords[w] {
			words = append(words, w)
		}
	}
	var out []string
	if v.MinN == 1 {
		out = append(out, words...)
	}
	for n := max(v.MinN, 2); n <= v.MaxN; n++ {
		for i := 0; i+n <= len(words); i++ {
			out = append(out, strings.Join(words[i:i+n], " "))
		}
	}
	return out
}

// FitTransform learns the vocabulary and idf from docs and returns their rows.
func (v *Vectorizer) FitTransform(docs []string) (*Model, error) {
	counts := make([]map[string]int, len(docs))
	total := map[string]int{}
	df := map[string]int{}
	for i, doc := range docs {
		c := map[string]int{}
		for _, term := range v.Analyze(doc) {
			c[term]++
			total[term]++
		}
		for term := range c {
			df[term]++
		}
		counts[i] = c
	}
	if len(total) == 0 {
		return nil, ErrEmptyVocabulary
	}

	terms := make([]string, 0, len(total))
	for t := range total {
		terms = append(terms, t)
	}
	if v.MaxFeatures > 0 && len(terms) > v.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			if total[terms[i]] != total[terms[j]] {
				return total[terms[i]] > total[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.MaxFeatures]
	}
	sort.Strings(terms)

	index := make(map[string]int, len(terms))
	m := &Model{Terms: terms, IDF: make([]float64, len(terms)), Rows: make([]map[int]float64, len(docs))}
	n := float64(len(docs))
	for i, t := range terms {
		index[t] = i
		m.IDF[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}

	for d, c := range counts {
		row := map[int]float64{}
		var norm float64
		for term, tf := range c {
			i, ok := index[term]
			if !ok {
				continue
			}
			w := float64(tf) * m.IDF[i]
			row[i] = w
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for i := range row {
				row[i] /= norm
			}
		}
		m.Rows[d] = row
	}
	return m, nil
}

// MeanWeights averages each term's weight over all documents.
func (m *Model) MeanWeights() []float64 {
	means := make([]float64, len(m.Terms))
	if len(m.Rows) == 0 {
		return means
	}
	for _, row := range m.Rows {
		for i, w := range row {
			means[i] += w
		}
	}
	for i := range means {
		means[i] /= float64(len(m.Rows))
	}
	return means
}

// TopTerms returns up to n terms by descending mean weight, ties by term.
func (m *Model) TopTerms(n int) []string {
	means := m.MeanWeights()
	idx := make([]int, len(m.Terms))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		if means[idx[a]] != means[idx[b]] {
			return means[idx[a]] > means[idx[b]]
		}
		return m.Terms[idx[a]] < m.Terms[idx[b]]
	})
	if n > len(idx) {
		n = len(idx)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = m.Terms[idx[i]]
	}
	return out
}

// Extract fits docs and returns the top n terms.
func Extract(cfg config.KeywordConfig, docs []string) ([]string, error) {
	m, err := NewVectorizer(cfg).FitTransform(docs)
	if err != nil {
		return nil, err
	}
	return m.TopTerms(cfg.TopN), nil
}
