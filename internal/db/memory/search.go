package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/kailas-cloud/catalog/internal/db"
	"github.com/kailas-cloud/catalog/internal/domain/search/filter"
)

type hit struct {
	key   string
	doc   document
	score float64
}

// Search evaluates the query over every document under the index prefixes.
func (s *Store) Search(_ context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.Text != nil && !s.textSearch {
		return nil, db.ErrTextSearchNotSupported
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, &db.Error{Op: db.OpSearch, Err: errClosed}
	}
	idx, ok := s.indexes[q.IndexName]
	if !ok {
		return nil, db.ErrIndexNotFound
	}
	if err := checkFields(idx, q); err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	var hits []hit
	for key, d := range s.docs {
		if !hasPrefix(idx, key) || !matchExpr(idx, d, q.Filters) {
			continue
		}
		h := hit{key: key, doc: d}
		if q.Text != nil {
			score, ok := textScore(idx, d, q.Text)
			if !ok {
				continue
			}
			h.score = score
		}
		hits = append(hits, h)
	}

	slices.SortFunc(hits, func(a, b hit) int {
		if q.Text != nil {
			if c := cmp.Compare(b.score, a.score); c != 0 {
				return c
			}
		}
		if q.SortBy != "" {
			if c := compareField(idx, q.SortBy, a.doc, b.doc); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.key, b.key)
	})

	res := &db.SearchResult{Total: len(hits)}
	if q.Offset >= len(hits) {
		return res, nil
	}
	end := min(q.Offset+q.Limit, len(hits))
	res.Entries = make([]db.SearchEntry, 0, end-q.Offset)
	for _, h := range hits[q.Offset:end] {
		res.Entries = append(res.Entries, db.SearchEntry{
			Key:      h.key,
			Score:    h.score,
			Document: append([]byte(nil), h.doc.raw...),
		})
	}
	return res, nil
}

// TagValues returns the distinct values of a TAG field, sorted.
// Values of case-insensitive tags are lowercased.
func (s *Store) TagValues(_ context.Context, index, field string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.indexes[index]
	if !ok {
		return nil, db.ErrIndexNotFound
	}
	f, ok := idx.Field(field)
	if !ok || f.Type != db.IndexFieldTag {
		return nil, &db.Error{Op: db.OpTagVals, Err: fmt.Errorf("not a tag field: %q", field)}
	}

	seen := make(map[string]struct{})
	for key, d := range s.docs {
		if !hasPrefix(idx, key) {
			continue
		}
		for _, v := range textValues(f, d) {
			if v == "" {
				continue
			}
			if !f.TagCaseSensitive {
				v = strings.ToLower(v)
			}
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	slices.Sort(out)
	return out, nil
}

func checkFields(idx *db.IndexDefinition, q *db.SearchQuery) error {
	for _, group := range [][]filter.Condition{q.Filters.Must(), q.Filters.Should()} {
		for _, c := range group {
			f, ok := idx.Field(c.Key())
			if !ok {
				return fmt.Errorf("unknown field %q", c.Key())
			}
			if c.Kind() == filter.KindRange && f.Type != db.IndexFieldNumeric {
				return fmt.Errorf("field %q is not numeric", c.Key())
			}
			if c.Kind() == filter.KindIn && f.Type != db.IndexFieldTag {
				return fmt.Errorf("field %q is not a tag", c.Key())
			}
		}
	}
	if q.SortBy != "" {
		if _, ok := idx.Field(q.SortBy); !ok {
			return fmt.Errorf("unknown sort field %q", q.SortBy)
		}
	}
	return nil
}

func hasPrefix(idx *db.IndexDefinition, key string) bool {
	if len(idx.Prefixes) == 0 {
		return true
	}
	for _, p := range idx.Prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

func matchExpr(idx *db.IndexDefinition, d document, e filter.Expression) bool {
	for _, c := range e.Must() {
		if !matchCond(idx, d, c) {
			return false
		}
	}
	if len(e.Should()) == 0 {
		return true
	}
	for _, c := range e.Should() {
		if matchCond(idx, d, c) {
			return true
		}
	}
	return false
}

func matchCond(idx *db.IndexDefinition, d document, c filter.Condition) bool {
	f, _ := idx.Field(c.Key())
	switch c.Kind() {
	case filter.KindRange:
		n, ok := numberValue(f, d)
		return ok && c.Matches("", n)
	case filter.KindIn:
		for _, v := range textValues(f, d) {
			if f.TagCaseSensitive && c.Matches(v, 0) {
				return true
			}
			if !f.TagCaseSensitive && slices.ContainsFunc(c.Values(), func(want string) bool {
				return strings.EqualFold(want, v)
			}) {
				return true
			}
		}
	case filter.KindContains:
		for _, v := range textValues(f, d) {
			if c.Matches(v, 0) {
				return true
			}
		}
	}
	return false
}

// textScore returns the weighted score of a document. Every term must occur
// in at least one TEXT field; each occurrence adds the field weight.
func textScore(idx *db.IndexDefinition, d document, m *db.TextMatch) (float64, bool) {
	tokens := make(map[string][]string)
	for _, f := range idx.Fields {
		if f.Type != db.IndexFieldText {
			continue
		}
		for _, v := range textValues(f, d) {
			tokens[f.Ref()] = append(tokens[f.Ref()], tokenize(v)...)
		}
	}

	var score float64
	for _, term := range m.Terms {
		term = strings.ToLower(term)
		found := false
		for _, f := range idx.Fields {
			if f.Type != db.IndexFieldText || !slices.Contains(tokens[f.Ref()], term) {
				continue
			}
			found = true
			score += fieldWeight(f, m)
		}
		if !found {
			return 0, false
		}
	}
	return score, true
}

func fieldWeight(f db.IndexField, m *db.TextMatch) float64 {
	if w, ok := m.Weights[f.Ref()]; ok && w > 0 {
		return w
	}
	if f.TextWeight > 0 {
		return f.TextWeight
	}
	return 1
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '\''
	})
}

func compareField(idx *db.IndexDefinition, ref string, a, b document) int {
	f, _ := idx.Field(ref)
	if f.Type == db.IndexFieldNumeric {
		na, _ := numberValue(f, a)
		nb, _ := numberValue(f, b)
		return cmp.Compare(na, nb)
	}
	return cmp.Compare(firstOf(textValues(f, a)), firstOf(textValues(f, b)))
}

func firstOf(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// textValues returns the string values of a field; arrays yield one value per element.
func textValues(f db.IndexField, d document) []string {
	attr, err := jsonAttr(f.Name)
	if err != nil {
		return nil
	}
	switch v := d.fields[attr].(type) {
	case string:
		return []string{v}
	case float64:
		return []string{strconv.FormatFloat(v, 'f', -1, 64)}
	case bool:
		return []string{strconv.FormatBool(v)}
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func numberValue(f db.IndexField, d document) (float64, bool) {
	attr, err := jsonAttr(f.Name)
	if err != nil {
		return 0, false
	}
	n, ok := d.fields[attr].(float64)
	return n, ok
}
