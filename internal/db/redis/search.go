package redis

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/catalog/internal/db"
	"github.com/kailas-cloud/catalog/internal/domain/search/filter"
)

// jsonRoot is the field name FT.SEARCH uses for the whole JSON document.
const jsonRoot = "$"

// maxSearchResults is the engine's default MAXSEARCHRESULTS. A window past it
// is rejected by the server, and it cannot hold a match anyway.
const maxSearchResults = 1_000_000

// maxContainsCandidates bounds the documents fetched for a substring match.
// The engine narrows candidates by word; the exact substring is checked here.
const maxContainsCandidates = 10_000

// Search runs a single FT.SEARCH: the reply carries the total match count and
// the requested window, so both come from the same evaluation.
//
// Substring conditions cannot be expressed exactly in the query language. The
// engine is asked for every candidate instead, and the count and window are
// taken from the candidates that really contain the substring.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	contains := containsConditions(q.Filters)
	if len(contains) > 0 {
		res, err := s.ftSearch(ctx, q, 0, maxContainsCandidates)
		if err != nil {
			return nil, err
		}
		return verifyContains(res, contains, q.Offset, q.Limit), nil
	}

	offset, limit := q.Offset, q.Limit
	if offset >= maxSearchResults || limit > maxSearchResults-offset {
		// count only
		offset, limit = 0, 0
	}
	return s.ftSearch(ctx, q, offset, limit)
}

func (s *Store) ftSearch(ctx context.Context, q *db.SearchQuery, offset, limit int) (*db.SearchResult, error) {
	args := []string{q.IndexName, buildQuery(q)}
	if q.Text != nil {
		args = append(args, "VERBATIM", "WITHSCORES")
	} else if q.SortBy != "" {
		args = append(args, "SORTBY", q.SortBy, "ASC")
	}
	args = append(args,
		"RETURN", "1", jsonRoot,
		"LIMIT", strconv.Itoa(offset), strconv.Itoa(limit),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index name") {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	if q.Text == nil {
		return parseListResult(raw)
	}
	res, err := parseScoredResult(raw)
	if err != nil {
		return nil, err
	}
	// the engine orders by score; equal scores are ordered by key
	slices.SortStableFunc(res.Entries, func(a, b db.SearchEntry) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return res, nil
}

// containsConditions returns the substring conditions every match must meet.
// Substring conditions inside a should group are left to the engine.
func containsConditions(expr filter.Expression) []filter.Condition {
	var out []filter.Condition
	for _, c := range expr.Must() {
		if c.Kind() == filter.KindContains {
			out = append(out, c)
		}
	}
	return out
}

// verifyContains keeps the candidates whose top-level string attribute named
// by each condition key contains the substring, then cuts the window.
func verifyContains(res *db.SearchResult, conds []filter.Condition, offset, limit int) *db.SearchResult {
	kept := res.Entries[:0]
	for _, e := range res.Entries {
		if documentContains(e.Document, conds) {
			kept = append(kept, e)
		}
	}

	out := &db.SearchResult{Total: len(kept)}
	if offset >= len(kept) {
		return out
	}
	end := offset + min(limit, len(kept)-offset)
	out.Entries = kept[offset:end]
	return out
}

func documentContains(doc []byte, conds []filter.Condition) bool {
	var attrs map[string]any
	if err := json.Unmarshal(doc, &attrs); err != nil {
		return false
	}
	for _, c := range conds {
		v, _ := attrs[c.Key()].(string)
		if !c.Matches(v, 0) {
			return false
		}
	}
	return true
}

// TagValues lists distinct values of a TAG field via FT.TAGVALS.
func (s *Store) TagValues(ctx context.Context, index, field string) ([]string, error) {
	cmd := s.b().Arbitrary("FT.TAGVALS").Args(index, field).Build()
	values, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpTagVals, Err: err}
	}
	return values, nil
}

// --- Result parsing ---

func parseScoredResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/3)
	// 3-stride: [total, key1, score1, fields1, key2, score2, fields2, ...]
	for i := 1; i+2 < len(raw); i += 3 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			continue
		}

		fields, err := raw[i+2].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:      key,
			Score:    score,
			Document: []byte(parseFieldPairs(fields)[jsonRoot]),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseListResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/2)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:      key,
			Document: []byte(parseFieldPairs(fields)[jsonRoot]),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Query building ---

func buildQuery(q *db.SearchQuery) string {
	parts := make([]string, 0, 2)
	if f := buildFilter(q.Filters); f != "" {
		parts = append(parts, f)
	}
	if q.Text != nil {
		terms := make([]string, 0, len(q.Text.Terms))
		for _, t := range q.Text.Terms {
			terms = append(terms, escapeQuery(t))
		}
		parts = append(parts, "("+strings.Join(terms, " ")+")")
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

// buildFilter translates filter.Expression into an FT.SEARCH pre-filter query string.
func buildFilter(expr filter.Expression) string {
	if expr.IsEmpty() {
		return ""
	}

	var parts []string

	for _, cond := range expr.Must() {
		if p := buildCondition(cond); p != "" {
			parts = append(parts, p)
		}
	}

	if shouldParts := buildShouldGroup(expr.Should()); shouldParts != "" {
		parts = append(parts, shouldParts)
	}

	return strings.Join(parts, " ")
}

func buildCondition(cond filter.Condition) string {
	switch cond.Kind() {
	case filter.KindIn:
		return buildTagFilter(cond.Key(), cond.Values())
	case filter.KindRange:
		return buildNumericFilter(cond.Key(), *cond.Range())
	case filter.KindContains:
		return buildContainsFilter(cond.Key(), cond.Substring())
	}
	return ""
}

func buildShouldGroup(conditions []filter.Condition) string {
	if len(conditions) == 0 {
		return ""
	}
	parts := make([]string, 0, len(conditions))
	for _, cond := range conditions {
		p := buildCondition(cond)
		if p == "" {
			// one branch matches everything, so the group does too
			return ""
		}
		parts = append(parts, p)
	}
	return "(" + strings.Join(parts, " | ") + ")"
}

func buildTagFilter(key string, values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = tagEscaper.Replace(v)
	}
	return fmt.Sprintf("@%s:{%s}", key, strings.Join(escaped, " | "))
}

func buildNumericFilter(key string, r filter.Range) string {
	minBound := "-inf"
	maxBound := "+inf"

	if r.GT() != nil {
		minBound = fmt.Sprintf("(%g", *r.GT())
	} else if r.GTE() != nil {
		minBound = fmt.Sprintf("%g", *r.GTE())
	}

	if r.LT() != nil {
		maxBound = fmt.Sprintf("(%g", *r.LT())
	} else if r.LTE() != nil {
		maxBound = fmt.Sprintf("%g", *r.LTE())
	}

	return fmt.Sprintf("@%s:[%s %s]", key, minBound, maxBound)
}

// buildContainsFilter narrows a substring match to documents holding every
// word of it. Inner words must match whole; the first word may be the tail of
// an indexed word and the last one its head, unless the substring starts or
// ends on a separator. The result is a superset: Search checks the exact
// substring on each candidate. Wildcards shorter than two characters are
// dropped since the engine rejects them.
func buildContainsFilter(key, substr string) string {
	lower := strings.ToLower(substr)
	words := strings.FieldsFunc(lower, isSeparator)
	if len(words) == 0 {
		return ""
	}
	first, _ := utf8.DecodeRuneInString(lower)
	last, _ := utf8.DecodeLastRuneInString(lower)
	openStart := !isSeparator(first)
	openEnd := !isSeparator(last)

	terms := make([]string, 0, len(words))
	for i, w := range words {
		head := i == 0 && openStart
		tail := i == len(words)-1 && openEnd
		if (head || tail) && utf8.RuneCountInString(w) < 2 {
			continue
		}
		term := escapeQuery(w)
		if head {
			term = "*" + term
		}
		if tail {
			term += "*"
		}
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return ""
	}
	return fmt.Sprintf("@%s:(%s)", key, strings.Join(terms, " "))
}

// isSeparator reports whether the engine's tokenizer splits words at r.
func isSeparator(r rune) bool {
	return r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// --- Query helpers ---

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
	`.`, `\.`,
	`,`, `\,`,
)
