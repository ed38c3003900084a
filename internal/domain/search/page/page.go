// Package page computes page windows and page metadata for browse results.
package page

import (
	"context"
	"math"
)

// Pagination limits.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Request is a clamped page request.
type Request struct {
	page  int
	limit int
}

// NewRequest clamps limit to [1, maxLimit] and page to [1, math.MaxInt/limit],
// so Offset never overflows. Any page past the last one is empty anyway.
// A non-positive maxLimit falls back to MaxLimit.
func NewRequest(page, limit, maxLimit int) Request {
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if page < 1 {
		page = 1
	}
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}
	return Request{page: page, limit: limit}
}

// Default returns page 1 with the default limit.
func Default() Request { return Request{page: 1, limit: DefaultLimit} }

// Page returns the 1-based page index.
func (r Request) Page() int { return r.page }

// Limit returns the page size.
func (r Request) Limit() int { return r.limit }

// Offset returns the number of records skipped before this page.
func (r Request) Offset() int { return (r.page - 1) * r.limit }

// Meta is the page metadata returned with every page.
type Meta struct {
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// NewMeta derives metadata. Zero matches yield zero total pages.
func NewMeta(r Request, total int) Meta {
	if total < 0 {
		total = 0
	}
	return Meta{
		Page:       r.page,
		Limit:      r.limit,
		Total:      total,
		TotalPages: TotalPages(total, r.limit),
	}
}

// TotalPages returns ceil(total/limit), and 0 when there is nothing to show.
func TotalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// Result is a page of items plus metadata.
type Result[T any] struct {
	Items []T
	Meta  Meta
}

// Window is one store evaluation: the matching count and the requested slice,
// both taken from the same snapshot.
type Window[T any] struct {
	Items []T
	Total int
}

// FetchFunc evaluates a predicate once and returns the window at offset/limit.
type FetchFunc[T any] func(ctx context.Context, offset, limit int) (Window[T], error)

// Fetch runs a single fetch and assembles the page. Items past the last page
// come back as an empty, non-nil slice.
func Fetch[T any](ctx context.Context, r Request, fetch FetchFunc[T]) (Result[T], error) {
	w, err := fetch(ctx, r.Offset(), r.limit)
	if err != nil {
		return Result[T]{}, err
	}
	items := w.Items
	if items == nil {
		items = []T{}
	}
	if len(items) > r.limit {
		items = items[:r.limit]
	}
	return Result[T]{Items: items, Meta: NewMeta(r, w.Total)}, nil
}
