package criteria

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/catalog/internal/domain/search/filter"
)

// BucketKind tells a bounded price bucket from an open-ended one.
type BucketKind int

// Bucket kinds.
const (
	// Closed is min <= price <= max.
	Closed BucketKind = iota + 1
	// OpenAbove is price >= min, unbounded above.
	OpenAbove
)

// PriceBucket is a single price sub-range.
type PriceBucket struct {
	kind BucketKind
	min  float64
	max  float64
}

// NewClosedBucket creates an inclusive [min, max] bucket.
func NewClosedBucket(lo, hi float64) (PriceBucket, error) {
	if !finite(lo) || !finite(hi) {
		return PriceBucket{}, fmt.Errorf("bucket bounds must be finite")
	}
	if lo < 0 {
		return PriceBucket{}, fmt.Errorf("bucket min must be non-negative")
	}
	if lo > hi {
		return PriceBucket{}, fmt.Errorf("bucket min %v exceeds max %v", lo, hi)
	}
	return PriceBucket{kind: Closed, min: lo, max: hi}, nil
}

// NewOpenBucket creates a price >= min bucket.
func NewOpenBucket(lo float64) (PriceBucket, error) {
	if !finite(lo) || lo < 0 {
		return PriceBucket{}, fmt.Errorf("bucket min must be a non-negative number")
	}
	return PriceBucket{kind: OpenAbove, min: lo}, nil
}

// ParseBucket parses "min-max" or "N+" (for example "1000+").
func ParseBucket(token string) (PriceBucket, error) {
	token = strings.TrimSpace(token)
	if lo, ok := strings.CutSuffix(token, "+"); ok {
		n, err := parseNumber(lo)
		if err != nil {
			return PriceBucket{}, fmt.Errorf("bucket %q: %w", token, err)
		}
		return NewOpenBucket(n)
	}

	parts := strings.Split(token, "-")
	if len(parts) != 2 {
		return PriceBucket{}, fmt.Errorf("bucket %q: expected min-max", token)
	}
	lo, err := parseNumber(parts[0])
	if err != nil {
		return PriceBucket{}, fmt.Errorf("bucket %q: %w", token, err)
	}
	hi, err := parseNumber(parts[1])
	if err != nil {
		return PriceBucket{}, fmt.Errorf("bucket %q: %w", token, err)
	}
	return NewClosedBucket(lo, hi)
}

// Kind returns the bucket variant.
func (b PriceBucket) Kind() BucketKind { return b.kind }

// Min returns the inclusive lower bound.
func (b PriceBucket) Min() float64 { return b.min }

// Max returns the inclusive upper bound; meaningless for OpenAbove.
func (b PriceBucket) Max() float64 { return b.max }

// Contains reports whether price falls inside the bucket.
func (b PriceBucket) Contains(price float64) bool {
	return b.Range().Contains(price)
}

// Range converts the bucket into a filter range.
func (b PriceBucket) Range() filter.Range {
	if b.kind == OpenAbove {
		return filter.AtLeast(b.min)
	}
	return filter.Between(b.min, b.max)
}

// String renders the bucket in its token form.
func (b PriceBucket) String() string {
	if b.kind == OpenAbove {
		return formatNumber(b.min) + "+"
	}
	return formatNumber(b.min) + "-" + formatNumber(b.max)
}

func compareBuckets(a, b PriceBucket) int {
	if c := cmp.Compare(a.kind, b.kind); c != 0 {
		return c
	}
	if c := cmp.Compare(a.min, b.min); c != 0 {
		return c
	}
	return cmp.Compare(a.max, b.max)
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if !finite(n) {
		return 0, fmt.Errorf("number %q is not finite", s)
	}
	return n, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
