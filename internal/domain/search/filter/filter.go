package filter

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// MaxConditionsPerGroup is the maximum number of conditions per filter group.
const MaxConditionsPerGroup = 32

// Expression is a store-evaluable predicate: every must condition holds and,
// when the should group is non-empty, at least one should condition holds.
type Expression struct {
	must   []Condition
	should []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, should []Condition) (Expression, error) {
	if len(must) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(should) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many should conditions (max %d)", MaxConditionsPerGroup)
	}
	return Expression{must: must, should: should}, nil
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// Should returns the should conditions.
func (e Expression) Should() []Condition { return e.should }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.should) == 0
}

// String renders a canonical, backend-neutral form of the predicate.
func (e Expression) String() string {
	if e.IsEmpty() {
		return "*"
	}
	parts := make([]string, 0, len(e.must)+1)
	for _, c := range e.must {
		parts = append(parts, c.String())
	}
	if len(e.should) > 0 {
		or := make([]string, len(e.should))
		for i, c := range e.should {
			or[i] = c.String()
		}
		parts = append(parts, "("+strings.Join(or, " OR ")+")")
	}
	return strings.Join(parts, " AND ")
}

// Kind distinguishes condition variants.
type Kind int

// Condition kinds.
const (
	KindIn Kind = iota + 1
	KindRange
	KindContains
)

// Condition is a single filter clause: set membership, numeric range or substring.
type Condition struct {
	kind      Kind
	key       string
	values    []string
	rangeExpr *Range
	substr    string
}

// NewIn creates a membership condition. Values are deduplicated and sorted.
func NewIn(key string, values ...string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	set := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			set = append(set, v)
		}
	}
	if len(set) == 0 {
		return Condition{}, fmt.Errorf("at least one value is required for key %q", key)
	}
	slices.Sort(set)
	return Condition{kind: KindIn, key: key, values: slices.Compact(set)}, nil
}

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	return Condition{kind: KindRange, key: key, rangeExpr: &r}, nil
}

// NewContains creates a case-insensitive substring condition.
func NewContains(key, substr string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if substr == "" {
		return Condition{}, fmt.Errorf("substring is required for key %q", key)
	}
	return Condition{kind: KindContains, key: key, substr: substr}, nil
}

// Kind returns the condition variant.
func (c Condition) Kind() Kind { return c.kind }

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Values returns the membership values.
func (c Condition) Values() []string { return c.values }

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// Substring returns the substring of a contains condition.
func (c Condition) Substring() string { return c.substr }

// Matches evaluates the condition against a text or numeric field value.
func (c Condition) Matches(text string, num float64) bool {
	switch c.kind {
	case KindIn:
		_, found := slices.BinarySearch(c.values, text)
		return found
	case KindRange:
		return c.rangeExpr.Contains(num)
	case KindContains:
		return strings.Contains(strings.ToLower(text), strings.ToLower(c.substr))
	}
	return false
}

func (c Condition) String() string {
	switch c.kind {
	case KindIn:
		quoted := make([]string, len(c.values))
		for i, v := range c.values {
			quoted[i] = strconv.Quote(v)
		}
		return fmt.Sprintf("%s IN [%s]", c.key, strings.Join(quoted, ", "))
	case KindRange:
		return c.key + " " + c.rangeExpr.String()
	case KindContains:
		return fmt.Sprintf("%s CONTAINS %q", c.key, c.substr)
	}
	return ""
}

// Range is a numeric range with gt/gte/lt/lte boundaries.
type Range struct {
	gt  *float64
	gte *float64
	lt  *float64
	lte *float64
}

// NewRangeFilter validates and creates a Range.
// At least one boundary required. gt/gte and lt/lte are mutually exclusive.
func NewRangeFilter(gt, gte, lt, lte *float64) (Range, error) {
	if gt == nil && gte == nil && lt == nil && lte == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required")
	}
	if gt != nil && gte != nil {
		return Range{}, fmt.Errorf("cannot specify both gt and gte")
	}
	if lt != nil && lte != nil {
		return Range{}, fmt.Errorf("cannot specify both lt and lte")
	}
	return Range{gt: gt, gte: gte, lt: lt, lte: lte}, nil
}

// Between returns the inclusive range [lo, hi].
func Between(lo, hi float64) Range {
	return Range{gte: &lo, lte: &hi}
}

// AtLeast returns the range [lo, +inf).
func AtLeast(lo float64) Range {
	return Range{gte: &lo}
}

// GT returns the lower exclusive bound.
func (r Range) GT() *float64 { return r.gt }

// GTE returns the lower inclusive bound.
func (r Range) GTE() *float64 { return r.gte }

// LT returns the upper exclusive bound.
func (r Range) LT() *float64 { return r.lt }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *float64 { return r.lte }

// Contains reports whether v lies inside the range.
func (r Range) Contains(v float64) bool {
	if r.gt != nil && v <= *r.gt {
		return false
	}
	if r.gte != nil && v < *r.gte {
		return false
	}
	if r.lt != nil && v >= *r.lt {
		return false
	}
	if r.lte != nil && v > *r.lte {
		return false
	}
	return true
}

func (r Range) String() string {
	lo, hi := "(-inf", "+inf)"
	if r.gt != nil {
		lo = "(" + formatFloat(*r.gt)
	} else if r.gte != nil {
		lo = "[" + formatFloat(*r.gte)
	}
	if r.lt != nil {
		hi = formatFloat(*r.lt) + ")"
	} else if r.lte != nil {
		hi = formatFloat(*r.lte) + "]"
	}
	return lo + ", " + hi
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
