// Package filter describes the retrieval pre-filter pushed down to the
// catalog index alongside the text query.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/shopsearch/internal/domain/interpretation"
)

// MaxConditions caps each condition group.
const MaxConditions = 16

// Catalog field names understood by the product index.
const (
	FieldPrice    = "price"
	FieldCategory = "category"
	FieldMerchant = "merchant"
	FieldBrand    = "brand"
)

// Expression is a conjunction of must conditions and negated must-not conditions.
type Expression struct {
	must    []Condition
	mustNot []Condition
}

// NewExpression validates and creates an Expression.
func NewExpression(must, mustNot []Condition) (Expression, error) {
	if len(must) > MaxConditions {
		return Expression{}, fmt.Errorf("too many must conditions (max %d)", MaxConditions)
	}
	if len(mustNot) > MaxConditions {
		return Expression{}, fmt.Errorf("too many must_not conditions (max %d)", MaxConditions)
	}
	return Expression{must: must, mustNot: mustNot}, nil
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.mustNot) == 0
}

// Condition is a tag match or a numeric range on one field.
type Condition struct {
	field  string
	tag    string
	bounds *Bounds
}

// NewTag creates an exact tag match condition.
func NewTag(field, value string) (Condition, error) {
	if field == "" {
		return Condition{}, errors.New("filter field is required")
	}
	if strings.TrimSpace(value) == "" {
		return Condition{}, fmt.Errorf("tag value is required for field %q", field)
	}
	return Condition{field: field, tag: value}, nil
}

// NewBetween creates a numeric range condition.
func NewBetween(field string, b Bounds) (Condition, error) {
	if field == "" {
		return Condition{}, errors.New("filter field is required")
	}
	return Condition{field: field, bounds: &b}, nil
}

// Field returns the field name.
func (c Condition) Field() string { return c.field }

// Tag returns the tag value.
func (c Condition) Tag() string { return c.tag }

// Bounds returns the numeric range.
func (c Condition) Bounds() *Bounds { return c.bounds }

// IsTag reports whether this is a tag condition.
func (c Condition) IsTag() bool { return c.tag != "" }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.bounds != nil }

// Bounds is an inclusive numeric range; either side may be open.
type Bounds struct {
	min *float64
	max *float64
}

// NewBounds validates and creates inclusive Bounds.
func NewBounds(lo, hi *float64) (Bounds, error) {
	if lo == nil && hi == nil {
		return Bounds{}, errors.New("at least one bound is required")
	}
	if lo != nil && hi != nil && *lo > *hi {
		return Bounds{}, fmt.Errorf("min %g exceeds max %g", *lo, *hi)
	}
	return Bounds{min: lo, max: hi}, nil
}

// Min returns the inclusive lower bound or nil.
func (b Bounds) Min() *float64 { return b.min }

// Max returns the inclusive upper bound or nil.
func (b Bounds) Max() *float64 { return b.max }

// Contains reports whether v falls inside the bounds.
func (b Bounds) Contains(v float64) bool {
	if b.min != nil && v < *b.min {
		return false
	}
	if b.max != nil && v > *b.max {
		return false
	}
	return true
}

// FromContext builds the pre-filter for an interpretation context: a price
// range when present and a negated tag per excluded category.
func FromContext(c interpretation.Context) (Expression, error) {
	var must, mustNot []Condition

	if c.MinPrice != nil || c.MaxPrice != nil {
		b, err := NewBounds(c.MinPrice, c.MaxPrice)
		if err != nil {
			return Expression{}, fmt.Errorf("price bounds: %w", err)
		}
		cond, err := NewBetween(FieldPrice, b)
		if err != nil {
			return Expression{}, err
		}
		must = append(must, cond)
	}

	for _, cat := range c.ExcludeCategories {
		cond, err := NewTag(FieldCategory, cat)
		if err != nil {
			continue
		}
		mustNot = append(mustNot, cond)
		if len(mustNot) == MaxConditions {
			break
		}
	}

	return NewExpression(must, mustNot)
}
