// Package search provides the photo filters search runs over a user's library.
package search

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/kimhsiao/photolib/backend/internal/errors"
	"github.com/kimhsiao/photolib/backend/internal/models"
)

// Filter represents a single search condition.
type Filter interface {
	// Validate reports why the filter cannot be evaluated, or nil
	Validate() error

	// Match reports whether p satisfies the filter
	Match(p *models.Photo) bool
}

// DateRangeFilter matches photos taken on any calendar day from From to To,
// both days included. Days are taken in Location, or local time when nil.
type DateRangeFilter struct {
	From     civil.Date
	To       civil.Date
	Location *time.Location
}

// Validate requires both bounds and From not after To.
func (f *DateRangeFilter) Validate() error {
	if !f.From.IsValid() || !f.To.IsValid() {
		return errors.New(errors.ErrInvalidDateRange, "both dates are required")
	}
	if f.From.After(f.To) {
		return errors.Newf(errors.ErrInvalidDateRange, "start %s is after end %s", f.From, f.To)
	}
	return nil
}

// Match compares the photo's calendar day against the bounds.
func (f *DateRangeFilter) Match(p *models.Photo) bool {
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	day := civil.DateOf(p.DateTime().In(loc))
	return !day.Before(f.From) && !day.After(f.To)
}

// TagFilter matches photos holding an exact tag.
type TagFilter struct {
	Tag models.Tag
}

// Validate rejects a tag with a blank name or value.
func (f *TagFilter) Validate() error {
	return validateTag(f.Tag)
}

// Match reports whether p holds the tag.
func (f *TagFilter) Match(p *models.Photo) bool {
	return p.Contains(f.Tag)
}

// AndFilter matches photos holding both tags.
type AndFilter struct {
	A, B models.Tag
}

// Validate checks both tags.
func (f *AndFilter) Validate() error {
	if err := validateTag(f.A); err != nil {
		return err
	}
	return validateTag(f.B)
}

// Match reports whether p holds A and B.
func (f *AndFilter) Match(p *models.Photo) bool {
	return p.Contains(f.A) && p.Contains(f.B)
}

// OrFilter matches photos holding at least one of the tags.
type OrFilter struct {
	A, B models.Tag
}

// Validate checks both tags.
func (f *OrFilter) Validate() error {
	if err := validateTag(f.A); err != nil {
		return err
	}
	return validateTag(f.B)
}

// Match reports whether p holds A or B.
func (f *OrFilter) Match(p *models.Photo) bool {
	return p.Contains(f.A) || p.Contains(f.B)
}

func validateTag(t models.Tag) error {
	if strings.TrimSpace(t.Name) == "" || strings.TrimSpace(t.Value) == "" {
		return errors.Newf(errors.ErrInvalid, "tag %q needs a type and a value", t.String())
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, errors.Wrap(errors.ErrInvalidDateRange, "dates are written YYYY-MM-DD", err)
	}
	return d, nil
}
