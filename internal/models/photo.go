package models

import (
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kimhsiao/photolib/backend/internal/uuid"
)

// Photo is an image file known to the library. Its identity is the file
// path alone; caption, date and tags are mutable metadata.
type Photo struct {
	id       string
	filePath string
	caption  string
	dateTime time.Time
	tags     []Tag
}

// NewPhoto creates a Photo for an already-resolved file path. The caption
// defaults to the file's base name, with bytes that are not UTF-8 replaced,
// and the date is modTime with sub-second precision dropped.
func NewPhoto(filePath string, modTime time.Time) *Photo {
	return &Photo{
		id:       uuid.New(),
		filePath: filePath,
		caption:  strings.ToValidUTF8(filepath.Base(filePath), "\uFFFD"),
		dateTime: modTime.Truncate(time.Second),
	}
}

// RestorePhoto rebuilds a Photo from persisted fields.
func RestorePhoto(id, filePath, caption string, dateTime time.Time, tags []Tag) *Photo {
	p := &Photo{
		id:       id,
		filePath: filePath,
		caption:  caption,
		dateTime: dateTime.Truncate(time.Second),
	}
	if p.id == "" {
		p.id = uuid.New()
	}
	for _, t := range tags {
		p.AddTag(t)
	}
	return p
}

// ID returns the record identifier assigned when the photo was created.
func (p *Photo) ID() string {
	return p.id
}

// FilePath returns the absolute path of the image file.
func (p *Photo) FilePath() string {
	return p.filePath
}

// Caption returns the caption.
func (p *Photo) Caption() string {
	return p.caption
}

// SetCaption replaces the caption. It returns false, leaving the caption
// alone, if caption is not valid UTF-8.
func (p *Photo) SetCaption(caption string) bool {
	if !utf8.ValidString(caption) {
		return false
	}
	p.caption = caption
	return true
}

// DateTime returns when the photo was taken (the file's modification time).
func (p *Photo) DateTime() time.Time {
	return p.dateTime
}

// Tags returns a copy of the photo's tags in the order they were added.
func (p *Photo) Tags() []Tag {
	out := make([]Tag, len(p.tags))
	copy(out, p.tags)
	return out
}

// AddTag adds t. It returns false if t is blank or already present.
func (p *Photo) AddTag(t Tag) bool {
	if !t.Valid() || p.Contains(t) {
		return false
	}
	p.tags = append(p.tags, t)
	return true
}

// RemoveTag removes t, returning false if the photo did not have it.
func (p *Photo) RemoveTag(t Tag) bool {
	for i, existing := range p.tags {
		if existing == t {
			p.tags = append(p.tags[:i], p.tags[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether the photo carries exactly t.
func (p *Photo) Contains(t Tag) bool {
	for _, existing := range p.tags {
		if existing == t {
			return true
		}
	}
	return false
}

// HasTag reports whether the photo carries the tag name: value.
func (p *Photo) HasTag(name, value string) bool {
	return p.Contains(Tag{Name: name, Value: value})
}

// TagsByName returns every tag of the given type.
func (p *Photo) TagsByName(name string) []Tag {
	var out []Tag
	for _, t := range p.tags {
		if t.Name == name {
			out = append(out, t)
		}
	}
	return out
}

// Equal reports whether p and other refer to the same file.
func (p *Photo) Equal(other *Photo) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.filePath == other.filePath
}
