package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =====================================================
// Tag Tests
// =====================================================

func TestTag_equality(t *testing.T) {
	assert.Equal(t, NewTag("location", "NYC"), Tag{Name: "location", Value: "NYC"})
	assert.NotEqual(t, NewTag("location", "NYC"), NewTag("location", "nyc"), "values are case-sensitive")
	assert.NotEqual(t, NewTag("Location", "NYC"), NewTag("location", "NYC"), "names are case-sensitive")
	assert.Equal(t, "person: Ann", NewTag("person", "Ann").String())
}

func TestTag_Valid(t *testing.T) {
	assert.True(t, NewTag("location", "NYC").Valid())
	assert.False(t, NewTag("", "NYC").Valid())
	assert.False(t, NewTag("location", "  ").Valid())
	assert.False(t, NewTag("location", "caf\xe9").Valid(), "values must be UTF-8")
	assert.False(t, NewTag("\xff", "NYC").Valid())
}

// =====================================================
// Photo Tests
// =====================================================

func TestNewPhoto_defaults(t *testing.T) {
	mod := time.Date(2023, 6, 1, 14, 30, 15, 987654321, time.UTC)
	p := NewPhoto("/p/a.jpg", mod)

	assert.Equal(t, "/p/a.jpg", p.FilePath())
	assert.Equal(t, "a.jpg", p.Caption())
	assert.Equal(t, time.Date(2023, 6, 1, 14, 30, 15, 0, time.UTC), p.DateTime(), "sub-second part should be dropped")
	assert.Empty(t, p.Tags())
	assert.NotEmpty(t, p.ID())
}

func TestNewPhoto_nonUTF8Path(t *testing.T) {
	p := NewPhoto("/p/caf\xe9.jpg", time.Now())

	assert.Equal(t, "/p/caf\xe9.jpg", p.FilePath(), "path bytes are kept")
	assert.Equal(t, "caf\uFFFD.jpg", p.Caption())
}

func TestPhoto_SetCaption(t *testing.T) {
	p := NewPhoto("/p/a.jpg", time.Now())

	assert.True(t, p.SetCaption("sunrise"))
	assert.True(t, p.SetCaption(""), "empty captions are allowed")
	assert.False(t, p.SetCaption("caf\xe9"))
	assert.Equal(t, "", p.Caption())
}

func TestPhoto_Equal_pathOnly(t *testing.T) {
	a := NewPhoto("/p/a.jpg", time.Now())
	b := NewPhoto("/p/a.jpg", time.Now().Add(-48*time.Hour))
	b.SetCaption("different")
	b.AddTag(NewTag("person", "Ann"))

	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))
	assert.False(t, a.Equal(NewPhoto("/p/b.jpg", time.Now())))
	assert.False(t, a.Equal(nil))
}

func TestPhoto_tagSetSemantics(t *testing.T) {
	p := NewPhoto("/p/a.jpg", time.Now())
	nyc := NewTag("location", "NYC")

	require.True(t, p.AddTag(nyc))
	assert.False(t, p.AddTag(NewTag("location", "NYC")), "equal tag should be rejected")
	assert.False(t, p.AddTag(NewTag("location", "")), "blank value should be rejected")
	assert.True(t, p.AddTag(NewTag("location", "Paris")), "same type with another value is allowed")
	assert.True(t, p.HasTag("location", "NYC"))
	assert.Len(t, p.TagsByName("location"), 2)

	assert.True(t, p.RemoveTag(nyc))
	assert.False(t, p.RemoveTag(nyc), "removing an absent tag should fail")
	assert.Equal(t, []Tag{NewTag("location", "Paris")}, p.Tags())
}

func TestPhoto_TagsReturnsCopy(t *testing.T) {
	p := NewPhoto("/p/a.jpg", time.Now())
	p.AddTag(NewTag("person", "Ann"))

	tags := p.Tags()
	tags[0] = NewTag("person", "Bob")

	assert.True(t, p.HasTag("person", "Ann"))
}

func TestRestorePhoto(t *testing.T) {
	when := time.Unix(1685620800, 0)
	tags := []Tag{NewTag("person", "Ann"), NewTag("person", "Ann"), NewTag("location", "NYC")}

	p := RestorePhoto("id-1", "/p/a.jpg", "Beach", when, tags)

	assert.Equal(t, "id-1", p.ID())
	assert.Equal(t, "Beach", p.Caption())
	assert.True(t, p.DateTime().Equal(when))
	assert.Len(t, p.Tags(), 2, "duplicate tags collapse on restore")

	assert.NotEmpty(t, RestorePhoto("", "/p/b.jpg", "b", when, nil).ID(), "missing id is regenerated")
}
