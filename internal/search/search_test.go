package search

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimhsiao/photolib/backend/internal/errors"
	"github.com/kimhsiao/photolib/backend/internal/models"
)

var (
	nyc   = models.NewTag("location", "NYC")
	paris = models.NewTag("location", "Paris")
	bob   = models.NewTag("person", "Bob")
)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

// setupLibrary builds alice with a Trip album (a.jpg on June 1, b.jpg on
// June 10) and a Home album sharing a.jpg and adding c.jpg.
func setupLibrary(t *testing.T) *models.User {
	t.Helper()
	u := models.NewUser("alice")

	trip, ok := u.CreateAlbum("Trip")
	require.True(t, ok)
	a := models.NewPhoto("/p/a.jpg", time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))
	b := models.NewPhoto("/p/b.jpg", time.Date(2023, 6, 10, 23, 59, 59, 0, time.UTC))
	require.True(t, trip.AddPhoto(a))
	require.True(t, trip.AddPhoto(b))
	require.True(t, a.AddTag(nyc))
	require.True(t, b.AddTag(paris))
	require.True(t, b.AddTag(bob))

	home, ok := u.CreateAlbum("Home")
	require.True(t, ok)
	c := models.NewPhoto("/p/c.jpg", time.Date(2023, 6, 11, 0, 0, 0, 0, time.UTC))
	require.True(t, c.AddTag(nyc))
	require.True(t, c.AddTag(bob))
	require.True(t, home.AddPhoto(c))
	require.True(t, home.AddPhoto(a))
	return u
}

func paths(photos []*models.Photo) []string {
	out := []string{}
	for _, p := range photos {
		out = append(out, p.FilePath())
	}
	return out
}

func TestByDateRange(t *testing.T) {
	u := setupLibrary(t)
	e := NewEngine(time.UTC)

	tests := []struct {
		name     string
		from, to civil.Date
		want     []string
	}{
		{"first days only", date(2023, 6, 1), date(2023, 6, 5), []string{"/p/a.jpg"}},
		{"both endpoint days", date(2023, 6, 1), date(2023, 6, 10), []string{"/p/a.jpg", "/p/b.jpg"}},
		{"day after excluded", date(2023, 6, 2), date(2023, 6, 10), []string{"/p/b.jpg"}},
		{"single day", date(2023, 6, 11), date(2023, 6, 11), []string{"/p/c.jpg"}},
		{"nothing", date(2024, 1, 1), date(2024, 1, 31), []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.ByDateRange(u, tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.want, paths(got))
		})
	}
}

func TestByDateRange_usesLocation(t *testing.T) {
	u := setupLibrary(t)
	// 2023-06-10 23:59:59 UTC is already June 11 in Tokyo
	tokyo := time.FixedZone("JST", 9*60*60)

	got, err := NewEngine(tokyo).ByDateRange(u, date(2023, 6, 11), date(2023, 6, 11))
	require.NoError(t, err)
	assert.Equal(t, []string{"/p/b.jpg", "/p/c.jpg"}, paths(got))
}

func TestByDateRange_invalid(t *testing.T) {
	u := setupLibrary(t)
	e := NewEngine(time.UTC)

	_, err := e.ByDateRange(u, date(2023, 6, 5), date(2023, 6, 1))
	assert.True(t, errors.Is(err, errors.ErrInvalidDateRange))

	_, err = e.ByDateRange(u, civil.Date{}, date(2023, 6, 1))
	assert.True(t, errors.Is(err, errors.ErrInvalidDateRange))

	_, err = e.ByDateRange(u, date(2023, 6, 1), civil.Date{})
	assert.True(t, errors.Is(err, errors.ErrInvalidDateRange))

	_, err = e.ByDateRange(nil, date(2023, 6, 1), date(2023, 6, 1))
	assert.True(t, errors.Is(err, errors.ErrNotAuthenticated))
}

func TestByTag(t *testing.T) {
	u := setupLibrary(t)
	e := NewEngine(time.UTC)

	got, err := e.ByTag(u, nyc)
	require.NoError(t, err)
	assert.Equal(t, []string{"/p/a.jpg", "/p/c.jpg"}, paths(got), "a.jpg sits in two albums but is listed once")

	got, err = e.ByTag(u, models.NewTag("location", "nyc"))
	require.NoError(t, err)
	assert.Empty(t, got, "values are case-sensitive")

	_, err = e.ByTag(u, models.NewTag("location", " "))
	assert.True(t, errors.Is(err, errors.ErrInvalid))
}

func TestByTag_returnsLibraryPhotos(t *testing.T) {
	u := setupLibrary(t)

	got, err := NewEngine(time.UTC).ByTag(u, nyc)
	require.NoError(t, err)
	got[0].SetCaption("edited")

	assert.Equal(t, "edited", u.Album("Trip").Photos()[0].Caption())
	assert.Equal(t, "edited", u.Album("Home").Photos()[1].Caption())
}

func TestAndOr_matchSetAlgebra(t *testing.T) {
	u := setupLibrary(t)
	e := NewEngine(time.UTC)

	pairs := [][2]models.Tag{
		{nyc, bob},
		{nyc, paris},
		{paris, bob},
		{bob, models.NewTag("person", "Eve")},
	}
	for _, pair := range pairs {
		a, err := e.ByTag(u, pair[0])
		require.NoError(t, err)
		b, err := e.ByTag(u, pair[1])
		require.NoError(t, err)
		and, err := e.ByBothTags(u, pair[0], pair[1])
		require.NoError(t, err)
		or, err := e.ByEitherTag(u, pair[0], pair[1])
		require.NoError(t, err)

		inA := map[string]bool{}
		for _, p := range paths(a) {
			inA[p] = true
		}
		union := map[string]bool{}
		intersection := map[string]bool{}
		for p := range inA {
			union[p] = true
		}
		for _, p := range paths(b) {
			union[p] = true
			if inA[p] {
				intersection[p] = true
			}
		}

		assert.Len(t, or, len(union), "%v OR %v", pair[0], pair[1])
		for _, p := range paths(or) {
			assert.True(t, union[p])
		}
		assert.Len(t, and, len(intersection), "%v AND %v", pair[0], pair[1])
		for _, p := range paths(and) {
			assert.True(t, intersection[p])
		}
	}
}

func TestByBothTags_sameType(t *testing.T) {
	u := setupLibrary(t)
	p := u.Photo("/p/a.jpg")
	require.True(t, p.AddTag(paris))

	got, err := NewEngine(time.UTC).ByBothTags(u, nyc, paris)
	require.NoError(t, err)
	assert.Equal(t, []string{"/p/a.jpg"}, paths(got))
}

func TestSaveAsAlbum(t *testing.T) {
	u := setupLibrary(t)
	e := NewEngine(time.UTC)
	results, err := e.ByTag(u, nyc)
	require.NoError(t, err)

	album, err := SaveAsAlbum(u, "New York", append(results, results[0]))
	require.NoError(t, err)
	assert.Equal(t, []string{"/p/a.jpg", "/p/c.jpg"}, paths(album.Photos()))
	assert.Same(t, u.Photo("/p/a.jpg"), album.Photos()[0])
	assert.Equal(t, 3, u.PhotoCount())

	_, err = SaveAsAlbum(u, "Trip", results)
	assert.True(t, errors.Is(err, errors.ErrDuplicate))
	_, err = SaveAsAlbum(u, "", results)
	assert.True(t, errors.Is(err, errors.ErrInvalid))

	empty, err := SaveAsAlbum(u, "Nothing", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.PhotoCount())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2023-06-01 ")
	require.NoError(t, err)
	assert.Equal(t, date(2023, 6, 1), d)

	_, err = ParseDate("06/01/2023")
	assert.True(t, errors.Is(err, errors.ErrInvalidDateRange))
}
