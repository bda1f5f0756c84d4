package search

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/kimhsiao/photolib/backend/internal/errors"
	"github.com/kimhsiao/photolib/backend/internal/models"
)

// Engine evaluates filters over one user's photos. It never mutates the
// library except through SaveAsAlbum.
type Engine struct {
	loc *time.Location
}

// NewEngine creates an Engine that reads calendar days in loc. A nil loc
// means local time.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{loc: loc}
}

// Location returns the zone calendar days are read in.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Find returns the photos of u matching f, in album order then in-album
// order, each photo once. The results are the library's own photos.
func (e *Engine) Find(u *models.User, f Filter) ([]*models.Photo, error) {
	if u == nil {
		return nil, errors.New(errors.ErrNotAuthenticated, "no user to search")
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	results := []*models.Photo{}
	for _, p := range u.Photos() {
		if f.Match(p) {
			results = append(results, p)
		}
	}
	return results, nil
}

// ByDateRange finds photos taken from the start of from to the end of to.
func (e *Engine) ByDateRange(u *models.User, from, to civil.Date) ([]*models.Photo, error) {
	return e.Find(u, &DateRangeFilter{From: from, To: to, Location: e.loc})
}

// ByTag finds photos holding tag.
func (e *Engine) ByTag(u *models.User, tag models.Tag) ([]*models.Photo, error) {
	return e.Find(u, &TagFilter{Tag: tag})
}

// ByBothTags finds photos holding a and b.
func (e *Engine) ByBothTags(u *models.User, a, b models.Tag) ([]*models.Photo, error) {
	return e.Find(u, &AndFilter{A: a, B: b})
}

// ByEitherTag finds photos holding a or b.
func (e *Engine) ByEitherTag(u *models.User, a, b models.Tag) ([]*models.Photo, error) {
	return e.Find(u, &OrFilter{A: a, B: b})
}

// SaveAsAlbum creates album name for u and adds photos to it in order.
// Photos the new album already holds are skipped.
func SaveAsAlbum(u *models.User, name string, photos []*models.Photo) (*models.Album, error) {
	if u == nil {
		return nil, errors.New(errors.ErrNotAuthenticated, "no user to save results for")
	}
	if u.Album(name) != nil {
		return nil, errors.Newf(errors.ErrDuplicate, "album %q already exists", name)
	}
	album, ok := u.CreateAlbum(name)
	if !ok {
		return nil, errors.New(errors.ErrInvalid, "album name is blank")
	}
	for _, p := range photos {
		album.AddPhoto(p)
	}
	return album, nil
}
