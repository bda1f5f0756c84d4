package models

import "time"

// photoTable is the per-user store of Photo records keyed by file path.
// Albums hold paths into it; a photo lives as long as some album refers to it.
type photoTable struct {
	entries map[string]*tableEntry
}

type tableEntry struct {
	photo *Photo
	refs  int
}

func newPhotoTable() *photoTable {
	return &photoTable{entries: make(map[string]*tableEntry)}
}

// acquire registers a reference to p and returns the canonical Photo for
// its path, which is the already-known one if the path was seen before.
func (t *photoTable) acquire(p *Photo) *Photo {
	if e, ok := t.entries[p.filePath]; ok {
		e.refs++
		return e.photo
	}
	t.entries[p.filePath] = &tableEntry{photo: p, refs: 1}
	return p
}

// release drops one reference to path, removing the photo at zero.
func (t *photoTable) release(path string) {
	e, ok := t.entries[path]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(t.entries, path)
	}
}

func (t *photoTable) get(path string) *Photo {
	if e, ok := t.entries[path]; ok {
		return e.photo
	}
	return nil
}

func (t *photoTable) len() int {
	return len(t.entries)
}

// Album is a named, ordered collection of photos with no duplicate paths.
type Album struct {
	name  string
	paths []string
	table *photoTable
}

// NewAlbum creates an empty album with its own photo table. Albums owned by
// a User are created with User.CreateAlbum so they share the user's table.
func NewAlbum(name string) *Album {
	return &Album{name: name, table: newPhotoTable()}
}

// Name returns the album name.
func (a *Album) Name() string {
	return a.name
}

// PhotoCount returns the number of photos in the album.
func (a *Album) PhotoCount() int {
	return len(a.paths)
}

// Photos returns the album's photos in insertion order. The slice is a
// copy; the photos are shared references.
func (a *Album) Photos() []*Photo {
	out := make([]*Photo, 0, len(a.paths))
	for _, path := range a.paths {
		if p := a.table.get(path); p != nil {
			out = append(out, p)
		}
	}
	return out
}

// Contains reports whether the album holds a photo equal to p.
func (a *Album) Contains(p *Photo) bool {
	return p != nil && a.indexOf(p.filePath) >= 0
}

func (a *Album) indexOf(path string) int {
	for i, existing := range a.paths {
		if existing == path {
			return i
		}
	}
	return -1
}

// AddPhoto appends p unless an equal photo is already present. When the
// owner already knows a photo with p's path, the album refers to that
// photo and p itself is not stored.
func (a *Album) AddPhoto(p *Photo) bool {
	if p == nil || a.Contains(p) {
		return false
	}
	canonical := a.table.acquire(p)
	a.paths = append(a.paths, canonical.filePath)
	return true
}

// RemovePhoto removes the photo equal to p, returning false if absent.
func (a *Album) RemovePhoto(p *Photo) bool {
	if p == nil {
		return false
	}
	i := a.indexOf(p.filePath)
	if i < 0 {
		return false
	}
	a.paths = append(a.paths[:i], a.paths[i+1:]...)
	a.table.release(p.filePath)
	return true
}

// EarliestDate returns the oldest photo date. ok is false for an empty album.
func (a *Album) EarliestDate() (earliest time.Time, ok bool) {
	for _, p := range a.Photos() {
		if !ok || p.dateTime.Before(earliest) {
			earliest, ok = p.dateTime, true
		}
	}
	return earliest, ok
}

// LatestDate returns the newest photo date. ok is false for an empty album.
func (a *Album) LatestDate() (latest time.Time, ok bool) {
	for _, p := range a.Photos() {
		if !ok || p.dateTime.After(latest) {
			latest, ok = p.dateTime, true
		}
	}
	return latest, ok
}

// releaseAll drops the album's references before it is deleted.
func (a *Album) releaseAll() {
	for _, path := range a.paths {
		a.table.release(path)
	}
	a.paths = nil
}
