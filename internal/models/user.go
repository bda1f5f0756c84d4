package models

// DefaultTagTypes returns the tag types every new user starts with.
func DefaultTagTypes() []string {
	return []string{"location", "person"}
}

// User owns an ordered list of uniquely named albums, a tag-type
// vocabulary, and the photo table those albums point into.
type User struct {
	username string
	albums   []*Album
	tagTypes []string
	photos   *photoTable
}

// NewUser creates a user seeded with the default tag types.
func NewUser(username string) *User {
	return RestoreUser(username, DefaultTagTypes())
}

// RestoreUser creates a user with exactly the given tag types and no albums.
// Duplicate and blank tag types are dropped.
func RestoreUser(username string, tagTypes []string) *User {
	u := &User{
		username: username,
		photos:   newPhotoTable(),
	}
	for _, t := range tagTypes {
		u.AddTagType(t)
	}
	return u
}

// Username returns the login name.
func (u *User) Username() string {
	return u.username
}

// Albums returns the user's albums in creation order.
func (u *User) Albums() []*Album {
	out := make([]*Album, len(u.albums))
	copy(out, u.albums)
	return out
}

// Album returns the album with the exact name, or nil.
func (u *User) Album(name string) *Album {
	for _, a := range u.albums {
		if a.name == name {
			return a
		}
	}
	return nil
}

// CreateAlbum appends a new empty album. It fails on a blank, non-UTF-8 or
// taken name.
func (u *User) CreateAlbum(name string) (*Album, bool) {
	if !validText(name) || u.Album(name) != nil {
		return nil, false
	}
	a := &Album{name: name, table: u.photos}
	u.albums = append(u.albums, a)
	return a, true
}

// DeleteAlbum removes the named album, returning false if it does not exist.
func (u *User) DeleteAlbum(name string) bool {
	for i, a := range u.albums {
		if a.name == name {
			a.releaseAll()
			u.albums = append(u.albums[:i], u.albums[i+1:]...)
			return true
		}
	}
	return false
}

// RenameAlbum renames oldName in place. It fails if oldName is missing or
// newName is blank, not UTF-8 or already used by another album.
func (u *User) RenameAlbum(oldName, newName string) bool {
	a := u.Album(oldName)
	if a == nil || !validText(newName) || u.Album(newName) != nil {
		return false
	}
	a.name = newName
	return true
}

// TagTypes returns the user's tag-type vocabulary in insertion order.
func (u *User) TagTypes() []string {
	out := make([]string, len(u.tagTypes))
	copy(out, u.tagTypes)
	return out
}

// AddTagType adds a tag type, returning false if blank, not UTF-8 or
// already known.
func (u *User) AddTagType(tagType string) bool {
	if !validText(tagType) {
		return false
	}
	for _, existing := range u.tagTypes {
		if existing == tagType {
			return false
		}
	}
	u.tagTypes = append(u.tagTypes, tagType)
	return true
}

// Photo returns the user's photo for path, or nil if no album holds it.
func (u *User) Photo(path string) *Photo {
	return u.photos.get(path)
}

// PhotoCount returns the number of distinct photos across all albums.
func (u *User) PhotoCount() int {
	return u.photos.len()
}

// Photos returns every distinct photo across all albums, in album order
// then in-album order, each photo listed once.
func (u *User) Photos() []*Photo {
	seen := make(map[string]bool, u.photos.len())
	var out []*Photo
	for _, a := range u.albums {
		for _, p := range a.Photos() {
			if seen[p.filePath] {
				continue
			}
			seen[p.filePath] = true
			out = append(out, p)
		}
	}
	return out
}

// CopyPhoto adds p to album to. It fails if either album is missing, p is
// not in from, or to already holds it.
func (u *User) CopyPhoto(p *Photo, from, to string) bool {
	src, dst := u.Album(from), u.Album(to)
	if src == nil || dst == nil || !src.Contains(p) {
		return false
	}
	return dst.AddPhoto(u.photos.get(p.filePath))
}

// MovePhoto moves p from one album to another. Nothing changes on failure.
func (u *User) MovePhoto(p *Photo, from, to string) bool {
	if from == to || !u.CopyPhoto(p, from, to) {
		return false
	}
	return u.Album(from).RemovePhoto(p)
}
