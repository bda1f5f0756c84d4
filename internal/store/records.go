package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/kimhsiao/photolib/backend/internal/errors"
	"github.com/kimhsiao/photolib/backend/internal/models"
	"github.com/kimhsiao/photolib/backend/internal/uuid"
)

// SchemaVersion is written into every record.
const SchemaVersion = 1

// AdminRecord is the persisted form of the username roster.
type AdminRecord struct {
	SchemaVersion int      `json:"schema_version"`
	Usernames     []string `json:"usernames"`
}

// UserRecord is the persisted form of one user's albums, photos and tags.
type UserRecord struct {
	SchemaVersion int           `json:"schema_version"`
	Username      string        `json:"username"`
	TagTypes      []string      `json:"tag_types"`
	Photos        []PhotoRecord `json:"photos"`
	Albums        []AlbumRecord `json:"albums"`
}

// PhotoRecord is one row of the user's photo table.
type PhotoRecord struct {
	ID      string       `json:"id"`
	Path    FilePath     `json:"path"`
	Caption string       `json:"caption"`
	TakenAt int64        `json:"taken_at"`
	Tags    []models.Tag `json:"tags"`
}

// AlbumRecord lists photo paths in display order.
type AlbumRecord struct {
	Name   string     `json:"name"`
	Photos []FilePath `json:"photos"`
}

// FilePath is a photo path as stored. File names are arbitrary bytes, so a
// path that is not valid UTF-8 is written as {"b64": "..."} instead of a
// JSON string.
type FilePath string

type rawFilePath struct {
	B64 string `json:"b64"`
}

// MarshalJSON implements json.Marshaler.
func (p FilePath) MarshalJSON() ([]byte, error) {
	if utf8.ValidString(string(p)) {
		return json.Marshal(string(p))
	}
	return json.Marshal(rawFilePath{B64: base64.StdEncoding.EncodeToString([]byte(p))})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *FilePath) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = FilePath(s)
		return nil
	}
	var raw rawFilePath
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b, err := base64.StdEncoding.DecodeString(raw.B64)
	if err != nil {
		return err
	}
	*p = FilePath(b)
	return nil
}

// EncodeAdmin serializes the roster.
func EncodeAdmin(a *models.Admin) ([]byte, error) {
	rec := AdminRecord{
		SchemaVersion: SchemaVersion,
		Usernames:     a.Usernames(),
	}
	for _, name := range rec.Usernames {
		if err := checkText("username", name); err != nil {
			return nil, err
		}
	}
	return json.MarshalIndent(rec, "", "  ")
}

// checkText rejects strings that encoding/json would rewrite.
func checkText(field, s string) error {
	if !utf8.ValidString(s) {
		return errors.Newf(errors.ErrInvalid, "%s %q is not valid UTF-8", field, s)
	}
	return nil
}

// DecodeAdmin parses a roster record.
func DecodeAdmin(data []byte) (*models.Admin, error) {
	var rec AdminRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(errors.ErrCorruptRecord, "admin record is not valid JSON", err)
	}
	if rec.SchemaVersion != SchemaVersion {
		return nil, errors.Newf(errors.ErrCorruptRecord, "unsupported admin schema version %d", rec.SchemaVersion)
	}
	return models.RestoreAdmin(rec.Usernames), nil
}

// NewUserRecord captures u as a record. Photos are listed in the order
// they are first reached through the albums.
func NewUserRecord(u *models.User) UserRecord {
	rec := UserRecord{
		SchemaVersion: SchemaVersion,
		Username:      u.Username(),
		TagTypes:      u.TagTypes(),
		Photos:        []PhotoRecord{},
		Albums:        []AlbumRecord{},
	}

	for _, p := range u.Photos() {
		rec.Photos = append(rec.Photos, PhotoRecord{
			ID:      p.ID(),
			Path:    FilePath(p.FilePath()),
			Caption: p.Caption(),
			TakenAt: p.DateTime().Unix(),
			Tags:    p.Tags(),
		})
	}

	for _, a := range u.Albums() {
		ar := AlbumRecord{Name: a.Name(), Photos: []FilePath{}}
		for _, p := range a.Photos() {
			ar.Photos = append(ar.Photos, FilePath(p.FilePath()))
		}
		rec.Albums = append(rec.Albums, ar)
	}
	return rec
}

// EncodeUser serializes the user's full entity graph. Paths of any bytes
// are kept; other text that is not valid UTF-8 is refused rather than
// written altered.
func EncodeUser(u *models.User) ([]byte, error) {
	rec := NewUserRecord(u)
	if err := rec.checkText(); err != nil {
		return nil, err
	}
	return json.MarshalIndent(rec, "", "  ")
}

func (rec UserRecord) checkText() error {
	if err := checkText("username", rec.Username); err != nil {
		return err
	}
	for _, t := range rec.TagTypes {
		if err := checkText("tag type", t); err != nil {
			return err
		}
	}
	for _, ar := range rec.Albums {
		if err := checkText("album name", ar.Name); err != nil {
			return err
		}
	}
	for _, pr := range rec.Photos {
		if err := checkText("caption", pr.Caption); err != nil {
			return err
		}
		for _, t := range pr.Tags {
			if err := checkText("tag", t.String()); err != nil {
				return err
			}
		}
	}
	return nil
}

// DecodeUser parses a user record.
func DecodeUser(data []byte) (*models.User, error) {
	var rec UserRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(errors.ErrCorruptRecord, "user record is not valid JSON", err)
	}
	return rec.Restore()
}

// Restore rebuilds the entity graph. A repeated photo path, a photo ID that
// is not a UUID v4, blank or repeated tags, an album that references an
// unknown path or lists one twice, or a repeated album name makes the whole
// record invalid.
func (rec UserRecord) Restore() (*models.User, error) {
	if rec.SchemaVersion != SchemaVersion {
		return nil, errors.Newf(errors.ErrCorruptRecord, "unsupported user schema version %d", rec.SchemaVersion)
	}
	if rec.Username == "" {
		return nil, errors.New(errors.ErrCorruptRecord, "user record has no username")
	}

	photos := make(map[FilePath]*models.Photo, len(rec.Photos))
	for _, pr := range rec.Photos {
		if pr.Path == "" {
			return nil, errors.New(errors.ErrCorruptRecord, "photo record has no path")
		}
		if _, dup := photos[pr.Path]; dup {
			return nil, errors.Newf(errors.ErrCorruptRecord, "photo %q is listed twice", pr.Path)
		}
		if err := uuid.Validate(pr.ID); err != nil {
			return nil, errors.Wrap(errors.ErrCorruptRecord, fmt.Sprintf("photo %q has a bad id", pr.Path), err)
		}
		p := models.RestorePhoto(pr.ID, string(pr.Path), pr.Caption, time.Unix(pr.TakenAt, 0), pr.Tags)
		if len(p.Tags()) != len(pr.Tags) {
			return nil, errors.Newf(errors.ErrCorruptRecord, "photo %q has blank or repeated tags", pr.Path)
		}
		photos[pr.Path] = p
	}

	u := models.RestoreUser(rec.Username, rec.TagTypes)
	for _, ar := range rec.Albums {
		album, ok := u.CreateAlbum(ar.Name)
		if !ok {
			return nil, errors.Newf(errors.ErrCorruptRecord, "album %q is blank or repeated", ar.Name)
		}
		for _, path := range ar.Photos {
			p, ok := photos[path]
			if !ok {
				return nil, errors.Newf(errors.ErrCorruptRecord, "album %q references unknown photo %q", ar.Name, path)
			}
			if !album.AddPhoto(p) {
				return nil, errors.Newf(errors.ErrCorruptRecord, "album %q lists photo %q twice", ar.Name, path)
			}
		}
	}
	return u, nil
}
