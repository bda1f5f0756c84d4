// Package store persists the admin roster and every user's entity graph
// as versioned records in a pluggable key/value backend.
package store

import (
	stderrors "errors"
	"sort"
	"strings"

	"github.com/kimhsiao/photolib/backend/internal/errors"
	"github.com/kimhsiao/photolib/backend/internal/logging"
	"github.com/kimhsiao/photolib/backend/internal/models"
)

const (
	// AdminKey addresses the roster record.
	AdminKey = "admin"
	// userPrefix namespaces per-user records.
	userPrefix = "users/"
)

// UserKey returns the record key for username.
func UserKey(username string) string {
	return userPrefix + username
}

// Backend stores opaque records by key. Get returns an AppError with code
// ErrNotFound for a missing key; Put replaces the whole record.
type Backend interface {
	Get(key string) ([]byte, error)
	Put(key string, data []byte) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
	Close() error
}

// NotFound builds the error backends return for a missing key.
func NotFound(key string) error {
	return errors.Newf(errors.ErrNotFound, "record %q not found", key)
}

// StockSource supplies the photos that seed an empty stock album.
type StockSource interface {
	StockPhotos() ([]*models.Photo, error)
}

// Snapshot is everything Load recovered.
type Snapshot struct {
	Admin *models.Admin
	Users map[string]*models.User
}

// Store reads and writes library records.
type Store struct {
	backend Backend
}

// New creates a Store over backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// LoadAdmin reads the roster record.
func (s *Store) LoadAdmin() (*models.Admin, error) {
	data, err := s.backend.Get(AdminKey)
	if err != nil {
		return nil, readErr(AdminKey, err)
	}
	return DecodeAdmin(data)
}

// LoadUser reads one user's record.
func (s *Store) LoadUser(username string) (*models.User, error) {
	key := UserKey(username)
	data, err := s.backend.Get(key)
	if err != nil {
		return nil, readErr(key, err)
	}
	u, err := DecodeUser(data)
	if err != nil {
		return nil, err
	}
	if u.Username() != username {
		return nil, errors.Newf(errors.ErrCorruptRecord, "record %q holds user %q", key, u.Username())
	}
	return u, nil
}

// SaveAdmin overwrites the roster record.
func (s *Store) SaveAdmin(a *models.Admin) error {
	data, err := EncodeAdmin(a)
	if err != nil {
		return errors.Wrap(errors.ErrStorageWrite, "encode admin", err)
	}
	if err := s.backend.Put(AdminKey, data); err != nil {
		return errors.Wrap(errors.ErrStorageWrite, "write admin record", err)
	}
	return nil
}

// SaveUser overwrites u's record with its current entity graph.
func (s *Store) SaveUser(u *models.User) error {
	data, err := EncodeUser(u)
	if err != nil {
		return errors.Wrap(errors.ErrStorageWrite, "encode user "+u.Username(), err)
	}
	if err := s.backend.Put(UserKey(u.Username()), data); err != nil {
		return errors.Wrap(errors.ErrStorageWrite, "write user record "+u.Username(), err)
	}
	return nil
}

// DeleteUser removes username's record. A missing record is not an error.
func (s *Store) DeleteUser(username string) error {
	if err := s.backend.Delete(UserKey(username)); err != nil && !errors.Is(err, errors.ErrNotFound) {
		return errors.Wrap(errors.ErrStorageWrite, "delete user record "+username, err)
	}
	return nil
}

// StoredUsernames lists the usernames that have a record, sorted.
func (s *Store) StoredUsernames() ([]string, error) {
	keys, err := s.backend.Keys(userPrefix)
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageRead, "list user records", err)
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, strings.TrimPrefix(k, userPrefix))
	}
	sort.Strings(names)
	return names, nil
}

// SaveAll writes the roster and every user. A failure for one record does
// not stop the others; all failures are returned joined.
func (s *Store) SaveAll(a *models.Admin, users map[string]*models.User) error {
	var errs []error
	if err := s.SaveAdmin(a); err != nil {
		logging.Error("Failed to save admin record", err)
		errs = append(errs, err)
	}

	names := make([]string, 0, len(users))
	for name := range users {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.SaveUser(users[name]); err != nil {
			logging.Error("Failed to save user record", err, map[string]interface{}{"username": name})
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// Load reads the roster and every listed user. Unreadable user records are
// logged and skipped. A missing roster is created; an unreadable one is
// rebuilt from the user records present. The stock user and album are
// provisioned when absent, and an empty stock album is filled from stock.
func (s *Store) Load(stock StockSource) (*Snapshot, error) {
	admin, err := s.LoadAdmin()
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrNotFound):
		admin = models.NewAdmin()
		if err := s.SaveAdmin(admin); err != nil {
			logging.Error("Failed to save new admin record", err)
		}
	default:
		logging.Error("Failed to load admin record, rebuilding roster", err)
		admin = s.rebuildAdmin()
	}

	snap := &Snapshot{
		Admin: admin,
		Users: make(map[string]*models.User),
	}

	for _, name := range admin.Usernames() {
		u, err := s.LoadUser(name)
		if err != nil {
			logging.Error("Failed to load user record", err, map[string]interface{}{"username": name})
			continue
		}
		snap.Users[name] = u
	}

	s.provisionStock(snap, stock)
	return snap, nil
}

func (s *Store) rebuildAdmin() *models.Admin {
	admin := models.NewAdmin()
	names, err := s.StoredUsernames()
	if err != nil {
		logging.Error("Failed to list user records", err)
		return admin
	}
	for _, name := range names {
		admin.AddUsername(name)
	}
	return admin
}

func (s *Store) provisionStock(snap *Snapshot, stock StockSource) {
	stockUser, ok := snap.Users[models.StockUsername]
	if !ok {
		stockUser = models.NewUser(models.StockUsername)
		stockUser.CreateAlbum(models.StockAlbumName)
		snap.Users[models.StockUsername] = stockUser

		if snap.Admin.AddUsername(models.StockUsername) {
			if err := s.SaveAdmin(snap.Admin); err != nil {
				logging.Error("Failed to save admin record", err)
			}
		}
		if err := s.SaveUser(stockUser); err != nil {
			logging.Error("Failed to save stock user", err)
		}
		logging.Info("Provisioned stock user")
	}

	album := stockUser.Album(models.StockAlbumName)
	if album == nil || album.PhotoCount() > 0 || stock == nil {
		return
	}

	photos, err := stock.StockPhotos()
	if err != nil {
		logging.Warn("Stock images unavailable", map[string]interface{}{"error": err.Error()})
		return
	}
	added := 0
	for _, p := range photos {
		if album.AddPhoto(p) {
			added++
		}
	}
	if added == 0 {
		return
	}
	if err := s.SaveUser(stockUser); err != nil {
		logging.Error("Failed to save stock user", err)
	}
	logging.Info("Imported stock photos", map[string]interface{}{"count": added})
}

func readErr(key string, err error) error {
	if errors.Is(err, errors.ErrNotFound) {
		return err
	}
	return errors.Wrap(errors.ErrStorageRead, "read record "+key, err)
}
