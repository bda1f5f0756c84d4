// Package library is the single registry of users and the active session.
// Every mutation the shell performs goes through it or through the entities
// it hands out, and it decides when records are written.
package library

import (
	stderrors "errors"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kimhsiao/photolib/backend/internal/errors"
	"github.com/kimhsiao/photolib/backend/internal/logging"
	"github.com/kimhsiao/photolib/backend/internal/models"
	"github.com/kimhsiao/photolib/backend/internal/store"
	"github.com/kimhsiao/photolib/backend/internal/uuid"
)

// Session is the logged-in actor.
type Session struct {
	ID        string
	Username  string
	Admin     bool
	StartedAt time.Time
}

// Library owns every loaded user, the admin roster and the session.
type Library struct {
	store   *store.Store
	admin   *models.Admin
	users   map[string]*models.User
	session *Session
}

// Open loads the library from s, provisioning the stock user from stock
// when needed. Users whose records cannot be read are left out.
func Open(s *store.Store, stock store.StockSource) (*Library, error) {
	snap, err := s.Load(stock)
	if err != nil {
		return nil, err
	}
	logging.Info("Library loaded", map[string]interface{}{
		"users":  len(snap.Users),
		"roster": len(snap.Admin.Usernames()),
	})
	return &Library{
		store: s,
		admin: snap.Admin,
		users: snap.Users,
	}, nil
}

// Authenticate starts a session. The admin name opens an admin session with
// no user; any other name must belong to a loaded user.
func (l *Library) Authenticate(username string) error {
	if strings.TrimSpace(username) == "" {
		return errors.New(errors.ErrInvalid, "username is required")
	}

	session := &Session{
		ID:        uuid.New(),
		Username:  username,
		StartedAt: time.Now(),
	}
	if username == models.AdminUsername {
		session.Admin = true
	} else if _, ok := l.users[username]; !ok {
		return errors.Newf(errors.ErrNotFound, "unknown user %q", username)
	}

	l.session = session
	logging.Info("Session started", map[string]interface{}{
		"username":   username,
		"session_id": session.ID,
	})
	return nil
}

// Session returns a copy of the active session, or nil.
func (l *Library) Session() *Session {
	if l.session == nil {
		return nil
	}
	s := *l.session
	return &s
}

// IsAdminSession reports whether the admin is logged in.
func (l *Library) IsAdminSession() bool {
	return l.session != nil && l.session.Admin
}

// CurrentUser returns the logged-in user, or nil for no session or an
// admin session.
func (l *Library) CurrentUser() *models.User {
	if l.session == nil || l.session.Admin {
		return nil
	}
	return l.users[l.session.Username]
}

// RequireUser returns the logged-in user or a NOT_AUTHENTICATED error.
func (l *Library) RequireUser() (*models.User, error) {
	u := l.CurrentUser()
	if u == nil {
		return nil, errors.New(errors.ErrNotAuthenticated, "log in as a user first")
	}
	return u, nil
}

// Usernames returns the roster in insertion order.
func (l *Library) Usernames() []string {
	return l.admin.Usernames()
}

// User returns the loaded user named username, or nil.
func (l *Library) User(username string) *models.User {
	return l.users[username]
}

// CreateUser registers and saves a new user with the default tag types.
// When saving fails the user stays registered and the write error is
// returned with it.
func (l *Library) CreateUser(username string) (*models.User, error) {
	if err := l.checkNewUsername(username); err != nil {
		return nil, err
	}
	u := models.NewUser(username)
	return u, l.register(u)
}

// ImportUser registers a user restored from an archive under the same
// rules as CreateUser.
func (l *Library) ImportUser(u *models.User) error {
	if u == nil {
		return errors.New(errors.ErrInvalid, "no user to import")
	}
	if err := l.checkNewUsername(u.Username()); err != nil {
		return err
	}
	return l.register(u)
}

func (l *Library) checkNewUsername(username string) error {
	switch {
	case strings.TrimSpace(username) == "":
		return errors.New(errors.ErrInvalid, "username is required")
	case !utf8.ValidString(username):
		return errors.Newf(errors.ErrInvalid, "username %q is not valid UTF-8", username)
	case username == models.AdminUsername:
		return errors.Newf(errors.ErrReservedName, "%q is reserved", username)
	case l.admin.Contains(username) || l.users[username] != nil:
		return errors.Newf(errors.ErrDuplicate, "user %q already exists", username)
	}
	return nil
}

func (l *Library) register(u *models.User) error {
	l.admin.AddUsername(u.Username())
	l.users[u.Username()] = u
	logging.Info("User created", map[string]interface{}{"username": u.Username()})

	var errs []error
	if err := l.store.SaveUser(u); err != nil {
		logging.Error("Failed to save new user", err, map[string]interface{}{"username": u.Username()})
		errs = append(errs, err)
	}
	if err := l.store.SaveAdmin(l.admin); err != nil {
		logging.Error("Failed to save admin record", err)
		errs = append(errs, err)
	}
	return stderrors.Join(errs...)
}

// DeleteUser removes a user from memory, the roster and storage. The stock
// user cannot be deleted. Deleting the logged-in user ends the session.
func (l *Library) DeleteUser(username string) error {
	if username == models.StockUsername {
		return errors.Newf(errors.ErrProtectedUser, "%q cannot be deleted", username)
	}
	if !l.admin.Contains(username) && l.users[username] == nil {
		return errors.Newf(errors.ErrNotFound, "unknown user %q", username)
	}

	delete(l.users, username)
	l.admin.RemoveUsername(username)
	if l.session != nil && !l.session.Admin && l.session.Username == username {
		l.session = nil
	}
	logging.Info("User deleted", map[string]interface{}{"username": username})

	var errs []error
	if err := l.store.DeleteUser(username); err != nil {
		logging.Error("Failed to delete user record", err, map[string]interface{}{"username": username})
		errs = append(errs, err)
	}
	if err := l.store.SaveAdmin(l.admin); err != nil {
		logging.Error("Failed to save admin record", err)
		errs = append(errs, err)
	}
	return stderrors.Join(errs...)
}

// ImportPhoto creates a Photo for an absolute file path. The photo belongs
// to no album until one adds it.
func (l *Library) ImportPhoto(absPath string, modTime time.Time) (*models.Photo, error) {
	if absPath == "" || !filepath.IsAbs(absPath) {
		return nil, errors.Newf(errors.ErrInvalid, "photo path %q must be absolute", absPath)
	}
	return models.NewPhoto(filepath.Clean(absPath), modTime), nil
}

// SaveUser writes the logged-in user's record.
func (l *Library) SaveUser() error {
	u, err := l.RequireUser()
	if err != nil {
		return err
	}
	return l.store.SaveUser(u)
}

// SaveAll writes the roster and every loaded user.
func (l *Library) SaveAll() error {
	return l.store.SaveAll(l.admin, l.users)
}

// Logout saves everything and clears the session. The session is cleared
// even when saving fails.
func (l *Library) Logout() error {
	err := l.SaveAll()
	if l.session != nil {
		logging.Info("Session ended", map[string]interface{}{
			"username":   l.session.Username,
			"session_id": l.session.ID,
		})
	}
	l.session = nil
	return err
}

// Close performs the final save and releases the store.
func (l *Library) Close() error {
	saveErr := l.Logout()
	closeErr := l.store.Close()
	return stderrors.Join(saveErr, closeErr)
}
