package library

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimhsiao/photolib/backend/internal/errors"
	"github.com/kimhsiao/photolib/backend/internal/models"
	"github.com/kimhsiao/photolib/backend/internal/search"
	"github.com/kimhsiao/photolib/backend/internal/store"
	"github.com/kimhsiao/photolib/backend/internal/store/filestore"
)

// setupLibrary opens a library over a fresh data directory.
func setupLibrary(t *testing.T) (*Library, string) {
	t.Helper()
	dir := t.TempDir()
	return openAt(t, dir), dir
}

func openAt(t *testing.T, dir string) *Library {
	t.Helper()
	b, err := filestore.New(dir)
	require.NoError(t, err)
	lib, err := Open(store.New(b), nil)
	require.NoError(t, err)
	return lib
}

func TestOpen_provisionsStock(t *testing.T) {
	lib, _ := setupLibrary(t)

	assert.Equal(t, []string{"stock"}, lib.Usernames())
	stock := lib.User("stock")
	require.NotNil(t, stock)
	assert.NotNil(t, stock.Album("stock"))
}

func TestAuthenticate(t *testing.T) {
	lib, _ := setupLibrary(t)

	require.NoError(t, lib.Authenticate("admin"))
	assert.True(t, lib.IsAdminSession())
	assert.Nil(t, lib.CurrentUser())
	s := lib.Session()
	require.NotNil(t, s)
	assert.True(t, s.Admin)
	assert.Len(t, s.ID, 36)

	require.NoError(t, lib.Authenticate("stock"))
	assert.False(t, lib.IsAdminSession())
	require.NotNil(t, lib.CurrentUser())
	assert.Equal(t, "stock", lib.CurrentUser().Username())

	err := lib.Authenticate("nobody")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Equal(t, "stock", lib.Session().Username, "failed login keeps the session")

	assert.True(t, errors.Is(lib.Authenticate(""), errors.ErrInvalid))
}

func TestCreateUser(t *testing.T) {
	lib, _ := setupLibrary(t)

	_, err := lib.CreateUser("admin")
	assert.True(t, errors.Is(err, errors.ErrReservedName))

	bob, err := lib.CreateUser("bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"location", "person"}, bob.TagTypes())

	_, err = lib.CreateUser("bob")
	assert.True(t, errors.Is(err, errors.ErrDuplicate))
	_, err = lib.CreateUser("stock")
	assert.True(t, errors.Is(err, errors.ErrDuplicate))
	_, err = lib.CreateUser("  ")
	assert.True(t, errors.Is(err, errors.ErrInvalid))
	_, err = lib.CreateUser("b\xffb")
	assert.True(t, errors.Is(err, errors.ErrInvalid))

	assert.Equal(t, []string{"stock", "bob"}, lib.Usernames())
	require.NoError(t, lib.Authenticate("bob"))
}

func TestCreateUser_persistsImmediately(t *testing.T) {
	lib, dir := setupLibrary(t)
	_, err := lib.CreateUser("bob")
	require.NoError(t, err)

	// a second process sees bob without any explicit save
	other := openAt(t, dir)
	assert.Equal(t, []string{"stock", "bob"}, other.Usernames())
	assert.NotNil(t, other.User("bob"))
}

func TestDeleteUser(t *testing.T) {
	lib, dir := setupLibrary(t)
	_, err := lib.CreateUser("bob")
	require.NoError(t, err)

	assert.True(t, errors.Is(lib.DeleteUser("stock"), errors.ErrProtectedUser))
	assert.True(t, errors.Is(lib.DeleteUser("carol"), errors.ErrNotFound))

	require.NoError(t, lib.Authenticate("bob"))
	require.NoError(t, lib.DeleteUser("bob"))
	assert.Nil(t, lib.User("bob"))
	assert.Nil(t, lib.Session(), "deleting the logged-in user ends the session")
	assert.Equal(t, []string{"stock"}, lib.Usernames())

	other := openAt(t, dir)
	assert.Equal(t, []string{"stock"}, other.Usernames())
	assert.Nil(t, other.User("bob"))
}

func TestLogout_savesEverything(t *testing.T) {
	lib, dir := setupLibrary(t)
	alice, err := lib.CreateUser("alice")
	require.NoError(t, err)
	require.NoError(t, lib.Authenticate("alice"))

	trip, ok := alice.CreateAlbum("Trip")
	require.True(t, ok)
	p, err := lib.ImportPhoto("/p/a.jpg", time.Date(2023, 6, 1, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, trip.AddPhoto(p))
	require.True(t, p.AddTag(models.NewTag("location", "NYC")))

	require.NoError(t, lib.Logout())
	assert.Nil(t, lib.Session())
	assert.Nil(t, lib.CurrentUser())

	reloaded := openAt(t, dir).User("alice")
	require.NotNil(t, reloaded)
	got := reloaded.Album("Trip").Photos()
	require.Len(t, got, 1)
	assert.True(t, got[0].HasTag("location", "NYC"))
}

func TestImportPhoto(t *testing.T) {
	lib, _ := setupLibrary(t)
	mtime := time.Date(2023, 6, 1, 8, 0, 0, 123456789, time.UTC)

	p, err := lib.ImportPhoto("/p/../p/a.jpg", mtime)
	require.NoError(t, err)
	assert.Equal(t, "/p/a.jpg", p.FilePath())
	assert.Equal(t, "a.jpg", p.Caption())
	assert.Equal(t, 0, p.DateTime().Nanosecond())

	_, err = lib.ImportPhoto("relative/a.jpg", mtime)
	assert.True(t, errors.Is(err, errors.ErrInvalid))
	_, err = lib.ImportPhoto("", mtime)
	assert.True(t, errors.Is(err, errors.ErrInvalid))
}

func TestLogout_keepsNonUTF8Paths(t *testing.T) {
	lib, dir := setupLibrary(t)
	alice, err := lib.CreateUser("alice")
	require.NoError(t, err)
	require.NoError(t, lib.Authenticate("alice"))

	raw, ok := alice.CreateAlbum("Raw")
	require.True(t, ok)
	for _, path := range []string{"/p/\xff.jpg", "/p/\xfe.jpg"} {
		p, err := lib.ImportPhoto(path, time.Date(2023, 6, 1, 8, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.True(t, raw.AddPhoto(p))
	}
	require.True(t, alice.Photo("/p/\xff.jpg").AddTag(models.NewTag("location", "Paris")))
	require.NoError(t, lib.Logout())

	reloaded := openAt(t, dir).User("alice")
	require.NotNil(t, reloaded)
	assert.Equal(t, 2, reloaded.Album("Raw").PhotoCount())
	p := reloaded.Photo("/p/\xff.jpg")
	require.NotNil(t, p)
	assert.True(t, p.HasTag("location", "Paris"))
	assert.NotNil(t, reloaded.Photo("/p/\xfe.jpg"))
}

func TestImportUser(t *testing.T) {
	lib, _ := setupLibrary(t)

	u := models.NewUser("dana")
	u.CreateAlbum("Pets")
	require.NoError(t, lib.ImportUser(u))
	assert.Same(t, u, lib.User("dana"))

	assert.True(t, errors.Is(lib.ImportUser(models.NewUser("dana")), errors.ErrDuplicate))
	assert.True(t, errors.Is(lib.ImportUser(models.NewUser("admin")), errors.ErrReservedName))
	assert.True(t, errors.Is(lib.ImportUser(nil), errors.ErrInvalid))
}

func TestRequireUser(t *testing.T) {
	lib, _ := setupLibrary(t)

	_, err := lib.RequireUser()
	assert.True(t, errors.Is(err, errors.ErrNotAuthenticated))
	assert.True(t, errors.Is(lib.SaveUser(), errors.ErrNotAuthenticated))

	require.NoError(t, lib.Authenticate("admin"))
	_, err = lib.RequireUser()
	assert.True(t, errors.Is(err, errors.ErrNotAuthenticated))
}

// The walkthrough a user would follow: alice files two photos from a trip,
// tags one, then searches by date and by tag.
func TestAliceTripScenario(t *testing.T) {
	lib, _ := setupLibrary(t)
	_, err := lib.CreateUser("alice")
	require.NoError(t, err)
	require.NoError(t, lib.Authenticate("alice"))
	alice, err := lib.RequireUser()
	require.NoError(t, err)

	trip, ok := alice.CreateAlbum("Trip")
	require.True(t, ok)
	a, err := lib.ImportPhoto("/p/a.jpg", time.Date(2023, 6, 1, 15, 0, 0, 0, time.Local))
	require.NoError(t, err)
	b, err := lib.ImportPhoto("/p/b.jpg", time.Date(2023, 6, 10, 9, 0, 0, 0, time.Local))
	require.NoError(t, err)
	require.True(t, trip.AddPhoto(a))
	require.True(t, trip.AddPhoto(b))
	require.True(t, a.AddTag(models.NewTag("location", "NYC")))

	engine := search.NewEngine(time.Local)
	from, err := search.ParseDate("2023-06-01")
	require.NoError(t, err)
	to, err := search.ParseDate("2023-06-05")
	require.NoError(t, err)

	byDate, err := engine.ByDateRange(alice, from, to)
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	assert.Equal(t, "/p/a.jpg", byDate[0].FilePath())

	byTag, err := engine.ByTag(alice, models.NewTag("location", "NYC"))
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	assert.Equal(t, "/p/a.jpg", byTag[0].FilePath())

	_, ok = alice.CreateAlbum("Home")
	require.True(t, ok)
	assert.False(t, alice.RenameAlbum("Trip", "Home"))
	assert.NotNil(t, alice.Album("Trip"))
	assert.NotNil(t, alice.Album("Home"))
}

type brokenBackend struct {
	store.Backend
}

func (brokenBackend) Put(key string, data []byte) error {
	return stderrors.New("read-only file system")
}

func TestCreateUser_writeFailureKeepsUser(t *testing.T) {
	b, err := filestore.New(t.TempDir())
	require.NoError(t, err)
	lib, err := Open(store.New(brokenBackend{b}), nil)
	require.NoError(t, err)

	u, err := lib.CreateUser("bob")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStorageWrite))
	require.NotNil(t, u)
	assert.Same(t, u, lib.User("bob"), "memory stays the source of truth")

	assert.Error(t, lib.Close())
}
