// Package storetest holds the behavior every store.Backend must share.
package storetest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimhsiao/photolib/backend/internal/errors"
	"github.com/kimhsiao/photolib/backend/internal/store"
)

// RunBackendTests exercises a fresh backend from newBackend. The backend is
// closed by the caller's cleanup, not here.
func RunBackendTests(t *testing.T, newBackend func(t *testing.T) store.Backend) {
	t.Run("get missing", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Get("users/nobody")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrNotFound))
	})

	t.Run("put then get", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Put("admin", []byte(`{"a":1}`)))

		got, err := b.Get("admin")
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, string(got))
	})

	t.Run("put overwrites", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Put("users/alice", []byte("first, longer payload")))
		require.NoError(t, b.Put("users/alice", []byte("second")))

		got, err := b.Get("users/alice")
		require.NoError(t, err)
		assert.Equal(t, "second", string(got))
	})

	t.Run("delete", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Put("users/alice", []byte("x")))
		require.NoError(t, b.Delete("users/alice"))

		_, err := b.Get("users/alice")
		assert.True(t, errors.Is(err, errors.ErrNotFound))

		err = b.Delete("users/alice")
		assert.True(t, errors.Is(err, errors.ErrNotFound), "deleting twice reports not found")
	})

	t.Run("keys by prefix", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Put("admin", []byte("r")))
		require.NoError(t, b.Put("users/bob", []byte("b")))
		require.NoError(t, b.Put("users/alice", []byte("a")))

		keys, err := b.Keys("users/")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"users/alice", "users/bob"}, keys)

		all, err := b.Keys("")
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("awkward usernames", func(t *testing.T) {
		b := newBackend(t)
		for _, name := range []string{"a/b", "..", "100%", "Ünïcode name"} {
			key := store.UserKey(name)
			require.NoError(t, b.Put(key, []byte(name)), "put %q", name)
			got, err := b.Get(key)
			require.NoError(t, err, "get %q", name)
			assert.Equal(t, name, string(got))
		}

		keys, err := b.Keys("users/")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"users/a/b", "users/..", "users/100%", "users/Ünïcode name"}, keys)
	})
}
