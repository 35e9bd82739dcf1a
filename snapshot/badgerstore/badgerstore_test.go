package badgerstore_test

import (
	"testing"

	"github.com/raterly/go-raterly/snapshot/badgerstore"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *badgerstore.Store {
	t.Helper()
	store, err := badgerstore.Open(badgerstore.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutGetDelete(t *testing.T) {
	store := openTestStore(t)

	_, found, err := store.Get("session-store")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.Put("session-store", []byte(`{"v":1}`)))

	value, found, err := store.Get("session-store")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte(`{"v":1}`), value)

	require.NoError(t, store.Delete("session-store"))

	_, found, err = store.Get("session-store")
	require.NoError(t, err)
	require.False(t, found)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := badgerstore.Open(badgerstore.Config{})
	require.Error(t, err)
}
