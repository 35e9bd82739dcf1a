package repofakes

import (
	"sync"

	"github.com/raterly/go-raterly/snapshot"
)

var _ snapshot.Store = (*FakeStore)(nil)

// FakeStore is an in-memory snapshot.Store for tests.
type FakeStore struct {
	values map[string][]byte
	lock   sync.RWMutex

	PutErr error
	GetErr error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{values: make(map[string][]byte)}
}

func (fs *FakeStore) Get(key string) ([]byte, bool, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	if fs.GetErr != nil {
		return nil, false, fs.GetErr
	}
	value, ok := fs.values[key]
	if !ok {
		return nil, false, nil
	}
	copied := make([]byte, len(value))
	copy(copied, value)
	return copied, true, nil
}

func (fs *FakeStore) Put(key string, value []byte) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	if fs.PutErr != nil {
		return fs.PutErr
	}
	copied := make([]byte, len(value))
	copy(copied, value)
	fs.values[key] = copied
	return nil
}

func (fs *FakeStore) Delete(key string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	delete(fs.values, key)
	return nil
}

func (fs *FakeStore) Close() error {
	return nil
}

// Has reports whether a key is currently stored.
func (fs *FakeStore) Has(key string) bool {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	_, ok := fs.values[key]
	return ok
}
