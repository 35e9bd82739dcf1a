// Package snapshot persists partial store state across process restarts.
//
// Each store writes its own key; nothing ever writes another store's key, so
// last-writer-wins per key is safe. Snapshots are wrapped in a versioned
// envelope so a schema change discards stale state instead of crashing.
package snapshot

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
)

// Store is a small durable keyed area for persisted state.
type Store interface {
	// Get returns the stored value and whether the key exists.
	Get(key string) ([]byte, bool, error)

	// Put stores the value under key, replacing any previous value.
	Put(key string, value []byte) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(key string) error

	// Close releases the underlying storage.
	Close() error
}

// Envelope wraps a persisted payload with its schema version.
type Envelope struct {
	Version int             `json:"version"`
	SavedAt time.Time       `json:"saved_at"`
	Payload json.RawMessage `json:"payload"`
}

// Save marshals payload into a versioned envelope and writes it under key.
func Save(s Store, key string, version int, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	envelope, err := json.Marshal(Envelope{
		Version: version,
		SavedAt: time.Now().UTC(),
		Payload: raw,
	})
	if err != nil {
		return err
	}
	return s.Put(key, envelope)
}

// Load reads the envelope under key and unmarshals its payload when the
// stored version matches. A missing key, a version mismatch, or a corrupt
// envelope all yield (false, nil): the caller re-fetches from the remote
// service instead of crashing. Mismatched and corrupt entries are removed.
func Load(s Store, key string, version int, payload any) (bool, error) {
	raw, found, err := s.Get(key)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		log.Warn().Str("key", key).Msg("discarding corrupt persisted snapshot")
		_ = s.Delete(key)
		return false, nil
	}
	if envelope.Version != version {
		log.Info().Str("key", key).Int("stored", envelope.Version).Int("expected", version).Msg("discarding persisted snapshot with mismatched schema version")
		_ = s.Delete(key)
		return false, nil
	}
	if err := json.Unmarshal(envelope.Payload, payload); err != nil {
		log.Warn().Str("key", key).Msg("discarding unreadable persisted snapshot payload")
		_ = s.Delete(key)
		return false, nil
	}
	return true, nil
}
