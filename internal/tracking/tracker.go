// Package tracking remembers when each OpenStack item was first observed so
// that age-based cleanup policies are stable across runs. Most OpenStack item
// types report no creation time, so "age" here means time since first
// observation, not time since creation.
package tracking

import (
	"fmt"
	"sync"
	"time"

	"github.com/catherinevee/tenantcleaner/internal/models"
)

// Store is the backend primitive layer. Implementations only persist
// records; idempotency and batching live in Tracker so that every backend
// behaves identically.
type Store interface {
	// Insert persists a record for the key. The caller guarantees no record
	// exists for the key.
	Insert(key models.Key, created time.Time) error

	// Delete removes the record for the key. Deleting an absent key is not
	// an error.
	Delete(key models.Key) error

	// Created returns the stored first-observed time for the key, and
	// whether a record exists. An I/O failure must surface as an error, not
	// as absence.
	Created(key models.Key) (time.Time, bool, error)

	// Identifiers enumerates tracked identifiers, optionally filtered to one
	// item type.
	Identifiers(filter *models.ItemType) ([]models.Identifier, error)

	Close() error
}

// Tracker answers "how old is this item" on top of any Store.
type Tracker struct {
	store Store
	mu    sync.Mutex
	now   func() time.Time
}

// New creates a tracker over the given store
func New(store Store) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// SetNowFunc overrides the clock. Tests only.
func (t *Tracker) SetNowFunc(now func() time.Time) {
	t.now = now
}

// Age returns how long the item has been tracked. The second return is false
// when the item has no record (never registered, or unregistered since).
// Backend failures propagate: absence always means "never seen", never
// "could not read".
func (t *Tracker) Age(item models.Item) (time.Duration, bool, error) {
	created, ok, err := t.store.Created(models.KeyOf(item))
	if err != nil {
		return 0, false, fmt.Errorf("tracker: reading record for %s: %w", models.HumanID(item), err)
	}
	if !ok {
		return 0, false, nil
	}
	return t.now().Sub(created), true, nil
}

// Register records first observation of the given items. Items that already
// have a record are skipped silently: re-registering must never move the
// first-observed time, otherwise age would mean "time since last run".
// Items that carry their own creation time (models.Timestamped) are recorded
// with it; everything else is recorded at the current wall-clock time.
func (t *Tracker) Register(items ...models.Item) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, item := range items {
		key := models.KeyOf(item)
		_, ok, err := t.store.Created(key)
		if err != nil {
			return fmt.Errorf("tracker: reading record for %s: %w", models.HumanID(item), err)
		}
		if ok {
			continue
		}
		created := t.now()
		if ts, ok := item.(models.Timestamped); ok {
			created = ts.CreatedAt()
		}
		if err := t.store.Insert(key, created); err != nil {
			return fmt.Errorf("tracker: registering %s: %w", models.HumanID(item), err)
		}
	}
	return nil
}

// Unregister forgets the given items. Unknown items are a no-op.
func (t *Tracker) Unregister(items ...models.Item) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, item := range items {
		if err := t.store.Delete(models.KeyOf(item)); err != nil {
			return fmt.Errorf("tracker: unregistering %s: %w", models.HumanID(item), err)
		}
	}
	return nil
}

// RegisteredIdentifiers returns the identifiers of all tracked items,
// optionally filtered to one item type. The surrounding system diffs this
// against the live tenant to find items that vanished and should be
// unregistered.
func (t *Tracker) RegisteredIdentifiers(filter *models.ItemType) ([]models.Identifier, error) {
	ids, err := t.store.Identifiers(filter)
	if err != nil {
		return nil, fmt.Errorf("tracker: listing identifiers: %w", err)
	}
	return ids, nil
}

// Close releases the underlying store
func (t *Tracker) Close() error {
	return t.store.Close()
}
