package tracking

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catherinevee/tenantcleaner/internal/models"
)

func newTestTracker(t *testing.T, store Store) *Tracker {
	t.Helper()
	tracker := New(store)
	t.Cleanup(func() { tracker.Close() })
	return tracker
}

// eachStore runs the same contract tests over every backend.
func eachStore(t *testing.T, run func(t *testing.T, tracker *Tracker)) {
	t.Run("memory", func(t *testing.T) {
		run(t, newTestTracker(t, NewMemoryStore()))
	})
	t.Run("sqlite", func(t *testing.T) {
		store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tracker.db"))
		require.NoError(t, err)
		run(t, newTestTracker(t, store))
	})
}

func TestTracker_RegisterIsIdempotent(t *testing.T) {
	eachStore(t, func(t *testing.T, tracker *Tracker) {
		now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		tracker.SetNowFunc(func() time.Time { return now })

		keypair := models.Keypair{Identifier: "kp-1", KeypairName: "kp-1"}
		require.NoError(t, tracker.Register(keypair))

		age1, ok, err := tracker.Age(keypair)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, time.Duration(0), age1)

		// Second registration a day later must not reset the clock.
		now = now.Add(24 * time.Hour)
		require.NoError(t, tracker.Register(keypair))

		age2, ok, err := tracker.Age(keypair)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 24*time.Hour, age2)
	})
}

func TestTracker_TimestampedItemsUseOwnCreationTime(t *testing.T) {
	eachStore(t, func(t *testing.T, tracker *Tracker) {
		now := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
		tracker.SetNowFunc(func() time.Time { return now })

		image := models.Image{
			Identifier: "img-1",
			ImageName:  "base",
			Created:    now.Add(-72 * time.Hour),
		}
		require.NoError(t, tracker.Register(image))

		age, ok, err := tracker.Age(image)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 72*time.Hour, age)
	})
}

func TestTracker_UnregisterClearsState(t *testing.T) {
	eachStore(t, func(t *testing.T, tracker *Tracker) {
		keypair := models.Keypair{Identifier: "kp-1", KeypairName: "kp-1"}
		require.NoError(t, tracker.Register(keypair))

		require.NoError(t, tracker.Unregister(keypair))

		_, ok, err := tracker.Age(keypair)
		require.NoError(t, err)
		assert.False(t, ok)

		// Unregistering an unknown item is a no-op, never an error.
		require.NoError(t, tracker.Unregister(keypair))
	})
}

func TestTracker_AgeIsMonotonic(t *testing.T) {
	eachStore(t, func(t *testing.T, tracker *Tracker) {
		now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		tracker.SetNowFunc(func() time.Time { return now })

		keypair := models.Keypair{Identifier: "kp-1", KeypairName: "kp-1"}
		require.NoError(t, tracker.Register(keypair))

		var previous time.Duration
		for i := 0; i < 5; i++ {
			age, ok, err := tracker.Age(keypair)
			require.NoError(t, err)
			require.True(t, ok)
			assert.GreaterOrEqual(t, age, previous)
			previous = age
			now = now.Add(time.Minute)
		}
	})
}

func TestTracker_RegisteredIdentifiers(t *testing.T) {
	eachStore(t, func(t *testing.T, tracker *Tracker) {
		require.NoError(t, tracker.Register(
			models.Image{Identifier: "img-1"},
			models.Image{Identifier: "img-2"},
			models.Keypair{Identifier: "kp-1", KeypairName: "kp-1"},
		))

		all, err := tracker.RegisteredIdentifiers(nil)
		require.NoError(t, err)
		assert.ElementsMatch(t, []models.Identifier{"img-1", "img-2", "kp-1"}, all)

		imageType := models.ItemTypeImage
		images, err := tracker.RegisteredIdentifiers(&imageType)
		require.NoError(t, err)
		assert.ElementsMatch(t, []models.Identifier{"img-1", "img-2"}, images)
	})
}

func TestTracker_SameIdentifierDifferentTypes(t *testing.T) {
	eachStore(t, func(t *testing.T, tracker *Tracker) {
		require.NoError(t, tracker.Register(
			models.Image{Identifier: "shared"},
			models.Instance{Identifier: "shared"},
		))

		require.NoError(t, tracker.Unregister(models.Image{Identifier: "shared"}))

		_, ok, err := tracker.Age(models.Image{Identifier: "shared"})
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = tracker.Age(models.Instance{Identifier: "shared"})
		require.NoError(t, err)
		assert.True(t, ok, "records are keyed by type and identifier")
	})
}

// failingStore returns an error from every primitive.
type failingStore struct{ err error }

func (f failingStore) Insert(models.Key, time.Time) error { return f.err }
func (f failingStore) Delete(models.Key) error            { return f.err }
func (f failingStore) Created(models.Key) (time.Time, bool, error) {
	return time.Time{}, false, f.err
}
func (f failingStore) Identifiers(*models.ItemType) ([]models.Identifier, error) {
	return nil, f.err
}
func (f failingStore) Close() error { return nil }

func TestTracker_BackendFailuresPropagate(t *testing.T) {
	backendErr := errors.New("disk on fire")
	tracker := New(failingStore{err: backendErr})
	keypair := models.Keypair{Identifier: "kp-1", KeypairName: "kp-1"}

	_, _, err := tracker.Age(keypair)
	assert.ErrorIs(t, err, backendErr, "a read failure must not look like absence")

	assert.ErrorIs(t, tracker.Register(keypair), backendErr)
	assert.ErrorIs(t, tracker.Unregister(keypair), backendErr)

	_, err = tracker.RegisteredIdentifiers(nil)
	assert.ErrorIs(t, err, backendErr)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	key := models.Key{Type: models.ItemTypeImage, ID: "img-1"}
	require.NoError(t, store.Insert(key, created))
	require.NoError(t, store.Close())

	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	got, ok, err := store.Created(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(created))
}
