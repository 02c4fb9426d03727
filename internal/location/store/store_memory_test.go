package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kakrote/udyam-registration-app/internal/location/models"
	"github.com/Kakrote/udyam-registration-app/internal/location/service"
	"github.com/Kakrote/udyam-registration-app/internal/location/store"
	"github.com/Kakrote/udyam-registration-app/pkg/platform/sentinel"
)

var (
	_ service.Store = (*store.InMemoryStore)(nil)
	_ service.Store = (*store.PostgresStore)(nil)
	_ service.Store = (*store.RedisStore)(nil)
)

func delhi(city string) models.LocationRecord {
	return models.LocationRecord{
		PostalCode: models.MustPostalCode("110001"),
		City:       city,
		District:   "Central Delhi",
		State:      "Delhi",
		Source:     models.SourceUpstream,
		ResolvedAt: time.Now(),
	}
}

func TestInMemoryStore_GetUnknownIsNotFound(t *testing.T) {
	s := store.NewInMemoryStore()
	_, err := s.Get(context.Background(), models.MustPostalCode("999999"))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStore_FirstWriteWins(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryStore()

	stored, err := s.PutIfAbsent(ctx, delhi("New Delhi"))
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = s.PutIfAbsent(ctx, delhi("Somewhere Else"))
	require.NoError(t, err)
	assert.False(t, stored, "later write must be ignored")

	got, err := s.Get(ctx, models.MustPostalCode("110001"))
	require.NoError(t, err)
	assert.Equal(t, "New Delhi", got.City)
	assert.Equal(t, "Central Delhi", got.District)
	assert.Equal(t, "Delhi", got.State)
}

func TestInMemoryStore_ConcurrentPutIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemoryStore()
	const goroutines = 50

	var wg sync.WaitGroup
	var winners atomic.Int32
	for i := range goroutines {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stored, err := s.PutIfAbsent(ctx, delhi(string(rune('A'+i%26))))
			assert.NoError(t, err)
			if stored {
				winners.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	assert.Equal(t, 1, s.Len())
}
