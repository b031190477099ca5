package voting

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisDraftsRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	drafts := NewRedisDrafts(client, time.Hour)
	id := uuid.New()

	d, err := drafts.Load(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, d)

	at := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, drafts.Save(ctx, id, &Draft{PhotoIDs: []int64{4, 2}, Submitting: true, UpdatedAt: at}))
	assert.Equal(t, time.Hour, mr.TTL(draftKey(id)))

	d, err = drafts.Load(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, []int64{4, 2}, d.PhotoIDs)
	assert.True(t, d.Submitting)
	assert.True(t, at.Equal(d.UpdatedAt))

	require.NoError(t, drafts.Delete(ctx, id))
	d, err = drafts.Load(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestDraftInFlightGoesStale(t *testing.T) {
	now := time.Now()
	d := &Draft{Submitting: true, UpdatedAt: now.Add(-2 * submitStaleAfter)}
	assert.False(t, d.InFlight(now))
	d.UpdatedAt = now
	assert.True(t, d.InFlight(now))
	var none *Draft
	assert.False(t, none.InFlight(now))
}
