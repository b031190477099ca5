package export

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/best-shot/backend/internal/models"
)

func TestJobStores(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	for name, jobs := range map[string]JobStore{
		"redis":  NewRedisJobStore(client),
		"memory": NewMemoryJobStore(),
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := jobs.Get(ctx, uuid.New())
			assert.ErrorIs(t, err, ErrJobNotFound)

			job := &models.ExportJob{ID: uuid.New(), Status: models.ExportQueued, CreatedAt: time.Now().UTC()}
			require.NoError(t, jobs.Save(ctx, job))
			job.Status = models.ExportDone
			job.S3Key = "exports/x/BestShot_Result.pdf"
			job.MissingImages = []int64{4}
			require.NoError(t, jobs.Save(ctx, job))

			got, err := jobs.Get(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, models.ExportDone, got.Status)
			assert.Equal(t, []int64{4}, got.MissingImages)
		})
	}
	assert.Equal(t, jobTTL, mr.TTL(jobKeyPrefix+mustOnlyKey(t, mr)))
}

func mustOnlyKey(t *testing.T, mr *miniredis.Miniredis) string {
	t.Helper()
	keys := mr.Keys()
	require.Len(t, keys, 1)
	return keys[0][len(jobKeyPrefix):]
}
