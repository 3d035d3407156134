package repository

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis"
	"github.com/go-redis/redis"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

func TestCreateAndGetJob(t *testing.T) {
	withRepository(t, func(r *RedisJobRepository) {
		err := r.CreateJob("job-1", testTime)
		require.NoError(t, err)

		job, err := r.GetJob("job-1")
		require.NoError(t, err)
		assert.Equal(t, "job-1", job.Id)
		assert.Equal(t, JobReceiving, job.Status)
		assert.Equal(t, testTime.UnixNano()/int64(time.Millisecond), job.CreatedAt)
		assert.Equal(t, 0, job.Total)
		assert.Equal(t, 0, job.Processed)
	})
}

func TestGetJob_NotFound(t *testing.T) {
	withRepository(t, func(r *RedisJobRepository) {
		_, err := r.GetJob("no-such-job")
		var notFound *ErrJobNotFound
		require.True(t, errors.As(err, &notFound))
		assert.Equal(t, "no-such-job", notFound.JobId)
	})
}

func TestJobLifecycle(t *testing.T) {
	withRepository(t, func(r *RedisJobRepository) {
		require.NoError(t, r.CreateJob("job-1", testTime))

		require.NoError(t, r.MarkPending("job-1", 250, 3))
		job, err := r.GetJob("job-1")
		require.NoError(t, err)
		assert.Equal(t, JobPending, job.Status)
		assert.Equal(t, 250, job.Total)
		assert.Equal(t, 3, job.TotalChunks)
		assert.Equal(t, 0, job.Processed)
		assert.Equal(t, 0, job.Failed)

		require.NoError(t, r.MarkProcessing("job-1"))
		job, err = r.GetJob("job-1")
		require.NoError(t, err)
		assert.Equal(t, JobProcessing, job.Status)
		assert.False(t, job.Status.IsTerminal())

		completedAt := testTime.Add(time.Minute)
		require.NoError(t, r.MarkCompleted("job-1", 248, 2, completedAt))
		job, err = r.GetJob("job-1")
		require.NoError(t, err)
		assert.Equal(t, JobCompleted, job.Status)
		assert.True(t, job.Status.IsTerminal())
		assert.Equal(t, 248, job.Processed)
		assert.Equal(t, 2, job.Failed)
		assert.Equal(t, completedAt.UnixNano()/int64(time.Millisecond), job.CompletedAt)
	})
}

func TestMarkFailed(t *testing.T) {
	withRepository(t, func(r *RedisJobRepository) {
		require.NoError(t, r.CreateJob("job-1", testTime))
		require.NoError(t, r.MarkFailed("job-1", "Invalid JSON format", testTime.Add(time.Second)))

		job, err := r.GetJob("job-1")
		require.NoError(t, err)
		assert.Equal(t, JobFailed, job.Status)
		assert.True(t, job.Status.IsTerminal())
		assert.Equal(t, "Invalid JSON format", job.Error)
		assert.Equal(t, testTime.Add(time.Second).UnixNano()/int64(time.Millisecond), job.FailedAt)
	})
}

func TestUpdateProgress(t *testing.T) {
	withRepository(t, func(r *RedisJobRepository) {
		require.NoError(t, r.CreateJob("job-1", testTime))
		require.NoError(t, r.MarkPending("job-1", 20, 1))

		require.NoError(t, r.UpdateProgress("job-1", 10, 1))
		job, err := r.GetJob("job-1")
		require.NoError(t, err)
		assert.Equal(t, 10, job.Processed)
		assert.Equal(t, 1, job.Failed)
	})
}

func TestChunkRoundTrip(t *testing.T) {
	withRepository(t, func(r *RedisJobRepository) {
		submitted := makeItems(250)
		chunks := [][]json.RawMessage{submitted[0:100], submitted[100:200], submitted[200:250]}

		for i, chunk := range chunks {
			require.NoError(t, r.StoreChunk("job-1", i, chunk))
		}

		var reconstructed []json.RawMessage
		for i := range chunks {
			chunk, err := r.GetChunk("job-1", i)
			require.NoError(t, err)
			reconstructed = append(reconstructed, chunk...)
		}
		assert.Equal(t, submitted, reconstructed)
	})
}

func TestGetChunk_NotFound(t *testing.T) {
	withRepository(t, func(r *RedisJobRepository) {
		_, err := r.GetChunk("job-1", 7)
		var notFound *ErrChunkNotFound
		require.True(t, errors.As(err, &notFound))
		assert.Equal(t, "job-1", notFound.JobId)
		assert.Equal(t, 7, notFound.Index)
	})
}

func TestDeleteChunks(t *testing.T) {
	withRepository(t, func(r *RedisJobRepository) {
		items := makeItems(5)
		require.NoError(t, r.StoreChunk("job-1", 0, items[0:3]))
		require.NoError(t, r.StoreChunk("job-1", 1, items[3:5]))

		require.NoError(t, r.DeleteChunks("job-1", 2))

		var notFound *ErrChunkNotFound
		_, err := r.GetChunk("job-1", 0)
		assert.True(t, errors.As(err, &notFound))
		_, err = r.GetChunk("job-1", 1)
		assert.True(t, errors.As(err, &notFound))
	})
}

func TestFailures_AppendOnlyInOrder(t *testing.T) {
	withRepository(t, func(r *RedisJobRepository) {
		first := &ItemFailure{Index: 2, Object: json.RawMessage(`{"name":"a"}`), Error: "duplicate", Timestamp: 1000}
		second := &ItemFailure{Index: 7, Object: json.RawMessage(`{"name":"b"}`), Error: "rejected", Timestamp: 2000}

		require.NoError(t, r.AddFailure("job-1", first))
		require.NoError(t, r.AddFailure("job-1", second))

		failures, err := r.GetFailures("job-1")
		require.NoError(t, err)
		require.Len(t, failures, 2)
		assert.Equal(t, first, failures[0])
		assert.Equal(t, second, failures[1])
	})
}

func TestGetFailures_Empty(t *testing.T) {
	withRepository(t, func(r *RedisJobRepository) {
		failures, err := r.GetFailures("job-1")
		require.NoError(t, err)
		assert.Empty(t, failures)
	})
}

func withRepository(t *testing.T, action func(r *RedisJobRepository)) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	action(NewRedisJobRepository(client))
}

func makeItems(n int) []json.RawMessage {
	items := make([]json.RawMessage, n)
	for i := range items {
		items[i] = json.RawMessage(fmt.Sprintf(`{"index":%d}`, i))
	}
	return items
}
