package repository

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"
)

const (
	jobHashPrefix     = "ImportJob:"
	jobChunkPrefix    = "ImportJob:Chunks:"
	jobFailuresPrefix = "ImportJob:Failures:"
)

const (
	statusField      = "status"
	createdAtField   = "createdAt"
	completedAtField = "completedAt"
	failedAtField    = "failedAt"
	totalField       = "total"
	totalChunksField = "totalChunks"
	processedField   = "processed"
	failedField      = "failed"
	errorField       = "error"
)

type JobRepository interface {
	CreateJob(jobId string, createdAt time.Time) error
	GetJob(jobId string) (*ImportJob, error)
	MarkPending(jobId string, total int, totalChunks int) error
	MarkProcessing(jobId string) error
	MarkCompleted(jobId string, processed int, failed int, completedAt time.Time) error
	MarkFailed(jobId string, reason string, failedAt time.Time) error
	UpdateProgress(jobId string, processed int, failed int) error
	StoreChunk(jobId string, index int, items []json.RawMessage) error
	GetChunk(jobId string, index int) ([]json.RawMessage, error)
	DeleteChunks(jobId string, totalChunks int) error
	AddFailure(jobId string, failure *ItemFailure) error
	GetFailures(jobId string) ([]*ItemFailure, error)
}

type RedisJobRepository struct {
	db redis.UniversalClient
}

func NewRedisJobRepository(db redis.UniversalClient) *RedisJobRepository {
	return &RedisJobRepository{db: db}
}

func (r *RedisJobRepository) CreateJob(jobId string, createdAt time.Time) error {
	err := r.db.HMSet(jobKey(jobId), map[string]interface{}{
		statusField:    string(JobReceiving),
		createdAtField: millis(createdAt),
	}).Err()
	return errors.Wrapf(err, "failed to create job %s", jobId)
}

func (r *RedisJobRepository) GetJob(jobId string) (*ImportJob, error) {
	fields, err := r.db.HGetAll(jobKey(jobId)).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read job %s", jobId)
	}
	if len(fields) == 0 {
		return nil, &ErrJobNotFound{JobId: jobId}
	}

	job := &ImportJob{
		Id:          jobId,
		Status:      JobState(fields[statusField]),
		CreatedAt:   parseInt64(fields[createdAtField]),
		CompletedAt: parseInt64(fields[completedAtField]),
		FailedAt:    parseInt64(fields[failedAtField]),
		Total:       parseInt(fields[totalField]),
		TotalChunks: parseInt(fields[totalChunksField]),
		Processed:   parseInt(fields[processedField]),
		Failed:      parseInt(fields[failedField]),
		Error:       fields[errorField],
	}
	return job, nil
}

func (r *RedisJobRepository) MarkPending(jobId string, total int, totalChunks int) error {
	err := r.db.HMSet(jobKey(jobId), map[string]interface{}{
		statusField:      string(JobPending),
		totalField:       total,
		totalChunksField: totalChunks,
		processedField:   0,
		failedField:      0,
	}).Err()
	return errors.Wrapf(err, "failed to mark job %s pending", jobId)
}

func (r *RedisJobRepository) MarkProcessing(jobId string) error {
	err := r.db.HSet(jobKey(jobId), statusField, string(JobProcessing)).Err()
	return errors.Wrapf(err, "failed to mark job %s processing", jobId)
}

func (r *RedisJobRepository) MarkCompleted(jobId string, processed int, failed int, completedAt time.Time) error {
	err := r.db.HMSet(jobKey(jobId), map[string]interface{}{
		statusField:      string(JobCompleted),
		completedAtField: millis(completedAt),
		processedField:   processed,
		failedField:      failed,
	}).Err()
	return errors.Wrapf(err, "failed to mark job %s completed", jobId)
}

func (r *RedisJobRepository) MarkFailed(jobId string, reason string, failedAt time.Time) error {
	err := r.db.HMSet(jobKey(jobId), map[string]interface{}{
		statusField:   string(JobFailed),
		errorField:    reason,
		failedAtField: millis(failedAt),
	}).Err()
	return errors.Wrapf(err, "failed to mark job %s failed", jobId)
}

func (r *RedisJobRepository) UpdateProgress(jobId string, processed int, failed int) error {
	err := r.db.HMSet(jobKey(jobId), map[string]interface{}{
		processedField: processed,
		failedField:    failed,
	}).Err()
	return errors.Wrapf(err, "failed to update progress of job %s", jobId)
}

func (r *RedisJobRepository) StoreChunk(jobId string, index int, items []json.RawMessage) error {
	data, err := json.Marshal(items)
	if err != nil {
		return errors.WithStack(err)
	}
	err = r.db.Set(chunkKey(jobId, index), data, 0).Err()
	return errors.Wrapf(err, "failed to store chunk %d of job %s", index, jobId)
}

func (r *RedisJobRepository) GetChunk(jobId string, index int) ([]json.RawMessage, error) {
	data, err := r.db.Get(chunkKey(jobId, index)).Bytes()
	if err == redis.Nil {
		return nil, &ErrChunkNotFound{JobId: jobId, Index: index}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read chunk %d of job %s", index, jobId)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.Wrapf(err, "corrupt chunk %d of job %s", index, jobId)
	}
	return items, nil
}

func (r *RedisJobRepository) DeleteChunks(jobId string, totalChunks int) error {
	if totalChunks <= 0 {
		return nil
	}
	keys := make([]string, totalChunks)
	for i := 0; i < totalChunks; i++ {
		keys[i] = chunkKey(jobId, i)
	}
	err := r.db.Del(keys...).Err()
	return errors.Wrapf(err, "failed to delete chunks of job %s", jobId)
}

func (r *RedisJobRepository) AddFailure(jobId string, failure *ItemFailure) error {
	data, err := json.Marshal(failure)
	if err != nil {
		return errors.WithStack(err)
	}
	err = r.db.RPush(jobFailuresPrefix+jobId, data).Err()
	return errors.Wrapf(err, "failed to record failure for job %s", jobId)
}

func (r *RedisJobRepository) GetFailures(jobId string) ([]*ItemFailure, error) {
	entries, err := r.db.LRange(jobFailuresPrefix+jobId, 0, -1).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read failures of job %s", jobId)
	}

	failures := make([]*ItemFailure, 0, len(entries))
	for _, entry := range entries {
		failure := &ItemFailure{}
		if err := json.Unmarshal([]byte(entry), failure); err != nil {
			return nil, errors.Wrapf(err, "corrupt failure record for job %s", jobId)
		}
		failures = append(failures, failure)
	}
	return failures, nil
}

func jobKey(jobId string) string {
	return jobHashPrefix + jobId
}

func chunkKey(jobId string, index int) string {
	return fmt.Sprintf("%s%s:%d", jobChunkPrefix, jobId, index)
}

func millis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

func parseInt(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func parseInt64(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}
