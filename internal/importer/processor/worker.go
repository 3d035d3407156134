package processor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/maeconomy-org/iob-import/internal/common/util"
	"github.com/maeconomy-org/iob-import/internal/importer/configuration"
	"github.com/maeconomy-org/iob-import/internal/importer/metrics"
	"github.com/maeconomy-org/iob-import/internal/importer/repository"
	"github.com/maeconomy-org/iob-import/internal/importer/sink"
)

// Worker drives one import job from processing to a terminal state. The
// rate limiter is shared between all workers so that concurrently running
// jobs cannot collectively exceed the intended downstream call rate.
type Worker struct {
	repo    repository.JobRepository
	sink    sink.ObjectSink
	limiter *rate.Limiter
	config  configuration.ImportConfig
	clock   util.Clock
}

func NewWorker(
	repo repository.JobRepository,
	objectSink sink.ObjectSink,
	limiter *rate.Limiter,
	config configuration.ImportConfig,
) *Worker {
	return &Worker{
		repo:    repo,
		sink:    objectSink,
		limiter: limiter,
		config:  config,
		clock:   &util.DefaultClock{},
	}
}

// Run processes the given job to completion. Invoking it on a missing or
// already terminal job is a no-op, so duplicate scheduling is harmless.
// A returned error means the whole job was aborted; the job record has
// already been marked failed by the time Run returns.
func (w *Worker) Run(ctx context.Context, jobId string) error {
	job, err := w.repo.GetJob(jobId)
	var notFound *repository.ErrJobNotFound
	if errors.As(err, &notFound) {
		log.Warnf("import job %s does not exist, nothing to process", jobId)
		return nil
	}
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		log.Infof("import job %s already %s, skipping", jobId, job.Status)
		return nil
	}

	metrics.JobsInflight.Inc()
	defer metrics.JobsInflight.Dec()

	if err := w.process(ctx, job); err != nil {
		if markErr := w.repo.MarkFailed(jobId, err.Error(), w.clock.Now()); markErr != nil {
			log.WithError(markErr).Errorf("failed to mark job %s failed", jobId)
		}
		metrics.JobsFailed.Inc()
		return errors.Wrapf(err, "import job %s aborted", jobId)
	}

	metrics.JobsCompleted.Inc()
	return nil
}

func (w *Worker) process(ctx context.Context, job *repository.ImportJob) error {
	// Chunks are reclaimed on every exit path, success or failure, so an
	// aborted job does not leak chunk records.
	defer func() {
		if err := w.repo.DeleteChunks(job.Id, job.TotalChunks); err != nil {
			log.WithError(err).Warnf("failed to delete chunks of job %s", job.Id)
		}
	}()

	items, err := w.reconstruct(job)
	if err != nil {
		return err
	}

	progress := NewJobProgress(job.Total, job.Processed, job.Failed, w.config.ProgressFlushEvery)
	for i, item := range items {
		if err := w.limiter.Wait(ctx); err != nil {
			return errors.WithStack(err)
		}

		if sinkErr := w.sink.Create(ctx, item); sinkErr != nil {
			metrics.ItemsFailed.Inc()
			progress.Failure()
			if err := w.repo.UpdateProgress(job.Id, progress.Processed, progress.Failed); err != nil {
				return err
			}
			failure := &repository.ItemFailure{
				Index:     i,
				Object:    item,
				Error:     sinkErr.Error(),
				Timestamp: w.clock.Now().UnixNano() / int64(time.Millisecond),
			}
			if err := w.repo.AddFailure(job.Id, failure); err != nil {
				return err
			}
			log.WithError(sinkErr).Warnf("item %d of job %s rejected by object api", i, job.Id)
			continue
		}

		metrics.ItemsProcessed.Inc()
		if progress.Success() {
			if err := w.repo.UpdateProgress(job.Id, progress.Processed, progress.Failed); err != nil {
				return err
			}
		}
	}

	return w.repo.MarkCompleted(job.Id, progress.Processed, progress.Failed, w.clock.Now())
}

// reconstruct reads all chunk records in index order and concatenates them
// back into the originally submitted item array. A missing chunk aborts
// the job: silently skipping it would under-process relative to total.
func (w *Worker) reconstruct(job *repository.ImportJob) ([]json.RawMessage, error) {
	items := make([]json.RawMessage, 0, job.Total)
	for i := 0; i < job.TotalChunks; i++ {
		chunk, err := w.repo.GetChunk(job.Id, i)
		if err != nil {
			return nil, err
		}
		items = append(items, chunk...)
	}
	return items, nil
}
