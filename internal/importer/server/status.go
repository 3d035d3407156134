package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/maeconomy-org/iob-import/internal/importer/repository"
)

type statusResponse struct {
	JobId       string `json:"jobId"`
	Status      string `json:"status"`
	Total       int    `json:"total"`
	Processed   int    `json:"processed"`
	Failed      int    `json:"failed"`
	Error       string `json:"error,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
	CompletedAt int64  `json:"completedAt,omitempty"`
	FailedAt    int64  `json:"failedAt,omitempty"`
}

type failuresResponse struct {
	JobId    string                    `json:"jobId"`
	Failures []*repository.ItemFailure `json:"failures"`
}

// handleStatus projects the job record read-only for polling clients.
func (s *ImportServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobId := chi.URLParam(r, "jobId")

	job, err := s.repo.GetJob(jobId)
	var notFound *repository.ErrJobNotFound
	if errors.As(err, &notFound) {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		log.WithError(err).Errorf("failed to read job %s", jobId)
		writeError(w, http.StatusInternalServerError, "Failed to read job status")
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		JobId:       job.Id,
		Status:      string(job.Status),
		Total:       job.Total,
		Processed:   job.Processed,
		Failed:      job.Failed,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
		FailedAt:    job.FailedAt,
	})
}

// handleFailures lists the audit records of items the downstream sink
// rejected, in the order they failed.
func (s *ImportServer) handleFailures(w http.ResponseWriter, r *http.Request) {
	jobId := chi.URLParam(r, "jobId")

	_, err := s.repo.GetJob(jobId)
	var notFound *repository.ErrJobNotFound
	if errors.As(err, &notFound) {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		log.WithError(err).Errorf("failed to read job %s", jobId)
		writeError(w, http.StatusInternalServerError, "Failed to read job failures")
		return
	}

	failures, err := s.repo.GetFailures(jobId)
	if err != nil {
		log.WithError(err).Errorf("failed to read failures of job %s", jobId)
		writeError(w, http.StatusInternalServerError, "Failed to read job failures")
		return
	}

	writeJSON(w, http.StatusOK, failuresResponse{
		JobId:    jobId,
		Failures: failures,
	})
}
