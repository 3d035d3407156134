package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/maeconomy-org/iob-import/internal/common/util"
	"github.com/maeconomy-org/iob-import/internal/importer/metrics"
)

type importRequest struct {
	Objects []json.RawMessage `json:"objects"`
}

type importResponse struct {
	JobId        string `json:"jobId"`
	Status       string `json:"status"`
	Message      string `json:"message"`
	TotalObjects int    `json:"totalObjects"`
}

// handleImport accepts one bulk import payload, persists it as chunk
// records and schedules the background worker. The job record is created
// before the body is read, so every accepted upload attempt is observable
// even when a later step fails.
func (s *ImportServer) handleImport(w http.ResponseWriter, r *http.Request) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "Content type must be application/json")
		return
	}

	jobId := util.NewULID()
	if err := s.repo.CreateJob(jobId, s.clock.Now()); err != nil {
		log.WithError(err).Error("failed to create import job record")
		writeError(w, http.StatusInternalServerError, "Failed to start import job")
		return
	}
	logger := log.WithField("jobId", jobId)

	if r.Body == nil {
		s.failJob(logger, jobId, "Request body could not be read")
		writeError(w, http.StatusBadRequest, "Request body could not be read")
		return
	}

	// Read at most one byte over the ceiling so an oversized upload is
	// rejected without buffering the rest of it.
	body, err := io.ReadAll(io.LimitReader(r.Body, s.config.MaxPayloadBytes+1))
	if err != nil {
		s.failJob(logger, jobId, "Request body could not be read")
		writeError(w, http.StatusBadRequest, "Request body could not be read")
		return
	}
	if int64(len(body)) > s.config.MaxPayloadBytes {
		message := fmt.Sprintf("Payload too large (exceeds %dMB)", s.config.MaxPayloadBytes/(1024*1024))
		s.failJob(logger, jobId, message)
		writeError(w, http.StatusRequestEntityTooLarge, message)
		return
	}

	var request importRequest
	if err := json.Unmarshal(body, &request); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			s.failJob(logger, jobId, "Invalid data: objects must be a non-empty array")
			writeError(w, http.StatusBadRequest, "Invalid data: objects must be a non-empty array")
		} else {
			s.failJob(logger, jobId, "Invalid JSON format")
			writeError(w, http.StatusBadRequest, "Invalid JSON format")
		}
		return
	}
	if len(request.Objects) == 0 {
		s.failJob(logger, jobId, "Invalid data: objects must be a non-empty array")
		writeError(w, http.StatusBadRequest, "Invalid data: objects must be a non-empty array")
		return
	}

	total := len(request.Objects)
	chunks := util.Chunk(request.Objects, s.config.ChunkSize)

	if err := s.repo.MarkPending(jobId, total, len(chunks)); err != nil {
		s.internalError(logger, w, jobId, err)
		return
	}
	for i, chunk := range chunks {
		if err := s.repo.StoreChunk(jobId, i, chunk); err != nil {
			s.internalError(logger, w, jobId, err)
			return
		}
	}
	if err := s.repo.MarkProcessing(jobId); err != nil {
		s.internalError(logger, w, jobId, err)
		return
	}

	// Hand off to the worker without blocking the response.
	s.scheduler.Schedule(jobId)

	metrics.JobsStarted.Inc()
	metrics.PayloadBytes.Observe(float64(len(body)))
	logger.Infof("accepted import of %d objects in %d chunks", total, len(chunks))

	writeJSON(w, http.StatusOK, importResponse{
		JobId:        jobId,
		Status:       "started",
		Message:      fmt.Sprintf("Import of %d objects started", total),
		TotalObjects: total,
	})
}

// failJob records a client input error on the job record. The record is
// never deleted: a failed upload attempt stays observable.
func (s *ImportServer) failJob(logger *log.Entry, jobId string, reason string) {
	logger.Warnf("rejecting import: %s", reason)
	if err := s.repo.MarkFailed(jobId, reason, s.clock.Now()); err != nil {
		logger.WithError(err).Error("failed to mark job failed")
	}
}

func (s *ImportServer) internalError(logger *log.Entry, w http.ResponseWriter, jobId string, err error) {
	logger.WithError(err).Error("failed to start import job")
	if markErr := s.repo.MarkFailed(jobId, err.Error(), s.clock.Now()); markErr != nil {
		logger.WithError(markErr).Error("failed to mark job failed")
	}
	writeError(w, http.StatusInternalServerError, "Failed to start import job")
}
