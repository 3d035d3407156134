package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/maeconomy-org/iob-import/internal/common/health"
	"github.com/maeconomy-org/iob-import/internal/common/util"
	"github.com/maeconomy-org/iob-import/internal/importer/configuration"
	"github.com/maeconomy-org/iob-import/internal/importer/processor"
	"github.com/maeconomy-org/iob-import/internal/importer/repository"
)

// ImportServer is the HTTP surface of the bulk import pipeline: the
// ingestion gateway plus the read-only status endpoints polled by the UI.
type ImportServer struct {
	repo      repository.JobRepository
	scheduler *processor.Scheduler
	config    configuration.ImportConfig
	clock     util.Clock
}

func New(
	repo repository.JobRepository,
	scheduler *processor.Scheduler,
	config configuration.ImportConfig,
) *ImportServer {
	return &ImportServer{
		repo:      repo,
		scheduler: scheduler,
		config:    config,
		clock:     &util.DefaultClock{},
	}
}

func (s *ImportServer) Routes(checker health.Checker) chi.Router {
	r := chi.NewRouter()
	r.Post("/api/import", s.handleImport)
	r.Get("/api/import/{jobId}", s.handleStatus)
	r.Get("/api/import/{jobId}/failures", s.handleFailures)
	r.Method(http.MethodGet, "/health", health.NewHealthCheckHttpHandler(checker))
	return r
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Error("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
