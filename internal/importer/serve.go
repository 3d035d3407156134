package importer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/maeconomy-org/iob-import/internal/common/health"
	"github.com/maeconomy-org/iob-import/internal/importer/configuration"
	"github.com/maeconomy-org/iob-import/internal/importer/processor"
	"github.com/maeconomy-org/iob-import/internal/importer/repository"
	"github.com/maeconomy-org/iob-import/internal/importer/server"
	"github.com/maeconomy-org/iob-import/internal/importer/sink"
)

const shutdownDrainTimeout = 30 * time.Second

// Serve wires the import pipeline together and runs the HTTP surface
// until ctx is cancelled or a server error occurs.
func Serve(ctx context.Context, config *configuration.ImportServerConfig, healthChecks *health.MultiChecker) error {
	log.Info("Import server starting")
	defer log.Info("Import server shutting down")

	config.Import = config.Import.ApplyDefaults()

	startupCompleteCheck := health.NewStartupCompleteChecker()
	healthChecks.Add(startupCompleteCheck)

	db := redis.NewUniversalClient(&config.Redis)
	defer func() {
		if err := db.Close(); err != nil {
			log.WithError(err).Error("failed to close Redis client")
		}
	}()
	healthChecks.Add(repository.NewRedisHealth(db))

	jobRepository := repository.NewRedisJobRepository(db)

	// One token bucket shared by all workers: concurrently running jobs
	// split the downstream call budget instead of multiplying it.
	limiter := rate.NewLimiter(rate.Every(config.Import.ItemDelay), 1)
	objectSink := sink.NewHTTPSink(config.Import.ObjectApiUrl)
	worker := processor.NewWorker(jobRepository, objectSink, limiter, config.Import)
	scheduler := processor.NewScheduler(worker)

	importServer := server.New(jobRepository, scheduler, config.Import)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.HttpPort),
		Handler:           importServer.Routes(healthChecks),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("Import API listening on %d", config.HttpPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("failed to shut down import API cleanly")
		}
		if timedOut := scheduler.Wait(shutdownDrainTimeout); timedOut {
			log.Warn("timed out waiting for in-flight import jobs to finish")
		}
		return nil
	})

	startupCompleteCheck.MarkComplete()
	return g.Wait()
}
