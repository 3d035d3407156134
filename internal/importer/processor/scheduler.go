package processor

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Scheduler spawns one goroutine per import job and supervises it: a
// job-level error is logged here in addition to being written to the job
// record, so store outages are visible in the server logs.
type Scheduler struct {
	worker *Worker
	wg     sync.WaitGroup
}

func NewScheduler(worker *Worker) *Scheduler {
	return &Scheduler{worker: worker}
}

// Schedule starts processing jobId in the background and returns
// immediately; it never blocks the caller.
func (s *Scheduler) Schedule(jobId string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Infof("starting worker for import job %s", jobId)
		if err := s.worker.Run(context.Background(), jobId); err != nil {
			log.WithError(err).Errorf("import job %s failed", jobId)
		}
	}()
}

// Wait blocks until all in-flight jobs have finished, or until the timeout
// elapses. It returns true if it timed out.
func (s *Scheduler) Wait(timeout time.Duration) bool {
	c := make(chan struct{})
	go func() {
		defer close(c)
		s.wg.Wait()
	}()
	select {
	case <-c:
		return false
	case <-time.After(timeout):
		return true
	}
}
