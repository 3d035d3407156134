package repository

import "fmt"

// ErrJobNotFound is returned whenever a job id does not resolve to a job
// record, including records that have expired or were never created.
type ErrJobNotFound struct {
	JobId string
}

func (err *ErrJobNotFound) Error() string {
	return fmt.Sprintf("could not find job %q", err.JobId)
}

// ErrChunkNotFound is returned when a chunk record that should exist,
// according to the job's totalChunks field, is absent from the store.
type ErrChunkNotFound struct {
	JobId string
	Index int
}

func (err *ErrChunkNotFound) Error() string {
	return fmt.Sprintf("could not find chunk %d of job %q", err.Index, err.JobId)
}
