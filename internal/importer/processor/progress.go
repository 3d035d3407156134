package processor

// JobProgress tracks item counters for a single running job. It is owned
// by exactly one worker goroutine and is the only source of truth for the
// counters while the job runs; the job record is just a projection of it.
type JobProgress struct {
	Processed int
	Failed    int

	total      int
	flushEvery int
}

func NewJobProgress(total int, processed int, failed int, flushEvery int) *JobProgress {
	return &JobProgress{
		Processed:  processed,
		Failed:     failed,
		total:      total,
		flushEvery: flushEvery,
	}
}

// Success records one successfully created item and reports whether the
// counters should be persisted now. Successes are batched: they flush
// every flushEvery items, and always when the last item has been
// attempted.
func (p *JobProgress) Success() (flush bool) {
	p.Processed++
	return p.Processed%p.flushEvery == 0 || p.Attempted() == p.total
}

// Failure records one rejected item. Failures always flush so they become
// visible as soon as possible.
func (p *JobProgress) Failure() (flush bool) {
	p.Failed++
	return true
}

func (p *JobProgress) Attempted() int {
	return p.Processed + p.Failed
}
