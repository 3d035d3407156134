package repository

import "encoding/json"

type JobState string

const (
	JobReceiving  JobState = "receiving"
	JobPending    JobState = "pending"
	JobProcessing JobState = "processing"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

// IsTerminal reports whether no further state transitions are possible.
func (s JobState) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// ImportJob is the metadata record of one bulk import. Timestamps are
// milliseconds since epoch; zero means unset.
type ImportJob struct {
	Id          string
	Status      JobState
	CreatedAt   int64
	CompletedAt int64
	FailedAt    int64
	Total       int
	TotalChunks int
	Processed   int
	Failed      int
	Error       string
}

// ItemFailure is the audit record of a single item the downstream sink
// rejected. Index refers to the item's position in the submitted array.
type ItemFailure struct {
	Index     int             `json:"index"`
	Object    json.RawMessage `json:"object"`
	Error     string          `json:"error"`
	Timestamp int64           `json:"timestamp"`
}
