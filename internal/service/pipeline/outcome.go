// Package pipeline runs the per-message ingestion state machine and the sync
// entry points built on it.
package pipeline

// Outcome is the result of one stage: a value or the error that stopped it
type Outcome[T any] struct {
	Value T
	Err   error
}

func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

func Failed[T any](err error) Outcome[T] {
	return Outcome[T]{Err: err}
}

func (o Outcome[T]) OK() bool {
	return o.Err == nil
}

// Status is the terminal state of one message
type Status string

const (
	StatusAlreadyProcessed     Status = "already_processed"
	StatusFiltered             Status = "filtered"
	StatusRecordFailed         Status = "record_failed"
	StatusNotFeatureRequest    Status = "not_feature_request"
	StatusClassificationFailed Status = "classification_failed"
	StatusExtractionFailed     Status = "extraction_failed"
	StatusLinked               Status = "linked"
	StatusCreated              Status = "created"
	StatusPersistenceFailed    Status = "persistence_failed"
)

// Failed reports whether the message should count as a failure in a sync summary
func (s Status) Failed() bool {
	return s == StatusRecordFailed || s == StatusPersistenceFailed
}

// StageFailure records a degraded or failed stage
type StageFailure struct {
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// MessageResult summarizes how one message went through the pipeline
type MessageResult struct {
	SourceID         string         `json:"source_id"`
	Status           Status         `json:"status"`
	RecordID         string         `json:"record_id,omitempty"`
	FeatureRequestID *string        `json:"feature_request_id,omitempty"`
	FeedbackID       *string        `json:"feedback_id,omitempty"`
	Matched          bool           `json:"matched"`
	Failures         []StageFailure `json:"failures,omitempty"`
}

func (r *MessageResult) fail(stage string, err error) {
	r.Failures = append(r.Failures, StageFailure{Stage: stage, Error: err.Error()})
}
