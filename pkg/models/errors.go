package models

// ErrorKind is the client-visible error taxonomy from spec.md §7.
type ErrorKind string

const (
	ErrorKindBadInput          ErrorKind = "bad_input"
	ErrorKindUnavailable       ErrorKind = "unavailable"
	ErrorKindModelTimeout      ErrorKind = "model_timeout"
	ErrorKindParseError        ErrorKind = "parse_error"
	ErrorKindRetrievalRequired ErrorKind = "retrieval_required"
	ErrorKindTimeout           ErrorKind = "timeout"
	ErrorKindInternal          ErrorKind = "internal"
)

// JobError is the {kind, message} pair stored on a terminal-error job and
// surfaced verbatim in API responses and the final SSE status_update.
type JobError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *JobError) Error() string {
	if e == nil {
		return ""
	}
	return string(e.Kind) + ": " + e.Message
}

// NewJobError constructs a JobError, the only way call sites should build one
// so the kind/message pairing stays intentional.
func NewJobError(kind ErrorKind, message string) *JobError {
	return &JobError{Kind: kind, Message: message}
}
