package model

import "errors"

// Sentinel errors. Each is wrapped with fmt.Errorf("op=...: %w", err) at the
// boundary that produced it, the way the teacher wraps its domain errors.
var (
	// ErrInvalidArgument marks a malformed request (bad JSON shape, missing
	// required field). Never surfaced beyond the accepted/rejected
	// distinction at the HTTP boundary.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrQueueFull marks a job-submission channel with no remaining capacity.
	ErrQueueFull = errors.New("job queue full")

	// ErrSourceRegistration marks a connector that could not register a
	// source under the engine (C3/C1 construction failure). Fatal to the job.
	ErrSourceRegistration = errors.New("source registration failed")
	// ErrMatchSQL marks the engine refusing, or a batch stream erroring
	// during, the user-supplied match SQL. Fatal; reported stage="matching".
	ErrMatchSQL = errors.New("match sql execution failed")
	// ErrEvidenceWrite marks the columnar evidence writer failing. Logged,
	// not fatal to the counts already computed, but blocks the completion
	// callback.
	ErrEvidenceWrite = errors.New("evidence write failed")
	// ErrCallback marks a callback delivery failure. Best-effort for
	// progress/error; retried-then-logged for completion.
	ErrCallback = errors.New("callback delivery failed")
	// ErrEngine marks an infrastructure failure, typically surfaced through
	// the cluster probe. Triggers fallback, not job failure.
	ErrEngine = errors.New("engine unavailable")
)
