package rag

import "errors"

var (
	// ErrRetrievalUnavailable means the vector index could not be reached.
	// It is propagated to the caller without internal retries.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrGenerationFailed means the generation model was unreachable or
	// errored. The conversation transcript is not appended to in this case.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrGradingFailed marks a single unparseable relevance judgment. It is
	// absorbed by the grading stage: the affected candidate is dropped and
	// the pipeline continues.
	ErrGradingFailed = errors.New("grading failed")
)
