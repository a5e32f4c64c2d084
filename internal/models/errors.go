package models

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord marks a line that is not valid JSON or a record that
	// breaks a structural invariant. Skipped and counted.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrMalformedArticle marks an article whose sentences and sentiments
	// cannot be paired up.
	ErrMalformedArticle = fmt.Errorf("%w: article", ErrMalformedRecord)

	// ErrContractViolation marks a record that reached a stage without the
	// fields that stage requires. The record is aborted, not the run.
	ErrContractViolation = errors.New("contract violation")

	// ErrExternalService marks a collaborator call that failed after retries.
	ErrExternalService = errors.New("external service failure")

	// ErrNoOverlap means predictions and gold share no join key.
	ErrNoOverlap = errors.New("no overlap between predictions and gold")

	// ErrInsufficientData means a stream is too short to satisfy a request.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrIOFailure means a stream was truncated or corrupt mid-read.
	ErrIOFailure = errors.New("io failure")
)

const excerptRunes = 120

// RecordError attaches identifying context to a per-record failure.
type RecordError struct {
	Kind    error
	Key     string
	Line    int
	Excerpt string
	Err     error
}

// NewRecordError builds a RecordError with the excerpt truncated for logs.
func NewRecordError(kind error, key string, line int, content string, err error) *RecordError {
	return &RecordError{
		Kind:    kind,
		Key:     key,
		Line:    line,
		Excerpt: Truncate(content, excerptRunes),
		Err:     err,
	}
}

func (e *RecordError) Error() string {
	msg := e.Kind.Error()
	if e.Line > 0 {
		msg = fmt.Sprintf("%s (line %d)", msg, e.Line)
	}
	if e.Key != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Key)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the taxonomy kind and the underlying cause.
func (e *RecordError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Truncate shortens s to at most n runes, marking the cut with "…".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
