package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a failure so callers can react without parsing messages.
type Kind string

const (
	KindNotParticipant    Kind = "not_participant"
	KindOwnerOnly         Kind = "owner_only"
	KindInvalidTransition Kind = "invalid_transition"
	KindEmptyFeedback     Kind = "empty_feedback"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindValidation        Kind = "validation_error"
	KindUpstream          Kind = "upstream_failure"
	KindInvalidCredential Kind = "invalid_credential"
)

// Error is the structured error returned by every core operation.
type Error struct {
	Kind   Kind
	Op     string
	Detail string
	Fields map[string]string
	Err    error
}

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrNotParticipant    = &Error{Kind: KindNotParticipant}
	ErrOwnerOnly         = &Error{Kind: KindOwnerOnly}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrEmptyFeedback     = &Error{Kind: KindEmptyFeedback}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrUpstream          = &Error{Kind: KindUpstream}
	ErrInvalidCredential = &Error{Kind: KindInvalidCredential}
)

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%s", k, e.Fields[k])
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind so wrapped errors compare equal to the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Retryable reports whether re-submitting the same request may succeed.
// Conflicts need a re-fetch first; upstream failures need backoff.
func (e *Error) Retryable() bool {
	return e.Kind == KindConflict || e.Kind == KindUpstream
}

// E builds an error of the given kind.
func E(kind Kind, op, detail string) *Error {
	return &Error{Kind: kind, Op: op, Detail: detail}
}

// Wrap attaches a kind to an underlying cause.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// InvalidTransition reports a move the transition table does not allow.
func InvalidTransition(from, to Status, role Role) *Error {
	return &Error{
		Kind:   KindInvalidTransition,
		Detail: "transition not allowed",
		Fields: map[string]string{
			"from": string(from),
			"to":   string(to),
			"role": string(role),
		},
	}
}

// Validation reports a missing or malformed field.
func Validation(op, field, detail string) *Error {
	return &Error{
		Kind:   KindValidation,
		Op:     op,
		Detail: detail,
		Fields: map[string]string{"field": field},
	}
}

// KindOf extracts the kind of err, or "" for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// WithOp returns err tagged with op when it is a bare *Error.
func WithOp(op string, err error) error {
	var e *Error
	if errors.As(err, &e) && e.Op == "" {
		cp := *e
		cp.Op = op
		return &cp
	}
	return err
}
