// Package enginerr defines the typed error kinds returned by the bundle
// engine's public API, mirroring the classify-then-wrap idiom the teacher
// uses for its own error reporting.
package enginerr

import (
	"errors"
	"fmt"

	"github.com/outfitforge/bundleengine/internal/model"
)

// Kind classifies why a generate/replace/explain call failed.
type Kind int

const (
	// InvalidInput indicates malformed or contradictory request input:
	// an unknown slot, a profile missing required fields, and so on.
	InvalidInput Kind = iota

	// NoTemplate indicates the rule set has no template matching the
	// requested occasion and dressiness band.
	NoTemplate

	// NoBundle indicates every beam candidate was eliminated by hard
	// constraints before a complete bundle could be assembled.
	NoBundle

	// Deadline indicates the request's context deadline elapsed before
	// assembly completed.
	Deadline

	// IndexError indicates the candidate index returned an error while
	// being queried (a wardrobe or catalog lookup failure).
	IndexError

	// Busy indicates the engine rejected the request under backpressure
	// because too many requests were already in flight.
	Busy

	// Internal indicates a defect in the engine itself rather than in
	// the request or its dependencies.
	Internal
)

// String returns the kind's wire/log name.
func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "INVALID_INPUT"
	case NoTemplate:
		return "NO_TEMPLATE"
	case NoBundle:
		return "NO_BUNDLE"
	case Deadline:
		return "DEADLINE"
	case IndexError:
		return "INDEX_ERROR"
	case Busy:
		return "BUSY"
	case Internal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// Error is the typed error carried out of the engine's public API.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// ViolationCode and Slot record, for a NoBundle error, the dominant
	// hard-constraint violation and the slot where pruning eliminated the
	// last surviving candidate path. Both are empty for every other Kind.
	ViolationCode string
	Slot          model.Slot
}

// Error implements the error interface.
func (e *Error) Error() string {
	suffix := ""
	if e.ViolationCode != "" {
		suffix = fmt.Sprintf(" (violation=%s slot=%s)", e.ViolationCode, e.Slot)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v%s", e.Kind, e.Message, e.Cause, suffix)
	}
	return fmt.Sprintf("%s: %s%s", e.Kind, e.Message, suffix)
}

// Unwrap returns the wrapped cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds a *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a *Error wrapping an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// NewNoBundle builds a NoBundle *Error recording the dominant violation
// code and the slot where beam search pruning eliminated the last
// candidate path (§7).
func NewNoBundle(message string, violationCode string, slot model.Slot) *Error {
	return &Error{Kind: NoBundle, Message: message, ViolationCode: violationCode, Slot: slot}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and
// Internal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
