// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import "errors"

// ErrorKind classifies a query failure for transport mapping. The kind
// string is what clients see in the "error" field.
type ErrorKind string

const (
	// KindRequestMalformed: missing or empty request fields, rejected before
	// any interpreter is created.
	KindRequestMalformed ErrorKind = "request_malformed"
	// KindLoadFailed: the program failed to parse or load as clauses.
	KindLoadFailed ErrorKind = "load_failed"
	// KindQueryInvalid: the query text failed to parse as a goal.
	KindQueryInvalid ErrorKind = "query_invalid"
	// KindExecutionFailed: a runtime error during resolution, e.g. an
	// undefined predicate or a type error in arithmetic.
	KindExecutionFailed ErrorKind = "execution_failed"
	// KindTimeout: the query exceeded its execution budget.
	KindTimeout ErrorKind = "timeout"
	// KindInternal: an unexpected engine or worker fault.
	KindInternal ErrorKind = "internal_failure"
)

// Error is a classified session failure. Exactly one Error reaches the
// client per failed request; partial results are never attached.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func NewError(kind ErrorKind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Detail
}

// Classify extracts the error kind, defaulting to internal_failure for
// anything that is not a session error.
func Classify(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// Detail extracts the human-readable detail of a session error.
func Detail(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Detail
	}
	return err.Error()
}
