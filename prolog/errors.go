// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package prolog

import "fmt"

// Error codes, loosely modeled on the ISO error term vocabulary.
const (
	CodeSyntax        = "syntax_error"
	CodeExistence     = "existence_error"
	CodeType          = "type_error"
	CodeInstantiation = "instantiation_error"
	CodeEvaluation    = "evaluation_error"
	CodePermission    = "permission_error"
	CodeDepthLimit    = "depth_limit_exceeded"
)

// Error is an engine-level failure raised while reading a program or
// resolving a goal. It is distinct from goal failure: a goal that merely has
// no solutions does not produce an Error.
type Error struct {
	Code   string
	Detail string
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Detail
}

func syntaxErrorf(line, col int, format string, args ...any) *Error {
	return &Error{
		Code:   CodeSyntax,
		Detail: fmt.Sprintf("line %d, column %d: %s", line, col, fmt.Sprintf(format, args...)),
	}
}

func existenceError(indicator string) *Error {
	return &Error{Code: CodeExistence, Detail: "unknown predicate " + indicator}
}

func typeError(expected string, culprit *Term) *Error {
	return &Error{Code: CodeType, Detail: "expected " + expected + ", got " + culprit.String()}
}

func instantiationError(context string) *Error {
	return &Error{Code: CodeInstantiation, Detail: "unbound variable in " + context}
}

func evaluationError(detail string) *Error {
	return &Error{Code: CodeEvaluation, Detail: detail}
}

func permissionError(detail string) *Error {
	return &Error{Code: CodePermission, Detail: detail}
}

func depthLimitError(limit int) *Error {
	return &Error{Code: CodeDepthLimit, Detail: fmt.Sprintf("resolution exceeded %d frames", limit)}
}
