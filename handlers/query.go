// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the gin handlers of the query service.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jinterlante1206/AleutianProlog/datatypes"
	"github.com/jinterlante1206/AleutianProlog/dispatch"
	"github.com/jinterlante1206/AleutianProlog/session"
)

var queryTracer = otel.Tracer("aleutian.prolog.handlers")

// HandleQuery serves POST /query.
//
// Shape validation happens here, before the dispatcher is involved: a
// request with a missing or empty program or query is rejected with 400 and
// no interpreter is ever created for it.
func HandleQuery(dispatcher *dispatch.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := queryTracer.Start(c.Request.Context(), "HandleQuery")
		defer span.End()

		var req datatypes.QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Warn("rejected malformed query request", "error", err)
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
				Error:  string(session.KindRequestMalformed),
				Detail: "body must be a JSON object with non-empty program and query strings",
			})
			return
		}
		if err := req.Validate(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
				Error:  string(session.KindRequestMalformed),
				Detail: err.Error(),
			})
			return
		}
		span.SetAttributes(
			attribute.Int("query.program_bytes", len(req.Program)),
			attribute.Int("query.query_bytes", len(req.Query)),
		)

		outcomes, err := dispatcher.Dispatch(ctx, req)
		if err != nil {
			kind := session.Classify(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, string(kind))
			slog.Warn("query failed", "error_kind", string(kind), "detail", session.Detail(err))
			c.JSON(statusFor(kind), datatypes.ErrorResponse{
				Error:  string(kind),
				Detail: session.Detail(err),
			})
			return
		}

		span.SetAttributes(attribute.Int("query.solutions", len(outcomes)))
		c.JSON(http.StatusOK, datatypes.QueryResponse{Results: outcomes})
	}
}

// statusFor maps the session error taxonomy onto HTTP status codes: input
// that never parses is the client's fault, runtime failure of a loadable
// program is unprocessable, and blowing the budget is a gateway timeout.
func statusFor(kind session.ErrorKind) int {
	switch kind {
	case session.KindRequestMalformed, session.KindLoadFailed, session.KindQueryInvalid:
		return http.StatusBadRequest
	case session.KindExecutionFailed:
		return http.StatusUnprocessableEntity
	case session.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
