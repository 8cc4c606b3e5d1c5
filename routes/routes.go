// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jinterlante1206/AleutianProlog/dispatch"
	"github.com/jinterlante1206/AleutianProlog/handlers"
)

// SetupRoutes registers all endpoints on the router.
//
// POST /query is the primary endpoint; /v1/query is the same handler under
// the versioned prefix used by the rest of the Aleutian services.
func SetupRoutes(router *gin.Engine, dispatcher *dispatch.Dispatcher, enableMetrics bool) {
	router.GET("/health", handlers.HealthCheck)
	if enableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	query := handlers.HandleQuery(dispatcher)
	router.POST("/query", query)

	v1 := router.Group("/v1")
	{
		v1.POST("/query", query)
	}
}
