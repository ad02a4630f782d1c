// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package syntax

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all syntax service routes with the router.
//
// Description:
//
//	Registers the root-level syntax endpoints with the given Gin router.
//	The router should already have any required middleware applied.
//
// Inputs:
//
//	router - Gin router
//	handlers - The handlers instance
//
// Endpoints:
//
//	GET  /languages - List supported language ids
//	GET  /files - List a workspace directory
//	GET  /file - Read a workspace file
//	POST /save - Create or overwrite a workspace file
//	POST /parse - Parse a source into a syntax tree
//	POST /query - Run a structural pattern over a source
//	GET  /health - Health check
//	GET  /ready - Readiness check
//
// Example:
//
//	service, err := syntax.NewService(syntax.DefaultServiceConfig(root))
//	if err != nil {
//		log.Fatal(err)
//	}
//	handlers := syntax.NewHandlers(service)
//	syntax.RegisterRoutes(router, handlers)
func RegisterRoutes(router *gin.Engine, handlers *Handlers) {
	// Workspace view
	router.GET("/languages", handlers.HandleLanguages)
	router.GET("/files", handlers.HandleListFiles)
	router.GET("/file", handlers.HandleReadFile)
	router.POST("/save", handlers.HandleSave)

	// Analysis
	router.POST("/parse", handlers.HandleParse)
	router.POST("/query", handlers.HandleQuery)

	// Health checks
	router.GET("/health", handlers.HandleHealth)
	router.GET("/ready", handlers.HandleReady)
}
