// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command syntax starts the Aleutian Syntax API server.
//
// Aleutian Syntax provides a workspace-confined code analysis service:
//   - Sandboxed view of one directory tree (no path ever escapes the root)
//   - Tree-sitter parsing for 19 languages
//   - Structural queries with tree-sitter's pattern language
//   - Atomic file saves
//
// Usage:
//
//	go run ./cmd/syntax -workspace /path/to/project
//	go run ./cmd/syntax -workspace . -port 9090
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/health
//
//	# Supported languages
//	curl http://localhost:8080/languages | jq
//
//	# List the workspace root
//	curl http://localhost:8080/files
//
//	# Parse a file
//	curl -X POST http://localhost:8080/parse \
//	  -H "Content-Type: application/json" \
//	  -d '{"path": "main.py"}'
//
//	# Find every function name in a file
//	curl -X POST http://localhost:8080/query \
//	  -H "Content-Type: application/json" \
//	  -d '{"path": "main.py", "query": "(function_definition name: (identifier) @func.name)"}'
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/AleutianAI/AleutianSyntax/services/syntax"
)

func main() {
	port := flag.Int("port", defaultPort(), "Port to listen on")
	workspace := flag.String("workspace", os.Getenv("WORKSPACE_DIR"), "Workspace root directory to serve")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	if *workspace == "" {
		*workspace = "."
	}

	// Set Gin mode
	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Set up W3C TraceContext propagation so trace context flows from
	// incoming headers through all handlers.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// Export OTel metrics through the Prometheus registry so /metrics
	// serves parse and query instrumentation.
	exporter, err := otelprom.New()
	if err != nil {
		slog.Error("Failed to create Prometheus exporter", slog.String("error", err.Error()))
		os.Exit(1)
	}
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)))

	// Create service
	cfg := syntax.DefaultServiceConfig(*workspace)
	svc, err := syntax.NewService(cfg)
	if err != nil {
		slog.Error("Failed to create syntax service",
			slog.String("workspace", *workspace),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers := syntax.NewHandlers(svc)

	// Setup router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("aleutian-syntax"))
	if *debug {
		router.Use(gin.Logger())
	}

	syntax.RegisterRoutes(router, handlers)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	printBanner(*port, svc.WorkspaceRoot(), len(svc.Languages()))

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slog.Info("Shutting down Aleutian Syntax server")
		os.Exit(0)
	}()

	// Start server
	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Starting Aleutian Syntax server",
		slog.String("address", addr),
		slog.String("workspace", svc.WorkspaceRoot()))
	if err := router.Run(addr); err != nil {
		slog.Error("Failed to start server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// defaultPort returns the PORT environment variable when set, 8080 otherwise.
func defaultPort() int {
	if raw := os.Getenv("PORT"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return 8080
}

func printBanner(port int, workspaceRoot string, languages int) {
	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                     ALEUTIAN SYNTAX SERVER                        ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  Workspace-confined parsing and structural queries.               ║
║  Workspace: %-53s ║
║  Languages: %-53d ║
║                                                                   ║
║  Quick Start:                                                     ║
║  ┌─────────────────────────────────────────────────────────────┐  ║
║  │ # Health check                                              │  ║
║  │ curl http://localhost:%d/health                       │  ║
║  │                                                             │  ║
║  │ # List workspace files                                      │  ║
║  │ curl http://localhost:%d/files                        │  ║
║  │                                                             │  ║
║  │ # Parse a file                                              │  ║
║  │ curl -X POST http://localhost:%d/parse \              │  ║
║  │   -H "Content-Type: application/json" \                     │  ║
║  │   -d '{"path": "main.py"}'                                  │  ║
║  └─────────────────────────────────────────────────────────────┘  ║
║                                                                   ║
║  Endpoints:                                                       ║
║  ├── Workspace: /files, /file, /save                             ║
║  ├── Analysis: /parse, /query, /languages                        ║
║  └── Operational: /health, /ready, /metrics                      ║
║                                                                   ║
║  Press Ctrl+C to stop                                             ║
╚═══════════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, workspaceRoot, languages, port, port, port)
}
