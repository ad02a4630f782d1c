// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for the syntax engine.
var (
	tracer = otel.Tracer("aleutian.syntax.engine")
	meter  = otel.Meter("aleutian.syntax.engine")
)

// Metrics for parse and query operations.
var (
	parseLatency metric.Float64Histogram
	parseTotal   metric.Int64Counter
	parseErrors  metric.Int64Counter
	queryLatency metric.Float64Histogram
	queryMatches metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		parseLatency, err = meter.Float64Histogram(
			"syntax_parse_duration_seconds",
			metric.WithDescription("Duration of tree-sitter parse operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		parseTotal, err = meter.Int64Counter(
			"syntax_parse_total",
			metric.WithDescription("Total number of parse operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		parseErrors, err = meter.Int64Counter(
			"syntax_parse_errors_total",
			metric.WithDescription("Total number of engine-internal parse failures"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		queryLatency, err = meter.Float64Histogram(
			"syntax_query_duration_seconds",
			metric.WithDescription("Duration of tree-sitter query executions"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		queryMatches, err = meter.Int64Histogram(
			"syntax_query_matches",
			metric.WithDescription("Number of matches produced per query execution"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordParseMetrics records metrics for a parse operation.
func recordParseMetrics(ctx context.Context, language string, duration time.Duration, success bool) {
	if err := initMetrics(); err != nil {
		return // Silently skip if metrics init failed
	}

	attrs := metric.WithAttributes(
		attribute.String("language", language),
		attribute.Bool("success", success),
	)

	parseLatency.Record(ctx, duration.Seconds(), attrs)
	parseTotal.Add(ctx, 1, attrs)

	if !success {
		parseErrors.Add(ctx, 1,
			metric.WithAttributes(attribute.String("language", language)),
		)
	}
}

// recordQueryMetrics records metrics for a query execution.
func recordQueryMetrics(ctx context.Context, language string, duration time.Duration, matches int) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("language", language))
	queryLatency.Record(ctx, duration.Seconds(), attrs)
	queryMatches.Record(ctx, int64(matches), attrs)
}

// startParseSpan creates a span for a parse operation.
func startParseSpan(ctx context.Context, language string, contentSize int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Engine.Parse",
		trace.WithAttributes(
			attribute.String("syntax.language", language),
			attribute.Int("syntax.content_size", contentSize),
		),
	)
}

// startQuerySpan creates a span for a query execution.
func startQuerySpan(ctx context.Context, language string, querySize int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Engine.Query",
		trace.WithAttributes(
			attribute.String("syntax.language", language),
			attribute.Int("syntax.query_size", querySize),
		),
	)
}
