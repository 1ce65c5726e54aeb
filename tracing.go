// Copyright 2024 The University of Queensland
// Copyright 2025 Contriboss
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pubgrub

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/contriboss/pubgrub-composer"

// defaultTracer follows the globally registered provider, which is a no-op
// until the application installs one.
func defaultTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// startSolveSpan opens the span covering one solve.
func startSolveSpan(ctx context.Context, tracer trace.Tracer, runID string, root Name, requirements int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "pubgrub.Solve",
		trace.WithAttributes(
			attribute.String("pubgrub.run_id", runID),
			attribute.String("pubgrub.root", root.String()),
			attribute.Int("pubgrub.requirements", requirements),
		),
	)
}

// endSolveSpan records the outcome of a solve on its span and closes it.
func endSolveSpan(span trace.Span, steps, packages int, err error) {
	span.SetAttributes(
		attribute.Int("pubgrub.steps", steps),
		attribute.Int("pubgrub.packages", packages),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, KindOf(err).String())
	}
	span.End()
}

// startFetchSpan opens a span around a metadata lookup made by the solver.
func startFetchSpan(ctx context.Context, tracer trace.Tracer, name Name) (context.Context, trace.Span) {
	return tracer.Start(ctx, "pubgrub.Releases",
		trace.WithAttributes(attribute.String("pubgrub.package", name.String())),
	)
}

// endFetchSpan records the fetch result and closes the span.
func endFetchSpan(span trace.Span, releases int, err error) {
	span.SetAttributes(attribute.Int("pubgrub.releases", releases))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
