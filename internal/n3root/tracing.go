// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package n3root

import (
	"context"

	"github.com/HoKim98/n3/internal/execvars"
	"github.com/HoKim98/n3/internal/ir"
	"github.com/HoKim98/n3/internal/program"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName identifies this module's spans in whatever exporter the host
// process has wired into the global otel.TracerProvider - grounded on
// cmd/aleutian/internal/diagnostics/tracer.go's DiagnosticsTracer, trimmed
// to just the span-creation half: a compiler has no request to propagate a
// trace context from, so there is no server-side extraction/exporter setup
// here, only the span boundaries a caller's own provider can collect.
const tracerName = "github.com/HoKim98/n3/internal/n3root"

// WithTracer attaches an explicit trace.Tracer to Root, overriding the
// global otel.Tracer(tracerName) a Root uses by default. Passing a
// noop tracer (the default when no provider is registered) makes every
// span a zero-cost no-op, so tracing stays opt-in without a build tag.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

func (o *options) tracerOrDefault() trace.Tracer {
	if o.tracer != nil {
		return o.tracer
	}
	return otel.Tracer(tracerName)
}

// GetTraced is the Go counterpart of DiagnosticsCollector's span-wrapped
// request handling: it opens a span named "n3root.Get" around Root.Get,
// tagging it with the exec node name and recording the outcome, then
// delegates to Get. Callers that don't care about tracing should keep
// calling Get directly; GetTraced exists for hosts that already thread a
// context.Context (and its trace) through a compile request.
func (r *Root) GetTraced(ctx context.Context, name string, args *execvars.Vars) (program.Program, error) {
	_, span := r.tracer.Start(ctx, "n3root.Get", trace.WithAttributes(
		attribute.String("n3.exec_name", name),
	))
	defer span.End()

	prog, err := r.Get(name, args)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return program.Program{}, err
	}
	span.SetStatus(codes.Ok, "")
	return prog, nil
}

// ResolveNodeTraced is ResolveNode's span-wrapped counterpart, used when a
// host resolves a Node(_)-typed variable (execlower's pruning step) under
// an existing trace.
func (r *Root) ResolveNodeTraced(ctx context.Context, name string) (ir.TensorNode, error) {
	_, span := r.tracer.Start(ctx, "n3root.ResolveNode", trace.WithAttributes(
		attribute.String("n3.node_name", name),
	))
	defer span.End()

	node, err := r.ResolveNode(name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ir.TensorNode{}, err
	}
	span.SetStatus(codes.Ok, "")
	return node, nil
}
