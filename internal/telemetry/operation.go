// Package telemetry wraps a multi-step operation in OpenTelemetry spans:
// one root span for the operation, one child span per step.
package telemetry

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const stepCountKey = "camrig.step_count"

// Operation is a running traced operation. A nil tracer yields a no-op
// Operation whose RunStep still executes step functions.
type Operation struct {
	ctx    context.Context
	tracer trace.Tracer
	span   trace.Span
}

// Start opens the root span for a named operation.
func Start(ctx context.Context, tracer trace.Tracer, name string, stepCount int) *Operation {
	if tracer == nil {
		return &Operation{ctx: ctx}
	}
	spanCtx, span := tracer.Start(ctx, name, trace.WithAttributes(
		attribute.Int(stepCountKey, stepCount),
	))
	return &Operation{ctx: spanCtx, tracer: tracer, span: span}
}

// Context returns the operation's span context for use by steps.
func (o *Operation) Context() context.Context {
	if o == nil || o.ctx == nil {
		return context.Background()
	}
	return o.ctx
}

// RunStep executes fn inside a child span named id. The error is recorded on
// the span and returned unchanged.
func (o *Operation) RunStep(ctx context.Context, id string, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	if o == nil || o.tracer == nil {
		return fn(ctx)
	}
	if ctx == nil {
		ctx = o.ctx
	}

	stepCtx, span := o.tracer.Start(ctx, id)
	defer span.End()

	if err := fn(stepCtx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, strings.TrimSpace(err.Error()))
		return err
	}
	return nil
}

// End closes the root span, recording err when non-nil.
func (o *Operation) End(err error) {
	if o == nil || o.span == nil {
		return
	}
	if err != nil {
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, strings.TrimSpace(err.Error()))
	}
	o.span.End()
}
