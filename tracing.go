// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope of kernel spans.
const tracerName = "github.com/gogpu/kernel"

func (c *Context) startSpan(name string) trace.Span {
	_, span := c.tracer.Start(context.Background(), name,
		trace.WithAttributes(
			attribute.String("kernel.engine", c.own.engine.Name()),
			attribute.Int64("kernel.context", int64(c.ID())),
		))
	return span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
