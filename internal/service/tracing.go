package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Huzaifa785/rewear-backend/pkg/tracing"
)

// Clock 当前时间来源，测试中可替换
type Clock func() time.Time

// SystemClock 返回 UTC 当前时间
func SystemClock() time.Time { return time.Now().UTC() }

var tracer = otel.Tracer(tracing.TracerName)

// startSpan 开启业务 Span；返回的 end 记录错误并结束 Span
func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(err error)) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
