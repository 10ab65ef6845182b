package mongodb

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/audit-service/pkg/logging"
	"github.com/wms-platform/audit-service/pkg/metrics"
)

// Observer wraps repository operations with a client span, prometheus metrics and a debug log line.
// A zero Observer (or nil metrics/logger) still runs the operation.
type Observer struct {
	database string
	metrics  *metrics.Metrics
	logger   *logging.Logger
	tracer   trace.Tracer
}

// NewObserver creates an Observer for database
func NewObserver(database string, m *metrics.Metrics, logger *logging.Logger) *Observer {
	return &Observer{
		database: database,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("mongodb"),
	}
}

// Observe runs fn, recording duration and outcome. fn returns the number of documents affected.
func (o *Observer) Observe(ctx context.Context, collection, operation string, fn func(ctx context.Context) (int64, error)) error {
	if o == nil {
		_, err := fn(ctx)
		return err
	}

	tracer := o.tracer
	if tracer == nil {
		tracer = otel.Tracer("mongodb")
	}

	ctx, span := tracer.Start(ctx, "mongodb."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "mongodb"),
			attribute.String("db.name", o.database),
			attribute.String("db.mongodb.collection", collection),
			attribute.String("db.operation", operation),
		),
	)
	defer span.End()

	start := time.Now()
	affected, err := fn(ctx)
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Int64("db.rows_affected", affected))
	}

	if o.metrics != nil {
		o.metrics.RecordMongoDBOperation(collection, operation, err == nil, duration)
	}
	if o.logger != nil {
		o.logger.DatabaseQuery(ctx, collection, operation, duration, err == nil, affected)
	}

	return err
}
