package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	RequestCounter     metric.Int64Counter
	RequestDuration    metric.Float64Histogram
	IngestionDuration  metric.Float64Histogram
	ChunksIndexed      metric.Int64Counter
	DatabaseOperations metric.Int64Counter
}

// InitMetrics initializes all application metrics against the global meter provider.
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("manuals-backend")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	ingestionDuration, err := meter.Float64Histogram(
		"pdf.ingestion.duration",
		metric.WithDescription("End-to-end PDF ingestion duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	chunksIndexed, err := meter.Int64Counter(
		"vector.chunks.indexed",
		metric.WithDescription("Chunks written to the vector index"),
	)
	if err != nil {
		return nil, err
	}

	databaseOperations, err := meter.Int64Counter(
		"database.operations.total",
		metric.WithDescription("Total database operations"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:     requestCounter,
		RequestDuration:    requestDuration,
		IngestionDuration:  ingestionDuration,
		ChunksIndexed:      chunksIndexed,
		DatabaseOperations: databaseOperations,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordIngestion records one upload pipeline run.
func (m *Metrics) RecordIngestion(ctx context.Context, duration float64, chunks int, status string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("pdf.status", status))
	m.IngestionDuration.Record(ctx, duration, attrs)
	if chunks > 0 {
		m.ChunksIndexed.Add(ctx, int64(chunks), attrs)
	}
}

// RecordDatabaseOperation records database operation metrics
func (m *Metrics) RecordDatabaseOperation(ctx context.Context, operation, collection string, success bool) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("db.operation", operation),
		attribute.String("db.collection", collection),
		attribute.Bool("db.success", success),
	}

	m.DatabaseOperations.Add(ctx, 1, metric.WithAttributes(attrs...))
}
