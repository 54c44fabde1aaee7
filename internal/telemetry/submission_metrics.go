package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	submissionCreatedCounter metric.Int64Counter
	submissionFailedCounter  metric.Int64Counter
	submissionDuration       metric.Float64Histogram
)

// InitSubmissionMetrics registers the form submission instruments on the global meter.
func InitSubmissionMetrics() error {
	meter := otel.Meter("formcraft.submissions")

	var err error

	submissionCreatedCounter, err = meter.Int64Counter(
		"formcraft.submissions.created",
		metric.WithDescription("Number of committed form submissions"),
		metric.WithUnit("{submission}"),
	)
	if err != nil {
		return err
	}

	submissionFailedCounter, err = meter.Int64Counter(
		"formcraft.submissions.failed",
		metric.WithDescription("Number of form submissions that were rolled back"),
		metric.WithUnit("{submission}"),
	)
	if err != nil {
		return err
	}

	submissionDuration, err = meter.Float64Histogram(
		"formcraft.submissions.duration",
		metric.WithDescription("Duration of the submission transaction"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}

// RecordSubmissionCreated records a committed submission
func RecordSubmissionCreated(ctx context.Context, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("status", "success"))
	if submissionCreatedCounter != nil {
		submissionCreatedCounter.Add(ctx, 1, attrs)
	}
	if submissionDuration != nil {
		submissionDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	}
}

// RecordSubmissionFailed records a rolled back submission. reason is a low-cardinality label.
func RecordSubmissionFailed(ctx context.Context, reason string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("status", "error"),
		attribute.String("reason", reason),
	)
	if submissionFailedCounter != nil {
		submissionFailedCounter.Add(ctx, 1, attrs)
	}
	if submissionDuration != nil {
		submissionDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
	}
}
