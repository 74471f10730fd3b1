package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// ServiceVersion is reported as service.version on every exported resource.
const ServiceVersion = "1.0.0"

const providerShutdownTimeout = 10 * time.Second

// serviceResource describes the ledger process to the collector. Traces,
// metrics and logs share it so the backend can correlate the three signals.
func serviceResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("build %s resource: %w", serviceName, err)
	}
	return res, nil
}

// shutdownSignal flushes and stops one OTLP pipeline within a bounded window.
func shutdownSignal(ctx context.Context, log *zap.Logger, signal string, stop func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, providerShutdownTimeout)
	defer cancel()

	if err := stop(ctx); err != nil {
		log.Error("OTLP pipeline shutdown failed", zap.String("signal", signal), zap.Error(err))
		return fmt.Errorf("shutdown %s pipeline: %w", signal, err)
	}
	log.Info("OTLP pipeline stopped", zap.String("signal", signal))
	return nil
}
