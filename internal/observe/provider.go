package observe

import (
	"context"
	"errors"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// ProviderConfig configures the OpenTelemetry metric SDK.
type ProviderConfig struct {
	// ServiceName is the service name reported in telemetry. Default: "audiotranscode".
	ServiceName string

	// ServiceVersion is the service version reported in telemetry.
	ServiceVersion string

	// Writer receives exported metrics as JSON. Required.
	Writer io.Writer
}

// InitProvider initialises a [sdkmetric.MeterProvider] whose periodic reader
// exports to cfg.Writer through the stdout exporter, and registers it as the
// global meter provider. A CLI run is usually shorter than the export
// period, so the metrics are written by the final collection in shutdown.
//
// Returns the provider and a shutdown function that flushes and closes the
// exporter. Call it in a defer.
func InitProvider(ctx context.Context, cfg ProviderConfig) (mp *sdkmetric.MeterProvider, shutdown func(context.Context) error, err error) {
	if cfg.Writer == nil {
		return nil, nil, errors.New("observe: metrics writer is required")
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "audiotranscode"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	exp, err := stdoutmetric.New(
		stdoutmetric.WithWriter(cfg.Writer),
		stdoutmetric.WithPrettyPrint(),
	)
	if err != nil {
		return nil, nil, err
	}

	mp = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
	)
	otel.SetMeterProvider(mp)

	return mp, mp.Shutdown, nil
}
