package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/internal/config"
	"github.com/MrEthical07/authcore/metrics/export/otel"
)

const meterName = "github.com/MrEthical07/authcore"

// startOTel pushes engine metrics to the configured OTLP/HTTP collector. The
// returned func flushes and stops the provider.
func startOTel(ctx context.Context, settings *config.Settings, engine *authcore.Engine, logger zerolog.Logger) (func(context.Context), error) {
	endpoint := strings.TrimSpace(settings.OTelEndpoint)

	var opts []otlpmetrichttp.Option
	if strings.Contains(endpoint, "://") {
		opts = append(opts, otlpmetrichttp.WithEndpointURL(endpoint))
	} else {
		opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
	}
	if settings.OTelInsecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp metric exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(settings.OTelInterval()))),
		sdkmetric.WithResource(resource.NewSchemaless(attribute.String("service.name", "authcore"))),
	)

	bridge, err := otel.NewBridge(provider.Meter(meterName), engine)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, err
	}

	logger.Info().
		Str("endpoint", endpoint).
		Dur("interval", settings.OTelInterval()).
		Msg("otel metrics enabled")

	return func(ctx context.Context) {
		if err := bridge.Close(); err != nil {
			logger.Warn().Err(err).Msg("otel bridge close")
		}
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("otel provider shutdown")
		}
	}, nil
}
