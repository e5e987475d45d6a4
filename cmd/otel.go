//go:build otel

package cmd

import (
	"context"
	"log/slog"

	"github.com/nextlevelbuilder/msgauth/internal/config"
	"github.com/nextlevelbuilder/msgauth/internal/tracing/otelexport"
)

// initOTelExporter installs the OTLP exporter when telemetry is enabled and
// returns its shutdown func. Only compiled with -tags otel.
func initOTelExporter(ctx context.Context, cfg *config.Config) func(context.Context) {
	if !cfg.Telemetry.Enabled || cfg.Telemetry.Endpoint == "" {
		slog.Debug("OTel export available but not enabled (set telemetry.enabled + telemetry.endpoint)")
		return func(context.Context) {}
	}

	exp, err := otelexport.New(ctx, otelexport.Config{
		Endpoint:    cfg.Telemetry.Endpoint,
		Protocol:    cfg.Telemetry.Protocol,
		Insecure:    cfg.Telemetry.Insecure,
		ServiceName: cfg.Telemetry.ServiceName,
		Headers:     cfg.Telemetry.Headers,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		slog.Warn("failed to create OTel exporter", "error", err)
		return func(context.Context) {}
	}
	exp.Install()
	slog.Debug("OpenTelemetry OTLP export enabled",
		"endpoint", cfg.Telemetry.Endpoint,
		"protocol", cfg.Telemetry.Protocol,
	)
	return func(ctx context.Context) {
		if err := exp.Shutdown(ctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}
}
