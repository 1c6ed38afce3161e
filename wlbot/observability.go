package wlbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

type Metric struct {
	Stdout     bool `yaml:"stdout"`
	Prometheus bool `yaml:"prometheus"`
	// push endpoint, prometheus scrape wins when both are set
	Endpoint string `yaml:"endpoint"`
	// secure endpoint (https)
	Secure bool `yaml:"secure"`
}

func StartMetric(ctx context.Context, res *resource.Resource, mcfg Metric) (*metric.MeterProvider, error) {
	var reader metric.Reader

	switch {
	case mcfg.Prometheus:
		// pull based, scraped from the /metrics route
		exporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		reader = exporter

	case mcfg.Endpoint != "":
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(mcfg.Endpoint),
		}
		if !mcfg.Secure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create otlp http metric exporter: %w", err)
		}
		reader = metric.NewPeriodicReader(exporter)

	default:
		slog.Debug("initialize stdout metric")
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create metric exporter: %w", err)
		}
		reader = metric.NewPeriodicReader(exporter)
	}

	meterProvider := metric.NewMeterProvider(
		metric.WithReader(reader),
		metric.WithResource(res),
	)

	return meterProvider, nil
}

type Trace struct {
	Stdout bool `yaml:"stdout"`
	Jaeger bool `yaml:"jaeger"`
	// otlp http endpoint
	Endpoint string `yaml:"endpoint"`
	// secure endpoint (https)
	Secure bool `yaml:"secure"`
}

func StartTrace(ctx context.Context, res *resource.Resource, tcfg Trace) (*trace.TracerProvider, error) {
	var traceExporter trace.SpanExporter
	var err error

	if tcfg.Jaeger {
		otlpOpts := []otlptracehttp.Option{}
		if tcfg.Endpoint != "" {
			otlpOpts = append(otlpOpts, otlptracehttp.WithEndpoint(tcfg.Endpoint))
		}
		if !tcfg.Secure {
			otlpOpts = append(otlpOpts, otlptracehttp.WithInsecure())
		}
		traceExporter, err = otlptracehttp.New(ctx, otlpOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create otlp http trace exporter: %w", err)
		}
	} else {
		slog.Debug("initialize stdout trace")
		traceExporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
	}

	tracerProvider := trace.NewTracerProvider(
		trace.WithBatcher(traceExporter),
		trace.WithResource(res),
	)

	return tracerProvider, nil
}

// Initializes and configures OpenTelemetry for the application.
// It returns a shutdown function that must be called on application exit.
func InitObservability(ctx context.Context, serviceName string, cfg ObsConfig) (shutdown func(context.Context) error, err error) {

	res, err := resource.New(
		ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		err = fmt.Errorf("failed to create otel resource: %w", err)
		return func(context.Context) error { return nil }, err
	}

	sfn := []func(context.Context) error{}

	if cfg.Metric.Prometheus || cfg.Metric.Stdout || cfg.Metric.Endpoint != "" {
		meterProvider, err := StartMetric(ctx, res, cfg.Metric)
		if err != nil {
			return nil, err
		}
		otel.SetMeterProvider(meterProvider)
		sfn = append(sfn, meterProvider.Shutdown)

		if _, err := RamUsage(ctx, func() int64 {
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)
			return int64(stats.Sys)
		}); err != nil {
			slog.Warn("failed to register ram usage gauge", "error", err)
		}
	}

	if cfg.Trace.Jaeger || cfg.Trace.Stdout {
		tracerProvider, err := StartTrace(ctx, res, cfg.Trace)
		if err != nil {
			return nil, err
		}
		otel.SetTracerProvider(tracerProvider)
		sfn = append(sfn, tracerProvider.Shutdown)
	}

	// Set the global propagator to tracecontext.
	otel.SetTextMapPropagator(propagation.TraceContext{})

	// The returned shutdown function will be called on application exit
	// to ensure all telemetry data is flushed.
	return func(ctx context.Context) error {
		var shutdownErr error
		for _, fn := range sfn {
			if xerr := fn(ctx); xerr != nil {
				shutdownErr = errors.Join(shutdownErr, xerr)
			}
		}
		return shutdownErr
	}, nil
}

func RamUsage(ctx context.Context, cb func() int64) (otelmetric.Int64ObservableGauge, error) {
	meter := otel.Meter("wlbot_rest_server_meter")
	ramUsage, err := meter.Int64ObservableGauge(
		"wlbot_ram_usage_bytes",
		otelmetric.WithDescription("Ram usage of the app in bytes"),
		otelmetric.WithInt64Callback(func(ctx context.Context, io otelmetric.Int64Observer) error {
			io.Observe(cb())
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return ramUsage, nil
}
