package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/henvic/httpretty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"kycpass/internal/identity/client"
	"kycpass/internal/identity/models"
	"kycpass/internal/identity/tracer"
	"kycpass/internal/platform/config"
	"kycpass/internal/platform/logger"
	"kycpass/internal/session/controller"
	"kycpass/internal/session/metrics"
	"kycpass/internal/session/store"
	"kycpass/pkg/platform/circuit"
)

const serviceName = "walletd"

// app holds the wired session stack shared by serve and the one-shot commands.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	client   *client.HTTPClient
	session  *controller.Controller
	registry *prometheus.Registry
	shutdown func(context.Context) error
}

func newApp(cfg config.Config, flags *globalFlags, stderr io.Writer) (*app, error) {
	log := logger.NewWith(stderr, cfg.Log.Level, cfg.Log.Format)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tr, shutdown, err := newTracer(flags.traceSpans, stderr)
	if err != nil {
		return nil, err
	}

	breaker := circuit.New("identity-service",
		circuit.WithFailureThreshold(cfg.API.BreakerFailures),
		circuit.WithCooldown(cfg.API.BreakerCooldown),
	)
	opts := []client.Option{
		client.WithBreaker(breaker),
		client.WithTracer(tr),
		client.WithLogger(log),
	}
	if flags.traceHTTP {
		opts = append(opts, client.WithHTTPDoer(&http.Client{
			Timeout:   cfg.API.Timeout,
			Transport: prettyTransport(stderr),
		}))
	}
	identity := client.New(cfg.API.URL, cfg.API.Timeout, opts...)

	st := store.New(store.WithLogger(log))
	session := controller.New(st, identity,
		controller.WithLogger(log),
		controller.WithMetrics(metrics.New(reg)),
	)

	return &app{
		cfg:      cfg,
		logger:   log,
		client:   identity,
		session:  session,
		registry: reg,
		shutdown: shutdown,
	}, nil
}

// bind connects account and waits for the DID check and credential fetch.
func (a *app) bind(ctx context.Context, account string) error {
	id, err := models.ParseAccountID(account)
	if err != nil {
		return err
	}
	return a.session.SetAccount(ctx, id)
}

func (a *app) close() {
	if err := a.shutdown(context.Background()); err != nil {
		a.logger.Warn("tracer shutdown failed", "error", err)
	}
}

// newTracer returns the identity tracer. With export enabled spans are
// written to w as they end; otherwise the global provider is used.
func newTracer(export bool, w io.Writer) (tracer.Tracer, func(context.Context) error, error) {
	if !export {
		return tracer.NewOTel(), func(context.Context) error { return nil }, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
	)
	otel.SetTracerProvider(tp)

	return tracer.NewOTel(tracer.WithOTelTracer(tp.Tracer(tracer.InstrumentationName))), tp.Shutdown, nil
}

func prettyTransport(w io.Writer) http.RoundTripper {
	l := &httpretty.Logger{
		Time:            true,
		RequestHeader:   true,
		RequestBody:     true,
		ResponseHeader:  true,
		ResponseBody:    true,
		Formatters:      []httpretty.Formatter{&httpretty.JSONFormatter{}},
		MaxResponseBody: 1 << 20,
	}
	l.SetOutput(w)
	return l.RoundTripper(http.DefaultTransport)
}
