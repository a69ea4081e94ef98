package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"kycpass/internal/identity/client"
	"kycpass/internal/platform/config"
	"kycpass/internal/platform/health"
	"kycpass/internal/session/handler"
	httptransport "kycpass/internal/transport/http"
	"kycpass/pkg/platform/middleware/request"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

type serveFlags struct {
	addr        string
	metricsAddr string
	wait        time.Duration
	account     string
}

func newServeCommand(cfg config.Config, flags *globalFlags) *cobra.Command {
	sf := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the session API for local presentation consumers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := flags.apply(cfg)
			cfg.Server.Addr = sf.addr
			cfg.Server.MetricsAddr = sf.metricsAddr

			a, err := newApp(cfg, flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, sf)
		},
	}

	cmd.Flags().StringVar(&sf.addr, "addr", cfg.Server.Addr, "session API listen address")
	cmd.Flags().StringVar(&sf.metricsAddr, "metrics-addr", cfg.Server.MetricsAddr, "metrics listen address; empty disables")
	cmd.Flags().DurationVar(&sf.wait, "wait", 30*time.Second, "how long to wait for the identity service at startup; 0 skips the wait")
	cmd.Flags().StringVar(&sf.account, "account", "", "account to bind at startup")
	return cmd
}

func (a *app) serve(ctx context.Context, sf *serveFlags) error {
	for _, env := range a.cfg.Ledger.Missing() {
		a.logger.Warn("ledger setting not configured", "env", env)
	}

	if sf.wait > 0 {
		if err := a.waitForBackend(ctx, sf.wait); err != nil {
			return err
		}
	}
	if sf.account != "" {
		if err := a.bind(ctx, sf.account); err != nil {
			a.logger.Warn("initial account bind failed", "error", err)
		}
	}

	probes := health.New()
	probes.RegisterCheck("identity_service", a.client.Health)

	router := httptransport.NewRouter(a.logger, request.NewMetrics(a.registry), 2*a.cfg.API.Timeout,
		probes,
		handler.New(a.session, a.cfg.Ledger, a.logger),
	)
	servers := []*http.Server{{
		Addr:              a.cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}}
	if a.cfg.Server.MetricsAddr != "" {
		servers = append(servers, &http.Server{
			Addr:              a.cfg.Server.MetricsAddr,
			Handler:           promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}),
			ReadHeaderTimeout: readHeaderTimeout,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			a.logger.Info("starting http server", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		a.logSessionChanges(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down http servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(shutdownCtx))
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}

// waitForBackend polls the identity service health endpoint with exponential
// backoff until it answers or maxWait elapses. Failures that retrying cannot
// fix, such as a 404 from a wrong API URL, end the wait at once.
func (a *app) waitForBackend(ctx context.Context, maxWait time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = maxWait

	return backoff.RetryNotify(func() error {
		err := a.client.Health(ctx)
		if err != nil && !client.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		a.logger.Warn("identity service not ready", "error", err, "retry_in", next)
	})
}

func (a *app) logSessionChanges(ctx context.Context) {
	updates, cancel := a.session.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			a.logger.Debug("session changed",
				"phase", snap.Phase,
				"version", snap.Version,
				"loading", snap.Loading,
				"credentials", len(snap.Credentials),
			)
		}
	}
}
