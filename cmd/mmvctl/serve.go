package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/arloliu/mmv/exporter"
)

type serveOptions struct {
	listen     string
	namespace  string
	otelStdout time.Duration
}

func newServeCmd(g *globals) *cobra.Command {
	o := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve <name|path>",
		Short: "Expose the values of an MMV file as Prometheus metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, g, args[0], o, cmd)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&o.listen, "listen", ":9464", "address of the metrics endpoint")
	fs.StringVar(&o.namespace, "namespace", "mmv", "leading component of exported metric names")
	fs.DurationVar(&o.otelStdout, "otel-stdout", 0, "also print OpenTelemetry metrics to stdout at this interval")

	return cmd
}

func serve(ctx context.Context, g *globals, arg string, o serveOptions, cmd *cobra.Command) error {
	r, err := g.open(arg, false)
	if err != nil {
		return err
	}
	defer r.Close()

	opts := []exporter.Option{exporter.WithNamespace(o.namespace), exporter.WithLogger(g.logger)}

	collector, err := exporter.NewCollector(r, opts...)
	if err != nil {
		return err
	}
	defer collector.Close()
	reg := prometheus.NewRegistry()
	if err := reg.Register(collector); err != nil {
		return errors.Wrap(err, "register collector")
	}

	if o.otelStdout > 0 {
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(cmd.OutOrStdout()))
		if err != nil {
			return errors.Wrap(err, "create stdout exporter")
		}
		provider := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(o.otelStdout))),
		)
		defer func() { _ = provider.Shutdown(context.Background()) }()

		registration, err := exporter.RegisterOTel(provider.Meter("mmvctl"), r, opts...)
		if err != nil {
			return err
		}
		defer func() { _ = registration.Unregister() }()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{ErrorLog: slogErrorLog{g}}))
	srv := &http.Server{Addr: o.listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	g.logger.Info("serving mmv metrics", "path", r.Path(), "listen", o.listen)

	select {
	case err := <-errCh:
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "shutdown")
	}

	return nil
}

// slogErrorLog adapts the CLI logger to promhttp.Logger.
type slogErrorLog struct{ g *globals }

func (l slogErrorLog) Println(v ...any) {
	l.g.logger.Error("metrics handler", "error", v)
}
