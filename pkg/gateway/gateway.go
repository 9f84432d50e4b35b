package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/operator-framework/power-metering/pkg/promquery"
	"github.com/operator-framework/power-metering/pkg/usage"
)

const (
	DefaultListenAddress        = "0.0.0.0:9118"
	DefaultMetricsListenAddress = ":8082"
	DefaultPprofListenAddress   = "127.0.0.1:6060"

	shutdownTimeout = 10 * time.Second
)

type TLSConfig struct {
	UseTLS  bool   `yaml:"useTLS"`
	TLSCert string `yaml:"tlsCert"`
	TLSKey  string `yaml:"tlsKey"`
}

func (cfg *TLSConfig) Valid() error {
	if cfg.UseTLS {
		if cfg.TLSCert == "" {
			return fmt.Errorf("Must set TLS certificate if TLS is enabled")
		}
		if cfg.TLSKey == "" {
			return fmt.Errorf("Must set TLS private key if TLS is enabled")
		}
	}
	return nil
}

type Config struct {
	ListenAddress        string
	MetricsListenAddress string
	// PprofListenAddress disables the pprof server when empty.
	PprofListenAddress string

	// TimezoneOffset is the fixed offset used to interpret request dates
	// and times.
	TimezoneOffset time.Duration

	APITLSConfig     TLSConfig
	MetricsTLSConfig TLSConfig
	PrometheusConfig promquery.PrometheusConfig
	QueryConfig      promquery.Config
}

// Gateway serves the power usage API.
type Gateway struct {
	cfg      Config
	logger   log.FieldLogger
	backend  promquery.Backend
	location *time.Location
}

func New(logger log.FieldLogger, cfg Config) (*Gateway, error) {
	logger.Debugf("config: %s", spew.Sprintf("%+v", cfg))

	if err := cfg.APITLSConfig.Valid(); err != nil {
		return nil, err
	}
	if err := cfg.MetricsTLSConfig.Valid(); err != nil {
		return nil, err
	}

	location, err := usage.FixedZone(cfg.TimezoneOffset)
	if err != nil {
		return nil, err
	}

	promConn, err := promquery.NewPrometheusConn(cfg.PrometheusConfig)
	if err != nil {
		return nil, err
	}

	return NewWithBackend(logger, cfg, promquery.NewClient(logger, promConn, cfg.QueryConfig), location), nil
}

// NewWithBackend returns a Gateway querying the given backend.
func NewWithBackend(logger log.FieldLogger, cfg Config, backend promquery.Backend, location *time.Location) *Gateway {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	if cfg.MetricsListenAddress == "" {
		cfg.MetricsListenAddress = DefaultMetricsListenAddress
	}
	return &Gateway{
		cfg:      cfg,
		logger:   logger,
		backend:  backend,
		location: location,
	}
}

// Handler returns the HTTP handler serving the API.
func (g *Gateway) Handler() http.Handler {
	return newRouter(g.logger, g.backend, g.location)
}

// Run serves the API, Prometheus metrics and pprof until ctx is cancelled
// or one of the servers fails.
func (g *Gateway) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	// buffered big enough to hold the errs of each server we start.
	srvErrChan := make(chan error, 3)

	g.logger.Info("starting power-metering gateway")

	promServer := &http.Server{
		Addr:    g.cfg.MetricsListenAddress,
		Handler: promhttp.Handler(),
	}
	httpServer := &http.Server{
		Addr:    g.cfg.ListenAddress,
		Handler: g.Handler(),
	}
	servers := map[string]*http.Server{
		"HTTP API":           httpServer,
		"Prometheus metrics": promServer,
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		var srvErr error
		if g.cfg.MetricsTLSConfig.UseTLS {
			g.logger.Infof("Prometheus metrics server listening with TLS on %s", promServer.Addr)
			srvErr = promServer.ListenAndServeTLS(g.cfg.MetricsTLSConfig.TLSCert, g.cfg.MetricsTLSConfig.TLSKey)
		} else {
			g.logger.Infof("Prometheus metrics server listening on %s", promServer.Addr)
			srvErr = promServer.ListenAndServe()
		}
		g.logger.WithError(srvErr).Info("Prometheus metrics server exited")
		srvErrChan <- fmt.Errorf("Prometheus metrics server error: %v", srvErr)
	}()
	go func() {
		defer wg.Done()
		var srvErr error
		if g.cfg.APITLSConfig.UseTLS {
			g.logger.Infof("HTTP API server listening with TLS on %s", httpServer.Addr)
			srvErr = httpServer.ListenAndServeTLS(g.cfg.APITLSConfig.TLSCert, g.cfg.APITLSConfig.TLSKey)
		} else {
			g.logger.Infof("HTTP API server listening on %s", httpServer.Addr)
			srvErr = httpServer.ListenAndServe()
		}
		g.logger.WithError(srvErr).Info("HTTP API server exited")
		srvErrChan <- fmt.Errorf("HTTP API server error: %v", srvErr)
	}()

	if g.cfg.PprofListenAddress != "" {
		pprofServer := newPprofServer(g.cfg.PprofListenAddress)
		servers["pprof"] = pprofServer
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.logger.Infof("pprof server listening on %s", pprofServer.Addr)
			srvErr := pprofServer.ListenAndServe()
			g.logger.WithError(srvErr).Info("pprof server exited")
			srvErrChan <- fmt.Errorf("pprof server error: %v", srvErr)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		g.logger.Info("got stop signal, shutting down power-metering gateway")
	case err := <-srvErrChan:
		g.logger.WithError(err).Error("server process failed, shutting down power-metering gateway")
		runErr = fmt.Errorf("server process failed, err: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for name, srv := range servers {
		name, srv := name, srv
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.logger.Infof("stopping %s server", name)
			if err := srv.Shutdown(shutdownCtx); err != nil {
				g.logger.WithError(err).Warnf("got an error shutting down %s server", name)
			}
		}()
	}

	wg.Wait()
	g.logger.Info("power-metering gateway stopped")
	return runErr
}
