package service

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/ethereum/go-ethereum/log"
	"github.com/katalab/kata-runner/metrics"
)

const (
	HealthzHost = "0.0.0.0"
	HealthzPort = "8080"

	MetricsHost = "0.0.0.0"
	MetricsPort = "7300"
)

// Config holds the listen addresses of the service endpoints. Empty fields
// fall back to the package defaults.
type Config struct {
	HealthzAddr string
	MetricsAddr string
}

type Service struct {
	Healthz *HealthzServer
	Metrics *MetricsServer

	cfg Config
	log log.Logger
}

func New(cfg Config, logger log.Logger) *Service {
	if logger == nil {
		logger = log.Root()
	}
	if cfg.HealthzAddr == "" {
		cfg.HealthzAddr = net.JoinHostPort(HealthzHost, HealthzPort)
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = net.JoinHostPort(MetricsHost, MetricsPort)
	}
	return &Service{
		Healthz: &HealthzServer{log: logger},
		Metrics: &MetricsServer{},
		cfg:     cfg,
		log:     logger,
	}
}

// Addrs returns the healthz and metrics listen addresses
func (s *Service) Addrs() (healthz string, metricsAddr string) {
	return s.cfg.HealthzAddr, s.cfg.MetricsAddr
}

func (s *Service) Start(ctx context.Context) {
	s.log.Info("service starting")

	go func() {
		s.log.Info("starting healthz server", "addr", s.cfg.HealthzAddr)
		if err := s.Healthz.Start(ctx, s.cfg.HealthzAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("error starting healthz server", "err", err)
			metrics.RecordErrorDetails("error starting healthz server", err)
		}
	}()

	go func() {
		s.log.Info("starting metrics server", "addr", s.cfg.MetricsAddr)
		if err := s.Metrics.Start(ctx, s.cfg.MetricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("error starting metrics server", "err", err)
			metrics.RecordErrorDetails("error starting metrics server", err)
		}
	}()

	s.log.Info("service started")
}

func (s *Service) Shutdown() {
	s.log.Info("service shutting down")

	_ = s.Healthz.Shutdown()
	s.log.Info("healthz stopped")

	_ = s.Metrics.Shutdown()
	s.log.Info("metrics stopped")

	s.log.Info("service stopped")
}
