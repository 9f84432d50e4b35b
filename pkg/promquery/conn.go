package promquery

import (
	"fmt"
	"strings"

	promapi "github.com/prometheus/client_golang/api"
	"github.com/prometheus/common/config"
)

// PrometheusConfig holds the settings needed to reach the metrics backend.
type PrometheusConfig struct {
	// Address is a URL or a bare host:port, in which case http is assumed.
	Address       string `yaml:"address"`
	SkipTLSVerify bool   `yaml:"skipTLSVerify"`
	BearerToken   string `yaml:"bearerToken"`
	CAFile        string `yaml:"caFile"`
}

func (cfg PrometheusConfig) Valid() error {
	if cfg.Address == "" {
		return fmt.Errorf("a Prometheus address must be set")
	}
	return nil
}

// URL returns the configured address with a scheme.
func (cfg PrometheusConfig) URL() string {
	if strings.Contains(cfg.Address, "://") {
		return cfg.Address
	}
	return "http://" + cfg.Address
}

// NewPrometheusConn creates a Prometheus API client using the given configuration.
func NewPrometheusConn(cfg PrometheusConfig) (promapi.Client, error) {
	if err := cfg.Valid(); err != nil {
		return nil, err
	}

	httpConfig := config.DefaultHTTPClientConfig
	httpConfig.TLSConfig.InsecureSkipVerify = cfg.SkipTLSVerify
	httpConfig.TLSConfig.CAFile = cfg.CAFile
	if cfg.BearerToken != "" {
		httpConfig.Authorization = &config.Authorization{
			Type:        "Bearer",
			Credentials: config.Secret(cfg.BearerToken),
		}
	}

	roundTripper, err := config.NewRoundTripperFromConfig(httpConfig, "power-metering")
	if err != nil {
		return nil, fmt.Errorf("can't configure transport for prometheus: %v", err)
	}

	client, err := promapi.NewClient(promapi.Config{
		Address:      cfg.URL(),
		RoundTripper: roundTripper,
	})
	if err != nil {
		return nil, fmt.Errorf("can't connect to prometheus: %v", err)
	}
	return client, nil
}
