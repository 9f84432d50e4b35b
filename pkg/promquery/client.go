package promquery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	promapi "github.com/prometheus/client_golang/api"
	prom "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	log "github.com/sirupsen/logrus"

	"github.com/operator-framework/power-metering/pkg/usage"
)

//go:generate mockgen -destination=mock/backend.go -package=mock github.com/operator-framework/power-metering/pkg/promquery Backend

const (
	queryEndpoint = "/api/v1/query"

	DefaultMetricName   = "energy"
	DefaultLookback     = 10 * time.Minute
	DefaultQueryTimeout = 5 * time.Second
)

// ErrBackendUnavailable is wrapped by every error caused by the metrics
// backend: transport failures, timeouts and malformed responses.
var ErrBackendUnavailable = errors.New("metrics backend unavailable")

// SeriesFetcher returns the latest reading of every instance matching target
// at the given instant.
type SeriesFetcher interface {
	FetchInstanceSeries(ctx context.Context, target string, ts time.Time) (usage.InstanceSeries, error)
}

// Backend is a SeriesFetcher that can also check it is able to reach the
// metrics backend.
type Backend interface {
	SeriesFetcher
	Ping(ctx context.Context) error
}

// Config controls the queries issued by a Client.
type Config struct {
	// MetricName is the name of the cumulative energy metric, in kWh.
	MetricName string `yaml:"metricName"`
	// Lookback is how far before the requested instant a sample may be.
	Lookback time.Duration `yaml:"lookback"`
	// Timeout bounds each query, including reading the response.
	Timeout time.Duration `yaml:"timeout"`
}

func (cfg *Config) setDefaults() {
	if cfg.MetricName == "" {
		cfg.MetricName = DefaultMetricName
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = DefaultLookback
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultQueryTimeout
	}
}

// Client queries energy readings from a Prometheus compatible backend.
type Client struct {
	logger  log.FieldLogger
	client  promapi.Client
	promAPI prom.API
	cfg     Config
}

var _ Backend = &Client{}

// NewClient returns a Client using the given Prometheus connection. Zero
// values in cfg are replaced by their defaults.
func NewClient(logger log.FieldLogger, client promapi.Client, cfg Config) *Client {
	cfg.setDefaults()
	return &Client{
		logger:  logger.WithField("component", "promquery"),
		client:  client,
		promAPI: prom.NewAPI(client),
		cfg:     cfg,
	}
}

// QueryExpression returns the PromQL selecting the most recent reading of
// every instance matching target. target is inserted verbatim, so callers
// control its regex syntax.
func (c *Client) QueryExpression(target string) string {
	return fmt.Sprintf(`last_over_time({__name__="%s",instance=~"%s"}[%s])`, c.cfg.MetricName, target, model.Duration(c.cfg.Lookback))
}

// FetchInstanceSeries implements SeriesFetcher.
func (c *Client) FetchInstanceSeries(ctx context.Context, target string, ts time.Time) (usage.InstanceSeries, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	series, err := c.fetchInstanceSeries(ctx, target, ts)
	backendQueryDurationHistogram.Observe(time.Since(start).Seconds())
	if err != nil {
		backendQueriesTotalCounter.WithLabelValues("error").Inc()
		return nil, err
	}
	backendQueriesTotalCounter.WithLabelValues("success").Inc()
	return series, nil
}

func (c *Client) fetchInstanceSeries(ctx context.Context, target string, ts time.Time) (usage.InstanceSeries, error) {
	query := c.QueryExpression(target)
	queryTime := ts.UTC().Truncate(time.Second).Format(time.RFC3339)
	logger := c.logger.WithFields(log.Fields{
		"query": query,
		"time":  queryTime,
	})

	u := c.client.URL(queryEndpoint, nil)
	q := u.Query()
	q.Set("query", query)
	q.Set("time", queryTime)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to create request: %v", ErrBackendUnavailable, err)
	}

	logger.Debugf("querying Prometheus")
	_, body, err := c.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to perform Prometheus query: %v", ErrBackendUnavailable, err)
	}

	var resp queryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: unable to decode Prometheus response: %v", ErrBackendUnavailable, err)
	}
	for _, warning := range resp.Warnings {
		logger.Warnf("Prometheus query returned a warning: %s", warning)
	}
	if resp.Data == nil || resp.Data.Result == nil {
		return nil, fmt.Errorf("%w: Prometheus response has no result (status: %q, errorType: %q, error: %q)", ErrBackendUnavailable, resp.Status, resp.ErrorType, resp.Error)
	}

	series := groupByInstance(*resp.Data.Result)
	logger.Debugf("got %d results for %d instances", len(*resp.Data.Result), len(series))
	return series, nil
}

// Ping checks that the backend answers queries.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	val, _, err := c.promAPI.Query(ctx, "vector(1)", time.Now())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if val.Type() != model.ValVector {
		return fmt.Errorf("%w: expected a vector in response to query, got a %v", ErrBackendUnavailable, val.Type())
	}
	return nil
}
