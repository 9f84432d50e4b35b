package gateway

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/operator-framework/power-metering/pkg/promquery"
	"github.com/operator-framework/power-metering/pkg/usage"
	"github.com/operator-framework/power-metering/pkg/util/chiprometheus"
)

var prometheusMiddleware = chiprometheus.NewMiddleware("power-metering")

const (
	APIV1PowerUsageEndpoint = "/api/v1/power-usage"
	ReadyEndpoint           = "/ready"
	HealthyEndpoint         = "/healthy"
)

type server struct {
	logger   log.FieldLogger
	backend  promquery.Backend
	location *time.Location

	healthCheckSingleFlight singleflight.Group
}

type requestLogger struct {
	log.FieldLogger
}

func (l *requestLogger) Print(v ...interface{}) {
	l.FieldLogger.Info(v...)
}

func newRouter(logger log.FieldLogger, backend promquery.Backend, location *time.Location) chi.Router {
	router := chi.NewRouter()
	logger = logger.WithField("component", "api")
	requestLogger := middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: &requestLogger{logger}})
	router.Use(requestLogger)
	router.Use(prometheusMiddleware)

	srv := &server{
		logger:   logger,
		backend:  backend,
		location: location,
	}

	router.Get(APIV1PowerUsageEndpoint, srv.powerUsageHandler)
	router.Get(ReadyEndpoint, srv.readinessHandler)
	router.Get(HealthyEndpoint, srv.healthinessHandler)

	return router
}

// powerUsageHandler reports the usage of every instance matching the target
// over the day ending at the requested date and time.
func (srv *server) powerUsageHandler(w http.ResponseWriter, r *http.Request) {
	logger := newRequestLogger(srv.logger, r)

	query, err := usage.ParseQuery(r.URL.Query(), srv.location)
	if err != nil {
		if errors.Is(err, usage.ErrInvalidRequest) {
			logger.WithError(err).Debugf("rejecting power usage request")
			writeErrorResponse(logger, w, r, http.StatusBadRequest, "Invalid request")
			return
		}
		logger.WithError(err).Errorf("unable to decode power usage request")
		writeErrorResponse(logger, w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	logger = logger.WithFields(log.Fields{
		"target": query.Target,
		"time":   query.Time.Format(time.RFC3339),
	})

	current, previous, err := srv.fetchSeries(r.Context(), query)
	if err != nil {
		if errors.Is(err, promquery.ErrBackendUnavailable) {
			logger.WithError(err).Errorf("unable to query metrics backend")
			writeErrorResponse(logger, w, r, http.StatusBadGateway, "Unable to query metrics backend")
			return
		}
		logger.WithError(err).Errorf("unable to get power usage")
		writeErrorResponse(logger, w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	result := usage.Align(current, previous)
	logger.Debugf("computed power usage for %d instances", len(result))

	if query.CSV {
		writeResultAsCSV(logger, result, w, r)
		return
	}
	writeResponseAsJSON(logger, w, http.StatusOK, result)
}

// fetchSeries queries the readings at the requested instant and one day
// before it concurrently. If either query fails the other is cancelled.
func (srv *server) fetchSeries(ctx context.Context, query usage.Query) (current, previous usage.InstanceSeries, err error) {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = srv.backend.FetchInstanceSeries(ctx, query.Target, query.Time)
		return err
	})
	g.Go(func() error {
		var err error
		previous, err = srv.backend.FetchInstanceSeries(ctx, query.Target, query.Previous())
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return current, previous, nil
}

func writeResultAsCSV(logger log.FieldLogger, result usage.Result, w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := usage.WriteCSV(&buf, result); err != nil {
		logger.WithError(err).Error("failed CSV-encoding HTTP response")
		writeErrorResponse(logger, w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.WithError(err).Error("failed writing HTTP response")
	}
}
