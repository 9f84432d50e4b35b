package gateway

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"
)

type statusResponse struct {
	Status  string      `json:"status"`
	Details interface{} `json:"details,omitempty"`
}

// readinessHandler reports ready only while the metrics backend answers
// queries. Concurrent checks share a single backend query.
func (srv *server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	logger := newRequestLogger(srv.logger, r)
	if !srv.testBackendSingleFlight(logger) {
		writeResponseAsJSON(logger, w, http.StatusInternalServerError,
			statusResponse{
				Status:  "not ready",
				Details: "cannot query the metrics backend",
			})
		return
	}
	writeResponseAsJSON(logger, w, http.StatusOK, statusResponse{Status: "ok"})
}

// healthinessHandler is the liveness check, it only fails if the process
// can't serve HTTP.
func (srv *server) healthinessHandler(w http.ResponseWriter, r *http.Request) {
	logger := newRequestLogger(srv.logger, r)
	writeResponseAsJSON(logger, w, http.StatusOK, statusResponse{Status: "ok"})
}

func (srv *server) testBackendSingleFlight(logger logrus.FieldLogger) bool {
	const key = "backend-ping"
	v, _, _ := srv.healthCheckSingleFlight.Do(key, func() (interface{}, error) {
		defer srv.healthCheckSingleFlight.Forget(key)
		// not tied to a single request, other callers share the result
		err := srv.backend.Ping(context.Background())
		if err != nil {
			logger.WithError(err).Debugf("cannot query the metrics backend")
			return false, nil
		}
		return true, nil
	})
	healthy := v.(bool)
	return healthy
}
