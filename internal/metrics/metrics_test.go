package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareObservesRequests(t *testing.T) {
	Init()

	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/progress/{session_id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	ts := httptest.NewServer(r)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/progress/abc")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "404"))
	require.GreaterOrEqual(t, val, float64(1))
	require.Positive(t, testutil.CollectAndCount(httpRequestDurationSeconds))
}

func TestObserveVerificationAndJobs(t *testing.T) {
	Init()

	before := testutil.ToFloat64(verifierEmailsTotal.WithLabelValues("valid"))
	ObserveVerification("valid", 120*time.Millisecond)
	after := testutil.ToFloat64(verifierEmailsTotal.WithLabelValues("valid"))
	require.Equal(t, before+1, after)

	IncActiveJobs()
	require.Equal(t, float64(1), testutil.ToFloat64(verifierActiveJobs))
	DecActiveJobs()
	require.Equal(t, float64(0), testutil.ToFloat64(verifierActiveJobs))

	jobsBefore := testutil.ToFloat64(verifierJobsTotal.WithLabelValues("complete"))
	ObserveJob("complete")
	require.Equal(t, jobsBefore+1, testutil.ToFloat64(verifierJobsTotal.WithLabelValues("complete")))
}
