package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/liftlog/internal/testutils"
	"github.com/aretw0/liftlog/pkg/domain"
	"github.com/aretw0/liftlog/pkg/ports"
	"github.com/aretw0/liftlog/pkg/queue"
	"github.com/aretw0/liftlog/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (http.Handler, *testutils.FlakyStore, *storage.Queued) {
	t.Helper()
	backend := testutils.NewFlakyStore()
	reg := prometheus.NewRegistry()
	q := queue.New(queue.WithName("http"), queue.WithMetrics(queue.NewMetrics(reg)))
	s := storage.NewQueued(backend, q)
	h := NewHandler(s, WithKeyLister(backend.Next.(ports.KeyLister)), WithGatherer(reg))
	return h, backend, s
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestGetHealth(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rr := do(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.EqualValues(t, 0, resp["pending"])
}

func TestGetInfo(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rr := do(h, http.MethodGet, "/info", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "liftlog-http", resp["app"])
	assert.Equal(t, "http", resp["queue"])
	assert.NotEmpty(t, resp["version"])
}

func TestKV_PutGetDelete(t *testing.T) {
	h, backend, _ := newTestHandler(t)

	rr := do(h, http.MethodPut, "/kv/workout-plans?wait=true", `{"state":[],"version":0}`)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(h, http.MethodGet, "/kv/workout-plans", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `{"state":[],"version":0}`, rr.Body.String())

	rr = do(h, http.MethodGet, "/kv", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `["workout-plans"]`, rr.Body.String())

	rr = do(h, http.MethodDelete, "/kv/workout-plans?wait=true", "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(h, http.MethodGet, "/kv/workout-plans", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, []string{"set:workout-plans", "remove:workout-plans"}, backend.Writes())
}

func TestKV_GetReadFailureIsNotFound(t *testing.T) {
	h, backend, _ := newTestHandler(t)
	require.Equal(t, http.StatusNoContent, do(h, http.MethodPut, "/kv/k?wait=true", "v").Code)

	backend.FailGet = func(key string) error { return errors.New("disk unavailable") }

	rr := do(h, http.MethodGet, "/kv/k", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), domain.ErrKeyNotFound.Error())
}

func TestKV_AsyncWritesLandInOrderAfterFlush(t *testing.T) {
	h, backend, _ := newTestHandler(t)
	backend.Delay = func(key string) time.Duration {
		if key == "a" {
			return 20 * time.Millisecond
		}
		return 0
	}

	assert.Equal(t, http.StatusAccepted, do(h, http.MethodPut, "/kv/a", "1").Code)
	assert.Equal(t, http.StatusAccepted, do(h, http.MethodPut, "/kv/b", "2").Code)

	rr := do(h, http.MethodPost, "/flush", "")
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, []string{"set:a", "set:b"}, backend.Writes())
}

func TestKV_WaitReportsFailure(t *testing.T) {
	h, backend, _ := newTestHandler(t)
	backend.FailSet = func(key, value string) error { return errors.New("quota exceeded") }

	rr := do(h, http.MethodPut, "/kv/k?wait=true", "v")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	assert.Equal(t, http.StatusNoContent, do(h, http.MethodPost, "/flush", "").Code,
		"a failed write still settles and does not block flush")
}

func TestMetricsEndpoint(t *testing.T) {
	h, _, _ := newTestHandler(t)
	require.Equal(t, http.StatusNoContent, do(h, http.MethodPut, "/kv/k?wait=true", "v").Code)

	rr := do(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "liftlog_queue_operations_submitted_total")
}
