package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/chessmatch/internal/testutil"
)

func TestLoggingAssignsRequestID(t *testing.T) {
	logger, logs := testutil.CaptureLogger()
	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hi"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/lobby", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	assert.Contains(t, logs.String(), `"status":418`)
	assert.Contains(t, logs.String(), `"size":2`)
}

func TestLoggingKeepsIncomingRequestID(t *testing.T) {
	handler := Logging(testutil.NopLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
}

func TestHijackRequiresHijacker(t *testing.T) {
	rw := &ResponseWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}

	_, _, err := rw.Hijack()
	require.Error(t, err)
}

func TestRecoveryLogsAndResponds(t *testing.T) {
	logger, logs := testutil.CaptureLogger()
	var recovered any
	onPanic := func(w http.ResponseWriter, _ *http.Request, v any) {
		recovered = v
		w.WriteHeader(http.StatusInternalServerError)
	}

	handler := Logging(testutil.NopLogger())(Recovery(logger, onPanic)(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
	))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", nil)
	req.Header.Set(RequestIDHeader, "req-7")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "boom", recovered)
	assert.Contains(t, logs.String(), "panic recovered")
	assert.Contains(t, logs.String(), `"request_id":"req-7"`)
}

func TestRecoveryRepanicsOnAbort(t *testing.T) {
	handler := Recovery(testutil.NopLogger(), func(http.ResponseWriter, *http.Request, any) {
		t.Fatal("abort must not be handled")
	})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic(http.ErrAbortHandler) }))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
