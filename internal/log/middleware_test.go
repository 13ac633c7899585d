package log

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddlewareInstallsLoggerInContext(t *testing.T) {
	logger := New(DefaultConfig()).WithComponent(ComponentHTTP)

	var got *Logger
	h := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got != logger {
		t.Fatalf("expected the middleware's logger out of the request context")
	}
}

func TestFromContextFallsBack(t *testing.T) {
	logger := FromContext(context.Background())
	if logger == nil {
		t.Fatalf("expected a usable fallback logger")
	}
	if logger.Component() != ComponentHTTP {
		t.Fatalf("expected the http-tagged fallback, got %q", logger.Component())
	}
}
