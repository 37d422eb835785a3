package telemetry

import (
	"context"
	"testing"
)

func TestNoopStartRequestDoesNotPanic(t *testing.T) {
	tel := Noop()
	if tel.Logger == nil {
		t.Fatal("expected a non-nil logger from Noop()")
	}

	ctx, finish := tel.StartRequest(context.Background(), "GET", "/")
	if ctx == nil {
		t.Fatal("expected a non-nil context")
	}
	finish(200)
}

func TestNewBundlesLoggerTracerAndMetrics(t *testing.T) {
	tel := New("github.com/nyholt/emberhttp/telemetry_test")
	if tel.Logger == nil {
		t.Fatal("expected a non-nil logger from New()")
	}

	ctx, finish := tel.StartRequest(context.Background(), "GET", "/health")
	finish(200)
	_ = ctx
}
