package otel_test

import (
	"context"
	"testing"

	"github.com/peterkuimelis/anchorlink/internal/otel"
)

func TestSetupNoopWithoutEndpoint(t *testing.T) {
	t.Setenv("ANCHORLINK_OTEL_ENDPOINT", "")
	t.Setenv("ANCHORLINK_OTEL_ENABLED", "")

	shutdown, err := otel.Setup(context.Background(), "anchorlink-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetupNoopWhenDisabled(t *testing.T) {
	t.Setenv("ANCHORLINK_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("ANCHORLINK_OTEL_ENABLED", "false")

	shutdown, err := otel.Setup(context.Background(), "anchorlink-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetupWithEndpoint(t *testing.T) {
	// Non-routable address: nothing is exported before shutdown.
	t.Setenv("ANCHORLINK_OTEL_ENDPOINT", "http://192.0.2.1:4318")
	t.Setenv("ANCHORLINK_OTEL_ENABLED", "")

	shutdown, err := otel.Setup(context.Background(), "anchorlink-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}
