package domain

import (
	"context"
	"testing"
)

func TestRequestIDFrom(t *testing.T) {
	if id := RequestIDFrom(context.Background()); id != "" {
		t.Errorf("expected empty ID, got %q", id)
	}

	ctx := WithRequestID(context.Background(), "req-42")
	if id := RequestIDFrom(ctx); id != "req-42" {
		t.Errorf("expected req-42, got %q", id)
	}
}
