package ctxutil

import (
	"context"
	"testing"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	if got := ActorFromContext(ctx); got != "" {
		t.Errorf("expected empty actor, got %q", got)
	}
	if got := RunIDFromContext(ctx); got != "" {
		t.Errorf("expected empty run ID, got %q", got)
	}

	ctx = WithRunID(WithActorID(ctx, "engdeu0101"), "run-1")
	if got := ActorFromContext(ctx); got != "engdeu0101" {
		t.Errorf("ActorFromContext = %q", got)
	}
	if got := RunIDFromContext(ctx); got != "run-1" {
		t.Errorf("RunIDFromContext = %q", got)
	}
}
