package cli

import (
	"context"
	"os"
	"os/user"

	"github.com/example/appraise/internal/ctxutil"
)

// ActorEnv overrides the detected operator name.
const ActorEnv = "APPRAISE_ACTOR"

// globalActorID stores the detected actor ID for the current CLI invocation.
// Set once at startup by DetectAndStoreActor().
var globalActorID string

// DetectAndStoreActor detects the current operator and stores it globally.
// Should be called once at CLI startup in PersistentPreRunE.
func DetectAndStoreActor() {
	if name := os.Getenv(ActorEnv); name != "" {
		globalActorID = name
		return
	}
	u, err := user.Current()
	if err != nil {
		// The pipeline falls back to the manifest owner.
		globalActorID = ""
		return
	}
	globalActorID = u.Username
}

// GetActorID returns the stored actor ID from CLI startup.
// Returns empty string if DetectAndStoreActor() was not called.
func GetActorID() string {
	return globalActorID
}

// NewContext creates a context.Background() with the current actor ID embedded.
// CLI commands should use this instead of context.Background() directly.
func NewContext() context.Context {
	ctx := context.Background()
	if globalActorID != "" {
		return ctxutil.WithActorID(ctx, globalActorID)
	}
	return ctx
}
