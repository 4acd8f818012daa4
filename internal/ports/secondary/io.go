package secondary

import (
	"context"

	"github.com/example/appraise/internal/core/batch"
)

// BatchSource defines the secondary port for reading uploaded batch files.
type BatchSource interface {
	// ReadBatches parses every batch contained in the file at path.
	ReadBatches(ctx context.Context, path string) ([]batch.RawBatch, error)
}

// CredentialRow is one exported line.
type CredentialRow struct {
	Username string
	Password string
	Token    string
}

// CredentialSink defines the secondary port for credential export files.
type CredentialSink interface {
	// Write serializes rows to path; the token column is included only
	// when withTokens is set.
	Write(ctx context.Context, path string, rows []CredentialRow, withTokens bool) error
}
