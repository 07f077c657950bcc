package domain

import (
	"context"
	"io"
)

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver keeps a cold copy of every evaluation.
type Archiver interface {
	ArchiveEvaluation(ctx context.Context, eval Evaluation) (string, error)
}
