package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// multipartThreshold is the payload size above which uploads switch to the
// multipart manager.
const multipartThreshold = minPartSize

// uploader is the subset of Writer the archiver needs.
type uploader interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, contentType string, partSize int64) error
}

// EvaluationArchiver implements domain.Archiver by writing each evaluation as
// one JSON object under evaluations/{yyyy}/{mm}/{dd}/{market}/{unixnano}.json.
type EvaluationArchiver struct {
	writer uploader
	prefix string
}

// NewEvaluationArchiver creates an archiver. prefix is prepended to every key
// (e.g. "prod/"); it may be empty.
func NewEvaluationArchiver(w uploader, prefix string) *EvaluationArchiver {
	return &EvaluationArchiver{writer: w, prefix: prefix}
}

// ArchiveEvaluation uploads eval and returns the object key.
func (a *EvaluationArchiver) ArchiveEvaluation(ctx context.Context, eval domain.Evaluation) (string, error) {
	data, err := json.Marshal(eval)
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal evaluation %s: %w", eval.MarketID, err)
	}

	key := a.prefix + EvaluationKey(eval.MarketID, eval.EvaluatedAt)

	if int64(len(data)) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, key, bytes.NewReader(data), "application/json", minPartSize)
	} else {
		err = a.writer.Put(ctx, key, bytes.NewReader(data), "application/json")
	}
	if err != nil {
		return "", fmt.Errorf("s3blob: archive evaluation %s: %w", eval.MarketID, err)
	}
	return key, nil
}

// EvaluationKey builds the object key for a market evaluated at ts (UTC).
func EvaluationKey(marketID string, ts time.Time) string {
	ts = ts.UTC()
	return fmt.Sprintf("evaluations/%04d/%02d/%02d/%s/%d.json",
		ts.Year(), int(ts.Month()), ts.Day(), url.PathEscape(marketID), ts.UnixNano())
}

// Compile-time interface checks.
var (
	_ domain.Archiver   = (*EvaluationArchiver)(nil)
	_ domain.BlobWriter = (*Writer)(nil)
	_ uploader          = (*Writer)(nil)
)
