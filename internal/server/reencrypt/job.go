// Package reencrypt re-wraps stored files under the current primary key so
// fallback secrets can eventually be retired.
package reencrypt

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/securefiles/internal/common"
	"github.com/dmitrijs2005/securefiles/internal/logging"
	"github.com/dmitrijs2005/securefiles/internal/server/metrics"
	"github.com/dmitrijs2005/securefiles/internal/server/models"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize   = 10
	DefaultConcurrency = 4
)

// Source lists the records a run walks over.
type Source interface {
	Count(ctx context.Context, filter models.Filter) (int64, error)
	ListAfter(ctx context.Context, filter models.Filter, cursor models.Cursor, limit int) ([]*models.SecureFile, error)
}

// Reencrypter re-wraps a single record.
type Reencrypter interface {
	Reencrypt(ctx context.Context, f *models.SecureFile) error
}

// Options controls one run.
type Options struct {
	Filter    models.Filter
	BatchSize int
	DryRun    bool
}

// Result reports the outcome of a run. In dry-run mode Processed counts the
// records that would have been re-encrypted and Succeeded stays zero.
type Result struct {
	Matched   int64
	Processed int
	Succeeded int
	Failed    int
}

type Job struct {
	source      Source
	reencrypter Reencrypter
	logger      logging.Logger
	metrics     *metrics.Metrics
	concurrency int
}

type Option func(*Job)

func WithMetrics(m *metrics.Metrics) Option {
	return func(j *Job) { j.metrics = m }
}

// WithConcurrency bounds how many records of a batch are processed at once.
func WithConcurrency(n int) Option {
	return func(j *Job) {
		if n > 0 {
			j.concurrency = n
		}
	}
}

func NewJob(source Source, reencrypter Reencrypter, logger logging.Logger, opts ...Option) *Job {
	j := &Job{
		source:      source,
		reencrypter: reencrypter,
		logger:      logger,
		concurrency: DefaultConcurrency,
	}
	for _, o := range opts {
		o(j)
	}
	return j
}

// Run walks every record matching opts.Filter in (created_at, id) order,
// batch by batch. A failing record is logged and counted but does not stop
// the run; only listing errors and cancellation abort it. Running again
// after a partial failure picks up whatever is left, since records that were
// not migrated still open with their fallback key.
func (j *Job) Run(ctx context.Context, opts Options) (Result, error) {
	var res Result

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	matched, err := j.source.Count(ctx, opts.Filter)
	if err != nil {
		return res, fmt.Errorf("count files: %w", err)
	}
	res.Matched = matched
	j.logger.Info(ctx, "reencryption started", "matched", matched, "batch_size", batchSize, "dry_run", opts.DryRun)

	var cursor models.Cursor
	for batch := 1; ; batch++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		files, err := j.source.ListAfter(ctx, opts.Filter, cursor, batchSize)
		if err != nil {
			return res, fmt.Errorf("list files: %w", err)
		}
		if len(files) == 0 {
			break
		}
		last := files[len(files)-1]
		cursor = models.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}

		if opts.DryRun {
			for _, f := range files {
				j.logger.Info(ctx, "would reencrypt file", "file_id", f.ID, "owner", f.OwnerID, "category", f.Category)
			}
			res.Processed += len(files)
			continue
		}

		ok := j.runBatch(ctx, files)
		res.Processed += len(files)
		res.Succeeded += ok
		res.Failed += len(files) - ok
		j.logger.Info(ctx, "reencryption batch done", "batch", batch, "size", len(files), "succeeded", ok)

		if len(files) < batchSize {
			break
		}
	}

	j.logger.Info(ctx, "reencryption finished", "processed", res.Processed, "succeeded", res.Succeeded, "failed", res.Failed)
	return res, nil
}

// runBatch re-encrypts files concurrently and returns how many succeeded.
func (j *Job) runBatch(ctx context.Context, files []*models.SecureFile) int {
	results := make([]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)
	for i, f := range files {
		g.Go(func() error {
			err := j.reencrypter.Reencrypt(gctx, f)
			j.observe(err)
			if err != nil {
				j.logger.Error(gctx, "reencryption failed", "file_id", f.ID, "reason", reason(err))
				return nil
			}
			results[i] = true
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, ok := range results {
		if ok {
			n++
		}
	}
	return n
}

func (j *Job) observe(err error) {
	if j.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	j.metrics.Reencryptions.WithLabelValues(result).Inc()
}

// reason maps err to a short label that is safe to log. The error text
// itself is never returned.
func reason(err error) string {
	for _, k := range []struct {
		target error
		label  string
	}{
		{common.ErrDecryption, "decryption"},
		{common.ErrIntegrity, "integrity"},
		{common.ErrStorageUnavailable, "storage_unavailable"},
		{common.ErrorNotFound, "not_found"},
		{common.ErrVersionConflict, "version_conflict"},
		{context.Canceled, "canceled"},
		{context.DeadlineExceeded, "timeout"},
	} {
		if errors.Is(err, k.target) {
			return k.label
		}
	}
	return "other"
}
