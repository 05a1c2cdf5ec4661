package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
	"github.com/git-pkgs/purl"
	"github.com/git-pkgs/spdx"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/deepdreamgames/pachka/internal/ingest"
)

// ScanStats summarizes one scan for logging and metrics.
type ScanStats struct {
	Candidates int
	Ingested   int
	Failed     int
	Duration   time.Duration
	BreakerOpen bool
}

// ScanOptions configures a directory scan.
type ScanOptions struct {
	Dir         string
	Extensions  []string // lower-cased, dot-prefixed
	Concurrency int64    // defaults to 8 if <= 0
	Logger      *zap.Logger
	OnFailure   func(reason string) // metrics hook, may be nil
}

// Scan walks Dir for candidate tarball files and ingests each one through a
// bounded worker pool (golang.org/x/sync/semaphore), guarded
// by a circuit breaker that trips after five consecutive ingestion failures
// so a systemically broken packages directory doesn't burn through every
// file with the same error. It returns the finalized Catalog even if some
// files were rejected — ingestion errors are logged and skipped, never
// fatal.
func Scan(ctx context.Context, opts ScanOptions) (*Catalog, ScanStats, error) {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	candidates, err := findCandidates(opts.Dir, opts.Extensions)
	if err != nil {
		return nil, ScanStats{}, fmt.Errorf("catalog: listing %s: %w", opts.Dir, err)
	}

	breaker := circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    newIngestBackoff(),
		ShouldTrip: circuit.ConsecutiveTripFunc(5),
	})

	builder := NewBuilder()
	var mu sync.Mutex
	var failed int

	sem := semaphore.NewWeighted(concurrency)
	var wg sync.WaitGroup

	for _, path := range candidates {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			defer sem.Release(1)

			if !breaker.Ready() {
				mu.Lock()
				failed++
				mu.Unlock()
				logger.Warn("skipping candidate: ingestion circuit breaker open", zap.String("file", path))
				if opts.OnFailure != nil {
					opts.OnFailure("circuit_open")
				}
				return
			}

			var res *ingest.Result
			err := breaker.Call(func() error {
				r, ingestErr := ingestWithRetry(path)
				if ingestErr != nil {
					return ingestErr
				}
				res = r
				return nil
			}, 0)

			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				logger.Error("ingestion failed", zap.String("file", path), zap.Error(err))
				if opts.OnFailure != nil {
					opts.OnFailure("ingest_error")
				}
				return
			}

			enrichWithCorrelation(logger, res)

			mu.Lock()
			addErr := builder.Add(res.Name, res.Version, res.Doc, res.ModTime)
			mu.Unlock()
			if addErr != nil {
				logger.Error("rejecting version", zap.String("file", path), zap.Error(addErr))
				mu.Lock()
				failed++
				mu.Unlock()
				if opts.OnFailure != nil {
					opts.OnFailure("duplicate_version")
				}
			}
		}(path)
	}
	wg.Wait()

	cat := builder.Build()
	stats := ScanStats{
		Candidates:  len(candidates),
		Ingested:    len(candidates) - failed,
		Failed:      failed,
		Duration:    time.Since(start),
		BreakerOpen: !breaker.Ready(),
	}
	return cat, stats, nil
}

// newIngestBackoff configures an exponential backoff for local file opens
// that fail transiently (e.g. a file mid-write by another process).
func newIngestBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 5 * time.Second
	b.Multiplier = 2.0
	b.Reset()
	return b
}

// ingestWithRetry retries a transient open/read failure a bounded number of
// times before giving up; a permanent ingestion error (bad tar, missing
// package.json) is not retried since backoff.Permanent short-circuits it.
// ingest.File wraps every failure in an *apperr.Error, so the transient
// check unwraps to the underlying os error rather than testing err itself.
func ingestWithRetry(path string) (*ingest.Result, error) {
	var res *ingest.Result
	op := func() error {
		r, err := ingest.File(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
				return err // transient/environmental, retry
			}
			return backoff.Permanent(err)
		}
		res = r
		return nil
	}
	if err := backoff.Retry(op, newIngestBackoff()); err != nil {
		if perm, ok := err.(*backoff.PermanentError); ok {
			return nil, perm.Err
		}
		return nil, err
	}
	return res, nil
}

// enrichWithCorrelation attaches non-fatal, log-only context to a
// successful ingestion: a Package URL for cross-tool correlation, and an
// SPDX license-expression validity check when package.json declares one.
// Neither failure here affects the version document served to clients.
func enrichWithCorrelation(logger *zap.Logger, res *ingest.Result) {
	p, err := purl.Parse(fmt.Sprintf("pkg:generic/%s@%s", res.Name, res.Version))
	if err == nil {
		logger.Debug("ingested version", zap.String("purl", p.String()))
	}

	license, ok := res.Doc.GetString("license")
	if !ok || license == "" {
		return
	}
	if _, err := spdx.Parse(license); err != nil {
		logger.Warn("package.json license is not a valid SPDX expression",
			zap.String("name", res.Name), zap.String("version", res.Version), zap.String("license", license))
	}
}

// findCandidates lists Dir (non-recursive, matching the source's flat
// packages directory) for files whose extension, compared case-insensitively,
// is in extensions.
func findCandidates(dir string, extensions []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if hasAnyExtension(e.Name(), extensions) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

func hasAnyExtension(name string, extensions []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
