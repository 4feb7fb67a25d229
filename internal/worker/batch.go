package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mortgageiq/loanforge/internal/pipeline"
)

// BatchProcessor runs a manifest of envelope files through the pipeline
// concurrently
type BatchProcessor struct {
	proc        Processor
	concurrency int
	limiter     *Limiter
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(proc Processor, concurrency int, limiter *Limiter) *BatchProcessor {
	return &BatchProcessor{
		proc:        proc,
		concurrency: concurrency,
		limiter:     limiter,
	}
}

// ProcessPaths loads each envelope file and processes them concurrently.
// A file that fails to load becomes a JobResult with an error; it never
// stops the batch.
func (b *BatchProcessor) ProcessPaths(ctx context.Context, paths []string) []JobResult {
	if len(paths) == 0 {
		return nil
	}

	pool := NewPool(b.concurrency, b.proc, b.limiter)
	pool.Start()

	// Propagate the caller's deadline into the pool
	stop := context.AfterFunc(ctx, pool.cancelFunc)
	defer stop()

	var loadFailures []JobResult
	for _, path := range paths {
		env, err := pipeline.LoadEnvelope(path)
		if err != nil {
			loadFailures = append(loadFailures, JobResult{Path: path, Err: err})
			continue
		}
		pool.Submit(Job{Path: path, Envelope: env})
	}

	results := pool.Wait()
	return append(results, loadFailures...)
}

// ProcessManifest reads envelope paths from a manifest file and processes
// them concurrently
func (b *BatchProcessor) ProcessManifest(ctx context.Context, manifestPath string) ([]JobResult, error) {
	paths, err := ReadManifest(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return b.ProcessPaths(ctx, paths), nil
}

// ReadManifest reads envelope paths from a file, one per line. Blank lines
// and # comments are skipped; duplicate paths are submitted once.
func ReadManifest(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer func() { _ = file.Close() }()

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan manifest: %w", err)
	}

	return paths, nil
}
