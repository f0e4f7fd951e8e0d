// Package translator implements the Translator Driver (spec.md §4.4,
// component F): batching, bounded parallelism, adaptive payload-size
// splitting and retry around the external Translator capability. The
// concurrency shape (semaphore-bounded worker goroutines over a task
// slice, first-error-wins) is adapted from the teacher's
// runParallelGeneric and rateLimitState in translate/translate.go.
package translator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/algebras-go/algebras/internal/errs"
	"github.com/algebras-go/algebras/internal/logging"
	"github.com/algebras-go/algebras/internal/registry"
)

// Options mirrors the external Translator capability's per-call knobs
// (spec.md §4.4): `options = {ui_safe, glossary_id, custom_prompt,
// normalize_strings}`.
type Options struct {
	UISafe           bool
	GlossaryID       string
	CustomPrompt     string
	NormalizeStrings bool
}

// Provider is the external Translator capability the Driver consumes.
// translate_batch's guarantee (len(result) == len(strings), order
// preserved) is the caller's contract to honor; the Driver does not
// re-validate it beyond a length check.
type Provider interface {
	TranslateBatch(ctx context.Context, strs []string, targetLocale string, opts Options) ([]string, error)
}

// Driver batches and parallelizes calls to a Provider.
type Driver struct {
	Provider           Provider
	BatchSize          int
	MaxParallelBatches int
	MaxRetries         int // default 3, per spec.md §4.4 "suggested 3"
}

func New(p Provider, batchSize, maxParallelBatches int) *Driver {
	if batchSize < 1 {
		batchSize = 1
	}
	if maxParallelBatches < 1 {
		maxParallelBatches = 1
	}
	return &Driver{Provider: p, BatchSize: batchSize, MaxParallelBatches: maxParallelBatches, MaxRetries: 3}
}

// FailedKey records a key that could not be translated after adaptive
// splitting bottomed out at a single element still failing (spec.md
// §4.4: "recorded as failed and skipped without aborting the job").
type FailedKey struct {
	Key string
	Err error
}

// TranslateMissingKeysBatch and TranslateOutdatedKeysBatch differ only in
// intent, not mechanics (spec.md §4.4); both delegate to translateKeys.

func (d *Driver) TranslateMissingKeysBatch(ctx context.Context, source, target *registry.ResourceMap, keys []string, targetLocale string, opts Options) (*registry.ResourceMap, []FailedKey, []ValidationWarning, error) {
	return d.translateKeys(ctx, source, target, keys, targetLocale, opts)
}

func (d *Driver) TranslateOutdatedKeysBatch(ctx context.Context, source, target *registry.ResourceMap, keys []string, targetLocale string, opts Options) (*registry.ResourceMap, []FailedKey, []ValidationWarning, error) {
	return d.translateKeys(ctx, source, target, keys, targetLocale, opts)
}

// translateKeys resolves keys against the flattened source map, batches
// them, translates in parallel, and writes results into a copy of target
// at their dot-notation paths (spec.md §4.4). Successful translations are
// additionally checked for suspicious shape (SPEC_FULL.md §4 validation
// warnings); those never block the write, only get surfaced to the caller.
func (d *Driver) translateKeys(ctx context.Context, source, target *registry.ResourceMap, keys []string, targetLocale string, opts Options) (*registry.ResourceMap, []FailedKey, []ValidationWarning, error) {
	merged := target.Clone()
	if len(keys) == 0 {
		return merged, nil, nil, nil
	}

	sourceFlat := source.Flatten()
	resolved := make([]string, 0, len(keys))
	resolvedKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		if v, ok := sourceFlat.Get(k); ok {
			resolved = append(resolved, v)
			resolvedKeys = append(resolvedKeys, k)
		}
	}

	batchKeys, batchStrs := batchOf(resolvedKeys, resolved, d.BatchSize)

	results := make([][]string, len(batchKeys))
	failedCh := make(chan FailedKey, len(resolvedKeys))
	warnCh := make(chan ValidationWarning, len(resolvedKeys))

	err := runParallel(ctx, len(batchKeys), d.MaxParallelBatches, func(ctx context.Context, i int) error {
		translated, failed, batchErr := d.translateBatchWithSplit(ctx, batchKeys[i], batchStrs[i], targetLocale, opts)
		results[i] = translated
		for _, f := range failed {
			failedCh <- f
		}
		if batchErr == nil {
			for j, k := range batchKeys[i] {
				if j < len(translated) && translated[j] != "" {
					if warning, ok := validateTranslation(k, batchStrs[i][j], translated[j]); ok {
						warnCh <- warning
					}
				}
			}
		}
		return batchErr
	})
	close(failedCh)
	close(warnCh)
	if err != nil {
		return nil, nil, nil, err
	}

	var failedKeys []FailedKey
	for f := range failedCh {
		failedKeys = append(failedKeys, f)
	}
	var warnings []ValidationWarning
	for w := range warnCh {
		warnings = append(warnings, w)
	}

	for i, bk := range batchKeys {
		for j, k := range bk {
			if j < len(results[i]) && results[i][j] != "" {
				merged.SetPath(k, results[i][j])
			}
		}
	}

	return merged, failedKeys, warnings, nil
}

// translateBatchWithSplit calls the provider for one batch, adaptively
// halving and retrying on a payload-too-large signal (spec.md §4.4:
// "split the failing batch into two equal halves and retry each
// recursively. A single-element batch that still fails is recorded as
// failed and skipped without aborting the job"). The returned translated
// slice is aligned with keys; entries for failed keys are "". A
// ProviderPermanent error is not recorded as a per-key failure: it is
// returned directly so the caller aborts the job (spec.md §4.4/§7:
// "Permanent errors … surface immediately"; "unrecoverable ProviderPermanent
// on the first call abort the run").
func (d *Driver) translateBatchWithSplit(ctx context.Context, keys, strs []string, targetLocale string, opts Options) ([]string, []FailedKey, error) {
	out := make([]string, len(keys))
	translated, err := d.callWithRetry(ctx, strs, targetLocale, opts)
	if err == nil {
		copy(out, translated)
		return out, nil, nil
	}

	if errors.Is(err, errs.ErrProviderPermanent) {
		return out, nil, err
	}

	if !errors.Is(err, errs.ErrProviderPayloadTooLarge) {
		failed := make([]FailedKey, len(keys))
		for i, k := range keys {
			failed[i] = FailedKey{Key: k, Err: err}
		}
		return out, failed, nil
	}

	if len(keys) <= 1 {
		logging.Warning("translator: batch of 1 still too large for %q, skipping", targetLocale)
		return out, []FailedKey{{Key: keys[0], Err: err}}, nil
	}

	mid := len(keys) / 2
	leftOut, leftFailed, leftErr := d.translateBatchWithSplit(ctx, keys[:mid], strs[:mid], targetLocale, opts)
	if leftErr != nil {
		return out, nil, leftErr
	}
	rightOut, rightFailed, rightErr := d.translateBatchWithSplit(ctx, keys[mid:], strs[mid:], targetLocale, opts)
	if rightErr != nil {
		return out, nil, rightErr
	}
	copy(out[:mid], leftOut)
	copy(out[mid:], rightOut)
	return out, append(leftFailed, rightFailed...), nil
}

// callWithRetry retries transient provider errors with exponential
// backoff (spec.md §4.4: "suggested 3" attempts); permanent and
// payload-too-large errors surface immediately without retry.
func (d *Driver) callWithRetry(ctx context.Context, strs []string, targetLocale string, opts Options) ([]string, error) {
	maxRetries := d.MaxRetries
	if maxRetries < 1 {
		maxRetries = 3
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		result, err := d.Provider.TranslateBatch(ctx, strs, targetLocale, opts)
		if err == nil {
			if len(result) != len(strs) {
				return nil, fmt.Errorf("translator: provider returned %d results for %d inputs", len(result), len(strs))
			}
			return result, nil
		}
		err = logging.Wrap(err, fmt.Sprintf("translator: provider call failed for %q (attempt %d/%d)", targetLocale, attempt+1, maxRetries))
		lastErr = err
		if !errors.Is(err, errs.ErrProviderTransient) {
			return nil, err
		}
		if attempt < maxRetries-1 {
			backoff := backoffDelay(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return nil, lastErr
}

func backoffDelay(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * 500 * time.Millisecond
	jitter := time.Duration(rand.Intn(250)) * time.Millisecond
	return base + jitter
}

func batchOf(keys, strs []string, size int) ([][]string, [][]string) {
	var keyBatches, strBatches [][]string
	for i := 0; i < len(keys); i += size {
		end := i + size
		if end > len(keys) {
			end = len(keys)
		}
		keyBatches = append(keyBatches, keys[i:end])
		strBatches = append(strBatches, strs[i:end])
	}
	return keyBatches, strBatches
}

// runParallel runs fn(ctx, i) for i in [0, n) across up to maxConcurrent
// goroutines, preserving each call's index association in the caller's
// own results slice (order preservation is by batch index, not
// completion order, per spec.md §4.4).
func runParallel(ctx context.Context, n, maxConcurrent int, fn func(context.Context, int) error) error {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(i int) {
			defer func() {
				<-sem
				wg.Done()
			}()
			if err := fn(ctx, i); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	return firstErr
}
