// Package diff implements the Diff Engine (spec.md §4.3, component D):
// combining a value-level comparison of a source/target resource file
// pair with per-key git blame to classify every source key as missing,
// outdated, or up to date in the target.
package diff

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/algebras-go/algebras/internal/errs"
	"github.com/algebras-go/algebras/internal/gitblame"
	"github.com/algebras-go/algebras/internal/registry"
)

// Options mirrors spec.md §4.3's `{check_mtime, check_missing,
// check_git_outdated}` input.
type Options struct {
	CheckMissing     bool
	CheckMtime       bool
	CheckGitOutdated bool
}

// Reason classifies why a key was reported outdated.
type Reason int

const (
	ReasonValueChanged Reason = iota
	ReasonGitOutdated
	ReasonMtimeOutdated
)

func (r Reason) String() string {
	switch r {
	case ReasonValueChanged:
		return "value_changed"
	case ReasonGitOutdated:
		return "git_outdated"
	case ReasonMtimeOutdated:
		return "mtime_outdated"
	default:
		return "unknown"
	}
}

// Result is the per-file-pair outcome of a Diff.
type Result struct {
	Missing  []string // dot-path keys present in source but absent from target
	Outdated []string // dot-path keys present in both, but stale in target
	Reasons  map[string]Reason
	// FileOutdated is set when CheckMtime degrades the whole file to stale
	// regardless of per-key results (spec.md §4.3 step 6).
	FileOutdated bool
}

// Engine bundles the shared Registry and the process-lifetime git blame
// cache every Diff call reuses.
type Engine struct {
	Registry *registry.Registry
	Git      *gitblame.Cache

	lineCache map[string]int // (path + "\x00" + key) -> 1-based line number, process-scoped
}

func NewEngine(reg *registry.Registry, git *gitblame.Cache) *Engine {
	return &Engine{Registry: reg, Git: git, lineCache: make(map[string]int)}
}

// Diff compares sourcePath against targetPath, both dispatched through the
// Registry by sourcePath's extension (spec.md §4.3 step 1).
func (e *Engine) Diff(ctx context.Context, sourcePath, targetPath string, opts Options) (*Result, error) {
	format, err := e.Registry.Lookup(sourcePath)
	if err != nil {
		return nil, errs.New(errs.KindFormat, sourcePath, err)
	}

	sourceMap, err := format.Read(sourcePath)
	if err != nil {
		return nil, errs.New(errs.KindFormat, sourcePath, err)
	}
	sourceFlat := sourceMap.Flatten()

	result := &Result{Reasons: map[string]Reason{}}

	targetMap, err := format.Read(targetPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, errs.New(errs.KindFormat, targetPath, err)
		}
		// Target file doesn't exist yet: every source key is missing.
		if opts.CheckMissing {
			result.Missing = sourceFlat.Keys()
			sort.Strings(result.Missing)
		}
		return result, nil
	}
	targetFlat := targetMap.Flatten()

	sourceKeys := keySetOf(sourceFlat)
	targetKeys := keySetOf(targetFlat)

	if opts.CheckMissing {
		result.Missing = registry.Difference(sourceKeys, targetKeys).SortedSlice()
	}

	candidates := registry.Intersect(sourceKeys, targetKeys).SortedSlice()
	var valueChanged []string
	for _, k := range candidates {
		sv, _ := sourceFlat.Get(k)
		tv, _ := targetFlat.Get(k)
		if sv != tv {
			valueChanged = append(valueChanged, k)
			result.Reasons[k] = ReasonValueChanged
		}
	}

	if opts.CheckGitOutdated && len(valueChanged) > 0 && gitblame.InWorkTree(ctx, filepath.Dir(sourcePath)) {
		outdated, err := e.gitOutdated(ctx, sourcePath, targetPath, valueChanged)
		if err != nil && errors.Is(err, errs.ErrGitUnavailable) {
			// Degrade gracefully: keep value-changed candidates as the
			// outdated set without git-level confirmation.
			outdated = valueChanged
		} else if err != nil {
			return nil, err
		}
		for _, k := range outdated {
			result.Reasons[k] = ReasonGitOutdated
		}
		result.Outdated = outdated
	} else {
		result.Outdated = valueChanged
	}

	if opts.CheckMtime {
		sInfo, sErr := os.Stat(sourcePath)
		tInfo, tErr := os.Stat(targetPath)
		if sErr == nil && tErr == nil && tInfo.ModTime().Before(sInfo.ModTime()) {
			result.FileOutdated = true
		}
	}

	return result, nil
}

func keySetOf(flat *registry.OrderedStrings) registry.KeySet {
	return registry.NewKeySet(flat.Keys()...)
}

// gitOutdated resolves each candidate key's line number in both files,
// batches blame lookups per file, and keeps only keys where the source
// line's author-time is strictly newer than the target line's (spec.md
// §4.3 steps 5a-5c).
func (e *Engine) gitOutdated(ctx context.Context, sourcePath, targetPath string, candidates []string) ([]string, error) {
	sourceData, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", sourcePath, err)
	}
	targetData, err := os.ReadFile(targetPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", targetPath, err)
	}

	sourceLines := make(map[string]int, len(candidates))
	targetLines := make(map[string]int, len(candidates))
	var sourceLineNums, targetLineNums []int
	for _, k := range candidates {
		if ln, ok := e.lineFor(sourcePath, sourceData, k); ok {
			sourceLines[k] = ln
			sourceLineNums = append(sourceLineNums, ln)
		}
		if ln, ok := e.lineFor(targetPath, targetData, k); ok {
			targetLines[k] = ln
			targetLineNums = append(targetLineNums, ln)
		}
	}

	sourceBlame, err := e.Git.Lines(ctx, sourcePath, sourceLineNums)
	if err != nil {
		return nil, err
	}
	targetBlame, err := e.Git.Lines(ctx, targetPath, targetLineNums)
	if err != nil {
		return nil, err
	}

	var outdated []string
	for _, k := range candidates {
		sl, sok := sourceLines[k]
		tl, tok := targetLines[k]
		if !sok || !tok {
			outdated = append(outdated, k) // can't prove it's current; treat as outdated
			continue
		}
		si, siok := sourceBlame[sl]
		ti, tiok := targetBlame[tl]
		if !siok || !tiok {
			outdated = append(outdated, k)
			continue
		}
		if si.When.UTC().After(ti.When.UTC()) {
			outdated = append(outdated, k)
		}
	}
	return outdated, nil
}

// lineFor resolves key's 1-based line number in data (the contents of
// path), memoized per (path, key) for the process lifetime (spec.md
// §4.3: "cached per (file, key) for the lifetime of the process").
func (e *Engine) lineFor(path string, data []byte, key string) (int, bool) {
	cacheKey := path + "\x00" + key
	if ln, ok := e.lineCache[cacheKey]; ok {
		return ln, ln > 0
	}
	ln, ok := FindLine(path, data, key)
	if ok {
		e.lineCache[cacheKey] = ln
	} else {
		e.lineCache[cacheKey] = 0
	}
	return ln, ok
}
