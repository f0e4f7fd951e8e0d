// Package orchestrator implements the Sync Orchestrator (spec.md §4.6,
// component G): the translate / update / ci top-level flows that wire
// the Scanner, Path Resolver, Diff Engine and Translator Driver together
// and choose a Registry writer per spec.md §4.5. Grounded on the
// teacher's main.go command bodies (cmdTranslate/cmdUpdate-equivalent
// loops over discovered .po files), generalized from gettext-only to
// every registered format and from a single worker to a bounded pool.
package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/algebras-go/algebras/internal/config"
	"github.com/algebras-go/algebras/internal/diff"
	"github.com/algebras-go/algebras/internal/errs"
	"github.com/algebras-go/algebras/internal/gitblame"
	"github.com/algebras-go/algebras/internal/logging"
	"github.com/algebras-go/algebras/internal/registry"
	"github.com/algebras-go/algebras/internal/scanner"
	"github.com/algebras-go/algebras/internal/translator"
	"github.com/google/uuid"
)

// PlanEntry names one (source file, target locale) unit of translation
// work. A nil/empty Keys means "translate every key" (new file or forced
// full retranslation); a non-empty Keys restricts the Driver to exactly
// those dot-paths (spec.md §4.6 "explicit work plan").
type PlanEntry struct {
	Source       scanner.SourceFile
	TargetLocale string // internal locale code
	Keys         []string
}

// Plan is the explicit work plan the translate flow can honor instead of
// its own discovery logic (spec.md §4.6 4.6a).
type Plan struct {
	Entries []PlanEntry
}

// TranslateOptions controls the translate flow's default discovery logic,
// used only when no explicit Plan is supplied.
type TranslateOptions struct {
	Locales     []string // internal codes; empty means every configured target
	Force       bool
	OnlyMissing bool
	Plan        *Plan
}

// Issue is one file pair's outstanding problems, reported by the ci flow.
type Issue struct {
	Locale   string
	Source   string
	Target   string
	Missing  []string
	Outdated []string
}

// ValidationWarning is one translated key whose shape looked suspicious
// (length ratio, placeholder loss); informational only, never blocks a
// write (spec.md §7 ValidationWarning; SPEC_FULL.md §4).
type ValidationWarning struct {
	File    string
	Locale  string
	Key     string
	Message string
}

// Summary is the run-level report every flow returns (spec.md §7 "a
// summary is emitted with counts of files processed, keys translated,
// keys failed, and the first several failed key identifiers").
type Summary struct {
	RunID              string
	FilesProcessed     int
	KeysTranslated     int
	KeysFailed         int
	FailedKeys         []string
	Issues             []Issue
	ValidationWarnings []ValidationWarning

	mu sync.Mutex
}

// maxReportedFailedKeys bounds the FailedKeys sample kept in the summary.
const maxReportedFailedKeys = 10

func (s *Summary) recordSuccess(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FilesProcessed++
	s.KeysTranslated += n
}

func (s *Summary) recordFailed(keys []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.KeysFailed += len(keys)
	for _, k := range keys {
		if len(s.FailedKeys) < maxReportedFailedKeys {
			s.FailedKeys = append(s.FailedKeys, k)
		}
	}
}

func (s *Summary) recordIssue(issue Issue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Issues = append(s.Issues, issue)
}

func (s *Summary) recordValidationWarnings(warnings []ValidationWarning) {
	if len(warnings) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ValidationWarnings = append(s.ValidationWarnings, warnings...)
}

// Orchestrator bundles every component the Sync Orchestrator drives.
type Orchestrator struct {
	Registry   *registry.Registry
	Scanner    *scanner.Scanner
	Diff       *diff.Engine
	Translator *translator.Driver
	Config     *config.Config
	RootDir    string
}

func New(cfg *config.Config, reg *registry.Registry, sc *scanner.Scanner, diffEngine *diff.Engine, drv *translator.Driver, rootDir string) *Orchestrator {
	return &Orchestrator{Registry: reg, Scanner: sc, Diff: diffEngine, Translator: drv, Config: cfg, RootDir: rootDir}
}

// Translate runs the translate flow (spec.md §4.6): either processing an
// explicit Plan, or discovering work itself from source files on disk.
func (o *Orchestrator) Translate(ctx context.Context, opts TranslateOptions) (*Summary, error) {
	summary := &Summary{RunID: uuid.NewString()}

	plan := opts.Plan
	if plan == nil {
		built, err := o.buildDefaultPlan(ctx, opts)
		if err != nil {
			return summary, errs.New(errs.KindConfig, o.RootDir, err)
		}
		plan = built
	}

	o.runPlan(ctx, plan, summary)
	return summary, nil
}

// buildDefaultPlan implements spec.md §4.6's (b) branch: for each target
// locale and source file, decide whether the whole file, only its
// missing keys, or nothing needs translating.
func (o *Orchestrator) buildDefaultPlan(ctx context.Context, opts TranslateOptions) (*Plan, error) {
	sources, err := o.Scanner.Discover(o.RootDir, o.Config)
	if err != nil {
		return nil, err
	}

	targets := opts.Locales
	if len(targets) == 0 {
		targets = o.Config.Locales.Targets()
	}

	plan := &Plan{}
	for _, locale := range targets {
		for _, sf := range sources {
			targetPath := o.Scanner.TargetPath(sf, locale)
			targetInfo, statErr := os.Stat(targetPath)
			targetMissing := statErr != nil

			switch {
			case targetMissing || opts.Force:
				plan.Entries = append(plan.Entries, PlanEntry{Source: sf, TargetLocale: locale})
			case opts.OnlyMissing:
				res, diffErr := o.Diff.Diff(ctx, sf.Path, targetPath, diff.Options{CheckMissing: true})
				if diffErr != nil {
					logging.Error(diffErr, "diffing %s against %s", sf.Path, targetPath)
					continue
				}
				if len(res.Missing) > 0 {
					plan.Entries = append(plan.Entries, PlanEntry{Source: sf, TargetLocale: locale, Keys: res.Missing})
				}
			default:
				sourceInfo, sErr := os.Stat(sf.Path)
				if sErr == nil && !targetInfo.ModTime().Before(sourceInfo.ModTime()) {
					continue // target is at least as new as source: nothing to do
				}
				plan.Entries = append(plan.Entries, PlanEntry{Source: sf, TargetLocale: locale})
			}
		}
	}
	return plan, nil
}

// Update runs the update flow (spec.md §4.6): diff every (source, target)
// pair with the full check set, build a plan from the results, then hand
// it to the translate flow.
func (o *Orchestrator) Update(ctx context.Context, locales []string) (*Summary, error) {
	plan, err := o.buildUpdatePlan(ctx, locales)
	if err != nil {
		return &Summary{RunID: uuid.NewString()}, errs.New(errs.KindConfig, o.RootDir, err)
	}
	return o.Translate(ctx, TranslateOptions{Plan: plan})
}

func (o *Orchestrator) buildUpdatePlan(ctx context.Context, locales []string) (*Plan, error) {
	sources, err := o.Scanner.Discover(o.RootDir, o.Config)
	if err != nil {
		return nil, err
	}
	if len(locales) == 0 {
		locales = o.Config.Locales.Targets()
	}

	plan := &Plan{}
	for _, locale := range locales {
		for _, sf := range sources {
			targetPath := o.Scanner.TargetPath(sf, locale)
			if _, statErr := os.Stat(targetPath); statErr != nil {
				plan.Entries = append(plan.Entries, PlanEntry{Source: sf, TargetLocale: locale})
				continue
			}

			gitOutdatedCheck := gitblame.InWorkTree(ctx, filepath.Dir(sf.Path))
			res, diffErr := o.Diff.Diff(ctx, sf.Path, targetPath, diff.Options{
				CheckMtime:       true,
				CheckMissing:     true,
				CheckGitOutdated: gitOutdatedCheck,
			})
			if diffErr != nil {
				logging.Error(diffErr, "diffing %s against %s", sf.Path, targetPath)
				continue
			}

			if res.FileOutdated {
				plan.Entries = append(plan.Entries, PlanEntry{Source: sf, TargetLocale: locale})
				continue
			}

			keys := dedupKeys(res.Missing, res.Outdated)
			if len(keys) > 0 {
				plan.Entries = append(plan.Entries, PlanEntry{Source: sf, TargetLocale: locale, Keys: keys})
			}
		}
	}
	return plan, nil
}

func dedupKeys(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, k := range append(append([]string{}, a...), b...) {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// CI runs the diff-only flow (spec.md §4.6): never calls the Translator,
// just reports every file pair's missing/outdated keys.
func (o *Orchestrator) CI(ctx context.Context, locales []string) (*Summary, error) {
	summary := &Summary{RunID: uuid.NewString()}

	sources, err := o.Scanner.Discover(o.RootDir, o.Config)
	if err != nil {
		return summary, errs.New(errs.KindConfig, o.RootDir, err)
	}
	if len(locales) == 0 {
		locales = o.Config.Locales.Targets()
	}

	maxParallel := o.Config.MaxParallelBatches
	sem := make(chan struct{}, maxParallel)
	var wg sync.WaitGroup

	for _, locale := range locales {
		for _, sf := range sources {
			sem <- struct{}{}
			wg.Add(1)
			go func(sf scanner.SourceFile, locale string) {
				defer func() { <-sem; wg.Done() }()
				targetPath := o.Scanner.TargetPath(sf, locale)
				gitOutdatedCheck := gitblame.InWorkTree(ctx, filepath.Dir(sf.Path))
				res, diffErr := o.Diff.Diff(ctx, sf.Path, targetPath, diff.Options{
					CheckMtime:       true,
					CheckMissing:     true,
					CheckGitOutdated: gitOutdatedCheck,
				})
				if diffErr != nil {
					logging.Error(diffErr, "diffing %s against %s", sf.Path, targetPath)
					return
				}
				summary.mu.Lock()
				summary.FilesProcessed++
				summary.mu.Unlock()
				if len(res.Missing) > 0 || len(res.Outdated) > 0 || res.FileOutdated {
					summary.recordIssue(Issue{Locale: locale, Source: sf.Path, Target: targetPath, Missing: res.Missing, Outdated: res.Outdated})
				}
			}(sf, locale)
		}
	}
	wg.Wait()

	return summary, nil
}

// runPlan executes every entry of plan with bounded parallelism across
// (source, locale) pairs (spec.md §5: "the Orchestrator guarantees that
// no two workers write the same path concurrently by partitioning work
// by target path" — trivially satisfied since each entry owns a distinct
// target path).
func (o *Orchestrator) runPlan(ctx context.Context, plan *Plan, summary *Summary) {
	maxParallel := o.Config.MaxParallelBatches
	if maxParallel < 1 {
		maxParallel = 1
	}
	sem := make(chan struct{}, maxParallel)
	var wg sync.WaitGroup

	for _, entry := range plan.Entries {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(entry PlanEntry) {
			defer func() { <-sem; wg.Done() }()
			if err := o.processEntry(ctx, entry, summary); err != nil {
				logging.Error(err, "translating %s -> %s", entry.Source.Path, entry.TargetLocale)
			}
		}(entry)
	}
	wg.Wait()
}

// processEntry translates one (source file, target locale) pair and
// writes the result via Writer Selection (spec.md §4.5). A FormatError
// here is file-scoped: it's logged and the run continues.
func (o *Orchestrator) processEntry(ctx context.Context, entry PlanEntry, summary *Summary) error {
	format, err := o.Registry.Lookup(entry.Source.Path)
	if err != nil {
		return errs.New(errs.KindFormat, entry.Source.Path, err)
	}

	sourceMap, err := format.Read(entry.Source.Path)
	if err != nil {
		return errs.New(errs.KindFormat, entry.Source.Path, err)
	}

	targetPath := o.Scanner.TargetPath(entry.Source, entry.TargetLocale)
	targetExists := true
	targetMap, err := format.Read(targetPath)
	if err != nil {
		targetExists = false
		targetMap = registry.NewResourceMap()
	}

	keys := entry.Keys
	if len(keys) == 0 {
		keys = sourceMap.Flatten().Keys()
	}
	if len(keys) == 0 {
		return nil
	}

	destCode := o.Config.Locales.Destination(entry.TargetLocale)
	opts := translator.Options{
		GlossaryID:       o.Config.API.GlossaryID,
		CustomPrompt:     o.Config.API.Prompt,
		NormalizeStrings: o.Config.API.NormalizeStringsOr(),
	}

	merged, failed, warnings, err := o.Translator.TranslateMissingKeysBatch(ctx, sourceMap, targetMap, keys, destCode, opts)
	if err != nil {
		return errs.New(errs.KindProviderPermanent, entry.Source.Path, err)
	}

	if len(warnings) > 0 {
		converted := make([]ValidationWarning, len(warnings))
		for i, w := range warnings {
			converted[i] = ValidationWarning{File: entry.Source.Path, Locale: entry.TargetLocale, Key: w.Key, Message: w.Message}
			logging.Warning("%s [%s] %s: %s", entry.Source.Path, entry.TargetLocale, w.Key, w.Message)
		}
		summary.recordValidationWarnings(converted)
	}

	failedSet := make(map[string]struct{}, len(failed))
	var failedKeys []string
	for _, f := range failed {
		failedSet[f.Key] = struct{}{}
		failedKeys = append(failedKeys, f.Key)
	}
	summary.recordFailed(failedKeys)

	var updated []string
	for _, k := range keys {
		if _, ok := failedSet[k]; !ok {
			updated = append(updated, k)
		}
	}
	if len(updated) == 0 {
		return nil
	}
	summary.recordSuccess(len(updated))

	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return err
	}

	return o.write(format, targetPath, targetMap, merged, updated, targetExists)
}

// write implements Writer Selection (spec.md §4.5): full regeneration is
// forced by config, or chosen when the format can't do in-place updates,
// or when there's no pre-existing file for an in-place diff to apply to.
func (o *Orchestrator) write(format registry.Format, targetPath string, original, merged *registry.ResourceMap, updatedKeys []string, targetExists bool) error {
	if o.Config.RegenerateFromScratch {
		return format.WriteFull(targetPath, merged)
	}
	if targetExists && format.InPlaceCapable() {
		return format.WriteInPlace(targetPath, original, merged, registry.NewKeySet(updatedKeys...))
	}
	if !format.InPlaceCapable() {
		logging.Info("%s has no in-place writer; regenerating %s from scratch", format.Name(), targetPath)
	}
	return format.WriteFull(targetPath, merged)
}
