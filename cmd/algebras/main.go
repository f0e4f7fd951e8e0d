// Command algebras is the thin CLI front end over the translation
// synchronization engine (SPEC_FULL.md §1.5): a cobra root command with
// translate/update/ci subcommands, shaped after the teacher's
// newRootCmd/newTranslateCmd (colored banner, SilenceUsage/SilenceErrors,
// os.Exit on error). Help text and exact flag shaping are explicitly out
// of the core's spec authority; this exists only to give the engine a
// runnable home.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/algebras-go/algebras/internal/config"
	"github.com/algebras-go/algebras/internal/diff"
	"github.com/algebras-go/algebras/internal/errs"
	"github.com/algebras-go/algebras/internal/formats"
	"github.com/algebras-go/algebras/internal/gitblame"
	"github.com/algebras-go/algebras/internal/logging"
	"github.com/algebras-go/algebras/internal/orchestrator"
	"github.com/algebras-go/algebras/internal/scanner"
	"github.com/algebras-go/algebras/internal/translator"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	rootDir     string
	configFile  string
	verboseFlag bool
	localesFlag []string
	forceFlag   bool
	onlyMissing bool
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		logging.Error(err, "command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "algebras",
		Short:         "Keep translated resource files synchronized with a source locale",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Verbose = verboseFlag
		},
	}
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "project root directory")
	root.PersistentFlags().StringVarP(&configFile, "config-file", "f", "", "path to .algebras.config (default: <root>/.algebras.config)")
	root.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "print full error stack traces")
	root.PersistentFlags().StringSliceVar(&localesFlag, "locale", nil, "restrict to these target locales (default: all configured)")

	root.AddCommand(newTranslateCmd(), newUpdateCmd(), newCICmd())
	return root
}

// buildOrchestrator loads configuration and wires every component,
// exactly the dependency graph spec.md §2's flow diagram describes:
// Scanner + Path Resolver feed the Diff Engine, which feeds the
// Translator Driver, all under one Orchestrator.
func buildOrchestrator() (*orchestrator.Orchestrator, error) {
	path := config.ResolvePath(rootDir, configFile)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cfg.PathRulesDeprecated {
		logging.Warning("%s: path_rules is deprecated; use source_files instead", path)
	}

	reg := formats.NewDefault(cfg)
	sc := scanner.New(reg, cfg.Locales)
	diffEngine := diff.NewEngine(reg, gitblame.NewCache())
	drv := translator.New(stubProvider{}, cfg.BatchSize, cfg.MaxParallelBatches)

	return orchestrator.New(cfg, reg, sc, diffEngine, drv, rootDir), nil
}

// stubProvider stands in for the real Translator transport (spec.md §1
// non-goal: "the HTTP transport to the translation provider"). Every
// call surfaces ProviderPermanent until a real provider is wired, so the
// binary builds and runs without a network dependency.
type stubProvider struct{}

func (stubProvider) TranslateBatch(ctx context.Context, strs []string, targetLocale string, opts translator.Options) ([]string, error) {
	return nil, errs.New(errs.KindProviderPermanent, "translate", fmt.Errorf("algebras: no translation provider configured (api.provider in .algebras.config)"))
}

func newTranslateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate missing or stale keys into every configured target locale",
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := buildOrchestrator()
			if err != nil {
				return err
			}
			summary, err := o.Translate(cmd.Context(), orchestrator.TranslateOptions{
				Locales:     localesFlag,
				Force:       forceFlag,
				OnlyMissing: onlyMissing,
			})
			if err != nil {
				return err
			}
			printSummary(summary)
			if summary.KeysFailed > 0 && summary.KeysTranslated == 0 {
				return fmt.Errorf("translate: every key failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&forceFlag, "force", false, "retranslate every key regardless of existing target content")
	cmd.Flags().BoolVar(&onlyMissing, "only-missing", false, "translate only keys absent from the target file")
	return cmd
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Diff every target against its source and translate what's missing or outdated",
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := buildOrchestrator()
			if err != nil {
				return err
			}
			summary, err := o.Update(cmd.Context(), localesFlag)
			if err != nil {
				return err
			}
			printSummary(summary)
			return nil
		},
	}
}

func newCICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ci",
		Short: "Report missing/outdated keys without translating; exits non-zero if any remain",
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := buildOrchestrator()
			if err != nil {
				return err
			}
			summary, err := o.CI(cmd.Context(), localesFlag)
			if err != nil {
				return err
			}
			printCIReport(summary)
			if len(summary.Issues) > 0 {
				return fmt.Errorf("ci: %d file(s) have missing or outdated keys", len(summary.Issues))
			}
			return nil
		},
	}
}

func printSummary(s *orchestrator.Summary) {
	logging.Info("run %s: %d file(s) processed, %d key(s) translated, %d key(s) failed", s.RunID, s.FilesProcessed, s.KeysTranslated, s.KeysFailed)
	if len(s.FailedKeys) > 0 {
		logging.Warning("failed keys (sample): %v", s.FailedKeys)
	}
	if len(s.ValidationWarnings) > 0 {
		logging.Warning("%d translation(s) flagged for review:", len(s.ValidationWarnings))
		for _, w := range s.ValidationWarnings {
			logging.Warning("  %s [%s] %s: %s", w.File, w.Locale, w.Key, w.Message)
		}
	}
}

// printCIReport renders the status table SPEC_FULL.md §4 describes
// ("update_command.py/status_command.py's tabular status report"),
// grounded on the android-translations example's CLI table output.
func printCIReport(s *orchestrator.Summary) {
	if len(s.Issues) == 0 {
		logging.Success("all target files are up to date")
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Locale", "Source", "Target", "Missing", "Outdated"})
	for _, issue := range s.Issues {
		table.Append([]string{
			issue.Locale,
			issue.Source,
			issue.Target,
			fmt.Sprintf("%d", len(issue.Missing)),
			fmt.Sprintf("%d", len(issue.Outdated)),
		})
	}
	table.Render()
}
