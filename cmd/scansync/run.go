package main

import (
	"context"
	"fmt"
	"io"
	"os"
	gosync "sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nvu/scansync/internal/ado"
	"github.com/nvu/scansync/internal/credential"
	"github.com/nvu/scansync/internal/journal"
	"github.com/nvu/scansync/internal/logging"
	"github.com/nvu/scansync/internal/model"
	"github.com/nvu/scansync/internal/patch"
	"github.com/nvu/scansync/internal/sync"
)

var (
	runInput        string
	runComponent    string
	runBuildVersion string
	runItemType     string
	runJournalPath  string
	runConcurrency  int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Read scanner findings and sync them to the tracker",
	Long: `Read the scanner's JSON findings (a JSON array or a concatenated
stream of JSON documents) and sync each one to the work-tracking
service: findings whose fingerprint already has a work item are
updated, the rest get a new item created.

Failures are per-finding: a finding that cannot be synced is logged
with its correlation id and skipped, and the run continues. The run
itself fails only when every finding failed.`,
	RunE: runSync,
}

func init() {
	runCmd.Flags().StringVarP(
		&runInput, "input", "i", "", `scanner output file, or "-" for stdin`)
	runCmd.Flags().StringVar(
		&runComponent, "component", "", "owning component name stamped on work items")
	runCmd.Flags().StringVar(
		&runBuildVersion, "build-version", "", "build version stamped on work items")
	runCmd.Flags().StringVar(
		&runItemType, "type", "", "work item type to create (default Bug)")
	runCmd.Flags().StringVar(
		&runJournalPath, "journal", "", "run journal database path (empty disables)")
	runCmd.Flags().IntVar(
		&runConcurrency, "concurrency", 0, "findings processed in flight")

	rootCmd.AddCommand(runCmd)
}

// outcome is the result of syncing a single finding.
type outcome struct {
	fingerprint string
	action      string
	workItemID  int
	err         error
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logging.New(cfg.Log.Format, cfg.Log.Level)
	ctx := cmd.Context()

	token, err := credential.Token()
	if err != nil {
		return err
	}

	issues, err := readInput(cfg.Scan.Input)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		log.Info().Msg("no findings in scanner output, nothing to sync")
		return nil
	}

	client := ado.NewClient(cfg.Tracker.CollectionURL, cfg.Tracker.Project, token)
	syncer := sync.New(client, log)

	// The fingerprint field must exist before any item referencing it is
	// created. Provisioning is idempotent: an existing field is returned
	// as is, and only a genuine not-found triggers creation.
	_, err = syncer.FieldEnsure(
		ctx, patch.FingerprintField, patch.FingerprintFieldDefinition,
	)
	if err != nil {
		return fmt.Errorf("ensuring fingerprint field: %w", err)
	}

	var jnl *journal.Journal
	if cfg.Journal.Path != "" {
		jnl, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer jnl.Close()
	}

	runID := uuid.NewString()[:8]
	log.Info().
		Str("run_id", runID).
		Int("findings", len(issues)).
		Str("project", cfg.Tracker.Project).
		Msg("starting sync run")

	outcomes := syncAll(ctx, syncer, cfg, issues)

	var created, updated, skipped int
	for _, o := range outcomes {
		switch o.action {
		case journal.ActionCreated:
			created++
		case journal.ActionUpdated:
			updated++
		default:
			skipped++
		}
		if jnl != nil {
			errText := ""
			if o.err != nil {
				errText = o.err.Error()
			}
			recErr := jnl.Record(ctx, journal.Entry{
				RunID:       runID,
				Fingerprint: o.fingerprint,
				Action:      o.action,
				WorkItemID:  o.workItemID,
				Error:       errText,
			})
			if recErr != nil {
				log.Warn().Err(recErr).Msg("journal write failed")
			}
		}
	}

	log.Info().
		Str("run_id", runID).
		Int("created", created).
		Int("updated", updated).
		Int("skipped", skipped).
		Msg("sync run finished")

	if created == 0 && updated == 0 && skipped > 0 {
		return fmt.Errorf("all %d findings failed to sync", skipped)
	}
	return nil
}

// applyRunFlags overlays command-line flags onto the loaded config.
func applyRunFlags(cfg *model.AppConfig) {
	if runInput != "" {
		cfg.Scan.Input = runInput
	}
	if runComponent != "" {
		cfg.Scan.Component = runComponent
	}
	if runItemType != "" {
		cfg.Tracker.WorkItemType = runItemType
	}
	if runJournalPath != "" {
		cfg.Journal.Path = runJournalPath
	}
	if runConcurrency > 0 {
		cfg.Scan.Concurrency = runConcurrency
	}
}

// readInput decodes the scanner output from a file or stdin.
func readInput(input string) ([]model.AnalysisIssue, error) {
	var r io.Reader = os.Stdin
	if input != "" && input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return nil, fmt.Errorf("opening scanner output: %w", err)
		}
		defer f.Close()
		r = f
	}
	return model.ReadIssues(r)
}

// syncAll fans the findings out over a bounded worker pool and collects
// one outcome per finding. The engine itself imposes no concurrency
// limit; bounding in-flight requests is this caller's job.
func syncAll(
	ctx context.Context,
	syncer *sync.Synchronizer,
	cfg *model.AppConfig,
	issues []model.AnalysisIssue,
) []outcome {
	outcomes := make([]outcome, len(issues))

	var wg gosync.WaitGroup
	sem := make(chan struct{}, cfg.Scan.Concurrency)

	for i, issue := range issues {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, issue model.AnalysisIssue) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[i] = upsertIssue(ctx, syncer, cfg, issue)
		}(i, issue)
	}

	wg.Wait()
	return outcomes
}

// upsertIssue is the caller-side composition that gives the engine its
// idempotency: query by fingerprint, then update the existing item or
// create a new one. Any failure marks the finding skipped; the error is
// already logged with its correlation id by the synchronizer.
func upsertIssue(
	ctx context.Context,
	syncer *sync.Synchronizer,
	cfg *model.AppConfig,
	issue model.AnalysisIssue,
) outcome {
	o := outcome{fingerprint: issue.Fingerprint, action: journal.ActionSkipped}

	result, err := syncer.Query(
		ctx,
		[]string{"System.Id"},
		[]sync.QueryCondition{{
			Field:    patch.FingerprintField,
			Operator: "=",
			Value:    sync.QuoteString(issue.Fingerprint),
		}},
	)
	if err != nil {
		o.err = err
		return o
	}

	if len(result.WorkItems) > 0 {
		item, err := syncer.Update(
			ctx,
			result.WorkItems[0].ID,
			patch.Refresh(issue, cfg.Scan.Component, runBuildVersion)...,
		)
		if err != nil {
			o.err = err
			return o
		}
		o.action = journal.ActionUpdated
		o.workItemID = item.ID
		return o
	}

	item, err := syncer.Create(
		ctx,
		cfg.Tracker.WorkItemType,
		issue,
		cfg.Scan.Component,
		runBuildVersion,
	)
	if err != nil {
		o.err = err
		return o
	}
	o.action = journal.ActionCreated
	o.workItemID = item.ID
	return o
}
