package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	edmerrors "github.com/Aman-CERP/edmindex/internal/errors"
	"github.com/Aman-CERP/edmindex/internal/metadata"
	"github.com/Aman-CERP/edmindex/internal/output"
	"github.com/Aman-CERP/edmindex/internal/telemetry"
	"github.com/Aman-CERP/edmindex/pkg/indexer"
)

// Batch operations.
const (
	opCreate  = "create"
	opIndex   = "index"
	opReindex = "reindex"
)

// recentFailuresKept bounds the failures listed in the batch summary.
const recentFailuresKept = 20

// manifest is the batch input file.
type manifest struct {
	Defaults manifestDefaults `yaml:"defaults"`
	Items    []manifestItem   `yaml:"items"`
}

type manifestDefaults struct {
	Category     string `yaml:"category"`
	DocumentType string `yaml:"document_type"`
}

type manifestItem struct {
	Operation    string          `yaml:"operation"`
	Category     string          `yaml:"category"`
	DocumentType string          `yaml:"document_type"`
	DocumentID   string          `yaml:"document_id"`
	File         string          `yaml:"file"`
	FileName     string          `yaml:"file_name"`
	Fields       metadata.Fields `yaml:"fields"`
}

// batchJob is a validated manifest item ready to run.
type batchJob struct {
	index  int
	op     string
	create indexer.CreateArgs
	update indexer.IndexArgs
}

func (j batchJob) target() string {
	if j.op == opCreate {
		return j.create.FilePath
	}
	return j.update.DocumentID
}

// batchItemResult is the outcome of one manifest item.
type batchItemResult struct {
	Item       int             `json:"item"`
	Operation  string          `json:"operation"`
	Target     string          `json:"target"`
	DocumentID string          `json:"documentId,omitempty"`
	ErrorCode  string          `json:"errorCode,omitempty"`
	Error      string          `json:"error,omitempty"`
	Result     *indexer.Result `json:"result,omitempty"`
}

type batchReport struct {
	Items   []batchItemResult  `json:"items"`
	Summary telemetry.Snapshot `json:"summary"`
}

func newBatchCmd(opts *rootOptions) *cobra.Command {
	var (
		file   string
		jobs   int
		format string
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run many create, index and reindex operations from a manifest",
		Long: `Run the operations listed in a YAML manifest concurrently.

Each item is an independent single-document operation: a failing item does not
stop or undo the others. A document id may appear only once per manifest.
Relative file paths are resolved against the manifest's directory.`,
		Example: `  edmindex batch -f manifest.yaml --jobs 8

  # manifest.yaml
  defaults:
    category: Finance
    document_type: Invoice
  items:
    - operation: create
      file: invoices/a.pdf
      fields:
        Vendor ID: V-1
        Tags: [urgent, q1]
    - operation: reindex
      document_id: 0123456789ABCDEF
      fields:
        Status: Paid`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			if !cmd.Flags().Changed("jobs") {
				jobs = opts.cfg.Batch.Jobs
			}
			if jobs < 1 {
				return edmerrors.ValidationError("--jobs must be at least 1", nil)
			}
			batch, err := loadManifest(file)
			if err != nil {
				return err
			}
			ix, err := opts.newIndexer()
			if err != nil {
				return err
			}
			return opts.runBatch(cmd, ix, batch, jobs, format)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Manifest file (YAML)")
	cmd.Flags().IntVar(&jobs, "jobs", 0, "Operations to run concurrently (default: batch.jobs from config)")
	cmd.Flags().StringVar(&format, "format", formatText, "Output format: text or json")

	return cmd
}

// loadManifest reads and validates a manifest. Every item is checked before
// anything runs.
func loadManifest(path string) ([]batchJob, error) {
	if path == "" {
		return nil, edmerrors.ValidationError("a manifest file is required", nil).
			WithSuggestion("Pass --file manifest.yaml")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, edmerrors.New(edmerrors.ErrCodeFileNotFound, "manifest not found: "+path, err)
		}
		return nil, edmerrors.IOError("failed to read manifest "+path, err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, edmerrors.ValidationError("invalid manifest: "+err.Error(), err).
			WithDetail("path", path)
	}
	if len(m.Items) == 0 {
		return nil, edmerrors.ValidationError("manifest has no items", nil).WithDetail("path", path)
	}

	base := filepath.Dir(path)
	seen := make(map[string]int)
	jobs := make([]batchJob, 0, len(m.Items))
	for i, item := range m.Items {
		n := i + 1
		job, err := item.job(n, m.Defaults, base)
		if err != nil {
			return nil, err
		}
		if job.op != opCreate {
			id := job.update.DocumentID
			if first, dup := seen[id]; dup {
				return nil, edmerrors.ValidationError(
					fmt.Sprintf("document %s appears in items %d and %d", id, first, n), nil).
					WithDetail("document_id", id).
					WithSuggestion("Combine the fields of both items into one")
			}
			seen[id] = n
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (it manifestItem) job(n int, defaults manifestDefaults, base string) (batchJob, error) {
	fail := func(err error) (batchJob, error) {
		var ee *edmerrors.EDMError
		if stderrors.As(err, &ee) {
			return batchJob{}, ee.WithDetail("item", fmt.Sprint(n))
		}
		return batchJob{}, err
	}

	category := firstNonEmpty(it.Category, defaults.Category)
	docType := firstNonEmpty(it.DocumentType, defaults.DocumentType)
	fields, err := metadata.Merge(it.Fields)
	if err != nil {
		return fail(err)
	}

	job := batchJob{index: n, op: it.Operation}
	switch it.Operation {
	case opCreate:
		path := it.File
		if path != "" && !filepath.IsAbs(path) {
			path = filepath.Join(base, path)
		}
		job.create = indexer.CreateArgs{
			Category:     category,
			DocumentType: docType,
			FilePath:     path,
			FileName:     it.FileName,
			Fields:       fields,
		}
		if err := job.create.Validate(); err != nil {
			return fail(err)
		}
	case opIndex, opReindex:
		job.update = indexer.IndexArgs{
			DocumentID:   it.DocumentID,
			Category:     category,
			DocumentType: docType,
			Fields:       fields,
		}
		if err := job.update.Validate(); err != nil {
			return fail(err)
		}
	default:
		return fail(edmerrors.ValidationError(
			fmt.Sprintf("item %d: unknown operation %q", n, it.Operation), nil).
			WithSuggestion("Use create, index or reindex"))
	}
	return job, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (o *rootOptions) runBatch(cmd *cobra.Command, ix *indexer.Indexer, jobs []batchJob, limit int, format string) error {
	ctx := cmd.Context()
	stats := telemetry.NewStats(recentFailuresKept)
	results := make([]batchItemResult, len(jobs))

	var progress *output.Writer
	if format == formatText && output.IsTTY(cmd.ErrOrStderr()) {
		progress = output.New(cmd.ErrOrStderr(), o.noColor)
	}
	var (
		mu   sync.Mutex
		done int
	)

	o.logger.Info("batch started", slog.Int("items", len(jobs)), slog.Int("jobs", limit))

	g := new(errgroup.Group)
	g.SetLimit(limit)
	for i, job := range jobs {
		g.Go(func() error {
			start := time.Now()
			res, err := o.runJob(ctx, ix, job)

			r := batchItemResult{Item: job.index, Operation: job.op, Target: job.target(), Result: res}
			if res != nil {
				r.DocumentID = res.DocumentID
			}
			if err != nil {
				r.ErrorCode = errorCode(err)
				r.Error = err.Error()
				o.logger.Error("batch item failed",
					append([]any{slog.Int("item", job.index), slog.String("operation", job.op)},
						edmerrors.LogAttrs(err)...)...)
			}
			results[i] = r
			stats.Record(telemetry.OperationEvent{
				Operation: job.op,
				Target:    r.Target,
				ErrorCode: r.ErrorCode,
				Latency:   time.Since(start),
			})

			if progress != nil {
				mu.Lock()
				done++
				progress.Progress(done, len(jobs), fmt.Sprintf("%s %s", job.op, r.Target))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	snap := stats.Snapshot()
	o.logger.Info("batch finished",
		slog.Int64("succeeded", snap.Succeeded),
		slog.Int64("failed", snap.Failed),
		slog.Duration("elapsed", snap.Elapsed))

	out := o.stdout(cmd)
	if format == formatJSON {
		if err := out.JSON(batchReport{Items: results, Summary: snap}); err != nil {
			return err
		}
	} else {
		printBatchReport(out, results, snap)
	}

	if snap.Failed > 0 {
		return errReported
	}
	return nil
}

func (o *rootOptions) runJob(ctx context.Context, ix *indexer.Indexer, job batchJob) (*indexer.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch job.op {
	case opCreate:
		return ix.Create(ctx, job.create)
	default:
		var res *indexer.Result
		err := o.withDocumentLock(ctx, job.update.DocumentID, func(ctx context.Context) error {
			var err error
			if job.op == opReindex {
				res, err = ix.Reindex(ctx, job.update)
			} else {
				res, err = ix.Index(ctx, job.update)
			}
			return err
		})
		return res, err
	}
}

// errorCode returns the error's code, classifying plain errors as internal.
func errorCode(err error) string {
	if code := edmerrors.GetCode(err); code != "" {
		return code
	}
	return edmerrors.ErrCodeInternal
}

func printBatchReport(out *output.Writer, results []batchItemResult, snap telemetry.Snapshot) {
	for _, r := range results {
		if r.ErrorCode != "" {
			out.Errorf("[%d] %s %s: %s", r.Item, r.Operation, r.Target, r.Error)
			continue
		}
		out.Successf("[%d] %s %s → %s", r.Item, r.Operation, r.Target, r.DocumentID)
	}

	out.Newline()
	out.Header("Summary")
	out.KeyValue("Total", fmt.Sprint(snap.Total), 12)
	out.KeyValue("Succeeded", fmt.Sprint(snap.Succeeded), 12)
	out.KeyValue("Failed", fmt.Sprint(snap.Failed), 12)
	out.KeyValue("Elapsed", snap.Elapsed.Round(time.Millisecond).String(), 12)

	if len(snap.ErrorCodes) > 0 {
		out.Newline()
		out.Header("Errors")
		codes := make(map[string]int64, len(snap.ErrorCodes))
		for _, c := range snap.ErrorCodes {
			codes[c.Code] = c.Count
		}
		out.Counts(codes)
	}

	out.Newline()
	out.Header("Latency")
	latency := make(map[string]int64, len(snap.LatencyDistribution))
	for bucket, n := range snap.LatencyDistribution {
		latency[string(bucket)] = n
	}
	out.Counts(latency)
}
