// Package batch drives one user-triggered stamping operation end to end:
// validation gate, duplicate check, per-template stamping with
// skip-and-continue, optional merge, and writing or opening the results.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/homerlab/hospitalpdf/internal/library"
	"github.com/homerlab/hospitalpdf/internal/oplog"
	"github.com/homerlab/hospitalpdf/internal/pdf"
	"github.com/homerlab/hospitalpdf/internal/validate"
)

// Mode selects what happens to the stamped documents.
type Mode string

const (
	// ModeDownload writes the results into the requested output directory.
	ModeDownload Mode = oplog.OpDownload
	// ModePrint writes the results into a scratch directory and opens each
	// one with the operating system's default PDF handler.
	ModePrint Mode = oplog.OpPrint
)

var (
	// ErrDuplicateNeedsReason is returned when the requested operation
	// repeats a previously recorded one and no reprint reason was given.
	ErrDuplicateNeedsReason = errors.New("operation was already performed; a reprint reason is required")
	// ErrUnknownCenter is returned for a center code outside the fixed set.
	ErrUnknownCenter = errors.New("unknown center code")
	// ErrUnknownTimePoint is returned for a time point outside A0/A1/A2.
	ErrUnknownTimePoint = errors.New("unknown time point")
	// ErrNoTemplates is returned when no templates were selected.
	ErrNoTemplates = errors.New("no templates selected")
)

// Request describes one batch operation.
type Request struct {
	HospitalNumber string
	CenterCode     string
	TimePoint      string
	// Templates are library entries by filename or stem, in user order.
	Templates []string
	Merge     bool
	Mode      Mode
	// OutputDir receives the results in download mode.
	OutputDir string
	// ReprintReason must be set when repeating a recorded operation.
	ReprintReason string
}

// Item is the tagged per-template outcome. Failures carry the reason; they
// never abort the batch.
type Item struct {
	Template   string
	OutputPath string
	Pages      int
	Err        error
}

// Report summarizes a completed batch.
type Report struct {
	BatchID    string
	Duplicate  *oplog.Record
	Items      []Item
	MergedPath string
	MergeErr   error
	OutputDir  string
}

// Succeeded counts the items that were stamped and written.
func (r *Report) Succeeded() int {
	n := 0
	for _, it := range r.Items {
		if it.Err == nil {
			n++
		}
	}
	return n
}

// Failed counts the items that failed for any reason.
func (r *Report) Failed() int { return len(r.Items) - r.Succeeded() }

// Runner wires the components a batch needs. All processing is sequential;
// one document is fully handled before the next is started.
type Runner struct {
	Library   *library.Library
	Processor *pdf.Processor
	Log       *oplog.Store
	// Open hands a finished file to the OS default handler. Replaceable
	// under test.
	Open   func(ctx context.Context, path string) error
	Logger *slog.Logger
}

// NewRunner returns a runner with the default opener and logger.
func NewRunner(lib *library.Library, proc *pdf.Processor, log *oplog.Store) *Runner {
	return &Runner{
		Library:   lib,
		Processor: proc,
		Log:       log,
		Open:      openFile,
		Logger:    slog.Default(),
	}
}

// Run executes one batch operation. Input validation failures and the
// duplicate gate surface as errors before any document is touched;
// per-document failures are collected into the report instead.
func (r *Runner) Run(ctx context.Context, req Request) (*Report, error) {
	number, err := validate.HospitalNumber(req.HospitalNumber)
	if err != nil {
		return nil, err
	}
	center, ok := library.CenterByCode(req.CenterCode)
	if !ok {
		return nil, fmt.Errorf("%q: %w", req.CenterCode, ErrUnknownCenter)
	}
	if !library.ValidTimePoint(req.TimePoint) {
		return nil, fmt.Errorf("%q: %w", req.TimePoint, ErrUnknownTimePoint)
	}
	if len(req.Templates) == 0 {
		return nil, ErrNoTemplates
	}

	report := &Report{BatchID: uuid.NewString()}
	logCtx := r.Logger.With(
		"batchId", report.BatchID,
		"center", center.Code,
		"timePoint", req.TimePoint,
		"mode", string(req.Mode),
	)

	op := oplog.Operation{
		TimePoint:      req.TimePoint,
		CenterCode:     center.Code,
		HospitalNumber: number,
		Templates:      req.Templates,
		Type:           string(req.Mode),
		Merge:          req.Merge,
	}
	dup, err := r.Log.CheckDuplicate(op)
	if err != nil {
		return nil, err
	}
	if dup != nil && req.ReprintReason == "" {
		report.Duplicate = dup
		return report, ErrDuplicateNeedsReason
	}
	report.Duplicate = dup

	destDir := req.OutputDir
	if req.Mode == ModePrint {
		destDir, err = os.MkdirTemp("", "hospitalpdf-print-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create scratch dir: %w", err)
		}
	}
	report.OutputDir = destDir

	stampText := pdf.StampText(center.Code, number)
	stamped := r.stampAll(logCtx, req.Templates, stampText)

	if req.Merge {
		r.mergeAndDeliver(ctx, logCtx, report, stamped, number, destDir, req.Mode)
	} else {
		r.deliverEach(ctx, logCtx, report, stamped, number, destDir, req.Mode)
	}

	if report.Succeeded() > 0 {
		outputPath := destDir
		if req.Mode == ModePrint {
			outputPath = ""
		}
		if err := r.Log.Record(op, report.BatchID, dup != nil, req.ReprintReason, outputPath); err != nil {
			logCtx.Error("Failed to record operation.", "error", err)
		}
	}

	logCtx.Info("Batch complete.",
		"succeeded", report.Succeeded(),
		"failed", report.Failed(),
		"merged", req.Merge,
	)
	return report, nil
}

type stampedDoc struct {
	template library.Template
	doc      []byte
	pages    int
	err      error
}

// stampAll stamps every selected template, front to back, recording
// per-document failures and continuing with the remainder.
func (r *Runner) stampAll(logCtx *slog.Logger, names []string, stampText string) []stampedDoc {
	out := make([]stampedDoc, 0, len(names))
	for _, name := range names {
		tpl, ok := r.Library.Lookup(name)
		if !ok {
			// Resolve against the library dir anyway so the failure is
			// reported with the standard missing-file reason.
			tpl = library.Template{Filename: name, Path: filepath.Join(r.Library.Dir(), name)}
		}

		doc, err := r.Processor.Stamp(tpl.Path, stampText)
		if err != nil {
			logCtx.Warn("Skipping template.", "template", tpl.Filename, "error", err)
			out = append(out, stampedDoc{template: tpl, err: err})
			continue
		}
		pages, err := r.Processor.PageCount(doc)
		if err != nil {
			logCtx.Warn("Skipping template.", "template", tpl.Filename, "error", err)
			out = append(out, stampedDoc{template: tpl, err: err})
			continue
		}
		out = append(out, stampedDoc{template: tpl, doc: doc, pages: pages})
	}
	return out
}

// deliverEach writes each stamped document under the standard name and, in
// print mode, opens it. A write failure marks only that item as failed.
func (r *Runner) deliverEach(ctx context.Context, logCtx *slog.Logger, report *Report, stamped []stampedDoc, number, destDir string, mode Mode) {
	for _, sd := range stamped {
		if sd.err != nil {
			report.Items = append(report.Items, Item{Template: sd.template.Filename, Err: sd.err})
			continue
		}

		path := filepath.Join(destDir, outputName(number, sd.template.Stem()))
		if err := os.WriteFile(path, sd.doc, 0o644); err != nil {
			report.Items = append(report.Items, Item{
				Template: sd.template.Filename,
				Err:      fmt.Errorf("failed to write %s: %w", filepath.Base(path), err),
			})
			continue
		}
		if mode == ModePrint {
			if err := r.Open(ctx, path); err != nil {
				report.Items = append(report.Items, Item{Template: sd.template.Filename, OutputPath: path, Err: err})
				continue
			}
		}
		report.Items = append(report.Items, Item{Template: sd.template.Filename, OutputPath: path, Pages: sd.pages})
		logCtx.Info("Wrote stamped document.", "template", sd.template.Filename, "output", path, "pages", sd.pages)
	}
}

// mergeAndDeliver concatenates the successfully stamped documents into one
// file, first selected template's pages first.
func (r *Runner) mergeAndDeliver(ctx context.Context, logCtx *slog.Logger, report *Report, stamped []stampedDoc, number, destDir string, mode Mode) {
	var docs [][]byte
	for _, sd := range stamped {
		item := Item{Template: sd.template.Filename, Pages: sd.pages, Err: sd.err}
		report.Items = append(report.Items, item)
		if sd.err == nil {
			docs = append(docs, sd.doc)
		}
	}

	merged, err := r.Processor.Merge(docs)
	if err != nil {
		report.MergeErr = err
		logCtx.Error("Merge failed.", "error", err)
		return
	}

	path := filepath.Join(destDir, mergedName(number))
	if err := os.WriteFile(path, merged, 0o644); err != nil {
		report.MergeErr = fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
		logCtx.Error("Failed to write merged document.", "error", report.MergeErr)
		return
	}
	if mode == ModePrint {
		if err := r.Open(ctx, path); err != nil {
			report.MergeErr = err
			return
		}
	}
	report.MergedPath = path
	logCtx.Info("Wrote merged document.", "output", path, "documents", len(docs))
}

// outputName is the fixed naming convention for individual stamped files.
func outputName(number, stem string) string {
	return fmt.Sprintf("%s_%s.pdf", number, stem)
}

// mergedName is the fixed naming convention for merged output.
func mergedName(number string) string {
	return fmt.Sprintf("%s_merged.pdf", number)
}
