// Command hospitalpdf stamps a patient's hospital number onto the
// assessment PDF templates shipped with the application and saves the
// results or opens them for printing.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/homerlab/hospitalpdf/internal/batch"
	"github.com/homerlab/hospitalpdf/internal/config"
	"github.com/homerlab/hospitalpdf/internal/library"
	"github.com/homerlab/hospitalpdf/internal/oplog"
	"github.com/homerlab/hospitalpdf/internal/pdf"
	"github.com/homerlab/hospitalpdf/internal/validate"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		flagNumber    string
		flagCenter    string
		flagTimePoint string
		flagTemplates string
		flagMerge     bool
		flagOut       string
		flagPrint     bool
		flagReason    string
		flagList      bool
		flagHistory   int
	)
	flag.StringVar(&flagNumber, "number", "", "hospital number to stamp (letters, digits, hyphens; max 20)")
	flag.StringVar(&flagCenter, "center", "", "center code (CMC, MNP, LDH)")
	flag.StringVar(&flagTimePoint, "timepoint", "", "assessment time point (A0, A1, A2)")
	flag.StringVar(&flagTemplates, "templates", "", "comma-separated template names, or \"all\"")
	flag.BoolVar(&flagMerge, "merge", false, "merge the stamped documents into a single PDF")
	flag.StringVar(&flagOut, "out", "", "output directory (download mode)")
	flag.BoolVar(&flagPrint, "print", false, "open the results in the default viewer instead of saving")
	flag.StringVar(&flagReason, "reason", "", "reason when repeating a previously recorded operation")
	flag.BoolVar(&flagList, "list", false, "list available templates, centers and time points")
	flag.IntVar(&flagHistory, "history", 0, "show the N most recent operations")
	flag.Parse()

	setupLogging()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration.", "error", err)
		return 1
	}

	lib, err := library.Scan(cfg.TemplateDir)
	if err != nil {
		slog.Error("Failed to scan template library.", "dir", cfg.TemplateDir, "error", err)
		return 1
	}

	if flagList {
		printLibrary(lib)
		return 0
	}

	store, err := oplog.Open(cfg.OperationLogPath())
	if err != nil {
		slog.Error("Failed to open operation log.", "error", err)
		return 1
	}
	defer store.Close()

	if flagHistory > 0 {
		return printHistory(store, flagHistory)
	}

	req := batch.Request{
		HospitalNumber: flagNumber,
		CenterCode:     flagCenter,
		TimePoint:      flagTimePoint,
		Merge:          flagMerge,
		Mode:           batch.ModeDownload,
		OutputDir:      flagOut,
		ReprintReason:  flagReason,
	}
	if flagPrint {
		req.Mode = batch.ModePrint
	} else if flagOut == "" {
		fmt.Fprintln(os.Stderr, "either -out DIR or -print is required")
		return 2
	}

	switch strings.TrimSpace(flagTemplates) {
	case "":
		fmt.Fprintln(os.Stderr, "-templates is required (use -list to see what is available)")
		return 2
	case "all":
		for _, t := range lib.Templates() {
			req.Templates = append(req.Templates, t.Filename)
		}
	default:
		for _, name := range strings.Split(flagTemplates, ",") {
			if name = strings.TrimSpace(name); name != "" {
				req.Templates = append(req.Templates, name)
			}
		}
	}

	runner := batch.NewRunner(lib, pdf.NewProcessor(), store)
	report, err := runner.Run(context.Background(), req)
	switch {
	case errors.Is(err, batch.ErrDuplicateNeedsReason):
		fmt.Fprintln(os.Stderr, "This exact operation was already performed:")
		printRecord(os.Stderr, *report.Duplicate)
		fmt.Fprintln(os.Stderr, "Re-run with -reason \"...\" to repeat it.")
		return 2
	case isInputError(err):
		fmt.Fprintln(os.Stderr, err)
		return 2
	case err != nil:
		slog.Error("Batch failed.", "error", err)
		return 1
	}

	return printReport(report, flagMerge)
}

// isInputError reports whether err is a user-input problem rather than a
// processing failure.
func isInputError(err error) bool {
	return errors.Is(err, validate.ErrEmptyInput) ||
		errors.Is(err, validate.ErrTooLong) ||
		errors.Is(err, validate.ErrInvalidCharacters) ||
		errors.Is(err, batch.ErrUnknownCenter) ||
		errors.Is(err, batch.ErrUnknownTimePoint) ||
		errors.Is(err, batch.ErrNoTemplates)
}

func setupLogging() {
	level := slog.LevelInfo
	switch strings.ToLower(config.GetEnv("LOG_LEVEL", "info")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if config.GetEnv("LOG_FORMAT", "text") == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func printLibrary(lib *library.Library) {
	fmt.Printf("Templates in %s:\n", lib.Dir())
	for _, t := range lib.Templates() {
		fmt.Printf("  %-20s (%s)\n", t.DisplayName(), t.Filename)
	}
	fmt.Println("Centers:")
	for _, c := range library.Centers {
		fmt.Printf("  %-4s %s\n", c.Code, c.Name)
	}
	fmt.Printf("Time points: %s\n", strings.Join(library.TimePoints, ", "))
}

func printHistory(store *oplog.Store, n int) int {
	records, err := store.Recent(n)
	if err != nil {
		slog.Error("Failed to read operation history.", "error", err)
		return 1
	}
	if len(records) == 0 {
		fmt.Println("No recorded operations.")
		return 0
	}
	for _, rec := range records {
		printRecord(os.Stdout, rec)
	}
	return 0
}

func printRecord(w *os.File, rec oplog.Record) {
	dup := ""
	if rec.IsDuplicate {
		dup = fmt.Sprintf(" (repeat: %s)", rec.ReprintReason)
	}
	fmt.Fprintf(w, "  %s  %s %s %s-%s  %s merge=%v by %s%s\n",
		rec.Timestamp.Format("2006-01-02 15:04:05"),
		rec.Operation.Type,
		rec.Operation.TimePoint,
		rec.Operation.CenterCode,
		rec.Operation.HospitalNumber,
		strings.Join(rec.Operation.Templates, ","),
		rec.Operation.Merge,
		rec.Username,
		dup,
	)
}

func printReport(report *batch.Report, merged bool) int {
	for _, item := range report.Items {
		if item.Err != nil {
			fmt.Printf("FAILED  %-20s %v\n", item.Template, item.Err)
			continue
		}
		if item.OutputPath != "" {
			fmt.Printf("OK      %-20s %d page(s) -> %s\n", item.Template, item.Pages, item.OutputPath)
		} else {
			fmt.Printf("OK      %-20s %d page(s)\n", item.Template, item.Pages)
		}
	}
	if merged {
		if report.MergeErr != nil {
			fmt.Printf("MERGE FAILED: %v\n", report.MergeErr)
		} else {
			fmt.Printf("MERGED -> %s\n", report.MergedPath)
		}
	}
	fmt.Printf("%d succeeded, %d failed\n", report.Succeeded(), report.Failed())

	if report.Failed() > 0 || report.MergeErr != nil {
		return 1
	}
	return 0
}
