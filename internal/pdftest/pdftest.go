// Package pdftest generates throwaway PDF fixtures for tests. No binary
// testdata is checked in; every fixture is built fresh per test run.
package pdftest

import (
	"bytes"
	"os"
	"testing"

	"codeberg.org/go-pdf/fpdf"
)

// Dim is one page's width and height in points.
type Dim struct {
	W, H float64
}

// Letter is the default fixture page size.
var Letter = Dim{W: 612, H: 792}

// Sample returns a PDF with one page per entry of dims, each carrying a
// line of filler text.
func Sample(tb testing.TB, dims ...Dim) []byte {
	tb.Helper()

	doc := fpdf.New("P", "pt", "", "")
	doc.SetAutoPageBreak(false, 0)
	doc.SetFont("Helvetica", "", 12)
	for _, d := range dims {
		doc.AddPageFormat("P", fpdf.SizeType{Wd: d.W, Ht: d.H})
		doc.Text(72, 72, "sample page")
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		tb.Fatalf("failed to build sample PDF: %v", err)
	}
	return buf.Bytes()
}

// Labeled returns a PDF with one letter-sized page per label, each page
// carrying only its label as text. Useful when a test needs to tell pages
// apart by content rather than by size.
func Labeled(tb testing.TB, labels ...string) []byte {
	tb.Helper()

	doc := fpdf.New("P", "pt", "", "")
	doc.SetAutoPageBreak(false, 0)
	doc.SetFont("Helvetica", "", 12)
	for _, label := range labels {
		doc.AddPageFormat("P", fpdf.SizeType{Wd: Letter.W, Ht: Letter.H})
		doc.Text(72, 72, label)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		tb.Fatalf("failed to build labeled PDF: %v", err)
	}
	return buf.Bytes()
}

// Write writes a sample PDF with the given page dimensions to path.
func Write(tb testing.TB, path string, dims ...Dim) {
	tb.Helper()
	if err := os.WriteFile(path, Sample(tb, dims...), 0o644); err != nil {
		tb.Fatalf("failed to write sample PDF %s: %v", path, err)
	}
}

// Pages writes a sample PDF with n letter-sized pages to path.
func Pages(tb testing.TB, path string, n int) {
	tb.Helper()
	dims := make([]Dim, n)
	for i := range dims {
		dims[i] = Letter
	}
	Write(tb, path, dims...)
}
