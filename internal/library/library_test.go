package library

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/homerlab/hospitalpdf/internal/pdftest"
)

func TestScanOrdersByFilename(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"nhpt.pdf", "arat.pdf", "fugl-meyer.pdf"} {
		pdftest.Pages(t, filepath.Join(dir, name), 1)
	}
	// Non-PDF files are not part of the library.
	pdftest.Pages(t, filepath.Join(dir, "notes.txt"), 1)

	lib, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	var got []string
	for _, tpl := range lib.Templates() {
		got = append(got, tpl.Filename)
	}
	want := []string{"arat.pdf", "fugl-meyer.pdf", "nhpt.pdf"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Templates() mismatch (-want +got):\n%s", diff)
	}
}

func TestScanEmptyDir(t *testing.T) {
	lib, err := Scan(t.TempDir())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(lib.Templates()) != 0 {
		t.Fatalf("expected empty library, got %d entries", len(lib.Templates()))
	}
}

func TestScanMissingDir(t *testing.T) {
	if _, err := Scan(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("Scan() of missing dir succeeded, want error")
	}
}

func TestLookup(t *testing.T) {
	dir := t.TempDir()
	pdftest.Pages(t, filepath.Join(dir, "arat.pdf"), 1)
	lib, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	for _, name := range []string{"arat.pdf", "arat", "ARAT", "Arat.PDF"} {
		if _, ok := lib.Lookup(name); !ok {
			t.Errorf("Lookup(%q) failed", name)
		}
	}
	if _, ok := lib.Lookup("unknown"); ok {
		t.Error("Lookup(unknown) unexpectedly succeeded")
	}
}

func TestTemplateNames(t *testing.T) {
	tpl := Template{Filename: "fugl-meyer.pdf", Path: "/lib/fugl-meyer.pdf"}
	if got := tpl.Stem(); got != "fugl-meyer" {
		t.Errorf("Stem() = %q, want %q", got, "fugl-meyer")
	}
	if got := tpl.DisplayName(); got != "FUGL-MEYER" {
		t.Errorf("DisplayName() = %q, want %q", got, "FUGL-MEYER")
	}
}

func TestCenterByCode(t *testing.T) {
	c, ok := CenterByCode("cmc")
	if !ok || c.Name != "CMC Vellore" {
		t.Fatalf("CenterByCode(cmc) = %+v, %v", c, ok)
	}
	if _, ok := CenterByCode("XYZ"); ok {
		t.Fatal("CenterByCode(XYZ) unexpectedly succeeded")
	}
}

func TestValidTimePoint(t *testing.T) {
	for _, tp := range []string{"A0", "A1", "A2", "a1"} {
		if !ValidTimePoint(tp) {
			t.Errorf("ValidTimePoint(%q) = false", tp)
		}
	}
	for _, tp := range []string{"", "A3", "B0"} {
		if ValidTimePoint(tp) {
			t.Errorf("ValidTimePoint(%q) = true", tp)
		}
	}
}
