package oplog

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "operations.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleOp() Operation {
	return Operation{
		TimePoint:      "A1",
		CenterCode:     "CMC",
		HospitalNumber: "12345",
		Templates:      []string{"arat.pdf", "nhpt.pdf"},
		Type:           OpDownload,
		Merge:          true,
	}
}

func TestHashIsOrderIndependent(t *testing.T) {
	a := sampleOp()
	b := sampleOp()
	b.Templates = []string{"nhpt.pdf", "arat.pdf"}

	if a.Hash() != b.Hash() {
		t.Fatal("template order changed the operation hash")
	}
}

func TestHashDistinguishesOperations(t *testing.T) {
	base := sampleOp()

	variants := []func(*Operation){
		func(o *Operation) { o.TimePoint = "A2" },
		func(o *Operation) { o.CenterCode = "MNP" },
		func(o *Operation) { o.HospitalNumber = "54321" },
		func(o *Operation) { o.Templates = []string{"arat.pdf"} },
		func(o *Operation) { o.Type = OpPrint },
		func(o *Operation) { o.Merge = false },
	}
	for i, mutate := range variants {
		op := sampleOp()
		mutate(&op)
		if op.Hash() == base.Hash() {
			t.Errorf("variant %d hashes equal to base", i)
		}
	}
}

func TestCheckDuplicateRoundTrip(t *testing.T) {
	s := openTestStore(t)
	op := sampleOp()

	dup, err := s.CheckDuplicate(op)
	if err != nil {
		t.Fatalf("CheckDuplicate() error = %v", err)
	}
	if dup != nil {
		t.Fatalf("unexpected duplicate before any record: %+v", dup)
	}

	if err := s.Record(op, "batch-1", false, "", "/tmp/out"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	dup, err = s.CheckDuplicate(op)
	if err != nil {
		t.Fatalf("CheckDuplicate() error = %v", err)
	}
	if dup == nil {
		t.Fatal("recorded operation not detected as duplicate")
	}
	if dup.Operation.HospitalNumber != "12345" || dup.Operation.CenterCode != "CMC" {
		t.Fatalf("duplicate record carries wrong operation: %+v", dup.Operation)
	}
	// Template list is stored sorted.
	if diff := cmp.Diff([]string{"arat.pdf", "nhpt.pdf"}, dup.Operation.Templates); diff != "" {
		t.Fatalf("templates mismatch (-want +got):\n%s", diff)
	}

	// A reordered selection is the same operation.
	reordered := sampleOp()
	reordered.Templates = []string{"nhpt.pdf", "arat.pdf"}
	dup, err = s.CheckDuplicate(reordered)
	if err != nil {
		t.Fatalf("CheckDuplicate() error = %v", err)
	}
	if dup == nil {
		t.Fatal("reordered selection not detected as duplicate")
	}
}

func TestRecordRepeatUpdatesInPlace(t *testing.T) {
	s := openTestStore(t)
	op := sampleOp()

	if err := s.Record(op, "batch-1", false, "", "/tmp/a"); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := s.Record(op, "batch-2", true, "patient lost the printout", "/tmp/b"); err != nil {
		t.Fatalf("repeat Record() error = %v", err)
	}

	recs, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1 (repeat updates in place)", len(recs))
	}
	rec := recs[0]
	if !rec.IsDuplicate {
		t.Error("repeat record not flagged as duplicate")
	}
	if rec.ReprintReason != "patient lost the printout" {
		t.Errorf("ReprintReason = %q", rec.ReprintReason)
	}
	if rec.BatchID != "batch-2" {
		t.Errorf("BatchID = %q, want batch-2", rec.BatchID)
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	s := openTestStore(t)

	for i, num := range []string{"11111", "22222", "33333"} {
		op := sampleOp()
		op.HospitalNumber = num
		if err := s.Record(op, "batch", false, "", ""); err != nil {
			t.Fatalf("Record(%d) error = %v", i, err)
		}
	}

	recs, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
}
