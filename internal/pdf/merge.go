package pdf

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Merge concatenates the pages of the given documents, in input order, into
// one new document. Page content, size and orientation are preserved
// verbatim. The inputs are plain byte slices and remain usable by the
// caller afterwards.
func (p *Processor) Merge(docs [][]byte) ([]byte, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	readers := make([]io.ReadSeeker, len(docs))
	for i, d := range docs {
		readers[i] = bytes.NewReader(d)
	}

	var buf bytes.Buffer
	if err := api.MergeRaw(readers, &buf, false, p.Conf); err != nil {
		return nil, fmt.Errorf("failed to merge %d documents: %w", len(docs), err)
	}
	return buf.Bytes(), nil
}
