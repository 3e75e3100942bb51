// Package pdf implements the stampable core: overlay generation, per-page
// stamping of template documents, and merging of stamped documents.
//
// Templates are composited with fpdf/gofpdi (import each source page as a
// template, layer the overlay page on top); pdfcpu handles preflight, page
// counts and merging.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Processor stamps template documents and merges the results. The pdfcpu
// configuration is built once and reused across a batch.
type Processor struct {
	Conf *model.Configuration
	Now  Clock
}

// NewProcessor returns a processor with relaxed pdfcpu validation, matching
// how templates from assorted authoring tools are tolerated in practice.
func NewProcessor() *Processor {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Processor{Conf: conf, Now: time.Now}
}

// Preflight parses the template at path and returns its page count.
// It classifies failures as ErrMissingFile, ErrEncryptedSource or
// ErrUnreadableSource so batch callers can report per-document reasons.
func (p *Processor) Preflight(path string) (int, error) {
	name := filepath.Base(path)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%s: %w", name, ErrMissingFile)
		}
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	defer f.Close()

	ctx, err := api.ReadContext(f, p.Conf)
	if err != nil {
		if isEncryptionError(err) {
			return 0, fmt.Errorf("%s: %w", name, ErrEncryptedSource)
		}
		return 0, fmt.Errorf("%s: %w: %v", name, ErrUnreadableSource, err)
	}
	if ctx.Encrypt != nil {
		return 0, fmt.Errorf("%s: %w", name, ErrEncryptedSource)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	pages, err := api.PageCount(f, p.Conf)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %v", name, ErrUnreadableSource, err)
	}
	return pages, nil
}

func isEncryptionError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password") || strings.Contains(msg, "encrypt")
}

// Stamp composites stampText onto every page of the template at
// templatePath and returns the result as a new in-memory document. The
// source file is read once and never mutated; page count and per-page
// dimensions are preserved.
func (p *Processor) Stamp(templatePath, stampText string) (out []byte, err error) {
	pageCount, err := p.Preflight(templatePath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(templatePath), err)
	}

	// gofpdi signals parse failures by panicking; surface them as an
	// unreadable-source error instead of taking down the batch.
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%s: %w: %v", filepath.Base(templatePath), ErrUnreadableSource, r)
		}
	}()

	doc := fpdf.New("P", "pt", "", "")
	doc.SetAutoPageBreak(false, 0)
	doc.SetCreationDate(p.Now())
	doc.SetModificationDate(p.Now())

	importer := gofpdi.NewImporter()
	src := io.ReadSeeker(bytes.NewReader(data))

	for page := 1; page <= pageCount; page++ {
		tpl := importer.ImportPageFromStream(doc, &src, page, "/MediaBox")
		box := importer.GetPageSizes()[page]["/MediaBox"]
		w, h := box["w"], box["h"]

		doc.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
		importer.UseImportedTemplate(doc, tpl, 0, 0, w, h)

		overlay, oerr := p.Overlay(stampText, w, h)
		if oerr != nil {
			return nil, fmt.Errorf("%s: page %d: %w", filepath.Base(templatePath), page, oerr)
		}
		ovSrc := io.ReadSeeker(bytes.NewReader(overlay))
		ovTpl := importer.ImportPageFromStream(doc, &ovSrc, 1, "/MediaBox")
		importer.UseImportedTemplate(doc, ovTpl, 0, 0, w, h)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("%s: failed to write stamped document: %w", filepath.Base(templatePath), err)
	}
	return buf.Bytes(), nil
}

// PageCount returns the number of pages of an in-memory document.
func (p *Processor) PageCount(doc []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(doc), p.Conf)
	if err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return n, nil
}
