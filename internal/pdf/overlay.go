package pdf

import (
	"bytes"
	"fmt"
	"time"

	"codeberg.org/go-pdf/fpdf"
)

// Stamp placement, in points.
const (
	fontName     = "Helvetica"
	fontSize     = 10.0
	marginTop    = 20.0
	marginRight  = 20.0
	marginBottom = 20.0
	marginLeft   = 20.0
)

// Clock supplies the timestamp drawn at the bottom-left of every stamped
// page. Injectable so output is reproducible under test.
type Clock func() time.Time

// StampText is the text composited onto every page for a center/number pair.
func StampText(centerCode, hospitalNumber string) string {
	return centerCode + "-" + hospitalNumber
}

// Overlay renders a single mostly-transparent page of exactly w x h points
// carrying text near the top-right corner and the current date/time at the
// bottom-left. The text is right-anchored: its right edge sits marginRight
// points left of the page edge, so longer numbers grow leftward instead of
// overflowing the margin. Empty text degenerates to a page with only the
// timestamp.
func (p *Processor) Overlay(text string, w, h float64) ([]byte, error) {
	doc := fpdf.New("P", "pt", "", "")
	doc.SetAutoPageBreak(false, 0)
	doc.SetCreationDate(p.Now())
	doc.SetModificationDate(p.Now())
	doc.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})

	p.drawStamp(doc, text, w, h)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render overlay: %w", err)
	}
	return buf.Bytes(), nil
}

// drawStamp draws the stamp onto the current page of doc. Glyph metrics are
// delegated to fpdf; only the anchor points are fixed.
func (p *Processor) drawStamp(doc *fpdf.Fpdf, text string, w, h float64) {
	doc.SetFont(fontName, "", fontSize)
	if text != "" {
		// Text() positions the baseline, so the glyph tops sit marginTop
		// below the page's top edge.
		x := w - doc.GetStringWidth(text) - marginRight
		doc.Text(x, marginTop+fontSize, text)
	}
	doc.Text(marginLeft, h-marginBottom, p.Now().Format("2006-01-02 15:04:05"))
}
