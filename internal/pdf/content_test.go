package pdf

// Helpers for inspecting generated documents in tests: content streams are
// inflated so text-show operations become visible to assertions.

import (
	"bytes"
	"compress/zlib"
	"io"
	"regexp"
	"strconv"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// inflateContent returns the concatenation of all stream sections of doc,
// FlateDecode streams inflated, everything else verbatim.
func inflateContent(tb testing.TB, doc []byte) string {
	tb.Helper()

	var out bytes.Buffer
	rest := doc
	for {
		i := bytes.Index(rest, []byte("stream"))
		if i < 0 {
			break
		}
		chunk := rest[i+len("stream"):]
		chunk = bytes.TrimPrefix(chunk, []byte("\r\n"))
		chunk = bytes.TrimPrefix(chunk, []byte("\n"))
		j := bytes.Index(chunk, []byte("endstream"))
		if j < 0 {
			break
		}
		data := chunk[:j]
		if r, err := zlib.NewReader(bytes.NewReader(data)); err == nil {
			if b, rerr := io.ReadAll(r); rerr == nil {
				out.Write(b)
			}
			r.Close()
		} else {
			out.Write(data)
		}
		rest = chunk[j+len("endstream"):]
	}
	return out.String()
}

var textShowRE = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\) Tj`)

// textShows returns the string arguments of every text-show operation in
// an inflated content stream, in stream order.
func textShows(content string) []string {
	var out []string
	for _, m := range textShowRE.FindAllStringSubmatch(content, -1) {
		out = append(out, m[1])
	}
	return out
}

// drawPosition returns the text-matrix origin of the first draw of text in
// an inflated content stream. Coordinates are PDF user space (origin
// bottom-left, points).
func drawPosition(tb testing.TB, content, text string) (x, y float64) {
	tb.Helper()

	re := regexp.MustCompile(`BT (-?[0-9.]+) (-?[0-9.]+) Td ` + regexp.QuoteMeta("("+text+")") + ` Tj ET`)
	m := re.FindStringSubmatch(content)
	if m == nil {
		tb.Fatalf("text %q not drawn", text)
	}
	x, _ = strconv.ParseFloat(m[1], 64)
	y, _ = strconv.ParseFloat(m[2], 64)
	return x, y
}

// measureWidth returns the width of text in the stamp font, using the same
// metrics the overlay generator delegates to.
func measureWidth(tb testing.TB, text string) float64 {
	tb.Helper()

	aux := fpdf.New("P", "pt", "", "")
	aux.AddPage()
	aux.SetFont(fontName, "", fontSize)
	if aux.Err() {
		tb.Fatalf("failed to measure %q: %v", text, aux.Error())
	}
	return aux.GetStringWidth(text)
}

// pageContent reduces doc to the given page (1-based) and returns its
// inflated content.
func pageContent(tb testing.TB, p *Processor, doc []byte, page int) string {
	tb.Helper()

	var buf bytes.Buffer
	if err := api.Trim(bytes.NewReader(doc), &buf, []string{strconv.Itoa(page)}, p.Conf); err != nil {
		tb.Fatalf("failed to extract page %d: %v", page, err)
	}
	return inflateContent(tb, buf.Bytes())
}
