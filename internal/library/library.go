// Package library exposes the static configuration of the application:
// the medical centers, the assessment time points, and the read-only
// directory of PDF templates shipped alongside the binary.
package library

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Center is a medical facility a document can be stamped for.
type Center struct {
	Code string
	Name string
}

// Centers is the fixed set of participating centers. Loaded once, never
// mutated at runtime.
var Centers = []Center{
	{Code: "CMC", Name: "CMC Vellore"},
	{Code: "MNP", Name: "Manipal Hospital"},
	{Code: "LDH", Name: "Ludhiana Hospital"},
}

// CenterByCode returns the center for a code, case-insensitively.
func CenterByCode(code string) (Center, bool) {
	for _, c := range Centers {
		if strings.EqualFold(c.Code, code) {
			return c, true
		}
	}
	return Center{}, false
}

// TimePoints are the assessment time points an operation is recorded under.
var TimePoints = []string{"A0", "A1", "A2"}

// ValidTimePoint reports whether tp is one of the known time points.
func ValidTimePoint(tp string) bool {
	for _, v := range TimePoints {
		if strings.EqualFold(v, tp) {
			return true
		}
	}
	return false
}

// Template is one entry of the PDF template library.
type Template struct {
	// Filename is the name within the library directory, e.g. "arat.pdf".
	Filename string
	// Path is the absolute or dir-relative path to the file.
	Path string
}

// Stem returns the filename without its extension, used in output names.
func (t Template) Stem() string {
	return strings.TrimSuffix(t.Filename, filepath.Ext(t.Filename))
}

// DisplayName is the library entry as shown to the user.
func (t Template) DisplayName() string {
	return strings.ToUpper(t.Stem())
}

// Library is the set of templates discovered in one directory scan.
type Library struct {
	dir       string
	templates []Template
}

// Scan discovers the *.pdf files in dir, display-ordered by filename.
// The set of available templates is exactly the set of such files present.
func Scan(dir string) (*Library, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan template dir %s: %w", dir, err)
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("template dir %s not accessible: %w", dir, err)
	}
	sort.Strings(matches)

	lib := &Library{dir: dir}
	for _, m := range matches {
		lib.templates = append(lib.templates, Template{
			Filename: filepath.Base(m),
			Path:     m,
		})
	}
	return lib, nil
}

// Dir returns the scanned directory.
func (l *Library) Dir() string { return l.dir }

// Templates returns the discovered templates in display order.
func (l *Library) Templates() []Template {
	out := make([]Template, len(l.templates))
	copy(out, l.templates)
	return out
}

// Lookup resolves a template by filename or by stem, case-insensitively.
func (l *Library) Lookup(name string) (Template, bool) {
	for _, t := range l.templates {
		if strings.EqualFold(t.Filename, name) || strings.EqualFold(t.Stem(), name) {
			return t, true
		}
	}
	return Template{}, false
}
