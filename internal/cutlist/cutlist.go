// Package cutlist reads and writes the JSON cut-list document exchanged with
// other tools.
package cutlist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"podcut/internal/cuts"
	"podcut/internal/fileutil"
	"podcut/internal/services"
	"podcut/internal/textutil"
)

// Version is the only document version written and accepted.
const Version = "1.0"

// Cut is one exported removal range in seconds.
type Cut struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Document is the exported cut list.
type Document struct {
	Version    string `json:"version"`
	Filename   string `json:"filename"`
	ExportedAt string `json:"exported_at"`
	Cuts       []Cut  `json:"cuts"`
}

// Build converts regions into a document sorted by start. Incomplete
// regions are skipped.
func Build(filename string, regions []cuts.Region, now time.Time) Document {
	out := make([]Cut, 0, len(regions))
	for _, r := range regions {
		if !r.Complete() {
			continue
		}
		out = append(out, Cut{Start: r.Start, End: *r.End})
	}
	slices.SortStableFunc(out, func(a, b Cut) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		}
		return 0
	})
	return Document{
		Version:    Version,
		Filename:   filename,
		ExportedAt: now.UTC().Format(time.RFC3339Nano),
		Cuts:       out,
	}
}

// Encode writes doc as two-space indented JSON.
func Encode(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode cut list: %w", err)
	}
	return nil
}

// Export builds the document for regions and writes it atomically to path.
func Export(path, audioFilename string, regions []cuts.Region) (Document, error) {
	doc := Build(audioFilename, regions, time.Now())
	err := fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return Encode(w, doc)
	})
	if err != nil {
		return Document{}, fmt.Errorf("export cut list: %w", err)
	}
	return doc, nil
}

// ExportFilename derives the export name from the audio filename:
// "podcast.mp3" becomes "podcast-cuts.json". Unsafe characters are replaced.
func ExportFilename(audioFilename string) string {
	base := filepath.Base(audioFilename)
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	if base = textutil.SanitizeFileName(base); base == "" || base == "." {
		base = "audio"
	}
	return base + "-cuts.json"
}

// Parse decodes a cut-list document and validates every cut.
func Parse(r io.Reader) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("read cut list: %w", err)
	}
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return Document{}, services.Wrap(services.ErrValidation, "cutlist", "parse", "malformed document", err)
	}
	if doc.Version != Version {
		return Document{}, services.Wrap(services.ErrValidation, "cutlist", "parse",
			fmt.Sprintf("unsupported version %q", doc.Version), nil)
	}
	for i, c := range doc.Cuts {
		if c.Start < 0 || c.End <= c.Start {
			return Document{}, services.Wrap(services.ErrValidation, "cutlist", "parse",
				fmt.Sprintf("cut %d: end %v must be after start %v", i+1, c.End, c.Start), nil)
		}
	}
	return doc, nil
}

// ReadFile parses the cut list stored at path.
func ReadFile(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, err
	}
	defer f.Close()
	return Parse(f)
}

// Regions converts the document back into regions numbered cut-1, cut-2, ...
func (d Document) Regions() []cuts.Region {
	regions := make([]cuts.Region, 0, len(d.Cuts))
	for i, c := range d.Cuts {
		regions = append(regions, cuts.NewRegion(fmt.Sprintf("cut-%d", i+1), c.Start, c.End))
	}
	return regions
}
