// Package audiofile checks that a file is an audio format the editor and the
// transcription service accept before any work starts.
package audiofile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"podcut/internal/services"
)

// DefaultMaxBytes is the size limit used when none is configured.
const DefaultMaxBytes int64 = 500 * 1024 * 1024

const sniffLen = 512

// Supported MIME types and the extensions each accepts.
var formats = map[string][]string{
	"audio/mpeg":  {".mp3"},
	"audio/mp3":   {".mp3"},
	"audio/wav":   {".wav"},
	"audio/wave":  {".wav"},
	"audio/x-wav": {".wav"},
	"audio/mp4":   {".m4a", ".mp4"},
	"audio/x-m4a": {".m4a"},
	"audio/aac":   {".aac"},
	"audio/ogg":   {".ogg", ".oga"},
}

var byExtension = map[string]string{
	".mp3": "audio/mpeg",
	".wav": "audio/wav",
	".m4a": "audio/mp4",
	".mp4": "audio/mp4",
	".aac": "audio/aac",
	".ogg": "audio/ogg",
	".oga": "audio/ogg",
}

// Info describes a validated file.
type Info struct {
	Name          string
	Path          string
	Size          int64
	MIMEType      string
	SizeFormatted string
}

// Error lists every problem found with a file.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	return "invalid audio file: " + strings.Join(e.Problems, "; ")
}

// Is matches the validation marker.
func (e *Error) Is(target error) bool {
	return target == services.ErrValidation
}

// Supported reports whether mimeType is an accepted audio type.
func Supported(mimeType string) bool {
	_, ok := formats[strings.ToLower(mimeType)]
	return ok
}

// MIMEForExtension returns the audio MIME type for a file extension, or "".
func MIMEForExtension(ext string) string {
	return byExtension[strings.ToLower(ext)]
}

// Validate checks path against the supported formats and maxBytes (0 uses
// DefaultMaxBytes). The MIME type comes from the extension and is checked
// against the content when the content is recognizable.
func Validate(path string, maxBytes int64) (Info, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Info{}, &Error{Problems: []string{"no file at " + path}}
		}
		return Info{}, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return Info{}, fmt.Errorf("stat audio file: %w", err)
	}
	if stat.IsDir() {
		return Info{}, &Error{Problems: []string{path + " is a directory"}}
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Info{}, fmt.Errorf("read audio file: %w", err)
	}
	return check(filepath.Base(path), path, stat.Size(), head[:n], maxBytes)
}

func check(name, path string, size int64, head []byte, maxBytes int64) (Info, error) {
	ext := strings.ToLower(filepath.Ext(name))
	mimeType := MIMEForExtension(ext)
	info := Info{
		Name:          name,
		Path:          path,
		Size:          size,
		MIMEType:      mimeType,
		SizeFormatted: humanize.IBytes(uint64(max(size, 0))),
	}

	var problems []string
	if mimeType == "" {
		label := ext
		if label == "" {
			label = "unknown"
		}
		problems = append(problems, fmt.Sprintf("unsupported audio format: %s (supported formats: MP3, WAV, M4A, AAC, OGG)", label))
	}
	if size > maxBytes {
		problems = append(problems, fmt.Sprintf("file too large: %s (maximum %s)",
			humanize.IBytes(uint64(size)), humanize.IBytes(uint64(maxBytes))))
	}
	if size == 0 {
		problems = append(problems, "file is empty")
	}
	if len(problems) == 0 {
		if sniffed := Sniff(head); sniffed != "" && !slices.Contains(formats[sniffed], ext) {
			problems = append(problems, fmt.Sprintf("file extension %s doesn't match content type %s", ext, sniffed))
		}
	}
	if len(problems) > 0 {
		return info, &Error{Problems: problems}
	}
	return info, nil
}

// Sniff identifies the audio container from the first bytes of a file. It
// returns "" when the content is not recognized.
func Sniff(head []byte) string {
	switch http.DetectContentType(head) {
	case "audio/mpeg":
		return "audio/mpeg"
	case "audio/wave":
		return "audio/wav"
	case "application/ogg":
		return "audio/ogg"
	case "video/mp4":
		return "audio/mp4"
	}
	if len(head) >= 2 && head[0] == 0xFF {
		switch head[1] & 0xF6 {
		case 0xF0:
			// ADTS sync word with layer bits 00.
			return "audio/aac"
		case 0xF2, 0xF4, 0xF6:
			// MPEG audio frame sync without an ID3 tag.
			return "audio/mpeg"
		}
	}
	if bytes.HasPrefix(head, []byte("ADIF")) {
		return "audio/aac"
	}
	return ""
}
