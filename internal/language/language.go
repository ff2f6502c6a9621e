package language

import (
	"strings"

	"golang.org/x/text/cases"
	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Unknown is reported when no language could be determined.
const Unknown = "unknown"

// Transcription APIs report either codes ("en") or lowercase English names
// ("english"); the names are not BCP 47 so they need their own table.
var byWord = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"finnish":    "fi",
	"turkish":    "tr",
	"ukrainian":  "uk",
}

var titleCaser = cases.Title(xlang.English)

// Normalize maps a language code or English language name to its ISO 639-1
// base code ("en-US", "eng", and "English" all become "en"). Unrecognized or
// empty input returns Unknown.
func Normalize(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" || value == Unknown {
		return Unknown
	}
	if code, ok := byWord[value]; ok {
		return code
	}
	tag, err := xlang.Parse(value)
	if err != nil {
		return Unknown
	}
	base, conf := tag.Base()
	if conf == xlang.No {
		return Unknown
	}
	return base.String()
}

// ToISO3 converts a recognized language to ISO 639-2/T, or "und".
func ToISO3(value string) string {
	code := Normalize(value)
	if code == Unknown {
		return "und"
	}
	base, err := xlang.ParseBase(code)
	if err != nil {
		return "und"
	}
	return base.ISO3()
}

// DisplayName returns the English name of a language ("en" -> "English").
// Empty input yields "Unknown"; unrecognized input is title-cased as given.
func DisplayName(value string) string {
	trimmed := strings.TrimSpace(value)
	code := Normalize(trimmed)
	if code == Unknown {
		if trimmed == "" || strings.EqualFold(trimmed, Unknown) {
			return "Unknown"
		}
		return titleCaser.String(trimmed)
	}
	name := display.English.Languages().Name(xlang.Make(code))
	if name == "" {
		return titleCaser.String(code)
	}
	return name
}
