package language

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"en", "en"},
		{"EN-us", "en"},
		{"eng", "en"},
		{"english", "en"},
		{" French ", "fr"},
		{"", Unknown},
		{"unknown", Unknown},
		{"not a language", Unknown},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToISO3(t *testing.T) {
	tests := map[string]string{
		"en":      "eng",
		"spanish": "spa",
		"":        "und",
		"zz-zz-1": "und",
	}
	for in, want := range tests {
		if got := ToISO3(in); got != want {
			t.Errorf("ToISO3(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"en":      "English",
		"de":      "German",
		"english": "English",
		"":        "Unknown",
		"unknown": "Unknown",
	}
	for in, want := range tests {
		if got := DisplayName(in); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", in, got, want)
		}
	}
}
