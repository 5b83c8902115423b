package model

import (
	"errors"
	"testing"
)

// TestNormalizeDomain tests reputation-key derivation from page URLs.
func TestNormalizeDomain(t *testing.T) {
	t.Parallel()

	t.Run("strips www and lowercases", func(t *testing.T) {
		t.Parallel()

		got, err := NormalizeDomain("https://www.Example.com/path")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "example.com" {
			t.Errorf("expected example.com, got %q", got)
		}
	})

	t.Run("same key for http and https variants", func(t *testing.T) {
		t.Parallel()

		a, err := NormalizeDomain("https://www.Example.com/path")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, err := NormalizeDomain("http://example.com/other")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a != b {
			t.Errorf("expected identical keys, got %q and %q", a, b)
		}
	})

	t.Run("rejects non-http schemes", func(t *testing.T) {
		t.Parallel()

		for _, raw := range []string{
			"chrome://extensions",
			"file:///tmp/page.html",
			"about:blank",
			"ftp://example.com/file",
		} {
			if _, err := NormalizeDomain(raw); !errors.Is(err, ErrUnsupportedScheme) {
				t.Errorf("NormalizeDomain(%q) = %v, want ErrUnsupportedScheme", raw, err)
			}
		}
	})

	t.Run("rejects empty input", func(t *testing.T) {
		t.Parallel()

		if _, err := NormalizeDomain("   "); !errors.Is(err, ErrEmptyURL) {
			t.Errorf("expected ErrEmptyURL, got %v", err)
		}
	})

	t.Run("keeps subdomains other than www", func(t *testing.T) {
		t.Parallel()

		got, err := NormalizeDomain("https://news.example.com/article")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "news.example.com" {
			t.Errorf("expected news.example.com, got %q", got)
		}
	})
}

// TestClampScore tests score range enforcement.
func TestClampScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   int
		want int
	}{
		{"below range", -5, 0},
		{"lower bound", 0, 0},
		{"in range", 82, 82},
		{"upper bound", 100, 100},
		{"above range", 140, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ClampScore(tt.in); got != tt.want {
				t.Errorf("ClampScore(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

// TestReliabilityFromAverage tests average-to-tier scaling.
func TestReliabilityFromAverage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		average float64
		want    int
	}{
		{"zero average maps to lowest tier", 0, 1},
		{"low average", 29, 3},
		{"midpoint rounds up", 25, 3},
		{"high average", 92, 9},
		{"perfect average clamps to ten", 100, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ReliabilityFromAverage(tt.average); got != tt.want {
				t.Errorf("ReliabilityFromAverage(%v) = %d, want %d", tt.average, got, tt.want)
			}
		})
	}
}

// TestParseSensitivity tests tier parsing.
func TestParseSensitivity(t *testing.T) {
	t.Parallel()

	t.Run("valid tiers", func(t *testing.T) {
		t.Parallel()

		for in, want := range map[string]Sensitivity{
			"light":  SensitivityLight,
			"Medium": SensitivityMedium,
			"DEEP":   SensitivityDeep,
			"":       SensitivityLight,
		} {
			got, err := ParseSensitivity(in)
			if err != nil {
				t.Fatalf("ParseSensitivity(%q) returned error: %v", in, err)
			}
			if got != want {
				t.Errorf("ParseSensitivity(%q) = %v, want %v", in, got, want)
			}
		}
	})

	t.Run("invalid tier", func(t *testing.T) {
		t.Parallel()

		if _, err := ParseSensitivity("paranoid"); !errors.Is(err, ErrInvalidSensitivity) {
			t.Errorf("expected ErrInvalidSensitivity, got %v", err)
		}
	})

	t.Run("tier capabilities", func(t *testing.T) {
		t.Parallel()

		if SensitivityLight.FlagsBias() {
			t.Error("light tier must not flag bias")
		}
		if !SensitivityMedium.FlagsBias() || !SensitivityDeep.FlagsBias() {
			t.Error("medium and deep tiers must flag bias")
		}
		if SensitivityMedium.SearchesSources() {
			t.Error("medium tier must not search sources")
		}
		if !SensitivityDeep.SearchesSources() {
			t.Error("deep tier must search sources")
		}
	})
}
