package version

import (
	"os"
	"testing"

	"github.com/fatih/color"
)

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestStyled_PlainWhenColorDisabled(t *testing.T) {
	origNoColor := color.NoColor
	origVersion := Version
	defer func() {
		color.NoColor = origNoColor
		Version = origVersion
	}()
	color.NoColor = true

	cases := []struct {
		in   string
		want string
	}{
		{"1.2.3", "1.2.3"},
		{"0.1.0-dev", "0.1.0-dev"},
		{"1.2.3-rc.1+build.123", "1.2.3-rc.1+build.123"},
		{"nightly", "nightly"},
		{"", "dev"},
	}
	for _, tc := range cases {
		Version = tc.in
		if got := Styled(); got != tc.want {
			t.Errorf("Styled() with Version=%q = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStyled_ColoredWhenEnabled(t *testing.T) {
	if os.Getenv("NO_COLOR") != "" {
		t.Skip("NO_COLOR is set")
	}
	origNoColor := color.NoColor
	origVersion := Version
	defer func() {
		color.NoColor = origNoColor
		Version = origVersion
	}()
	color.NoColor = false
	Version = "1.2.3"

	if got := Styled(); got == "1.2.3" {
		t.Errorf("expected ANSI sequences in %q", got)
	}
}

// BenchmarkStyled benchmarks rendering the version string
func BenchmarkStyled(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Styled()
	}
}
