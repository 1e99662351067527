package main

import "testing"

func TestReadUIMode(t *testing.T) {
	cases := map[string]uiMode{
		"":     uiModeOff,
		"off":  uiModeOff,
		" ON ": uiModeOn,
		"auto": uiModeAuto,
		"Auto": uiModeAuto,
	}
	for in, want := range cases {
		got, err := readUIMode(in)
		if err != nil {
			t.Fatalf("readUIMode(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("readUIMode(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := readUIMode("always"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if shouldUseTUI(uiModeOff) || !shouldUseTUI(uiModeOn) {
		t.Fatal("explicit modes must not consult the terminal")
	}
}
