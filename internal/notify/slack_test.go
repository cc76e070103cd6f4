package notify

import "testing"

func TestIsTerminalPhaseName(t *testing.T) {
	cases := map[string]bool{
		"completed":  true,
		"failed":     true,
		"rejected":   true,
		"planning":   false,
		"executing":  false,
	}
	for phase, want := range cases {
		if got := isTerminalPhaseName(phase); got != want {
			t.Errorf("isTerminalPhaseName(%q) = %v, want %v", phase, got, want)
		}
	}
}
