package bazbom

import "testing"

func TestSeverityFromCVSS(t *testing.T) {
	tests := []struct {
		score float64
		want  Severity
	}{
		{9.8, Critical},
		{9.0, Critical},
		{8.1, High},
		{7.0, High},
		{5.5, Medium},
		{4.0, Medium},
		{2.1, Low},
		{0.1, Low},
		{0.0, Informational},
	}
	for _, tc := range tests {
		if got := SeverityFromCVSS(tc.score); got != tc.want {
			t.Errorf("SeverityFromCVSS(%v) = %v, want %v", tc.score, got, tc.want)
		}
	}
}

func TestSeverityRoundTrip(t *testing.T) {
	for s := Informational; s <= Critical; s++ {
		text, err := s.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", s, err)
		}
		var got Severity
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", text, err)
		}
		if got != s {
			t.Errorf("round trip: want %v, got %v", s, got)
		}
	}
}

func TestMergeSeverityPrefersHigherTier(t *testing.T) {
	if got := MergeSeverity(Low, Critical); got != Critical {
		t.Errorf("MergeSeverity(Low, Critical) = %v, want Critical", got)
	}
	if got := MergeSeverity(High, Medium); got != High {
		t.Errorf("MergeSeverity(High, Medium) = %v, want High", got)
	}
}
