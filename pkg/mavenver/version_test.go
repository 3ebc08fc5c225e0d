package mavenver

import "testing"

func TestParse(t *testing.T) {
	tests := []string{
		"1.0",
		"1.0.1",
		"1-SNAPSHOT",
		"1-alpha10-SNAPSHOT",
	}
	for _, in := range tests {
		if _, err := Parse(in); err != nil {
			t.Errorf("Parse(%q): %v", in, err)
		}
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, op, b string
	}{
		{"1.0", "==", "1"},
		{"1.0", "==", "1.0.0"},
		{"1.0", "<", "1.0.1"},
		{"1.0-alpha1", "<", "1.0"},
		{"1.0-alpha1", "<", "1.0-alpha2"},
		{"1.0-alpha1", "<", "1.0-beta1"},
		{"1.0-beta1", "<", "1.0-milestone1"},
		{"1.0-milestone1", "<", "1.0-rc1"},
		{"1.0-rc1", "<", "1.0"},
		{"1.0", "==", "1.0-ga"},
		{"1.0", "==", "1.0-final"},
		{"1.0", "<", "1.0-sp1"},
		{"1.0-sp1", "<", "1.1"},
		{"1.0-SNAPSHOT", "<", "1.0"},
		{"1.0.0", "<", "1.0.0-1"},
		{"2.0", ">", "1.9.9"},
		{"1.0-unknown", ">", "1.0-sp1"},
	}
	want := map[string]int{"==": 0, "<": -1, ">": 1}
	for _, tc := range tests {
		a, err := Parse(tc.a)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.a, err)
		}
		b, err := Parse(tc.b)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.b, err)
		}
		if got := a.Compare(b); sign(got) != want[tc.op] {
			t.Errorf("%s %s %s: got sign %d, want %d", tc.a, tc.op, tc.b, sign(got), want[tc.op])
		}
		if got := b.Compare(a); sign(got) != -want[tc.op] {
			t.Errorf("%s %s %s (reversed): got sign %d, want %d", tc.b, tc.a, tc.op, sign(got), -want[tc.op])
		}
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
