package pep440

import (
	"sort"
	"testing"
)

func TestParseRelease(t *testing.T) {
	tests := []struct {
		in   string
		want []int
	}{
		{"1.0.0", []int{1, 0, 0}},
		{"2019.3", []int{2019, 3}},
	}
	for _, tc := range tests {
		v, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.in, err)
		}
		if len(v.Release) != len(tc.want) {
			t.Fatalf("Parse(%q).Release = %v, want %v", tc.in, v.Release, tc.want)
		}
		for i := range tc.want {
			if v.Release[i] != tc.want[i] {
				t.Errorf("Parse(%q).Release[%d] = %d, want %d", tc.in, i, v.Release[i], tc.want[i])
			}
		}
	}
}

func TestParseAllSegments(t *testing.T) {
	v, err := Parse("1!2.3.4a5.post6.dev7")
	if err != nil {
		t.Fatal(err)
	}
	if v.Epoch != 1 {
		t.Errorf("Epoch = %d, want 1", v.Epoch)
	}
	if v.Pre.Label != "a" || v.Pre.N != 5 {
		t.Errorf("Pre = %+v, want {a 5}", v.Pre)
	}
	if v.Post != 6 {
		t.Errorf("Post = %d, want 6", v.Post)
	}
	if !v.HasDev || v.Dev != 7 {
		t.Errorf("Dev = %d (HasDev=%v), want 7 (true)", v.Dev, v.HasDev)
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse("not-a-version-at-all!!!"); err == nil {
		t.Error("expected an error for an unparseable version")
	}
}

// orderedSort sorts the given version strings by their PEP 440 ordering and
// returns them back as strings, for comparing against an expected ordering.
func orderedSort(t *testing.T, in []string) []string {
	t.Helper()
	vs := make([]Version, len(in))
	for i, s := range in {
		v, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		vs[i] = v
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i].Compare(&vs[j]) < 0 })
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.String()
	}
	return out
}

func TestOrdering(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "MajorMinor",
			in:   []string{"1.1", "1.0", "0.3", "0.2", "0.1"},
			want: []string{"0.1", "0.2", "0.3", "1.0", "1.1"},
		},
		{
			name: "PreReleaseOrdering",
			in:   []string{"1.0", "1.0a1", "1.0b1", "1.0rc1"},
			want: []string{"1.0a1", "1.0b1", "1.0rc1", "1.0"},
		},
		{
			name: "DevSortsBeforeFinal",
			in:   []string{"1.0", "1.0.dev1"},
			want: []string{"1.0.dev1", "1.0"},
		},
		{
			name: "DevOfPreReleaseSortsBeforePreRelease",
			in:   []string{"1.0a1", "1.0a1.dev1"},
			want: []string{"1.0a1.dev1", "1.0a1"},
		},
		{
			name: "PostSortsAfterFinal",
			in:   []string{"1.0.post1", "1.0"},
			want: []string{"1.0", "1.0.post1"},
		},
		{
			name: "Epoch",
			in:   []string{"1!1.0", "2013.10", "2014.4"},
			want: []string{"2013.10", "2014.4", "1!1.0"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := orderedSort(t, tc.in)
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("order = %v, want %v", got, tc.want)
				}
			}
		})
	}
}
