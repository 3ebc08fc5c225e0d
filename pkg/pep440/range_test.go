package pep440

import "testing"

type matchTestcase struct {
	In    string
	Match bool
}

type rangeTestcase struct {
	Name  string
	In    string
	Match []matchTestcase
}

var rangeCases = []rangeTestcase{
	{
		Name: "Simple",
		In:   ">1.0",
		Match: []matchTestcase{
			{In: "1.0", Match: false},
			{In: "1.0.0.1", Match: true},
			{In: "2.0", Match: true},
		},
	},
	{
		Name: "SimpleLT",
		In:   "<2022.12.07",
		Match: []matchTestcase{
			{In: "2022.12.07", Match: false},
			{In: "2022.12.7", Match: false},
			{In: "2022.12.06", Match: true},
		},
	},
	{
		Name: "SimpleLTE",
		In:   "<=2022.12.07",
		Match: []matchTestcase{
			{In: "2022.12.07", Match: true},
			{In: "2022.12.7", Match: true},
			{In: "2022.12.08", Match: false},
		},
	},
	{
		Name: "Compatible",
		In:   "~=1.1",
		Match: []matchTestcase{
			{In: "1.1", Match: true},
			{In: "1.1.0.1", Match: true},
			{In: "2.0", Match: false},
		},
	},
	{
		Name: "CompatiblePatch",
		In:   "~=1.1.10",
		Match: []matchTestcase{
			{In: "1.1", Match: false},
			{In: "1.1.10.1", Match: true},
			{In: "2.0", Match: false},
		},
	},
	{
		Name: "CompatibleSpecific",
		In:   "~= 2.2.0",
		Match: []matchTestcase{
			{In: "2.2", Match: true},
			{In: "2.2.0.1", Match: true},
			{In: "3.0", Match: false},
		},
	},
	{
		Name: "CompatibleSpecificLong",
		In:   "~= 1.4.5.0",
		Match: []matchTestcase{
			{In: "1.4.4", Match: false},
			{In: "1.4.5.0.1", Match: true},
			{In: "2.0", Match: false},
			{In: "1.4", Match: false},
		},
	},
	{
		Name: "Weird",
		In:   "~=1.1, !=1.4",
		Match: []matchTestcase{
			{In: "1.1", Match: true},
			{In: "1.1.0.1", Match: true},
			{In: "2.0", Match: false},
			{In: "1.4", Match: false},
		},
	},
}

func TestRangeMatch(t *testing.T) {
	for _, tc := range rangeCases {
		t.Run(tc.Name, func(t *testing.T) {
			r, err := ParseRange(tc.In)
			if err != nil {
				t.Fatal(err)
			}
			for _, pair := range tc.Match {
				v, err := Parse(pair.In)
				if err != nil {
					t.Fatal(err)
				}
				if got := r.Match(&v); got != pair.Match {
					t.Errorf("%s matches %s = %v, want %v", tc.In, pair.In, got, pair.Match)
				}
			}
		})
	}
}

func TestRangeStringRoundTrip(t *testing.T) {
	r, err := ParseRange(">=1.2.3, !=1.4.0")
	if err != nil {
		t.Fatal(err)
	}
	if len(r) != 2 {
		t.Fatalf("len(r) = %d, want 2", len(r))
	}
	if s := r.String(); s == "" {
		t.Error("expected a non-empty String() representation")
	}
}

func TestRangeEmpty(t *testing.T) {
	r, err := ParseRange("")
	if err != nil {
		t.Fatal(err)
	}
	if r != nil {
		t.Errorf("ParseRange(\"\") = %v, want nil", r)
	}
}

func TestParseRangeInvalidCompatible(t *testing.T) {
	if _, err := ParseRange("~=1"); err == nil {
		t.Error("expected an error for ~= with a single release component")
	}
}
