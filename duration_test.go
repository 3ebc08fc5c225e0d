package bazbom

import "testing"

func TestDurationRoundTrip(t *testing.T) {
	for _, s := range []string{"24h0m0s", "1h30m0s", "0s"} {
		var d Duration
		if err := d.UnmarshalText([]byte(s)); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", s, err)
		}
		text, err := d.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", d, err)
		}
		if string(text) != s {
			t.Errorf("round trip: want %q, got %q", s, text)
		}
	}
}

func TestDurationUnmarshalTextInvalid(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("not-a-duration")); err == nil {
		t.Fatal("expected an error for an unparseable duration")
	}
}

func TestDurationMarshalTextNil(t *testing.T) {
	var d *Duration
	if _, err := d.MarshalText(); err == nil {
		t.Fatal("expected an error marshaling a nil *Duration")
	}
}
