package defaults

import (
	"testing"

	"github.com/cboyd0319/bazbom"
)

func TestGenerateAndParseRoundTrip(t *testing.T) {
	tests := []bazbom.Coordinate{
		{Ecosystem: bazbom.EcosystemMaven, Name: "org.apache.commons:commons-lang3", Version: "3.12.0"},
		{Ecosystem: bazbom.EcosystemNPM, Name: "lodash", Version: "4.17.21"},
		{Ecosystem: bazbom.EcosystemNPM, Name: "@types/node", Version: "20.1.0"},
		{Ecosystem: bazbom.EcosystemPyPI, Name: "requests", Version: "2.31.0"},
		{Ecosystem: bazbom.EcosystemCargo, Name: "serde", Version: "1.0.188"},
		{Ecosystem: bazbom.EcosystemGo, Name: "github.com/pkg/errors", Version: "v0.9.1"},
		{Ecosystem: bazbom.EcosystemRubyGems, Name: "rails", Version: "7.0.4"},
		{Ecosystem: bazbom.EcosystemComposer, Name: "symfony/console", Version: "6.3.0"},
		{Ecosystem: bazbom.EcosystemGeneric, Name: "some-tool", Version: "1.0"},
	}

	r := New()
	for _, c := range tests {
		t.Run(string(c.Ecosystem)+"/"+c.Name, func(t *testing.T) {
			p, err := r.Generate(c)
			if err != nil {
				t.Fatalf("Generate(%+v): %v", c, err)
			}
			got, err := r.Parse(p)
			if err != nil {
				t.Fatalf("Parse(%v): %v", p, err)
			}
			if got != c {
				t.Errorf("round trip: got %+v, want %+v (via %s)", got, c, p.String())
			}
		})
	}
}

func TestPyPINameNormalization(t *testing.T) {
	r := New()
	p, err := r.Generate(bazbom.Coordinate{Ecosystem: bazbom.EcosystemPyPI, Name: "Foo_Bar.Baz", Version: "1.0"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "foo-bar-baz" {
		t.Errorf("Name = %q, want %q", p.Name, "foo-bar-baz")
	}
}
