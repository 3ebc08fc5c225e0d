package bazbom

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestScannerDescriptorMarshalText(t *testing.T) {
	tests := []struct {
		name string
		d    ScannerDescriptor
		want string
	}{
		{
			name: "valid",
			d:    ScannerDescriptor{Name: "npm", Version: "1.0.0", Ecosystem: EcosystemNPM},
			want: "urn:bazbom:scanner:npm:1.0.0:npm",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.d.MarshalText()
			if err != nil {
				t.Fatalf("MarshalText: %v", err)
			}
			if !cmp.Equal(tc.want, string(got)) {
				t.Errorf("MarshalText: want %s, got %s", tc.want, string(got))
			}
		})
	}
}

func TestScannerDescriptorUnmarshalText(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want ScannerDescriptor
	}{
		{
			name: "valid",
			uri:  "urn:bazbom:scanner:npm:1.0.0:npm",
			want: ScannerDescriptor{Name: "npm", Version: "1.0.0", Ecosystem: EcosystemNPM},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got ScannerDescriptor
			if err := got.UnmarshalText([]byte(tc.uri)); err != nil {
				t.Fatalf("UnmarshalText: %v", err)
			}
			if !cmp.Equal(tc.want, got) {
				t.Errorf("UnmarshalText: want %v, got %v", tc.want, got)
			}
		})
	}
}
