package bazbom

import (
	"fmt"
	"strings"
)

const descriptorURIPrefix = "urn:bazbom:scanner:"

// ScannerDescriptor names a scanner and its version, used to build the
// analyzer name/version pair recorded in each SARIF run's tool driver
// metadata (§4.5; see internal/orchestrator/merge.go's buildSARIFRuns).
type ScannerDescriptor struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Ecosystem Ecosystem `json:"ecosystem"`
}

// MarshalText implements [encoding.TextMarshaler] as a URN, matching the
// format bazbom uses wherever a descriptor needs a flat string form (log
// fields, cache key components).
func (d ScannerDescriptor) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("%s%s:%s:%s", descriptorURIPrefix, d.Name, d.Version, d.Ecosystem)), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *ScannerDescriptor) UnmarshalText(text []byte) error {
	s := string(text)
	if !strings.HasPrefix(s, descriptorURIPrefix) {
		return fmt.Errorf("invalid scanner uri: missing %s prefix", descriptorURIPrefix)
	}
	parts := strings.Split(strings.TrimPrefix(s, descriptorURIPrefix), ":")
	if len(parts) != 3 {
		return fmt.Errorf("invalid scanner uri: want 3 parts name:version:ecosystem")
	}
	d.Name = parts[0]
	d.Version = parts[1]
	d.Ecosystem = Ecosystem(parts[2])
	return nil
}
