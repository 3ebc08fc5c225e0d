package bazbom

import (
	"errors"
	"time"
)

// Duration is a JSON-serializable [time.Duration] that (un)marshals through
// [time.ParseDuration]'s textual form ("24h0m0s") rather than a raw
// nanosecond count, so a CacheEntry.TTL value is readable without decoding
// it. bazbom.toml's duration fields (config.AdvisoryConfig.RefreshInterval,
// config.ScanCacheConfig.TTL) use this type as well, so they accept the
// same textual form ("24h", "30m").
type Duration time.Duration

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(b []byte) error {
	dur, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d *Duration) MarshalText() ([]byte, error) {
	if d == nil {
		return nil, errors.New("cannot marshal nil duration")
	}
	return []byte(time.Duration(*d).String()), nil
}
