package bazbom

import (
	"errors"
	"strings"
)

// Error is the bazbom error domain type.
//
// Components should be able to inspect (via [errors.As]) an *Error at some
// point in the error chain. Create an Error at the system boundary (reading
// a manifest, calling the advisory API) and prefer fmt.Errorf with "%w" over
// wrapping in another Error further up the stack.
type Error struct {
	Inner   error
	Kind    ErrorKind
	Message string
	Op      string
}

var (
	_ error                       = (*Error)(nil)
	_ interface{ Is(error) bool } = (*Error)(nil)
	_ interface{ Unwrap() error } = (*Error)(nil)
)

// Error implements error.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	b.WriteString("[")
	switch e.Kind {
	case ErrInput, ErrManifest, ErrNetwork, ErrEnrichment, ErrSchema, ErrCacheCorrupt, ErrInternal:
		b.WriteString(string(e.Kind))
	default:
		b.WriteString("???")
	}
	b.WriteString("]: ")
	if e.Message != "" {
		b.WriteString(e.Message)
	}
	if e.Message != "" && e.Inner != nil {
		b.WriteString(": ")
	}
	if e.Op == "" && e.Message == "" {
		b.Reset()
	}
	if e.Inner != nil {
		b.WriteString(e.Inner.Error())
	}
	return b.String()
}

// Is enables [errors.Is]. Callers should compare against a declared
// [ErrorKind], not a specific *Error value.
func (e *Error) Is(kind error) bool {
	return errors.Is(e.Kind, kind)
}

// Unwrap enables [errors.Unwrap].
func (e *Error) Unwrap() error {
	return e.Inner
}

// ErrorKind classifies a root-level failure per the error handling design:
// only Input, Schema-invariant violations, and unrecoverable conditions
// should ever reach the orchestrator boundary as an *Error. Everything else
// (manifest parse failures, network hiccups, enrichment gaps) is recovered
// locally and surfaced as a warning instead.
type ErrorKind string

// Defined error kinds.
var (
	ErrInput        = ErrorKind("input")        // unreadable root, malformed config, unknown ecosystem flag
	ErrManifest     = ErrorKind("manifest")      // manifest parse failure escalated past local recovery
	ErrNetwork      = ErrorKind("network")       // advisory API exhausted retries with no fallback
	ErrEnrichment   = ErrorKind("enrichment")    // enrichment feed fetch failed and nothing cached
	ErrSchema       = ErrorKind("schema")        // emitted SBOM/SARIF failed schema validation
	ErrCacheCorrupt = ErrorKind("cache_corrupt") // scan cache entry unreadable
	ErrInternal     = ErrorKind("internal")      // unclassified
)

// Error implements error.
func (e ErrorKind) Error() string {
	return string(e)
}
