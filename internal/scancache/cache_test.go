package scancache

import (
	"context"
	"testing"
	"time"

	"github.com/cboyd0319/bazbom"
)

func testParams(t *testing.T) (bazbom.ScanParameters, map[string]bazbom.Digest) {
	t.Helper()
	digests := map[string]bazbom.Digest{
		"package.json": bazbom.SumBytes([]byte(`{"name":"x"}`)),
	}
	params := bazbom.ScanParameters{
		Root:            "/workspace",
		ToolVersion:     "test",
		ManifestDigests: digests,
	}
	return params, digests
}

func TestStoreThenTryLoadHits(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	params, digests := testParams(t)
	report := bazbom.UnifiedScanReport{Root: params.Root, State: "done"}

	if err := c.Store(context.Background(), params, report, time.Now()); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.TryLoad(context.Background(), params, digests)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if got.Root != report.Root {
		t.Fatalf("got %+v, want %+v", got, report)
	}
}

func TestTryLoadMissesOnManifestChange(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	params, digests := testParams(t)
	report := bazbom.UnifiedScanReport{Root: params.Root}
	if err := c.Store(context.Background(), params, report, time.Now()); err != nil {
		t.Fatal(err)
	}

	changed := map[string]bazbom.Digest{"package.json": bazbom.SumBytes([]byte(`{"name":"y"}`))}
	_ = digests
	_, ok, err := c.TryLoad(context.Background(), params, changed)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected a cache miss after manifest change")
	}
}

func TestTryLoadMissesOnExpiry(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, WithTTL(time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	params, digests := testParams(t)
	report := bazbom.UnifiedScanReport{Root: params.Root}
	if err := c.Store(context.Background(), params, report, time.Now().Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}

	_, ok, err := c.TryLoad(context.Background(), params, digests)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected a cache miss after TTL expiry")
	}
}

func TestTryLoadMissesWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	params, digests := testParams(t)
	_, ok, err := c.TryLoad(context.Background(), params, digests)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected a cache miss when no entry was ever stored")
	}
}
