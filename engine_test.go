package hypercube

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestExecuteSliceByRegion(t *testing.T) {
	eng := newSampleEngine(DefaultConfig())
	resp, err := eng.Execute(&QueryPayload{
		Cube:     "sales",
		Measures: []string{"revenue"},
		Rows:     []AxisSpec{{Dimension: "time", Level: "year"}},
		Slices: []FilterSpec{
			{Dimension: "geography", Level: "region", Operator: OpEq, Value: "North America"},
		},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if resp.Metadata.Cache.Hit {
		t.Error("first execution must be a cache miss")
	}
	if got := rowLabels(resp.Data); !reflect.DeepEqual(got, []string{"2023", "2024"}) {
		t.Fatalf("unexpected rows %v", got)
	}
	want := [][]float64{{3500}, {1300}}
	if got := resp.Data.Pivot.Measures["revenue"].Values; !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected matrix %v", got)
	}
}

func TestExecuteDrillBreadcrumbs(t *testing.T) {
	eng := newSampleEngine(DefaultConfig())
	resp, err := eng.Execute(&QueryPayload{
		Cube:     "sales",
		Measures: []string{"units"},
		Rows:     []AxisSpec{{Dimension: "time", Level: "year"}},
		Drill:    &DrillSpec{Dimension: "time", FromLevel: "year", ToLevel: "month", Path: []Scalar{Num(2023)}},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := rowLabels(resp.Data); !reflect.DeepEqual(got, []string{"Jan", "Feb", "Apr", "May", "Jul", "Oct"}) {
		t.Fatalf("unexpected rows %v", got)
	}
	want := [][]float64{{4}, {2}, {5}, {3}, {6}, {4}}
	if got := resp.Data.Pivot.Measures["units"].Values; !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected matrix %v", got)
	}
	crumbs := resp.Metadata.Breadcrumbs
	if len(crumbs) != 1 {
		t.Fatalf("expected 1 breadcrumb, got %d", len(crumbs))
	}
	if crumbs[0].Dimension != "time" || crumbs[0].Level != "year" || !crumbs[0].Value.Equal(Num(2023)) {
		t.Errorf("unexpected breadcrumb %+v", crumbs[0])
	}
}

func TestExecuteRollup(t *testing.T) {
	eng := newSampleEngine(DefaultConfig())
	resp, err := eng.Execute(&QueryPayload{
		Cube:     "sales",
		Measures: []string{"revenue"},
		Rows: []AxisSpec{
			{Dimension: "time", Level: "year"},
			{Dimension: "time", Level: "month"},
		},
		Rollup: &RollupSpec{Dimension: "time", Level: "quarter"},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	want := [][]float64{{2100}, {2700}, {2000}, {1400}, {1300}, {800}, {1700}, {900}}
	if got := resp.Data.Pivot.Measures["revenue"].Values; !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected matrix %v", got)
	}
}

func TestExecuteCacheHitWithinTTL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.TTL = 500 * time.Millisecond
	eng := newSampleEngine(cfg)

	payload := &QueryPayload{
		Cube:     "sales",
		Measures: []string{"revenue"},
		Rows:     []AxisSpec{{Dimension: "time", Level: "year"}},
	}

	first, err := eng.Execute(payload)
	if err != nil {
		t.Fatalf("first execute: %v", err)
	}
	if first.Metadata.Cache.Hit {
		t.Error("first execution must miss")
	}

	second, err := eng.Execute(payload)
	if err != nil {
		t.Fatalf("second execute: %v", err)
	}
	if !second.Metadata.Cache.Hit {
		t.Fatal("second execution must hit")
	}
	if second.Metadata.Cache.Stats.Hits < 1 {
		t.Errorf("expected at least one hit, got %+v", second.Metadata.Cache.Stats)
	}
	if second.Metadata.Cache.TTLRemainingMs == nil {
		t.Fatal("expected a remaining TTL")
	}
	if *second.Metadata.Cache.TTLRemainingMs > 500 {
		t.Errorf("remaining TTL exceeds configured TTL: %d", *second.Metadata.Cache.TTLRemainingMs)
	}
}

// Cache idempotence: two identical calls within TTL return byte-identical
// data blocks and the second strictly increases the hit counter.
func TestExecuteCacheIdempotence(t *testing.T) {
	eng := newSampleEngine(DefaultConfig())
	payload := &QueryPayload{
		Cube:     "sales",
		Measures: []string{"revenue", "units"},
		Rows:     []AxisSpec{{Dimension: "geography", Level: "region"}},
		Columns:  []AxisSpec{{Dimension: "product", Level: "category"}},
	}

	first, err := eng.Execute(payload)
	if err != nil {
		t.Fatalf("first execute: %v", err)
	}
	hitsBefore := eng.CacheStats().Hits

	second, err := eng.Execute(payload)
	if err != nil {
		t.Fatalf("second execute: %v", err)
	}
	if !second.Metadata.Cache.Hit {
		t.Fatal("second execution must hit")
	}
	if eng.CacheStats().Hits <= hitsBefore {
		t.Error("hit counter must strictly increase")
	}

	firstJSON, err := json.Marshal(first.Data)
	if err != nil {
		t.Fatalf("marshal first: %v", err)
	}
	secondJSON, err := json.Marshal(second.Data)
	if err != nil {
		t.Fatalf("marshal second: %v", err)
	}
	if string(firstJSON) != string(secondJSON) {
		t.Errorf("data blocks differ:\n%s\n%s", firstJSON, secondJSON)
	}
	if first.Metadata.Cache.Key != second.Metadata.Cache.Key {
		t.Errorf("cache keys differ: %s vs %s", first.Metadata.Cache.Key, second.Metadata.Cache.Key)
	}
}

// Fingerprint canonicity: the same logical query expressed through the
// helper language and through the structured payload shares one cache key.
func TestFingerprintCanonicity(t *testing.T) {
	eng := newSampleEngine(DefaultConfig())

	structured, err := eng.Execute(&QueryPayload{
		Cube:     "sales",
		Measures: []string{"revenue"},
		Rows:     []AxisSpec{{Dimension: "time", Level: "year"}},
		Slices: []FilterSpec{
			{Dimension: "geography", Level: "region", Operator: OpEq, Value: "Europe"},
		},
	})
	if err != nil {
		t.Fatalf("structured execute: %v", err)
	}

	viaHelper, err := eng.Execute(&QueryPayload{
		Cube:     "sales",
		Measures: []string{"revenue"},
		MDX:      "ROWS time.year; SLICE geography.region = 'Europe'",
	})
	if err != nil {
		t.Fatalf("helper execute: %v", err)
	}

	if structured.Metadata.Cache.Key != viaHelper.Metadata.Cache.Key {
		t.Errorf("fingerprints differ:\n%s\n%s", structured.Metadata.Cache.Key, viaHelper.Metadata.Cache.Key)
	}
	if !viaHelper.Metadata.Cache.Hit {
		t.Error("helper-expressed query should hit the structured query's entry")
	}
}

// Invalidation: after InvalidateCube the next identical query misses.
func TestExecuteInvalidation(t *testing.T) {
	eng := newSampleEngine(DefaultConfig())
	payload := &QueryPayload{
		Cube:     "sales",
		Measures: []string{"revenue"},
		Rows:     []AxisSpec{{Dimension: "time", Level: "year"}},
	}
	if _, err := eng.Execute(payload); err != nil {
		t.Fatalf("execute: %v", err)
	}

	var event InvalidationEvent
	unsubscribe := eng.OnInvalidation(func(ev InvalidationEvent) { event = ev })
	defer unsubscribe()

	evicted, err := eng.InvalidateCube("sales", "facts reloaded")
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if evicted != 1 {
		t.Errorf("expected 1 eviction, got %d", evicted)
	}
	if event.Cube != "sales" || event.Reason != "facts reloaded" || event.Evicted != 1 {
		t.Errorf("unexpected event %+v", event)
	}

	resp, err := eng.Execute(payload)
	if err != nil {
		t.Fatalf("re-execute: %v", err)
	}
	if resp.Metadata.Cache.Hit {
		t.Error("query after invalidation must miss")
	}
}

func TestInvalidateUnknownCube(t *testing.T) {
	eng := newSampleEngine(DefaultConfig())
	_, err := eng.InvalidateCube("unknown", "")
	if !errors.Is(err, ErrCubeNotFound) {
		t.Errorf("expected ErrCubeNotFound, got %v", err)
	}
}

// Error locality: a failing query leaves counters and cache contents alone.
func TestExecuteErrorLocality(t *testing.T) {
	eng := newSampleEngine(DefaultConfig())
	if _, err := eng.Execute(&QueryPayload{
		Cube:     "sales",
		Measures: []string{"revenue"},
		Rows:     []AxisSpec{{Dimension: "time", Level: "year"}},
	}); err != nil {
		t.Fatalf("seed execute: %v", err)
	}
	before := eng.CacheStats()

	_, err := eng.Execute(&QueryPayload{Cube: "sales"})
	if err == nil {
		t.Fatal("expected missing measures to fail")
	}
	if StatusOf(err) != StatusBadRequest {
		t.Errorf("expected 400, got %d", StatusOf(err))
	}

	_, err = eng.Execute(&QueryPayload{
		Cube:     "sales",
		Measures: []string{"revenue"},
		Rows:     []AxisSpec{{Dimension: "nope"}},
	})
	if err == nil {
		t.Fatal("expected unknown dimension to fail")
	}

	after := eng.CacheStats()
	if before != after {
		t.Errorf("failed queries changed cache stats: %+v vs %+v", before, after)
	}
}

func TestExecuteUnknownCube(t *testing.T) {
	eng := newSampleEngine(DefaultConfig())
	_, err := eng.Execute(&QueryPayload{Cube: "unknown", Measures: []string{"revenue"}})
	if err == nil {
		t.Fatal("expected unknown cube to fail")
	}
	if !errors.Is(err, ErrCubeNotFound) {
		t.Errorf("expected ErrCubeNotFound, got %v", err)
	}
	if StatusOf(err) != StatusNotFound {
		t.Errorf("expected 404, got %d", StatusOf(err))
	}
}

func TestExecuteMetadata(t *testing.T) {
	eng := newSampleEngine(DefaultConfig())
	resp, err := eng.Execute(&QueryPayload{
		Cube:     "sales",
		Measures: []string{"revenue"},
		Rows:     []AxisSpec{{Dimension: "time", Level: "year"}},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	md := resp.Metadata
	if md.Cube != "sales" {
		t.Errorf("unexpected cube %s", md.Cube)
	}
	if len(md.AvailableMeasures) != 4 || md.AvailableMeasures[0].Name != "revenue" {
		t.Errorf("unexpected available measures %+v", md.AvailableMeasures)
	}
	if md.Planner.Strategy != PlanPreAggregate || md.Planner.Reason == "" {
		t.Errorf("unexpected planner verdict %+v", md.Planner)
	}
	if !reflect.DeepEqual(md.Suggestions, []string{"column", "line"}) {
		t.Errorf("unexpected suggestions %v", md.Suggestions)
	}
}

func TestListCubes(t *testing.T) {
	eng := newSampleEngine(DefaultConfig())
	if got := eng.ListCubes(); !reflect.DeepEqual(got, []string{"sales"}) {
		t.Errorf("unexpected cubes %v", got)
	}
}
