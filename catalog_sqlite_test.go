package hypercube

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestCatalog(t *testing.T) *SQLiteCatalog {
	t.Helper()
	cfg := DefaultSQLiteCatalogConfig()
	cfg.Path = filepath.Join(t.TempDir(), "catalog.db")
	cat, err := NewSQLiteCatalog(cfg)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { _ = cat.Close() })
	return cat
}

func TestCatalogSaveLoad(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()

	def := sampleCubeDefinition()
	if err := cat.SaveCube(ctx, def); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := cat.LoadCube(ctx, "sales")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Name != "sales" || len(loaded.Facts) != len(def.Facts) {
		t.Errorf("round trip lost data: %s %d", loaded.Name, len(loaded.Facts))
	}
	if loaded.Measures[3].Aggregation != AggDistinct {
		t.Errorf("aggregation kind lost: %+v", loaded.Measures[3])
	}
}

func TestCatalogLoadMissing(t *testing.T) {
	cat := newTestCatalog(t)
	_, err := cat.LoadCube(context.Background(), "nope")
	if !errors.Is(err, ErrCubeNotFound) {
		t.Errorf("expected ErrCubeNotFound, got %v", err)
	}
}

func TestCatalogListAndDelete(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()

	_ = cat.SaveCube(ctx, sampleCubeDefinition())
	names, err := cat.ListCubes(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(names) != 1 || names[0] != "sales" {
		t.Errorf("unexpected listing %v", names)
	}

	if err := cat.DeleteCube(ctx, "sales"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	names, _ = cat.ListCubes(ctx)
	if len(names) != 0 {
		t.Errorf("expected empty catalog, got %v", names)
	}
}

func TestCatalogRestore(t *testing.T) {
	cat := newTestCatalog(t)
	ctx := context.Background()
	if err := cat.SaveCube(ctx, sampleCubeDefinition()); err != nil {
		t.Fatalf("save: %v", err)
	}

	eng := NewEngine(DefaultConfig())
	if err := cat.Restore(ctx, eng); err != nil {
		t.Fatalf("restore: %v", err)
	}
	resp, err := eng.Execute(&QueryPayload{
		Cube:     "sales",
		Measures: []string{"revenue"},
		Rows:     []AxisSpec{{Dimension: "time", Level: "year"}},
	})
	if err != nil {
		t.Fatalf("execute after restore: %v", err)
	}
	if len(resp.Data.Pivot.Rows) != 2 {
		t.Errorf("expected 2 year rows, got %d", len(resp.Data.Pivot.Rows))
	}

	// Restoring again over an engine that already has the cube is a no-op.
	if err := cat.Restore(ctx, eng); err != nil {
		t.Fatalf("second restore: %v", err)
	}
}
