// Package hypercube provides an embedded in-memory OLAP cube engine for
// analytics UIs and notebook-style clients.
//
// A cube is registered once from a definition (dimensions with hierarchical
// levels, measures with aggregation kinds, and fact rows) and is immutable
// afterwards. Queries express slice, dice, drill-down and roll-up operations
// either as a structured payload or through a small textual helper language,
// and return pivoted aggregate results together with planner, cache and
// visualization metadata.
//
// # Basic Usage
//
// Create an engine and register a cube:
//
//	eng := hypercube.NewEngine(hypercube.DefaultConfig())
//	err := eng.RegisterCube(def)
//
// Run a query:
//
//	resp, err := eng.Execute(&hypercube.QueryPayload{
//	    Cube:     "sales",
//	    Measures: []string{"revenue"},
//	    Rows:     []hypercube.AxisSpec{{Dimension: "time", Level: "year"}},
//	})
//
// # Features
//
// Query Engine:
//   - Per-level pre-aggregates materialized at registration
//   - Planner choosing between pre-aggregate lookup and raw fact scans
//   - Slice/dice/filter predicates, drill-down paths and roll-ups
//   - Dense pivot matrices with stable header keys
//
// Operations:
//   - Bounded LRU result cache with per-entry TTL and canonical fingerprints
//   - Cube invalidation events with WebSocket fan-out
//   - HTTP API with JSON payloads and optional token authentication
//   - YAML cube definitions, S3 fact sources, SQLite catalog persistence
//
// All engine operations are safe for concurrent use.
package hypercube
