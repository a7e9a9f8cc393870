package hypercube

import "testing"

func TestPlannerDecisionTable(t *testing.T) {
	axis := NormalizedAxis{Dimension: "time", Level: "year"}
	base := func() *NormalizedQuery {
		return &NormalizedQuery{
			Cube:     "sales",
			Measures: []string{"revenue"},
			RowAxes:  []NormalizedAxis{axis},
		}
	}

	cases := []struct {
		name   string
		mutate func(*NormalizedQuery)
		want   PlanStrategy
	}{
		{"single row axis", func(q *NormalizedQuery) {}, PlanPreAggregate},
		{"column axis", func(q *NormalizedQuery) { q.ColumnAxes = []NormalizedAxis{axis} }, PlanRawScan},
		{"two row axes", func(q *NormalizedQuery) { q.RowAxes = append(q.RowAxes, axis) }, PlanRawScan},
		{"filter present", func(q *NormalizedQuery) {
			q.Filters = []NormalizedFilter{{Dimension: "time", Level: "year", Operator: OpEq, Value: Num(2023)}}
		}, PlanRawScan},
		{"drill present", func(q *NormalizedQuery) {
			q.Drill = &NormalizedDrill{Dimension: "time", FromLevel: "year", ToLevel: "month", ToIndex: 2}
		}, PlanRawScan},
		{"rollup present", func(q *NormalizedQuery) {
			q.Rollup = &RollupSpec{Dimension: "time", Level: "quarter"}
		}, PlanRawScan},
	}

	for _, tc := range cases {
		q := base()
		tc.mutate(q)
		got := planQuery(q)
		if got.Strategy != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got.Strategy, tc.want)
		}
		if got.Reason == "" {
			t.Errorf("%s: expected a reason", tc.name)
		}
		// Deterministic for identical inputs.
		if again := planQuery(q); again != got {
			t.Errorf("%s: planner is not reproducible", tc.name)
		}
	}
}
