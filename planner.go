package hypercube

// PlanStrategy names an execution strategy.
type PlanStrategy string

const (
	// PlanPreAggregate reads finalized values from the registration-time
	// pre-aggregate store.
	PlanPreAggregate PlanStrategy = "pre-aggregate"
	// PlanRawScan streams every fact row through filter and drill
	// evaluation into per-cell accumulators.
	PlanRawScan PlanStrategy = "raw-scan"
)

// PlanDecision is the planner's verdict: a strategy plus a human-readable
// reason. The planner is pure; identical inputs yield identical decisions.
type PlanDecision struct {
	Strategy PlanStrategy `json:"strategy"`
	Reason   string       `json:"reason"`
}

// planQuery chooses between the pre-aggregate fast path and a raw scan.
// Pre-aggregate applies only to the narrowest query shape: a single row
// axis over one dimension with no filters, drill or rollup.
func planQuery(q *NormalizedQuery) PlanDecision {
	switch {
	case len(q.ColumnAxes) > 0:
		return PlanDecision{PlanRawScan, "column axes require a fact scan"}
	case len(q.RowAxes) != 1:
		return PlanDecision{PlanRawScan, "pre-aggregates cover exactly one row axis"}
	case len(q.Filters) > 0:
		return PlanDecision{PlanRawScan, "filters require a fact scan"}
	case q.Drill != nil:
		return PlanDecision{PlanRawScan, "drill requires a fact scan"}
	case q.Rollup != nil:
		return PlanDecision{PlanRawScan, "rollup requires a fact scan"}
	default:
		axis := q.RowAxes[0]
		return PlanDecision{PlanPreAggregate, "single-axis query served from " + preAggKey(axis.Dimension, axis.Level) + " pre-aggregates"}
	}
}
