package hypercube

import (
	"github.com/hypercube-db/hypercube/internal/canonical"
)

// queryFingerprint canonically stringifies {cube, normalized query, plan}
// into the cache key. Object keys are sorted and array order preserved, so
// permuting key order in the incoming payload never changes the key. The
// fingerprint starts with the cube name, which is what cube-scoped
// invalidation matches on.
func queryFingerprint(q *NormalizedQuery, plan PlanDecision) (string, error) {
	doc := map[string]any{
		"cube":  q.Cube,
		"query": q.canonical(),
		"plan":  string(plan.Strategy),
	}
	body, err := canonical.String(doc)
	if err != nil {
		return "", newInternalError("fingerprint query", err)
	}
	return q.Cube + "|" + body, nil
}
