package hypercube

// FilterOp enumerates filter operators.
type FilterOp string

const (
	OpEq      FilterOp = "eq"
	OpNeq     FilterOp = "neq"
	OpIn      FilterOp = "in"
	OpNin     FilterOp = "nin"
	OpGt      FilterOp = "gt"
	OpGte     FilterOp = "gte"
	OpLt      FilterOp = "lt"
	OpLte     FilterOp = "lte"
	OpBetween FilterOp = "between"
)

// numeric reports whether the operator requires numeric operands.
func (op FilterOp) numeric() bool {
	switch op {
	case OpGt, OpGte, OpLt, OpLte, OpBetween:
		return true
	}
	return false
}

// valid reports whether the operator is one of the supported set.
func (op FilterOp) valid() bool {
	switch op {
	case OpEq, OpNeq, OpIn, OpNin, OpGt, OpGte, OpLt, OpLte, OpBetween:
		return true
	}
	return false
}

// AxisSpec selects a pivoting direction: a dimension and optionally a level.
// An empty level defaults to the finest level of the hierarchy. Alias is
// accepted for client convenience and not reflected in output headers.
type AxisSpec struct {
	Dimension string `json:"dimension"`
	Level     string `json:"level,omitempty"`
	Alias     string `json:"alias,omitempty"`
	Sort      string `json:"sort,omitempty"`
}

// PivotSpec nests row/column axes; when present it takes precedence over the
// top-level rows/columns fields.
type PivotSpec struct {
	Rows    []AxisSpec `json:"rows,omitempty"`
	Columns []AxisSpec `json:"columns,omitempty"`
}

// FilterSpec is a predicate over a dimension level. Slices, dices and
// filters all share this shape; they differ only in surface name and are
// merged into one ordered list during normalization. Value holds a scalar
// for unary operators, a list for in/nin, and a 2-element ordered pair for
// between.
type FilterSpec struct {
	Dimension string   `json:"dimension"`
	Level     string   `json:"level,omitempty"`
	Operator  FilterOp `json:"operator"`
	Value     any      `json:"value"`
}

// DrillSpec requests refinement from one level to a finer one, optionally
// pinned to a path of ancestor values.
type DrillSpec struct {
	Dimension string   `json:"dimension"`
	FromLevel string   `json:"fromLevel"`
	ToLevel   string   `json:"toLevel"`
	Path      []Scalar `json:"path,omitempty"`
}

// RollupSpec requests rendering at a coarser level.
type RollupSpec struct {
	Dimension string `json:"dimension"`
	Level     string `json:"level"`
}

// QueryPayload is the structured query document. Cube and a non-empty
// Measures list are required; everything else is optional. MDX carries the
// textual helper string; the structured payload overrides it field by field.
type QueryPayload struct {
	Cube             string       `json:"cube"`
	Measures         []string     `json:"measures"`
	Rows             []AxisSpec   `json:"rows,omitempty"`
	Columns          []AxisSpec   `json:"columns,omitempty"`
	Pivot            *PivotSpec   `json:"pivot,omitempty"`
	Slices           []FilterSpec `json:"slices,omitempty"`
	Dices            []FilterSpec `json:"dices,omitempty"`
	Filters          []FilterSpec `json:"filters,omitempty"`
	Drill            *DrillSpec   `json:"drill,omitempty"`
	Rollup           *RollupSpec  `json:"rollup,omitempty"`
	MDX              string       `json:"mdx,omitempty"`
	IncludeFlattened *bool        `json:"includeFlattened,omitempty"`
}

// NormalizedAxis is an axis with its level resolved against the hierarchy.
type NormalizedAxis struct {
	Dimension string `json:"dimension"`
	Level     string `json:"level"`
	Sort      string `json:"sort,omitempty"`
}

// NormalizedFilter is a filter with typed operands and a resolved level.
type NormalizedFilter struct {
	Dimension string   `json:"dimension"`
	Level     string   `json:"level"`
	Operator  FilterOp `json:"operator"`
	Value     Scalar   `json:"value,omitempty"`
	Values    []Scalar `json:"values,omitempty"`
}

// NormalizedDrill is a drill with resolved hierarchy indexes.
type NormalizedDrill struct {
	Dimension string   `json:"dimension"`
	FromLevel string   `json:"fromLevel"`
	ToLevel   string   `json:"toLevel"`
	FromIndex int      `json:"-"`
	ToIndex   int      `json:"-"`
	Path      []Scalar `json:"path,omitempty"`
}

// NormalizedQuery is the fully resolved query the planner and executor
// consume. Its canonical serialization participates in the cache fingerprint.
type NormalizedQuery struct {
	Cube             string             `json:"cube"`
	Measures         []string           `json:"measures"`
	RowAxes          []NormalizedAxis   `json:"rows"`
	ColumnAxes       []NormalizedAxis   `json:"columns"`
	Filters          []NormalizedFilter `json:"filters"`
	Drill            *NormalizedDrill   `json:"drill,omitempty"`
	Rollup           *RollupSpec        `json:"rollup,omitempty"`
	IncludeFlattened bool               `json:"includeFlattened"`
}

// canonical returns the plain-value document used for fingerprinting. Object
// keys are sorted by the canonical encoder; array order is preserved.
func (q *NormalizedQuery) canonical() map[string]any {
	axes := func(list []NormalizedAxis) []any {
		out := make([]any, len(list))
		for i, a := range list {
			out[i] = map[string]any{"dimension": a.Dimension, "level": a.Level, "sort": a.Sort}
		}
		return out
	}
	filters := make([]any, len(q.Filters))
	for i, f := range q.Filters {
		vals := make([]any, len(f.Values))
		for j, v := range f.Values {
			vals[j] = scalarToAny(v)
		}
		filters[i] = map[string]any{
			"dimension": f.Dimension,
			"level":     f.Level,
			"operator":  string(f.Operator),
			"value":     scalarToAny(f.Value),
			"values":    vals,
		}
	}
	doc := map[string]any{
		"cube":             q.Cube,
		"measures":         toAnySlice(q.Measures),
		"rows":             axes(q.RowAxes),
		"columns":          axes(q.ColumnAxes),
		"filters":          filters,
		"includeFlattened": q.IncludeFlattened,
	}
	if q.Drill != nil {
		path := make([]any, len(q.Drill.Path))
		for i, v := range q.Drill.Path {
			path[i] = scalarToAny(v)
		}
		doc["drill"] = map[string]any{
			"dimension": q.Drill.Dimension,
			"fromLevel": q.Drill.FromLevel,
			"toLevel":   q.Drill.ToLevel,
			"path":      path,
		}
	}
	if q.Rollup != nil {
		doc["rollup"] = map[string]any{"dimension": q.Rollup.Dimension, "level": q.Rollup.Level}
	}
	return doc
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
