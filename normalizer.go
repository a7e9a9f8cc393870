package hypercube

// mergeHelper overlays a parsed textual-helper payload under a structured
// payload. The structured payload wins on every field it populates; the
// helper only contributes fields the caller left empty. The merge is a
// single-site field-by-field override, never a deep merge.
func mergeHelper(structured, helper *QueryPayload) *QueryPayload {
	if helper == nil {
		return structured
	}
	merged := *structured
	if len(merged.Measures) == 0 {
		merged.Measures = helper.Measures
	}
	if len(merged.Rows) == 0 {
		merged.Rows = helper.Rows
	}
	if len(merged.Columns) == 0 {
		merged.Columns = helper.Columns
	}
	if len(merged.Slices) == 0 {
		merged.Slices = helper.Slices
	}
	if len(merged.Dices) == 0 {
		merged.Dices = helper.Dices
	}
	if len(merged.Filters) == 0 {
		merged.Filters = helper.Filters
	}
	if merged.Drill == nil {
		merged.Drill = helper.Drill
	}
	if merged.Rollup == nil {
		merged.Rollup = helper.Rollup
	}
	return &merged
}

// normalizeQuery resolves a merged payload against a cube: validates
// measures, picks and resolves axes, rewrites levels for drill and rollup,
// and collects filters into one ordered list.
func normalizeQuery(cube *CubeInstance, q *QueryPayload) (*NormalizedQuery, error) {
	if len(q.Measures) == 0 {
		return nil, newBadRequestError("query requires a non-empty measures list")
	}
	for _, name := range q.Measures {
		if _, ok := cube.measure(name); !ok {
			return nil, newBadRequestError("unknown measure %q in cube %q", name, cube.Name())
		}
	}

	drill, err := normalizeDrill(cube, q.Drill)
	if err != nil {
		return nil, err
	}
	if q.Rollup != nil {
		if err := checkLevelRef(cube, q.Rollup.Dimension, q.Rollup.Level, "rollup"); err != nil {
			return nil, err
		}
	}

	rowSpecs, colSpecs := pickAxes(cube, q)

	norm := &NormalizedQuery{
		Cube:             cube.Name(),
		Measures:         q.Measures,
		RowAxes:          make([]NormalizedAxis, 0, len(rowSpecs)),
		ColumnAxes:       make([]NormalizedAxis, 0, len(colSpecs)),
		Filters:          make([]NormalizedFilter, 0),
		Drill:            drill,
		Rollup:           q.Rollup,
		IncludeFlattened: q.IncludeFlattened == nil || *q.IncludeFlattened,
	}

	for _, spec := range rowSpecs {
		axis, err := resolveAxis(cube, spec, q.Rollup, drill)
		if err != nil {
			return nil, err
		}
		norm.RowAxes = append(norm.RowAxes, axis)
	}
	for _, spec := range colSpecs {
		axis, err := resolveAxis(cube, spec, q.Rollup, drill)
		if err != nil {
			return nil, err
		}
		norm.ColumnAxes = append(norm.ColumnAxes, axis)
	}

	// Slices, dices and filters are one predicate list; order is preserved.
	for _, group := range [][]FilterSpec{q.Slices, q.Dices, q.Filters} {
		for _, spec := range group {
			f, err := normalizeFilter(cube, spec)
			if err != nil {
				return nil, err
			}
			norm.Filters = append(norm.Filters, f)
		}
	}

	return norm, nil
}

// pickAxes applies the axis precedence: pivot.rows/columns over the
// top-level rows/columns. When both directions are empty a single default
// row axis is synthesized from the first dimension at its coarsest level.
func pickAxes(cube *CubeInstance, q *QueryPayload) (rows, cols []AxisSpec) {
	rows, cols = q.Rows, q.Columns
	if q.Pivot != nil {
		if len(q.Pivot.Rows) > 0 {
			rows = q.Pivot.Rows
		}
		if len(q.Pivot.Columns) > 0 {
			cols = q.Pivot.Columns
		}
	}
	if len(rows) == 0 && len(cols) == 0 {
		first := cube.def.Dimensions[0]
		rows = []AxisSpec{{Dimension: first.Name, Level: first.CoarsestLevel()}}
	}
	return rows, cols
}

// resolveAxis validates the dimension and level of an axis and applies the
// drill and rollup level rewrites. An axis without a level defaults to the
// finest level of the hierarchy.
func resolveAxis(cube *CubeInstance, spec AxisSpec, rollup *RollupSpec, drill *NormalizedDrill) (NormalizedAxis, error) {
	dim, ok := cube.dimension(spec.Dimension)
	if !ok {
		return NormalizedAxis{}, newBadRequestError("unknown dimension %q in cube %q", spec.Dimension, cube.Name())
	}
	level := spec.Level
	if level == "" {
		level = dim.FinestLevel()
	}
	levelIdx := dim.LevelIndex(level)
	if levelIdx < 0 {
		return NormalizedAxis{}, newBadRequestError("unknown level %q in dimension %q", level, dim.Name)
	}
	if rollup != nil && rollup.Dimension == dim.Name {
		if rollupIdx := dim.LevelIndex(rollup.Level); levelIdx > rollupIdx {
			level = rollup.Level
		}
	}
	if drill != nil && drill.Dimension == dim.Name {
		level = drill.ToLevel
	}
	return NormalizedAxis{Dimension: dim.Name, Level: level, Sort: spec.Sort}, nil
}

// normalizeDrill validates a drill's level references and path length.
func normalizeDrill(cube *CubeInstance, spec *DrillSpec) (*NormalizedDrill, error) {
	if spec == nil {
		return nil, nil
	}
	dim, ok := cube.dimension(spec.Dimension)
	if !ok {
		return nil, newBadRequestError("unknown dimension %q in drill", spec.Dimension)
	}
	fromIdx := dim.LevelIndex(spec.FromLevel)
	if fromIdx < 0 {
		return nil, newBadRequestError("unknown drill fromLevel %q in dimension %q", spec.FromLevel, dim.Name)
	}
	toIdx := dim.LevelIndex(spec.ToLevel)
	if toIdx < 0 {
		return nil, newBadRequestError("unknown drill toLevel %q in dimension %q", spec.ToLevel, dim.Name)
	}
	rangeLen := fromIdx - toIdx
	if rangeLen < 0 {
		rangeLen = -rangeLen
	}
	if len(spec.Path) > rangeLen+1 {
		return nil, newBadRequestError("drill path has %d values for a range of %d levels", len(spec.Path), rangeLen+1)
	}
	return &NormalizedDrill{
		Dimension: dim.Name,
		FromLevel: spec.FromLevel,
		ToLevel:   spec.ToLevel,
		FromIndex: fromIdx,
		ToIndex:   toIdx,
		Path:      spec.Path,
	}, nil
}

// normalizeFilter type-checks a filter's operands and resolves its level,
// defaulting to the finest.
func normalizeFilter(cube *CubeInstance, spec FilterSpec) (NormalizedFilter, error) {
	dim, ok := cube.dimension(spec.Dimension)
	if !ok {
		return NormalizedFilter{}, newBadRequestError("unknown dimension %q in filter", spec.Dimension)
	}
	level := spec.Level
	if level == "" {
		level = dim.FinestLevel()
	}
	if dim.LevelIndex(level) < 0 {
		return NormalizedFilter{}, newBadRequestError("unknown level %q in dimension %q", level, dim.Name)
	}
	if !spec.Operator.valid() {
		return NormalizedFilter{}, newBadRequestError("unsupported filter operator %q", spec.Operator)
	}

	f := NormalizedFilter{Dimension: dim.Name, Level: level, Operator: spec.Operator}

	switch spec.Operator {
	case OpIn, OpNin:
		list, ok := spec.Value.([]any)
		if !ok || len(list) == 0 {
			return NormalizedFilter{}, newBadRequestError("%s filter requires a non-empty value list", spec.Operator)
		}
		for _, raw := range list {
			v, err := ScalarFromAny(raw)
			if err != nil {
				return NormalizedFilter{}, newBadRequestError("invalid %s filter value: %v", spec.Operator, err)
			}
			f.Values = append(f.Values, v)
		}
	case OpBetween:
		list, ok := spec.Value.([]any)
		if !ok || len(list) != 2 {
			return NormalizedFilter{}, newBadRequestError("between filter requires a 2-element value pair")
		}
		for _, raw := range list {
			v, err := ScalarFromAny(raw)
			if err != nil {
				return NormalizedFilter{}, newBadRequestError("invalid between filter value: %v", err)
			}
			if !v.IsNumber() {
				return NormalizedFilter{}, newBadRequestError("between filter requires numeric bounds")
			}
			f.Values = append(f.Values, v)
		}
	default:
		v, err := ScalarFromAny(spec.Value)
		if err != nil {
			return NormalizedFilter{}, newBadRequestError("invalid filter value: %v", err)
		}
		if spec.Operator.numeric() && !v.IsNumber() {
			return NormalizedFilter{}, newBadRequestError("%s filter requires a numeric value", spec.Operator)
		}
		f.Value = v
	}
	return f, nil
}

// checkLevelRef validates a (dimension, level) reference.
func checkLevelRef(cube *CubeInstance, dimension, level, context string) error {
	dim, ok := cube.dimension(dimension)
	if !ok {
		return newBadRequestError("unknown dimension %q in %s", dimension, context)
	}
	if dim.LevelIndex(level) < 0 {
		return newBadRequestError("unknown level %q in dimension %q", level, dim.Name)
	}
	return nil
}
