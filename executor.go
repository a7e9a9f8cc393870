package hypercube

// executeQuery runs a planned query against an immutable cube instance and
// assembles the pivot document. All state is local to the call.
func executeQuery(cube *CubeInstance, q *NormalizedQuery, plan PlanDecision) (*QueryData, error) {
	if plan.Strategy == PlanPreAggregate {
		return executePreAggregate(cube, q), nil
	}
	return executeRawScan(cube, q), nil
}

// executePreAggregate serves a single-axis query from the registration-time
// pre-aggregate store. Rows are ordered by the canonical value comparator
// and a single synthetic "All" column carries the values.
func executePreAggregate(cube *CubeInstance, q *NormalizedQuery) *QueryData {
	axis := q.RowAxes[0]

	var entries []*preAggEntry
	if pl, ok := cube.preAggs[preAggKey(axis.Dimension, axis.Level)]; ok {
		entries = pl.sorted()
	}

	rows := make([]PivotHeader, len(entries))
	for i, e := range entries {
		rows[i] = newPivotHeader([]Coordinate{{Dimension: axis.Dimension, Level: axis.Level, Value: e.Value}})
	}
	columns := []PivotHeader{newPivotHeader(nil)}

	measures := make(map[string]*MeasureSeries, len(q.Measures))
	for _, name := range q.Measures {
		series := newMeasureSeries(cube, name, len(rows), 1)
		for i, e := range entries {
			series.Values[i][0] = e.Measures[name]
		}
		measures[name] = series
	}

	data := &QueryData{Pivot: PivotData{Rows: rows, Columns: columns, Measures: measures}}
	if q.IncludeFlattened {
		for i, row := range rows {
			flat := make(FlatRow, len(row.Coordinates)+len(q.Measures))
			for _, c := range row.Coordinates {
				flat[c.Dimension+"."+c.Level] = scalarToAny(c.Value)
			}
			for _, name := range q.Measures {
				flat[name] = measures[name].Values[i][0]
			}
			data.Flat = append(data.Flat, flat)
		}
	}
	return data
}

// headerIndex keeps pivot headers in order of first insertion.
type headerIndex struct {
	index   map[string]int
	headers []PivotHeader
}

func newHeaderIndex() *headerIndex {
	return &headerIndex{index: make(map[string]int)}
}

// insert returns the position of the header for the given coordinates,
// creating it on first sight.
func (h *headerIndex) insert(coords []Coordinate) int {
	key := headerKey(coords)
	if pos, ok := h.index[key]; ok {
		return pos
	}
	pos := len(h.headers)
	h.index[key] = pos
	h.headers = append(h.headers, newPivotHeader(coords))
	return pos
}

type cellKey struct {
	row, col int
}

// executeRawScan streams every fact row through filter and drill evaluation
// and accumulates per-cell measure state. Row and column order is the order
// in which new coordinate combinations first appear in the scan.
func executeRawScan(cube *CubeInstance, q *NormalizedQuery) *QueryData {
	rowIdx := newHeaderIndex()
	colIdx := newHeaderIndex()

	// With no axes in a direction every cell lands on the synthetic header.
	if len(q.RowAxes) == 0 {
		rowIdx.insert(nil)
	}
	if len(q.ColumnAxes) == 0 {
		colIdx.insert(nil)
	}

	cells := make(map[cellKey]map[string]Accumulator)

	for i := range cube.def.Facts {
		fact := &cube.def.Facts[i]
		if !factPassesFilters(fact, q.Filters) {
			continue
		}
		if !factMatchesDrillPath(cube, fact, q.Drill) {
			continue
		}

		r := rowIdx.insert(axisCoordinates(fact, q.RowAxes))
		c := colIdx.insert(axisCoordinates(fact, q.ColumnAxes))

		key := cellKey{row: r, col: c}
		accs, ok := cells[key]
		if !ok {
			accs = make(map[string]Accumulator, len(q.Measures))
			for _, name := range q.Measures {
				m, _ := cube.measure(name)
				accs[name] = newAccumulator(m.Aggregation)
			}
			cells[key] = accs
		}
		for _, name := range q.Measures {
			m, _ := cube.measure(name)
			accs[name].Add(fact.Metrics[m.field()])
		}
	}

	rows, columns := rowIdx.headers, colIdx.headers
	measures := make(map[string]*MeasureSeries, len(q.Measures))
	for _, name := range q.Measures {
		series := newMeasureSeries(cube, name, len(rows), len(columns))
		for key, accs := range cells {
			series.Values[key.row][key.col] = accs[name].Finalize()
		}
		measures[name] = series
	}

	data := &QueryData{Pivot: PivotData{Rows: rows, Columns: columns, Measures: measures}}
	if q.IncludeFlattened {
		for r, row := range rows {
			for c, col := range columns {
				if _, ok := cells[cellKey{row: r, col: c}]; !ok {
					continue
				}
				flat := make(FlatRow, len(row.Coordinates)+len(col.Coordinates)+len(q.Measures))
				for _, coord := range row.Coordinates {
					flat[coord.Dimension+"."+coord.Level] = scalarToAny(coord.Value)
				}
				for _, coord := range col.Coordinates {
					flat[coord.Dimension+"."+coord.Level] = scalarToAny(coord.Value)
				}
				for _, name := range q.Measures {
					flat[name] = measures[name].Values[r][c]
				}
				data.Flat = append(data.Flat, flat)
			}
		}
	}
	return data
}

// newMeasureSeries allocates a zero-filled dense matrix for one measure.
func newMeasureSeries(cube *CubeInstance, name string, rows, cols int) *MeasureSeries {
	series := &MeasureSeries{Values: make([][]float64, rows)}
	if m, ok := cube.measure(name); ok {
		series.Label = m.Label
		series.Format = m.Format
	}
	for i := range series.Values {
		series.Values[i] = make([]float64, cols)
	}
	return series
}

// axisCoordinates builds the coordinate tuple for one direction. A fact
// without a value at an axis level maps to the "All" sentinel.
func axisCoordinates(fact *FactRow, axes []NormalizedAxis) []Coordinate {
	if len(axes) == 0 {
		return nil
	}
	coords := make([]Coordinate, len(axes))
	for i, axis := range axes {
		v, ok := fact.valueAt(axis.Dimension, axis.Level)
		if !ok {
			v = Str(AllValue)
		}
		coords[i] = Coordinate{Dimension: axis.Dimension, Level: axis.Level, Value: v}
	}
	return coords
}

// factPassesFilters applies every predicate; all must pass. A missing fact
// value is treated as null: equality fails, inequality passes, numeric
// operators fail.
func factPassesFilters(fact *FactRow, filters []NormalizedFilter) bool {
	for _, f := range filters {
		v, _ := fact.valueAt(f.Dimension, f.Level)
		if !evalFilter(v, f) {
			return false
		}
	}
	return true
}

func evalFilter(v Scalar, f NormalizedFilter) bool {
	switch f.Operator {
	case OpEq:
		return v.Equal(f.Value)
	case OpNeq:
		return !v.Equal(f.Value)
	case OpIn:
		for _, candidate := range f.Values {
			if v.Equal(candidate) {
				return true
			}
		}
		return false
	case OpNin:
		for _, candidate := range f.Values {
			if v.Equal(candidate) {
				return false
			}
		}
		return true
	case OpGt:
		return v.IsNumber() && f.Value.IsNumber() && v.Num > f.Value.Num
	case OpGte:
		return v.IsNumber() && f.Value.IsNumber() && v.Num >= f.Value.Num
	case OpLt:
		return v.IsNumber() && f.Value.IsNumber() && v.Num < f.Value.Num
	case OpLte:
		return v.IsNumber() && f.Value.IsNumber() && v.Num <= f.Value.Num
	case OpBetween:
		// Bounds are validated numeric at normalization; inclusive on both ends.
		return v.IsNumber() && v.Num >= f.Values[0].Num && v.Num <= f.Values[1].Num
	default:
		return false
	}
}

// factMatchesDrillPath checks a non-empty drill path: path values bind
// consecutive hierarchy levels starting at the coarser end of the drilled
// range. Numeric pairs compare numerically, everything else by string form.
// A missing fact value at any bound level fails the row.
func factMatchesDrillPath(cube *CubeInstance, fact *FactRow, drill *NormalizedDrill) bool {
	if drill == nil || len(drill.Path) == 0 {
		return true
	}
	dim, ok := cube.dimension(drill.Dimension)
	if !ok {
		return false
	}
	start := drill.FromIndex
	if drill.ToIndex < start {
		start = drill.ToIndex
	}
	span := drill.FromIndex - drill.ToIndex
	if span < 0 {
		span = -span
	}
	bound := span + 1
	if len(drill.Path) < bound {
		bound = len(drill.Path)
	}
	for i := 0; i < bound; i++ {
		level := dim.Hierarchy[start+i]
		v, ok := fact.valueAt(drill.Dimension, level)
		if !ok {
			return false
		}
		want := drill.Path[i]
		if v.IsNumber() && want.IsNumber() {
			if v.Num != want.Num {
				return false
			}
		} else if v.String() != want.String() {
			return false
		}
	}
	return true
}
