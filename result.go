package hypercube

import "strings"

// AllKey is the stable key of a pivot header with no coordinates.
const AllKey = "__all__"

// Coordinate pins one dimension level to a value.
type Coordinate struct {
	Dimension string `json:"dimension"`
	Level     string `json:"level"`
	Value     Scalar `json:"value"`
}

// PivotHeader identifies one row or column of the pivot. Its key is a pure
// function of the coordinate list and is stable across builds, so clients
// may dedupe on it.
type PivotHeader struct {
	Key         string       `json:"key"`
	Label       string       `json:"label"`
	Coordinates []Coordinate `json:"coordinates"`
}

// headerKey canonically serializes coordinates as "dim.level:value|...".
// An empty coordinate list yields AllKey.
func headerKey(coords []Coordinate) string {
	if len(coords) == 0 {
		return AllKey
	}
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = c.Dimension + "." + c.Level + ":" + c.Value.String()
	}
	return strings.Join(parts, "|")
}

// headerLabel renders a display label: coordinate values joined with " / ",
// or "All" for the empty list.
func headerLabel(coords []Coordinate) string {
	if len(coords) == 0 {
		return AllValue
	}
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = c.Value.String()
	}
	return strings.Join(parts, " / ")
}

// newPivotHeader builds a header from its coordinates.
func newPivotHeader(coords []Coordinate) PivotHeader {
	return PivotHeader{
		Key:         headerKey(coords),
		Label:       headerLabel(coords),
		Coordinates: coords,
	}
}

// MeasureSeries is the dense value matrix for one measure:
// Values[row][column] is defined for every header pair, with 0 in
// unpopulated cells.
type MeasureSeries struct {
	Label  string      `json:"label,omitempty"`
	Format string      `json:"format,omitempty"`
	Values [][]float64 `json:"values"`
}

// PivotData is the pivoted result block.
type PivotData struct {
	Rows     []PivotHeader             `json:"rows"`
	Columns  []PivotHeader             `json:"columns"`
	Measures map[string]*MeasureSeries `json:"measures"`
}

// FlatRow is one populated cell flattened into a single record:
// "dimension.level" coordinate entries plus one entry per measure.
type FlatRow map[string]any

// QueryData is the data part of a query response.
type QueryData struct {
	Pivot PivotData `json:"pivot"`
	Flat  []FlatRow `json:"flat,omitempty"`
}

// Breadcrumb is one step of a drill path paired with its bound level.
type Breadcrumb struct {
	Dimension string `json:"dimension"`
	Level     string `json:"level"`
	Value     Scalar `json:"value"`
}

// CacheStats is a point-in-time snapshot of the result cache counters.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// CacheInfo describes how the cache treated this query.
type CacheInfo struct {
	Hit            bool       `json:"hit"`
	Key            string     `json:"key"`
	TTLRemainingMs *int64     `json:"ttlRemainingMs"`
	Stats          CacheStats `json:"stats"`
}

// MeasureInfo describes one measure available on the queried cube.
type MeasureInfo struct {
	Name        string  `json:"name"`
	Label       string  `json:"label,omitempty"`
	Format      string  `json:"format,omitempty"`
	Aggregation AggKind `json:"aggregation"`
}

// ResponseMetadata decorates executor output with cache, planner and
// visualization context.
type ResponseMetadata struct {
	Cube              string        `json:"cube"`
	Measures          []string      `json:"measures"`
	AvailableMeasures []MeasureInfo `json:"availableMeasures"`
	Breadcrumbs       []Breadcrumb  `json:"breadcrumbs"`
	Cache             CacheInfo     `json:"cache"`
	Planner           PlanDecision  `json:"planner"`
	Suggestions       []string      `json:"suggestions"`
}

// QueryResponse is the two-part result document.
type QueryResponse struct {
	Data     *QueryData       `json:"data"`
	Metadata ResponseMetadata `json:"metadata"`
}
