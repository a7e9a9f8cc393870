package hypercube

// buildBreadcrumbs derives the drill trail: each path element paired with
// consecutive levels of the drilled range, starting at the coarser end.
func buildBreadcrumbs(cube *CubeInstance, drill *NormalizedDrill) []Breadcrumb {
	if drill == nil || len(drill.Path) == 0 {
		return nil
	}
	dim, ok := cube.dimension(drill.Dimension)
	if !ok {
		return nil
	}
	start := drill.FromIndex
	if drill.ToIndex < start {
		start = drill.ToIndex
	}
	crumbs := make([]Breadcrumb, 0, len(drill.Path))
	for i, v := range drill.Path {
		if start+i >= len(dim.Hierarchy) {
			break
		}
		crumbs = append(crumbs, Breadcrumb{
			Dimension: drill.Dimension,
			Level:     dim.Hierarchy[start+i],
			Value:     v,
		})
	}
	return crumbs
}

// suggestVisualizations maps axis cardinality and measure count to chart
// suggestions. The mapping is deterministic.
func suggestVisualizations(rowAxes, colAxes, measureCount int) []string {
	switch {
	case rowAxes >= 1 && colAxes >= 1:
		return []string{"heatmap", "stacked-bar"}
	case rowAxes == 1:
		return []string{"column", "line"}
	case rowAxes > 1:
		return []string{"matrix", "line"}
	case colAxes == 1:
		return []string{"column", "line"}
	case colAxes > 1:
		return []string{"matrix", "line"}
	case measureCount == 1:
		return []string{"big-number"}
	default:
		return []string{"multi-stat"}
	}
}

// availableMeasures lists every measure of the cube in definition order.
func availableMeasures(cube *CubeInstance) []MeasureInfo {
	infos := make([]MeasureInfo, len(cube.def.Measures))
	for i, m := range cube.def.Measures {
		infos[i] = MeasureInfo{
			Name:        m.Name,
			Label:       m.Label,
			Format:      m.Format,
			Aggregation: m.Aggregation,
		}
	}
	return infos
}

// assembleResponse decorates executor output with breadcrumbs, suggestions,
// cache status and the planner verdict.
func assembleResponse(cube *CubeInstance, q *NormalizedQuery, plan PlanDecision, data *QueryData, cache CacheInfo) *QueryResponse {
	return &QueryResponse{
		Data: data,
		Metadata: ResponseMetadata{
			Cube:              cube.Name(),
			Measures:          q.Measures,
			AvailableMeasures: availableMeasures(cube),
			Breadcrumbs:       buildBreadcrumbs(cube, q.Drill),
			Cache:             cache,
			Planner:           plan,
			Suggestions:       suggestVisualizations(len(q.RowAxes), len(q.ColumnAxes), len(q.Measures)),
		},
	}
}
