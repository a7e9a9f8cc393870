package hypercube

import (
	"fmt"
	"strings"
)

// AggKind enumerates measure aggregation kinds.
type AggKind int

const (
	// AggSum accumulates numeric inputs.
	AggSum AggKind = iota
	// AggCount counts non-null inputs.
	AggCount
	// AggAvg averages numeric inputs.
	AggAvg
	// AggMin tracks the smallest numeric input.
	AggMin
	// AggMax tracks the largest numeric input.
	AggMax
	// AggDistinct counts distinct stringified non-null inputs.
	AggDistinct
)

// String returns the wire name of the aggregation kind.
func (k AggKind) String() string {
	switch k {
	case AggSum:
		return "sum"
	case AggCount:
		return "count"
	case AggAvg:
		return "avg"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggDistinct:
		return "distinct"
	default:
		return "unknown"
	}
}

// ParseAggKind parses an aggregation kind name. Matching is case-insensitive;
// "average" and "mean" are accepted aliases for avg.
func ParseAggKind(name string) (AggKind, error) {
	switch strings.ToLower(name) {
	case "sum":
		return AggSum, nil
	case "count":
		return AggCount, nil
	case "avg", "average", "mean":
		return AggAvg, nil
	case "min":
		return AggMin, nil
	case "max":
		return AggMax, nil
	case "distinct", "count_distinct":
		return AggDistinct, nil
	default:
		return AggSum, fmt.Errorf("unknown aggregation kind %q", name)
	}
}

// MarshalJSON encodes the kind as its wire name.
func (k AggKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// UnmarshalJSON decodes a wire name into an AggKind.
func (k *AggKind) UnmarshalJSON(data []byte) error {
	name := strings.Trim(string(data), `"`)
	parsed, err := ParseAggKind(name)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Dimension is a categorical attribute with a strictly ordered hierarchy of
// levels from coarse to fine.
type Dimension struct {
	Name      string   `json:"name" yaml:"name"`
	Label     string   `json:"label,omitempty" yaml:"label,omitempty"`
	Hierarchy []string `json:"hierarchy" yaml:"hierarchy"`
}

// CoarsestLevel returns the first level of the hierarchy.
func (d Dimension) CoarsestLevel() string { return d.Hierarchy[0] }

// FinestLevel returns the last level of the hierarchy.
func (d Dimension) FinestLevel() string { return d.Hierarchy[len(d.Hierarchy)-1] }

// LevelIndex returns the position of a level in the hierarchy, or -1.
func (d Dimension) LevelIndex(level string) int {
	for i, l := range d.Hierarchy {
		if l == level {
			return i
		}
	}
	return -1
}

// Measure is a numerically aggregatable quantity.
type Measure struct {
	Name string `json:"name" yaml:"name"`
	// ValueField is the key into fact metrics this measure aggregates.
	// Defaults to Name when empty.
	ValueField  string  `json:"valueField,omitempty" yaml:"valueField,omitempty"`
	Aggregation AggKind `json:"aggregation" yaml:"aggregation"`
	Label       string  `json:"label,omitempty" yaml:"label,omitempty"`
	Format      string  `json:"format,omitempty" yaml:"format,omitempty"`
}

// field returns the metric key this measure reads.
func (m Measure) field() string {
	if m.ValueField != "" {
		return m.ValueField
	}
	return m.Name
}

// FactRow is a single observation: per-dimension level coordinates plus
// metric values. Any subset of levels may be populated; a missing level
// resolves to the "All" sentinel during execution.
type FactRow struct {
	// Dimensions maps dimension name -> level name -> coordinate value.
	Dimensions map[string]map[string]Scalar `json:"dimensions"`
	// Metrics maps value-field name -> metric value (may be null).
	Metrics map[string]Scalar `json:"metrics"`
}

// valueAt returns the fact's coordinate at (dimension, level) and whether it
// is present and non-null.
func (f FactRow) valueAt(dimension, level string) (Scalar, bool) {
	levels, ok := f.Dimensions[dimension]
	if !ok {
		return Scalar{}, false
	}
	v, ok := levels[level]
	if !ok || v.IsNull() {
		return Scalar{}, false
	}
	return v, true
}

// CubeDefinition describes a cube: dimensions, measures and fact rows.
// Definitions are validated and become immutable at registration.
type CubeDefinition struct {
	Name       string      `json:"name" yaml:"name"`
	Label      string      `json:"label,omitempty" yaml:"label,omitempty"`
	Dimensions []Dimension `json:"dimensions" yaml:"dimensions"`
	Measures   []Measure   `json:"measures" yaml:"measures"`
	Facts      []FactRow   `json:"facts"`
}

// validate checks the structural invariants of a definition.
func (def *CubeDefinition) validate() error {
	if def.Name == "" {
		return newBadRequestError("cube name is required")
	}
	if len(def.Dimensions) == 0 {
		return newBadRequestError("cube %q has no dimensions", def.Name)
	}
	seenDims := make(map[string]bool, len(def.Dimensions))
	for _, dim := range def.Dimensions {
		if dim.Name == "" {
			return newBadRequestError("cube %q has a dimension with no name", def.Name)
		}
		if seenDims[dim.Name] {
			return newBadRequestError("cube %q has duplicate dimension %q", def.Name, dim.Name)
		}
		seenDims[dim.Name] = true
		if len(dim.Hierarchy) == 0 {
			return newBadRequestError("dimension %q has an empty hierarchy", dim.Name)
		}
		seenLevels := make(map[string]bool, len(dim.Hierarchy))
		for _, level := range dim.Hierarchy {
			if seenLevels[level] {
				return newBadRequestError("dimension %q has duplicate level %q", dim.Name, level)
			}
			seenLevels[level] = true
		}
	}
	seenMeasures := make(map[string]bool, len(def.Measures))
	for _, m := range def.Measures {
		if m.Name == "" {
			return newBadRequestError("cube %q has a measure with no name", def.Name)
		}
		if seenMeasures[m.Name] {
			return newBadRequestError("cube %q has duplicate measure %q", def.Name, m.Name)
		}
		seenMeasures[m.Name] = true
	}
	// A measure whose value field never appears in any fact is a wiring
	// mistake in the definition, not sparse data.
	if len(def.Facts) > 0 {
		for _, m := range def.Measures {
			found := false
			for _, fact := range def.Facts {
				if _, ok := fact.Metrics[m.field()]; ok {
					found = true
					break
				}
			}
			if !found {
				return newBadRequestError("measure %q references unknown value field %q", m.Name, m.field())
			}
		}
	}
	return nil
}

// CubeInstance is an immutable registered cube: the definition plus lookup
// indexes and the materialized pre-aggregate store. Instances are freely
// shareable across concurrent queries.
type CubeInstance struct {
	def      *CubeDefinition
	dims     map[string]*Dimension
	measures map[string]*Measure
	preAggs  preAggStore
}

// Definition returns the registered definition. Callers must not mutate it.
func (c *CubeInstance) Definition() *CubeDefinition { return c.def }

// Name returns the cube name.
func (c *CubeInstance) Name() string { return c.def.Name }

// dimension resolves a dimension by name.
func (c *CubeInstance) dimension(name string) (*Dimension, bool) {
	d, ok := c.dims[name]
	return d, ok
}

// measure resolves a measure by name.
func (c *CubeInstance) measure(name string) (*Measure, bool) {
	m, ok := c.measures[name]
	return m, ok
}

// MeasureNames returns measure names in definition order.
func (c *CubeInstance) MeasureNames() []string {
	names := make([]string, len(c.def.Measures))
	for i, m := range c.def.Measures {
		names[i] = m.Name
	}
	return names
}
