package hypercube

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CubeDocument is a YAML-friendly cube definition:
//
//	apiVersion: hypercube/v1
//	kind: Cube
//	metadata:
//	  name: sales
//	spec:
//	  dimensions:
//	    - name: time
//	      hierarchy: [year, quarter, month]
//	  measures:
//	    - name: revenue
//	      aggregation: sum
//	  facts:
//	    - dimensions:
//	        time: {year: 2023, quarter: Q1, month: Jan}
//	      metrics: {revenue: 1200}
type CubeDocument struct {
	APIVersion string       `json:"apiVersion" yaml:"apiVersion"`
	Kind       string       `json:"kind" yaml:"kind"`
	Metadata   CubeMetadata `json:"metadata" yaml:"metadata"`
	Spec       CubeSpec     `json:"spec" yaml:"spec"`
}

// CubeMetadata holds cube identification and labeling.
type CubeMetadata struct {
	Name   string            `json:"name" yaml:"name"`
	Label  string            `json:"label,omitempty" yaml:"label,omitempty"`
	Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// CubeSpec defines the cube structure and seed facts.
type CubeSpec struct {
	Dimensions []Dimension    `json:"dimensions" yaml:"dimensions"`
	Measures   []MeasureSpec  `json:"measures" yaml:"measures"`
	Facts      []FactDocument `json:"facts,omitempty" yaml:"facts,omitempty"`
}

// MeasureSpec is the document form of a measure; the aggregation kind is a
// name like "sum" or "distinct".
type MeasureSpec struct {
	Name        string `json:"name" yaml:"name"`
	ValueField  string `json:"valueField,omitempty" yaml:"valueField,omitempty"`
	Aggregation string `json:"aggregation" yaml:"aggregation"`
	Label       string `json:"label,omitempty" yaml:"label,omitempty"`
	Format      string `json:"format,omitempty" yaml:"format,omitempty"`
}

// FactDocument is the document form of a fact row.
type FactDocument struct {
	Dimensions map[string]map[string]any `json:"dimensions" yaml:"dimensions"`
	Metrics    map[string]any            `json:"metrics" yaml:"metrics"`
}

// ParseCubeDocument parses a YAML (or JSON, which YAML subsumes) cube
// document into a CubeDefinition ready for registration.
func ParseCubeDocument(data []byte) (*CubeDefinition, error) {
	var doc CubeDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, newBadRequestError("parse cube document: %v", err)
	}
	return doc.Definition()
}

// LoadCubeFile reads and parses a cube document from disk.
func LoadCubeFile(path string) (*CubeDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cube file: %w", err)
	}
	return ParseCubeDocument(data)
}

// Definition converts the document into a CubeDefinition.
func (doc *CubeDocument) Definition() (*CubeDefinition, error) {
	if doc.Kind != "" && doc.Kind != "Cube" {
		return nil, newBadRequestError("unsupported document kind %q", doc.Kind)
	}
	def := &CubeDefinition{
		Name:       doc.Metadata.Name,
		Label:      doc.Metadata.Label,
		Dimensions: doc.Spec.Dimensions,
	}
	for _, ms := range doc.Spec.Measures {
		kind, err := ParseAggKind(ms.Aggregation)
		if err != nil {
			return nil, newBadRequestError("measure %q: %v", ms.Name, err)
		}
		def.Measures = append(def.Measures, Measure{
			Name:        ms.Name,
			ValueField:  ms.ValueField,
			Aggregation: kind,
			Label:       ms.Label,
			Format:      ms.Format,
		})
	}
	for i, fd := range doc.Spec.Facts {
		fact, err := fd.factRow()
		if err != nil {
			return nil, newBadRequestError("fact %d: %v", i, err)
		}
		def.Facts = append(def.Facts, fact)
	}
	return def, nil
}

func (fd FactDocument) factRow() (FactRow, error) {
	fact := FactRow{
		Dimensions: make(map[string]map[string]Scalar, len(fd.Dimensions)),
		Metrics:    make(map[string]Scalar, len(fd.Metrics)),
	}
	for dim, levels := range fd.Dimensions {
		converted := make(map[string]Scalar, len(levels))
		for level, raw := range levels {
			v, err := ScalarFromAny(raw)
			if err != nil {
				return FactRow{}, fmt.Errorf("dimension %s.%s: %w", dim, level, err)
			}
			converted[level] = v
		}
		fact.Dimensions[dim] = converted
	}
	for field, raw := range fd.Metrics {
		v, err := ScalarFromAny(raw)
		if err != nil {
			return FactRow{}, fmt.Errorf("metric %s: %w", field, err)
		}
		fact.Metrics[field] = v
	}
	return fact, nil
}
