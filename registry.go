package hypercube

import (
	"sort"
	"sync"
)

// preAggEntry holds the finalized measure values for one distinct
// (dimension, level) coordinate value.
type preAggEntry struct {
	Value    Scalar
	Measures map[string]float64
}

// preAggLevel is the pre-aggregate table for one (dimension, level) pair.
type preAggLevel struct {
	entries map[string]*preAggEntry // keyed by Scalar.String()
}

// sorted returns the entries ordered by the canonical value comparator.
func (pl *preAggLevel) sorted() []*preAggEntry {
	out := make([]*preAggEntry, 0, len(pl.entries))
	for _, e := range pl.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Value.Compare(out[j].Value) < 0
	})
	return out
}

// preAggStore maps "dimension.level" to its pre-aggregate table.
type preAggStore map[string]*preAggLevel

func preAggKey(dimension, level string) string { return dimension + "." + level }

// CubeInvalidator evicts cached state for a cube. The engine's result cache
// implements it; Engine.InvalidateCube calls it and then publishes an
// invalidation event.
type CubeInvalidator interface {
	InvalidateCube(name string) int
}

// CubeRegistry owns registered cube definitions and their pre-aggregates.
// Instances are immutable after registration; reads are lock-free once the
// instance pointer is obtained. Register takes the registry mutex for
// writing; Get and List take it for reading. The registry has no
// invalidation method: cache invalidation goes through Engine.InvalidateCube
// and does not take the registry mutex.
type CubeRegistry struct {
	mu    sync.RWMutex
	cubes map[string]*CubeInstance
}

// NewCubeRegistry creates an empty registry.
func NewCubeRegistry() *CubeRegistry {
	return &CubeRegistry{cubes: make(map[string]*CubeInstance)}
}

// Register validates a definition, materializes its pre-aggregates and
// stores the immutable instance. Registering an existing name is an error.
func (r *CubeRegistry) Register(def *CubeDefinition) (*CubeInstance, error) {
	if def == nil {
		return nil, newBadRequestError("nil cube definition")
	}
	if err := def.validate(); err != nil {
		return nil, err
	}

	inst := &CubeInstance{
		def:      def,
		dims:     make(map[string]*Dimension, len(def.Dimensions)),
		measures: make(map[string]*Measure, len(def.Measures)),
	}
	for i := range def.Dimensions {
		inst.dims[def.Dimensions[i].Name] = &def.Dimensions[i]
	}
	for i := range def.Measures {
		inst.measures[def.Measures[i].Name] = &def.Measures[i]
	}
	inst.preAggs = materializePreAggregates(def)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.cubes[def.Name]; exists {
		return nil, &EngineError{
			Type:    EngineErrorTypeBadRequest,
			Status:  StatusBadRequest,
			Message: "cube " + def.Name + " already registered",
			Cause:   ErrCubeExists,
		}
	}
	r.cubes[def.Name] = inst
	return inst, nil
}

// Get returns a registered cube instance by name.
func (r *CubeRegistry) Get(name string) (*CubeInstance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.cubes[name]
	return inst, ok
}

// List returns registered cube names in lexical order.
func (r *CubeRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.cubes))
	for name := range r.cubes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// materializePreAggregates builds the per-(dimension, level, value) finalized
// measure tables from the fact rows. Accumulators are keyed by level value
// and finalized once all facts have been ingested.
func materializePreAggregates(def *CubeDefinition) preAggStore {
	type cell struct {
		value Scalar
		accs  map[string]Accumulator
	}
	working := make(map[string]map[string]*cell)

	for _, fact := range def.Facts {
		for _, dim := range def.Dimensions {
			for _, level := range dim.Hierarchy {
				v, ok := fact.valueAt(dim.Name, level)
				if !ok {
					continue
				}
				lk := preAggKey(dim.Name, level)
				levelCells, ok := working[lk]
				if !ok {
					levelCells = make(map[string]*cell)
					working[lk] = levelCells
				}
				c, ok := levelCells[v.String()]
				if !ok {
					c = &cell{value: v, accs: make(map[string]Accumulator, len(def.Measures))}
					for _, m := range def.Measures {
						c.accs[m.Name] = newAccumulator(m.Aggregation)
					}
					levelCells[v.String()] = c
				}
				for _, m := range def.Measures {
					c.accs[m.Name].Add(fact.Metrics[m.field()])
				}
			}
		}
	}

	store := make(preAggStore, len(working))
	for lk, levelCells := range working {
		pl := &preAggLevel{entries: make(map[string]*preAggEntry, len(levelCells))}
		for vk, c := range levelCells {
			entry := &preAggEntry{Value: c.value, Measures: make(map[string]float64, len(c.accs))}
			for name, acc := range c.accs {
				entry.Measures[name] = acc.Finalize()
			}
			pl.entries[vk] = entry
		}
		store[lk] = pl
	}
	return store
}
