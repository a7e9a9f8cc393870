package hypercube

import (
	"time"
)

// Engine is the main OLAP engine handle: it owns the cube registry, the
// result cache and the invalidation hub. There are no package-level
// singletons; every piece of mutable state lives on the instance. All
// methods are safe for concurrent use.
type Engine struct {
	config   Config
	registry *CubeRegistry
	cache    *ResultCache
	events   *invalidationHub
}

// QueryExecutor runs structured queries. The HTTP handlers depend on this
// interface so they can be tested independently of the engine.
type QueryExecutor interface {
	Execute(q *QueryPayload) (*QueryResponse, error)
}

// CubeManager registers and lists cubes.
type CubeManager interface {
	RegisterCube(def *CubeDefinition) error
	ListCubes() []string
	InvalidateCube(name, reason string) (int, error)
}

// Ensure Engine implements the interfaces.
var (
	_ QueryExecutor   = (*Engine)(nil)
	_ CubeManager     = (*Engine)(nil)
	_ CubeInvalidator = (*ResultCache)(nil)
)

// NewEngine creates an engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		config:   cfg,
		registry: NewCubeRegistry(),
		cache:    newResultCache(cfg.Cache),
		events:   newInvalidationHub(),
	}
}

// RegisterCube validates a definition, materializes its pre-aggregates and
// makes the cube queryable. Registering an existing name is an error; cubes
// are immutable once registered.
func (e *Engine) RegisterCube(def *CubeDefinition) error {
	_, err := e.registry.Register(def)
	return err
}

// ListCubes returns registered cube names.
func (e *Engine) ListCubes() []string {
	return e.registry.List()
}

// GetCube returns a registered cube instance.
func (e *Engine) GetCube(name string) (*CubeInstance, error) {
	inst, ok := e.registry.Get(name)
	if !ok {
		return nil, newNotFoundError("cube %q not found", name)
	}
	return inst, nil
}

// InvalidateCube evicts every cached result for a cube and publishes an
// invalidation event. It returns the number of evicted entries.
func (e *Engine) InvalidateCube(name, reason string) (int, error) {
	if _, ok := e.registry.Get(name); !ok {
		return 0, newNotFoundError("cube %q not found", name)
	}
	evicted := e.cache.InvalidateCube(name)
	e.events.publish(InvalidationEvent{
		Cube:    name,
		Reason:  reason,
		Evicted: evicted,
		At:      time.Now(),
	})
	return evicted, nil
}

// OnInvalidation subscribes a listener to invalidation events and returns
// an unsubscribe function.
func (e *Engine) OnInvalidation(l InvalidationListener) func() {
	return e.events.subscribe(l)
}

// CacheStats returns a snapshot of the result cache counters.
func (e *Engine) CacheStats() CacheStats {
	return e.cache.Stats()
}

// Execute normalizes, plans and runs a query, consulting the result cache.
// A failed query surfaces a typed error and leaves the cache, the registry
// and the counters unchanged. Execute is synchronous and spawns no
// background work.
func (e *Engine) Execute(payload *QueryPayload) (*QueryResponse, error) {
	if payload == nil || payload.Cube == "" {
		return nil, newBadRequestError("query requires a cube name")
	}

	merged := payload
	if payload.MDX != "" {
		parser := &HelperParser{}
		partial, err := parser.Parse(payload.MDX)
		if err != nil {
			return nil, err
		}
		merged = mergeHelper(payload, partial)
	}

	cube, ok := e.registry.Get(merged.Cube)
	if !ok {
		return nil, newNotFoundError("cube %q not found", merged.Cube)
	}

	norm, err := normalizeQuery(cube, merged)
	if err != nil {
		return nil, err
	}
	plan := planQuery(norm)

	key, err := queryFingerprint(norm, plan)
	if err != nil {
		return nil, err
	}

	if cached, hit := e.cache.Get(key); hit {
		info := CacheInfo{Hit: true, Key: key, Stats: e.cache.Stats()}
		if ttl, ok := e.cache.RemainingTTL(key); ok {
			ms := ttl.Milliseconds()
			info.TTLRemainingMs = &ms
		}
		return assembleResponse(cube, norm, plan, cached, info), nil
	}

	data, err := executeQuery(cube, norm, plan)
	if err != nil {
		e.cache.RevertMiss()
		return nil, err
	}
	if err := e.cache.Set(key, data); err != nil {
		e.cache.RevertMiss()
		return nil, err
	}

	info := CacheInfo{Hit: false, Key: key, Stats: e.cache.Stats()}
	if ttl, ok := e.cache.RemainingTTL(key); ok {
		ms := ttl.Milliseconds()
		info.TTLRemainingMs = &ms
	}
	return assembleResponse(cube, norm, plan, data, info), nil
}
