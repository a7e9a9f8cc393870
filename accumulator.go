package hypercube

// Accumulator is the per-measure running state used for pre-aggregate
// materialization and raw-scan cells. Accumulators are local to a single
// registration or query execution and are never shared.
type Accumulator interface {
	// Add ingests one metric value. Inputs the accumulator cannot use
	// (null, or non-numeric for numeric kinds) are ignored.
	Add(v Scalar)
	// Finalize computes the aggregate. Every kind returns 0 when it has
	// seen no usable input, except DISTINCT which returns 0 naturally.
	Finalize() float64
}

// newAccumulator constructs the accumulator for an aggregation kind.
func newAccumulator(kind AggKind) Accumulator {
	switch kind {
	case AggCount:
		return &countAccumulator{}
	case AggAvg:
		return &avgAccumulator{}
	case AggMin:
		return &minAccumulator{}
	case AggMax:
		return &maxAccumulator{}
	case AggDistinct:
		return &distinctAccumulator{seen: make(map[string]struct{})}
	default:
		return &sumAccumulator{}
	}
}

type sumAccumulator struct {
	sum float64
}

func (a *sumAccumulator) Add(v Scalar) {
	if v.IsNumber() {
		a.sum += v.Num
	}
}

func (a *sumAccumulator) Finalize() float64 { return a.sum }

type countAccumulator struct {
	count float64
}

// Add counts any non-null input, strings included.
func (a *countAccumulator) Add(v Scalar) {
	if !v.IsNull() {
		a.count++
	}
}

func (a *countAccumulator) Finalize() float64 { return a.count }

type avgAccumulator struct {
	sum   float64
	count float64
}

func (a *avgAccumulator) Add(v Scalar) {
	if v.IsNumber() {
		a.sum += v.Num
		a.count++
	}
}

func (a *avgAccumulator) Finalize() float64 {
	if a.count == 0 {
		return 0
	}
	return a.sum / a.count
}

type minAccumulator struct {
	min float64
	set bool
}

func (a *minAccumulator) Add(v Scalar) {
	if !v.IsNumber() {
		return
	}
	if !a.set || v.Num < a.min {
		a.min = v.Num
		a.set = true
	}
}

func (a *minAccumulator) Finalize() float64 {
	if !a.set {
		return 0
	}
	return a.min
}

type maxAccumulator struct {
	max float64
	set bool
}

func (a *maxAccumulator) Add(v Scalar) {
	if !v.IsNumber() {
		return
	}
	if !a.set || v.Num > a.max {
		a.max = v.Num
		a.set = true
	}
}

func (a *maxAccumulator) Finalize() float64 {
	if !a.set {
		return 0
	}
	return a.max
}

type distinctAccumulator struct {
	seen map[string]struct{}
}

// Add tracks the stringified form of non-null inputs, so Num(5) and Str("5")
// collapse to one distinct value.
func (a *distinctAccumulator) Add(v Scalar) {
	if v.IsNull() {
		return
	}
	a.seen[v.String()] = struct{}{}
}

func (a *distinctAccumulator) Finalize() float64 { return float64(len(a.seen)) }
