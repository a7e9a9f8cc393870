package hypercube

import (
	"io"
	"net/http"
	"sync"

	"github.com/golang/snappy"
	"github.com/prometheus/prometheus/prompb"
)

// FactBuffer stages fact rows ahead of cube registration. Remote-write
// ingestion appends here; a loader drains the buffer into a CubeDefinition
// and registers it. Registered cubes themselves stay immutable.
type FactBuffer struct {
	mu    sync.Mutex
	facts []FactRow
}

// NewFactBuffer creates an empty staging buffer.
func NewFactBuffer() *FactBuffer {
	return &FactBuffer{}
}

// Append adds fact rows to the buffer.
func (b *FactBuffer) Append(facts ...FactRow) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.facts = append(b.facts, facts...)
}

// Len returns the number of buffered rows.
func (b *FactBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.facts)
}

// Drain returns all buffered rows and empties the buffer.
func (b *FactBuffer) Drain() []FactRow {
	b.mu.Lock()
	defer b.mu.Unlock()
	facts := b.facts
	b.facts = nil
	return facts
}

// convertPromWrite maps remote-write samples onto staged fact rows. Every
// label becomes a single-level dimension coordinate, the sample timestamp
// lands on time.timestamp, and the metric name keys the value field.
func convertPromWrite(req *prompb.WriteRequest) []FactRow {
	var facts []FactRow
	for _, ts := range req.Timeseries {
		name := ""
		labels := make(map[string]string, len(ts.Labels))
		for _, l := range ts.Labels {
			if l.Name == "__name__" {
				name = l.Value
				continue
			}
			labels[l.Name] = l.Value
		}
		if name == "" {
			name = "value"
		}
		for _, sample := range ts.Samples {
			fact := FactRow{
				Dimensions: make(map[string]map[string]Scalar, len(labels)+1),
				Metrics:    map[string]Scalar{name: Num(sample.Value)},
			}
			for k, v := range labels {
				fact.Dimensions[k] = map[string]Scalar{k: Str(v)}
			}
			fact.Dimensions["time"] = map[string]Scalar{"timestamp": Num(float64(sample.Timestamp))}
			facts = append(facts, fact)
		}
	}
	return facts
}

// RegisterPromHandlers mounts a Prometheus remote-write endpoint that
// stages incoming samples into the buffer.
func RegisterPromHandlers(mux *http.ServeMux, buffer *FactBuffer) {
	mux.HandleFunc("/prometheus/write", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		decoded, err := snappy.Decode(nil, body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var req prompb.WriteRequest
		if err := req.Unmarshal(decoded); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		buffer.Append(convertPromWrite(&req)...)
		w.WriteHeader(http.StatusAccepted)
	})
}
