package hypercube

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// maxBodySize bounds request bodies accepted by the HTTP API.
const maxBodySize = 32 * 1024 * 1024

// errorResponse is the wire form of a failed request.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an engine error to its status class: NotFound to 404,
// BadRequest to 400, everything else to 500.
func writeError(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := errorResponse{Error: err.Error()}
	var ee *EngineError
	if errors.As(err, &ee) && ee.Cause != nil {
		resp.Details = ee.Cause.Error()
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// RegisterHTTPHandlers mounts the engine's HTTP API on a mux:
//
//	POST /api/v1/query              run a query
//	GET  /api/v1/cubes              list registered cubes
//	POST /api/v1/cubes              register a cube (JSON or YAML document)
//	POST /api/v1/cubes/invalidate   evict cached results for a cube
//	GET  /api/v1/cache/stats        cache counters
//	GET  /health                    liveness
//
// The query handler rejects bodies that do not decode into a QueryPayload;
// required fields (cube name, non-empty measures) are checked by the engine.
func RegisterHTTPHandlers(mux *http.ServeMux, e *Engine) {
	mux.HandleFunc("/api/v1/query", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		var payload QueryPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, newBadRequestError("decode query payload: %v", err))
			return
		}
		resp, err := e.Execute(&payload)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, resp)
	})

	mux.HandleFunc("/api/v1/cubes", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, map[string]any{"cubes": e.ListCubes()})
		case http.MethodPost:
			r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
			body, err := io.ReadAll(r.Body)
			if err != nil {
				writeError(w, newBadRequestError("read body: %v", err))
				return
			}
			def, err := decodeCubeBody(r.Header.Get("Content-Type"), body)
			if err != nil {
				writeError(w, err)
				return
			}
			if err := e.RegisterCube(def); err != nil {
				writeError(w, err)
				return
			}
			w.WriteHeader(http.StatusCreated)
			writeJSON(w, map[string]string{"cube": def.Name, "status": "registered"})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/cubes/invalidate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		name := r.URL.Query().Get("cube")
		if name == "" {
			writeError(w, newBadRequestError("cube query parameter is required"))
			return
		}
		evicted, err := e.InvalidateCube(name, r.URL.Query().Get("reason"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, map[string]any{"cube": name, "invalidated": evicted})
	})

	mux.HandleFunc("/api/v1/cache/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, e.CacheStats())
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
}

// decodeCubeBody accepts either a plain JSON CubeDefinition or a YAML/JSON
// CubeDocument, selected by content type.
func decodeCubeBody(contentType string, body []byte) (*CubeDefinition, error) {
	if strings.Contains(contentType, "yaml") {
		return ParseCubeDocument(body)
	}
	var def CubeDefinition
	if err := json.Unmarshal(body, &def); err != nil {
		return nil, newBadRequestError("decode cube definition: %v", err)
	}
	return &def, nil
}
