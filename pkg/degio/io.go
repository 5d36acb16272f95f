// Package degio implements the graph's binary file format (spec §6):
// metric tag, dimension, vertex count, degree, then one record per
// vertex — feature bytes, sorted neighbor indices, optionally neighbor
// weights, external label. Mirrors the teacher's disk_graph.go style of
// per-field binary.Write/Read calls wrapped with fmt.Errorf, generalized
// from DiskGraph's append-only node log to the spec's fixed-layout
// whole-graph snapshot.
package degio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/deglib-go/deg/pkg/deg"
	"github.com/deglib-go/deg/pkg/observability"
)

// metrics is an optional sink for Save/Load durations, set via SetMetrics.
// Package-level rather than threaded through every call since this package
// exposes stateless functions, not a long-lived handle to inject it on.
var metrics *observability.Metrics

// SetMetrics attaches a Prometheus-backed metrics sink that Save and Load
// report their durations through. A nil metrics (the default) disables
// recording.
func SetMetrics(m *observability.Metrics) {
	metrics = m
}

// Save writes g to path in the mutable graph format (weights included),
// via a temp file in the same directory followed by an atomic rename
// (spec §7: "writing to a temporary file and renaming" cleans up partial
// writes on I/O failure).
func Save(g *deg.Graph, path string) error {
	start := time.Now()
	err := atomicWrite(path, func(w io.Writer) error {
		return writeGraph(w, g, true)
	})
	if err != nil {
		observability.Error("degio: save failed", map[string]interface{}{"path": path, "error": err.Error()})
		return err
	}
	if metrics != nil {
		metrics.RecordSave(time.Since(start))
	}
	return nil
}

// SaveReadOnly writes r to path in the read-only format (weights omitted).
func SaveReadOnly(r *deg.ReadOnlyGraph, path string) error {
	start := time.Now()
	err := atomicWrite(path, func(w io.Writer) error {
		return writeReadOnlyGraph(w, r)
	})
	if err != nil {
		observability.Error("degio: save failed", map[string]interface{}{"path": path, "error": err.Error()})
		return err
	}
	if metrics != nil {
		metrics.RecordSave(time.Since(start))
	}
	return nil
}

func atomicWrite(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".degio-*.tmp")
	if err != nil {
		return fmt.Errorf("degio: failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("degio: failed to write: %w", err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("degio: failed to flush: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("degio: failed to sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("degio: failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("degio: failed to rename temp file into place: %w", err)
	}
	return nil
}

func writeHeader(w io.Writer, g interface {
	Space() *deg.Space
	Size() int
	Degree() int
}) error {
	space := g.Space()
	if err := binary.Write(w, binary.LittleEndian, uint8(space.Metric())); err != nil {
		return fmt.Errorf("metric tag: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(space.Dim())); err != nil {
		return fmt.Errorf("dimension: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(g.Size())); err != nil {
		return fmt.Errorf("vertex count: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(g.Degree())); err != nil {
		return fmt.Errorf("degree: %w", err)
	}
	return nil
}

func writeGraph(w io.Writer, g *deg.Graph, withWeights bool) error {
	if err := writeHeader(w, g); err != nil {
		return err
	}
	for idx := uint32(0); idx < uint32(g.Size()); idx++ {
		if _, err := w.Write(g.FeatureOf(idx)); err != nil {
			return fmt.Errorf("vertex %d feature: %w", idx, err)
		}
		for _, n := range g.NeighborsOf(idx) {
			if err := binary.Write(w, binary.LittleEndian, n); err != nil {
				return fmt.Errorf("vertex %d neighbor: %w", idx, err)
			}
		}
		if withWeights {
			for _, weight := range g.WeightsOf(idx) {
				if err := binary.Write(w, binary.LittleEndian, weight); err != nil {
					return fmt.Errorf("vertex %d weight: %w", idx, err)
				}
			}
		}
		if err := binary.Write(w, binary.LittleEndian, g.LabelOf(idx)); err != nil {
			return fmt.Errorf("vertex %d label: %w", idx, err)
		}
	}
	return nil
}

func writeReadOnlyGraph(w io.Writer, r *deg.ReadOnlyGraph) error {
	if err := writeHeader(w, r); err != nil {
		return err
	}
	for idx := uint32(0); idx < uint32(r.Size()); idx++ {
		if _, err := w.Write(r.FeatureOf(idx)); err != nil {
			return fmt.Errorf("vertex %d feature: %w", idx, err)
		}
		for _, n := range r.NeighborsOf(idx) {
			if err := binary.Write(w, binary.LittleEndian, n); err != nil {
				return fmt.Errorf("vertex %d neighbor: %w", idx, err)
			}
		}
		if err := binary.Write(w, binary.LittleEndian, r.LabelOf(idx)); err != nil {
			return fmt.Errorf("vertex %d label: %w", idx, err)
		}
	}
	return nil
}

type header struct {
	metric deg.Metric
	dim    int
	n      int
	degree int
}

func readHeader(r io.Reader) (header, error) {
	var h header

	var metricTag uint8
	if err := binary.Read(r, binary.LittleEndian, &metricTag); err != nil {
		return h, fmt.Errorf("metric tag: %w", err)
	}
	h.metric = deg.Metric(metricTag)

	var dim uint16
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return h, fmt.Errorf("dimension: %w", err)
	}
	h.dim = int(dim)

	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return h, fmt.Errorf("vertex count: %w", err)
	}
	h.n = int(n)

	var degree uint8
	if err := binary.Read(r, binary.LittleEndian, &degree); err != nil {
		return h, fmt.Errorf("degree: %w", err)
	}
	h.degree = int(degree)

	return h, nil
}

// Load reads the mutable graph format from path into a freshly built
// Graph sized exactly to the stored vertex count.
func Load(path string) (*deg.Graph, error) {
	start := time.Now()
	g, err := load(path)
	if err != nil {
		observability.Error("degio: load failed", map[string]interface{}{"path": path, "error": err.Error()})
		return nil, err
	}
	if metrics != nil {
		metrics.RecordLoad(time.Since(start))
	}
	return g, nil
}

func load(path string) (*deg.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("degio: failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	h, err := readHeader(r)
	if err != nil {
		return nil, fmt.Errorf("degio: %s: %w", path, err)
	}

	g, err := deg.NewGraph(h.n, h.degree, h.metric, h.dim)
	if err != nil {
		return nil, fmt.Errorf("degio: %s: %w", path, err)
	}

	dataSize := g.Space().DataSize()
	feature := make([]byte, dataSize)
	neighbors := make([]uint32, h.degree)
	weights := make([]float32, h.degree)

	for idx := uint32(0); idx < uint32(h.n); idx++ {
		if _, err := io.ReadFull(r, feature); err != nil {
			return nil, fmt.Errorf("degio: %s: vertex %d feature: %w", path, idx, err)
		}
		for i := range neighbors {
			if err := binary.Read(r, binary.LittleEndian, &neighbors[i]); err != nil {
				return nil, fmt.Errorf("degio: %s: vertex %d neighbor: %w", path, idx, err)
			}
		}
		for i := range weights {
			if err := binary.Read(r, binary.LittleEndian, &weights[i]); err != nil {
				return nil, fmt.Errorf("degio: %s: vertex %d weight: %w", path, idx, err)
			}
		}
		var label uint32
		if err := binary.Read(r, binary.LittleEndian, &label); err != nil {
			return nil, fmt.Errorf("degio: %s: vertex %d label: %w", path, idx, err)
		}

		if err := validateRow(neighbors, idx, h.n); err != nil {
			return nil, fmt.Errorf("degio: %s: vertex %d: %w", path, idx, err)
		}

		if _, err := g.AddVertex(label, feature); err != nil {
			return nil, fmt.Errorf("degio: %s: vertex %d: %w", path, idx, err)
		}
		if err := g.ChangeEdges(idx, append([]uint32(nil), neighbors...), append([]float32(nil), weights...)); err != nil {
			return nil, fmt.Errorf("degio: %s: vertex %d: %w", path, idx, err)
		}
	}

	return g, nil
}

// LoadReadOnly reads the read-only graph format from path. Internally it
// rebuilds a mutable Graph with zeroed weights and strips it down via
// deg.NewReadOnlyFromGraph, since ReadOnlyGraph exposes no write API of
// its own to populate directly.
func LoadReadOnly(path string) (*deg.ReadOnlyGraph, error) {
	start := time.Now()
	r, err := loadReadOnly(path)
	if err != nil {
		observability.Error("degio: load failed", map[string]interface{}{"path": path, "error": err.Error()})
		return nil, err
	}
	if metrics != nil {
		metrics.RecordLoad(time.Since(start))
	}
	return r, nil
}

func loadReadOnly(path string) (*deg.ReadOnlyGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("degio: failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	h, err := readHeader(r)
	if err != nil {
		return nil, fmt.Errorf("degio: %s: %w", path, err)
	}

	g, err := deg.NewGraph(h.n, h.degree, h.metric, h.dim)
	if err != nil {
		return nil, fmt.Errorf("degio: %s: %w", path, err)
	}

	dataSize := g.Space().DataSize()
	feature := make([]byte, dataSize)
	neighbors := make([]uint32, h.degree)
	zeroWeights := make([]float32, h.degree)

	for idx := uint32(0); idx < uint32(h.n); idx++ {
		if _, err := io.ReadFull(r, feature); err != nil {
			return nil, fmt.Errorf("degio: %s: vertex %d feature: %w", path, idx, err)
		}
		for i := range neighbors {
			if err := binary.Read(r, binary.LittleEndian, &neighbors[i]); err != nil {
				return nil, fmt.Errorf("degio: %s: vertex %d neighbor: %w", path, idx, err)
			}
		}
		var label uint32
		if err := binary.Read(r, binary.LittleEndian, &label); err != nil {
			return nil, fmt.Errorf("degio: %s: vertex %d label: %w", path, idx, err)
		}

		if err := validateRow(neighbors, idx, h.n); err != nil {
			return nil, fmt.Errorf("degio: %s: vertex %d: %w", path, idx, err)
		}

		if _, err := g.AddVertex(label, feature); err != nil {
			return nil, fmt.Errorf("degio: %s: vertex %d: %w", path, idx, err)
		}
		if err := g.ChangeEdges(idx, append([]uint32(nil), neighbors...), zeroWeights); err != nil {
			return nil, fmt.Errorf("degio: %s: vertex %d: %w", path, idx, err)
		}
	}

	return deg.NewReadOnlyFromGraph(g), nil
}

// validateRow enforces the load-time checks spec §6 requires: every
// referenced index < N, and the real (non-self-loop) neighbors strictly
// ascending with no duplicates. A slot pointing at its own vertex is the
// vacant-slot convention (spec §3), not the "no self-reference" corruption
// the spec means to rule out, so vacancy markers are excluded from the
// ascending check rather than rejected outright.
func validateRow(row []uint32, idx uint32, n int) error {
	prev := int64(-1)
	for _, v := range row {
		if int(v) >= n {
			return fmt.Errorf("neighbor index %d out of range (N=%d)", v, n)
		}
		if v == idx {
			continue
		}
		if int64(v) <= prev {
			return fmt.Errorf("neighbor row not strictly ascending (or duplicate) at value %d", v)
		}
		prev = int64(v)
	}
	return nil
}
