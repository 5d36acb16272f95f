package degio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/deglib-go/deg/pkg/deg"
)

func encodeFloat32(v float32) []byte {
	bits := math.Float32bits(v)
	return []byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)}
}

func vec2(a, b float32) []byte {
	return append(encodeFloat32(a), encodeFloat32(b)...)
}

func buildToyGraph(t *testing.T) *deg.Graph {
	t.Helper()
	g, err := deg.NewGraph(4, 2, deg.L2Float32, 2)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	pts := [][2]float32{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	for i, p := range pts {
		if _, err := g.AddVertex(uint32(100+i), vec2(p[0], p[1])); err != nil {
			t.Fatalf("AddVertex: %v", err)
		}
	}
	// wire vertex 0 to vertices 1 and 2 (both directions, keeping rows sorted)
	if err := g.ChangeEdges(0, []uint32{1, 2}, []float32{1, 1}); err != nil {
		t.Fatalf("ChangeEdges(0): %v", err)
	}
	if err := g.ChangeEdges(1, []uint32{0, 1}, []float32{1, 0}); err != nil {
		t.Fatalf("ChangeEdges(1): %v", err)
	}
	if err := g.ChangeEdges(2, []uint32{0, 2}, []float32{1, 0}); err != nil {
		t.Fatalf("ChangeEdges(2): %v", err)
	}
	return g
}

func TestSaveLoadRoundTrip(t *testing.T) {
	g := buildToyGraph(t)
	path := filepath.Join(t.TempDir(), "graph.deg")

	if err := Save(g, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.Size() != g.Size() {
		t.Fatalf("size mismatch: got %d, want %d", loaded.Size(), g.Size())
	}
	if loaded.Degree() != g.Degree() {
		t.Fatalf("degree mismatch: got %d, want %d", loaded.Degree(), g.Degree())
	}
	if loaded.Space().Metric() != g.Space().Metric() {
		t.Fatalf("metric mismatch: got %v, want %v", loaded.Space().Metric(), g.Space().Metric())
	}

	for idx := uint32(0); idx < uint32(g.Size()); idx++ {
		if loaded.LabelOf(idx) != g.LabelOf(idx) {
			t.Errorf("vertex %d label mismatch: got %d, want %d", idx, loaded.LabelOf(idx), g.LabelOf(idx))
		}
		gotN := loaded.NeighborsOf(idx)
		wantN := g.NeighborsOf(idx)
		for i := range wantN {
			if gotN[i] != wantN[i] {
				t.Errorf("vertex %d neighbor %d mismatch: got %d, want %d", idx, i, gotN[i], wantN[i])
			}
		}
		gotW := loaded.WeightsOf(idx)
		wantW := g.WeightsOf(idx)
		for i := range wantW {
			if gotW[i] != wantW[i] {
				t.Errorf("vertex %d weight %d mismatch: got %f, want %f", idx, i, gotW[i], wantW[i])
			}
		}
	}
}

func TestSaveLoadReadOnlyRoundTrip(t *testing.T) {
	g := buildToyGraph(t)
	r := deg.NewReadOnlyFromGraph(g)
	path := filepath.Join(t.TempDir(), "graph.rodeg")

	if err := SaveReadOnly(r, path); err != nil {
		t.Fatalf("SaveReadOnly: %v", err)
	}

	loaded, err := LoadReadOnly(path)
	if err != nil {
		t.Fatalf("LoadReadOnly: %v", err)
	}

	if loaded.Size() != r.Size() {
		t.Fatalf("size mismatch: got %d, want %d", loaded.Size(), r.Size())
	}
	for idx := uint32(0); idx < uint32(r.Size()); idx++ {
		if loaded.LabelOf(idx) != r.LabelOf(idx) {
			t.Errorf("vertex %d label mismatch: got %d, want %d", idx, loaded.LabelOf(idx), r.LabelOf(idx))
		}
	}
}

func TestLoadRejectsOutOfRangeNeighbor(t *testing.T) {
	g := buildToyGraph(t)
	path := filepath.Join(t.TempDir(), "graph.deg")
	if err := Save(g, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	// header is 8 bytes; vertex 0's feature is 8 bytes (2 float32), then its
	// first neighbor index (u32) follows — corrupt it to an out-of-range value.
	neighborOffset := 8 + 8
	data[neighborOffset] = 0xFF
	data[neighborOffset+1] = 0xFF
	data[neighborOffset+2] = 0xFF
	data[neighborOffset+3] = 0xFF
	corrupt := filepath.Join(t.TempDir(), "corrupt.deg")
	if err := os.WriteFile(corrupt, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Load(corrupt); err == nil {
		t.Fatal("expected Load to reject an out-of-range neighbor index")
	}
}
