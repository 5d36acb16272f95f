package builder

import (
	"math"
	"math/rand"
	"testing"

	"github.com/deglib-go/deg/pkg/deg"
)

func f32bytes(v float32) []byte {
	bits := math.Float32bits(v)
	return []byte{byte(bits), byte(bits >> 8), byte(bits >> 16), byte(bits >> 24)}
}

func vec(coords ...float32) []byte {
	out := make([]byte, 0, len(coords)*4)
	for _, c := range coords {
		out = append(out, f32bytes(c)...)
	}
	return out
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig(8)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig(8) should validate: %v", err)
	}
}

func TestConfigValidateRejectsBadFields(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero ExtendK", Config{ExtendK: 0, MaxPathLength: 1}},
		{"negative ImproveK", Config{ExtendK: 1, ImproveK: -1, MaxPathLength: 1}},
		{"zero MaxPathLength", Config{ExtendK: 1, MaxPathLength: 0}},
		{"negative SwapTries", Config{ExtendK: 1, MaxPathLength: 1, SwapTries: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err == nil {
				t.Errorf("expected validation error for %s", tt.name)
			}
		})
	}
}

// buildIncremental grows a graph of n random 8-dimensional points via the
// builder's normal add-task path, running improvement passes inline.
func buildIncremental(t *testing.T, n, degree int) (*deg.Graph, *Builder) {
	t.Helper()
	g, err := deg.NewGraph(n+1, degree, deg.L2Float32, 8)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}

	cfg := DefaultConfig(degree)
	cfg.RNGSeed = 42
	b, err := New(g, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < n; i++ {
		coords := make([]float32, 8)
		for d := range coords {
			coords[d] = rnd.Float32()
		}
		b.AddEntry(uint32(i), vec(coords...))
	}

	b.Build(nil, false)
	return g, b
}

func TestBuildAddsAllQueuedVertices(t *testing.T) {
	g, _ := buildIncremental(t, 30, 6)
	if g.Size() != 30 {
		t.Fatalf("expected 30 vertices after build, got %d", g.Size())
	}
}

func TestBuildProducesValidGraph(t *testing.T) {
	g, _ := buildIncremental(t, 30, 6)
	report := g.CheckValidity()
	if len(report.OutOfRangeEdges) != 0 {
		t.Errorf("out-of-range edges: %v", report.OutOfRangeEdges)
	}
	if len(report.DuplicateEdges) != 0 {
		t.Errorf("duplicate edges: %v", report.DuplicateEdges)
	}
	if len(report.UnsortedRows) != 0 {
		t.Errorf("unsorted rows: %v", report.UnsortedRows)
	}
}

func TestBuildProducesConnectedGraph(t *testing.T) {
	g, _ := buildIncremental(t, 40, 6)
	reachable, total, connected := g.CheckConnectivity()
	if !connected {
		t.Errorf("expected a connected graph, reached %d/%d vertices", reachable, total)
	}
}

func TestRemoveEntryShrinksGraph(t *testing.T) {
	g, b := buildIncremental(t, 30, 6)
	b.RemoveEntry(5)
	b.Build(nil, false)

	if g.Size() != 29 {
		t.Fatalf("expected 29 vertices after removal, got %d", g.Size())
	}
	if _, ok := g.IndexOf(5); ok {
		t.Error("removed label should no longer resolve")
	}

	reachable, total, connected := g.CheckConnectivity()
	if !connected {
		t.Errorf("expected graph to remain connected after removal, reached %d/%d", reachable, total)
	}
}

func TestBuildStopsWhenQueuesEmpty(t *testing.T) {
	g, err := deg.NewGraph(8, 2, deg.L2Float32, 2)
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	cfg := DefaultConfig(2)
	cfg.ImproveK = 0 // disable improvement passes to keep the loop bounded
	b, err := New(g, cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b.AddEntry(1, vec(0, 0))
	b.AddEntry(2, vec(1, 0))

	steps := 0
	b.Build(func(s Status) { steps = int(s.Step) }, false)

	if g.Size() != 2 {
		t.Fatalf("expected 2 vertices, got %d", g.Size())
	}
	if steps == 0 {
		t.Error("expected at least one build step to run")
	}
}

func TestBuiltGraphHasLowNonRNGEdgeCount(t *testing.T) {
	g, _ := buildIncremental(t, 50, 8)
	total := g.Size() * g.Degree() / 2
	nonRNG := g.CountNonRNGEdges()
	if nonRNG > total {
		t.Errorf("non-RNG edge count %d exceeds total edge count %d", nonRNG, total)
	}
}

func TestSearchBudgetIsMonotonicInResultCount(t *testing.T) {
	g, _ := buildIncremental(t, 60, 8)

	query := vec(0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5)
	small, err := g.Search([]uint32{0}, query, 0.1, 5, nil, 10)
	if err != nil {
		t.Fatalf("Search (small budget): %v", err)
	}
	large, err := g.Search([]uint32{0}, query, 0.1, 5, nil, 10000)
	if err != nil {
		t.Fatalf("Search (large budget): %v", err)
	}

	if len(large.Results) < len(small.Results) {
		t.Errorf("expected larger budget to return at least as many results: got %d vs %d", len(large.Results), len(small.Results))
	}
	if large.Truncated {
		t.Error("expected the large-budget search to complete untruncated")
	}
}
