package builder

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/deglib-go/deg/pkg/deg"
	"github.com/deglib-go/deg/pkg/observability"
)

// addTask is a pending vertex insertion (original_source's BuilderAddTask).
type addTask struct {
	label             uint32
	manipulationIndex uint64
	feature           []byte
}

// removeTask is a pending vertex removal (original_source's BuilderRemoveTask).
type removeTask struct {
	label             uint32
	manipulationIndex uint64
}

// change records one edge rewrite so a failed improvement attempt can be
// rolled back in reverse order (original_source's BuilderChange).
type change struct {
	vertex           uint32
	fromNeighbor     uint32
	fromWeight       float32
	toNeighbor       uint32
	toWeight         float32
}

// Builder drives incremental graph construction: queued add/remove tasks
// interleaved with edge-improvement swap attempts (spec §4.5, C8). Build
// is single-writer but takes no lock on its Graph across a call (each
// Graph method locks on its own), so no other goroutine may mutate the
// Graph while Build runs.
type Builder struct {
	mu sync.Mutex

	graph   *deg.Graph
	config  Config
	rng     *rand.Rand
	logger  *observability.Logger
	metrics *observability.Metrics

	manipulationCounter uint64
	addQueue            []addTask
	removeQueue         []removeTask

	stopRequested bool
}

// New creates a builder over graph using config. A nil logger disables
// log output (the builder checks for nil before every log call).
func New(graph *deg.Graph, config Config, logger *observability.Logger) (*Builder, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("deg/builder: %w", err)
	}
	return &Builder{
		graph:  graph,
		config: config,
		rng:    rand.New(rand.NewSource(config.RNGSeed)),
		logger: logger,
	}, nil
}

// AddEntry queues a vertex for insertion on the next Build step.
func (b *Builder) AddEntry(label uint32, feature []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.manipulationCounter
	b.manipulationCounter++
	b.addQueue = append(b.addQueue, addTask{label: label, manipulationIndex: idx, feature: feature})
}

// RemoveEntry queues a vertex for removal on the next Build step.
func (b *Builder) RemoveEntry(label uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.manipulationCounter
	b.manipulationCounter++
	b.removeQueue = append(b.removeQueue, removeTask{label: label, manipulationIndex: idx})
}

// Stop requests the build loop to exit after its current step.
func (b *Builder) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopRequested = true
}

// Pending reports how many add/remove tasks remain queued.
func (b *Builder) Pending() (adds, removes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.addQueue), len(b.removeQueue)
}

// SetMetrics attaches a Prometheus-backed metrics sink that Build reports
// queue, swap, and graph-shape stats through. A nil metrics (the default)
// disables recording.
func (b *Builder) SetMetrics(metrics *observability.Metrics) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metrics = metrics
}

// Build runs the add/remove/improve loop, invoking callback after every
// step. With infinite set, the loop keeps running (driven purely by swap
// improvement) even once both queues drain, until Stop is called;
// otherwise it exits as soon as both queues are empty (spec §4.5 build
// loop termination condition).
func (b *Builder) Build(callback func(Status), infinite bool) {
	var status Status

	for {
		b.mu.Lock()
		stop := b.stopRequested
		hasAdd := len(b.addQueue) > 0
		hasRemove := len(b.removeQueue) > 0
		b.mu.Unlock()

		if stop {
			break
		}

		stepStart := time.Now()
		if hasAdd || hasRemove {
			b.runOneTask(&status)
		}

		if b.config.ImproveK > 0 {
			for swapTry := 0; swapTry < b.config.SwapTries; swapTry++ {
				status.Tries++
				b.recordSwapTry()
				if b.improveEdgesRandom() {
					status.Improved++
					b.recordImprovement()
					swapTry -= b.config.AdditionalSwapTries
				}
			}
		}

		b.recordBuildStep(time.Since(stepStart))

		status.Step++
		b.maybeRecordGraphStats(status.Step)
		if callback != nil {
			callback(status)
		}

		b.mu.Lock()
		stop = b.stopRequested
		hasAdd = len(b.addQueue) > 0
		hasRemove = len(b.removeQueue) > 0
		b.mu.Unlock()
		if stop || (!infinite && !hasAdd && !hasRemove) {
			break
		}
	}
}

// runOneTask pops the lower-sequenced pending task (tie-broken by which
// queue is non-empty) and applies it, matching original_source's
// manipulation_index ordering.
func (b *Builder) runOneTask(status *Status) {
	b.mu.Lock()
	var addIdx, removeIdx uint64 = ^uint64(0), ^uint64(0)
	if len(b.addQueue) > 0 {
		addIdx = b.addQueue[0].manipulationIndex
	}
	if len(b.removeQueue) > 0 {
		removeIdx = b.removeQueue[0].manipulationIndex
	}
	var task interface{}
	if addIdx < removeIdx {
		task = b.addQueue[0]
		b.addQueue = b.addQueue[1:]
	} else {
		task = b.removeQueue[0]
		b.removeQueue = b.removeQueue[1:]
	}
	b.mu.Unlock()

	switch t := task.(type) {
	case addTask:
		if err := b.extendGraph(t); err != nil {
			b.logError("extend_graph_failed", err, t.label)
			return
		}
		status.Added++
		if b.metrics != nil {
			b.metrics.RecordVertexAdded()
		}
	case removeTask:
		if err := b.shrinkGraph(t); err != nil {
			b.logError("shrink_graph_failed", err, t.label)
			return
		}
		status.Deleted++
		if b.metrics != nil {
			b.metrics.RecordVertexRemoved()
		}
	}
}

// graphStatsInterval bounds how often Build recomputes AvgEdgeWeight and
// CountNonRNGEdges for metrics: both are O(size) or worse, too expensive
// to run after every single task on a graph of realistic size.
const graphStatsInterval = 64

func (b *Builder) maybeRecordGraphStats(step uint64) {
	if b.metrics == nil || step%graphStatsInterval != 0 {
		return
	}
	b.metrics.UpdateGraphStats(b.graph.Size(), b.graph.Degree(), b.graph.AvgEdgeWeight(), b.graph.CountNonRNGEdges())
}

func (b *Builder) recordSwapTry() {
	if b.metrics != nil {
		b.metrics.RecordSwapTry()
	}
}

func (b *Builder) recordImprovement() {
	if b.metrics != nil {
		b.metrics.RecordImprovement()
	}
}

func (b *Builder) recordBuildStep(d time.Duration) {
	if b.metrics != nil {
		b.metrics.RecordBuildStep("build_step", d)
	}
}

func (b *Builder) logError(event string, err error, label uint32) {
	if b.logger == nil {
		return
	}
	b.logger.WithFields(map[string]interface{}{
		"event": event,
		"label": label,
		"error": err.Error(),
	}).Error("builder task failed")
}
