package logic

import (
	"reflect"
	"testing"
	"time"
)

func TestNewDebouncer(t *testing.T) {
	d := NewDebouncer(250 * time.Millisecond)
	if d == nil {
		t.Fatal("NewDebouncer returned nil")
	}
	if d.debounceDuration != 250*time.Millisecond {
		t.Errorf("expected debounce duration 250ms, got %v", d.debounceDuration)
	}
	if d.IsBaselined() {
		t.Error("new debouncer should not be baselined")
	}
}

func TestDebounceBaselineAllOff(t *testing.T) {
	d := NewDebouncer(250 * time.Millisecond)

	if edges := d.Process(Input{Time: t0}); len(edges) != 0 {
		t.Errorf("expected no edges during baseline, got %v", edges)
	}
	if edges := d.Process(Input{Time: t0.Add(200 * time.Millisecond)}); len(edges) != 0 {
		t.Errorf("expected no edges during baseline, got %v", edges)
	}
	if d.IsBaselined() {
		t.Error("should not be baselined before debounce period")
	}

	edges := d.Process(Input{Time: t0.Add(250 * time.Millisecond)})
	if len(edges) != 0 {
		t.Errorf("expected no edges when baselining all off, got %v", edges)
	}
	if !d.IsBaselined() {
		t.Error("should be baselined after debounce period")
	}
}

func TestDebounceBaselineEnergizedYieldsEdges(t *testing.T) {
	d := NewDebouncer(250 * time.Millisecond)
	d.Process(Input{Low: true, Stop: true, Time: t0})
	edges := d.Process(Input{Low: true, Stop: true, Time: t0.Add(250 * time.Millisecond)})

	want := []Edge{EdgeStop, EdgeLowLevel}
	if !reflect.DeepEqual(edges, want) {
		t.Errorf("edges: got %v, want %v", edges, want)
	}
}

func TestDebounceBaselineResetOnChange(t *testing.T) {
	d := NewDebouncer(250 * time.Millisecond)

	d.Process(Input{Low: true, Time: t0})
	d.Process(Input{Low: false, Time: t0.Add(100 * time.Millisecond)})

	// Low timer was reset at 100ms
	d.Process(Input{Time: t0.Add(250 * time.Millisecond)})
	if d.IsBaselined() {
		t.Error("should not be baselined (low timer was reset)")
	}

	d.Process(Input{Time: t0.Add(350 * time.Millisecond)})
	if !d.IsBaselined() {
		t.Error("should be baselined after debounce from state change")
	}
	low, high, stop := d.CurrentLevels()
	if low || high || stop {
		t.Errorf("expected all levels false, got low=%v high=%v stop=%v", low, high, stop)
	}
}

func TestDebounceRisingEdge(t *testing.T) {
	d := setupBaselinedDebouncer(t)
	now := t0.Add(time.Minute)

	if edges := d.Process(Input{Low: true, Time: now}); len(edges) != 0 {
		t.Errorf("expected no edges before debounce, got %v", edges)
	}
	if edges := d.Process(Input{Low: true, Time: now.Add(249 * time.Millisecond)}); len(edges) != 0 {
		t.Error("should not trigger at 249ms")
	}
	edges := d.Process(Input{Low: true, Time: now.Add(250 * time.Millisecond)})
	if !reflect.DeepEqual(edges, []Edge{EdgeLowLevel}) {
		t.Errorf("edges: got %v, want [LOW_LEVEL]", edges)
	}

	// Holding the level produces nothing more
	if edges := d.Process(Input{Low: true, Time: now.Add(time.Second)}); len(edges) != 0 {
		t.Errorf("expected no edges for held level, got %v", edges)
	}
}

func TestDebounceFallingEdgeIsSilent(t *testing.T) {
	d := setupBaselinedDebouncer(t)
	now := t0.Add(time.Minute)

	d.Process(Input{High: true, Time: now})
	d.Process(Input{High: true, Time: now.Add(250 * time.Millisecond)})

	d.Process(Input{High: false, Time: now.Add(time.Second)})
	edges := d.Process(Input{High: false, Time: now.Add(time.Second + 250*time.Millisecond)})
	if len(edges) != 0 {
		t.Errorf("expected no edges for falling level, got %v", edges)
	}
	_, high, _ := d.CurrentLevels()
	if high {
		t.Error("expected high level to read false after falling")
	}
}

func TestDebounceBounceShorterThanDebounce(t *testing.T) {
	d := setupBaselinedDebouncer(t)
	now := t0.Add(time.Minute)

	d.Process(Input{Stop: true, Time: now})
	d.Process(Input{Stop: false, Time: now.Add(100 * time.Millisecond)})
	edges := d.Process(Input{Stop: false, Time: now.Add(300 * time.Millisecond)})
	if len(edges) != 0 {
		t.Errorf("expected no edges after bounce, got %v", edges)
	}
}

func TestDebounceSimultaneousEdgesOrdered(t *testing.T) {
	d := setupBaselinedDebouncer(t)
	now := t0.Add(time.Minute)

	d.Process(Input{Low: true, High: true, Stop: true, Time: now})
	edges := d.Process(Input{Low: true, High: true, Stop: true, Time: now.Add(250 * time.Millisecond)})

	want := []Edge{EdgeStop, EdgeLowLevel, EdgeHighLevel}
	if !reflect.DeepEqual(edges, want) {
		t.Errorf("edges: got %v, want %v", edges, want)
	}
}

// setupBaselinedDebouncer creates a debouncer baselined with every input off.
func setupBaselinedDebouncer(t *testing.T) *Debouncer {
	t.Helper()
	d := NewDebouncer(250 * time.Millisecond)

	d.Process(Input{Time: t0})
	d.Process(Input{Time: t0.Add(250 * time.Millisecond)})

	if !d.IsBaselined() {
		t.Fatal("failed to establish baseline")
	}
	return d
}
