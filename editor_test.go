package darkroom

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// gatedLoader returns synthetic frames. Loads of ids in hold block until
// release is called for them.
type gatedLoader struct {
	mu    sync.Mutex
	hold  map[ImageID]chan struct{}
	fail  map[ImageID]error
	calls int
	ctxs  []context.Context
}

func newGatedLoader() *gatedLoader {
	return &gatedLoader{hold: map[ImageID]chan struct{}{}, fail: map[ImageID]error{}}
}

func (l *gatedLoader) gate(id ImageID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hold[id] = make(chan struct{})
}

func (l *gatedLoader) release(id ImageID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	close(l.hold[id])
}

func (l *gatedLoader) Load(ctx context.Context, id ImageID) (*SensorFrame, error) {
	l.mu.Lock()
	l.calls++
	l.ctxs = append(l.ctxs, ctx)
	gate, err := l.hold[id], l.fail[id]
	l.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return synthFrame(16, 16), nil
}

func newTestEditor(t *testing.T, l Loader) *Editor {
	t.Helper()
	dev := NewSoftwareDevice(WithWorkers(2))
	e := NewEditor(dev, l)
	t.Cleanup(func() {
		e.Close()
		dev.Close()
	})
	return e
}

func waitState(t *testing.T, e *Editor) EditorState {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := e.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v (state %T)", err, s)
	}
	return s
}

func TestEditorSelectReady(t *testing.T) {
	e := newTestEditor(t, newGatedLoader())
	if _, ok := e.State().(NoSelection); !ok {
		t.Fatalf("initial state = %T", e.State())
	}
	if _, err := e.Pipeline(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Pipeline() before select err = %v", err)
	}

	id := uuid.New()
	if err := e.Select(context.Background(), id, EditParameters{Exposure: 0.5}); err != nil {
		t.Fatal(err)
	}
	ready, ok := waitState(t, e).(Ready)
	if !ok {
		t.Fatalf("state = %T, want Ready", e.State())
	}
	if ready.ID != id {
		t.Errorf("ready id = %v, want %v", ready.ID, id)
	}
	if got := ready.Pipeline.Parameters().Exposure; got != 0.5 {
		t.Errorf("initial exposure = %v", got)
	}
	p, err := e.Pipeline()
	if err != nil || p != ready.Pipeline {
		t.Errorf("Pipeline() = %p, %v", p, err)
	}
	if _, err := p.RenderPreview(); err != nil {
		t.Errorf("RenderPreview: %v", err)
	}
}

func TestEditorReleasesLoadContext(t *testing.T) {
	l := newGatedLoader()
	e := newTestEditor(t, l)

	parent, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := e.Select(parent, uuid.New(), EditParameters{}); err != nil {
		t.Fatal(err)
	}
	if _, ok := waitState(t, e).(Ready); !ok {
		t.Fatalf("state = %T, want Ready", e.State())
	}

	l.mu.Lock()
	loadCtx := l.ctxs[0]
	l.mu.Unlock()
	if !errors.Is(loadCtx.Err(), context.Canceled) {
		t.Errorf("load context err = %v after the load finished, want Canceled", loadCtx.Err())
	}
	if parent.Err() != nil {
		t.Errorf("parent context err = %v", parent.Err())
	}
	if _, err := e.Pipeline(); err != nil {
		t.Errorf("Pipeline() after load: %v", err)
	}
}

func TestEditorSwitchClosesPrevious(t *testing.T) {
	l := newGatedLoader()
	e := newTestEditor(t, l)
	a, b := uuid.New(), uuid.New()

	if err := e.Select(context.Background(), a, EditParameters{}); err != nil {
		t.Fatal(err)
	}
	first := waitState(t, e).(Ready).Pipeline

	if err := e.Select(context.Background(), b, EditParameters{}); err != nil {
		t.Fatal(err)
	}
	if _, err := first.RenderPreview(); !errors.Is(err, ErrPipelineClosed) {
		t.Errorf("previous pipeline still usable: %v", err)
	}
	if s, ok := waitState(t, e).(Ready); !ok || s.ID != b {
		t.Fatalf("state = %+v, want Ready(b)", e.State())
	}
}

func TestEditorSelectSameImageIsNoop(t *testing.T) {
	l := newGatedLoader()
	e := newTestEditor(t, l)
	id := uuid.New()

	for range 3 {
		if err := e.Select(context.Background(), id, EditParameters{}); err != nil {
			t.Fatal(err)
		}
	}
	waitState(t, e)
	if err := e.Select(context.Background(), id, EditParameters{}); err != nil {
		t.Fatal(err)
	}
	if l.calls != 1 {
		t.Errorf("loader called %d times, want 1", l.calls)
	}
}

func TestEditorLoadFailure(t *testing.T) {
	l := newGatedLoader()
	id := uuid.New()
	boom := errors.New("corrupt file")
	l.fail[id] = boom
	e := newTestEditor(t, l)

	if err := e.Select(context.Background(), id, EditParameters{}); err != nil {
		t.Fatal(err)
	}
	failed, ok := waitState(t, e).(Failed)
	if !ok {
		t.Fatalf("state = %T, want Failed", e.State())
	}
	if failed.ID != id || !errors.Is(failed.Err, boom) {
		t.Errorf("failed = %+v", failed)
	}
	if err := e.SetParameters(EditParameters{}); !errors.Is(err, ErrNotReady) {
		t.Errorf("SetParameters after failure err = %v", err)
	}
}

func TestEditorSupersededLoad(t *testing.T) {
	l := newGatedLoader()
	e := newTestEditor(t, l)
	slow, fast := uuid.New(), uuid.New()
	l.gate(slow)

	if err := e.Select(context.Background(), slow, EditParameters{}); err != nil {
		t.Fatal(err)
	}
	if err := e.Select(context.Background(), fast, EditParameters{}); err != nil {
		t.Fatal(err)
	}
	if s, ok := waitState(t, e).(Ready); !ok || s.ID != fast {
		t.Fatalf("state = %+v, want Ready(fast)", e.State())
	}

	// The slow load finishing late must not replace the current image.
	l.release(slow)
	e.wg.Wait()
	if s, ok := e.State().(Ready); !ok || s.ID != fast {
		t.Errorf("late load replaced state: %+v", e.State())
	}
}

func TestEditorParametersDuringLoad(t *testing.T) {
	l := newGatedLoader()
	e := newTestEditor(t, l)
	id := uuid.New()
	l.gate(id)

	if err := e.Select(context.Background(), id, EditParameters{}); err != nil {
		t.Fatal(err)
	}
	if _, ok := e.State().(Loading); !ok {
		t.Fatalf("state = %T, want Loading", e.State())
	}
	if err := e.SetParameters(EditParameters{Contrast: 0.4, Exposure: 9}); err != nil {
		t.Fatalf("SetParameters while loading: %v", err)
	}
	l.release(id)

	ready := waitState(t, e).(Ready)
	want := EditParameters{Contrast: 0.4, Exposure: ExposureLimit}
	if got := ready.Pipeline.Parameters(); got != want {
		t.Errorf("parameters = %+v, want %+v", got, want)
	}

	if err := e.SetParameters(EditParameters{Shadows: 0.2}); err != nil {
		t.Fatal(err)
	}
	if got := ready.Pipeline.Parameters().Shadows; got != 0.2 {
		t.Errorf("shadows = %v", got)
	}
}

func TestEditorDeselect(t *testing.T) {
	e := newTestEditor(t, newGatedLoader())
	if err := e.Deselect(); err != nil {
		t.Fatalf("Deselect with nothing selected: %v", err)
	}
	if err := e.Select(context.Background(), uuid.New(), EditParameters{}); err != nil {
		t.Fatal(err)
	}
	p := waitState(t, e).(Ready).Pipeline

	if err := e.Deselect(); err != nil {
		t.Fatal(err)
	}
	if _, ok := e.State().(NoSelection); !ok {
		t.Errorf("state = %T, want NoSelection", e.State())
	}
	if err := p.UpdateParameters(EditParameters{}); !errors.Is(err, ErrPipelineClosed) {
		t.Errorf("pipeline after Deselect err = %v", err)
	}
}

func TestEditorDeselectWhileLoading(t *testing.T) {
	l := newGatedLoader()
	e := newTestEditor(t, l)
	id := uuid.New()
	l.gate(id)

	if err := e.Select(context.Background(), id, EditParameters{}); err != nil {
		t.Fatal(err)
	}
	if err := e.Deselect(); err != nil {
		t.Fatal(err)
	}
	if _, ok := waitState(t, e).(NoSelection); !ok {
		t.Errorf("state = %T, want NoSelection", e.State())
	}
	l.release(id)
	e.wg.Wait()
	if _, ok := e.State().(NoSelection); !ok {
		t.Errorf("abandoned load changed state to %T", e.State())
	}
}

func TestEditorClose(t *testing.T) {
	l := newGatedLoader()
	e := newTestEditor(t, l)
	if err := e.Select(context.Background(), uuid.New(), EditParameters{}); err != nil {
		t.Fatal(err)
	}
	p := waitState(t, e).(Ready).Pipeline

	if err := e.Close(); err != nil {
		t.Fatal(err)
	}
	if err := e.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := p.RenderPreview(); !errors.Is(err, ErrPipelineClosed) {
		t.Errorf("pipeline survived editor close: %v", err)
	}
	if err := e.Select(context.Background(), uuid.New(), EditParameters{}); !errors.Is(err, ErrEditorClosed) {
		t.Errorf("Select after Close err = %v", err)
	}
	if err := e.SetParameters(EditParameters{}); !errors.Is(err, ErrEditorClosed) {
		t.Errorf("SetParameters after Close err = %v", err)
	}
	if _, err := e.Pipeline(); !errors.Is(err, ErrEditorClosed) {
		t.Errorf("Pipeline after Close err = %v", err)
	}
}

func TestEditorChangesKeepsLatest(t *testing.T) {
	e := newTestEditor(t, newGatedLoader())
	id := uuid.New()
	if err := e.Select(context.Background(), id, EditParameters{}); err != nil {
		t.Fatal(err)
	}
	waitState(t, e)

	// Loading was overwritten by Ready before anyone read it.
	select {
	case s := <-e.Changes():
		if r, ok := s.(Ready); !ok || r.ID != id {
			t.Errorf("latest change = %+v, want Ready", s)
		}
	default:
		t.Fatal("no state delivered")
	}
	select {
	case s := <-e.Changes():
		t.Errorf("unexpected extra change %+v", s)
	default:
	}
}

func TestEditorWaitCancelled(t *testing.T) {
	l := newGatedLoader()
	e := newTestEditor(t, l)
	id := uuid.New()
	l.gate(id)
	defer l.release(id)

	if err := e.Select(context.Background(), id, EditParameters{}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	s, err := e.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait err = %v", err)
	}
	if _, ok := s.(Loading); !ok {
		t.Errorf("state = %T, want Loading", s)
	}
}
