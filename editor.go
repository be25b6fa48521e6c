package darkroom

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ImageID identifies an image in the host application's catalog.
type ImageID = uuid.UUID

// Loader produces the decoded frame for an image. It stands in for the
// RAW decoder and should honour ctx cancellation.
type Loader interface {
	Load(ctx context.Context, id ImageID) (*SensorFrame, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, id ImageID) (*SensorFrame, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, id ImageID) (*SensorFrame, error) {
	return f(ctx, id)
}

// EditorState is one of NoSelection, Loading, Ready or Failed.
type EditorState interface {
	editorState()
}

// NoSelection means no image is selected.
type NoSelection struct{}

// Loading means the image is being decoded and uploaded.
type Loading struct {
	ID ImageID
}

// Ready means the image's pipeline is available.
type Ready struct {
	ID       ImageID
	Pipeline *Pipeline
}

// Failed means the image could not be loaded.
type Failed struct {
	ID  ImageID
	Err error
}

func (NoSelection) editorState() {}
func (Loading) editorState()     {}
func (Ready) editorState()       {}
func (Failed) editorState()      {}

// Editor holds the single authoritative pipeline of the selected image.
// Selecting another image tears the current pipeline down before the new
// one is built; a load that is superseded while in flight has its
// pipeline closed and discarded.
type Editor struct {
	dev    *Device
	loader Loader
	opts   []PipelineOption

	mu      sync.Mutex
	state   EditorState
	params  EditParameters
	gen     uint64
	cancel  context.CancelFunc
	settled chan struct{} // closed when the current load finishes
	closed  bool
	wg      sync.WaitGroup

	changes chan EditorState
}

// NewEditor returns an editor in the NoSelection state. opts apply to
// every pipeline it builds.
func NewEditor(dev *Device, loader Loader, opts ...PipelineOption) *Editor {
	settled := make(chan struct{})
	close(settled)
	return &Editor{
		dev:     dev,
		loader:  loader,
		opts:    opts,
		state:   NoSelection{},
		settled: settled,
		changes: make(chan EditorState, 1),
	}
}

// State returns the current state.
func (e *Editor) State() EditorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Changes delivers the latest state after every transition. Only the
// most recent undelivered state is kept, so a slow reader skips
// intermediate states but always sees the last one.
func (e *Editor) Changes() <-chan EditorState {
	return e.changes
}

// Select starts loading id with params as its initial parameters and
// returns immediately. The previous image's pipeline is closed first.
// Selecting the image that is already loading or ready is a no-op.
func (e *Editor) Select(ctx context.Context, id ImageID, params EditParameters) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEditorClosed
	}
	switch s := e.state.(type) {
	case Loading:
		if s.ID == id {
			return nil
		}
	case Ready:
		if s.ID == id {
			return nil
		}
	}

	e.teardownLocked()
	e.gen++
	gen := e.gen
	e.params = params.Clamp()

	loadCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.settled = make(chan struct{})
	e.setStateLocked(Loading{ID: id})

	e.wg.Add(1)
	go e.load(loadCtx, gen, id, e.settled)
	return nil
}

func (e *Editor) load(ctx context.Context, gen uint64, id ImageID, settled chan struct{}) {
	defer e.wg.Done()

	var p *Pipeline
	frame, err := e.loader.Load(ctx, id)
	if err == nil {
		e.mu.Lock()
		params := e.params
		e.mu.Unlock()
		p, err = NewPipelineFromFrame(ctx, e.dev, frame, params, e.opts...)
	} else {
		err = fmt.Errorf("darkroom: load %s: %w", id, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.gen || e.closed {
		// Superseded; the newer selection owns the settled channel.
		if p != nil {
			p.Close()
		}
		return
	}
	defer close(settled)
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}

	if err != nil {
		Logger().Warn("image load failed", "id", id, "err", err)
		e.setStateLocked(Failed{ID: id, Err: err})
		return
	}
	// Parameters may have changed while loading.
	if params := e.params; params != p.Parameters() {
		if uerr := p.UpdateParameters(params); uerr != nil {
			p.Close()
			e.setStateLocked(Failed{ID: id, Err: uerr})
			return
		}
	}
	Logger().Info("image ready", "id", id)
	e.setStateLocked(Ready{ID: id, Pipeline: p})
}

// SetParameters forwards a parameter snapshot to the selected image. While
// the image is loading the snapshot is kept and applied when it is ready.
func (e *Editor) SetParameters(params EditParameters) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEditorClosed
	}
	switch s := e.state.(type) {
	case Loading:
		e.params = params.Clamp()
		return nil
	case Ready:
		e.params = params.Clamp()
		return s.Pipeline.UpdateParameters(params)
	default:
		return ErrNotReady
	}
}

// Pipeline returns the ready pipeline, or ErrNotReady.
func (e *Editor) Pipeline() (*Pipeline, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEditorClosed
	}
	if s, ok := e.state.(Ready); ok {
		return s.Pipeline, nil
	}
	return nil, ErrNotReady
}

// Deselect closes the current pipeline (or abandons the current load) and
// returns to NoSelection.
func (e *Editor) Deselect() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEditorClosed
	}
	if _, ok := e.state.(NoSelection); ok {
		return nil
	}
	e.teardownLocked()
	e.gen++
	e.setStateLocked(NoSelection{})
	return nil
}

// Wait blocks until no load is in progress and returns the state reached.
func (e *Editor) Wait(ctx context.Context) (EditorState, error) {
	for {
		e.mu.Lock()
		state, settled := e.state, e.settled
		e.mu.Unlock()
		if _, loading := state.(Loading); !loading {
			return state, nil
		}
		select {
		case <-settled:
		case <-ctx.Done():
			return state, ctx.Err()
		}
	}
}

// Close releases the current pipeline and waits for loads in flight to
// finish. The device is not closed.
func (e *Editor) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.teardownLocked()
	e.gen++
	e.closed = true
	e.setStateLocked(NoSelection{})
	e.mu.Unlock()

	e.wg.Wait()
	return nil
}

// teardownLocked closes the ready pipeline or cancels the load in
// progress. A cancelled load's settled channel is closed here because the
// load goroutine will find itself superseded.
func (e *Editor) teardownLocked() {
	switch s := e.state.(type) {
	case Ready:
		s.Pipeline.Close()
		Logger().Debug("pipeline released", "id", s.ID)
	case Loading:
		if e.cancel != nil {
			e.cancel()
			e.cancel = nil
		}
		close(e.settled)
	}
}

func (e *Editor) setStateLocked(s EditorState) {
	e.state = s
	// Replace any undelivered state with the newest.
	select {
	case <-e.changes:
	default:
	}
	e.changes <- s
}
