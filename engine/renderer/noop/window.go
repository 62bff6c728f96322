package noop

import "sync"

// Window is a metadata.Window with a settable framebuffer size. Sizes queued
// in OnWait are applied one per WaitEvents call, simulating a window that is
// restored after being minimized.
type Window struct {
	mu      sync.Mutex
	width   int
	height  int
	resized bool

	OnWait [][2]int
	Waits  int
}

func NewWindow(width, height int) *Window {
	return &Window{width: width, height: height}
}

func (w *Window) FramebufferSize() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

// Resize changes the framebuffer size and raises the resize flag, as the
// platform callback would.
func (w *Window) Resize(width, height int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.width, w.height = width, height
	w.resized = true
}

func (w *Window) ResizePending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.resized
}

func (w *Window) ClearResizePending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resized = false
}

func (w *Window) WaitEvents() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Waits++
	if len(w.OnWait) > 0 {
		w.width, w.height = w.OnWait[0][0], w.OnWait[0][1]
		w.OnWait = w.OnWait[1:]
	}
}
