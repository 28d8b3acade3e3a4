package testing

import (
	"sync"

	wefterrors "github.com/go-drift/weft/pkg/errors"
)

// RecordingHandler is an ErrorHandler that keeps every report for later
// assertions.
type RecordingHandler struct {
	mu     sync.Mutex
	errs   []*wefterrors.RuntimeError
	panics []*wefterrors.PanicError
}

// HandleError records err.
func (h *RecordingHandler) HandleError(err *wefterrors.RuntimeError) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, err)
}

// HandlePanic records err.
func (h *RecordingHandler) HandlePanic(err *wefterrors.PanicError) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.panics = append(h.panics, err)
}

// Errors returns the recorded errors in report order.
func (h *RecordingHandler) Errors() []*wefterrors.RuntimeError {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*wefterrors.RuntimeError(nil), h.errs...)
}

// ErrorsOfKind returns the recorded errors of kind k.
func (h *RecordingHandler) ErrorsOfKind(k wefterrors.ErrorKind) []*wefterrors.RuntimeError {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*wefterrors.RuntimeError
	for _, err := range h.errs {
		if err.Kind == k {
			out = append(out, err)
		}
	}
	return out
}

// Panics returns the recorded panics in report order.
func (h *RecordingHandler) Panics() []*wefterrors.PanicError {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*wefterrors.PanicError(nil), h.panics...)
}

// Reset drops everything recorded so far.
func (h *RecordingHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = nil
	h.panics = nil
}
