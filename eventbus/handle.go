package eventbus

import "context"

// Handle controls a background loop started by a Dispatcher or Forwarder. The
// component that started the loop owns it through this handle; nothing runs
// detached.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func newHandle(cancel context.CancelFunc) *Handle {
	return &Handle{cancel: cancel, done: make(chan struct{})}
}

// Stop cancels the loop and blocks until it has fully exited, including the
// envelope currently in flight. Stop is idempotent; concurrent and repeated
// calls all return once the loop is down.
func (h *Handle) Stop() {
	h.cancel()
	<-h.done
}

// Done is closed when the loop has exited, whether through Stop or through
// cancellation of the context passed to Start.
func (h *Handle) Done() <-chan struct{} { return h.done }
