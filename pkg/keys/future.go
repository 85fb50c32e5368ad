package keys

import (
	"context"
	"sync"
)

// Future is the single-resolution result of an operation. The first call to
// Resolve or Reject settles it; later calls are ignored.
type Future struct {
	once sync.Once
	done chan struct{}
	resp *Response
	err  error
}

// NewFuture returns an unsettled future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolved returns a future already settled with resp.
func Resolved(resp *Response) *Future {
	f := NewFuture()
	f.Resolve(resp)
	return f
}

// Rejected returns a future already settled with err.
func Rejected(err error) *Future {
	f := NewFuture()
	f.Reject(err)
	return f
}

// Resolve settles the future with a response. It reports whether this call
// settled it.
func (f *Future) Resolve(resp *Response) bool {
	return f.settle(resp, nil)
}

// Reject settles the future with an error. It reports whether this call
// settled it.
func (f *Future) Reject(err error) bool {
	return f.settle(nil, err)
}

func (f *Future) settle(resp *Response, err error) bool {
	settled := false
	f.once.Do(func() {
		f.resp = resp
		f.err = err
		settled = true
		close(f.done)
	})
	return settled
}

// Done is closed once the future has settled.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future settles or ctx is done. A done ctx only
// abandons the wait; the request behind the future keeps running.
func (f *Future) Await(ctx context.Context) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		// Prefer a settled result over a simultaneous cancellation.
		select {
		case <-f.done:
			return f.resp, f.err
		default:
		}
		return nil, ctx.Err()
	}
}

// Result blocks until the future settles.
func (f *Future) Result() (*Response, error) {
	<-f.done
	return f.resp, f.err
}
