package rt

import (
	"context"
	"time"
)

// Fault reports that a thread ran out of budget while a server was working
// on its behalf.
type Fault struct {
	Badge    uint64        // Badge of the exhausted context
	Thread   string        // Name of the faulting thread
	Stamp    uint64        // Last progress stamp before the fault, ns
	Consumed time.Duration // Budget consumed when the fault was raised

	// SchedContext is the exhausted context. A nil context marks a null
	// fault that carries no budget and is only echoed back.
	SchedContext *SchedContext

	reply chan Reply
}

// Reply resumes a faulted thread.
type Reply struct {
	Policy    Policy
	Delivered uint64 // When the handler received the fault, ns
	Start     uint64 // When the handler began recovery, ns
}

// Resume answers the fault. It must be called exactly once per received fault.
func (f Fault) Resume(r Reply) {
	f.reply <- r
}

// FaultHandler decides how to recover from a fault.
type FaultHandler func(f Fault) Reply

// Endpoint delivers timeout faults from servers to a handler.
type Endpoint struct {
	ch chan Fault
}

// NewEndpoint creates an endpoint queueing up to depth faults.
func NewEndpoint(depth int) *Endpoint {
	return &Endpoint{ch: make(chan Fault, depth)}
}

// Send raises f and blocks until the handler replies.
func (ep *Endpoint) Send(ctx context.Context, f Fault) (Reply, error) {
	f.reply = make(chan Reply, 1)

	select {
	case ep.ch <- f:
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}

	select {
	case r := <-f.reply:
		return r, nil
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

// Recv waits for the next fault.
func (ep *Endpoint) Recv(ctx context.Context) (Fault, error) {
	select {
	case f := <-ep.ch:
		return f, nil
	case <-ctx.Done():
		return Fault{}, ctx.Err()
	}
}

// Serve answers faults with h until ctx is done.
func (ep *Endpoint) Serve(ctx context.Context, h FaultHandler) error {
	for {
		f, err := ep.Recv(ctx)
		if err != nil {
			return err
		}
		f.Resume(h(f))
	}
}
