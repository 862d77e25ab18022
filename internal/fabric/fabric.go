// Package fabric implements the non-blocking transfer primitive of the
// compositing core as an in-process message-passing substrate: one
// goroutine-safe Fabric connects N participants, each driving one
// scheduler invocation from its own goroutine, posting tagged sends and
// receives and suspending only at Wait/WaitAny/WaitAll.
//
// There is no MPI binding available to this module; goroutines and
// channels are the idiomatic Go substitute, matching the pack's own
// style for in-process concurrency. A networked transport would replace
// this package without any scheduler code changing.
package fabric

import (
	"reflect"
	"sync"
)

// Tag distinguishes the purpose of a message between the same pair of
// participants (metadata, color, depth, background, run-lengths, and any
// scheduler-private round tags).
type Tag int

type linkKey struct {
	from, to int
	tag      Tag
}

// Fabric is a fixed-size in-process message-passing substrate.
type Fabric struct {
	n  int
	mu sync.Mutex
	ch map[linkKey]chan []byte
}

// New creates a Fabric for n participants, ranked [0, n).
func New(n int) *Fabric {
	return &Fabric{n: n, ch: make(map[linkKey]chan []byte)}
}

// Size returns the number of participants.
func (f *Fabric) Size() int { return f.n }

// Endpoint returns the handle rank uses to send and receive.
func (f *Fabric) Endpoint(rank int) *Endpoint {
	return &Endpoint{fabric: f, rank: rank}
}

func (f *Fabric) channel(k linkKey) chan []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.ch[k]
	if !ok {
		c = make(chan []byte, 1)
		f.ch[k] = c
	}
	return c
}

// Endpoint is one participant's view of a Fabric.
type Endpoint struct {
	fabric *Fabric
	rank   int
}

// Rank returns this endpoint's rank.
func (e *Endpoint) Rank() int { return e.rank }

// Size returns the number of participants in the fabric.
func (e *Endpoint) Size() int { return e.fabric.n }

// Request is an opaque handle to a posted, not-yet-completed send or
// receive.
type Request struct {
	done chan struct{}
	n    int // bytes actually transferred, valid for receives after Wait
}

// Wait blocks until the operation completes.
func (r *Request) Wait() {
	<-r.done
}

// N returns the number of bytes received. Valid only for receive requests,
// only after Wait (or after WaitAny/WaitAll reports completion).
func (r *Request) N() int { return r.n }

// ISend posts a non-blocking send of payload to peer under tag. payload
// must remain unmodified until the returned Request completes.
func (e *Endpoint) ISend(peer int, tag Tag, payload []byte) *Request {
	done := make(chan struct{})
	ch := e.fabric.channel(linkKey{from: e.rank, to: peer, tag: tag})
	go func() {
		ch <- payload
		close(done)
	}()
	return &Request{done: done, n: len(payload)}
}

// IRecv posts a non-blocking receive from peer under tag into buf. buf
// must be sized to the maximum feasible payload; after completion, N()
// reports how many bytes were actually written.
func (e *Endpoint) IRecv(peer int, tag Tag, buf []byte) *Request {
	done := make(chan struct{})
	req := &Request{done: done}
	ch := e.fabric.channel(linkKey{from: peer, to: e.rank, tag: tag})
	go func() {
		data := <-ch
		req.n = copy(buf, data)
		close(done)
	}()
	return req
}

// Send is the blocking convenience form of ISend.
func (e *Endpoint) Send(peer int, tag Tag, payload []byte) {
	e.ISend(peer, tag, payload).Wait()
}

// Recv is the blocking convenience form of IRecv.
func (e *Endpoint) Recv(peer int, tag Tag, buf []byte) int {
	r := e.IRecv(peer, tag, buf)
	r.Wait()
	return r.N()
}

// WaitAll blocks until every request in reqs has completed.
func WaitAll(reqs []*Request) {
	for _, r := range reqs {
		r.Wait()
	}
}

// WaitAny blocks until exactly one request in reqs completes, and returns
// its index. Ties among already-complete requests resolve to the lowest
// index; this is an implementation choice, not a correctness requirement
// (§5 of the design: scan order does not affect the result).
func WaitAny(reqs []*Request) int {
	for i, r := range reqs {
		select {
		case <-r.done:
			return i
		default:
		}
	}
	cases := make([]reflect.SelectCase, len(reqs))
	for i, r := range reqs {
		cases[i] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(r.done)}
	}
	chosen, _, _ := reflect.Select(cases)
	return chosen
}
