// Copyright © by sfan5. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/sfan5/dnshammer/wire"
)

func newTestBackend(t *testing.T, resolvers []netip.AddrPort, maxInFlight int, timeout time.Duration, keepCapacity bool, ep *fakeEndpoint, cb Callbacks) *Backend {
	t.Helper()
	b := New(Config{
		Resolvers:           resolvers,
		MaxInFlight:         maxInFlight,
		Timeout:             timeout,
		TimeoutKeepCapacity: keepCapacity,
		Codec:               fakeCodec{},
		Endpoint:            ep,
		Callbacks:           cb,
	})
	t.Cleanup(b.StopJoin)
	return b
}

// TestBackendAnswersEveryQuery covers property P1/P2: every queued query
// eventually reaches exactly one terminal callback (here, Answer), each
// with the id it was queued under.
func TestBackendAnswersEveryQuery(t *testing.T) {
	resolver := netip.MustParseAddrPort("127.0.0.1:5300")
	ep := newFakeEndpoint(true)

	questions := map[QueryID]wire.Question{
		1: {Name: "one.example."},
		2: {Name: "two.example."},
		3: {Name: "three.example."},
	}

	var mu sync.Mutex
	got := make(map[QueryID]bool)
	done := make(chan struct{})

	cb := Callbacks{
		Question: func(id QueryID) wire.Question { return questions[id] },
		Answer: func(id QueryID, pkt *wire.Packet) {
			mu.Lock()
			got[id] = true
			n := len(got)
			mu.Unlock()
			if n == len(questions) {
				close(done)
			}
		},
		Timeout: func(id QueryID, q wire.Question) {},
	}

	b := newTestBackend(t, []netip.AddrPort{resolver}, 10, time.Second, true, ep, cb)
	for id := range questions {
		b.Queue(id)
	}
	b.Start()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("not all queries were answered in time")
	}

	mu.Lock()
	defer mu.Unlock()
	for id := range questions {
		if !got[id] {
			t.Errorf("query %d never answered", id)
		}
	}
}

// TestBackendRespectsCapacity covers property P4: a resolver never has more
// than MaxInFlight queries outstanding at once.
func TestBackendRespectsCapacity(t *testing.T) {
	resolver := netip.MustParseAddrPort("127.0.0.1:5301")
	ep := newFakeEndpoint(false) // never answers, so capacity is only freed by eviction

	const maxInFlight = 2
	const numQueries = 10
	const timeout = 200 * time.Millisecond // interval = timeout/2, evicts every 100ms

	cb := Callbacks{
		Question: func(id QueryID) wire.Question { return wire.Question{Name: "x.example."} },
		Answer:   func(id QueryID, pkt *wire.Packet) {},
		Timeout:  func(id QueryID, q wire.Question) {},
	}

	// TimeoutKeepCapacity is true here purely so the queue drains and the
	// test can clean up promptly; the property under test is the sample
	// taken below, before any eviction has had a chance to run.
	b := newTestBackend(t, []netip.AddrPort{resolver}, maxInFlight, timeout, true, ep, cb)
	for i := 0; i < numQueries; i++ {
		b.Queue(QueryID(i))
	}
	b.Start()

	// Sample before the first eviction tick: with nothing ever freeing
	// capacity, only maxInFlight sends can have gone out, no matter how
	// many more queries are queued behind them.
	time.Sleep(30 * time.Millisecond)

	ep.mu.Lock()
	sent := len(ep.sentLog)
	ep.mu.Unlock()
	if sent > maxInFlight {
		t.Errorf("observed %d sends before any capacity was freed, want at most %d", sent, maxInFlight)
	}

	// Wait for evictions to drain the queue before cleanup: StopJoin cannot
	// return while the send loop is still waiting on capacity for a popped id.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		ep.mu.Lock()
		n := len(ep.sentLog)
		ep.mu.Unlock()
		if n == numQueries {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// TestBackendTimeoutKeepCapacityTrueRequeues covers the
// timeout-then-app-level-retry path with TimeoutKeepCapacity=true: a query
// that never gets an answer is evicted, its resolver's capacity is
// restored, and the Timeout callback's requeue can go on to succeed once
// the endpoint starts responding.
func TestBackendTimeoutKeepCapacityTrueRequeues(t *testing.T) {
	resolver := netip.MustParseAddrPort("127.0.0.1:5302")
	ep := newFakeEndpoint(false)

	answered := make(chan struct{})
	var timeouts int
	var mu sync.Mutex
	var b *Backend

	cb := Callbacks{
		Question: func(id QueryID) wire.Question { return wire.Question{Name: "retry.example."} },
		Answer: func(id QueryID, pkt *wire.Packet) {
			close(answered)
		},
		Timeout: func(id QueryID, q wire.Question) {
			mu.Lock()
			timeouts++
			n := timeouts
			mu.Unlock()
			if n == 1 {
				ep.setRespond(true) // start responding before the requeue is sent
			}
			b.Queue(id)
		},
	}

	b = newTestBackend(t, []netip.AddrPort{resolver}, 1, 100*time.Millisecond, true, ep, cb)
	b.Queue(1)
	b.Start()

	select {
	case <-answered:
	case <-time.After(3 * time.Second):
		t.Fatal("query was never answered after timeout+requeue")
	}
}

// TestBackendTimeoutKeepCapacityFalseSticksCapacityDown covers scenario 4:
// with TimeoutKeepCapacity=false, a timed-out query's resolver slot is
// never returned, so a second query queued behind it is never sent.
func TestBackendTimeoutKeepCapacityFalseSticksCapacityDown(t *testing.T) {
	resolver := netip.MustParseAddrPort("127.0.0.1:5303")
	ep := newFakeEndpoint(false) // never answers

	var mu sync.Mutex
	asked := make(map[QueryID]bool)
	timedOut := make(chan struct{}, 1)

	cb := Callbacks{
		Question: func(id QueryID) wire.Question {
			mu.Lock()
			asked[id] = true
			mu.Unlock()
			return wire.Question{Name: "stuck.example."}
		},
		Answer: func(id QueryID, pkt *wire.Packet) {},
		Timeout: func(id QueryID, q wire.Question) {
			select {
			case timedOut <- struct{}{}:
			default:
			}
		},
	}

	b := newTestBackend(t, []netip.AddrPort{resolver}, 1, 50*time.Millisecond, false, ep, cb)
	b.Queue(1)
	b.Start()

	select {
	case <-timedOut:
	case <-time.After(2 * time.Second):
		t.Fatal("query 1 never timed out")
	}

	b.mu.Lock()
	inFlight := b.resolvers[0].inFlight
	b.mu.Unlock()
	if inFlight != 1 {
		t.Fatalf("resolver inFlight = %d after eviction, want 1 (capacity should stay down)", inFlight)
	}

	b.Queue(2)
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	askedTwo := asked[2]
	mu.Unlock()
	if askedTwo {
		t.Error("query 2 was sent despite the resolver's only slot never being freed")
	}

	// Unstick the resolver before StopJoin: with capacity permanently
	// down and query 2 still queued, the send loop's capacity-retry loop
	// would otherwise spin forever, matching the fidelity note in
	// sendLoop's doc comment.
	b.mu.Lock()
	b.resolvers[0].inFlight = 0
	b.mu.Unlock()
}
