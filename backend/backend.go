// Copyright © by sfan5. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sfan5/dnshammer/endpoint"
	"github.com/sfan5/dnshammer/wire"
)

// Config configures a Backend.
type Config struct {
	Resolvers   []netip.AddrPort
	MaxInFlight int           // per-resolver in-flight cap
	Timeout     time.Duration // how long a query may go unanswered
	Codec       wire.Codec
	Endpoint    endpoint.Endpoint
	Callbacks   Callbacks
	Logger      *zap.Logger

	// TimeoutKeepCapacity controls what happens to a resolver's in-flight
	// slot when a query against it times out. If true, the slot is
	// restored immediately, same as on a normal answer. If false, the
	// slot stays down: a resolver that never answers effectively loses
	// capacity permanently, one slot per timed-out query.
	TimeoutKeepCapacity bool
}

// Stats is a snapshot of throughput counters. Sent and Received are
// reset-on-read: each call to Backend.Stats returns the counts accumulated
// since the previous call.
type Stats struct {
	Sent      uint64
	Received  uint64
	QueueSize int
}

// Backend runs the send/receive/timeout pipeline described in package doc.
// The zero value is not usable; construct with New.
type Backend struct {
	cfg                 Config
	log                 *zap.Logger
	codec               wire.Codec
	ep                  endpoint.Endpoint
	cb                  Callbacks
	timeout             time.Duration
	timeoutKeepCapacity bool

	mu        sync.Mutex
	resolvers []*resolverSlot
	nextR     int
	sendQueue []QueryID
	pending   pendingTable

	sent     atomic.Uint64
	received atomic.Uint64

	done   chan struct{}
	wg     sync.WaitGroup
	closed atomic.Bool
}

// New builds a Backend from cfg. It does not start any goroutines; call
// Start to do that.
func New(cfg Config) *Backend {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	resolvers := make([]*resolverSlot, len(cfg.Resolvers))
	for i, addr := range cfg.Resolvers {
		resolvers[i] = newResolverSlot(addr, cfg.MaxInFlight)
	}
	return &Backend{
		cfg:                 cfg,
		log:                 log,
		codec:               cfg.Codec,
		ep:                  cfg.Endpoint,
		cb:                  cfg.Callbacks,
		timeout:             cfg.Timeout,
		timeoutKeepCapacity: cfg.TimeoutKeepCapacity,
		resolvers:           resolvers,
		pending:             make(pendingTable),
		done:                make(chan struct{}),
	}
}

// Queue enqueues id for sending. Safe to call from any goroutine, including
// from within a Timeout or Answer callback.
func (b *Backend) Queue(id QueryID) {
	b.mu.Lock()
	b.sendQueue = append(b.sendQueue, id)
	b.mu.Unlock()
}

// Start launches the send, receive and timeout loops.
func (b *Backend) Start() {
	b.wg.Add(3)
	go b.sendLoop()
	go b.receiveLoop()
	go b.timeoutLoop()
}

// StopJoin signals all three loops to exit and waits for them to finish.
// Unlike original_source/backend.cpp's stopJoin, it does not close the
// endpoint itself — ownership of the endpoint's lifetime stays with
// whoever constructed it (query.Driver.Run does so via defer). receiveLoop
// still exits promptly on its own poll-timeout/shouldExit path either way.
func (b *Backend) StopJoin() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.done)
	}
	b.wg.Wait()
}

// Stats returns and resets the sent/received counters, alongside the
// current send-queue depth.
func (b *Backend) Stats() Stats {
	b.mu.Lock()
	depth := len(b.sendQueue)
	b.mu.Unlock()
	return Stats{
		Sent:      b.sent.Swap(0),
		Received:  b.received.Swap(0),
		QueueSize: depth,
	}
}

func (b *Backend) shouldExit() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}
