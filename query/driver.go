// Copyright © by sfan5. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"errors"
	"fmt"
	"io"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/caffix/queue"
	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/sfan5/dnshammer/backend"
	"github.com/sfan5/dnshammer/endpoint"
	"github.com/sfan5/dnshammer/wire"
)

// ErrStall is returned by Run when the send queue stopped draining:
// nothing left a resolver for Config.Timeout+1 consecutive seconds while
// queries were still queued. original_source's query_main treats this the
// same way — as fatal, not as "we're simply done" — because a non-empty
// queue means the pipeline wedged rather than finished.
var ErrStall = errors.New("query: pipeline stalled with queries still queued")

// Config configures a Driver.
type Config struct {
	Resolvers   []netip.AddrPort
	Questions   []Question
	MaxInFlight int
	Timeout     time.Duration
	Logger      *zap.Logger
	Output      io.Writer
	Quiet       bool
}

// Result is one answered question. Success is false when the rcode is not
// NOERROR or the answer section is empty.
type Result struct {
	Question Question
	Success  bool
	Rcode    int
	Answers  []wire.Answer
}

// Driver runs a full batch of questions through a backend.Backend and
// reports on the outcome.
type Driver struct {
	cfg Config
	log *zap.Logger

	be  *backend.Backend
	ep  *endpoint.UDPEndpoint
	out queue.Queue

	mu      sync.Mutex
	success []string // names that resolved successfully, for the domain report

	totalSent atomic.Uint64
	answered  atomic.Uint64
	timedOut  atomic.Uint64
}

// NewDriver builds a Driver. It does not open any sockets until Run.
func NewDriver(cfg Config) *Driver {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{
		cfg: cfg,
		log: log,
		out: queue.NewQueue(),
	}
}

// Run drives every question to completion or to the stall timeout,
// whichever comes first, and prints a final report to cfg.Output.
func (d *Driver) Run() error {
	ep, err := endpoint.NewUDP("", time.Second)
	if err != nil {
		return fmt.Errorf("query: open endpoint: %w", err)
	}
	d.ep = ep
	defer ep.Close()

	d.be = backend.New(backend.Config{
		Resolvers:   d.cfg.Resolvers,
		MaxInFlight: d.cfg.MaxInFlight,
		Timeout:     d.cfg.Timeout,
		Codec:       wire.NewCodec(),
		Endpoint:    ep,
		Logger:      d.log,
		Callbacks: backend.Callbacks{
			Question: d.onQuestion,
			Answer:   d.onAnswer,
			Timeout:  d.onTimeout,
		},
	})

	for i := range d.cfg.Questions {
		d.be.Queue(backend.QueryID(i))
	}

	d.be.Start()
	runErr := d.watchProgress()

	// A clean finish joins the pipeline before reporting. A stall does not:
	// with resolvers gone silent, sendLoop can be stuck inside
	// acquireResolver waiting for capacity that will never come back, and
	// that loop does not observe shouldExit, so StopJoin's wg.Wait() would
	// block forever. original_source/query.cpp:59-63 hits this same fork
	// and takes it by calling _Exit(1) without ever calling stopJoin() —
	// this mirrors that: skip the join, report what happened so far, and
	// let main's os.Exit(1) tear the process (and its leaked goroutines)
	// down instead.
	if runErr == nil {
		d.be.StopJoin()
	}

	d.printReport()
	return runErr
}

func (d *Driver) onQuestion(id backend.QueryID) wire.Question {
	q := d.cfg.Questions[id]
	return wire.Question{Name: q.Name, Type: q.Type, Class: dns.ClassINET}
}

func (d *Driver) onAnswer(id backend.QueryID, pkt *wire.Packet) {
	d.answered.Add(1)
	q := d.cfg.Questions[id]
	success := pkt.Rcode == dns.RcodeSuccess && len(pkt.Answers) > 0

	if success {
		d.mu.Lock()
		d.success = append(d.success, q.Name)
		d.mu.Unlock()
	}

	d.out.Append(&Result{Question: q, Success: success, Rcode: pkt.Rcode, Answers: pkt.Answers})
}

// onTimeout requeues unconditionally: application-level retry, bounded
// only by the stall watch in Run, matching original_source's cb_timeout.
func (d *Driver) onTimeout(id backend.QueryID, _ wire.Question) {
	d.timedOut.Add(1)
	d.be.Queue(id)
}
