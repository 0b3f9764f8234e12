// Copyright © by sfan5. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"time"

	"go.uber.org/zap"

	"github.com/sfan5/dnshammer/wire"
)

const idleSleep = 25 * time.Millisecond
const noCapacitySleep = 10 * time.Millisecond

// sendLoop pops queued ids, finds a resolver with spare capacity for each
// and sends it, mirroring original_source/backend.cpp's send_thread.
//
// Two quirks are kept for fidelity rather than "fixed": an id popped in the
// same iteration should_exit turns true is silently dropped instead of
// requeued, and the round-robin retry-for-capacity loop below does not
// itself check should_exit, so while every resolver is saturated the loop
// (and with it StopJoin) waits until some resolver's capacity is restored,
// however long that takes.
func (b *Backend) sendLoop() {
	defer b.wg.Done()
	for {
		if b.shouldExit() {
			return
		}

		id, ok := b.popQueued()
		if !ok {
			time.Sleep(idleSleep)
			continue
		}
		if b.shouldExit() {
			// id is dropped here, not requeued; see doc comment above.
			return
		}

		resolver, txid := b.acquireResolver()

		q := b.cb.Question(id)

		data, err := b.codec.EncodeQuery(txid, wire.FlagRD, q)
		if err != nil {
			b.log.Warn("encode query failed, capacity leaked", zap.Error(err), zap.String("name", q.Name))
			continue
		}
		if err := b.ep.SendTo(resolver.addr, data); err != nil {
			b.log.Error("send failed, capacity leaked", zap.Error(err), zap.Stringer("resolver", resolver.addr))
			continue
		}

		key := makePendingKey(resolver.addr.Addr(), txid)
		b.mu.Lock()
		b.pending.insert(key, &pendingRecord{
			resolver: resolver,
			question: q,
			id:       id,
			sentAt:   time.Now(),
		})
		b.mu.Unlock()
		b.sent.Add(1)
	}
}

// popQueued removes and returns the first queued id, if any.
func (b *Backend) popQueued() (QueryID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.sendQueue) == 0 {
		return 0, false
	}
	id := b.sendQueue[0]
	b.sendQueue = b.sendQueue[1:]
	return id, true
}

// acquireResolver round-robins over the resolver pool until it finds one
// with spare capacity, sleeping between full passes. It deliberately does
// not check should_exit; see sendLoop's doc comment.
func (b *Backend) acquireResolver() (*resolverSlot, uint16) {
	for {
		b.mu.Lock()
		n := len(b.resolvers)
		for i := 0; i < n; i++ {
			idx := (b.nextR + i) % n
			r := b.resolvers[idx]
			if r.acquireCapacity() {
				b.nextR = (idx + 1) % n
				txid := r.nextTxid()
				b.mu.Unlock()
				return r, txid
			}
		}
		b.mu.Unlock()
		time.Sleep(noCapacitySleep)
	}
}

// receiveLoop waits for datagrams and matches them back to a pending query
// by resolver address and transaction id.
func (b *Backend) receiveLoop() {
	defer b.wg.Done()
	buf := make([]byte, 65535)
	for {
		if b.shouldExit() {
			return
		}

		n, src, ok, err := b.ep.RecvFrom(buf)
		if err != nil {
			// A poll timeout or a clean Close is reported as ok=false,
			// err=nil; an actual I/O failure here is terminal, not a
			// condition to spin and retry on.
			b.log.Error("recv failed, stopping receive loop", zap.Error(err))
			return
		}
		if !ok {
			continue
		}

		pkt, err := b.codec.Decode(buf[:n])
		if err != nil {
			b.log.Warn("dropping unparseable datagram", zap.Stringer("src", src), zap.Error(err))
			continue
		}

		key := makePendingKey(src.Addr(), pkt.Txid)
		b.mu.Lock()
		rec, found := b.pending.take(key)
		if found {
			rec.resolver.restoreCapacity()
		}
		b.mu.Unlock()

		if !found {
			b.log.Warn("dropping unmatched answer", zap.Stringer("src", src), zap.Uint16("txid", pkt.Txid))
			continue
		}

		b.cb.Answer(rec.id, pkt)
		b.received.Add(1)
	}
}

// timeoutLoop evicts pending queries older than the configured timeout,
// scanning every timeout/2 as original_source/backend.cpp's timeout_thread
// does.
func (b *Backend) timeoutLoop() {
	defer b.wg.Done()
	interval := b.timeout / 2
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
		}

		now := time.Now()
		b.mu.Lock()
		expired := b.pending.expired(now, b.timeout)
		if b.timeoutKeepCapacity {
			for _, rec := range expired {
				rec.resolver.restoreCapacity()
			}
		}
		b.mu.Unlock()

		for _, rec := range expired {
			b.cb.Timeout(rec.id, rec.question)
		}
	}
}
