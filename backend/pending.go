// Copyright © by sfan5. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"encoding/binary"
	"net/netip"
	"time"

	"github.com/sfan5/dnshammer/wire"
)

// pendingKey identifies one in-flight query: the resolver's address, as a
// 16-byte IPv6 (or IPv4-mapped) representation, followed by the big-endian
// transaction id. netip.Addr.As16 already produces the IPv4-mapped form for
// IPv4 addresses, so no separate branch is needed the way
// original_source/socket.cpp needs one.
type pendingKey [18]byte

func makePendingKey(addr netip.Addr, txid uint16) pendingKey {
	var k pendingKey
	a16 := addr.As16()
	copy(k[:16], a16[:])
	binary.BigEndian.PutUint16(k[16:], txid)
	return k
}

// pendingRecord is what the send loop stashes for a query it just sent, so
// the receive loop and the timeout loop can find it again.
type pendingRecord struct {
	resolver *resolverSlot
	question wire.Question
	id       QueryID
	sentAt   time.Time
}

// pendingTable is the map of in-flight queries keyed by pendingKey. All
// access happens with Backend.mu held.
type pendingTable map[pendingKey]*pendingRecord

func (t pendingTable) insert(key pendingKey, rec *pendingRecord) {
	t[key] = rec
}

func (t pendingTable) take(key pendingKey) (*pendingRecord, bool) {
	rec, ok := t[key]
	if ok {
		delete(t, key)
	}
	return rec, ok
}

// expired removes and returns every record whose sentAt is older than
// timeout as of now. Go's map semantics make it safe to delete the current
// key during range, so this does the eviction in a single scan rather than
// the scan/evict/restart loop original_source/backend.cpp needs to dodge
// iterator invalidation.
func (t pendingTable) expired(now time.Time, timeout time.Duration) []*pendingRecord {
	var out []*pendingRecord
	for key, rec := range t {
		if now.Sub(rec.sentAt) >= timeout {
			delete(t, key)
			out = append(out, rec)
		}
	}
	return out
}
