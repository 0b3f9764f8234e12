// Copyright © by sfan5. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package backend

import "net/netip"

// resolverSlot tracks one resolver's address, its remaining in-flight
// capacity and the next transaction id to hand out. All fields are only
// ever touched with Backend.mu held.
type resolverSlot struct {
	addr     netip.AddrPort
	capacity int // in-flight cap (maxInFlight); remaining slots are capacity - inFlight
	inFlight int
	txid     uint16 // wraps; see DESIGN.md's note on the txid-collision open question
}

func newResolverSlot(addr netip.AddrPort, maxInFlight int) *resolverSlot {
	return &resolverSlot{addr: addr, capacity: maxInFlight}
}

// acquireCapacity claims one in-flight slot if available.
func (r *resolverSlot) acquireCapacity() bool {
	if r.capacity <= r.inFlight {
		return false
	}
	r.inFlight++
	return true
}

// restoreCapacity releases one in-flight slot, either because an answer or
// a timeout resolved the query it was reserved for.
func (r *resolverSlot) restoreCapacity() {
	if r.inFlight > 0 {
		r.inFlight--
	}
}

// nextTxid returns the next transaction id for this resolver and advances
// the counter, wrapping at 65536.
func (r *resolverSlot) nextTxid() uint16 {
	id := r.txid
	r.txid++
	return id
}
