// Copyright © by sfan5. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package endpoint

import (
	"net"
	"net/netip"
	"time"
)

// Endpoint is the datagram transport capability the backend depends on.
// Implementations must be safe for concurrent SendTo and RecvFrom calls
// from separate goroutines (the send loop and receive loop each own one
// direction) but never need to support concurrent calls to the same
// method.
type Endpoint interface {
	// SendTo writes a single datagram to dst.
	SendTo(dst netip.AddrPort, data []byte) error

	// RecvFrom waits up to the endpoint's configured poll interval for a
	// datagram to arrive. It returns ok=false, err=nil on a timeout, which
	// the receive loop treats as "nothing arrived, check should_exit and
	// poll again" — see backend.receiveLoop.
	RecvFrom(buf []byte) (n int, src netip.AddrPort, ok bool, err error)

	// Close releases the underlying socket. Any RecvFrom blocked in a poll
	// returns promptly with ok=false, err=nil rather than hanging on a
	// closed descriptor.
	Close() error
}

// NewUDP opens a UDP endpoint bound to laddr (an empty string picks an
// ephemeral port on all interfaces). pollInterval bounds how long a single
// RecvFrom call waits before returning ok=false to let the caller re-check
// its exit condition.
func NewUDP(laddr string, pollInterval time.Duration) (*UDPEndpoint, error) {
	conn, err := net.ListenPacket("udp", laddr)
	if err != nil {
		return nil, err
	}
	return newUDPEndpoint(conn, pollInterval)
}
