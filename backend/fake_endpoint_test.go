// Copyright © by sfan5. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"encoding/binary"
	"net/netip"
	"sync"

	"github.com/sfan5/dnshammer/wire"
)

// fakeCodec encodes a query as [txid:2][name...] and decodes the same shape
// back into a one-answer response packet, so tests never touch real DNS
// wire format.
type fakeCodec struct{}

func (fakeCodec) EncodeQuery(txid uint16, flags wire.Flags, q wire.Question) ([]byte, error) {
	if flags&wire.FlagQR != 0 {
		return nil, wire.ErrIsAnswer
	}
	buf := make([]byte, 2+len(q.Name))
	binary.BigEndian.PutUint16(buf, txid)
	copy(buf[2:], q.Name)
	return buf, nil
}

func (fakeCodec) Decode(data []byte) (*wire.Packet, error) {
	txid := binary.BigEndian.Uint16(data[:2])
	name := string(data[2:])
	return &wire.Packet{
		Txid:  txid,
		Rcode: 0,
		Answers: []wire.Answer{
			{Name: name, Type: 1, Class: 1, TTL: 60, Raw: "1.2.3.4"},
		},
	}, nil
}

// fakeEndpoint is an in-process Endpoint. SendTo, when respond is true,
// immediately loops the datagram back to RecvFrom as if the resolver it was
// sent to answered instantly, echoing from that same address; when false,
// the datagram is swallowed so the caller can exercise the timeout path.
type fakeEndpoint struct {
	respond bool

	mu      sync.Mutex
	inbox   []inboxEntry
	signal  chan struct{}
	closed  bool
	sentLog []netip.AddrPort
}

type inboxEntry struct {
	from netip.AddrPort
	data []byte
}

func newFakeEndpoint(respond bool) *fakeEndpoint {
	return &fakeEndpoint{
		respond: respond,
		signal:  make(chan struct{}, 1024),
	}
}

// setRespond toggles whether future sends are echoed back; safe to call
// while the backend is running.
func (f *fakeEndpoint) setRespond(v bool) {
	f.mu.Lock()
	f.respond = v
	f.mu.Unlock()
}

func (f *fakeEndpoint) SendTo(dst netip.AddrPort, data []byte) error {
	f.mu.Lock()
	f.sentLog = append(f.sentLog, dst)
	respond := f.respond
	if respond {
		cp := append([]byte(nil), data...)
		f.inbox = append(f.inbox, inboxEntry{from: dst, data: cp})
	}
	f.mu.Unlock()
	if respond {
		select {
		case f.signal <- struct{}{}:
		default:
		}
	}
	return nil
}

func (f *fakeEndpoint) RecvFrom(buf []byte) (int, netip.AddrPort, bool, error) {
	select {
	case <-f.signal:
	default:
		return 0, netip.AddrPort{}, false, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inbox) == 0 {
		return 0, netip.AddrPort{}, false, nil
	}
	entry := f.inbox[0]
	f.inbox = f.inbox[1:]
	n := copy(buf, entry.data)
	return n, entry.from, true, nil
}

func (f *fakeEndpoint) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}
