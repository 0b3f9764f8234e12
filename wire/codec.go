// Copyright © by sfan5. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"errors"
	"net/netip"

	"github.com/miekg/dns"
)

// ErrNotAnswer is returned by Decode when the packet's answer bit is clear.
// Under spec.md §7 kind 1 this is treated the same as any other decode
// failure: log and drop.
var ErrNotAnswer = errors.New("wire: answer bit is not set")

// ErrIsAnswer is returned by EncodeQuery if asked to build a packet with
// the answer bit set; a codec must reject that, per spec.md §4.7.
var ErrIsAnswer = errors.New("wire: cannot encode a query with the answer bit set")

// Flags are the outgoing header bits EncodeQuery is asked to set. Only the
// bits below are meaningful; anything else is ignored.
type Flags uint16

const (
	FlagRD Flags = 1 << 8  // recursion desired
	FlagQR Flags = 1 << 15 // response bit — must never be requested on a query
)

// Codec is the capability the backend depends on to turn a Question into
// bytes and bytes into a Packet. Defined as an interface so tests can
// supply a fake that misbehaves on purpose (property P3, P6 support).
type Codec interface {
	EncodeQuery(txid uint16, flags Flags, q Question) ([]byte, error)
	Decode(data []byte) (*Packet, error)
}

// DNSCodec implements Codec on top of github.com/miekg/dns.
type DNSCodec struct{}

// NewCodec returns the standard RFC 1035 codec.
func NewCodec() *DNSCodec { return &DNSCodec{} }

// EncodeQuery builds a query with opcode QUERY, one question, zero
// answer/authority/additional records — see spec.md §6. It rejects flags
// with the answer bit set: a codec must never be able to produce something
// that would be mistaken for a response.
func (DNSCodec) EncodeQuery(txid uint16, flags Flags, q Question) ([]byte, error) {
	if flags&FlagQR != 0 {
		return nil, ErrIsAnswer
	}
	m := new(dns.Msg)
	m.Id = txid
	m.RecursionDesired = flags&FlagRD != 0
	m.Response = false
	m.Question = []dns.Question{{
		Name:   dns.Fqdn(q.Name),
		Qtype:  q.Type,
		Qclass: qclassOrDefault(q.Class),
	}}
	return m.Pack()
}

// Decode unpacks a response datagram. It rejects anything with the answer
// bit clear, matching the codec contract in spec.md §4.7.
func (DNSCodec) Decode(data []byte) (*Packet, error) {
	m := new(dns.Msg)
	if err := m.Unpack(data); err != nil {
		return nil, err
	}
	if !m.Response {
		return nil, ErrNotAnswer
	}

	pkt := &Packet{
		Txid:      m.Id,
		Rcode:     m.Rcode,
		Questions: make([]Question, 0, len(m.Question)),
		Answers:   make([]Answer, 0, len(m.Answer)),
	}
	for _, q := range m.Question {
		pkt.Questions = append(pkt.Questions, Question{Name: q.Name, Type: q.Qtype, Class: q.Qclass})
	}
	for _, rr := range m.Answer {
		pkt.Answers = append(pkt.Answers, convertRR(rr))
	}
	return pkt, nil
}

func convertRR(rr dns.RR) Answer {
	hdr := rr.Header()
	a := Answer{
		Name:  hdr.Name,
		Type:  hdr.Rrtype,
		Class: hdr.Class,
		TTL:   int32(hdr.Ttl),
	}
	switch v := rr.(type) {
	case *dns.A:
		if ip, ok := netip.AddrFromSlice(v.A.To4()); ok {
			a.IP = ip
		}
	case *dns.AAAA:
		if ip, ok := netip.AddrFromSlice(v.AAAA.To16()); ok {
			a.IP = ip
		}
	case *dns.NS:
		a.Target = v.Ns
	case *dns.CNAME:
		a.Target = v.Target
	case *dns.PTR:
		a.Target = v.Ptr
	default:
		a.Raw = rr.String()
	}
	return a
}

func qclassOrDefault(c uint16) uint16 {
	if c == 0 {
		return dns.ClassINET
	}
	return c
}
