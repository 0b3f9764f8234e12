// Copyright © by sfan5. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"fmt"
	"net/netip"
)

// Question is the question section of an outgoing query.
type Question struct {
	Name  string
	Type  uint16
	Class uint16
}

// Answer is one decoded resource record from a response's answer section.
//
// Only A, AAAA, NS, CNAME and PTR records are given structured fields; any
// other type is retained through Raw so a caller can still print it.
type Answer struct {
	Name  string
	Type  uint16
	Class uint16
	TTL   int32

	IP     netip.Addr // populated for A and AAAA
	Target string     // populated for NS, CNAME and PTR
	Raw    string     // populated for everything else
}

// String renders the answer the way original_source/dns.cpp's
// DNSAnswer::toString does: name, ttl, class, type, rdata, tab-separated.
func (a Answer) String() string {
	var rdata string
	switch {
	case a.IP.IsValid():
		rdata = a.IP.String()
	case a.Target != "":
		rdata = a.Target
	default:
		rdata = a.Raw
	}
	return fmt.Sprintf("%s\t%d\t%s\t%s\t%s", a.Name, a.TTL, className(a.Class), typeName(a.Type), rdata)
}

// Packet is a decoded DNS response (or, for encoding, is not used directly:
// EncodeQuery takes a Question because outgoing packets never carry
// answers).
type Packet struct {
	Txid      uint16
	Rcode     int
	Questions []Question
	Answers   []Answer
}

func className(c uint16) string {
	switch c {
	case 1:
		return "IN"
	case 3:
		return "CH"
	case 4:
		return "HS"
	default:
		return fmt.Sprintf("CLASS%d", c)
	}
}

func typeName(t uint16) string {
	switch t {
	case 1:
		return "A"
	case 2:
		return "NS"
	case 5:
		return "CNAME"
	case 6:
		return "SOA"
	case 12:
		return "PTR"
	case 15:
		return "MX"
	case 16:
		return "TXT"
	case 28:
		return "AAAA"
	default:
		return fmt.Sprintf("TYPE%d", t)
	}
}
