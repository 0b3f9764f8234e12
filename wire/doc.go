// Copyright © by sfan5. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

// Package wire implements the DNS wire-format codec capability consumed by
// package backend: encoding an outgoing question and decoding an incoming
// response into the fields the backend needs to match it back to a pending
// query (transaction id, answer bit) and the fields the application needs
// to report a result (rcode, answer records).
//
// The codec is built on github.com/miekg/dns rather than a hand-rolled
// RFC 1035 reader/writer; see DESIGN.md for the grounding.
package wire
