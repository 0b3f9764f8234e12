// Copyright © by sfan5. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

// Package endpoint implements the datagram capability consumed by package
// backend: send a packet to an address, receive the next packet with a
// bound on how long to wait, and close.
//
// UDPEndpoint polls the underlying file descriptor with golang.org/x/sys/unix
// rather than relying on SetReadDeadline, mirroring original_source's use of
// poll(2) in socket.cpp. The wait additionally races against a done channel
// so Close during a poll never blocks a caller past its poll interval.
package endpoint
