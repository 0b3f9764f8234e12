// Copyright © by sfan5. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package endpoint

import (
	"net"
	"net/netip"
	"testing"
	"time"
)

func TestUDPEndpointRoundTrip(t *testing.T) {
	server, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket: %v", err)
	}
	defer server.Close()
	serverAddr := netip.MustParseAddrPort(server.LocalAddr().String())

	client, err := NewUDP("127.0.0.1:0", 500*time.Millisecond)
	if err != nil {
		t.Fatalf("NewUDP: %v", err)
	}
	defer client.Close()

	payload := []byte("hello")
	if err := client.SendTo(serverAddr, payload); err != nil {
		t.Fatalf("SendTo: %v", err)
	}

	buf := make([]byte, 64)
	n, addr, err := server.ReadFrom(buf)
	if err != nil {
		t.Fatalf("server ReadFrom: %v", err)
	}
	if string(buf[:n]) != "hello" {
		t.Fatalf("server got %q, want %q", buf[:n], "hello")
	}

	echoAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		t.Fatalf("unexpected addr type %T", addr)
	}
	if _, err := server.WriteTo([]byte("world"), echoAddr); err != nil {
		t.Fatalf("server WriteTo: %v", err)
	}

	rbuf := make([]byte, 64)
	n, src, ok, err := client.RecvFrom(rbuf)
	if err != nil {
		t.Fatalf("RecvFrom: %v", err)
	}
	if !ok {
		t.Fatal("RecvFrom reported no data, want the echoed datagram")
	}
	if string(rbuf[:n]) != "world" {
		t.Fatalf("client got %q, want %q", rbuf[:n], "world")
	}
	if src.Addr() != serverAddr.Addr() {
		t.Errorf("src = %v, want %v", src.Addr(), serverAddr.Addr())
	}
}

func TestUDPEndpointRecvTimesOut(t *testing.T) {
	client, err := NewUDP("127.0.0.1:0", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewUDP: %v", err)
	}
	defer client.Close()

	buf := make([]byte, 64)
	start := time.Now()
	_, _, ok, err := client.RecvFrom(buf)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("RecvFrom: %v", err)
	}
	if ok {
		t.Fatal("RecvFrom reported data arriving, want a timeout")
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("RecvFrom took %v, want it bounded by the poll interval", elapsed)
	}
}

func TestUDPEndpointCloseUnblocksRecv(t *testing.T) {
	client, err := NewUDP("127.0.0.1:0", 5*time.Second)
	if err != nil {
		t.Fatalf("NewUDP: %v", err)
	}

	done := make(chan struct{})
	go func() {
		buf := make([]byte, 64)
		client.RecvFrom(buf)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RecvFrom did not return promptly after Close")
	}
}
