// Copyright © by sfan5. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.
// SPDX-License-Identifier: Apache-2.0

package endpoint

import (
	"errors"
	"net"
	"net/netip"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// UDPEndpoint is the production Endpoint backed by a real UDP socket. Its
// RecvFrom polls the descriptor with unix.Poll instead of a read deadline,
// the same mechanism original_source/socket.cpp uses; the poll runs in its
// own goroutine and RecvFrom returns as soon as Close is called, so shutdown
// never waits out a full poll interval.
type UDPEndpoint struct {
	conn         *net.UDPConn
	pollInterval time.Duration

	sendMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
}

func newUDPEndpoint(pc net.PacketConn, pollInterval time.Duration) (*UDPEndpoint, error) {
	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close()
		return nil, errors.New("endpoint: not a UDP connection")
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &UDPEndpoint{
		conn:         conn,
		pollInterval: pollInterval,
		done:         make(chan struct{}),
	}, nil
}

// LocalAddr returns the address the endpoint is bound to.
func (e *UDPEndpoint) LocalAddr() net.Addr { return e.conn.LocalAddr() }

func (e *UDPEndpoint) SendTo(dst netip.AddrPort, data []byte) error {
	e.sendMu.Lock()
	defer e.sendMu.Unlock()
	_, err := e.conn.WriteToUDPAddrPort(data, dst)
	return err
}

// RecvFrom blocks until a datagram is ready, the poll interval elapses, or
// Close is called. Only one goroutine may call RecvFrom at a time; the
// backend's receive loop is the sole caller.
func (e *UDPEndpoint) RecvFrom(buf []byte) (n int, src netip.AddrPort, ok bool, err error) {
	rawConn, err := e.conn.SyscallConn()
	if err != nil {
		return 0, netip.AddrPort{}, false, err
	}

	ready, perr := e.pollReadable(rawConn)
	if perr != nil {
		return 0, netip.AddrPort{}, false, perr
	}
	if !ready {
		return 0, netip.AddrPort{}, false, nil
	}

	n, addrPort, err := e.conn.ReadFromUDPAddrPort(buf)
	if err != nil {
		select {
		case <-e.done:
			return 0, netip.AddrPort{}, false, nil
		default:
		}
		return 0, netip.AddrPort{}, false, err
	}
	return n, addrPort, true, nil
}

// pollReadable waits for the socket to become readable or for the poll
// interval to elapse, racing against e.done so a concurrent Close returns
// promptly rather than waiting out the interval.
func (e *UDPEndpoint) pollReadable(rawConn interface{ Control(func(fd uintptr)) error }) (bool, error) {
	type result struct {
		ready bool
		err   error
	}
	resCh := make(chan result, 1)

	go func() {
		var pollErr error
		ready := false
		ctrlErr := rawConn.Control(func(fd uintptr) {
			fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
			n, err := unix.Poll(fds, int(e.pollInterval/time.Millisecond))
			if err != nil {
				if err == unix.EINTR {
					return
				}
				pollErr = err
				return
			}
			ready = n > 0 && fds[0].Revents&unix.POLLIN != 0
		})
		if ctrlErr != nil && pollErr == nil {
			pollErr = ctrlErr
		}
		resCh <- result{ready: ready, err: pollErr}
	}()

	select {
	case <-e.done:
		return false, nil
	case r := <-resCh:
		return r.ready, r.err
	}
}

func (e *UDPEndpoint) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.done)
		err = e.conn.Close()
	})
	return err
}
