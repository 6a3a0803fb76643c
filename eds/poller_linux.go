//go:build linux

/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package eds

import (
	"time"

	"golang.org/x/sys/unix"
)

// epollPoller is the Linux edge-triggered Poller, built on
// epoll_create/epoll_ctl/epoll_wait via golang.org/x/sys/unix.
type epollPoller struct {
	epfd int
}

func newPoller() (Poller, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollPoller{epfd: fd}, nil
}

func epollFlags(readable, writable bool) uint32 {
	flags := uint32(unix.EPOLLET | unix.EPOLLHUP | unix.EPOLLERR | unix.EPOLLRDHUP)
	if readable {
		flags |= unix.EPOLLIN
	}
	if writable {
		flags |= unix.EPOLLOUT
	}
	return flags
}

func (p *epollPoller) Add(fd int, readable, writable bool) error {
	ev := unix.EpollEvent{Events: epollFlags(readable, writable), Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (p *epollPoller) Remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

func (p *epollPoller) Wait(timeout time.Duration) ([]ReadinessEvent, error) {
	raw := make([]unix.EpollEvent, 256)
	n, err := unix.EpollWait(p.epfd, raw, int(timeout/time.Millisecond))
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	out := make([]ReadinessEvent, 0, n)
	for i := 0; i < n; i++ {
		e := raw[i]
		out = append(out, ReadinessEvent{
			FD:       int(e.Fd),
			Readable: e.Events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0,
			Writable: e.Events&unix.EPOLLOUT != 0,
			Error:    e.Events&unix.EPOLLERR != 0,
			Hangup:   e.Events&(unix.EPOLLHUP|unix.EPOLLRDHUP) != 0,
		})
	}
	return out, nil
}

func (p *epollPoller) Close() error {
	return unix.Close(p.epfd)
}

// tuneListenSocket applies the socket options mandates on
// the listening socket: non-blocking, SO_REUSEADDR. (SO_LINGER and
// TCP_DEFER_ACCEPT are per spec client-socket / accept-path options;
// DEFER_ACCEPT(0) is a no-op default so it is only set on accepted
// sockets below.)
func tuneListenSocket(fd int) error {
	if err := unix.SetNonblock(fd, true); err != nil {
		return err
	}
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
}

// tuneClientSocket applies the per-spec options to an accepted socket:
// non-blocking, TCP_NODELAY, SO_LINGER(onoff=1, linger=0),
// TCP_DEFER_ACCEPT(0).
func tuneClientSocket(fd int) error {
	if err := unix.SetNonblock(fd, true); err != nil {
		return err
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
		return err
	}
	if err := unix.SetsockoptLinger(fd, unix.SOL_SOCKET, &unix.Linger{Onoff: 1, Linger: 0}); err != nil {
		return err
	}
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_DEFER_ACCEPT, 0)
}
