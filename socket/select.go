package socket

import (
	"time"

	neterrors "github.com/wippyai/netcore/errors"
)

const (
	readEvents   = PollIn | PollHup
	writeEvents  = PollOut
	exceptEvents = PollPri | PollErr
)

// Select waits up to timeout until any socket in the three lists is ready
// for reading, writing, or has an exceptional condition. Each non-nil list
// is replaced by its ready members in their original order and the total
// count across lists is returned. Null and closed sockets are dropped
// from the lists.
//
// With no usable sockets Select sleeps for timeout and returns 0. A zero
// or negative timeout checks without waiting.
func Select(read, write, except *[]Socket, timeout time.Duration) (int, error) {
	if timeout < 0 {
		timeout = 0
	}

	var fds []PollFD
	index := make(map[*handle]int)
	var sys System

	collect := func(list *[]Socket, events int16) {
		if list == nil {
			return
		}
		for _, s := range *list {
			if !s.IsOpen() {
				continue
			}
			if i, ok := index[s.h]; ok {
				fds[i].Events |= events
				continue
			}
			if sys == nil {
				sys = s.h.sys
			}
			index[s.h] = len(fds)
			fds = append(fds, PollFD{FD: s.h.fd, Events: events})
		}
	}
	collect(read, readEvents)
	collect(write, writeEvents)
	collect(except, exceptEvents)

	if len(fds) == 0 {
		if timeout > 0 {
			clk.Sleep(timeout)
		}
		filter(read, nil, nil, 0)
		filter(write, nil, nil, 0)
		filter(except, nil, nil, 0)
		return 0, nil
	}

	if _, err := pollRetry(sys, fds, timeout); err != nil {
		return 0, mapErrno(neterrors.PhaseSelect, err, nil)
	}

	n := filter(read, fds, index, readEvents|PollErr)
	n += filter(write, fds, index, writeEvents|PollErr)
	n += filter(except, fds, index, exceptEvents)
	return n, nil
}

// filter keeps the members of list whose revents intersect mask.
func filter(list *[]Socket, fds []PollFD, index map[*handle]int, mask int16) int {
	if list == nil {
		return 0
	}
	ready := (*list)[:0]
	for _, s := range *list {
		if !s.IsOpen() {
			continue
		}
		i, ok := index[s.h]
		if !ok {
			continue
		}
		if fds[i].Revents&mask != 0 {
			ready = append(ready, s)
		}
	}
	// Drop references held in the tail.
	clear((*list)[len(ready):])
	*list = ready
	return len(ready)
}
