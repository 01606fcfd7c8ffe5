package socket

import (
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
)

// clk drives timeout bookkeeping across interrupted waits.
var clk clock.Clock = clock.New()

// infinite is passed to System.Poll to wait without a bound.
const infinite time.Duration = -1

type deadline struct {
	start   time.Time
	timeout time.Duration
}

func newDeadline(timeout time.Duration) deadline {
	return deadline{start: clk.Now(), timeout: timeout}
}

// remaining returns the time left, never negative; infinite stays infinite.
func (d deadline) remaining() time.Duration {
	if d.timeout < 0 {
		return infinite
	}
	left := d.timeout - clk.Since(d.start)
	if left < 0 {
		return 0
	}
	return left
}

// pollRetry runs one readiness wait, restarting with the remaining time
// when a signal interrupts it.
func pollRetry(sys System, fds []PollFD, timeout time.Duration) (int, error) {
	dl := newDeadline(timeout)
	wait := timeout
	for {
		n, err := sys.Poll(fds, wait)
		if err == nil || !isErrno(err, syscall.EINTR) {
			return n, err
		}
		wait = dl.remaining()
		Logger().Debug("poll interrupted, retrying")
	}
}
