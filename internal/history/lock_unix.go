//go:build unix

package history

import (
	stderrors "errors"
	"syscall"
)

// processGone reports whether no process with pid exists.
func processGone(pid int) bool {
	return stderrors.Is(syscall.Kill(pid, 0), syscall.ESRCH)
}
