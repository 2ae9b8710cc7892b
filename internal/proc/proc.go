// Package proc answers liveness questions about MMV writer processes.
package proc

import (
	"context"

	"github.com/shirou/gopsutil/v3/process"
)

// Alive reports whether a process with the given pid currently exists.
// Non-positive pids are never alive.
func Alive(ctx context.Context, pid int32) bool {
	if pid <= 0 {
		return false
	}

	ok, err := process.PidExistsWithContext(ctx, pid)
	if err != nil {
		return false
	}

	return ok
}

// Name returns the executable name of pid, or an empty string when it cannot
// be determined.
func Name(ctx context.Context, pid int32) string {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return ""
	}
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return ""
	}

	return name
}
