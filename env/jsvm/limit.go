package jsvm

import (
	"context"
	"runtime"
	"runtime/metrics"
	"time"

	"github.com/DuHerb/code-squad/envexec"
	"go.uber.org/zap"
)

const heapObjectsMetric = "/memory/classes/heap/objects:bytes"

// heapObjectsBytes reads the bytes held by heap objects, live or not yet swept
func heapObjectsBytes() uint64 {
	s := []metrics.Sample{{Name: heapObjectsMetric}}
	metrics.Read(s)
	if s[0].Value.Kind() != metrics.KindUint64 {
		return 0
	}
	return s[0].Value.Uint64()
}

// startLimiter arms the wall clock and memory watchdog for a single run.
// Both interrupt the runtime pre-emptively, which makes tight loops stoppable.
// The returned function disarms them and waits for the watchdog to exit.
func (e *environment) startLimiter(ctx context.Context, timeout time.Duration) func() {
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)

		var timeC <-chan time.Time
		if timeout > 0 {
			t := time.NewTimer(timeout)
			defer t.Stop()
			timeC = t.C
		}

		var tickC <-chan time.Time
		if e.limit.Memory > 0 && e.conf.MemoryCheckInterval > 0 {
			t := time.NewTicker(e.conf.MemoryCheckInterval)
			defer t.Stop()
			tickC = t.C
		}

		for {
			select {
			case <-stop:
				return

			case <-ctx.Done():
				e.vm.Interrupt(envexec.NewError(envexec.StatusInternalError, "canceled: %v", ctx.Err()))
				return

			case <-timeC:
				e.vm.Interrupt(envexec.NewError(envexec.StatusTimeLimitExceeded,
					"Script execution timed out after %v", timeout))
				return

			case <-tickC:
				if used, exceeded := e.checkMemory(); exceeded {
					e.conf.Logger.Debug("memory limit exceeded",
						zap.Uint64("env", e.id),
						zap.Stringer("used", envexec.Size(used)),
						zap.Stringer("limit", e.limit.Memory))
					e.vm.Interrupt(envexec.NewError(envexec.StatusMemoryLimitExceeded,
						"Memory limit of %v exceeded", e.limit.Memory))
					return
				}
			}
		}
	}()

	var stopped bool
	return func() {
		if stopped {
			return
		}
		stopped = true
		close(stop)
		<-done
		e.sampleMemory()
	}
}

// sampleMemory records heap growth since the environment was built
func (e *environment) sampleMemory() uint64 {
	cur := heapObjectsBytes()
	var used uint64
	if cur > e.baseline {
		used = cur - e.baseline
	}
	for {
		p := e.peak.Load()
		if used <= p || e.peak.CompareAndSwap(p, used) {
			break
		}
	}
	return used
}

// checkMemory reports whether heap growth is over the limit. The heap counter
// includes garbage, so a hit is confirmed after a collection.
func (e *environment) checkMemory() (uint64, bool) {
	limit := uint64(e.limit.Memory)
	if used := e.sampleMemory(); used <= limit {
		return used, false
	}
	runtime.GC()

	cur := heapObjectsBytes()
	if cur <= e.baseline {
		return 0, false
	}
	used := cur - e.baseline
	return used, used > limit
}
