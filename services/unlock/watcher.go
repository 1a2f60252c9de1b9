package unlock

import (
	"context"
	"time"

	"github.com/sahilchouksey/learnhub-api/services/catalog"
)

// Clock returns the current time
type Clock func() time.Time

// Watch re-evaluates lock states every interval and calls fn with the new
// states whenever any module changes. fn is also called once at start.
// It returns when ctx is done.
func Watch(ctx context.Context, interval time.Duration, modules []catalog.Module, clock Clock, fn func([]ModuleState)) {
	if clock == nil {
		clock = time.Now
	}

	last := States(modules, clock())
	fn(last)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current := States(modules, clock())
			if changed(last, current) {
				fn(current)
				last = current
			}
		}
	}
}

func changed(a, b []ModuleState) bool {
	if len(a) != len(b) {
		return true
	}
	for i := range a {
		if a[i].ModuleID != b[i].ModuleID || a[i].Locked != b[i].Locked {
			return true
		}
	}
	return false
}
