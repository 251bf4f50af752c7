package firebase

import (
	"context"
	"time"

	"todo/internal/service"
)

// DefaultPollInterval is used when Watch is given no interval.
const DefaultPollInterval = 2 * time.Second

// Watch implements service.Watcher by polling the account query and emitting
// a snapshot whenever the result differs from the last one. The first
// snapshot is emitted immediately.
func (c *Client) Watch(ctx context.Context, interval time.Duration) <-chan service.Snapshot {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ch := make(chan service.Snapshot)

	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var (
			last    []service.Task
			lastErr string
			sent    bool
		)
		for {
			tasks, err := c.ListTasks(ctx)
			if ctx.Err() != nil {
				return
			}

			var snap *service.Snapshot
			switch {
			case err != nil:
				if err.Error() != lastErr {
					lastErr = err.Error()
					snap = &service.Snapshot{Err: err}
				}
			case !sent || lastErr != "" || !sameTasks(last, tasks):
				last, lastErr, sent = tasks, "", true
				snap = &service.Snapshot{Tasks: tasks}
			}

			if snap != nil {
				select {
				case ch <- *snap:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func sameTasks(a, b []service.Task) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID ||
			a[i].Description != b[i].Description ||
			a[i].Category != b[i].Category ||
			a[i].Completed != b[i].Completed ||
			!a[i].Created.Equal(b[i].Created) {
			return false
		}
	}
	return true
}
