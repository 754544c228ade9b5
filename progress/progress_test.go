package progress

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress_Update(t *testing.T) {
	var notified []Progress
	ctx, tracker := WithNewTracker(context.Background(), "run-1", "job-application", func(p Progress) {
		notified = append(notified, p)
	})

	UpdateCtx(ctx, Delta{Total: 4})
	UpdateCtx(ctx, Delta{Running: 1})
	UpdateCtx(ctx, Delta{Running: -1, Completed: 1})

	snapshot := tracker.Snapshot()
	assert.Equal(t, "run-1", snapshot.RunID)
	assert.Equal(t, "job-application", snapshot.Workflow)
	assert.Equal(t, 4, snapshot.TotalSteps)
	assert.Equal(t, 1, snapshot.CompletedSteps)
	assert.Equal(t, 0, snapshot.RunningSteps)
	assert.Equal(t, 3, len(notified))
	assert.Equal(t, 1, notified[1].RunningSteps)
}

func TestProgress_Concurrent(t *testing.T) {
	_, tracker := WithNewTracker(context.Background(), "run-2", "outreach", nil)

	wg := sync.WaitGroup{}
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Update(Delta{Total: 1, Completed: 1})
		}()
	}
	wg.Wait()

	snapshot := tracker.Snapshot()
	assert.Equal(t, 32, snapshot.TotalSteps)
	assert.Equal(t, 32, snapshot.CompletedSteps)
}

func TestProgress_NilSafety(t *testing.T) {
	var tracker *Progress
	tracker.Update(Delta{Total: 1})
	tracker.OnChange(nil)
	assert.Equal(t, Progress{}, tracker.Snapshot())

	_, ok := FromContext(context.Background())
	assert.False(t, ok)
	_, ok = GetSnapshot(context.Background())
	assert.False(t, ok)
	UpdateCtx(context.Background(), Delta{Total: 1})
}
