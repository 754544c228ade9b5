package approval_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jobflowhq/jobflow/service/approval"
	"github.com/jobflowhq/jobflow/service/approval/gate"
	"github.com/jobflowhq/jobflow/service/dao/request/memory"
)

// TestWaitForDecision verifies that WaitForDecision blocks until the request
// is decided and returns the terminal record.
func TestWaitForDecision(t *testing.T) {
	type testCase struct {
		name        string
		approve     bool
		expectError bool
		timeout     time.Duration
		decideDelay time.Duration
	}

	tests := []testCase{{
		name:        "approved before timeout",
		approve:     true,
		expectError: false,
		timeout:     500 * time.Millisecond,
		decideDelay: 10 * time.Millisecond,
	}, {
		name:        "rejected before timeout",
		approve:     false,
		expectError: false,
		timeout:     500 * time.Millisecond,
		decideDelay: 10 * time.Millisecond,
	}, {
		name:        "timeout waiting for decision",
		approve:     true, // irrelevant – decision never made
		expectError: true,
		timeout:     50 * time.Millisecond,
		decideDelay: 200 * time.Millisecond, // triggered after timeout
	}}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), tc.timeout)
			defer cancel()

			svc := gate.New(memory.New(), approval.NewRegistry())
			id, err := svc.Create(context.Background(), &approval.Request{
				OwnerID: "alice",
				Action:  approval.ActionCustom,
			})
			assert.NoError(t, err)

			if tc.decideDelay > 0 {
				go func() {
					time.Sleep(tc.decideDelay)
					_, _ = svc.Decide(context.Background(), id, "alice", tc.approve, "")
				}()
			}

			request, err := approval.WaitForDecision(ctx, svc, id, "alice", 5*time.Millisecond)
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			if tc.approve {
				assert.Equal(t, approval.StatusApproved, request.Status)
			} else {
				assert.Equal(t, approval.StatusRejected, request.Status)
			}
		})
	}
}

// TestAutoDecider verifies that the polling decider settles every pending
// request for its owner and leaves other owners untouched.
func TestAutoDecider(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := gate.New(memory.New(), approval.NewRegistry())

	var aliceIDs []string
	for i := 0; i < 3; i++ {
		id, err := svc.Create(ctx, &approval.Request{
			OwnerID: "alice",
			Action:  approval.ActionSendEmail,
			Payload: map[string]interface{}{"index": i},
		})
		assert.NoError(t, err)
		aliceIDs = append(aliceIDs, id)
	}
	bobID, err := svc.Create(ctx, &approval.Request{OwnerID: "bob", Action: approval.ActionSendEmail})
	assert.NoError(t, err)

	stop := approval.AutoReject(ctx, svc, "alice", "out of office", 5*time.Millisecond)
	defer stop()

	for _, id := range aliceIDs {
		request, err := approval.WaitForDecision(ctx, svc, id, "alice", 5*time.Millisecond)
		assert.NoError(t, err)
		assert.Equal(t, approval.StatusRejected, request.Status)
		assert.Equal(t, "out of office", request.Notes)
	}

	bobRequest, err := svc.Get(ctx, bobID, "bob")
	assert.NoError(t, err)
	assert.Equal(t, approval.StatusPending, bobRequest.Status)
}
