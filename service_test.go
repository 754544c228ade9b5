package jobflow

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jobflowhq/jobflow/runtime/run"
	"github.com/jobflowhq/jobflow/service/approval"
)

const outreachYAML = `name: outreach
steps:
  - name: draft
    action:
      service: document
      method: save
      input:
        name: outreach-draft.md
        text: ${init.message}
  - name: approve send
    gate:
      action: send_outreach
      title: Send outreach to ${init.contact}
      payload:
        contact: ${init.contact}
        document: ${draft.document.url}
  - name: done
    action:
      service: nop
      method: nop
`

func TestService_EndToEnd(t *testing.T) {
	var sent int32
	srv := New(
		WithDefinitionsBaseURL(t.TempDir()),
		WithDocumentsBaseURL(t.TempDir()),
		WithHandler(approval.ActionSendEmail, func(ctx context.Context, r *approval.Request) error {
			atomic.AddInt32(&sent, 1)
			return nil
		}),
	)
	ctx := context.Background()
	rt := srv.Runtime()

	definition, err := rt.DecodeYAMLWorkflow([]byte(outreachYAML))
	assert.Nil(t, err)
	assert.Nil(t, rt.UpsertDefinition(ctx, definition))

	started, err := rt.StartRun(ctx, definition, "alice", map[string]interface{}{
		"message": "Hi, I came across your team...",
		"contact": "cto@initech.test",
	})
	assert.Nil(t, err)
	assert.Equal(t, run.StateSuspended, started.State)

	pending, err := srv.Approvals().ListPending(ctx, "alice")
	assert.Nil(t, err)
	assert.Equal(t, 1, len(pending))
	assert.Equal(t, "Send outreach to cto@initech.test", pending[0].Title)
	data, ok := pending[0].Payload["data"].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "cto@initech.test", data["contact"])
	assert.NotEmpty(t, data["document"])

	decided, err := srv.Approvals().Decide(ctx, pending[0].ID, "alice", true, "send it")
	assert.Nil(t, err)
	assert.Equal(t, approval.StatusApproved, decided.Status)
	assert.False(t, decided.ExecutionFailed)

	finished, err := rt.Run(ctx, started.ID)
	assert.Nil(t, err)
	assert.Equal(t, run.StateCompleted, finished.State)

	// standalone approvals still dispatch to their registered handler
	id, err := srv.Approvals().Create(ctx, &approval.Request{
		OwnerID: "alice",
		Action:  approval.ActionSendEmail,
		Title:   "Send thank-you note",
	})
	assert.Nil(t, err)
	_, err = srv.Approvals().Decide(ctx, id, "alice", true, "")
	assert.Nil(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&sent))
}

func TestService_RuntimeLifecycle(t *testing.T) {
	srv := New(WithDefinitionsBaseURL(t.TempDir()))
	ctx := context.Background()

	rt := srv.Runtime()
	assert.Nil(t, rt.Start(ctx))
	assert.Nil(t, rt.Start(ctx)) // idempotent
	assert.Nil(t, rt.Shutdown(ctx))
}

func TestService_ConfigValidation(t *testing.T) {
	assert.Nil(t, DefaultConfig().Validate())

	invalid := DefaultConfig()
	invalid.Gate.PendingExpiry = 0
	assert.NotNil(t, invalid.Validate())
}
