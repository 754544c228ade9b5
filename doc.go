// Package jobflow provides an approval-gated workflow engine.
//
// Workflows are defined declaratively (for example in YAML) as a sequence of
// steps. Action steps invoke registered step services; gate steps park the
// run and open an approval request, so a human stays in the loop before
// consequential actions such as submitting a job application or sending
// outreach. Approving the request resumes the run exactly once; rejecting or
// cancelling it aborts the run.
//
// End-users typically interact with the engine via the high-level Service
// façade exposed by the root package:
//
//	srv := jobflow.New()
//	rt := srv.Runtime()
//	wf, _ := rt.LoadWorkflow(ctx, "job-application.yaml")
//	started, _ := rt.StartRun(ctx, wf, "alice", map[string]interface{}{"query": "golang"})
//	// ... later, from the approval inbox:
//	srv.Approvals().Decide(ctx, started.PendingRequestID, "alice", true, "go ahead")
//
// For more details see the README and individual sub-packages.
package jobflow
