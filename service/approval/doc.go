// Package approval defines the human-in-the-loop approval contract: durable
// approval requests, the decision state machine and the handler registry that
// fires a deferred action exactly once when a request is approved.
package approval
