// Package model defines the workflow definition model: an ordered list of
// steps where each step either invokes a registered step service or gates the
// run behind a human approval decision.
package model
