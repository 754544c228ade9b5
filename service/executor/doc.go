// Package executor invokes registered step services against a run's
// accumulated state.  It is the glue layer between the workflow model and the
// low-level service implementations: it expands input selectors, converts the
// result into the method's declared input type and runs the method under the
// configured deadline.
package executor
